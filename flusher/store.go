//go:generate mockgen -destination=./store_mock.go -package=flusher -source=./store.go Store
package flusher

import (
	"context"

	"github.com/rudderlabs/rudder-telemetry/gaugedb"
)

// Store is the persistence contract the flusher drains from and deletes
// against. All operations are individually failable; the flusher owns no
// persistence details beyond this contract.
type Store interface {
	// FetchGaugeRollups returns all gauge rollups ordered by creation.
	FetchGaugeRollups(ctx context.Context) ([]gaugedb.Gauge, error)
	// FetchSessions returns the sessions of a gauge ordered by creation.
	FetchSessions(ctx context.Context, gauge gaugedb.Gauge) ([]gaugedb.Session, error)
	// EventCount returns the number of events recorded under a session.
	EventCount(ctx context.Context, session gaugedb.Session) (int, error)
	// FetchEventBatch returns up to limit events of a session starting at
	// offset, along with a spec identifying exactly the returned records.
	FetchEventBatch(ctx context.Context, session gaugedb.Session, offset, limit int) ([]gaugedb.Event, gaugedb.FetchSpec, error)
	// DeleteEvents deletes exactly the event records identified by the spec.
	DeleteEvents(ctx context.Context, spec gaugedb.FetchSpec) error
	// DeleteSession deletes a session record.
	DeleteSession(ctx context.Context, session gaugedb.Session) error
	// DeleteGauge deletes a gauge rollup record.
	DeleteGauge(ctx context.Context, gauge gaugedb.Gauge) error
}
