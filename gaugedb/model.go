package gaugedb

import (
	"encoding/json"
	"time"
)

// Gauge is a rollup unit grouping the sessions recorded during one logging
// period. Exactly one gauge, the one with the highest Seq, is the latest: it
// is still accumulating sessions and is never deleted by a flush cycle.
type Gauge struct {
	// ID is the anonymous identifier of the gauge.
	ID         string          `json:"id"`
	AppVersion string          `json:"appVersion"`
	OSVersion  string          `json:"osVersion"`
	SDKVersion string          `json:"sdkVersion"`
	// UserInfo is an optional free-form blob attached by the application.
	UserInfo json.RawMessage `json:"userInfo,omitempty"`
	// Seq is the creation ordering marker, assigned by the repository.
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is a logical grouping of events within a gauge. Within the latest
// gauge, the session with the highest Seq is the latest and is never deleted
// by a flush cycle.
type Session struct {
	ID        string    `json:"id"`
	GaugeSeq  uint64    `json:"gaugeSeq"`
	Seq       uint64    `json:"seq"`
	StartedAt time.Time `json:"startedAt"`
}

// Event is a single telemetry record. Events are immutable once recorded.
type Event struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// FetchSpec identifies exactly the event records returned by one batched
// fetch, so that they can be deleted later without re-running the query.
type FetchSpec struct {
	Keys []string `json:"keys"`
}
