package gaugedb_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"

	"github.com/rudderlabs/rudder-telemetry/gaugedb"
)

func newTestRepository(t *testing.T) *gaugedb.Repository {
	t.Helper()
	r, err := gaugedb.NewRepository(t.TempDir(), config.New(), logger.NOP, stats.NOP, gaugedb.WithGCInterval(time.Minute))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Stop() })
	return r
}

func TestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create gauge assigns id, seq and creation time", func(t *testing.T) {
		r := newTestRepository(t)

		g1, err := r.CreateGauge(ctx, gaugedb.Gauge{AppVersion: "1.2.3", OSVersion: "14.0", SDKVersion: "0.9.0"})
		require.NoError(t, err)
		require.NotEmpty(t, g1.ID)
		require.False(t, g1.CreatedAt.IsZero())

		g2, err := r.CreateGauge(ctx, gaugedb.Gauge{ID: "custom-id"})
		require.NoError(t, err)
		require.Equal(t, "custom-id", g2.ID)
		require.Greater(t, g2.Seq, g1.Seq)

		gauges, err := r.FetchGaugeRollups(ctx)
		require.NoError(t, err)
		require.Len(t, gauges, 2)
		require.Equal(t, g1.ID, gauges[0].ID)
		require.Equal(t, g2.ID, gauges[1].ID)
	})

	t.Run("sessions are scoped to their gauge and ordered by creation", func(t *testing.T) {
		r := newTestRepository(t)

		g1, err := r.CreateGauge(ctx, gaugedb.Gauge{})
		require.NoError(t, err)
		g2, err := r.CreateGauge(ctx, gaugedb.Gauge{})
		require.NoError(t, err)

		s1, err := r.StartSession(ctx, g1, "")
		require.NoError(t, err)
		require.NotEmpty(t, s1.ID)
		s2, err := r.StartSession(ctx, g1, "named-session")
		require.NoError(t, err)
		require.Equal(t, "named-session", s2.ID)
		_, err = r.StartSession(ctx, g2, "")
		require.NoError(t, err)

		sessions, err := r.FetchSessions(ctx, g1)
		require.NoError(t, err)
		require.Len(t, sessions, 2)
		require.Equal(t, s1.ID, sessions[0].ID)
		require.Equal(t, s2.ID, sessions[1].ID)
		require.Greater(t, sessions[1].Seq, sessions[0].Seq)
	})

	t.Run("events are counted, paged and deleted by spec", func(t *testing.T) {
		r := newTestRepository(t)

		g, err := r.CreateGauge(ctx, gaugedb.Gauge{})
		require.NoError(t, err)
		s, err := r.StartSession(ctx, g, "")
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			err := r.RecordEvent(ctx, s, gaugedb.Event{
				Name:      fmt.Sprintf("event-%d", i),
				Type:      "log",
				Timestamp: time.Now().UTC(),
			})
			require.NoError(t, err)
		}

		count, err := r.EventCount(ctx, s)
		require.NoError(t, err)
		require.Equal(t, 5, count)

		events, spec, err := r.FetchEventBatch(ctx, s, 0, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		require.Len(t, spec.Keys, 2)
		require.Equal(t, "event-0", events[0].Name)
		require.Equal(t, "event-1", events[1].Name)

		lastEvents, lastSpec, err := r.FetchEventBatch(ctx, s, 4, 2)
		require.NoError(t, err)
		require.Len(t, lastEvents, 1)
		require.Len(t, lastSpec.Keys, 1)
		require.Equal(t, "event-4", lastEvents[0].Name)

		require.NoError(t, r.DeleteEvents(ctx, spec))
		count, err = r.EventCount(ctx, s)
		require.NoError(t, err)
		require.Equal(t, 3, count)

		remaining, _, err := r.FetchEventBatch(ctx, s, 0, 10)
		require.NoError(t, err)
		require.Equal(t, "event-2", remaining[0].Name)
	})

	t.Run("event batches do not leak across sessions", func(t *testing.T) {
		r := newTestRepository(t)

		g, err := r.CreateGauge(ctx, gaugedb.Gauge{})
		require.NoError(t, err)
		s1, err := r.StartSession(ctx, g, "")
		require.NoError(t, err)
		s2, err := r.StartSession(ctx, g, "")
		require.NoError(t, err)

		require.NoError(t, r.RecordEvent(ctx, s1, gaugedb.Event{Name: "first", Timestamp: time.Now().UTC()}))
		require.NoError(t, r.RecordEvent(ctx, s2, gaugedb.Event{Name: "second", Timestamp: time.Now().UTC()}))

		events, _, err := r.FetchEventBatch(ctx, s1, 0, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, "first", events[0].Name)
	})

	t.Run("delete session and gauge", func(t *testing.T) {
		r := newTestRepository(t)

		g, err := r.CreateGauge(ctx, gaugedb.Gauge{})
		require.NoError(t, err)
		s, err := r.StartSession(ctx, g, "")
		require.NoError(t, err)

		require.NoError(t, r.DeleteSession(ctx, s))
		sessions, err := r.FetchSessions(ctx, g)
		require.NoError(t, err)
		require.Empty(t, sessions)

		require.NoError(t, r.DeleteGauge(ctx, g))
		gauges, err := r.FetchGaugeRollups(ctx)
		require.NoError(t, err)
		require.Empty(t, gauges)
	})

	t.Run("cancelled context is rejected", func(t *testing.T) {
		r := newTestRepository(t)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.FetchGaugeRollups(cancelled)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("stopped repository rejects operations", func(t *testing.T) {
		r := newTestRepository(t)
		require.NoError(t, r.Stop())
		require.NoError(t, r.Stop()) // idempotent

		_, err := r.CreateGauge(ctx, gaugedb.Gauge{})
		require.Error(t, err)
	})

	t.Run("records survive a restart", func(t *testing.T) {
		basePath := t.TempDir()
		conf := config.New()

		r, err := gaugedb.NewRepository(basePath, conf, logger.NOP, stats.NOP, gaugedb.WithGCInterval(time.Minute))
		require.NoError(t, err)
		g, err := r.CreateGauge(ctx, gaugedb.Gauge{AppVersion: "1.0.0"})
		require.NoError(t, err)
		require.NoError(t, r.Stop())

		r, err = gaugedb.NewRepository(basePath, conf, logger.NOP, stats.NOP, gaugedb.WithGCInterval(time.Minute))
		require.NoError(t, err)
		defer func() { _ = r.Stop() }()

		gauges, err := r.FetchGaugeRollups(ctx)
		require.NoError(t, err)
		require.Len(t, gauges, 1)
		require.Equal(t, g.ID, gauges[0].ID)
		require.Equal(t, "1.0.0", gauges[0].AppVersion)
	})
}
