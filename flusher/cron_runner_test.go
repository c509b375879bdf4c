package flusher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/mock/gomock"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"
)

func TestCronRunner(t *testing.T) {
	t.Run("flushes on every tick until stopped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := NewMockStore(ctrl)
		sender := NewMockSender(ctrl)

		conf := config.New()
		conf.Set("TelemetryFlusher.sleepInterval", "10ms")
		f := NewFlusher(store, sender, conf, logger.NOP, stats.NOP)

		var flushes atomic.Int64
		store.EXPECT().FetchGaugeRollups(gomock.Any()).
			Do(func(context.Context) { flushes.Inc() }).
			Return(nil, nil).
			AnyTimes()

		cr := NewCronRunner(context.Background(), logger.NOP, stats.NOP, conf, f)
		runDone := make(chan struct{})
		go func() {
			cr.Run()
			close(runDone)
		}()

		require.Eventually(t, func() bool { return flushes.Load() >= 2 }, 5*time.Second, 5*time.Millisecond)
		require.True(t, cr.started.Load())

		cr.Stop()
		select {
		case <-runDone:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for Run to return after Stop")
		}
		require.False(t, cr.started.Load())
	})

	t.Run("parent context cancellation stops the loop", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := NewMockStore(ctrl)
		sender := NewMockSender(ctrl)

		conf := config.New()
		conf.Set("TelemetryFlusher.sleepInterval", "10ms")
		f := NewFlusher(store, sender, conf, logger.NOP, stats.NOP)
		store.EXPECT().FetchGaugeRollups(gomock.Any()).Return(nil, nil).AnyTimes()

		ctx, cancel := context.WithCancel(context.Background())
		cr := NewCronRunner(ctx, logger.NOP, stats.NOP, conf, f)
		runDone := make(chan struct{})
		go func() {
			cr.Run()
			close(runDone)
		}()

		cancel()
		select {
		case <-runDone:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for Run to return after context cancellation")
		}
	})
}
