package flusher

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"
	obskit "github.com/rudderlabs/rudder-observability-kit/go/labels"
)

// CronRunner triggers flush cycles periodically. The flusher itself stays
// trigger-agnostic: this runner is its only caller in the service binary.
type CronRunner struct {
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group

	log   logger.Logger
	stats stats.Stats

	instanceID    string
	flusher       *Flusher
	sleepInterval config.ValueLoader[time.Duration]

	flushTimer stats.Measurement

	started atomic.Bool
}

func NewCronRunner(ctx context.Context, log logger.Logger, stat stats.Stats, conf *config.Config, flusher *Flusher) *CronRunner {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	c := &CronRunner{
		ctx:           ctx,
		cancel:        cancel,
		g:             g,
		log:           log,
		stats:         stat,
		instanceID:    conf.GetString("INSTANCE_ID", "1"),
		flusher:       flusher,
		sleepInterval: conf.GetReloadableDurationVar(30, time.Second, "TelemetryFlusher.sleepInterval"),
	}
	c.initStats()
	return c
}

func (c *CronRunner) initStats() {
	tags := stats.Tags{"instance": c.instanceID}
	c.flushTimer = c.stats.NewTaggedStat("telemetry_flush_duration_seconds", stats.TimerType, tags)
}

// Run starts the flush loop and blocks until Stop is called or the parent
// context is cancelled.
func (c *CronRunner) Run() {
	c.g.Go(func() error {
		return c.startFlushing(c.ctx)
	})
	c.started.Store(true)

	if err := c.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Errorn("error in cron-runner", obskit.Error(err))
	}
}

func (c *CronRunner) startFlushing(ctx context.Context) error {
	ticker := time.NewTicker(c.sleepInterval.Load())
	defer ticker.Stop()

	for {
		s := time.Now()
		switch err := c.flusher.Flush(ctx); {
		case errors.Is(err, ErrFlushInProgress):
			// previous cycle's deletion phase still draining, skip this tick
			c.log.Debugn("skipping flush tick, previous cycle still in flight")
		case err != nil:
			c.log.Errorn("error in flush", obskit.Error(err))
		}
		c.flushTimer.Since(s)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop cancels the flush loop and waits for it to exit.
func (c *CronRunner) Stop() {
	c.cancel()
	if err := c.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Errorn("error in stopping cron-runner", obskit.Error(err))
	}
	c.started.Store(false)
}
