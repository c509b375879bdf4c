package flusher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"
	obskit "github.com/rudderlabs/rudder-observability-kit/go/labels"

	"github.com/rudderlabs/rudder-telemetry/gaugedb"
)

var (
	// ErrFlushInProgress is returned by Flush while a previous cycle,
	// including its deletion phase, has not finished yet.
	ErrFlushInProgress = errors.New("flush already in progress")
	// ErrAllSendsFailed is returned by Flush when at least one batch was
	// dispatched and every send failed.
	ErrAllSendsFailed = errors.New("all batch sends failed")
)

// Flusher drains persisted gauges/sessions/events, sends them to the remote
// collector in bounded batches and deletes persisted records according to the
// per-batch outcomes of one cycle.
type Flusher struct {
	log   logger.Logger
	stats stats.Stats

	store  Store
	sender Sender

	instanceID string
	device     DeviceInfo

	perBatchLimit      config.ValueLoader[int]
	maxConcurrentSends config.ValueLoader[int]
	deleteMaxRetries   config.ValueLoader[int]

	// inFlight serializes flush cycles: it is held from the start of Flush
	// until the deletion barrier of that cycle drains.
	inFlight atomic.Bool

	// mu guards the transient per-cycle state below. Batch results are
	// appended from concurrent send completions, so the serialization must
	// be explicit.
	mu               sync.Mutex
	results          []EventBatchResult
	obsoleteGauges   []gaugedb.Gauge
	obsoleteSessions []gaugedb.Session
	cycleDone        chan struct{}

	// deadLetter accumulates fetch specs whose deletion kept failing after
	// bounded retries. It survives cycle resets.
	deadLetter []gaugedb.FetchSpec

	gaugesFetchedStat     stats.Measurement
	sendSuccessCounter    stats.Measurement
	sendFailureCounter    stats.Measurement
	batchFetchFailCounter stats.Measurement
	eventsDeletedCounter  stats.Measurement
	sessionsDeletedStat   stats.Measurement
	gaugesDeletedStat     stats.Measurement
	deadLetterCounter     stats.Measurement
}

// NewFlusher creates a flusher draining the given store through the given
// sender.
func NewFlusher(store Store, sender Sender, conf *config.Config, log logger.Logger, stat stats.Stats) *Flusher {
	f := &Flusher{
		log:                log,
		stats:              stat,
		store:              store,
		sender:             sender,
		instanceID:         conf.GetString("INSTANCE_ID", "1"),
		perBatchLimit:      conf.GetReloadableIntVar(100, 1, "TelemetryFlusher.perBatchLimit"),
		maxConcurrentSends: conf.GetReloadableIntVar(16, 1, "TelemetryFlusher.maxConcurrentSends"),
		deleteMaxRetries:   conf.GetReloadableIntVar(3, 1, "TelemetryFlusher.deleteMaxRetries"),
		device: DeviceInfo{
			Manufacturer: conf.GetStringVar("", "Collector.device.manufacturer"),
			Model:        conf.GetStringVar("", "Collector.device.model"),
			OSName:       conf.GetStringVar("", "Collector.device.osName"),
		},
	}
	f.initStats()
	return f
}

func (f *Flusher) initStats() {
	tags := stats.Tags{"instance": f.instanceID}
	f.gaugesFetchedStat = f.stats.NewTaggedStat("telemetry_flush_gauges_fetched", stats.HistogramType, tags)
	f.sendSuccessCounter = f.stats.NewTaggedStat("telemetry_flush_batches_total", stats.CountType, mergeTags(tags, "success", "true"))
	f.sendFailureCounter = f.stats.NewTaggedStat("telemetry_flush_batches_total", stats.CountType, mergeTags(tags, "success", "false"))
	f.batchFetchFailCounter = f.stats.NewTaggedStat("telemetry_flush_batch_fetch_failures_total", stats.CountType, tags)
	f.eventsDeletedCounter = f.stats.NewTaggedStat("telemetry_flush_events_deleted_total", stats.CountType, tags)
	f.sessionsDeletedStat = f.stats.NewTaggedStat("telemetry_flush_sessions_deleted_total", stats.CountType, tags)
	f.gaugesDeletedStat = f.stats.NewTaggedStat("telemetry_flush_gauges_deleted_total", stats.CountType, tags)
	f.deadLetterCounter = f.stats.NewTaggedStat("telemetry_flush_delete_dead_letter_total", stats.CountType, tags)
}

// Flush runs one flush cycle: it enumerates all persisted gauges, sessions
// and events, dispatches bounded event batches to the sender concurrently,
// waits for every send to complete, classifies the aggregate outcome and
// triggers the deletion cascade.
//
// Flush returns as soon as the outcome is classified; deletions are
// best-effort cleanup that completes in the background. It returns an error
// only when the initial gauge fetch fails or when every dispatched send
// failed. A second Flush while a cycle (including its deletion phase) is in
// flight returns ErrFlushInProgress.
func (f *Flusher) Flush(ctx context.Context) error {
	if !f.inFlight.CompareAndSwap(false, true) {
		return ErrFlushInProgress
	}
	f.resetCycleState()

	gauges, err := f.store.FetchGaugeRollups(ctx)
	if err != nil {
		f.finishCycle()
		return fmt.Errorf("fetching gauge rollups: %w", err)
	}
	f.gaugesFetchedStat.Observe(float64(len(gauges)))
	if len(gauges) == 0 {
		f.finishCycle()
		return nil
	}

	latestGaugeSeq := lo.MaxBy(gauges, func(a, b gaugedb.Gauge) bool { return a.Seq > b.Seq }).Seq

	g := &errgroup.Group{}
	g.SetLimit(f.maxConcurrentSends.Load())
	for _, gauge := range gauges {
		latestGauge := gauge.Seq == latestGaugeSeq
		sessions, err := f.store.FetchSessions(ctx, gauge)
		if err != nil {
			// keep the gauge: its sessions were never enumerated, deleting the
			// rollup would orphan them
			f.log.Errorn("failed to fetch sessions of gauge",
				logger.NewStringField("gaugeID", gauge.ID), obskit.Error(err))
			continue
		}
		var latestSessionSeq uint64
		if len(sessions) > 0 {
			latestSessionSeq = lo.MaxBy(sessions, func(a, b gaugedb.Session) bool { return a.Seq > b.Seq }).Seq
		}
		gaugeDrained := true
		for _, session := range sessions {
			if !f.dispatchSessionBatches(ctx, g, gauge, session) {
				// keep the session (and its gauge): some of its events were
				// never read, so it has not been processed for sending
				gaugeDrained = false
				continue
			}
			if !(latestGauge && session.Seq == latestSessionSeq) {
				f.mu.Lock()
				f.obsoleteSessions = append(f.obsoleteSessions, session)
				f.mu.Unlock()
			}
		}
		if !latestGauge && gaugeDrained {
			f.mu.Lock()
			f.obsoleteGauges = append(f.obsoleteGauges, gauge)
			f.mu.Unlock()
		}
	}
	_ = g.Wait() // send barrier: classification is ordered after every send

	f.mu.Lock()
	results := f.results
	obsoleteGauges := f.obsoleteGauges
	obsoleteSessions := f.obsoleteSessions
	f.mu.Unlock()

	outcome := classifyResults(results)
	f.log.Infon("flush cycle classified",
		logger.NewStringField("outcome", outcome.kind.String()),
		logger.NewIntField("succeeded", int64(len(outcome.succeeded))),
		logger.NewIntField("failed", int64(len(outcome.failed))))

	// Cleanup must outlive the trigger's context: the caller's critical path
	// ends at classification.
	deleteCtx := context.WithoutCancel(ctx)
	var deleteWG sync.WaitGroup
	switch outcome.kind {
	case allSucceeded:
		f.startDeletionCascade(deleteCtx, &deleteWG, outcome.succeeded, obsoleteGauges, obsoleteSessions)
	case mixed:
		// Some events of the obsolete rollups are still undelivered: delete
		// only the delivered batches and keep every gauge/session for a
		// future cycle.
		f.startDeletionCascade(deleteCtx, &deleteWG, outcome.succeeded, nil, nil)
	case allFailed:
	}

	go func() {
		deleteWG.Wait() // deletion barrier
		f.mu.Lock()
		f.results = nil
		f.obsoleteGauges = nil
		f.obsoleteSessions = nil
		done := f.cycleDone
		f.mu.Unlock()
		f.inFlight.Store(false)
		close(done)
	}()

	if outcome.kind == allFailed {
		return fmt.Errorf("%w: %d batches", ErrAllSendsFailed, len(outcome.failed))
	}
	return nil
}

// dispatchSessionBatches enumerates the events of one session in bounded
// batches and submits each batch to the sender on the send group. Every
// completed send appends its result, success or failure alike.
//
// It reports whether the session was fully drained, i.e. every one of its
// events was read and handed to a send. A session that was not fully drained
// must stay out of the deletion set, together with its gauge, so the unread
// events remain reachable for a future cycle.
func (f *Flusher) dispatchSessionBatches(ctx context.Context, g *errgroup.Group, gauge gaugedb.Gauge, session gaugedb.Session) bool {
	count, err := f.store.EventCount(ctx, session)
	if err != nil {
		f.log.Errorn("failed to count events of session",
			logger.NewStringField("sessionID", session.ID), obskit.Error(err))
		return false
	}
	if count == 0 {
		return true
	}
	limit := f.perBatchLimit.Load()
	iterations := batchIterations(count, limit)
	drained := true
	for i := 0; i < iterations; i++ {
		events, spec, err := f.store.FetchEventBatch(ctx, session, i*limit, limit)
		if err != nil {
			f.log.Errorn("failed to fetch event batch",
				logger.NewStringField("sessionID", session.ID),
				logger.NewIntField("offset", int64(i*limit)), obskit.Error(err))
			f.batchFetchFailCounter.Increment()
			drained = false
			continue
		}
		if len(events) == 0 {
			break
		}
		request := f.buildBatchRequest(gauge, session, events)
		g.Go(func() error {
			err := f.sender.Send(ctx, request)
			if err != nil {
				f.log.Warnn("batch send failed",
					logger.NewStringField("sessionID", session.ID),
					logger.NewIntField("events", int64(len(events))), obskit.Error(err))
				f.sendFailureCounter.Increment()
			} else {
				f.sendSuccessCounter.Increment()
			}
			f.mu.Lock()
			f.results = append(f.results, EventBatchResult{Success: err == nil, Events: events, Spec: spec})
			f.mu.Unlock()
			return nil
		})
	}
	return drained
}

func (f *Flusher) buildBatchRequest(gauge gaugedb.Gauge, session gaugedb.Session, events []gaugedb.Event) *BatchRequest {
	return &BatchRequest{
		GaugeID:    gauge.ID,
		SessionID:  session.ID,
		AppVersion: gauge.AppVersion,
		OSVersion:  gauge.OSVersion,
		SDKVersion: gauge.SDKVersion,
		Device:     f.device,
		UserInfo:   gauge.UserInfo,
		Events: lo.Map(events, func(e gaugedb.Event, _ int) EventPayload {
			return EventPayload{
				Name:       e.Name,
				Type:       e.Type,
				Attributes: e.Attributes,
				Timestamp:  e.Timestamp.UnixMilli(),
			}
		}),
	}
}

// startDeletionCascade starts the three deletion sub-operations. Each one
// enters and leaves the deletion barrier independently; none of their
// failures aborts the others or changes the cycle's classification.
func (f *Flusher) startDeletionCascade(ctx context.Context, wg *sync.WaitGroup, results []EventBatchResult, gauges []gaugedb.Gauge, sessions []gaugedb.Session) {
	wg.Add(3)
	go func() {
		defer wg.Done()
		f.deleteEventBatches(ctx, results)
	}()
	go func() {
		defer wg.Done()
		f.deleteGauges(ctx, gauges)
	}()
	go func() {
		defer wg.Done()
		f.deleteSessions(ctx, sessions)
	}()
}

// deleteEventBatches deletes the event records of successfully sent batches.
// Each deletion is retried with bounded exponential backoff; specs that keep
// failing are dead-lettered instead of retried forever.
func (f *Flusher) deleteEventBatches(ctx context.Context, results []EventBatchResult) {
	for _, result := range results {
		op := func() error {
			return f.store.DeleteEvents(ctx, result.Spec)
		}
		bo := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(f.deleteMaxRetries.Load())),
			ctx,
		)
		err := backoff.RetryNotify(op, bo, func(err error, _ time.Duration) {
			f.log.Warnn("retrying event batch deletion", obskit.Error(err))
		})
		if err != nil {
			f.log.Errorn("event batch deletion failed, dead-lettering",
				logger.NewIntField("events", int64(len(result.Events))), obskit.Error(err))
			f.mu.Lock()
			f.deadLetter = append(f.deadLetter, result.Spec)
			f.mu.Unlock()
			f.deadLetterCounter.Increment()
			continue
		}
		f.eventsDeletedCounter.Count(len(result.Events))
	}
}

func (f *Flusher) deleteGauges(ctx context.Context, gauges []gaugedb.Gauge) {
	for _, gauge := range gauges {
		if err := f.store.DeleteGauge(ctx, gauge); err != nil {
			f.log.Errorn("failed to delete obsolete gauge",
				logger.NewStringField("gaugeID", gauge.ID), obskit.Error(err))
			continue
		}
		f.gaugesDeletedStat.Increment()
	}
}

func (f *Flusher) deleteSessions(ctx context.Context, sessions []gaugedb.Session) {
	for _, session := range sessions {
		if err := f.store.DeleteSession(ctx, session); err != nil {
			f.log.Errorn("failed to delete obsolete session",
				logger.NewStringField("sessionID", session.ID), obskit.Error(err))
			continue
		}
		f.sessionsDeletedStat.Increment()
	}
}

// DeadLetteredSpecs drains the fetch specs whose deletion kept failing after
// bounded retries, handing them to the caller for out-of-band reconciliation.
// Specs are returned at most once.
func (f *Flusher) DeadLetteredSpecs() []gaugedb.FetchSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	specs := f.deadLetter
	f.deadLetter = nil
	return specs
}

func (f *Flusher) resetCycleState() {
	f.mu.Lock()
	f.results = nil
	f.obsoleteGauges = nil
	f.obsoleteSessions = nil
	f.cycleDone = make(chan struct{})
	f.mu.Unlock()
}

// finishCycle ends a cycle that never reached the deletion cascade.
func (f *Flusher) finishCycle() {
	f.mu.Lock()
	done := f.cycleDone
	f.mu.Unlock()
	f.inFlight.Store(false)
	close(done)
}

func mergeTags(tags stats.Tags, key, value string) stats.Tags {
	merged := stats.Tags{key: value}
	for k, v := range tags {
		merged[k] = v
	}
	return merged
}
