package gaugedb

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"

	"github.com/rudderlabs/rudder-go-kit/config"
	"github.com/rudderlabs/rudder-go-kit/logger"
	"github.com/rudderlabs/rudder-go-kit/stats"

	"github.com/rudderlabs/rudder-telemetry/jsonrs"
)

// seqBandwidth is the badger sequence lease size. Sequence numbers are
// monotonic but not contiguous across restarts.
const seqBandwidth = 100

// Opt is a function that configures a badgerdb repository.
type Opt func(*Repository)

// WithGCInterval sets the interval of the value log garbage collection loop.
func WithGCInterval(interval time.Duration) Opt {
	return func(r *Repository) {
		r.gcInterval = interval
	}
}

// Repository is a gauge/session/event store backed by badgerdb.
//
// Keys are laid out so that lexicographic iteration equals creation order:
//
//	g:<gaugeSeq>
//	s:<gaugeSeq>:<sessionSeq>
//	e:<gaugeSeq>:<sessionSeq>:<eventSeq>
//
// with fixed-width, zero-padded sequence numbers.
type Repository struct {
	log        logger.Logger
	stats      stats.Stats
	path       string
	gcInterval time.Duration

	db         *badger.DB
	gaugeSeq   *badger.Sequence
	sessionSeq *badger.Sequence
	eventSeq   *badger.Sequence

	closeOnce sync.Once
	closed    chan struct{}
}

// NewRepository returns a new repository backed by badgerdb.
func NewRepository(basePath string, conf *config.Config, log logger.Logger, stat stats.Stats, opts ...Opt) (*Repository, error) {
	r := &Repository{
		log:        log,
		stats:      stat,
		path:       path.Join(basePath, "badgerdbv4"),
		gcInterval: conf.GetDurationVar(5, time.Minute, "GaugeDB.gcInterval"),
		closed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.start(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) start() error {
	opts := badger.
		DefaultOptions(r.path).
		WithLogger(blogger{r.log}).
		WithCompression(options.None).
		WithIndexCacheSize(16 << 20). // 16mb
		WithNumGoroutines(1)
	var err error
	if r.db, err = badger.Open(opts); err != nil {
		return fmt.Errorf("could not open badgerdb: %w", err)
	}
	if r.gaugeSeq, err = r.db.GetSequence([]byte("seq:g"), seqBandwidth); err != nil {
		return fmt.Errorf("could not get gauge sequence: %w", err)
	}
	if r.sessionSeq, err = r.db.GetSequence([]byte("seq:s"), seqBandwidth); err != nil {
		return fmt.Errorf("could not get session sequence: %w", err)
	}
	if r.eventSeq, err = r.db.GetSequence([]byte("seq:e"), seqBandwidth); err != nil {
		return fmt.Errorf("could not get event sequence: %w", err)
	}

	go r.gcLoop()
	return nil
}

// gcLoop periodically garbage collects the badger value log and publishes
// database size stats, until the repository is stopped.
func (r *Repository) gcLoop() {
	ticker := time.NewTicker(r.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.closed:
			return
		case <-ticker.C:
		}
	again: // see https://dgraph.io/docs/badger/get-started/#garbage-collection
		err := r.db.RunValueLogGC(0.7)
		if err == nil {
			goto again
		}
		lsmSize, vlogSize := r.db.Size()
		r.stats.NewTaggedStat("gaugedb_badger_size_bytes", stats.GaugeType, stats.Tags{"type": "lsm"}).Gauge(lsmSize)
		r.stats.NewTaggedStat("gaugedb_badger_size_bytes", stats.GaugeType, stats.Tags{"type": "vlog"}).Gauge(vlogSize)
	}
}

// Stop stops the repository and releases its sequences.
func (r *Repository) Stop() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)
		_ = r.gaugeSeq.Release()
		_ = r.sessionSeq.Release()
		_ = r.eventSeq.Release()
		err = r.db.Close()
	})
	return err
}

// CreateGauge persists a new gauge rollup. The ID is generated when absent;
// Seq and CreatedAt are always assigned by the repository.
func (r *Repository) CreateGauge(ctx context.Context, gauge Gauge) (Gauge, error) {
	if err := r.ready(ctx); err != nil {
		return Gauge{}, err
	}
	seq, err := r.gaugeSeq.Next()
	if err != nil {
		return Gauge{}, fmt.Errorf("could not get next gauge sequence: %w", err)
	}
	gauge.Seq = seq
	gauge.CreatedAt = time.Now().UTC()
	if gauge.ID == "" {
		gauge.ID = uuid.NewString()
	}
	value, err := jsonrs.Marshal(gauge)
	if err != nil {
		return Gauge{}, fmt.Errorf("could not marshal gauge: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gaugeKey(seq), value)
	})
	if err != nil {
		return Gauge{}, fmt.Errorf("could not store gauge: %w", err)
	}
	return gauge, nil
}

// StartSession persists a new session under the given gauge. The session ID
// is generated when absent.
func (r *Repository) StartSession(ctx context.Context, gauge Gauge, sessionID string) (Session, error) {
	if err := r.ready(ctx); err != nil {
		return Session{}, err
	}
	seq, err := r.sessionSeq.Next()
	if err != nil {
		return Session{}, fmt.Errorf("could not get next session sequence: %w", err)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	session := Session{
		ID:        sessionID,
		GaugeSeq:  gauge.Seq,
		Seq:       seq,
		StartedAt: time.Now().UTC(),
	}
	value, err := jsonrs.Marshal(session)
	if err != nil {
		return Session{}, fmt.Errorf("could not marshal session: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(gauge.Seq, seq), value)
	})
	if err != nil {
		return Session{}, fmt.Errorf("could not store session: %w", err)
	}
	return session, nil
}

// RecordEvent appends an event to the given session.
func (r *Repository) RecordEvent(ctx context.Context, session Session, event Event) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	seq, err := r.eventSeq.Next()
	if err != nil {
		return fmt.Errorf("could not get next event sequence: %w", err)
	}
	value, err := jsonrs.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(session.GaugeSeq, session.Seq, seq), value)
	})
	if err != nil {
		return fmt.Errorf("could not store event: %w", err)
	}
	return nil
}

// FetchGaugeRollups returns all gauges ordered by creation.
func (r *Repository) FetchGaugeRollups(ctx context.Context) ([]Gauge, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	var gauges []Gauge
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("g:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var gauge Gauge
			if err := unmarshalItem(it.Item(), &gauge); err != nil {
				return err
			}
			gauges = append(gauges, gauge)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not fetch gauge rollups: %w", err)
	}
	return gauges, nil
}

// FetchSessions returns all sessions of the given gauge ordered by creation.
func (r *Repository) FetchSessions(ctx context.Context, gauge Gauge) ([]Session, error) {
	if err := r.ready(ctx); err != nil {
		return nil, err
	}
	var sessions []Session
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := sessionPrefix(gauge.Seq)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var session Session
			if err := unmarshalItem(it.Item(), &session); err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not fetch sessions of gauge %d: %w", gauge.Seq, err)
	}
	return sessions, nil
}

// EventCount returns the number of events recorded under the given session.
func (r *Repository) EventCount(ctx context.Context, session Session) (int, error) {
	if err := r.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := eventPrefix(session.GaugeSeq, session.Seq)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("could not count events of session %s: %w", session.ID, err)
	}
	return count, nil
}

// FetchEventBatch returns up to limit events of the given session, skipping
// the first offset events, together with a fetch spec identifying exactly the
// returned records.
func (r *Repository) FetchEventBatch(ctx context.Context, session Session, offset, limit int) ([]Event, FetchSpec, error) {
	if err := r.ready(ctx); err != nil {
		return nil, FetchSpec{}, err
	}
	var (
		events []Event
		spec   FetchSpec
	)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := eventPrefix(session.GaugeSeq, session.Seq)
		skipped := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(events) < limit; it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			var event Event
			if err := unmarshalItem(it.Item(), &event); err != nil {
				return err
			}
			events = append(events, event)
			spec.Keys = append(spec.Keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, FetchSpec{}, fmt.Errorf("could not fetch event batch of session %s: %w", session.ID, err)
	}
	return events, spec, nil
}

// DeleteEvents deletes exactly the event records identified by the spec.
func (r *Repository) DeleteEvents(ctx context.Context, spec FetchSpec) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range spec.Keys {
		if err := wb.Delete([]byte(key)); err != nil {
			return fmt.Errorf("could not delete event key %s in write batch: %w", key, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("could not flush event deletions: %w", err)
	}
	return nil
}

// DeleteSession deletes the session record.
func (r *Repository) DeleteSession(ctx context.Context, session Session) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(session.GaugeSeq, session.Seq))
	})
	if err != nil {
		return fmt.Errorf("could not delete session %s: %w", session.ID, err)
	}
	return nil
}

// DeleteGauge deletes the gauge rollup record.
func (r *Repository) DeleteGauge(ctx context.Context, gauge Gauge) error {
	if err := r.ready(ctx); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(gaugeKey(gauge.Seq))
	})
	if err != nil {
		return fmt.Errorf("could not delete gauge %s: %w", gauge.ID, err)
	}
	return nil
}

func (r *Repository) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.db.IsClosed() {
		return badger.ErrDBClosed
	}
	return nil
}

func gaugeKey(seq uint64) []byte {
	return fmt.Appendf(nil, "g:%020d", seq)
}

func sessionKey(gaugeSeq, seq uint64) []byte {
	return fmt.Appendf(nil, "s:%020d:%020d", gaugeSeq, seq)
}

func sessionPrefix(gaugeSeq uint64) []byte {
	return fmt.Appendf(nil, "s:%020d:", gaugeSeq)
}

func eventKey(gaugeSeq, sessionSeq, seq uint64) []byte {
	return fmt.Appendf(nil, "e:%020d:%020d:%020d", gaugeSeq, sessionSeq, seq)
}

func eventPrefix(gaugeSeq, sessionSeq uint64) []byte {
	return fmt.Appendf(nil, "e:%020d:%020d:", gaugeSeq, sessionSeq)
}

func unmarshalItem(item *badger.Item, v any) error {
	value, err := item.ValueCopy(nil)
	if err != nil {
		return fmt.Errorf("could not copy item value: %w", err)
	}
	if err := jsonrs.Unmarshal(value, v); err != nil {
		return fmt.Errorf("could not unmarshal item value: %w", err)
	}
	return nil
}

type blogger struct {
	logger.Logger
}

func (l blogger) Warningf(fmt string, args ...interface{}) {
	l.Warnf(fmt, args...)
}
