package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/manas360/stepwise/internal/logging"
	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Recorder appends finalized records and answers history queries.
// It garbage collects per-patient locks with reference counting.
type Recorder struct {
	store ports.RecordStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	onSave  []func(*domain.FinalizedRecord)
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(r *Recorder) {
		r.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(r *Recorder) {
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Recorder.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithRecordedHook registers fn to run after every successful append.
func WithRecordedHook(fn func(*domain.FinalizedRecord)) Option {
	return func(r *Recorder) {
		r.onSave = append(r.onSave, fn)
	}
}

// New creates a Recorder over the given store.
func New(store ports.RecordStore, opts ...Option) *Recorder {
	r := &Recorder{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record validates and appends a record. The stored copy is independent of rec.
func (r *Recorder) Record(ctx context.Context, rec *domain.FinalizedRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	err := r.WithLock(ctx, lockKey(rec.PatientIdentifier), func(ctx context.Context) error {
		return r.store.Append(ctx, rec.Clone())
	})
	if err != nil {
		r.logger.Error("Failed to record session",
			"record_id", rec.ID,
			"template", rec.TemplateID,
			"err", err,
		)
		return fmt.Errorf("failed to record session %s: %w", rec.ID, err)
	}

	r.logger.Info("Session recorded",
		"record_id", rec.ID,
		"template", rec.TemplateID,
		"patient", rec.PatientIdentifier,
	)
	for _, fn := range r.onSave {
		fn(rec)
	}
	return nil
}

// History returns a patient's records, newest first. limit <= 0 means all.
func (r *Recorder) History(ctx context.Context, patientIdentifier string, limit int) ([]*domain.FinalizedRecord, error) {
	return r.store.List(ctx, ports.RecordFilter{PatientIdentifier: patientIdentifier, Limit: limit})
}

// List delegates to the store.
func (r *Recorder) List(ctx context.Context, filter ports.RecordFilter) ([]*domain.FinalizedRecord, error) {
	return r.store.List(ctx, filter)
}

// Get delegates to the store.
func (r *Recorder) Get(ctx context.Context, id string) (*domain.FinalizedRecord, error) {
	return r.store.Get(ctx, id)
}

// Delete removes a record while holding its patient's lock.
func (r *Recorder) Delete(ctx context.Context, id string) error {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return r.WithLock(ctx, lockKey(rec.PatientIdentifier), func(ctx context.Context) error {
		return r.store.Delete(ctx, id)
	})
}

// Store returns the underlying record store.
func (r *Recorder) Store() ports.RecordStore {
	return r.store
}

// WithLock executes fn while holding the lock for key.
func (r *Recorder) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := r.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		r.release(key)
	}()

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, key, r.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				r.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking.
func (r *Recorder) acquire(key string) *lockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.locks[key]
	if !exists {
		entry = &lockEntry{}
		r.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (r *Recorder) release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(r.locks, key)
	}
}

func lockKey(patientIdentifier string) string {
	return "patient:" + patientIdentifier
}

func validateRecord(rec *domain.FinalizedRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.Status != domain.StatusCompleted {
		return fmt.Errorf("record %s has status %q, want %q", rec.ID, rec.Status, domain.StatusCompleted)
	}
	if rec.Data == nil {
		return fmt.Errorf("record %s has no data", rec.ID)
	}
	return nil
}
