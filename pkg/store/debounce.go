package store

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultDebounce is the quiet period before a scheduled write happens.
const DefaultDebounce = 800 * time.Millisecond

// Debouncer coalesces bursts of snapshot writes. Each Schedule replaces the
// pending snapshot of its key and restarts that key's timer; only the last
// snapshot of a burst is written. Saves of one key never overlap, and each
// save takes the newest pending snapshot, so a slow older write cannot land
// after a newer one.
type Debouncer struct {
	store  Store
	delay  time.Duration
	logger *log.Logger

	mu      sync.Mutex
	pending map[string][]byte
	timers  map[string]*time.Timer
	locks   map[string]*sync.Mutex
	closed  bool
	// timers started and not yet finished or stopped
	inflight sync.WaitGroup
	// onError receives failed background writes; the default logs them.
	onError func(key string, err error)
}

// DebouncerOption configures a Debouncer.
type DebouncerOption func(*Debouncer)

// WithDelay sets the quiet period.
func WithDelay(d time.Duration) DebouncerOption {
	return func(db *Debouncer) { db.delay = d }
}

// WithLogger sets the logger for write failures.
func WithLogger(l *log.Logger) DebouncerOption {
	return func(db *Debouncer) { db.logger = l }
}

// WithErrorHandler replaces the default logging of failed writes.
func WithErrorHandler(fn func(key string, err error)) DebouncerOption {
	return func(db *Debouncer) { db.onError = fn }
}

// NewDebouncer wraps st.
func NewDebouncer(st Store, opts ...DebouncerOption) *Debouncer {
	db := &Debouncer{
		store:   st,
		delay:   DefaultDebounce,
		pending: make(map[string][]byte),
		timers:  make(map[string]*time.Timer),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if db.onError == nil {
		db.onError = func(key string, err error) {
			db.logger.Error("save failed", "key", key, "err", err)
		}
	}
	return db
}

// Schedule queues data to be written under key after the quiet period.
// It is a no-op after Close.
func (db *Debouncer) Schedule(key string, data []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return
	}

	db.pending[key] = bytes.Clone(data)
	if t, ok := db.timers[key]; ok && t.Stop() {
		db.inflight.Done()
	}
	db.inflight.Add(1)
	db.timers[key] = time.AfterFunc(db.delay, func() {
		defer db.inflight.Done()
		if err := db.save(context.Background(), key); err != nil {
			db.onError(key, err)
		}
	})
}

// Pending reports whether a write for key is waiting.
func (db *Debouncer) Pending(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.pending[key]
	return ok
}

func (db *Debouncer) keyLock(key string) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()
	l, ok := db.locks[key]
	if !ok {
		l = new(sync.Mutex)
		db.locks[key] = l
	}
	return l
}

// save writes the newest pending snapshot of key, if any. The key lock is
// held through Save so writes of one key are applied in schedule order.
func (db *Debouncer) save(ctx context.Context, key string) error {
	l := db.keyLock(key)
	l.Lock()
	defer l.Unlock()

	db.mu.Lock()
	data, ok := db.pending[key]
	delete(db.pending, key)
	db.mu.Unlock()
	if !ok {
		return nil
	}

	if err := db.store.Save(ctx, key, data); err != nil {
		return err
	}
	db.logger.Debug("saved snapshot", "key", key, "bytes", len(data))
	return nil
}

// Flush writes every pending snapshot now. A write already running for a
// key finishes before that key's newer snapshot is written.
func (db *Debouncer) Flush(ctx context.Context) error {
	db.mu.Lock()
	for key, t := range db.timers {
		if t.Stop() {
			db.inflight.Done()
		}
		delete(db.timers, key)
	}
	keys := make([]string, 0, len(db.pending))
	for key := range db.pending {
		keys = append(keys, key)
	}
	db.mu.Unlock()

	var firstErr error
	for _, key := range keys {
		if err := db.save(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close flushes pending writes, waits for background writes to finish and
// rejects further schedules. The underlying store stays open, and it is
// safe to close it once Close returns.
func (db *Debouncer) Close(ctx context.Context) error {
	db.mu.Lock()
	db.closed = true
	db.mu.Unlock()
	err := db.Flush(ctx)
	db.inflight.Wait()
	return err
}
