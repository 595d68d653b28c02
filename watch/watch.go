// Package watch runs a "poll, detect change, debounce, act" loop over any
// source that can report a version token.
//
// Typical usage:
//
//	w := watch.New(watch.Options{Interval: 2*time.Second, Debounce: 250*time.Millisecond,
//		Detector: watch.ValueDetector(read)})
//	go w.OnChange(ctx, reload)
package watch

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync/atomic"
	"time"
)

// ChangeDetector reads a version token. Two calls returning different
// values mean "something changed".
type ChangeDetector func(ctx context.Context) (int64, error)

// Options tunes the watcher behaviour.
type Options struct {
	// Interval is the polling frequency. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change is detected before the
	// action fires. A further change during the window restarts it. 0
	// fires immediately.
	Debounce time.Duration
	// Detector is required.
	Detector ChangeDetector
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls a detector and runs an action on change. It is safe for
// concurrent use.
type Watcher struct {
	opts Options

	version atomic.Int64
	seeded  atomic.Bool

	checks  atomic.Int64
	changes atomic.Int64
	errors  atomic.Int64
	actions atomic.Int64
	actNs   atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks          int64         `json:"checks"`
	ChangesDetected int64         `json:"changes_detected"`
	Errors          int64         `json:"errors"`
	Actions         int64         `json:"actions"`
	AvgActionTime   time.Duration `json:"avg_action_time"`
}

// New creates a Watcher. Call OnChange to start the loop.
func New(opts Options) *Watcher {
	opts.defaults()
	return &Watcher{opts: opts}
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	s := Stats{
		Checks:          w.checks.Load(),
		ChangesDetected: w.changes.Load(),
		Errors:          w.errors.Load(),
		Actions:         w.actions.Load(),
	}
	if s.Actions > 0 {
		s.AvgActionTime = time.Duration(w.actNs.Load() / s.Actions)
	}
	return s
}

// Version returns the last version the action was run for (or the seed).
func (w *Watcher) Version() int64 { return w.version.Load() }

// Accept records v as already handled, so the loop does not fire for it.
// Writers that also watch their own output call it after each write.
func (w *Watcher) Accept(v int64) {
	w.version.Store(v)
	w.seeded.Store(true)
}

// OnChange blocks until ctx is cancelled, polling at opts.Interval. When
// the detector reports a new version and the debounce window passes
// without a further change, action runs. If action fails the version is
// not advanced and the next poll retries.
func (w *Watcher) OnChange(ctx context.Context, action func(ctx context.Context) error) error {
	if w.opts.Detector == nil {
		return errors.New("watch: no detector")
	}
	log := w.opts.Logger

	if v, err := w.opts.Detector(ctx); err != nil {
		log.Warn("watch: initial version check failed", "error", err)
	} else if !w.seeded.Load() {
		w.Accept(v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var (
		timer      *time.Timer
		timerC     <-chan time.Time
		pending    int64
		hasPending bool
	)

	log.Info("watch: started", "interval", w.opts.Interval, "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			log.Info("watch: stopped")
			return ctx.Err()

		case <-ticker.C:
			w.checks.Add(1)
			cur, err := w.opts.Detector(ctx)
			if err != nil {
				w.errors.Add(1)
				log.Warn("watch: version check failed", "error", err)
				continue
			}
			if cur == w.version.Load() || (hasPending && cur == pending) {
				if cur == w.version.Load() {
					hasPending = false
				}
				continue
			}
			w.changes.Add(1)
			pending, hasPending = cur, true
			if w.opts.Debounce <= 0 {
				w.fire(ctx, action, pending)
				hasPending = false
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.opts.Debounce)
			timerC = timer.C
			log.Debug("watch: change detected, debouncing", "pending_version", cur)

		case <-timerC:
			timerC = nil
			if hasPending {
				w.fire(ctx, action, pending)
				hasPending = false
			}
		}
	}
}

func (w *Watcher) fire(ctx context.Context, action func(context.Context) error, v int64) {
	start := time.Now()
	if err := action(ctx); err != nil {
		w.errors.Add(1)
		w.opts.Logger.Error("watch: action failed", "error", err, "version", v)
		return
	}
	elapsed := time.Since(start)
	w.actions.Add(1)
	w.actNs.Add(int64(elapsed))
	w.version.Store(v)
	w.opts.Logger.Debug("watch: action complete", "version", v, "duration", elapsed)
}

// ValueDetector versions a value by its FNV-1a hash. A read returning
// ErrAbsent (or a nil value) maps to version 0.
func ValueDetector(read func(ctx context.Context) ([]byte, error)) ChangeDetector {
	return func(ctx context.Context) (int64, error) {
		v, err := read(ctx)
		if errors.Is(err, ErrAbsent) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return Hash(v), nil
	}
}

// ErrAbsent is what a ValueDetector read returns for a missing value.
var ErrAbsent = errors.New("watch: value absent")

// Hash returns the version token ValueDetector assigns to v.
func Hash(v []byte) int64 {
	if v == nil {
		return 0
	}
	h := fnv.New64a()
	h.Write(v)
	return int64(h.Sum64())
}
