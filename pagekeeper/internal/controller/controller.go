// Package controller decides when the page is serialised and restored. A
// single goroutine owns the document; every operation is queued onto it,
// so events are processed one at a time in arrival order.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/offsite/pagekeeper/internal/codec"
	"github.com/hazyhaar/offsite/pagekeeper/internal/dom"
	"github.com/hazyhaar/offsite/pagekeeper/internal/identity"
	"github.com/hazyhaar/offsite/pagekeeper/internal/notify"
	"github.com/hazyhaar/offsite/pagekeeper/internal/store"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

var (
	ErrStopped      = errors.New("controller: stopped")
	ErrNotStarted   = errors.New("controller: not started")
	ErrStarted      = errors.New("controller: already started")
	ErrNoSnapshot   = errors.New("controller: no readable snapshot")
	ErrUnknownField = errors.New("controller: no editable field at ref")
)

// SavedFunc runs on the controller goroutine after each successful save.
type SavedFunc func(ctx context.Context, snap *snapshot.Snapshot, payload []byte)

// Config for creating a Controller.
type Config struct {
	Page     *dom.Page
	Resolver *identity.Resolver
	Codec    *codec.Codec
	Keyring  *store.Keyring
	// Notifier receives toasts. Nil disables them.
	Notifier notify.Sink
	// Debounce is the quiet period after the last input event. Default: 1s.
	Debounce time.Duration
	// Interval is the periodic save tick; it only saves when dirty. <= 0
	// disables it.
	Interval time.Duration
	OnSaved  SavedFunc
	Logger   *slog.Logger
	Now      func() time.Time
}

// Controller is the persistence state machine for one page session.
type Controller struct {
	page     *dom.Page
	res      *identity.Resolver
	codec    *codec.Codec
	keyring  *store.Keyring
	notifier notify.Sink
	interval time.Duration
	onSaved  SavedFunc
	logger   *slog.Logger
	now      func() time.Time

	calls    chan call
	state    atomic.Int32
	started  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	// Owned by the loop goroutine.
	deb         *debouncer
	dirty       bool
	suspended   bool
	last        *snapshot.Snapshot
	lastRestore *RestoreResult
	lastErr     error

	saves      atomic.Int64
	saveErrors atomic.Int64
	restores   atomic.Int64
	events     atomic.Int64
	deferred   atomic.Int64
	coalesced  atomic.Int64
}

type call struct {
	ctx  context.Context
	fn   func(context.Context)
	done chan struct{}
}

// New creates a Controller. Page, Resolver, Codec and Keyring are
// required.
func New(cfg Config) (*Controller, error) {
	if cfg.Page == nil || cfg.Resolver == nil || cfg.Codec == nil || cfg.Keyring == nil {
		return nil, errors.New("controller: page, resolver, codec and keyring are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		page:     cfg.Page,
		res:      cfg.Resolver,
		codec:    cfg.Codec,
		keyring:  cfg.Keyring,
		notifier: cfg.Notifier,
		interval: cfg.Interval,
		onSaved:  cfg.OnSaved,
		logger:   cfg.Logger,
		now:      cfg.Now,
		calls:    make(chan call),
		done:     make(chan struct{}),
		deb:      newDebouncer(cfg.Debounce),
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

func (c *Controller) setState(s State) { c.state.Store(int32(s)) }

// Start restores the most recent readable snapshot and starts the event
// loop. Finding nothing to restore is not an error: the result has
// Found == false and the page keeps its markup defaults.
func (c *Controller) Start(ctx context.Context) (RestoreResult, error) {
	if !c.started.CompareAndSwap(false, true) {
		return RestoreResult{}, ErrStarted
	}
	res, err := c.restore(ctx)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		c.logger.Warn("controller: initial restore failed", "error", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.loop(loopCtx)
	return res, nil
}

// Stop runs the final unload save and ends the loop. Later calls return
// nil.
func (c *Controller) Stop(ctx context.Context) error {
	if !c.started.Load() {
		return ErrNotStarted
	}
	var err error
	c.stopOnce.Do(func() {
		derr := c.do(ctx, func(ctx context.Context) {
			_, err = c.save(ctx, TriggerUnload)
		})
		if derr != nil {
			err = derr
		}
		c.cancel()
		<-c.done
	})
	return err
}

// Discard ends the loop without the unload save. Pending edits are lost.
func (c *Controller) Discard() error {
	if !c.started.Load() {
		return ErrNotStarted
	}
	c.stopOnce.Do(func() {
		c.cancel()
		<-c.done
	})
	return nil
}

// do runs fn on the loop goroutine and waits for it. Once queued, fn
// always runs to completion.
func (c *Controller) do(ctx context.Context, fn func(context.Context)) error {
	if !c.started.Load() {
		return ErrNotStarted
	}
	cl := call{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case c.calls <- cl:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cl.done
	return nil
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.done)

	var tick <-chan time.Time
	if c.interval > 0 {
		t := time.NewTicker(c.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			c.deb.reset()
			return

		case cl := <-c.calls:
			cl.fn(cl.ctx)
			close(cl.done)

		case <-c.deb.timerC():
			c.save(ctx, TriggerInput)

		case <-tick:
			if c.dirty {
				c.save(ctx, TriggerInterval)
			}
		}
	}
}

func (c *Controller) notify(ctx context.Context, level notify.Level, op, msg string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, notify.New(level, op, msg)); err != nil {
		c.logger.Warn("controller: notify failed", "op", op, "error", err)
	}
}
