// Package pagekeeper keeps the user-edited content of a static HTML page
// across reloads. Editable nodes are captured by value and by positional
// descriptor into a JSON snapshot, written to a string-keyed store with a
// rotating backup, and replayed onto a freshly parsed page.
//
// The live document is owned by a single controller goroutine. The UI
// layer reaches it through Dispatch (input, focus-out, Enter, unload),
// the manual operations SaveNow, LoadAll and RunDiagnostics, and the
// HTTP routes and MCP tools built on them.
package pagekeeper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/net/html"

	"github.com/hazyhaar/offsite/pagekeeper/internal/codec"
	"github.com/hazyhaar/offsite/pagekeeper/internal/controller"
	"github.com/hazyhaar/offsite/pagekeeper/internal/dom"
	"github.com/hazyhaar/offsite/pagekeeper/internal/identity"
	"github.com/hazyhaar/offsite/pagekeeper/internal/notify"
	"github.com/hazyhaar/offsite/pagekeeper/internal/store"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

type (
	SaveResult    = controller.SaveResult
	RestoreResult = controller.RestoreResult
	Diagnostics   = controller.Diagnostics
	Field         = controller.Field
	Event         = controller.Event
	Edit          = controller.Edit
	Trigger       = controller.Trigger
	State         = controller.State
	Stats         = controller.Stats
	Report        = codec.Report
)

const (
	TriggerInput    = controller.TriggerInput
	TriggerFocusOut = controller.TriggerFocusOut
	TriggerEnter    = controller.TriggerEnter
	TriggerUnload   = controller.TriggerUnload
	TriggerManual   = controller.TriggerManual
)

var (
	// ErrNoSnapshot is returned by LoadAll when every restore candidate is
	// missing or unparseable.
	ErrNoSnapshot   = controller.ErrNoSnapshot
	ErrUnknownField = controller.ErrUnknownField
	ErrStopped      = controller.ErrStopped
	ErrNotStarted   = controller.ErrNotStarted
)

// Option configures a Keeper.
type Option func(*Keeper)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(k *Keeper) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithStore uses s instead of opening the configured backend. The caller
// keeps ownership: Stop does not close it.
func WithStore(s Store) Option {
	return func(k *Keeper) { k.store = s }
}

// WithSinks adds toast sinks next to the configured ones.
func WithSinks(sinks ...Sink) Option {
	return func(k *Keeper) { k.extraSinks = append(k.extraSinks, sinks...) }
}

// WithStdout sets where stdout sinks write. Default: os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(k *Keeper) { k.stdout = w }
}

// Keeper is the persistence controller for one page session.
type Keeper struct {
	cfg        *Config
	logger     *slog.Logger
	store      Store
	ownStore   bool
	keyring    *store.Keyring
	toasts     *notify.Toasts
	router     *notify.Router
	extraSinks []Sink
	stdout     io.Writer
	ctrl       *controller.Controller
	shared     *sharedSync

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New parses page and wires the controller, the store and the sinks from
// cfg. Nothing runs until Start.
func New(ctx context.Context, cfg *Config, page []byte, opts ...Option) (*Keeper, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	k := &Keeper{cfg: cfg, logger: slog.Default(), stdout: os.Stdout}
	for _, o := range opts {
		o(k)
	}

	doc, err := dom.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("pagekeeper: %w", err)
	}
	resOpts, err := resolverOptions(cfg.Page)
	if err != nil {
		return nil, err
	}
	capture, err := parseSections(cfg.Save.CaptureSections)
	if err != nil {
		return nil, err
	}
	res := identity.New(resOpts)
	cdc := codec.New(res, codec.Options{
		CaptureHTML:     cfg.Save.CaptureHTML,
		CaptureSections: capture,
		AccentHostClass: cfg.Page.AccentHostClass,
	})

	sinks, err := sinksFromConfig(cfg.Notify.Sinks, k.stdout, k.logger)
	if err != nil {
		return nil, err
	}
	k.toasts = notify.NewToasts(cfg.Notify.ToastTTL)
	k.router = notify.NewRouter(k.logger, append(append([]Sink{k.toasts}, sinks...), k.extraSinks...)...)

	if k.store == nil {
		if k.store, err = OpenStore(ctx, cfg.Storage); err != nil {
			k.router.Close()
			return nil, err
		}
		k.ownStore = true
	}
	k.keyring = store.NewKeyring(k.store, layoutFromConfig(cfg.Storage), k.logger)

	ccfg := controller.Config{
		Page:     doc,
		Resolver: res,
		Codec:    cdc,
		Keyring:  k.keyring,
		Notifier: k.router,
		Debounce: cfg.Save.Debounce,
		Interval: cfg.Save.Interval,
		Logger:   k.logger,
	}
	if cfg.Shared.Enabled {
		k.shared = newSharedSync(k, cfg.Shared)
		ccfg.OnSaved = k.shared.publish
	}
	if k.ctrl, err = controller.New(ccfg); err != nil {
		k.router.Close()
		k.closeStore()
		return nil, err
	}
	return k, nil
}

// Open loads the page named by cfg.Page.Path and calls New.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Keeper, error) {
	page, err := os.ReadFile(cfg.Page.Path)
	if err != nil {
		return nil, fmt.Errorf("pagekeeper: read page: %w", err)
	}
	return New(ctx, cfg, page, opts...)
}

func resolverOptions(pc PageConfig) (identity.Options, error) {
	opts := identity.Options{
		EditableAttr:  pc.EditableAttr,
		EditableValue: pc.EditableValue,
		IgnoreClasses: pc.IgnoreClasses,
	}
	if len(pc.Sections) > 0 {
		opts.SectionClasses = make(map[snapshot.SectionID][]string, len(pc.Sections))
	}
	for name, classes := range pc.Sections {
		sec, err := snapshot.ParseSection(name)
		if err != nil {
			return opts, fmt.Errorf("pagekeeper: page.sections: %w", err)
		}
		opts.SectionClasses[sec] = classes
	}
	return opts, nil
}

func parseSections(names []string) ([]snapshot.SectionID, error) {
	var out []snapshot.SectionID
	for _, name := range names {
		sec, err := snapshot.ParseSection(name)
		if err != nil {
			return nil, fmt.Errorf("pagekeeper: save.capture_sections: %w", err)
		}
		out = append(out, sec)
	}
	return out, nil
}

// Start restores the most recent readable snapshot and starts the
// controller, and the shared-key watcher when enabled.
func (k *Keeper) Start(ctx context.Context) (RestoreResult, error) {
	res, err := k.ctrl.Start(ctx)
	if err != nil {
		return res, fmt.Errorf("pagekeeper: start: %w", err)
	}
	if k.shared != nil {
		wctx, cancel := context.WithCancel(context.Background())
		k.cancel = cancel
		k.wg.Add(1)
		go func() {
			defer k.wg.Done()
			k.shared.run(wctx)
		}()
	}
	k.logger.Info("pagekeeper: started",
		"backend", k.cfg.Storage.Backend, "restored_from", res.Key, "fields", res.Report.Restored)
	return res, nil
}

// Stop runs the final unload save, stops the watcher and releases the
// store if the Keeper opened it.
func (k *Keeper) Stop(ctx context.Context) error {
	err := k.ctrl.Stop(ctx)
	k.release()
	return err
}

// Close is Stop without the unload save, for read-only sessions.
func (k *Keeper) Close() error {
	err := k.ctrl.Discard()
	k.release()
	return err
}

func (k *Keeper) release() {
	if k.cancel != nil {
		k.cancel()
	}
	k.wg.Wait()
	k.router.Close()
	k.closeStore()
}

func (k *Keeper) closeStore() {
	if k.ownStore && k.store != nil {
		if err := k.store.Close(); err != nil {
			k.logger.Warn("pagekeeper: close store", "error", err)
		}
		k.ownStore = false
	}
}

// SaveNow forces an immediate save.
func (k *Keeper) SaveNow(ctx context.Context) (SaveResult, error) {
	return k.ctrl.SaveNow(ctx)
}

// LoadAll re-runs the restore pass on demand.
func (k *Keeper) LoadAll(ctx context.Context) (RestoreResult, error) {
	return k.ctrl.LoadAll(ctx)
}

// RunDiagnostics counts editables, saves and verifies the write.
func (k *Keeper) RunDiagnostics(ctx context.Context) (Diagnostics, error) {
	return k.ctrl.RunDiagnostics(ctx)
}

// Dispatch applies a UI event.
func (k *Keeper) Dispatch(ctx context.Context, ev Event) error {
	return k.ctrl.Dispatch(ctx, ev)
}

// Edit sets the text of the field at ref as an input event.
func (k *Keeper) Edit(ctx context.Context, ref snapshot.NodeRef, text string) error {
	return k.ctrl.Dispatch(ctx, Event{Kind: TriggerInput, Edit: &Edit{Ref: ref, Text: text}})
}

// SetAccent paints the left-border accent of the entry hosting ref.
func (k *Keeper) SetAccent(ctx context.Context, ref snapshot.NodeRef, color string) (SaveResult, error) {
	return k.ctrl.SetAccent(ctx, ref, color)
}

// Mutate runs fn against the live document root on the controller
// goroutine. fn must not retain nodes.
func (k *Keeper) Mutate(ctx context.Context, fn func(root *html.Node) error) error {
	return k.ctrl.Mutate(ctx, func(p *dom.Page) error { return fn(p.Root) })
}

// Suspend defers automatic saves until Resume.
func (k *Keeper) Suspend(ctx context.Context) error { return k.ctrl.Suspend(ctx) }

// Resume lifts the guard and saves pending changes.
func (k *Keeper) Resume(ctx context.Context) (SaveResult, error) { return k.ctrl.Resume(ctx) }

// Fields lists the editable fields of the live document.
func (k *Keeper) Fields(ctx context.Context) ([]Field, error) { return k.ctrl.Fields(ctx) }

// Render returns the live document as HTML.
func (k *Keeper) Render(ctx context.Context) ([]byte, error) { return k.ctrl.Render(ctx) }

// CurrentSnapshot serialises the live document without writing it.
func (k *Keeper) CurrentSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	return k.ctrl.Snapshot(ctx)
}

// LastSaved returns the snapshot last written or restored, or nil.
func (k *Keeper) LastSaved(ctx context.Context) (*snapshot.Snapshot, error) {
	return k.ctrl.LastSaved(ctx)
}

// Notices returns the toasts that have not yet auto-dismissed.
func (k *Keeper) Notices() []Notice { return k.toasts.Active() }

// Config returns the configuration the Keeper was built from.
func (k *Keeper) Config() *Config { return k.cfg }

// State returns the controller state.
func (k *Keeper) State() State { return k.ctrl.State() }

// Stats returns the controller counters.
func (k *Keeper) Stats() Stats { return k.ctrl.Stats() }
