package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Layout names the keys snapshots are written under.
type Layout struct {
	Primary       string
	Backup        string
	HistoryPrefix string
	// Retention bounds the timestamped history; oldest keys go first.
	Retention int
}

// DefaultLayout returns the keys used by the original page script.
func DefaultLayout() Layout {
	return Layout{
		Primary:       "offsite-data",
		Backup:        "offsite-data-backup",
		HistoryPrefix: "offsite-data-history-",
		Retention:     5,
	}
}

// WriteResult reports the best-effort part of a Write.
type WriteResult struct {
	HistoryKey string
	Evicted    []string
	// BackupErr joins failures of the backup, history and eviction writes.
	// They never fail the Write.
	BackupErr error
}

// Keyring writes a payload to the primary key, mirrors it to the backup
// key and appends it to a bounded timestamped history.
type Keyring struct {
	store  Store
	layout Layout
	logger *slog.Logger
	now    func() time.Time
}

// NewKeyring creates a Keyring over s. A nil logger uses slog.Default().
func NewKeyring(s Store, layout Layout, logger *slog.Logger) *Keyring {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultLayout()
	if layout.Primary == "" {
		layout.Primary = def.Primary
	}
	if layout.Backup == "" {
		layout.Backup = def.Backup
	}
	if layout.HistoryPrefix == "" {
		layout.HistoryPrefix = def.HistoryPrefix
	}
	if layout.Retention <= 0 {
		layout.Retention = def.Retention
	}
	return &Keyring{store: s, layout: layout, logger: logger, now: time.Now}
}

// Store returns the underlying store.
func (k *Keyring) Store() Store { return k.store }

// Layout returns the effective key layout.
func (k *Keyring) Layout() Layout { return k.layout }

// HistoryKey returns the history key for t. Millisecond stamps are
// zero-padded so that byte order is time order.
func (k *Keyring) HistoryKey(t time.Time) string {
	return fmt.Sprintf("%s%013d", k.layout.HistoryPrefix, t.UnixMilli())
}

// Write stores payload under the primary key in a single Set. Only that
// Set decides the returned error; the backup mirror, the history entry and
// the eviction of old history are attempted afterwards and reported in
// WriteResult.
func (k *Keyring) Write(ctx context.Context, payload []byte) (WriteResult, error) {
	var res WriteResult
	if err := k.store.Set(ctx, k.layout.Primary, payload); err != nil {
		return res, fmt.Errorf("store: write primary %s: %w", k.layout.Primary, err)
	}

	var errs []error
	if err := k.store.Set(ctx, k.layout.Backup, payload); err != nil {
		errs = append(errs, fmt.Errorf("backup %s: %w", k.layout.Backup, err))
	}
	res.HistoryKey = k.HistoryKey(k.now())
	if err := k.store.Set(ctx, res.HistoryKey, payload); err != nil {
		errs = append(errs, fmt.Errorf("history %s: %w", res.HistoryKey, err))
		res.HistoryKey = ""
	}
	evicted, err := k.Prune(ctx)
	res.Evicted = evicted
	if err != nil {
		errs = append(errs, err)
	}

	res.BackupErr = errors.Join(errs...)
	if res.BackupErr != nil {
		k.logger.Warn("store: backup write failed", "error", res.BackupErr)
	}
	return res, nil
}

// History lists the timestamped keys, oldest first.
func (k *Keyring) History(ctx context.Context) ([]string, error) {
	keys, err := k.store.Keys(ctx, k.layout.HistoryPrefix)
	if err != nil {
		return nil, fmt.Errorf("store: list history: %w", err)
	}
	out := keys[:0]
	for _, key := range keys {
		if _, err := strconv.ParseInt(strings.TrimPrefix(key, k.layout.HistoryPrefix), 10, 64); err == nil {
			out = append(out, key)
		}
	}
	return out, nil
}

// Prune deletes the oldest history keys beyond the retention count.
func (k *Keyring) Prune(ctx context.Context) ([]string, error) {
	keys, err := k.History(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) <= k.layout.Retention {
		return nil, nil
	}
	var evicted []string
	for _, key := range keys[:len(keys)-k.layout.Retention] {
		if err := k.store.Delete(ctx, key); err != nil {
			return evicted, fmt.Errorf("store: evict %s: %w", key, err)
		}
		evicted = append(evicted, key)
	}
	return evicted, nil
}

// Candidates returns the keys a restore tries, in order: primary, backup,
// then the history from oldest to newest. Oldest first is intended: when
// both fixed keys are unusable, restore returns the earliest retained
// snapshot. A failing history listing still yields the two fixed keys.
func (k *Keyring) Candidates(ctx context.Context) []string {
	out := []string{k.layout.Primary, k.layout.Backup}
	hist, err := k.History(ctx)
	if err != nil {
		k.logger.Warn("store: history unavailable for restore", "error", err)
		return out
	}
	return append(out, hist...)
}

// Read returns the value stored under key.
func (k *Keyring) Read(ctx context.Context, key string) ([]byte, error) {
	return k.store.Get(ctx, key)
}
