package pagekeeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/offsite/pagekeeper/internal/notify"
	"github.com/hazyhaar/offsite/pagekeeper/internal/store"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
	"github.com/hazyhaar/offsite/watch"
)

// sharedEnvelope is the value of the shared key. Origin lets an instance
// ignore its own broadcasts.
type sharedEnvelope struct {
	Origin   string          `json:"origin"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// sharedSync broadcasts every save to the shared key and applies the
// broadcasts of other instances. Last write wins; there is no merge.
type sharedSync struct {
	k      *Keeper
	key    string
	origin string
	w      *watch.Watcher
}

func newSharedSync(k *Keeper, cfg SharedConfig) *sharedSync {
	s := &sharedSync{k: k, key: cfg.Key, origin: snapshot.NewID()}
	s.w = watch.New(watch.Options{
		Interval: cfg.PollInterval,
		Debounce: cfg.Debounce,
		Detector: watch.ValueDetector(s.read),
		Logger:   k.logger,
	})
	return s
}

func (s *sharedSync) read(ctx context.Context) ([]byte, error) {
	v, err := s.k.store.Get(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, watch.ErrAbsent
	}
	return v, err
}

// publish runs on the controller goroutine after each save.
func (s *sharedSync) publish(ctx context.Context, _ *snapshot.Snapshot, payload []byte) {
	data, err := json.Marshal(sharedEnvelope{Origin: s.origin, Snapshot: payload})
	if err != nil {
		s.k.logger.Warn("pagekeeper: shared encode failed", "error", err)
		return
	}
	if err := s.k.store.Set(ctx, s.key, data); err != nil {
		s.k.logger.Warn("pagekeeper: shared write failed", "key", s.key, "error", err)
		return
	}
	s.w.Accept(watch.Hash(data))
}

func (s *sharedSync) run(ctx context.Context) {
	if err := s.w.OnChange(ctx, s.apply); err != nil && !errors.Is(err, context.Canceled) {
		s.k.logger.Error("pagekeeper: shared watcher stopped", "error", err)
	}
}

// apply restores the document from another instance's broadcast.
func (s *sharedSync) apply(ctx context.Context) error {
	data, err := s.k.store.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("pagekeeper: shared read: %w", err)
	}
	var env sharedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("pagekeeper: shared decode: %w", err)
	}
	if env.Origin == s.origin {
		return nil
	}
	snap, err := snapshot.Unmarshal(env.Snapshot)
	if err != nil {
		return fmt.Errorf("pagekeeper: shared snapshot: %w", err)
	}
	rep, err := s.k.ctrl.Apply(ctx, snap)
	if err != nil {
		return err
	}
	s.k.logger.Info("pagekeeper: applied shared snapshot",
		"origin", env.Origin, "id", snap.ID, "restored", rep.Restored, "unresolved", rep.Unresolved)
	s.k.router.Notify(ctx, notify.New(notify.LevelInfo, "shared", "Updated from another session"))
	return nil
}

// SharedStats returns the shared watcher counters, or zero when sharing is off.
func (k *Keeper) SharedStats() watch.Stats {
	if k.shared == nil {
		return watch.Stats{}
	}
	return k.shared.w.Stats()
}
