package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/offsite/pagekeeper/internal/codec"
	"github.com/hazyhaar/offsite/pagekeeper/internal/notify"
	"github.com/hazyhaar/offsite/pagekeeper/internal/store"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// Attempt is one restore candidate that could not be used.
type Attempt struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// RestoreResult describes one restore pass.
type RestoreResult struct {
	Found      bool         `json:"found"`
	Key        string       `json:"key,omitempty"`
	SnapshotID string       `json:"snapshot_id,omitempty"`
	CapturedAt time.Time    `json:"captured_at,omitempty"`
	Report     codec.Report `json:"report"`
	Skipped    []Attempt    `json:"skipped,omitempty"`
}

// restore tries the keyring candidates in order and applies the first
// snapshot that reads and parses. Missing or corrupt keys are skipped.
func (c *Controller) restore(ctx context.Context) (RestoreResult, error) {
	c.setState(Restoring)
	defer c.setState(Idle)

	var res RestoreResult
	// History comes oldest first; the first decodable snapshot wins.
	for _, key := range c.keyring.Candidates(ctx) {
		data, err := c.keyring.Read(ctx, key)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				c.logger.Warn("controller: read failed", "key", key, "error", err)
			}
			res.Skipped = append(res.Skipped, Attempt{Key: key, Error: err.Error()})
			continue
		}
		snap, err := snapshot.Unmarshal(data)
		if err != nil {
			c.logger.Warn("controller: unreadable snapshot", "key", key, "error", err)
			res.Skipped = append(res.Skipped, Attempt{Key: key, Error: err.Error()})
			continue
		}

		res.Found = true
		res.Key = key
		res.SnapshotID = snap.ID
		res.CapturedAt = snap.CapturedAt
		res.Report = c.apply(snap)
		c.restores.Add(1)
		c.lastRestore = &res

		c.logger.Info("controller: restored",
			"key", key, "id", snap.ID,
			"restored", res.Report.Restored, "unresolved", res.Report.Unresolved,
			"sections", len(res.Report.SectionsReplaced))
		return res, nil
	}

	c.logger.Info("controller: nothing to restore", "tried", len(res.Skipped))
	return res, ErrNoSnapshot
}

// apply replays snap and marks the page clean.
func (c *Controller) apply(snap *snapshot.Snapshot) codec.Report {
	rep := c.codec.Deserialize(c.page, snap)
	c.dirty = false
	c.deb.reset()
	c.last = snap
	return rep
}

// LoadAll runs a restore pass on demand and toasts its outcome.
func (c *Controller) LoadAll(ctx context.Context) (RestoreResult, error) {
	var (
		res RestoreResult
		err error
	)
	derr := c.do(ctx, func(ctx context.Context) {
		res, err = c.restore(ctx)
		switch {
		case err == nil:
			msg := fmt.Sprintf("Loaded %d fields", res.Report.Restored)
			if res.Report.Unresolved > 0 {
				msg += fmt.Sprintf(" (%d not found)", res.Report.Unresolved)
			}
			c.notify(ctx, notify.LevelSuccess, "load", msg)
		case errors.Is(err, ErrNoSnapshot):
			c.notify(ctx, notify.LevelError, "load", "No saved data found")
		}
	})
	if derr != nil {
		return res, derr
	}
	return res, err
}

// Apply replays a snapshot that did not come from the keyring, such as a
// peer's broadcast. Nothing is written.
func (c *Controller) Apply(ctx context.Context, snap *snapshot.Snapshot) (codec.Report, error) {
	var rep codec.Report
	err := c.do(ctx, func(context.Context) {
		rep = c.apply(snap)
		c.restores.Add(1)
	})
	return rep, err
}
