package controller

import (
	"context"
	"fmt"

	"github.com/hazyhaar/offsite/pagekeeper/internal/notify"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// SaveResult describes one save cycle.
type SaveResult struct {
	Trigger     Trigger  `json:"trigger"`
	Deferred    bool     `json:"deferred,omitempty"`
	SnapshotID  string   `json:"snapshot_id,omitempty"`
	Fields      int      `json:"fields"`
	Bytes       int      `json:"bytes"`
	Key         string   `json:"key,omitempty"`
	HistoryKey  string   `json:"history_key,omitempty"`
	Evicted     []string `json:"evicted,omitempty"`
	BackupError string   `json:"backup_error,omitempty"`
	Coalesced   int      `json:"coalesced,omitempty"`
}

// save serialises the page and writes it through the keyring. Failures
// are logged, toasted and returned; the page stays dirty so the next
// trigger retries. Runs on the loop goroutine.
func (c *Controller) save(ctx context.Context, trig Trigger) (SaveResult, error) {
	res := SaveResult{Trigger: trig}
	if trig.automatic() && c.suspended {
		c.deb.reset()
		c.deferred.Add(1)
		c.logger.Debug("controller: save deferred", "trigger", trig)
		res.Deferred = true
		return res, nil
	}
	if n := c.deb.reset(); n > 1 {
		res.Coalesced = n
		c.coalesced.Add(int64(n - 1))
	}

	c.setState(Saving)
	defer c.setState(Idle)

	snap := c.codec.Serialize(c.page, c.now())
	snap.ID = snapshot.NewID()
	payload, err := snapshot.Marshal(snap)
	if err != nil {
		return res, c.saveFailed(ctx, trig, err)
	}
	wr, err := c.keyring.Write(ctx, payload)
	if err != nil {
		return res, c.saveFailed(ctx, trig, err)
	}

	c.dirty = false
	c.last = snap
	c.lastErr = nil
	c.saves.Add(1)

	res.SnapshotID = snap.ID
	res.Fields = len(snap.Fields)
	res.Bytes = len(payload)
	res.Key = c.keyring.Layout().Primary
	res.HistoryKey = wr.HistoryKey
	res.Evicted = wr.Evicted
	if wr.BackupErr != nil {
		res.BackupError = wr.BackupErr.Error()
	}

	c.logger.Info("controller: saved",
		"trigger", trig, "id", snap.ID, "fields", res.Fields, "bytes", res.Bytes, "coalesced", res.Coalesced)
	if trig == TriggerManual {
		c.notify(ctx, notify.LevelSuccess, "save", fmt.Sprintf("Saved %d fields", res.Fields))
	}
	if c.onSaved != nil {
		c.onSaved(ctx, snap, payload)
	}
	return res, nil
}

func (c *Controller) saveFailed(ctx context.Context, trig Trigger, err error) error {
	c.saveErrors.Add(1)
	c.lastErr = err
	c.logger.Error("controller: save failed", "trigger", trig, "error", err)
	c.notify(ctx, notify.LevelError, "save", "Save failed: "+err.Error())
	return fmt.Errorf("controller: save: %w", err)
}

// SaveNow forces an immediate save, ignoring the suspend guard.
func (c *Controller) SaveNow(ctx context.Context) (SaveResult, error) {
	var (
		res SaveResult
		err error
	)
	if derr := c.do(ctx, func(ctx context.Context) { res, err = c.save(ctx, TriggerManual) }); derr != nil {
		return res, derr
	}
	return res, err
}
