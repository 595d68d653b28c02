package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/offsite/pagekeeper/internal/notify"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// Diagnostics is the outcome of RunDiagnostics.
type Diagnostics struct {
	OK         bool           `json:"ok"`
	CheckedAt  time.Time      `json:"checked_at"`
	State      string         `json:"state"`
	Editables  int            `json:"editables"`
	Save       SaveResult     `json:"save"`
	RoundTrip  bool           `json:"round_trip"`
	Error      string         `json:"error,omitempty"`
	Dirty      bool           `json:"dirty"`
	Suspended  bool           `json:"suspended"`
	Unresolved int            `json:"unresolved"`
	Restore    *RestoreResult `json:"last_restore,omitempty"`
	Stats      Stats          `json:"stats"`
}

// RunDiagnostics counts the editable nodes, saves, and reads the primary
// key back to check that it parses to the snapshot just written.
func (c *Controller) RunDiagnostics(ctx context.Context) (Diagnostics, error) {
	var d Diagnostics
	err := c.do(ctx, func(ctx context.Context) {
		d = c.diagnose(ctx)
		if d.OK {
			c.notify(ctx, notify.LevelSuccess, "diagnostics",
				fmt.Sprintf("Diagnostics passed: %d editable fields", d.Editables))
		} else {
			c.notify(ctx, notify.LevelError, "diagnostics", "Diagnostics failed: "+d.Error)
		}
	})
	return d, err
}

func (c *Controller) diagnose(ctx context.Context) (d Diagnostics) {
	d = Diagnostics{
		CheckedAt: c.now().UTC(),
		Editables: len(c.res.Editables(c.page.Root)),
		Suspended: c.suspended,
	}
	if c.lastRestore != nil {
		r := *c.lastRestore
		d.Restore = &r
		d.Unresolved = r.Report.Unresolved
	}
	defer func() {
		d.State = c.State().String()
		d.Dirty = c.dirty
		d.Stats = c.Stats()
	}()

	res, err := c.save(ctx, TriggerDiagnostics)
	d.Save = res
	if err != nil {
		d.Error = err.Error()
		return d
	}

	data, err := c.keyring.Read(ctx, res.Key)
	if err != nil {
		d.Error = fmt.Sprintf("read back %s: %v", res.Key, err)
		return d
	}
	if len(data) == 0 {
		d.Error = "read back: empty value"
		return d
	}
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		d.Error = fmt.Sprintf("read back: %v", err)
		return d
	}
	if snap.ID != res.SnapshotID || len(snap.Fields) != res.Fields {
		d.Error = fmt.Sprintf("read back: got snapshot %s with %d fields, wrote %s with %d",
			snap.ID, len(snap.Fields), res.SnapshotID, res.Fields)
		return d
	}
	d.RoundTrip = true
	d.OK = true
	return d
}
