package controller

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/offsite/pagekeeper/internal/codec"
	"github.com/hazyhaar/offsite/pagekeeper/internal/dom"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// Dispatch applies a UI event. Input is debounced; focus-out, Enter and
// unload save at once. Only malformed events return an error: save
// failures are logged and toasted by the controller itself.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	var err error
	derr := c.do(ctx, func(ctx context.Context) {
		c.events.Add(1)
		switch ev.Kind {
		case TriggerInput, TriggerFocusOut, TriggerEnter, TriggerUnload:
		default:
			err = fmt.Errorf("controller: unsupported event %q", ev.Kind)
			return
		}
		if ev.Edit != nil {
			if err = c.edit(*ev.Edit, ev.Kind == TriggerEnter); err != nil {
				return
			}
		}
		if ev.Kind == TriggerInput {
			if !c.suspended {
				c.deb.touch()
			}
			return
		}
		c.save(ctx, ev.Kind)
	})
	if derr != nil {
		return derr
	}
	return err
}

// edit writes e into the live document and marks it dirty.
func (c *Controller) edit(e Edit, singleLine bool) error {
	n, err := c.locate(e.Ref)
	if err != nil {
		return err
	}
	if singleLine {
		e.Text = stripLineBreaks(e.Text)
		e.HTML = strings.NewReplacer("<br>", "", "<br/>", "", "<br />", "").Replace(stripLineBreaks(e.HTML))
	}
	if e.HTML != "" {
		if err := dom.SetInnerHTML(n, e.HTML); err != nil {
			return fmt.Errorf("controller: edit %s: %w", e.Ref, err)
		}
	} else {
		dom.SetText(n, e.Text)
	}
	c.dirty = true
	return nil
}

func (c *Controller) locate(ref snapshot.NodeRef) (*html.Node, error) {
	n := c.res.Index(c.page.Root).FindExact(ref)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, ref)
	}
	return n, nil
}

// Suspend defers automatic saves until Resume. Edits keep being applied
// and tracked; manual saves and the unload save still run.
func (c *Controller) Suspend(ctx context.Context) error {
	return c.do(ctx, func(context.Context) {
		c.suspended = true
		c.deb.reset()
	})
}

// Resume lifts the guard and saves if anything changed meanwhile.
func (c *Controller) Resume(ctx context.Context) (SaveResult, error) {
	var (
		res SaveResult
		err error
	)
	derr := c.do(ctx, func(ctx context.Context) {
		c.suspended = false
		if c.dirty {
			res, err = c.save(ctx, TriggerResume)
		}
	})
	if derr != nil {
		return res, derr
	}
	return res, err
}

// Mutate runs fn against the live document on the controller goroutine,
// for structural changes such as adding or removing a roster row. The
// change is saved after the debounce window.
func (c *Controller) Mutate(ctx context.Context, fn func(p *dom.Page) error) error {
	var err error
	derr := c.do(ctx, func(context.Context) {
		if err = fn(c.page); err != nil {
			return
		}
		c.dirty = true
		if !c.suspended {
			c.deb.touch()
		}
	})
	if derr != nil {
		return derr
	}
	return err
}

// SetAccent paints a left-border accent on the entry hosting the field at
// ref and saves at once.
func (c *Controller) SetAccent(ctx context.Context, ref snapshot.NodeRef, color string) (SaveResult, error) {
	var (
		res SaveResult
		err error
	)
	derr := c.do(ctx, func(ctx context.Context) {
		var n *html.Node
		if n, err = c.locate(ref); err != nil {
			return
		}
		codec.ApplyAccent(c.codec.AccentTarget(n), color, "")
		c.dirty = true
		res, err = c.save(ctx, TriggerFocusOut)
	})
	if derr != nil {
		return res, derr
	}
	return res, err
}

// Field is one editable node as the UI sees it.
type Field struct {
	Ref  snapshot.NodeRef `json:"ref"`
	ID   string           `json:"id"`
	Text string           `json:"text"`
}

// Fields lists the editable nodes in document order.
func (c *Controller) Fields(ctx context.Context) ([]Field, error) {
	var out []Field
	err := c.do(ctx, func(context.Context) {
		for _, e := range c.res.Index(c.page.Root).Entries {
			out = append(out, Field{Ref: e.Ref, ID: e.Ref.String(), Text: dom.Text(e.Node)})
		}
	})
	return out, err
}

// Render returns the live document as HTML.
func (c *Controller) Render(ctx context.Context) ([]byte, error) {
	var (
		out []byte
		err error
	)
	if derr := c.do(ctx, func(context.Context) { out, err = c.page.Render() }); derr != nil {
		return nil, derr
	}
	return out, err
}

// Snapshot serialises the live document without writing it.
func (c *Controller) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	var snap *snapshot.Snapshot
	err := c.do(ctx, func(context.Context) { snap = c.codec.Serialize(c.page, c.now()) })
	return snap, err
}

// LastSaved returns the last snapshot written or restored, or nil.
func (c *Controller) LastSaved(ctx context.Context) (*snapshot.Snapshot, error) {
	var snap *snapshot.Snapshot
	err := c.do(ctx, func(context.Context) { snap = c.last })
	return snap, err
}

// Stats are point-in-time counters.
type Stats struct {
	Saves      int64 `json:"saves"`
	SaveErrors int64 `json:"save_errors"`
	Restores   int64 `json:"restores"`
	Events     int64 `json:"events"`
	Deferred   int64 `json:"deferred"`
	Coalesced  int64 `json:"coalesced"`
}

// Stats returns the current counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Saves:      c.saves.Load(),
		SaveErrors: c.saveErrors.Load(),
		Restores:   c.restores.Load(),
		Events:     c.events.Load(),
		Deferred:   c.deferred.Load(),
		Coalesced:  c.coalesced.Load(),
	}
}
