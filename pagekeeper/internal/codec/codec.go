// Package codec serialises the editable surface of a page into a
// snapshot and replays a snapshot onto a live page.
package codec

import (
	"time"

	"github.com/hazyhaar/offsite/pagekeeper/internal/dom"
	"github.com/hazyhaar/offsite/pagekeeper/internal/identity"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// DefaultAccentWidth is written when a captured accent has a color only.
const DefaultAccentWidth = "6px"

// Options controls what a snapshot captures.
type Options struct {
	// CaptureHTML stores each field's inner markup next to its text.
	CaptureHTML bool
	// CaptureSections lists the landmark sections whose full inner markup
	// is stored as a structural fallback.
	CaptureSections []snapshot.SectionID
	// AccentHostClass marks the entry element carrying the left-border
	// accent for the editables inside it. Default: time-slot.
	AccentHostClass string
}

// Codec is stateless apart from its options and may be shared.
type Codec struct {
	res  *identity.Resolver
	opts Options
}

// New creates a Codec.
func New(res *identity.Resolver, opts Options) *Codec {
	if opts.AccentHostClass == "" {
		opts.AccentHostClass = "time-slot"
	}
	return &Codec{res: res, opts: opts}
}

// Serialize captures every editable node of p in document order. A node
// whose markup cannot be rendered is left out rather than failing the
// whole capture. The result depends only on the document and now; the
// caller stamps the ID.
func (c *Codec) Serialize(p *dom.Page, now time.Time) *snapshot.Snapshot {
	snap := snapshot.New(now)

	for _, e := range c.res.Index(p.Root).Entries {
		f := snapshot.CapturedField{Text: dom.Text(e.Node), Ref: e.Ref}
		if c.opts.CaptureHTML {
			markup, err := dom.InnerHTML(e.Node)
			if err != nil {
				continue
			}
			f.HTML = markup
		}
		f.Style = c.captureStyle(e.Node)
		snap.Fields = append(snap.Fields, f)
	}

	if len(c.opts.CaptureSections) > 0 {
		landmarks := c.res.Landmarks(p.Root)
		for _, sec := range c.opts.CaptureSections {
			container, ok := landmarks[sec]
			if !ok {
				continue
			}
			markup, err := dom.InnerHTML(container)
			if err != nil {
				continue
			}
			if snap.SectionHTML == nil {
				snap.SectionHTML = make(map[snapshot.SectionID]string)
			}
			snap.SectionHTML[sec] = markup
		}
	}

	return snap
}
