package codec

import (
	"github.com/hazyhaar/offsite/pagekeeper/internal/dom"
	"github.com/hazyhaar/offsite/pagekeeper/internal/identity"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// Report summarises one Deserialize pass.
type Report struct {
	Fields           int                  `json:"fields"`
	Restored         int                  `json:"restored"`
	Unresolved       int                  `json:"unresolved"`
	UnresolvedRefs   []snapshot.NodeRef   `json:"unresolved_refs,omitempty"`
	StylesApplied    int                  `json:"styles_applied"`
	SectionsReplaced []snapshot.SectionID `json:"sections_replaced,omitempty"`
	SectionErrors    int                  `json:"section_errors,omitempty"`
	Matches          map[string]int       `json:"matches"`
}

// Deserialize replays snap onto p. Stored section markup replaces the
// matching landmark's children first; every field is then placed with
// identity.Assign and overwritten. Unresolved fields are counted, never
// fatal. Applying the same snapshot twice yields the same document.
func (c *Codec) Deserialize(p *dom.Page, snap *snapshot.Snapshot) Report {
	rep := Report{Fields: len(snap.Fields), Matches: make(map[string]int)}

	for _, sec := range snapshot.Landmarks {
		markup, ok := snap.SectionHTML[sec]
		if !ok {
			continue
		}
		// Recomputed per section: replacing an outer landmark swaps out any
		// landmark nested inside it.
		container, ok := c.res.Landmarks(p.Root)[sec]
		if !ok {
			continue
		}
		if err := dom.SetInnerHTML(container, markup); err != nil {
			rep.SectionErrors++
			continue
		}
		rep.SectionsReplaced = append(rep.SectionsReplaced, sec)
	}

	wants := make([]identity.Want, len(snap.Fields))
	for i, f := range snap.Fields {
		wants[i] = identity.Want{Ref: f.Ref, Text: f.Text}
	}
	assigned := c.res.Index(p.Root).Assign(wants)

	for i, a := range assigned {
		f := snap.Fields[i]
		rep.Matches[a.Match.String()]++
		if a.Node == nil {
			rep.Unresolved++
			rep.UnresolvedRefs = append(rep.UnresolvedRefs, f.Ref)
			continue
		}
		if f.HTML != "" {
			if current, err := dom.InnerHTML(a.Node); err != nil || current != f.HTML {
				if err := dom.SetInnerHTML(a.Node, f.HTML); err != nil {
					dom.SetText(a.Node, f.Text)
				}
			}
		} else if dom.Text(a.Node) != f.Text {
			dom.SetText(a.Node, f.Text)
		}
		if c.applyStyle(a.Node, f.Style) {
			rep.StylesApplied++
		}
		rep.Restored++
	}

	return rep
}
