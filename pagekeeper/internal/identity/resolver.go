// Package identity maps editable DOM nodes to positional descriptors
// (snapshot.NodeRef) and back. Nodes have no identity across page loads,
// so a ref is only ever a best-effort address: tag, class signature,
// ordinal among same-signature editables, and enclosing landmark section.
package identity

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/offsite/pagekeeper/internal/dom"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// Options controls editability and section classification.
type Options struct {
	// EditableAttr marks a node as user-editable. Default: contenteditable.
	EditableAttr string
	// EditableValue is the attribute value meaning "editable". Default: true.
	EditableValue string
	// SectionClasses maps a landmark section to the class tokens that
	// identify its container. HEADER is always the <header> element.
	SectionClasses map[snapshot.SectionID][]string
	// IgnoreClasses are transient state classes left out of signatures.
	IgnoreClasses []string
}

// DefaultOptions returns the offsite page conventions.
func DefaultOptions() Options {
	return Options{
		EditableAttr:  "contenteditable",
		EditableValue: "true",
		SectionClasses: map[snapshot.SectionID][]string{
			snapshot.SectionWelcome:      {"welcome", "welcome-section"},
			snapshot.SectionAgenda:       {"agenda", "agenda-section"},
			snapshot.SectionParticipants: {"participants", "participants-section"},
			snapshot.SectionInfo:         {"info", "info-section"},
		},
		IgnoreClasses: []string{"editing", "dragging", "drag-over"},
	}
}

func (o *Options) defaults() {
	d := DefaultOptions()
	if o.EditableAttr == "" {
		o.EditableAttr = d.EditableAttr
	}
	if o.EditableValue == "" {
		o.EditableValue = d.EditableValue
	}
	if o.SectionClasses == nil {
		o.SectionClasses = d.SectionClasses
	}
}

// Resolver computes and resolves refs. It holds no document state and is
// safe for concurrent use.
type Resolver struct {
	opts       Options
	ignore     map[string]bool
	classIndex map[string]snapshot.SectionID
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	opts.defaults()
	r := &Resolver{
		opts:       opts,
		ignore:     make(map[string]bool, len(opts.IgnoreClasses)),
		classIndex: make(map[string]snapshot.SectionID),
	}
	for _, c := range opts.IgnoreClasses {
		r.ignore[c] = true
	}
	// Iterate in landmark order so a class listed under two sections
	// resolves deterministically to the first.
	for _, sec := range snapshot.Landmarks {
		for _, c := range opts.SectionClasses[sec] {
			if _, dup := r.classIndex[c]; !dup {
				r.classIndex[c] = sec
			}
		}
	}
	return r
}

// IsEditable reports whether n carries the editability marker.
func (r *Resolver) IsEditable(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || !dom.HasAttr(n, r.opts.EditableAttr) {
		return false
	}
	v := strings.TrimSpace(dom.Attr(n, r.opts.EditableAttr))
	if strings.EqualFold(v, r.opts.EditableValue) {
		return true
	}
	// <div contenteditable> is the same as contenteditable="true".
	return v == "" && strings.EqualFold(r.opts.EditableValue, "true")
}

// Editables returns every editable node under root in document order.
func (r *Resolver) Editables(root *html.Node) []*html.Node {
	return dom.FindAll(root, r.IsEditable)
}

// landmarkOf classifies a single element as a landmark container, or "".
func (r *Resolver) landmarkOf(n *html.Node) snapshot.SectionID {
	if n.DataAtom == atom.Header {
		return snapshot.SectionHeader
	}
	for _, c := range dom.Classes(n) {
		if sec, ok := r.classIndex[c]; ok {
			return sec
		}
	}
	return ""
}

// Section walks the ancestors of n and returns the nearest landmark and
// its container. Nodes outside any landmark are OTHER with a nil container.
func (r *Resolver) Section(n *html.Node) (snapshot.SectionID, *html.Node) {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if sec := r.landmarkOf(p); sec != "" {
			return sec, p
		}
	}
	return snapshot.SectionOther, nil
}

// Landmarks returns the first container of each landmark section under
// root, in document order.
func (r *Resolver) Landmarks(root *html.Node) map[snapshot.SectionID]*html.Node {
	out := make(map[snapshot.SectionID]*html.Node)
	dom.Walk(root, func(n *html.Node) bool {
		if sec := r.landmarkOf(n); sec != "" {
			if _, seen := out[sec]; !seen {
				out[sec] = n
			}
		}
		return true
	})
	return out
}

// Signature returns the sorted, de-duplicated class tokens of n minus the
// ignored state classes.
func (r *Resolver) Signature(n *html.Node) []string {
	var out []string
	for _, c := range dom.Classes(n) {
		if !r.ignore[c] {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Resolve computes the ref of a single editable node. It returns false
// when n is not editable. For many nodes, build an Index once instead.
func (r *Resolver) Resolve(n *html.Node) (snapshot.NodeRef, bool) {
	if !r.IsEditable(n) {
		return snapshot.NodeRef{}, false
	}
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	return r.Index(root).RefOf(n)
}
