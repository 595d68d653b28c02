package identity

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/offsite/pagekeeper/internal/dom"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// Entry pairs a live editable node with its ref.
type Entry struct {
	Node *html.Node
	Ref  snapshot.NodeRef
}

// Index is the set of editable nodes of one document at one instant.
// It must be rebuilt after any structural change.
type Index struct {
	Entries []Entry
	pos     map[*html.Node]int
}

// Index enumerates editables under root and computes every ref in one
// pass. Ordinals count nodes sharing section, tag and class signature,
// so edits in another section never shift them.
func (r *Resolver) Index(root *html.Node) *Index {
	ix := &Index{pos: make(map[*html.Node]int)}
	counters := make(map[string]int)
	for _, n := range r.Editables(root) {
		sec, _ := r.Section(n)
		classes := r.Signature(n)
		ref := snapshot.NodeRef{Tag: n.Data, Classes: classes, Section: sec}
		key := groupKey(sec, n.Data, ref.Signature())
		ref.Ordinal = counters[key]
		counters[key]++

		ix.pos[n] = len(ix.Entries)
		ix.Entries = append(ix.Entries, Entry{Node: n, Ref: ref})
	}
	return ix
}

func groupKey(sec snapshot.SectionID, tag, sig string) string {
	return string(sec) + "\x00" + tag + "\x00" + sig
}

// Len returns the number of editable nodes.
func (ix *Index) Len() int { return len(ix.Entries) }

// RefOf returns the ref of an indexed node.
func (ix *Index) RefOf(n *html.Node) (snapshot.NodeRef, bool) {
	i, ok := ix.pos[n]
	if !ok {
		return snapshot.NodeRef{}, false
	}
	return ix.Entries[i].Ref, true
}

// candidates returns the entries sharing section, tag and signature with
// ref, ordered by ordinal.
func (ix *Index) candidates(ref snapshot.NodeRef) []Entry {
	sig := ref.Signature()
	var out []Entry
	for _, e := range ix.Entries {
		if e.Ref.Section == ref.Section && e.Ref.Tag == ref.Tag && e.Ref.Signature() == sig {
			out = append(out, e)
		}
	}
	return out
}

// loose returns the entries sharing section and tag with ref.
func (ix *Index) loose(ref snapshot.NodeRef) []Entry {
	var out []Entry
	for _, e := range ix.Entries {
		if e.Ref.Section == ref.Section && e.Ref.Tag == ref.Tag {
			out = append(out, e)
		}
	}
	return out
}

// Find resolves a single ref with the plain fallback cascade: exact
// ordinal, then first same-signature node, then first same-tag node in
// the section. It does not consider other refs; use Assign for a restore
// pass.
func (ix *Index) Find(ref snapshot.NodeRef) (*html.Node, Match) {
	cands := ix.candidates(ref)
	if ref.Ordinal >= 0 && ref.Ordinal < len(cands) {
		return cands[ref.Ordinal].Node, MatchExact
	}
	if len(cands) > 0 {
		return cands[0].Node, MatchRelaxed
	}
	if l := ix.loose(ref); len(l) > 0 {
		return l[0].Node, MatchLoose
	}
	return nil, MatchNone
}

// FindExact resolves a ref only when it addresses a node exactly.
func (ix *Index) FindExact(ref snapshot.NodeRef) *html.Node {
	cands := ix.candidates(ref)
	if ref.Ordinal >= 0 && ref.Ordinal < len(cands) {
		return cands[ref.Ordinal].Node
	}
	return nil
}

// text is the comparison key used by value anchoring.
func text(n *html.Node) string { return dom.Text(n) }
