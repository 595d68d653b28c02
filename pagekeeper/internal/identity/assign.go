package identity

import (
	"sort"

	"golang.org/x/net/html"

	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// Match says how a ref was resolved.
type Match int

const (
	MatchNone     Match = iota // unresolved; the caller skips the field
	MatchExact                 // same section, tag, signature and ordinal
	MatchAligned               // same signature, ordinal shifted by an added or removed row
	MatchRelaxed               // first free node with the same tag and signature
	MatchLoose                 // first free node with the same tag
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchAligned:
		return "aligned"
	case MatchRelaxed:
		return "relaxed"
	case MatchLoose:
		return "loose"
	default:
		return "none"
	}
}

// Want is one field to place: where it was, and what it said.
type Want struct {
	Ref  snapshot.NodeRef
	Text string
}

// Assignment is the outcome for one Want, index-aligned with the input.
type Assignment struct {
	Node  *html.Node
	Match Match
}

// Assign places every want onto a distinct live node. Each node is
// claimed at most once, so a field whose row disappeared stays unresolved
// instead of overwriting a surviving row.
//
// Wants are first placed per group of equal section, tag and signature.
// When the group has as many live nodes as wants, placement is purely
// positional: every want takes the node at its ordinal. When rows were
// added or removed the counts differ, and the wants are aligned in order
// against the live nodes; see align. Wants left over fall back to the
// first free same-signature node, then to the first free same-tag node in
// the section.
func (ix *Index) Assign(wants []Want) []Assignment {
	out := make([]Assignment, len(wants))
	claimed := make(map[*html.Node]bool)
	claim := func(i int, n *html.Node, m Match) {
		out[i] = Assignment{Node: n, Match: m}
		claimed[n] = true
	}

	var order []string
	groups := make(map[string][]int)
	for i, w := range wants {
		key := groupKey(w.Ref.Section, w.Ref.Tag, w.Ref.Signature())
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range order {
		idx := groups[key]
		cands := ix.candidates(wants[idx[0]].Ref)
		if len(cands) == 0 {
			continue
		}
		if len(idx) == len(cands) {
			for _, i := range idx {
				ord := wants[i].Ref.Ordinal
				if ord >= 0 && ord < len(cands) && !claimed[cands[ord].Node] {
					claim(i, cands[ord].Node, MatchExact)
				}
			}
			continue
		}

		sort.SliceStable(idx, func(a, b int) bool {
			return wants[idx[a]].Ref.Ordinal < wants[idx[b]].Ref.Ordinal
		})
		saved := make([]string, len(idx))
		ords := make([]int, len(idx))
		for k, i := range idx {
			saved[k] = wants[i].Text
			ords[k] = wants[i].Ref.Ordinal
		}
		live := make([]string, len(cands))
		for j, e := range cands {
			live[j] = text(e.Node)
		}
		for k, j := range align(saved, ords, live) {
			if j < 0 || claimed[cands[j].Node] {
				continue
			}
			i := idx[k]
			m := MatchAligned
			if cands[j].Ref.Ordinal == wants[i].Ref.Ordinal {
				m = MatchExact
			}
			claim(i, cands[j].Node, m)
		}
	}

	for i, w := range wants {
		if out[i].Node != nil {
			continue
		}
		for _, e := range ix.candidates(w.Ref) {
			if !claimed[e.Node] {
				claim(i, e.Node, MatchRelaxed)
				break
			}
		}
	}

	for i, w := range wants {
		if out[i].Node != nil {
			continue
		}
		for _, e := range ix.loose(w.Ref) {
			if !claimed[e.Node] {
				claim(i, e.Node, MatchLoose)
				break
			}
		}
	}

	return out
}

// align pairs saved[i] with live[pair[i]] in order, or -1. Only the longer
// sequence skips entries, so every entry of the shorter one is paired. The
// pairing keeps the most equal texts, then the most unchanged ordinals;
// among those, pairing is preferred over skipping, which pushes skips as
// late as possible. Live entry j has ordinal j.
func align(saved []string, ords []int, live []string) []int {
	n, m := len(saved), len(live)
	weight := n + m + 1
	score := func(i, j int) int {
		s := 0
		if saved[i] == live[j] {
			s += weight
		}
		if ords[i] == j {
			s++
		}
		return s
	}
	f := make([][]int, n+1)
	for i := range f {
		f[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			best := score(i, j) + f[i+1][j+1]
			if n-i > m-j {
				best = max(best, f[i+1][j])
			}
			if m-j > n-i {
				best = max(best, f[i][j+1])
			}
			f[i][j] = best
		}
	}

	pair := make([]int, n)
	for i := range pair {
		pair[i] = -1
	}
	for i, j := 0, 0; i < n && j < m; {
		switch {
		case score(i, j)+f[i+1][j+1] == f[i][j]:
			pair[i] = j
			i++
			j++
		case n-i > m-j:
			i++
		default:
			j++
		}
	}
	return pair
}
