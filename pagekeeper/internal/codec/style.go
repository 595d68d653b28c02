package codec

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/offsite/pagekeeper/internal/dom"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// captureStyle reads the accent from the node itself, falling back to its
// accent host entry.
func (c *Codec) captureStyle(n *html.Node) *snapshot.StyleOverrides {
	if color, width := dom.BorderLeft(n); color != "" || width != "" {
		return &snapshot.StyleOverrides{BorderLeftColor: color, BorderLeftWidth: width, Target: snapshot.TargetSelf}
	}
	host := c.accentHost(n)
	if host == nil {
		return nil
	}
	if color, width := dom.BorderLeft(host); color != "" || width != "" {
		return &snapshot.StyleOverrides{BorderLeftColor: color, BorderLeftWidth: width, Target: snapshot.TargetHost}
	}
	return nil
}

func (c *Codec) accentHost(n *html.Node) *html.Node {
	return dom.Closest(n, func(p *html.Node) bool { return dom.HasClass(p, c.opts.AccentHostClass) })
}

// AccentTarget returns the element an accent for n is written to: the
// accent host entry when there is one, else n.
func (c *Codec) AccentTarget(n *html.Node) *html.Node {
	if host := c.accentHost(n); host != nil {
		return host
	}
	return n
}

// applyStyle writes a captured accent back onto n or its host.
func (c *Codec) applyStyle(n *html.Node, s *snapshot.StyleOverrides) bool {
	if s.Empty() {
		return false
	}
	target := n
	if s.Target == snapshot.TargetHost {
		if target = c.accentHost(n); target == nil {
			return false
		}
	}
	ApplyAccent(target, s.BorderLeftColor, s.BorderLeftWidth)
	return true
}

// ApplyAccent sets a solid left border on n. An empty width falls back to
// DefaultAccentWidth; an empty color leaves the current color alone.
func ApplyAccent(n *html.Node, color, width string) {
	if width == "" {
		width = DefaultAccentWidth
	}
	decls := []dom.Declaration{
		{Property: "border-left-width", Value: width},
		{Property: "border-left-style", Value: "solid"},
	}
	if color != "" {
		decls = append([]dom.Declaration{{Property: "border-left-color", Value: color}}, decls...)
	}
	dom.SetStyle(n, decls...)
}
