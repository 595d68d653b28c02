package dom

import (
	"strings"

	"github.com/gorilla/css/scanner"
	"golang.org/x/net/html"
)

// Declaration is one "property: value" pair of an inline style attribute.
type Declaration struct {
	Property string
	Value    string
}

// ParseStyle tokenizes an inline style attribute into declarations.
// Malformed declarations are skipped.
func ParseStyle(style string) []Declaration {
	var (
		decls []Declaration
		prop  string
		val   strings.Builder
		inVal bool
	)
	flush := func() {
		v := strings.TrimSpace(val.String())
		if prop != "" && v != "" {
			decls = append(decls, Declaration{Property: prop, Value: v})
		}
		prop, inVal = "", false
		val.Reset()
	}

	s := scanner.New(style)
	for {
		tok := s.Next()
		if tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
			break
		}
		switch {
		case tok.Type == scanner.TokenComment:
		case tok.Type == scanner.TokenChar && tok.Value == ";":
			flush()
		case !inVal && tok.Type == scanner.TokenIdent:
			prop = strings.ToLower(tok.Value)
		case !inVal && tok.Type == scanner.TokenChar && tok.Value == ":":
			inVal = prop != ""
		case inVal && tok.Type == scanner.TokenS:
			val.WriteByte(' ')
		case inVal:
			val.WriteString(tok.Value)
		}
	}
	flush()
	return decls
}

// FormatStyle renders declarations back into attribute form.
func FormatStyle(decls []Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.Property+": "+d.Value)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

// StyleValue returns the inline value of a property on n, or "".
func StyleValue(n *html.Node, property string) string {
	var v string
	for _, d := range ParseStyle(Attr(n, "style")) {
		if d.Property == property {
			v = d.Value
		}
	}
	return v
}

// SetStyle sets inline properties on n, replacing earlier values of the
// same properties and keeping everything else.
func SetStyle(n *html.Node, props ...Declaration) {
	decls := ParseStyle(Attr(n, "style"))
	for _, p := range props {
		replaced := false
		for i := range decls {
			if decls[i].Property == p.Property {
				decls[i].Value = p.Value
				replaced = true
			}
		}
		if !replaced {
			decls = append(decls, p)
		}
	}
	SetAttr(n, "style", FormatStyle(decls))
}

// BorderLeft returns the inline left-border color and width of n, reading
// the longhand properties and the border-left and border shorthands.
// Later declarations win, as in CSS.
func BorderLeft(n *html.Node) (color, width string) {
	for _, d := range ParseStyle(Attr(n, "style")) {
		switch d.Property {
		case "border-left-color":
			color = d.Value
		case "border-left-width":
			width = d.Value
		case "border-left", "border":
			c, w := splitBorder(d.Value)
			if c != "" {
				color = c
			}
			if w != "" {
				width = w
			}
		}
	}
	return color, width
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "dotted": true, "dashed": true, "solid": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

// splitBorder classifies the parts of a border shorthand value.
func splitBorder(v string) (color, width string) {
	for _, part := range splitTopLevel(v) {
		lower := strings.ToLower(part)
		switch {
		case borderStyles[lower]:
		case lower == "thin" || lower == "medium" || lower == "thick":
			width = part
		case part != "" && (part[0] >= '0' && part[0] <= '9' || part[0] == '.'):
			width = part
		default:
			color = part
		}
	}
	return color, width
}

// splitTopLevel splits on whitespace outside parentheses, so that
// "6px solid rgb(1, 2, 3)" yields three parts.
func splitTopLevel(v string) []string {
	var (
		parts []string
		cur   strings.Builder
		depth int
	)
	for _, r := range v {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case (r == ' ' || r == '\t') && depth == 0:
			if cur.Len() > 0 {
				parts = append(parts, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
