package snapshot

import (
	"fmt"
	"slices"
	"strings"
)

// SectionID names a coarse landmark region of the page.
type SectionID string

const (
	SectionHeader       SectionID = "HEADER"
	SectionWelcome      SectionID = "WELCOME"
	SectionAgenda       SectionID = "AGENDA"
	SectionParticipants SectionID = "PARTICIPANTS"
	SectionInfo         SectionID = "INFO"
	SectionOther        SectionID = "OTHER"
)

// Landmarks lists the recognised sections in restore order. OTHER is not a
// landmark: it is the fallback when no landmark encloses a node.
var Landmarks = []SectionID{
	SectionHeader,
	SectionWelcome,
	SectionAgenda,
	SectionParticipants,
	SectionInfo,
}

// ParseSection maps a case-insensitive name to a SectionID.
func ParseSection(name string) (SectionID, error) {
	s := SectionID(strings.ToUpper(strings.TrimSpace(name)))
	if s == SectionOther || slices.Contains(Landmarks, s) {
		return s, nil
	}
	return "", fmt.Errorf("snapshot: unknown section %q", name)
}

// NodeRef is a positional descriptor of an editable node. It is a value:
// two resolves of the same node in an unchanged document are equal, and
// nothing holds across structural edits that change sibling order or count.
type NodeRef struct {
	Tag     string    `json:"tag"`
	Classes []string  `json:"classes,omitempty"` // sorted, de-duplicated
	Ordinal int       `json:"ordinal"`
	Section SectionID `json:"section"`
}

// Signature is the class list joined by single spaces.
func (r NodeRef) Signature() string {
	return strings.Join(r.Classes, " ")
}

// Equal reports structural equality.
func (r NodeRef) Equal(o NodeRef) bool {
	return r.Tag == o.Tag && r.Ordinal == o.Ordinal && r.Section == o.Section &&
		slices.Equal(r.Classes, o.Classes)
}

// String renders the ref as SECTION/tag.class1.class2#ordinal.
func (r NodeRef) String() string {
	var b strings.Builder
	b.WriteString(string(r.Section))
	b.WriteByte('/')
	b.WriteString(r.Tag)
	for _, c := range r.Classes {
		b.WriteByte('.')
		b.WriteString(c)
	}
	fmt.Fprintf(&b, "#%d", r.Ordinal)
	return b.String()
}
