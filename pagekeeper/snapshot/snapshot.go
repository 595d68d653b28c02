// Package snapshot defines the persisted shape of an edited page. These
// types are the storage contract: whatever writes a snapshot today must be
// readable by the restore pass of the next page load.
//
// A Snapshot is always a full replacement of the previous one, never a diff.
package snapshot

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped on every snapshot written by this package.
const SchemaVersion = "3"

// ErrInvalid is returned by Unmarshal when the payload is JSON but not a snapshot.
var ErrInvalid = errors.New("snapshot: invalid payload")

// Snapshot is the root persisted value.
type Snapshot struct {
	SchemaVersion string               `json:"schema_version"`
	ID            string               `json:"id"`          // UUIDv7, diagnostics only
	CapturedAt    time.Time            `json:"captured_at"` // wall clock, never used for ordering
	Fields        []CapturedField      `json:"fields"`
	SectionHTML   map[SectionID]string `json:"section_html,omitempty"` // section → inner markup
}

// CapturedField is one persisted editable unit.
type CapturedField struct {
	Text  string          `json:"text"`
	HTML  string          `json:"html,omitempty"`
	Ref   NodeRef         `json:"ref"`
	Style *StyleOverrides `json:"style,omitempty"`
}

// StyleTarget says which element carried the captured style.
type StyleTarget string

const (
	TargetSelf StyleTarget = "self" // the editable node itself
	TargetHost StyleTarget = "host" // nearest ancestor with the accent host class
)

// StyleOverrides holds the inline presentational state worth persisting:
// the left-border accent used to color-code agenda entries.
type StyleOverrides struct {
	BorderLeftColor string      `json:"border_left_color,omitempty"`
	BorderLeftWidth string      `json:"border_left_width,omitempty"`
	Target          StyleTarget `json:"target,omitempty"`
}

// Empty reports whether no override was captured.
func (s *StyleOverrides) Empty() bool {
	return s == nil || (s.BorderLeftColor == "" && s.BorderLeftWidth == "")
}

// New returns an empty snapshot stamped with the schema version and the
// given capture time. The ID is left to the writer.
func New(at time.Time) *Snapshot {
	return &Snapshot{
		SchemaVersion: SchemaVersion,
		CapturedAt:    at.UTC(),
		Fields:        []CapturedField{},
	}
}

// NewID returns a UUIDv7 string.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
