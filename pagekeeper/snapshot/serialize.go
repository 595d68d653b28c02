package snapshot

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// Marshal serialises a Snapshot to JSON.
func Marshal(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserialises a Snapshot. A payload that decodes but carries no
// schema version (e.g. "{}" or "null") is rejected with ErrInvalid so that
// restore falls through to the next candidate key.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if s.SchemaVersion == "" {
		return nil, fmt.Errorf("%w: missing schema_version", ErrInvalid)
	}
	for i, f := range s.Fields {
		if f.Ref.Tag == "" {
			return nil, fmt.Errorf("%w: field %d has no tag", ErrInvalid, i)
		}
		if f.Ref.Section == "" {
			s.Fields[i].Ref.Section = SectionOther
		}
	}
	return &s, nil
}

// HashHTML returns the SHA-256 hex digest of raw HTML bytes.
func HashHTML(html []byte) string {
	h := sha256.Sum256(html)
	return fmt.Sprintf("%x", h)
}
