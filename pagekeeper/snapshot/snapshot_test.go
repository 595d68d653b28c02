package snapshot

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSnapshotMarshalRoundtrip(t *testing.T) {
	s := New(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	s.ID = NewID()
	s.Fields = append(s.Fields,
		CapturedField{Text: "Alice", Ref: NodeRef{Tag: "td", Ordinal: 0, Section: SectionParticipants}},
		CapturedField{
			Text:  "Workshop",
			Ref:   NodeRef{Tag: "h4", Classes: []string{"title"}, Ordinal: 2, Section: SectionAgenda},
			Style: &StyleOverrides{BorderLeftColor: "#FF9900", BorderLeftWidth: "6px", Target: TargetHost},
		},
	)
	s.SectionHTML = map[SectionID]string{SectionAgenda: `<div class="time-slot"><h4>Workshop</h4></div>`}

	data, err := Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.ID != s.ID {
		t.Errorf("ID: got %q, want %q", got.ID, s.ID)
	}
	if !got.CapturedAt.Equal(s.CapturedAt) {
		t.Errorf("CapturedAt: got %v, want %v", got.CapturedAt, s.CapturedAt)
	}
	if len(got.Fields) != 2 {
		t.Fatalf("Fields: got %d, want 2", len(got.Fields))
	}
	if !got.Fields[1].Ref.Equal(s.Fields[1].Ref) {
		t.Errorf("Ref: got %v, want %v", got.Fields[1].Ref, s.Fields[1].Ref)
	}
	if got.Fields[1].Style.BorderLeftColor != "#FF9900" {
		t.Errorf("Style: got %+v", got.Fields[1].Style)
	}
	if got.SectionHTML[SectionAgenda] == "" {
		t.Error("SectionHTML[AGENDA] lost in roundtrip")
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	for _, in := range []string{`{corrupt`, `null`, `{}`, `"text"`, `{"schema_version":"3","fields":[{"text":"x","ref":{}}]}`} {
		if _, err := Unmarshal([]byte(in)); err == nil {
			t.Errorf("Unmarshal(%q): expected error", in)
		}
	}
	_, err := Unmarshal([]byte(`{}`))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Unmarshal({}): got %v, want ErrInvalid", err)
	}
}

func TestUnmarshalDefaultsSection(t *testing.T) {
	got, err := Unmarshal([]byte(`{"schema_version":"3","fields":[{"text":"x","ref":{"tag":"p"}}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Fields[0].Ref.Section != SectionOther {
		t.Errorf("Section: got %q, want OTHER", got.Fields[0].Ref.Section)
	}
}

func TestSectionJSONKeys(t *testing.T) {
	data, _ := json.Marshal(map[SectionID]string{SectionInfo: "x"})
	if !strings.Contains(string(data), `"INFO"`) {
		t.Errorf("section key: got %s", data)
	}
}

func TestParseSection(t *testing.T) {
	got, err := ParseSection(" agenda ")
	if err != nil || got != SectionAgenda {
		t.Errorf("ParseSection(agenda): got %q, %v", got, err)
	}
	if _, err := ParseSection("footer"); err == nil {
		t.Error("ParseSection(footer): expected error")
	}
}

func TestNodeRefString(t *testing.T) {
	r := NodeRef{Tag: "h4", Classes: []string{"a", "b"}, Ordinal: 3, Section: SectionAgenda}
	if got := r.String(); got != "AGENDA/h4.a.b#3" {
		t.Errorf("String: got %q", got)
	}
	if r.Signature() != "a b" {
		t.Errorf("Signature: got %q", r.Signature())
	}
}

func TestHashHTML(t *testing.T) {
	h1 := HashHTML([]byte("<p>x</p>"))
	if h1 != HashHTML([]byte("<p>x</p>")) {
		t.Error("HashHTML not deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("HashHTML length: got %d, want 64", len(h1))
	}
}
