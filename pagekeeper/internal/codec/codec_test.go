package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/offsite/pagekeeper/internal/dom"
	"github.com/hazyhaar/offsite/pagekeeper/internal/identity"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

const page = `<html><body>
<header class="hero"><h1 contenteditable="true">EMEA Offsite</h1></header>
<section class="welcome"><p contenteditable="true">Hi <b>there</b></p></section>
<section class="agenda">
  <div class="time-slot"><span class="time" contenteditable="true">9:00 AM</span><h4 contenteditable="true">Workshop</h4></div>
  <div class="time-slot"><span class="time" contenteditable="true">11:00 AM</span><h4 contenteditable="true">Lunch</h4></div>
</section>
<section class="participants"><table><tbody id="participantsBody">
  <tr><td contenteditable="true">Alice</td><td contenteditable="true">None</td></tr>
  <tr><td contenteditable="true">Bob</td><td contenteditable="true">Vegan</td></tr>
  <tr><td contenteditable="true">Carol</td><td contenteditable="true">None</td></tr>
</tbody></table></section>
</body></html>`

var at = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T, opts Options) (*Codec, *dom.Page) {
	t.Helper()
	p, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	return New(identity.New(identity.DefaultOptions()), opts), p
}

func byText(t *testing.T, root *html.Node, s string) *html.Node {
	t.Helper()
	found := dom.FindAll(root, func(n *html.Node) bool { return dom.Text(n) == s })
	if len(found) == 0 {
		t.Fatalf("no node with text %q", s)
	}
	return found[len(found)-1]
}

func render(t *testing.T, p *dom.Page) []byte {
	t.Helper()
	b, err := p.Render()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestSerializeDeterministic(t *testing.T) {
	c, p := setup(t, Options{CaptureHTML: true, CaptureSections: []snapshot.SectionID{snapshot.SectionAgenda}})
	a, _ := snapshot.Marshal(c.Serialize(p, at))
	b, _ := snapshot.Marshal(c.Serialize(p, at))
	if !bytes.Equal(a, b) {
		t.Errorf("Serialize is not deterministic:\n%s\n%s", a, b)
	}
}

func TestSerializeFields(t *testing.T) {
	c, p := setup(t, Options{})
	snap := c.Serialize(p, at)
	if len(snap.Fields) != 12 {
		t.Fatalf("fields: got %d, want 12", len(snap.Fields))
	}
	if snap.Fields[0].Text != "EMEA Offsite" || snap.Fields[0].Ref.Section != snapshot.SectionHeader {
		t.Errorf("first field: got %+v", snap.Fields[0])
	}
	if snap.Fields[1].HTML != "" {
		t.Error("HTML captured without CaptureHTML")
	}
	if snap.SectionHTML != nil {
		t.Error("section markup captured without CaptureSections")
	}
}

func TestRoundTripUnchangedPage(t *testing.T) {
	c, p := setup(t, Options{})
	before := render(t, p)
	rep := c.Deserialize(p, c.Serialize(p, at))
	if rep.Unresolved != 0 || rep.Restored != rep.Fields {
		t.Errorf("report: %+v", rep)
	}
	if rep.Matches["exact"] != rep.Fields {
		t.Errorf("matches: %v", rep.Matches)
	}
	if after := render(t, p); !bytes.Equal(before, after) {
		t.Errorf("document changed:\n%s\n%s", before, after)
	}
}

func TestRestoreClearedFields(t *testing.T) {
	c, p := setup(t, Options{})
	snap := c.Serialize(p, at)
	for _, s := range []string{"Alice", "9:00 AM", "Workshop"} {
		dom.SetText(byText(t, p.Root, s), "")
	}
	c.Deserialize(p, snap)
	for _, s := range []string{"Alice", "9:00 AM", "Workshop"} {
		byText(t, p.Root, s)
	}
}

func TestDeserializeIdempotent(t *testing.T) {
	c, p := setup(t, Options{CaptureHTML: true, CaptureSections: []snapshot.SectionID{snapshot.SectionParticipants}})
	dom.SetStyle(byText(t, p.Root, "Workshop").Parent, dom.Declaration{Property: "border-left", Value: "4px solid #4B9CD3"})
	snap := c.Serialize(p, at)
	dom.SetText(byText(t, p.Root, "Lunch"), "Dinner")

	c.Deserialize(p, snap)
	once := render(t, p)
	c.Deserialize(p, snap)
	if twice := render(t, p); !bytes.Equal(once, twice) {
		t.Errorf("second application changed the document:\n%s\n%s", once, twice)
	}
}

func TestRowDeletionLeavesSurvivorsIntact(t *testing.T) {
	c, p := setup(t, Options{})
	snap := c.Serialize(p, at)
	dom.Remove(dom.Closest(byText(t, p.Root, "Bob"), func(n *html.Node) bool { return n.Data == "tr" }))

	rep := c.Deserialize(p, snap)
	if rep.Unresolved != 2 {
		t.Errorf("unresolved: got %d, want 2", rep.Unresolved)
	}
	for _, s := range []string{"Alice", "Carol"} {
		byText(t, p.Root, s)
	}
	rows := dom.FindAll(p.Root, func(n *html.Node) bool { return n.Data == "tr" })
	if len(rows) != 2 {
		t.Errorf("rows: got %d, want 2", len(rows))
	}
}

func TestSectionMarkupRestoresStructure(t *testing.T) {
	c, p := setup(t, Options{CaptureSections: []snapshot.SectionID{snapshot.SectionParticipants}})
	snap := c.Serialize(p, at)
	dom.Remove(dom.Closest(byText(t, p.Root, "Bob"), func(n *html.Node) bool { return n.Data == "tr" }))

	rep := c.Deserialize(p, snap)
	if len(rep.SectionsReplaced) != 1 || rep.SectionsReplaced[0] != snapshot.SectionParticipants {
		t.Errorf("sections replaced: %v", rep.SectionsReplaced)
	}
	if rep.Unresolved != 0 {
		t.Errorf("unresolved: got %d, want 0", rep.Unresolved)
	}
	byText(t, p.Root, "Bob")
}

func TestAccentSurvivesFreshParse(t *testing.T) {
	c, p := setup(t, Options{})
	host := byText(t, p.Root, "Workshop").Parent
	ApplyAccent(host, "#FF9900", "")
	snap := c.Serialize(p, at)

	fresh, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	rep := c.Deserialize(fresh, snap)
	if rep.StylesApplied != 2 {
		t.Errorf("styles applied: got %d, want 2", rep.StylesApplied)
	}
	freshHost := byText(t, fresh.Root, "Workshop").Parent
	if got := dom.StyleValue(freshHost, "border-left-color"); got != "#FF9900" {
		t.Errorf("border-left-color: got %q", got)
	}
	if got := dom.StyleValue(freshHost, "border-left-width"); got != DefaultAccentWidth {
		t.Errorf("border-left-width: got %q", got)
	}
	other := byText(t, fresh.Root, "Lunch").Parent
	if dom.HasAttr(other, "style") {
		t.Error("accent leaked onto another entry")
	}
}

func TestCaptureHTMLRestoresMarkup(t *testing.T) {
	c, p := setup(t, Options{CaptureHTML: true})
	snap := c.Serialize(p, at)
	welcome := byText(t, p.Root, "Hi there")
	dom.SetText(welcome, "")

	c.Deserialize(p, snap)
	got, err := dom.InnerHTML(welcome)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hi <b>there</b>" {
		t.Errorf("inner HTML: got %q", got)
	}
}

const roster = `<html><body>
<section class="participants"><table><tbody id="participantsBody">
  <tr><td contenteditable="true">Alice</td><td contenteditable="true">None</td><td contenteditable="true">-</td></tr>
  <tr><td contenteditable="true">Bob</td><td contenteditable="true">Vegan</td><td contenteditable="true">Paris</td></tr>
  <tr><td contenteditable="true">Carol</td><td contenteditable="true">None</td><td contenteditable="true">-</td></tr>
</tbody></table></section>
</body></html>`

func cells(t *testing.T) (*Codec, *dom.Page, func() []string) {
	t.Helper()
	p, err := dom.ParseString(roster)
	if err != nil {
		t.Fatal(err)
	}
	texts := func() []string {
		var out []string
		for _, td := range dom.FindAll(p.Root, func(n *html.Node) bool { return n.Data == "td" }) {
			out = append(out, dom.Text(td))
		}
		return out
	}
	return New(identity.New(identity.DefaultOptions()), Options{}), p, texts
}

func TestRestoreRevertsCellsHoldingEachOthersValues(t *testing.T) {
	c, p, texts := cells(t)
	snap := c.Serialize(p, at)
	tds := dom.FindAll(p.Root, func(n *html.Node) bool { return n.Data == "td" })
	dom.SetText(tds[2], "London")
	dom.SetText(tds[5], "-")

	rep := c.Deserialize(p, snap)
	got := texts()
	if got[2] != "-" || got[5] != "Paris" {
		t.Errorf("locations: got %q and %q, want \"-\" and \"Paris\"", got[2], got[5])
	}
	if rep.Matches["exact"] != rep.Fields {
		t.Errorf("matches: %v", rep.Matches)
	}
}

func TestRestoreUndoesSwappedRows(t *testing.T) {
	c, p, texts := cells(t)
	snap := c.Serialize(p, at)
	tds := dom.FindAll(p.Root, func(n *html.Node) bool { return n.Data == "td" })
	dom.SetText(tds[0], "Bob")
	dom.SetText(tds[3], "Alice")

	c.Deserialize(p, snap)
	got := texts()
	if got[0] != "Alice" || got[3] != "Bob" {
		t.Errorf("names: got %q and %q, want Alice and Bob", got[0], got[3])
	}
}

func TestRowDeletionReportsTheDeletedRow(t *testing.T) {
	p, err := dom.ParseString(strings.Replace(roster, "Paris", "-", 1))
	if err != nil {
		t.Fatal(err)
	}
	c := New(identity.New(identity.DefaultOptions()), Options{})
	snap := c.Serialize(p, at)
	dom.Remove(dom.Closest(byText(t, p.Root, "Bob"), func(n *html.Node) bool { return n.Data == "tr" }))

	rep := c.Deserialize(p, snap)
	var ords []int
	for _, ref := range rep.UnresolvedRefs {
		ords = append(ords, ref.Ordinal)
	}
	if len(ords) != 3 || ords[0] != 3 || ords[1] != 4 || ords[2] != 5 {
		t.Errorf("unresolved ordinals: got %v, want [3 4 5]", ords)
	}
	var got []string
	for _, td := range dom.FindAll(p.Root, func(n *html.Node) bool { return n.Data == "td" }) {
		got = append(got, dom.Text(td))
	}
	if strings.Join(got, ",") != "Alice,None,-,Carol,None,-" {
		t.Errorf("survivors: got %v", got)
	}
}
