package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c := Default()
	if c.Page.EditableAttr != "contenteditable" || c.Page.EditableValue != "true" {
		t.Errorf("editable marker: %q=%q", c.Page.EditableAttr, c.Page.EditableValue)
	}
	if c.Storage.Backend != "memory" || c.Storage.PrimaryKey != "offsite-data" {
		t.Errorf("storage: %+v", c.Storage)
	}
	if c.Storage.BackupKey != "offsite-data-backup" || c.Storage.HistoryPrefix != "offsite-data-history-" {
		t.Errorf("derived keys: %q %q", c.Storage.BackupKey, c.Storage.HistoryPrefix)
	}
	if c.Save.Debounce != time.Second || c.Save.Interval != 5*time.Second {
		t.Errorf("save: %+v", c.Save)
	}
	if c.Notify.ToastTTL != 3*time.Second {
		t.Errorf("toast ttl: %v", c.Notify.ToastTTL)
	}
	if c.HTTP.Addr != ":8090" || c.HTTP.MaxBodyBytes != 1<<20 {
		t.Errorf("http: %+v", c.HTTP)
	}
	if got := c.Page.Sections["agenda"]; len(got) != 2 || got[1] != "agenda-section" {
		t.Errorf("agenda landmarks: %v", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagekeeper.yaml")
	data := `
page:
  path: offsite.html
  ignore_classes: []
storage:
  backend: bolt
  path: data/pk.bolt
  primary_key: team-page
  retention: 3
save:
  debounce: 500ms
  capture_sections: [participants]
notify:
  sinks:
    - type: webhook
      url: http://localhost:9999/hook
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Storage.BackupKey != "team-page-backup" {
		t.Errorf("backup key: got %q", c.Storage.BackupKey)
	}
	if c.Storage.Retention != 3 || c.Save.Debounce != 500*time.Millisecond {
		t.Errorf("overrides lost: %+v %+v", c.Storage, c.Save)
	}
	if c.Save.Interval != 5*time.Second {
		t.Errorf("interval default: %v", c.Save.Interval)
	}
	if len(c.Page.IgnoreClasses) != 0 {
		t.Errorf("explicit empty ignore list replaced: %v", c.Page.IgnoreClasses)
	}
	if len(c.Save.CaptureSections) != 1 || c.Save.CaptureSections[0] != "participants" {
		t.Errorf("capture sections: %v", c.Save.CaptureSections)
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]string{
		"unknown backend": "storage: {backend: redis}",
		"missing path":    "storage: {backend: sqlite}",
		"webhook no url":  "notify: {sinks: [{type: webhook}]}",
		"bad sink":        "notify: {sinks: [{type: nats}]}",
	}
	for name, data := range tests {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error")
	}
}
