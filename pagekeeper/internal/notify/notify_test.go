package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRouterFanOut(t *testing.T) {
	var got []string
	ok := NewCallback(func(_ context.Context, n Notice) error {
		got = append(got, n.Message)
		return nil
	})
	boom := errors.New("boom")
	bad := NewCallback(func(context.Context, Notice) error { return boom })
	r := NewRouter(nil, bad, ok)

	if err := r.Notify(context.Background(), New(LevelError, "save", "Save failed")); !errors.Is(err, boom) {
		t.Errorf("Notify: got %v, want boom", err)
	}
	if len(got) != 1 || got[0] != "Save failed" {
		t.Errorf("healthy sink: got %v", got)
	}
}

func TestStdoutJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	s.Notify(context.Background(), New(LevelSuccess, "save", "Saved"))
	s.Notify(context.Background(), New(LevelSuccess, "load", "Loaded"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("lines: got %d", len(lines))
	}
	var env struct {
		Type string `json:"type"`
		Data Notice `json:"data"`
	}
	if err := json.Unmarshal(lines[1], &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "notice" || env.Data.Op != "load" || env.Data.Level != LevelSuccess {
		t.Errorf("envelope: %+v", env)
	}
}

func TestWebhookRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.Notify(context.Background(), New(LevelInfo, "shared", "x")); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	w.Close()
	if calls.Load() != 3 {
		t.Errorf("calls: got %d, want 3", calls.Load())
	}
}

func TestWebhookGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	defer w.Close()
	if err := w.deliver(context.Background(), []byte(`{}`)); err == nil {
		t.Error("expected an error")
	}
}

func TestWebhookNotifyReturnsWhileEndpointIsDown(t *testing.T) {
	w := NewWebhook("http://127.0.0.1:1/hook", WithWebhookBackoff(time.Second), WithWebhookDrain(10*time.Millisecond))

	start := time.Now()
	for range 3 {
		if err := w.Notify(context.Background(), New(LevelSuccess, "save", "Saved")); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Errorf("Notify blocked for %s", d)
	}

	start = time.Now()
	w.Close()
	if d := time.Since(start); d > 2*time.Second {
		t.Errorf("Close took %s", d)
	}
	if err := w.Notify(context.Background(), New(LevelInfo, "save", "late")); !errors.Is(err, ErrWebhookClosed) {
		t.Errorf("Notify after Close: got %v", err)
	}
}

func TestWebhookDropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookQueue(1))
	var dropped bool
	for range 10 {
		if err := w.Notify(context.Background(), New(LevelInfo, "save", "x")); errors.Is(err, ErrWebhookQueueFull) {
			dropped = true
			break
		}
	}
	close(release)
	w.Close()
	if !dropped {
		t.Error("expected a dropped notice")
	}
}

func TestToastsExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := NewToasts(3 * time.Second)
	b.now = func() time.Time { return now }

	b.Notify(context.Background(), Notice{Message: "old", At: now.Add(-5 * time.Second)})
	b.Notify(context.Background(), Notice{Message: "fresh", At: now.Add(-time.Second)})
	b.Notify(context.Background(), Notice{Message: "unstamped"})

	got := b.Active()
	if len(got) != 2 || got[0].Message != "fresh" || got[1].Message != "unstamped" {
		t.Errorf("Active: got %+v", got)
	}
	now = now.Add(4 * time.Second)
	if got := b.Active(); len(got) != 0 {
		t.Errorf("Active after ttl: got %+v", got)
	}
}
