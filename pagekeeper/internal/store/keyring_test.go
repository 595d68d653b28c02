package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestKeyring(s Store, retention int) *Keyring {
	l := DefaultLayout()
	l.Retention = retention
	k := NewKeyring(s, l, nil)
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	k.now = c.now
	return k
}

func TestKeyringWriteAndRetention(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(0)
	k := newTestKeyring(s, 3)

	var results []WriteResult
	for _, v := range []string{"v1", "v2", "v3", "v4", "v5"} {
		res, err := k.Write(ctx, []byte(v))
		if err != nil {
			t.Fatal(err)
		}
		if res.BackupErr != nil {
			t.Fatalf("backup: %v", res.BackupErr)
		}
		results = append(results, res)
	}

	for _, key := range []string{"offsite-data", "offsite-data-backup"} {
		got, _ := s.Get(ctx, key)
		if string(got) != "v5" {
			t.Errorf("%s: got %q, want v5", key, got)
		}
	}

	hist, err := k.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 3 {
		t.Fatalf("history: got %v", hist)
	}
	if hist[0] != results[2].HistoryKey || hist[2] != results[4].HistoryKey {
		t.Errorf("history order: got %v", hist)
	}
	if len(results[4].Evicted) != 1 || results[4].Evicted[0] != results[1].HistoryKey {
		t.Errorf("evicted: got %v", results[4].Evicted)
	}
}

func TestKeyringCandidateOrder(t *testing.T) {
	ctx := context.Background()
	k := newTestKeyring(NewMemory(0), 5)
	var hist []string
	for range 3 {
		res, err := k.Write(ctx, []byte("x"))
		if err != nil {
			t.Fatal(err)
		}
		hist = append(hist, res.HistoryKey)
	}
	// Unrelated key sharing the prefix is not history.
	k.store.Set(ctx, "offsite-data-history-notes", []byte("x"))

	got := k.Candidates(ctx)
	want := append([]string{"offsite-data", "offsite-data-backup"}, hist...)
	if len(got) != len(want) {
		t.Fatalf("candidates: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidates[%d]: got %s, want %s", i, got[i], want[i])
		}
	}
}

// failing rejects writes to one key.
type failing struct {
	Store
	key string
}

func (f failing) Set(ctx context.Context, key string, v []byte) error {
	if key == f.key {
		return ErrQuotaExceeded
	}
	return f.Store.Set(ctx, key, v)
}

func TestKeyringPrimaryFailure(t *testing.T) {
	ctx := context.Background()
	k := newTestKeyring(failing{Store: NewMemory(0), key: "offsite-data"}, 5)
	if _, err := k.Write(ctx, []byte("x")); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Write: got %v, want ErrQuotaExceeded", err)
	}
	if _, err := k.Read(ctx, "offsite-data-backup"); !errors.Is(err, ErrNotFound) {
		t.Error("backup written although the primary write failed")
	}
}

func TestKeyringBackupFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	k := newTestKeyring(failing{Store: NewMemory(0), key: "offsite-data-backup"}, 5)
	res, err := k.Write(ctx, []byte("x"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !errors.Is(res.BackupErr, ErrQuotaExceeded) {
		t.Errorf("BackupErr: got %v", res.BackupErr)
	}
	if got, _ := k.Read(ctx, "offsite-data"); string(got) != "x" {
		t.Errorf("primary: got %q", got)
	}
}
