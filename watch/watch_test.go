package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type source struct {
	mu  sync.Mutex
	val []byte
	err error
}

func (s *source) set(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val = []byte(v)
}

func (s *source) read(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.val == nil {
		return nil, ErrAbsent
	}
	return s.val, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestValueDetector(t *testing.T) {
	src := &source{}
	det := ValueDetector(src.read)
	ctx := context.Background()

	v, err := det(ctx)
	if err != nil || v != 0 {
		t.Fatalf("absent: got %d, %v", v, err)
	}
	src.set("a")
	a, _ := det(ctx)
	src.set("b")
	b, _ := det(ctx)
	if a == 0 || a == b {
		t.Errorf("versions: a=%d b=%d", a, b)
	}
	if a != Hash([]byte("a")) {
		t.Error("Hash disagrees with the detector")
	}

	src.err = errors.New("io")
	if _, err := det(ctx); err == nil {
		t.Error("read error swallowed")
	}
}

func TestOnChangeFires(t *testing.T) {
	src := &source{}
	src.set("v0")
	w := New(Options{Interval: 10 * time.Millisecond, Detector: ValueDetector(src.read)})

	var fired atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.OnChange(ctx, func(context.Context) error {
		fired.Add(1)
		return nil
	})

	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("fired without a change")
	}
	src.set("v1")
	waitFor(t, func() bool { return fired.Load() == 1 })
	if w.Version() != Hash([]byte("v1")) {
		t.Errorf("Version: got %d", w.Version())
	}
}

func TestOnChangeDebounce(t *testing.T) {
	src := &source{}
	w := New(Options{Interval: 5 * time.Millisecond, Debounce: 100 * time.Millisecond, Detector: ValueDetector(src.read)})

	var fired atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.OnChange(ctx, func(context.Context) error {
		fired.Add(1)
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	for _, v := range []string{"a", "b", "c", "d"} {
		src.set(v)
		time.Sleep(15 * time.Millisecond)
	}
	waitFor(t, func() bool { return fired.Load() >= 1 })
	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
	if w.Version() != Hash([]byte("d")) {
		t.Error("fired for a stale version")
	}
}

func TestOnChangeRetriesFailedAction(t *testing.T) {
	src := &source{}
	w := New(Options{Interval: 5 * time.Millisecond, Detector: ValueDetector(src.read)})

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.OnChange(ctx, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	src.set("x")
	waitFor(t, func() bool { return w.Stats().Actions == 1 })
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
	if w.Stats().Errors != 1 {
		t.Errorf("errors: got %d", w.Stats().Errors)
	}
}

func TestAcceptSuppressesOwnWrites(t *testing.T) {
	src := &source{}
	w := New(Options{Interval: 5 * time.Millisecond, Detector: ValueDetector(src.read)})

	var fired atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.OnChange(ctx, func(context.Context) error {
		fired.Add(1)
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	w.Accept(Hash([]byte("mine")))
	src.set("mine")
	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("fired %d times for an accepted version", fired.Load())
	}
}

func TestOnChangeNeedsDetector(t *testing.T) {
	if err := New(Options{}).OnChange(context.Background(), nil); err == nil {
		t.Error("expected an error")
	}
}
