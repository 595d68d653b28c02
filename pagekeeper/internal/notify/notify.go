// Package notify delivers transient user notices ("toasts") to output
// backends.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is one toast.
type Notice struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Op      string    `json:"op"` // save | load | diagnostics | shared
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// New stamps a notice with an ID and the current time.
func New(level Level, op, message string) Notice {
	return Notice{ID: uuid.NewString(), Level: level, Op: op, Message: message, At: time.Now().UTC()}
}

// Sink is the output interface. Implementations deliver notices to
// different backends (stdout, webhook, in-process callback, toast board).
type Sink interface {
	Notify(ctx context.Context, n Notice) error
	Close() error
}

// Func is called for each notice.
type Func func(ctx context.Context, n Notice) error

// Callback delivers notices via a Go function call.
type Callback struct {
	fn Func
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn Func) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Notify(ctx context.Context, n Notice) error {
	if c.fn != nil {
		return c.fn(ctx, n)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
