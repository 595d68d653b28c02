package controller

import (
	"strings"

	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
)

// State is the controller's position in its lifecycle.
type State int32

const (
	Uninitialized State = iota
	Restoring
	Idle
	Saving
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Idle:
		return "idle"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// Trigger is what caused a save.
type Trigger string

const (
	TriggerInput       Trigger = "input"    // debounced
	TriggerFocusOut    Trigger = "focusout" // immediate
	TriggerEnter       Trigger = "enter"    // line breaks stripped, immediate
	TriggerInterval    Trigger = "interval" // only when dirty
	TriggerUnload      Trigger = "unload"   // final, ignores the guard
	TriggerManual      Trigger = "manual"   // saveNow, ignores the guard, toasts success
	TriggerResume      Trigger = "resume"
	TriggerDiagnostics Trigger = "diagnostics"
)

// ParseTrigger maps an event kind name to a Trigger. Only kinds a UI can
// send are accepted.
func ParseTrigger(kind string) (Trigger, bool) {
	switch t := Trigger(strings.ToLower(kind)); t {
	case TriggerInput, TriggerFocusOut, TriggerEnter, TriggerUnload:
		return t, true
	case "blur":
		return TriggerFocusOut, true
	}
	return "", false
}

// automatic reports whether the trigger is deferred while suspended.
func (t Trigger) automatic() bool {
	switch t {
	case TriggerManual, TriggerUnload, TriggerDiagnostics:
		return false
	}
	return true
}

// Event is one UI interaction. Edit is nil for events that carry no
// content change (a bare focus-out, unload).
type Event struct {
	Kind Trigger
	Edit *Edit
}

// Edit replaces the content of the field at Ref. A non-empty HTML wins
// over Text.
type Edit struct {
	Ref  snapshot.NodeRef `json:"ref"`
	Text string           `json:"text"`
	HTML string           `json:"html,omitempty"`
}

func stripLineBreaks(s string) string {
	return strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s)
}
