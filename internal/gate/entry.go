// Package gate decides which top-level mode the application enters:
// onboarding, the tabbed home shell, or authentication.
//
// A Controller owns the gate state. Resolution runs through a Runner, which
// may execute on another goroutine; its Outcome is handed back to the
// Controller, which drops outcomes from superseded requests.
package gate

import (
	"fmt"
	"strings"
)

// EntryMode is the top-level mode the gate routes into.
type EntryMode string

const (
	Onboarding EntryMode = "onboarding"
	Home       EntryMode = "home"
	Auth       EntryMode = "auth"
)

// Normalize maps onboarding and auth to themselves and anything else to Home.
func Normalize(mode EntryMode) EntryMode {
	switch mode {
	case Onboarding, Auth:
		return mode
	default:
		return Home
	}
}

// Known reports whether mode is one of the three modes.
func Known(mode EntryMode) bool {
	switch mode {
	case Onboarding, Home, Auth:
		return true
	}
	return false
}

// ModeOf converts an arbitrary resolver value to an EntryMode without
// normalizing it. Non-string values become the empty mode.
func ModeOf(v any) EntryMode {
	switch t := v.(type) {
	case EntryMode:
		return t
	case string:
		return EntryMode(t)
	case fmt.Stringer:
		return EntryMode(t.String())
	default:
		return ""
	}
}

// ParseEntryMode parses a user-supplied mode strictly.
func ParseEntryMode(s string) (EntryMode, error) {
	mode := EntryMode(strings.ToLower(strings.TrimSpace(s)))
	if !Known(mode) {
		return "", fmt.Errorf("unknown entry mode %q (want onboarding, home or auth)", s)
	}
	return mode, nil
}

// Status is the gate's resolution status.
type Status string

const (
	Pending Status = "pending"
	Ready   Status = "ready"
	Failed  Status = "failed"
)

// State is an immutable snapshot of the gate.
type State struct {
	Status Status
	Entry  EntryMode
	Err    error
}

// Capabilities lists the optional flows the host can render.
type Capabilities struct {
	Onboarding bool
	Auth       bool
}

func (c Capabilities) supports(mode EntryMode) bool {
	switch mode {
	case Onboarding:
		return c.Onboarding
	case Auth:
		return c.Auth
	default:
		return true
	}
}
