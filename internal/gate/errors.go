package gate

import "fmt"

// ResolutionError wraps a resolver failure. Its message is the original
// failure's message.
type ResolutionError struct {
	RequestID string
	Err       error
}

func (e *ResolutionError) Error() string {
	if e == nil || e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *ResolutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CapabilityError reports a transition into a mode the host cannot render.
type CapabilityError struct {
	// Op is "resolve" when a resolver produced the mode, otherwise the
	// transition name.
	Op   string
	Mode EntryMode
}

func (e *CapabilityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Op == "resolve" {
		return fmt.Sprintf("gate: entry resolved to %q but no %s flow was provided", e.Mode, e.Mode)
	}
	return fmt.Sprintf("gate: %s: no %s flow was provided", e.Op, e.Mode)
}
