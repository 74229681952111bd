package layout

import (
	"errors"
	"fmt"
)

// Validation failure reasons. A *ConfigError wraps exactly one of these.
var (
	ErrNoPages         = errors.New("pages must have at least 1 page")
	ErrTooManyPages    = errors.New("too many pages")
	ErrMissingKey      = errors.New("key is required")
	ErrMissingTitle    = errors.New("title is required")
	ErrInvalidIcon     = errors.New("icon must be a glyph, a resource handle or an image reference")
	ErrMissingRenderer = errors.New("renderer is required")
	ErrDuplicateKey    = errors.New("duplicate page key")
)

// ConfigError reports an invalid page set.
type ConfigError struct {
	// Field is the offending path, e.g. "pages[2].title". Empty for set-level failures.
	Field  string
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "layout: "
	if e.Field != "" {
		msg += e.Field + ": "
	}
	msg += e.Err.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func configErr(idx int, field string, err error) *ConfigError {
	return &ConfigError{Field: fmt.Sprintf("pages[%d].%s", idx, field), Err: err}
}
