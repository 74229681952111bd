package layout

import (
	"fmt"
	"strings"
)

// Validate checks a raw page set and returns a trimmed copy in the original order.
// A non-positive maxPages selects DefaultMaxPages. Validate never mutates its input.
func Validate(pages []Page, maxPages int) ([]Page, error) {
	limit := maxPages
	if limit <= 0 {
		limit = DefaultMaxPages
	}

	if len(pages) == 0 {
		return nil, &ConfigError{Err: ErrNoPages}
	}
	if len(pages) > limit {
		return nil, &ConfigError{
			Err:    ErrTooManyPages,
			Detail: fmt.Sprintf("got %d, at most %d allowed", len(pages), limit),
		}
	}

	seen := make(map[string]int, len(pages))
	out := make([]Page, 0, len(pages))
	for idx, p := range pages {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return nil, configErr(idx, "key", ErrMissingKey)
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			return nil, configErr(idx, "title", ErrMissingTitle)
		}
		if p.Renderer == nil {
			return nil, configErr(idx, "renderer", ErrMissingRenderer)
		}
		if !validIcon(p.Icon) {
			return nil, configErr(idx, "icon", ErrInvalidIcon)
		}
		if prev, ok := seen[key]; ok {
			return nil, &ConfigError{
				Field:  fmt.Sprintf("pages[%d].key", idx),
				Err:    ErrDuplicateKey,
				Detail: fmt.Sprintf("%q already used by pages[%d]", key, prev),
			}
		}
		seen[key] = idx

		p.Key = key
		p.Title = title
		out = append(out, p)
	}
	return out, nil
}

func validIcon(icon Icon) bool {
	switch v := icon.(type) {
	case Glyph, Resource:
		return true
	case ImageRef:
		return true
	case *ImageRef:
		return v != nil
	default:
		return false
	}
}

// IndexOf returns the position of key in a validated set, or -1.
func IndexOf(pages []Page, key string) int {
	for i, p := range pages {
		if p.Key == key {
			return i
		}
	}
	return -1
}

// InitialIndex resolves the starting page for a validated set. A blank or
// unknown key falls back to the first page.
func InitialIndex(pages []Page, initialPageKey string) int {
	key := strings.TrimSpace(initialPageKey)
	if key == "" {
		return 0
	}
	if idx := IndexOf(pages, key); idx >= 0 {
		return idx
	}
	return 0
}
