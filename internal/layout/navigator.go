package layout

import (
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/rs/zerolog"
)

// Options configures a Navigator.
type Options struct {
	Pages          []Page
	MaxPages       int
	InitialPageKey string
	// OnPageChange is called with the newly active key after every accepted selection.
	OnPageChange func(key string)
	Logger       *zerolog.Logger
}

// Snapshot is a read-only view of the navigator state.
type Snapshot struct {
	Pages         []Page
	ActiveIndex   int
	ActivePage    Page
	ActivePageKey string
}

// Navigator owns a validated page set and the active page index.
//
// It is not safe for concurrent use; the shell drives it from its update loop.
type Navigator struct {
	input    fingerprint
	limit    int
	pages    []Page
	active   int
	onChange func(string)

	order    string
	handlers map[string]*Handler

	log zerolog.Logger
}

// New validates opts.Pages and positions the navigator on opts.InitialPageKey,
// or on the first page when that key is blank or unknown.
func New(opts Options) (*Navigator, error) {
	pages, err := Validate(opts.Pages, opts.MaxPages)
	if err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "navigator").Logger()
	}
	n := &Navigator{
		input:    fingerprintOf(opts.Pages, opts.MaxPages),
		limit:    normalizeLimit(opts.MaxPages),
		pages:    pages,
		active:   InitialIndex(pages, opts.InitialPageKey),
		onChange: opts.OnPageChange,
		log:      log,
	}
	n.rebuildHandlers()
	n.log.Debug().Int("pages", len(pages)).Str("active", n.ActivePageKey()).Msg("navigator ready")
	return n, nil
}

// Reconfigure revalidates against a new raw page set. Input equal to the last
// accepted input is a no-op and reports changed=false. On error the previous
// state is kept. When the new set is too short for the active index, the
// index resets to 0 without calling OnPageChange.
func (n *Navigator) Reconfigure(pages []Page, maxPages int) (changed bool, err error) {
	fp := fingerprintOf(pages, maxPages)
	if fp.equal(n.input) {
		return false, nil
	}
	validated, err := Validate(pages, maxPages)
	if err != nil {
		n.log.Debug().Err(err).Msg("reconfigure rejected")
		return false, err
	}

	n.input = fp
	n.limit = normalizeLimit(maxPages)
	n.pages = validated
	if keyOrder(validated) != n.order {
		n.rebuildHandlers()
	}
	if n.active >= len(n.pages) {
		n.log.Debug().Int("from", n.active).Int("pages", len(n.pages)).Msg("active index out of range, reset")
		n.active = 0
	}
	return true, nil
}

// SetOnPageChange replaces the page-change callback.
func (n *Navigator) SetOnPageChange(fn func(key string)) {
	n.onChange = fn
}

// MaxPages returns the limit the current set was validated against.
func (n *Navigator) MaxPages() int {
	return n.limit
}

// Len returns the number of pages.
func (n *Navigator) Len() int {
	return len(n.pages)
}

// Pages returns a copy of the validated page set.
func (n *Navigator) Pages() []Page {
	return slices.Clone(n.pages)
}

// ActiveIndex returns the index of the active page.
func (n *Navigator) ActiveIndex() int {
	return n.active
}

// ActivePage returns the active page, falling back to the first page if the
// index is not settled.
func (n *Navigator) ActivePage() Page {
	if n.active >= 0 && n.active < len(n.pages) {
		return n.pages[n.active]
	}
	return n.pages[0]
}

// ActivePageKey returns the key of ActivePage.
func (n *Navigator) ActivePageKey() string {
	return n.ActivePage().Key
}

// SelectIndex activates the page at idx and notifies OnPageChange, even when
// idx is already active. Out-of-range indexes are ignored.
func (n *Navigator) SelectIndex(idx int) bool {
	if idx < 0 || idx >= len(n.pages) {
		return false
	}
	n.active = idx
	key := n.pages[idx].Key
	n.log.Debug().Int("index", idx).Str("key", key).Msg("page selected")
	if n.onChange != nil {
		n.onChange(key)
	}
	return true
}

// SelectKey activates the page with the given key. Unknown keys are ignored.
func (n *Navigator) SelectKey(key string) bool {
	idx := IndexOf(n.pages, key)
	if idx < 0 {
		return false
	}
	return n.SelectIndex(idx)
}

// Move selects the page delta positions away, wrapping at both ends.
func (n *Navigator) Move(delta int) bool {
	count := len(n.pages)
	if count <= 1 {
		return false
	}
	next := ((n.active+delta)%count + count) % count
	return n.SelectIndex(next)
}

// Handler returns the select handler for key, or nil for an unknown key.
// The same *Handler is returned until the page order changes.
func (n *Navigator) Handler(key string) *Handler {
	return n.handlers[key]
}

// Handlers returns the handler for every page keyed by page key.
func (n *Navigator) Handlers() map[string]*Handler {
	out := make(map[string]*Handler, len(n.handlers))
	for k, h := range n.handlers {
		out[k] = h
	}
	return out
}

// Snapshot captures the current state.
func (n *Navigator) Snapshot() Snapshot {
	page := n.ActivePage()
	return Snapshot{
		Pages:         n.Pages(),
		ActiveIndex:   n.active,
		ActivePage:    page,
		ActivePageKey: page.Key,
	}
}

func (n *Navigator) rebuildHandlers() {
	n.order = keyOrder(n.pages)
	n.handlers = make(map[string]*Handler, len(n.pages))
	for _, p := range n.pages {
		n.handlers[p.Key] = &Handler{nav: n, key: p.Key}
	}
}

// Handler is a pre-bound selection for one page. It selects by key, so a
// handler kept across a reorder still reaches its own page.
type Handler struct {
	nav *Navigator
	key string
}

// Key returns the page key the handler selects.
func (h *Handler) Key() string {
	return h.key
}

// Press selects the handler's page.
func (h *Handler) Press() bool {
	if h == nil || h.nav == nil {
		return false
	}
	return h.nav.SelectKey(h.key)
}

func keyOrder(pages []Page) string {
	keys := make([]string, len(pages))
	for i, p := range pages {
		keys[i] = p.Key
	}
	return strings.Join(keys, "\x00")
}

func normalizeLimit(maxPages int) int {
	if maxPages <= 0 {
		return DefaultMaxPages
	}
	return maxPages
}

// fingerprint identifies a raw Reconfigure input by value. Renderers are
// compared by code pointer since funcs cannot be hashed.
type fingerprint struct {
	valid     bool
	hash      uint64
	renderers []uintptr
	limit     int
}

func fingerprintOf(pages []Page, maxPages int) fingerprint {
	fp := fingerprint{limit: normalizeLimit(maxPages)}
	h, err := hashstructure.Hash(pages, hashstructure.FormatV2, nil)
	if err != nil {
		// Unhashable props (funcs, channels) always revalidate.
		return fp
	}
	fp.valid = true
	fp.hash = h
	fp.renderers = make([]uintptr, len(pages))
	for i, p := range pages {
		if p.Renderer != nil {
			fp.renderers[i] = reflect.ValueOf(p.Renderer).Pointer()
		}
	}
	return fp
}

func (f fingerprint) equal(other fingerprint) bool {
	if !f.valid || !other.valid {
		return false
	}
	return f.hash == other.hash && f.limit == other.limit && slices.Equal(f.renderers, other.renderers)
}
