package ui

import (
	"fmt"
	"reflect"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/gravitrone/corelayout/internal/layout"
	"github.com/gravitrone/corelayout/internal/logging"
	"github.com/gravitrone/corelayout/internal/ui/components"
)

const (
	maxPageHistory = 50

	// placeholderIcon stands in for icons a terminal cannot draw.
	placeholderIcon = "▣"
)

// PageChange is one accepted page selection.
type PageChange struct {
	Key   string
	Index int
	At    time.Time
}

// ShellOptions configures NewShell.
type ShellOptions struct {
	Pages          []layout.Page
	MaxPages       int
	InitialPageKey string
	// OnPageChange receives the newly active key after every accepted selection.
	OnPageChange func(key string)
	Logger       *zerolog.Logger
	Warner       logging.Warner
	// Now is overridable for tests.
	Now func() time.Time
}

// Shell is the tabbed home screen: a navigator, one lazily built model per
// page and a bottom tab bar.
type Shell struct {
	nav     *layout.Navigator
	models  map[string]tea.Model
	pages   map[string]layout.Page
	history []PageChange
	pending []string

	width  int
	height int

	onChange func(string)
	now      func() time.Time
	warn     logging.Warner
	log      zerolog.Logger
}

// NewShell validates opts.Pages and builds the shell.
func NewShell(opts ShellOptions) (*Shell, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "shell").Logger()
	}
	s := &Shell{
		models:   make(map[string]tea.Model),
		onChange: opts.OnPageChange,
		now:      opts.Now,
		warn:     opts.Warner,
		log:      log,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.warn == nil {
		s.warn = logging.Once(logging.LogWarner(log))
	}
	nav, err := layout.New(layout.Options{
		Pages:          opts.Pages,
		MaxPages:       opts.MaxPages,
		InitialPageKey: opts.InitialPageKey,
		OnPageChange:   s.recordChange,
		Logger:         opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	s.nav = nav
	s.indexPages()
	return s, nil
}

// Navigator exposes the underlying navigator.
func (s *Shell) Navigator() *layout.Navigator {
	return s.nav
}

// History returns the recorded page changes, oldest first.
func (s *Shell) History() []PageChange {
	out := make([]PageChange, len(s.history))
	copy(out, s.history)
	return out
}

// Init builds the active page.
func (s *Shell) Init() tea.Cmd {
	_, cmd := s.activeModel()
	return cmd
}

// SetSize records the terminal size and forwards it to every live page.
func (s *Shell) SetSize(width, height int) tea.Cmd {
	s.width, s.height = width, height
	return s.broadcast(tea.WindowSizeMsg{Width: width, Height: height})
}

// Update handles page selection keys and forwards everything else to the
// active page.
func (s *Shell) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch {
		case isLeft(key):
			s.nav.Move(-1)
			return s.flush()
		case isRight(key):
			s.nav.Move(1)
			return s.flush()
		}
		if idx, ok := tabIndexForKey(key.String(), s.nav.Len()); ok {
			s.nav.Handler(s.nav.Pages()[idx].Key).Press()
			return s.flush()
		}
	}
	return s.updateActive(msg)
}

// Select activates key and returns the commands the switch produced.
func (s *Shell) Select(key string) tea.Cmd {
	s.nav.SelectKey(key)
	return s.flush()
}

// Reconfigure swaps in a new page set. Models of removed pages, and of pages
// whose renderer or props changed, are dropped. On error nothing changes.
func (s *Shell) Reconfigure(pages []layout.Page, maxPages int) (tea.Cmd, error) {
	changed, err := s.nav.Reconfigure(pages, maxPages)
	if err != nil || !changed {
		return nil, err
	}
	prev := s.pages
	s.indexPages()
	for key := range s.models {
		next, ok := s.pages[key]
		if !ok || !samePage(prev[key], next) {
			delete(s.models, key)
		}
	}
	s.log.Debug().Int("pages", s.nav.Len()).Str("active", s.nav.ActivePageKey()).Msg("shell reconfigured")
	_, cmd := s.activeModel()
	return cmd, nil
}

// View renders the active page above the tab bar.
func (s *Shell) View() string {
	model, _ := s.activeModel()
	content := ""
	if model != nil {
		content = model.View()
	}
	return content + "\n\n" + s.renderTabs()
}

func (s *Shell) renderTabs() string {
	pages := s.nav.Pages()
	active := s.nav.ActiveIndex()
	segments := make([]string, 0, len(pages))
	for i, p := range pages {
		label := components.SanitizeOneLine(p.Title)
		if icon := s.iconText(p); icon != "" {
			label = icon + " " + label
		}
		if i == active {
			segments = append(segments, TabActiveStyle.Render(label))
		} else {
			segments = append(segments, TabInactiveStyle.Render(label))
		}
	}
	return TabBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, segments...))
}

func (s *Shell) iconText(p layout.Page) string {
	switch icon := p.Icon.(type) {
	case nil:
		return ""
	case layout.Glyph:
		return components.SanitizeOneLine(string(icon))
	default:
		s.warn.Warn("shell.image-icon", "image icons are drawn as a placeholder glyph in the terminal")
		return placeholderIcon
	}
}

// recordChange runs inside navigator selection; the work that needs the
// shell's models is deferred to flush.
func (s *Shell) recordChange(key string) {
	s.pending = append(s.pending, key)
}

func (s *Shell) flush() tea.Cmd {
	if len(s.pending) == 0 {
		return nil
	}
	keys := s.pending
	s.pending = nil
	for _, key := range keys {
		s.history = append(s.history, PageChange{
			Key:   key,
			Index: layout.IndexOf(s.nav.Pages(), key),
			At:    s.now(),
		})
		s.log.Debug().Str("page", key).Msg("page changed")
		if s.onChange != nil {
			s.onChange(key)
		}
	}
	if over := len(s.history) - maxPageHistory; over > 0 {
		s.history = s.history[over:]
	}
	_, initCmd := s.activeModel()
	return tea.Batch(initCmd, s.broadcast(PageHistoryMsg{Entries: s.History()}))
}

// activeModel returns the active page's model, building it on first use. The
// returned command is the new model's Init, or nil for an existing model.
func (s *Shell) activeModel() (tea.Model, tea.Cmd) {
	page := s.nav.ActivePage()
	if m, ok := s.models[page.Key]; ok {
		return m, nil
	}
	m := page.Render()
	if m == nil {
		return nil, nil
	}
	var cmds []tea.Cmd
	cmds = append(cmds, m.Init())
	if s.width > 0 {
		var cmd tea.Cmd
		m, cmd = m.Update(tea.WindowSizeMsg{Width: s.width, Height: s.height})
		cmds = append(cmds, cmd)
	}
	if len(s.history) > 0 {
		var cmd tea.Cmd
		m, cmd = m.Update(PageHistoryMsg{Entries: s.History()})
		cmds = append(cmds, cmd)
	}
	s.models[page.Key] = m
	return m, tea.Batch(cmds...)
}

func (s *Shell) updateActive(msg tea.Msg) tea.Cmd {
	m, initCmd := s.activeModel()
	if m == nil {
		return initCmd
	}
	next, cmd := m.Update(msg)
	s.models[s.nav.ActivePageKey()] = next
	return tea.Batch(initCmd, cmd)
}

func (s *Shell) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for key, m := range s.models {
		next, cmd := m.Update(msg)
		s.models[key] = next
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (s *Shell) indexPages() {
	pages := s.nav.Pages()
	s.pages = make(map[string]layout.Page, len(pages))
	for _, p := range pages {
		s.pages[p.Key] = p
	}
}

// samePage reports whether a live model built from a can keep serving b.
func samePage(a, b layout.Page) bool {
	if rendererPointer(a.Renderer) != rendererPointer(b.Renderer) {
		return false
	}
	return reflect.DeepEqual(a.InitialProps, b.InitialProps)
}

func rendererPointer(r layout.Renderer) uintptr {
	if r == nil {
		return 0
	}
	return reflect.ValueOf(r).Pointer()
}

// shellHints lists the shell's own key hints.
func shellHints(pageCount int) []components.KeyHint {
	hints := []components.KeyHint{{Key: "←/→", Desc: "Switch page"}}
	if pageCount > 1 {
		hints = append(hints, components.KeyHint{Key: fmt.Sprintf("1-%d", min(pageCount, 9)), Desc: "Jump"})
	}
	return hints
}
