package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/corelayout/internal/config"
	"github.com/gravitrone/corelayout/internal/layout"
	"github.com/gravitrone/corelayout/internal/ui/components"
)

// Registry maps renderer names used in the config to page renderers.
type Registry map[string]layout.Renderer

// Lookup returns the renderer registered under name, or nil.
func (r Registry) Lookup(name string) layout.Renderer {
	return r[name]
}

// Names returns the registered renderer names in a stable order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry returns the built-in pages. The settings page reads the
// live config from store.
func DefaultRegistry(store *config.Store) Registry {
	return Registry{
		"text":     NewTextPage,
		"activity": NewActivityPage,
		"settings": func(props map[string]any) tea.Model {
			return NewSettingsPage(store, props)
		},
	}
}

// PageHistoryMsg carries the shell's page-change history, oldest first. The
// shell sends it to live pages after every accepted selection.
type PageHistoryMsg struct {
	Entries []PageChange
}

// --- Text Page ---

// TextPage shows a heading and a body from its props.
type TextPage struct {
	heading string
	body    string
	width   int
}

// NewTextPage builds a text page. Props: heading, body (strings) and lines
// (a list joined into the body).
func NewTextPage(props map[string]any) tea.Model {
	p := TextPage{
		heading: propString(props, "heading"),
		body:    propString(props, "body"),
	}
	if lines := propStrings(props, "lines"); len(lines) > 0 {
		p.body = strings.TrimSpace(p.body + "\n" + strings.Join(lines, "\n"))
	}
	return p
}

func (p TextPage) Init() tea.Cmd { return nil }

func (p TextPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		p.width = size.Width
	}
	return p, nil
}

func (p TextPage) View() string {
	body := components.SanitizeText(p.body)
	if body == "" {
		body = MutedStyle.Render("Nothing here yet.")
	}
	return components.TitledBox(p.heading, NormalStyle.Render(body), p.width)
}

// --- Activity Page ---

const defaultActivityLimit = 20

// ActivityPage lists recent page changes, newest first.
type ActivityPage struct {
	entries []PageChange
	limit   int
	window  *components.Window
	width   int
}

// NewActivityPage builds the activity page. Props: limit (int).
func NewActivityPage(props map[string]any) tea.Model {
	limit := propInt(props, "limit")
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	return ActivityPage{limit: limit, window: components.NewWindow(8)}
}

func (p ActivityPage) Init() tea.Cmd { return nil }

func (p ActivityPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
	case PageHistoryMsg:
		entries := msg.Entries
		if len(entries) > p.limit {
			entries = entries[len(entries)-p.limit:]
		}
		p.entries = make([]PageChange, 0, len(entries))
		for i := len(entries) - 1; i >= 0; i-- {
			p.entries = append(p.entries, entries[i])
		}
		p.window.SetLen(len(p.entries))
		p.window.Top()
	case tea.KeyMsg:
		switch {
		case isUp(msg):
			p.window.Up()
		case isDown(msg):
			p.window.Down()
		}
	}
	return p, nil
}

func (p ActivityPage) View() string {
	if len(p.entries) == 0 {
		return components.TitledBox("Activity", MutedStyle.Render("No page changes yet. Switch pages with ←/→."), p.width)
	}
	cols := []components.TableColumn{
		{Header: "#", Width: 3, Align: lipgloss.Right},
		{Header: "Page", Width: 14},
		{Header: "At", Width: 8, Align: lipgloss.Center},
	}
	start, end := p.window.Range()
	rows := make([][]string, 0, end-start)
	for _, e := range p.entries[start:end] {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Index+1),
			e.Key,
			e.At.Format(time.TimeOnly),
		})
	}
	width := components.BoxContentWidth(p.width)
	if width <= 0 {
		width = 40
	}
	grid := components.TableGrid(cols, rows, width, p.window.Selected()-start)
	footer := MutedStyle.Render(fmt.Sprintf("%d of %d", p.window.Selected()+1, len(p.entries)))
	return components.TitledBox("Activity", grid+"\n\n"+footer, p.width)
}

// --- Settings Page ---

// SettingsPage summarizes the live config.
type SettingsPage struct {
	store *config.Store
	title string
	width int
}

// NewSettingsPage builds the settings page. Props: title.
func NewSettingsPage(store *config.Store, props map[string]any) tea.Model {
	title := propString(props, "title")
	if title == "" {
		title = "Settings"
	}
	return SettingsPage{store: store, title: title}
}

func (p SettingsPage) Init() tea.Cmd { return nil }

func (p SettingsPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		p.width = size.Width
	}
	return p, nil
}

func (p SettingsPage) View() string {
	if p.store == nil {
		return components.TitledBox(p.title, MutedStyle.Render("No config loaded."), p.width)
	}
	cfg := p.store.Config()
	path := p.store.Path()
	if path == "" {
		path = "(in memory)"
	}
	rows := []components.TableRow{
		{Label: "User", Value: valueOr(cfg.Username, "-")},
		{Label: "Token", Value: maskToken(cfg.APIKey)},
		{Label: "Onboarded", Value: yesNo(cfg.OnboardingComplete)},
		{Label: "Theme", Value: valueOr(cfg.Theme, "default")},
		{Label: "Pages", Value: fmt.Sprintf("%d", len(cfg.Shell.PageSpecs()))},
		{Label: "Entry rule", Value: cfg.EntryExpression()},
		{Label: "Config", Value: path},
	}
	return components.Table(p.title, rows, p.width)
}

func maskToken(token string) string {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return "not signed in"
	case len(token) <= 8:
		return strings.Repeat("•", len(token))
	default:
		return token[:4] + strings.Repeat("•", 4) + token[len(token)-4:]
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// --- Props ---

func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func propStrings(props map[string]any, key string) []string {
	raw, ok := props[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func propInt(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
