package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitrone/corelayout/internal/config"
	"github.com/gravitrone/corelayout/internal/layout"
)

func TestDefaultRegistryNames(t *testing.T) {
	reg := DefaultRegistry(nil)
	assert.Equal(t, []string{"activity", "settings", "text"}, reg.Names())
	assert.Nil(t, reg.Lookup("nope"))
}

func TestDefaultPagesResolveAgainstRegistry(t *testing.T) {
	reg := DefaultRegistry(config.NewStore("", nil))
	pages := config.Shell{}.LayoutPages(reg.Lookup)

	validated, err := layout.Validate(pages, 0)
	require.NoError(t, err)
	for _, p := range validated {
		assert.NotNil(t, p.Render(), p.Key)
	}
}

func TestTextPageRendersProps(t *testing.T) {
	m := NewTextPage(map[string]any{
		"heading": "Hello",
		"body":    "first",
		"lines":   []any{"second", 3},
	})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	view := m.View()
	assert.Contains(t, view, "Hello")
	assert.Contains(t, view, "first")
	assert.Contains(t, view, "second")
	assert.Contains(t, view, "3")
}

func TestTextPageStripsEscapes(t *testing.T) {
	m := NewTextPage(map[string]any{"heading": "H", "body": "ok\x1b]0;title\x07done"})
	assert.NotContains(t, m.View(), "\x1b]")
	assert.Contains(t, m.View(), "okdone")
}

func TestTextPageEmptyBody(t *testing.T) {
	m := NewTextPage(nil)
	assert.Contains(t, m.View(), "Nothing here yet.")
}

func history(keys ...string) PageHistoryMsg {
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	msg := PageHistoryMsg{}
	for i, k := range keys {
		msg.Entries = append(msg.Entries, PageChange{Key: k, Index: i, At: at.Add(time.Duration(i) * time.Minute)})
	}
	return msg
}

func TestActivityPageListsNewestFirst(t *testing.T) {
	m := NewActivityPage(nil)
	assert.Contains(t, m.View(), "No page changes yet.")

	m, _ = m.Update(history("home", "settings"))
	page := m.(ActivityPage)
	require.Len(t, page.entries, 2)
	assert.Equal(t, "settings", page.entries[0].Key)
	assert.Equal(t, "home", page.entries[1].Key)

	view := m.View()
	assert.Contains(t, view, "settings")
	assert.Contains(t, view, "09:01:00")
	assert.Contains(t, view, "1 of 2")
}

func TestActivityPageLimitAndScroll(t *testing.T) {
	m := NewActivityPage(map[string]any{"limit": 2})
	m, _ = m.Update(history("a", "b", "c"))
	page := m.(ActivityPage)
	require.Len(t, page.entries, 2)
	assert.Equal(t, "c", page.entries[0].Key)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Contains(t, m.View(), "2 of 2")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Contains(t, m.View(), "2 of 2")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Contains(t, m.View(), "1 of 2")
}

func TestSettingsPageReadsLiveConfig(t *testing.T) {
	store := config.NewStore("", &config.Config{Username: "ada"})
	m := NewSettingsPage(store, nil)
	view := m.View()
	assert.Contains(t, view, "Settings")
	assert.Contains(t, view, "ada")
	assert.Contains(t, view, "not signed in")
	assert.Contains(t, view, "(in memory)")

	require.NoError(t, store.Update(func(c *config.Config) {
		c.APIKey = "abcd1234wxyz"
		c.OnboardingComplete = true
	}))
	view = m.View()
	assert.Contains(t, view, "abcd••••wxyz")
	assert.NotContains(t, view, "1234")
	assert.Contains(t, view, "yes")
}

func TestSettingsPageCustomTitle(t *testing.T) {
	m := NewSettingsPage(nil, map[string]any{"title": "Prefs"})
	view := m.View()
	assert.Contains(t, view, "Prefs")
	assert.Contains(t, view, "No config loaded.")
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "not signed in", maskToken("  "))
	assert.Equal(t, "•••", maskToken("abc"))
	assert.Equal(t, "abcd••••6789", maskToken("abcd-12345-6789"))
	assert.Equal(t, 12, len([]rune(maskToken("abcdefghijklmnop"))))
	assert.False(t, strings.Contains(maskToken("secret-token-value"), "token"))
}

func TestPropHelpers(t *testing.T) {
	props := map[string]any{"s": "x", "n": 7, "f": 2.0, "u": uint64(4), "list": []any{"a", 1}, "other": true}
	assert.Equal(t, "x", propString(props, "s"))
	assert.Equal(t, "true", propString(props, "other"))
	assert.Equal(t, "", propString(props, "missing"))
	assert.Equal(t, 7, propInt(props, "n"))
	assert.Equal(t, 2, propInt(props, "f"))
	assert.Equal(t, 4, propInt(props, "u"))
	assert.Equal(t, 0, propInt(props, "s"))
	assert.Equal(t, []string{"a", "1"}, propStrings(props, "list"))
	assert.Nil(t, propStrings(props, "s"))
}
