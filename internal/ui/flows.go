package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gravitrone/corelayout/internal/config"
	"github.com/gravitrone/corelayout/internal/ui/components"
)

// FlowRenderer builds a full-screen flow. The flow runs complete once the
// user has finished it.
type FlowRenderer func(complete tea.Cmd) tea.Model

// FlowCompleteMsg is sent by the complete command handed to a flow.
type FlowCompleteMsg struct{}

// dirtyFlow is implemented by flows holding input that quitting would lose.
type dirtyFlow interface {
	Dirty() bool
}

// --- Onboarding ---

type onboardingStep struct {
	title string
	desc  string
	keys  string
}

var onboardingSteps = []onboardingStep{
	{title: "Welcome", desc: "corelayout opens on a tabbed home screen once you are set up.", keys: "Enter to continue"},
	{title: "Navigate", desc: "Switch pages with ←/→ or jump straight to one with its number.", keys: "←/→, 1-9"},
	{title: "Make it yours", desc: "Pages, icons and the entry rule live in ~/.corelayout/config and reload on save.", keys: "Enter to finish"},
}

// OnboardingModel walks through the welcome steps. Finishing or skipping
// marks onboarding complete in the config.
type OnboardingModel struct {
	store    *config.Store
	complete tea.Cmd
	step     int
	skipped  bool
	err      string
	width    int
}

// OnboardingFlow returns the built-in onboarding flow.
func OnboardingFlow(store *config.Store) FlowRenderer {
	return func(complete tea.Cmd) tea.Model {
		return OnboardingModel{store: store, complete: complete}
	}
}

func (m OnboardingModel) Init() tea.Cmd { return nil }

func (m OnboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch {
		case isBack(msg):
			m.skipped = true
			return m.finish()
		case isKey(msg, "left"):
			if m.step > 0 {
				m.step--
			}
		case isKey(msg, "right"), isKey(msg, "tab"):
			if m.step < len(onboardingSteps)-1 {
				m.step++
			}
		case isEnter(msg):
			if m.step < len(onboardingSteps)-1 {
				m.step++
				return m, nil
			}
			return m.finish()
		}
	}
	return m, nil
}

// Skipped reports whether the user left with esc.
func (m OnboardingModel) Skipped() bool {
	return m.skipped
}

func (m OnboardingModel) finish() (tea.Model, tea.Cmd) {
	if m.store != nil {
		err := m.store.Update(func(c *config.Config) {
			c.OnboardingComplete = true
		})
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
	}
	m.err = ""
	return m, m.complete
}

func (m OnboardingModel) View() string {
	step := onboardingSteps[min(max(m.step, 0), len(onboardingSteps)-1)]
	rows := []components.TableRow{
		{Label: "Step", Value: fmt.Sprintf("%d/%d %s", m.step+1, len(onboardingSteps), step.title)},
		{Label: "About", Value: step.desc},
		{Label: "Keys", Value: step.keys},
	}
	body := components.Table("Getting Started", rows, m.width) + "\n\n" +
		MutedStyle.Render("Use ←/→ to change step, Enter to continue, Esc to skip.")
	if m.err != "" {
		body += "\n\n" + components.ErrorBox("Could not save", m.err, m.width)
	}
	return components.Indent(components.TitledBox("Welcome", body, m.width), 1)
}

// --- Auth ---

const (
	authFieldUsername = iota
	authFieldToken
	authFieldCount
)

// AuthModel collects a username and an access token and stores them in the
// config.
type AuthModel struct {
	store    *config.Store
	complete tea.Cmd
	inputs   []textinput.Model
	focus    int
	err      string
	width    int
}

// AuthFlow returns the built-in sign-in flow.
func AuthFlow(store *config.Store) FlowRenderer {
	return func(complete tea.Cmd) tea.Model {
		return newAuthModel(store, complete)
	}
}

func newAuthModel(store *config.Store, complete tea.Cmd) AuthModel {
	user := textinput.New()
	user.Prompt = "Username: "
	user.Placeholder = "alice"
	user.CharLimit = 64

	token := textinput.New()
	token.Prompt = "Token:    "
	token.Placeholder = "paste your access token"
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'
	token.CharLimit = 256

	if store != nil {
		user.SetValue(store.Config().Username)
	}
	user.Focus()
	return AuthModel{
		store:    store,
		complete: complete,
		inputs:   []textinput.Model{user, token},
	}
}

func (m AuthModel) Init() tea.Cmd {
	return textinput.Blink
}

// Dirty reports whether the form holds typed input.
func (m AuthModel) Dirty() bool {
	return strings.TrimSpace(m.inputs[authFieldToken].Value()) != ""
}

func (m AuthModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case isBack(msg):
			for i := range m.inputs {
				m.inputs[i].Reset()
			}
			m.err = ""
			return m, m.setFocus(authFieldUsername)
		case isKey(msg, "tab", "down"):
			return m, m.setFocus((m.focus + 1) % authFieldCount)
		case isKey(msg, "shift+tab", "up"):
			return m, m.setFocus((m.focus + authFieldCount - 1) % authFieldCount)
		case isEnter(msg):
			if m.focus == authFieldUsername {
				return m, m.setFocus(authFieldToken)
			}
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *AuthModel) setFocus(field int) tea.Cmd {
	m.focus = field
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == field {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

func (m AuthModel) submit() (tea.Model, tea.Cmd) {
	token := strings.TrimSpace(m.inputs[authFieldToken].Value())
	if token == "" {
		m.err = "token is required"
		return m, nil
	}
	username := strings.TrimSpace(m.inputs[authFieldUsername].Value())
	if m.store != nil {
		err := m.store.Update(func(c *config.Config) {
			c.APIKey = token
			c.Username = username
		})
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
	}
	m.err = ""
	return m, m.complete
}

func (m AuthModel) View() string {
	lines := make([]string, 0, len(m.inputs)+4)
	for i, in := range m.inputs {
		line := in.View()
		if i == m.focus {
			line = SelectedStyle.Render("› ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	lines = append(lines, "")
	switch {
	case m.err != "":
		lines = append(lines, ErrorStyle.Render(components.SanitizeOneLine(m.err)))
	default:
		lines = append(lines, MutedStyle.Render("Tab to switch field, Enter to sign in, Esc to clear."))
	}
	return components.Indent(components.ActiveTitledBox("Sign in", strings.Join(lines, "\n"), m.width), 1)
}
