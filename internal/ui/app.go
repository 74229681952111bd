package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/gravitrone/corelayout/internal/config"
	"github.com/gravitrone/corelayout/internal/gate"
	"github.com/gravitrone/corelayout/internal/layout"
	"github.com/gravitrone/corelayout/internal/logging"
	"github.com/gravitrone/corelayout/internal/ui/components"
	"github.com/gravitrone/corelayout/internal/watch"
)

const toastTTL = 2500 * time.Millisecond

// --- Messages ---

type resolvedMsg struct{ out gate.Outcome }
type configChangedMsg struct{}
type configWatchErrMsg struct{ err error }
type clearToastMsg struct{}

type appToast struct {
	level string
	text  string
}

// Options configures NewApp.
type Options struct {
	// Store holds the live config. Nil means an empty in-memory config.
	Store *config.Store
	// Registry resolves renderer names. Nil means DefaultRegistry(Store).
	Registry Registry
	// Resolver overrides the config's entry expression.
	Resolver gate.Resolver
	// ResolveTimeout overrides entry.timeout from the config.
	ResolveTimeout time.Duration

	// Onboarding and Auth are the optional flows. A nil flow removes the
	// capability, and resolving into that mode is fatal.
	Onboarding FlowRenderer
	Auth       FlowRenderer
	// RenderLoading replaces the built-in loading view.
	RenderLoading func(width, height int) string

	InitialPage string
	MaxPages    int

	// Watcher, when set, triggers a config reload on every change.
	Watcher *watch.Watcher
	Logger  *zerolog.Logger
	Warner  logging.Warner
	Context context.Context
}

// --- App Model ---

// App is the root TUI model: it runs the entry gate and shows the loading
// view, the failure view, a flow or the tabbed shell.
type App struct {
	opts  Options
	ctx   context.Context
	store *config.Store
	reg   Registry
	gate  *gate.Controller
	req   gate.Request
	shell *Shell

	flow     tea.Model
	flowMode gate.EntryMode

	spinner     spinner.Model
	width       int
	height      int
	helpOpen    bool
	quitConfirm bool
	layoutErr   string
	toast       *appToast
	fatal       error

	log  zerolog.Logger
	warn logging.Warner
}

// NewApp builds the root model and starts the first resolution.
func NewApp(opts Options) App {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := zerolog.Nop()
	switch {
	case opts.Logger != nil:
		log = *opts.Logger
	case logging.FromContext(ctx) != nil:
		log = *logging.FromContext(ctx)
	}
	warn := opts.Warner
	if warn == nil {
		warn = logging.Once(logging.LogWarner(log))
	}
	store := opts.Store
	if store == nil {
		store = config.NewStore("", nil)
	}
	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry(store)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SelectedStyle

	caps := gate.Capabilities{
		Onboarding: opts.Onboarding != nil,
		Auth:       opts.Auth != nil,
	}
	a := App{
		opts:    opts,
		ctx:     logging.WithContext(ctx, log),
		store:   store,
		reg:     reg,
		gate:    gate.NewController(caps, gate.WithLogger(&log), gate.WithWarner(warn)),
		spinner: sp,
		log:     log,
		warn:    warn,
	}
	a.req = a.gate.Begin(a.resolver())
	if err := a.buildShell(); err != nil {
		a.layoutErr = err.Error()
	}
	return a
}

// Err returns the fatal error that ended the program, if any.
func (a App) Err() error {
	return a.fatal
}

// State returns the gate state.
func (a App) State() gate.State {
	return a.gate.State()
}

// Shell returns the home shell, or nil while the page set is invalid.
func (a App) Shell() *Shell {
	return a.shell
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick, a.resolveCmd(a.req), a.waitForConfigChange()}
	if a.shell != nil {
		cmds = append(cmds, a.shell.Init())
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var cmds []tea.Cmd
		if a.shell != nil {
			cmds = append(cmds, a.shell.SetSize(msg.Width, msg.Height))
		}
		if a.flow != nil {
			var cmd tea.Cmd
			a.flow, cmd = a.flow.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case spinner.TickMsg:
		if a.gate.State().Status != gate.Pending {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case resolvedMsg:
		applied, err := a.gate.Apply(msg.out)
		if !applied {
			return a, nil
		}
		if err != nil {
			return a.fail(err)
		}
		return a, a.syncEntry()

	case FlowCompleteMsg:
		if a.flow == nil {
			return a, nil
		}
		mode := a.flowMode
		a.gate.Complete()
		cmd := a.syncEntry()
		if mode == gate.Auth {
			return a, tea.Batch(cmd, a.setToast("success", "Signed in."))
		}
		return a, tea.Batch(cmd, a.setToast("success", "You're all set."))

	case configChangedMsg:
		cmd := a.reloadConfig()
		return a, tea.Batch(cmd, a.waitForConfigChange())

	case configWatchErrMsg:
		if errors.Is(msg.err, watch.ErrFileRemoved) {
			cmd := a.reloadConfig()
			return a, tea.Batch(cmd, a.waitForConfigChange())
		}
		a.log.Warn().Err(msg.err).Msg("config watch error")
		return a, tea.Batch(a.setToast("warning", "Config watch: "+msg.err.Error()), a.waitForConfigChange())

	case clearToastMsg:
		a.toast = nil
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.forward(msg)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.quitConfirm {
		switch {
		case isKey(msg, "y"):
			return a.quit()
		case isKey(msg, "n"), isBack(msg):
			a.quitConfirm = false
		}
		return a, nil
	}
	if a.helpOpen {
		if isBack(msg) || isKey(msg, "?") {
			a.helpOpen = false
		}
		return a, nil
	}

	state := a.gate.State()
	if isKey(msg, "ctrl+c") {
		if a.flowDirty() {
			a.quitConfirm = true
			return a, nil
		}
		return a.quit()
	}

	switch state.Status {
	case gate.Pending:
		if isQuit(msg) {
			return a.quit()
		}
		return a, nil
	case gate.Failed:
		switch {
		case isQuit(msg):
			return a.quit()
		case isKey(msg, "r"):
			return a, a.restart()
		}
		return a, nil
	}

	if a.flow != nil {
		var cmd tea.Cmd
		a.flow, cmd = a.flow.Update(msg)
		return a, cmd
	}

	switch {
	case isQuit(msg):
		return a.quit()
	case isKey(msg, "?"):
		a.helpOpen = true
		return a, nil
	case isKey(msg, "O") && a.gate.Capabilities().Onboarding:
		if err := a.gate.GoToOnboarding(); err != nil {
			return a.fail(err)
		}
		return a, a.syncEntry()
	case isKey(msg, "L") && a.gate.Capabilities().Auth:
		if err := a.gate.GoToAuth(); err != nil {
			return a.fail(err)
		}
		return a, a.syncEntry()
	}
	if a.shell == nil {
		return a, nil
	}
	return a, a.shell.Update(msg)
}

// forward hands non-key messages to whatever is on screen.
func (a App) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.flow != nil {
		var cmd tea.Cmd
		a.flow, cmd = a.flow.Update(msg)
		return a, cmd
	}
	if a.shell != nil && a.gate.State().Status == gate.Ready {
		return a, a.shell.Update(msg)
	}
	return a, nil
}

func (a App) quit() (tea.Model, tea.Cmd) {
	a.gate.Close()
	return a, tea.Quit
}

// fail records a fatal error and stops the program.
func (a App) fail(err error) (tea.Model, tea.Cmd) {
	a.fatal = err
	a.log.Error().Err(err).Msg("fatal gate error")
	a.gate.Close()
	return a, tea.Quit
}

// syncEntry builds or drops the flow model to match the gate entry.
func (a *App) syncEntry() tea.Cmd {
	state := a.gate.State()
	if state.Status != gate.Ready {
		return nil
	}
	if state.Entry == a.flowMode && (a.flow != nil || state.Entry == gate.Home) {
		return nil
	}

	var render FlowRenderer
	switch state.Entry {
	case gate.Onboarding:
		render = a.opts.Onboarding
	case gate.Auth:
		render = a.opts.Auth
	}
	if render == nil {
		a.flow = nil
		a.flowMode = gate.Home
		return nil
	}

	a.flow = render(func() tea.Msg { return FlowCompleteMsg{} })
	a.flowMode = state.Entry
	cmds := []tea.Cmd{a.flow.Init()}
	if a.width > 0 {
		var cmd tea.Cmd
		a.flow, cmd = a.flow.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (a App) flowDirty() bool {
	d, ok := a.flow.(dirtyFlow)
	return ok && d.Dirty()
}

// --- Resolution ---

// resolver builds the entry resolver from the options or the live config.
// An expression that does not compile becomes a resolver that fails with the
// compile error, so it surfaces in the failure view.
func (a App) resolver() gate.Resolver {
	cfg := a.store.Config()
	r := a.opts.Resolver
	if r == nil {
		compiled, err := gate.Expr(cfg.EntryExpression(), a.store.FactSource())
		if err != nil {
			r = gate.ResolverFunc(func(context.Context) (gate.EntryMode, error) {
				return "", err
			})
		} else {
			r = compiled
		}
	}
	timeout := a.opts.ResolveTimeout
	if timeout <= 0 {
		timeout = cfg.Entry.Timeout
	}
	return gate.WithTimeout(r, timeout)
}

func (a App) resolveCmd(req gate.Request) tea.Cmd {
	runner := a.gate.Runner()
	ctx := a.ctx
	return func() tea.Msg {
		return resolvedMsg{out: runner.Run(ctx, req)}
	}
}

// restart begins a fresh resolution; any in-flight one becomes stale.
func (a *App) restart() tea.Cmd {
	a.req = a.gate.Begin(a.resolver())
	return tea.Batch(a.spinner.Tick, a.resolveCmd(a.req))
}

// --- Config Reload ---

func (a App) waitForConfigChange() tea.Cmd {
	w := a.opts.Watcher
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-w.Changed():
			return configChangedMsg{}
		case err := <-w.Errors():
			return configWatchErrMsg{err: err}
		}
	}
}

// reloadConfig re-reads the config, reconfigures the shell and re-resolves
// the gate when the entry rule changed.
func (a *App) reloadConfig() tea.Cmd {
	prevExpr := a.store.Config().EntryExpression()
	cfg, err := a.store.Reload()
	if err != nil {
		a.log.Warn().Err(err).Msg("config reload failed")
		return a.setToast("error", "Config reload failed: "+err.Error())
	}
	a.log.Debug().Str("path", a.store.Path()).Msg("config reloaded")

	var cmds []tea.Cmd
	if a.shell == nil {
		if err := a.buildShell(); err != nil {
			a.layoutErr = err.Error()
		} else {
			a.layoutErr = ""
			cmds = append(cmds, a.shell.Init())
			if a.width > 0 {
				cmds = append(cmds, a.shell.SetSize(a.width, a.height))
			}
		}
	} else {
		cmd, err := a.shell.Reconfigure(a.pages(cfg), a.maxPages(cfg))
		if err != nil {
			a.log.Warn().Err(err).Msg("layout rejected, keeping previous pages")
			a.layoutErr = err.Error()
		} else {
			a.layoutErr = ""
			cmds = append(cmds, cmd)
		}
	}

	if a.opts.Resolver == nil && cfg.EntryExpression() != prevExpr {
		a.log.Debug().Str("expression", cfg.EntryExpression()).Msg("entry rule changed")
		cmds = append(cmds, a.restart())
	}
	return tea.Batch(cmds...)
}

func (a *App) buildShell() error {
	cfg := a.store.Config()
	initial := a.opts.InitialPage
	if initial == "" {
		initial = cfg.Shell.InitialPage
	}
	shell, err := NewShell(ShellOptions{
		Pages:          a.pages(cfg),
		MaxPages:       a.maxPages(cfg),
		InitialPageKey: initial,
		Logger:         &a.log,
		Warner:         a.warn,
	})
	if err != nil {
		return err
	}
	a.shell = shell
	return nil
}

func (a App) pages(cfg *config.Config) []layout.Page {
	return cfg.Shell.LayoutPages(a.reg.Lookup)
}

func (a App) maxPages(cfg *config.Config) int {
	if a.opts.MaxPages > 0 {
		return a.opts.MaxPages
	}
	return cfg.Shell.MaxPages
}

// --- Toast ---

func (a *App) setToast(level, text string) tea.Cmd {
	a.toast = &appToast{
		level: level,
		text:  components.SanitizeOneLine(text),
	}
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return clearToastMsg{}
	})
}

func (a App) renderToast() string {
	if a.toast == nil {
		return ""
	}
	title, text := "Info", a.toast.text
	switch a.toast.level {
	case "success":
		title, text = "Success", SuccessStyle.Render(text)
	case "warning":
		title, text = "Warning", WarningStyle.Render(text)
	case "error":
		return components.ErrorBox("Error", text, a.width)
	}
	return components.TitledBox(title, text, a.width)
}

// --- View ---

func (a App) View() string {
	state := a.gate.State()
	if state.Status == gate.Pending && a.opts.RenderLoading != nil {
		return a.opts.RenderLoading(a.width, a.height)
	}

	banner := components.CenterBlock(RenderBanner(), a.width)
	var content string
	switch {
	case state.Status == gate.Pending:
		content = a.renderLoading()
	case state.Status == gate.Failed:
		content = a.renderFailed(state.Err)
	case a.flow != nil:
		content = a.flow.View()
	default:
		content = a.renderHome()
	}
	if a.quitConfirm {
		content = components.Indent(components.ConfirmDialog("Quit", "You have unsaved input. Quit anyway?"), 1)
	} else if a.helpOpen {
		content = a.renderHelp()
	}
	content = components.CenterBlock(content, a.width)

	hints := components.StatusBar(a.statusHints(), a.width)
	feedback := ""
	if a.toast != nil {
		feedback = "\n\n" + components.CenterBlock(a.renderToast(), a.width)
	}
	return fmt.Sprintf("%s\n%s\n\n%s%s", banner, content, hints, feedback)
}

func (a App) renderLoading() string {
	return a.spinner.View() + " " + MutedStyle.Render("Resolving entry…")
}

func (a App) renderFailed(err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return components.ErrorBox("Something went wrong", msg, a.width)
}

func (a App) renderHome() string {
	if a.width == 0 && a.height == 0 {
		a.warn.Warn("shell.no-size", "shell rendered before the terminal size was known; using unbounded layout")
	}
	var parts []string
	if a.layoutErr != "" {
		parts = append(parts, components.ErrorBox("Invalid layout", a.layoutErr, a.width))
	}
	if a.shell != nil {
		parts = append(parts, a.shell.View())
	}
	return strings.Join(parts, "\n\n")
}

func (a App) renderHelp() string {
	lines := []string{HeaderStyle.Render("Keys"), MutedStyle.Render("esc to close"), ""}
	for _, h := range a.homeHints() {
		lines = append(lines, "  "+h.String())
	}
	return components.Indent(components.TitledBox("Help", strings.Join(lines, "\n"), a.width), 1)
}

func (a App) statusHints() []components.KeyHint {
	if a.quitConfirm {
		return []components.KeyHint{{Key: "y", Desc: "Confirm"}, {Key: "n", Desc: "Cancel"}}
	}
	if a.helpOpen {
		return []components.KeyHint{{Key: "esc", Desc: "Back"}}
	}
	state := a.gate.State()
	switch {
	case state.Status == gate.Pending:
		return []components.KeyHint{{Key: "q", Desc: "Quit"}}
	case state.Status == gate.Failed:
		return []components.KeyHint{{Key: "r", Desc: "Retry"}, {Key: "q", Desc: "Quit"}}
	case a.flowMode == gate.Onboarding && a.flow != nil:
		return []components.KeyHint{{Key: "←/→", Desc: "Step"}, {Key: "enter", Desc: "Next"}, {Key: "esc", Desc: "Skip"}}
	case a.flowMode == gate.Auth && a.flow != nil:
		return []components.KeyHint{{Key: "tab", Desc: "Field"}, {Key: "enter", Desc: "Sign in"}, {Key: "ctrl+c", Desc: "Quit"}}
	}
	return a.homeHints()
}

func (a App) homeHints() []components.KeyHint {
	var hints []components.KeyHint
	if a.shell != nil {
		hints = shellHints(a.shell.Navigator().Len())
	}
	caps := a.gate.Capabilities()
	if caps.Onboarding {
		hints = append(hints, components.KeyHint{Key: "O", Desc: "Onboarding"})
	}
	if caps.Auth {
		hints = append(hints, components.KeyHint{Key: "L", Desc: "Sign in"})
	}
	return append(hints,
		components.KeyHint{Key: "?", Desc: "Help"},
		components.KeyHint{Key: "q", Desc: "Quit"},
	)
}
