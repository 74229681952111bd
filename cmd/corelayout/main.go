package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gravitrone/corelayout/internal/cmd"
	"github.com/gravitrone/corelayout/internal/config"
	"github.com/gravitrone/corelayout/internal/gate"
	"github.com/gravitrone/corelayout/internal/logging"
	"github.com/gravitrone/corelayout/internal/ui"
	"github.com/gravitrone/corelayout/internal/watch"
)

// tuiFlags are the root command's overrides of the config file.
type tuiFlags struct {
	entry          string
	initialPage    string
	maxPages       int
	noOnboarding   bool
	noAuth         bool
	resolveTimeout time.Duration
	logFile        string
	noWatch        bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Force truecolor so hex colors render correctly
	// Must be set before any lipgloss style initialization
	os.Setenv("COLORTERM", "truecolor")
}

func newRootCmd() *cobra.Command {
	var flags tuiFlags
	root := &cobra.Command{
		Use:   "corelayout",
		Short: "corelayout - entry gate and tabbed shell",
		Long:  "corelayout decides whether to show onboarding, sign-in or the tabbed home shell, then runs it.",
		RunE: func(c *cobra.Command, _ []string) error {
			return runTUI(c.Context(), flags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.Flags()
	f.StringVar(&flags.entry, "entry", "", `entry mode ("onboarding", "home", "auth") or an entry expression`)
	f.StringVar(&flags.initialPage, "initial-page", "", "key of the page to open on")
	f.IntVar(&flags.maxPages, "max-pages", 0, "page limit (default from config, then 5)")
	f.BoolVar(&flags.noOnboarding, "no-onboarding", false, "run without the onboarding flow")
	f.BoolVar(&flags.noAuth, "no-auth", false, "run without the sign-in flow")
	f.DurationVar(&flags.resolveTimeout, "resolve-timeout", 0, "fail entry resolution after this long")
	f.StringVar(&flags.logFile, "log-file", "", "write debug logs to this file")
	f.BoolVar(&flags.noWatch, "no-watch", false, "do not reload the config when it changes")

	root.AddCommand(cmd.LoginCmd())
	root.AddCommand(cmd.LogoutCmd())
	root.AddCommand(cmd.ValidateCmd())
	root.AddCommand(cmd.ResolveCmd())
	root.AddCommand(cmd.OnboardingCmd())
	return root
}

func runTUI(ctx context.Context, flags tuiFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, closer, err := logging.New(logging.Options{File: flags.logFile})
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	ctx = logging.WithContext(ctx, log)

	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	store := config.NewStore(config.Path(), cfg)

	resolver, err := entryResolver(flags.entry, store)
	if err != nil {
		return err
	}

	opts := ui.Options{
		Store:          store,
		Resolver:       resolver,
		ResolveTimeout: flags.resolveTimeout,
		InitialPage:    flags.initialPage,
		MaxPages:       flags.maxPages,
		Logger:         &log,
		Context:        ctx,
	}
	if !flags.noOnboarding {
		opts.Onboarding = ui.OnboardingFlow(store)
	}
	if !flags.noAuth {
		opts.Auth = ui.AuthFlow(store)
	}
	if !flags.noWatch {
		if w := startWatcher(store.Path(), &log); w != nil {
			defer w.Stop()
			opts.Watcher = w
		}
	}

	p := tea.NewProgram(ui.NewApp(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	if app, ok := final.(ui.App); ok && app.Err() != nil {
		return app.Err()
	}
	return nil
}

// entryResolver turns --entry into a resolver over the store's live facts.
// Empty leaves the config's rule in charge.
func entryResolver(entry string, store *config.Store) (gate.Resolver, error) {
	r, err := gate.ParseResolver(entry, store.FactSource())
	if err != nil {
		return nil, fmt.Errorf("--entry: %w", err)
	}
	return r, nil
}

func startWatcher(path string, log *zerolog.Logger) *watch.Watcher {
	w, err := watch.New(path, watch.WithLogger(log))
	if err != nil {
		log.Warn().Err(err).Msg("config watch disabled")
		return nil
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("config watch disabled")
		return nil
	}
	return w
}
