package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gravitrone/corelayout/internal/config"
	"github.com/gravitrone/corelayout/internal/gate"
	"github.com/gravitrone/corelayout/internal/logging"
)

type resolveReport struct {
	Status     gate.Status    `json:"status"`
	Entry      gate.EntryMode `json:"entry,omitempty"`
	Raw        gate.EntryMode `json:"raw,omitempty"`
	Expression string         `json:"expression"`
	RequestID  string         `json:"request_id"`
	ElapsedMS  int64          `json:"elapsed_ms"`
	Error      string         `json:"error,omitempty"`
}

// ResolveCmd returns the `corelayout resolve` command. It evaluates the entry
// rule once, without starting the TUI.
func ResolveCmd() *cobra.Command {
	var asJSON bool
	var expression string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which screen the shell would open on",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault()
			if err != nil {
				return err
			}
			if expression == "" {
				expression = cfg.EntryExpression()
			}
			if timeout <= 0 {
				timeout = cfg.Entry.Timeout
			}
			report, err := runResolve(cmd.Context(), cfg, expression, timeout)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			if report.Error != "" {
				return fmt.Errorf("resolve entry: %s", report.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Entry)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the outcome as JSON")
	cmd.Flags().StringVar(&expression, "entry", "", `entry mode ("onboarding", "home", "auth") or an entry expression (default from config)`)
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long")
	return cmd
}

func runResolve(ctx context.Context, cfg *config.Config, expression string, timeout time.Duration) (resolveReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(expression) == "" {
		expression = cfg.EntryExpression()
	}
	report := resolveReport{Expression: expression}
	resolver, err := gate.ParseResolver(expression, cfg.FactSource())
	if err != nil {
		return report, fmt.Errorf("--entry: %w", err)
	}

	log := logging.FromContext(ctx)
	ctrl := gate.NewController(gate.Capabilities{Onboarding: true, Auth: true}, gate.WithLogger(log))
	req := ctrl.Begin(gate.WithTimeout(resolver, timeout))
	out := ctrl.Runner().Run(ctx, req)
	if _, err := ctrl.Apply(out); err != nil {
		return report, err
	}

	state := ctrl.State()
	report.Status = state.Status
	report.RequestID = out.ID
	report.ElapsedMS = out.Elapsed.Milliseconds()
	report.Raw = out.Raw
	if state.Err != nil {
		report.Error = state.Err.Error()
		return report, nil
	}
	report.Entry = state.Entry
	return report, nil
}
