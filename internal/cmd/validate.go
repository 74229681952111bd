package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/gravitrone/corelayout/internal/config"
	"github.com/gravitrone/corelayout/internal/layout"
	"github.com/gravitrone/corelayout/internal/ui"
)

type pageReport struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Icon     string `json:"icon_kind,omitempty"`
	Renderer string `json:"renderer"`
}

type layoutIssue struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type validateReport struct {
	Valid    bool         `json:"valid"`
	MaxPages int          `json:"max_pages"`
	Initial  string       `json:"initial_page,omitempty"`
	Pages    []pageReport `json:"pages,omitempty"`
	Error    *layoutIssue `json:"error,omitempty"`
}

// errInvalid is returned once the report has been printed.
var errInvalid = errors.New("layout is invalid")

// ValidateCmd returns the `corelayout validate` command.
func ValidateCmd() *cobra.Command {
	var asJSON bool
	var maxPages int
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configured page set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault()
			if err != nil {
				return err
			}
			if maxPages <= 0 {
				maxPages = cfg.Shell.MaxPages
			}
			report := buildValidateReport(cfg, maxPages)
			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				printValidateReport(out, report)
			}
			if !report.Valid {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page limit (default from config, then 5)")
	return cmd
}

func buildValidateReport(cfg *config.Config, maxPages int) validateReport {
	store := config.NewStore("", cfg)
	reg := ui.DefaultRegistry(store)
	specs := cfg.Shell.PageSpecs()
	report := validateReport{MaxPages: maxPages}
	if report.MaxPages <= 0 {
		report.MaxPages = layout.DefaultMaxPages
	}

	validated, err := layout.Validate(cfg.Shell.LayoutPages(reg.Lookup), maxPages)
	if err != nil {
		report.Error = issueFor(err)
		return report
	}

	report.Valid = true
	report.Initial = validated[layout.InitialIndex(validated, cfg.Shell.InitialPage)].Key
	for i, p := range validated {
		report.Pages = append(report.Pages, pageReport{
			Key:      p.Key,
			Title:    p.Title,
			Icon:     layout.IconKind(p.Icon),
			Renderer: strings.TrimSpace(specs[i].Renderer),
		})
	}
	return report
}

func issueFor(err error) *layoutIssue {
	var cfgErr *layout.ConfigError
	if errors.As(err, &cfgErr) {
		return &layoutIssue{Field: cfgErr.Field, Reason: cfgErr.Err.Error(), Detail: cfgErr.Detail}
	}
	return &layoutIssue{Reason: err.Error()}
}

func printValidateReport(out io.Writer, r validateReport) {
	if !r.Valid {
		field := ""
		if r.Error.Field != "" {
			field = r.Error.Field + ": "
		}
		fmt.Fprintf(out, "invalid: %s%s\n", field, r.Error.Reason)
		if r.Error.Detail != "" {
			fmt.Fprintf(out, "  %s\n", r.Error.Detail)
		}
		return
	}
	fmt.Fprintf(out, "ok: %d of %d pages, opens on %s\n", len(r.Pages), r.MaxPages, r.Initial)
	for i, p := range r.Pages {
		fmt.Fprintf(out, "  %d. %-12s %-20s %s\n", i+1, p.Key, p.Title, p.Renderer)
	}
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
