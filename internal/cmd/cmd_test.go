package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitrone/corelayout/internal/config"
	"github.com/gravitrone/corelayout/internal/gate"
	"github.com/gravitrone/corelayout/internal/layout"
)

// useConfig points the config path at a temp file and returns it.
func useConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	t.Setenv(config.PathEnv, path)
	return path
}

func run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestLoginCmdRejectsEmptyUsername(t *testing.T) {
	useConfig(t)
	_, err := run(t, LoginCmd(), "\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")
}

func TestLoginCmdInteractive(t *testing.T) {
	path := useConfig(t)
	out, err := run(t, LoginCmd(), "ada\ntok-1\n")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as ada")
	assert.Contains(t, out, path)

	cfg := loadConfig(t)
	assert.Equal(t, "ada", cfg.Username)
	assert.Equal(t, "tok-1", cfg.APIKey)
}

func TestLoginCmdFlagsKeepOtherSettings(t *testing.T) {
	useConfig(t)
	require.NoError(t, (&config.Config{OnboardingComplete: true, Theme: "dark"}).Save())

	_, err := run(t, LoginCmd(), "", "--token", "tok-2", "--username", "bob")
	require.NoError(t, err)

	cfg := loadConfig(t)
	assert.Equal(t, "tok-2", cfg.APIKey)
	assert.Equal(t, "bob", cfg.Username)
	assert.True(t, cfg.OnboardingComplete)
	assert.Equal(t, "dark", cfg.Theme)
}

func TestLoginCmdEmptyTokenFlag(t *testing.T) {
	useConfig(t)
	_, err := run(t, LoginCmd(), "", "--token", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is required")
}

func TestLogoutCmd(t *testing.T) {
	useConfig(t)
	out, err := run(t, LogoutCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "not logged in")

	require.NoError(t, (&config.Config{APIKey: "tok", Username: "ada"}).Save())
	out, err = run(t, LogoutCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")

	cfg := loadConfig(t)
	assert.Empty(t, cfg.APIKey)
	assert.Equal(t, "ada", cfg.Username)
}

func TestValidateCmdDefaultPages(t *testing.T) {
	useConfig(t)
	out, err := run(t, ValidateCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 3 of 5 pages, opens on home")
	assert.Contains(t, out, "activity")
}

func TestValidateCmdJSON(t *testing.T) {
	useConfig(t)
	require.NoError(t, (&config.Config{Shell: config.Shell{
		InitialPage: "b",
		Pages: []config.PageSpec{
			{Key: "a", Title: "A", Icon: config.IconSpec{Icon: layout.Glyph("a")}, Renderer: "text"},
			{Key: "b", Title: "B", Icon: config.IconSpec{Icon: layout.ImageRef{URI: "b.png"}}, Renderer: "settings"},
		},
	}}).Save())

	out, err := run(t, ValidateCmd(), "", "--json")
	require.NoError(t, err)

	var report validateReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Valid)
	assert.Equal(t, "b", report.Initial)
	require.Len(t, report.Pages, 2)
	assert.Equal(t, pageReport{Key: "b", Title: "B", Icon: "image", Renderer: "settings"}, report.Pages[1])
}

func TestValidateCmdReportsInvalidLayout(t *testing.T) {
	useConfig(t)
	require.NoError(t, (&config.Config{Shell: config.Shell{Pages: []config.PageSpec{
		{Key: "a", Title: "", Icon: config.IconSpec{Icon: layout.Glyph("a")}, Renderer: "text"},
	}}}).Save())

	out, err := run(t, ValidateCmd(), "")
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "invalid: pages[0].title: title is required")

	out, err = run(t, ValidateCmd(), "", "--json")
	require.ErrorIs(t, err, errInvalid)
	var report validateReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	require.NotNil(t, report.Error)
	assert.Equal(t, "pages[0].title", report.Error.Field)
}

func TestValidateCmdMaxPagesFlag(t *testing.T) {
	useConfig(t)
	out, err := run(t, ValidateCmd(), "", "--max-pages", "2")
	require.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "too many pages")
	assert.Contains(t, out, "got 3, at most 2 allowed")
}

func TestResolveCmdUsesConfigFacts(t *testing.T) {
	useConfig(t)
	out, err := run(t, ResolveCmd(), "")
	require.NoError(t, err)
	assert.Equal(t, "onboarding\n", out)

	require.NoError(t, (&config.Config{OnboardingComplete: true}).Save())
	out, err = run(t, ResolveCmd(), "")
	require.NoError(t, err)
	assert.Equal(t, "auth\n", out)

	require.NoError(t, (&config.Config{OnboardingComplete: true, APIKey: "tok"}).Save())
	out, err = run(t, ResolveCmd(), "")
	require.NoError(t, err)
	assert.Equal(t, "home\n", out)
}

func TestResolveCmdModeName(t *testing.T) {
	useConfig(t)
	out, err := run(t, ResolveCmd(), "", "--entry", "auth")
	require.NoError(t, err)
	assert.Equal(t, "auth\n", out)

	out, err = run(t, ResolveCmd(), "", "--json", "--entry", " Onboarding ")
	require.NoError(t, err)
	var report resolveReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, gate.Onboarding, report.Entry)
	assert.Equal(t, gate.Onboarding, report.Raw)
}

func TestResolveCmdJSON(t *testing.T) {
	useConfig(t)
	out, err := run(t, ResolveCmd(), "", "--json", "--entry", `username == "" ? "elsewhere" : "auth"`)
	require.NoError(t, err)

	var report resolveReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, gate.Ready, report.Status)
	assert.Equal(t, gate.Home, report.Entry)
	assert.Equal(t, gate.EntryMode("elsewhere"), report.Raw)
	assert.NotEmpty(t, report.RequestID)
}

func TestResolveCmdFailure(t *testing.T) {
	useConfig(t)
	_, err := run(t, ResolveCmd(), "", "--entry", `1 / nope()`)
	require.Error(t, err)

	_, err = run(t, ResolveCmd(), "", "--entry", "((")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile entry expression")
}

func TestOnboardingCmd(t *testing.T) {
	useConfig(t)
	out, err := run(t, OnboardingCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	out, err = run(t, OnboardingCmd(), "", "complete")
	require.NoError(t, err)
	assert.Contains(t, out, "marked complete")
	assert.True(t, loadConfig(t).OnboardingComplete)

	_, err = run(t, OnboardingCmd(), "", "reset")
	require.NoError(t, err)
	assert.False(t, loadConfig(t).OnboardingComplete)
}

func TestOnboardingCmdUnknownSubcommand(t *testing.T) {
	useConfig(t)
	_, err := run(t, OnboardingCmd(), "", "reset", "extra")
	assert.Error(t, err)
}

func TestCommandsRejectInsecureConfig(t *testing.T) {
	path := useConfig(t)
	require.NoError(t, os.WriteFile(path, []byte("username: ada\n"), 0644))

	_, err := run(t, ValidateCmd(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permissions too open")
}
