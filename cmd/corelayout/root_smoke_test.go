package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitrone/corelayout/internal/config"
	"github.com/gravitrone/corelayout/internal/gate"
)

func TestMainHelpFlagDoesNotExit(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"corelayout", "--help"}
	defer func() { os.Args = oldArgs }()

	// main() should return normally for help (no os.Exit).
	main()
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"login", "logout", "validate", "resolve", "onboarding"} {
		assert.True(t, names[want], want)
	}
	for _, flag := range []string{"entry", "initial-page", "max-pages", "no-onboarding", "no-auth", "resolve-timeout", "log-file"} {
		assert.NotNil(t, root.Flags().Lookup(flag), flag)
	}
}

func TestRootSubcommandRuns(t *testing.T) {
	t.Setenv(config.PathEnv, filepath.Join(t.TempDir(), "config"))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"resolve"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "onboarding\n", out.String())
}

func TestRunTUIRejectsInsecureConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("username: ada\n"), 0644))
	t.Setenv(config.PathEnv, path)

	err := runTUI(t.Context(), tuiFlags{noWatch: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permissions too open")
}

func TestEntryResolver(t *testing.T) {
	store := config.NewStore("", &config.Config{OnboardingComplete: true})

	r, err := entryResolver("", store)
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = entryResolver(" AUTH ", store)
	require.NoError(t, err)
	mode, err := r.Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, gate.Auth, mode)

	r, err = entryResolver(`onboarded ? "home" : "onboarding"`, store)
	require.NoError(t, err)
	mode, err = r.Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, gate.Home, mode)

	// The rule reads the store at resolve time, so saves made by the flows count.
	require.NoError(t, store.Update(func(c *config.Config) { c.OnboardingComplete = false }))
	mode, err = r.Resolve(t.Context())
	require.NoError(t, err)
	assert.Equal(t, gate.Onboarding, mode)

	_, err = entryResolver("((", store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--entry")
}
