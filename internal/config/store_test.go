package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	store := NewStore(path, &Config{Username: "ada"})

	require.NoError(t, store.Update(func(c *Config) {
		c.OnboardingComplete = true
	}))
	assert.True(t, store.Config().OnboardingComplete)
	assert.Equal(t, "ada", store.Config().Username)

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, loaded.OnboardingComplete)
}

func TestStoreFactSourceIsLive(t *testing.T) {
	store := NewStore("", &Config{})
	src := store.FactSource()

	facts, err := src(t.Context())
	require.NoError(t, err)
	assert.Equal(t, false, facts["onboarded"])

	require.NoError(t, store.Update(func(c *Config) {
		c.OnboardingComplete = true
		c.APIKey = "tok"
	}))
	facts, err = src(t.Context())
	require.NoError(t, err)
	assert.Equal(t, true, facts["onboarded"])
	assert.Equal(t, "tok", facts["token"])
}

func TestStoreUpdateKeepsOldConfigOnSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	store := NewStore(filepath.Join(blocker, "config"), &Config{APIKey: "old"})
	err := store.Update(func(c *Config) { c.APIKey = "new" })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save config")
	assert.Equal(t, "old", store.Config().APIKey)
}

func TestStoreInMemory(t *testing.T) {
	store := NewStore("", nil)
	require.NoError(t, store.Update(func(c *Config) { c.Theme = "light" }))
	assert.Equal(t, "light", store.Config().Theme)

	cfg, err := store.Reload()
	require.NoError(t, err)
	assert.Same(t, store.Config(), cfg)
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	store := NewStore(path, &Config{APIKey: "stale"})

	cfg, err := store.Reload()
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)

	require.NoError(t, (&Config{APIKey: "fresh"}).SaveTo(path))
	cfg, err = store.Reload()
	require.NoError(t, err)
	assert.Equal(t, "fresh", cfg.APIKey)
	assert.Same(t, cfg, store.Config())

	require.NoError(t, os.WriteFile(path, []byte("shell: ["), 0600))
	_, err = store.Reload()
	assert.Error(t, err)
	assert.Equal(t, "fresh", store.Config().APIKey)

	store.Replace(&Config{APIKey: "manual"})
	assert.Equal(t, "manual", store.Config().APIKey)
	assert.Equal(t, path, store.Path())
}
