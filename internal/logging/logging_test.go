package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabledByDefault(t *testing.T) {
	t.Setenv(DebugEnv, "")

	log, closer, err := New(Options{})
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	log, closer, err := New(Options{File: path, Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, closer)

	log.Debug().Msg("hidden")
	log.Info().Str("k", "v").Msg("shown")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"shown"`)
	assert.Contains(t, string(data), `"app":"corelayout"`)
	assert.NotContains(t, string(data), "hidden")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Options{File: filepath.Join(t.TempDir(), "x.log"), Level: "loud"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, zerolog.DebugLevel)

	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info().Msg("from ctx")
	assert.Contains(t, buf.String(), "from ctx")
}

func TestOnceDeliversEachKeyOnce(t *testing.T) {
	ResetWarnings()
	t.Cleanup(ResetWarnings)

	var got []string
	sink := WarnerFunc(func(key, msg string) { got = append(got, key+":"+msg) })

	a := Once(sink)
	b := Once(sink)
	a.Warn("size", "first")
	a.Warn("size", "second")
	b.Warn("size", "third")
	b.Warn("icon", "image")

	assert.Equal(t, []string{"size:first", "icon:image"}, got)
	assert.True(t, Warned("size"))
	assert.False(t, Warned("other"))
}

func TestLogWarnerAndMulti(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	w := Multi(LogWarner(NewWriter(&buf, zerolog.DebugLevel)), nil, WarnerFunc(func(key, _ string) { seen = key }))

	w.Warn("k", "careful")
	assert.Contains(t, buf.String(), `"warning":"k"`)
	assert.Equal(t, "k", seen)
}
