package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitChanged(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Changed():
	case err := <-w.Errors():
		t.Fatalf("unexpected watch error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcherDetectsWrite(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(file, []byte("a: 1\n"), 0600))

	w, err := New(file, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte("a: 2\n"), 0600))
	waitChanged(t, w)
}

func TestWatcherPollingDetectsWrite(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0600))

	w, err := New(file,
		WithForcePoll(true),
		WithPollInterval(20*time.Millisecond),
		WithDebounce(10*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()
	assert.True(t, w.Polling())

	go func() {
		time.Sleep(40 * time.Millisecond)
		_ = os.WriteFile(file, []byte("bb"), 0600)
	}()
	waitChanged(t, w)
}

func TestWatcherCreatedLater(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config")

	w, err := New(file, WithForcePoll(true), WithPollInterval(20*time.Millisecond), WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))
	waitChanged(t, w)
}

func TestWatcherCoalescesBurst(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(file, []byte("0"), 0600))

	w, err := New(file, WithDebounce(80*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	for i := range 5 {
		require.NoError(t, os.WriteFile(file, []byte{byte('1' + i)}, 0600))
		time.Sleep(5 * time.Millisecond)
	}
	waitChanged(t, w)

	select {
	case <-w.Changed():
		t.Fatal("burst reported more than once")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherReportsRemoval(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0600))

	w, err := New(file, WithForcePoll(true), WithPollInterval(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.Remove(file))
	select {
	case err := <-w.Errors():
		assert.ErrorIs(t, err, ErrFileRemoved)
	case <-time.After(3 * time.Second):
		t.Fatal("removal not reported")
	}
}

func TestWatcherStartTwice(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "config"))
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.ErrorIs(t, w.Start(), ErrAlreadyStarted)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "config"))
	require.NoError(t, err)
	w.Stop()
	require.NoError(t, w.Start())
	w.Stop()
	w.Stop()
	assert.True(t, filepath.IsAbs(w.Path()))
}
