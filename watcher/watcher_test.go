package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reesdraminski/soundboard/store"
	"github.com/reesdraminski/soundboard/watcher"
)

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sounds.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	w, err := watcher.New(watcher.Config{Path: path, DebounceDur: 150 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()
	require.NoError(t, w.Start())

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`{"k":"%d"}`, i)), 0644))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-w.Changes():
	case <-time.After(time.Second):
		require.Fail(t, "expected notification but got timeout")
	}

	select {
	case <-w.Changes():
		require.Fail(t, "unexpected second notification")
	case <-time.After(250 * time.Millisecond):
	}
}

func TestWatcher_SeesRenameReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sounds.json")
	s, err := store.OpenFile(path)
	require.NoError(t, err)

	w, err := watcher.New(watcher.Config{Path: path, DebounceDur: 20 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()
	require.NoError(t, w.Start())

	require.NoError(t, s.Set("sounds", "[]"))

	select {
	case <-w.Changes():
	case <-time.After(time.Second):
		require.Fail(t, "store write was not noticed")
	}
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sounds.json")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(other, []byte("initial"), 0644))

	w, err := watcher.New(watcher.Config{Path: path, DebounceDur: 20 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(other, []byte("changed"), 0644))

	select {
	case <-w.Changes():
		require.Fail(t, "unexpected notification for unrelated file")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sounds.json")
	w, err := watcher.New(watcher.Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	_ = w.Stop()
}

func TestWatcher_EmptyPath(t *testing.T) {
	_, err := watcher.New(watcher.Config{})
	require.Error(t, err)
}
