package internal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSource(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSource("a/b.c"))
	assert.True(t, IsSource("b.h"))
	assert.False(t, IsSource("b.cpp"))
	assert.False(t, IsSource("Makefile"))
}

func TestWatcherReportsSourceWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		mu      sync.Mutex
		changed []string
	)
	w := NewWatcher([]string{dir}, nil, func(_ context.Context, paths []string) {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range paths {
			changed = append(changed, filepath.Base(p))
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.watching
	}, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, w.Run(ctx), ErrAlreadyWatching)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.c"), []byte("int x;\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changed) == 1 && changed[0] == "main.c"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
