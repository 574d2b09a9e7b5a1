package predict

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thyroid-cli/internal/config"
	"github.com/sells-group/thyroid-cli/internal/registry"
)

func TestReload_SwapsNewerVersionOnly(t *testing.T) {
	s, resolver := testServer(t, config.ServerConfig{})

	reload(resolver, s)
	assert.Equal(t, 0, s.Active().Version)

	writeVersion(t, resolver.Root, 3)
	reload(resolver, s)
	assert.Equal(t, 3, s.Active().Version)
}

func TestReload_BrokenVersionKeepsActive(t *testing.T) {
	s, resolver := testServer(t, config.ServerConfig{})
	require.NoError(t, os.MkdirAll(filepath.Join(resolver.Root, "1"), 0o755))

	reload(resolver, s)
	assert.Equal(t, 0, s.Active().Version)
}

func TestWatch_PicksUpPublishedVersion(t *testing.T) {
	s, resolver := testServer(t, config.ServerConfig{})
	src := writeVersion(t, t.TempDir(), 9)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, resolver, s) }()

	// Publish repeatedly until the watcher is registered and reacts.
	require.Eventually(t, func() bool {
		if s.Active().Version > 0 {
			return true
		}
		_, _ = resolver.Publish(ctx, registry.PathsIn(src))
		return false
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
