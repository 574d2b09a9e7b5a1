package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thyroid-cli/internal/config"
	"github.com/sells-group/thyroid-cli/internal/registry"
)

func TestFormatVersions(t *testing.T) {
	root := t.TempDir()
	for _, v := range []string{"0", "1", "10"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, v), 0o755))
	}
	resolver := registry.NewResolver(root)
	versions, err := resolver.Versions()
	require.NoError(t, err)

	var buf bytes.Buffer
	formatVersions(&buf, resolver, versions)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "VERSION")
	assert.True(t, strings.HasPrefix(lines[3], "10"))
	assert.True(t, strings.HasSuffix(lines[3], "*"))
	assert.False(t, strings.HasSuffix(lines[2], "*"))
}

func TestRegistryClean(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".staging-1234"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "0"), 0o755))
	cfg = &config.Config{Registry: config.RegistryConfig{Root: root}}

	require.NoError(t, registryCleanCmd.RunE(registryCleanCmd, nil))

	assert.NoDirExists(t, filepath.Join(root, ".staging-1234"))
	assert.DirExists(t, filepath.Join(root, "0"))
}
