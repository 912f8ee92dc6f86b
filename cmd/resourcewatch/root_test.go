package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`log_config:
  log_level: error
storage_config:
  driver: sqlite
  dsn: %s
  archive_dir: %s
scheduler_config:
  timezone: UTC
acquisition_config:
  download_dir: %s
bot_config:
  enabled: false
`, filepath.Join(dir, "rw.db"), filepath.Join(dir, "archives"), filepath.Join(dir, "downloads"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"run", "migrate", "export", "import"} {
		assert.True(t, names[want], want)
	}
}

func TestMigrateCmd(t *testing.T) {
	out, err := execute(t, "migrate", "--config", writeTestConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "schema version")
	assert.Contains(t, out, "dirty: false")
}

func TestExportCmd_Empty(t *testing.T) {
	out, err := execute(t, "export", "--config", writeTestConfig(t), "--owner", "user-1")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestExportCmd_WritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "nested", "tracked.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(outPath), 0o755))
	require.NoError(t, os.WriteFile(outPath, []byte("stale"), 0o644))

	out, err := execute(t, "export", "--config", writeTestConfig(t), "--owner", "user-1", "-o", outPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	entries, err := os.ReadDir(filepath.Dir(outPath))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExportCmd_RequiresOwner(t *testing.T) {
	_, err := execute(t, "export", "--config", writeTestConfig(t))
	assert.Error(t, err)
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	_, err := execute(t, "migrate", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
