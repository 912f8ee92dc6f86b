package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.NewDefaultStorageConfig()
	cfg.ArchiveDir = t.TempDir()
	cfg.ArchiveRetentionDays = 30
	store, err := NewStore(cfg, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func entry(targetID, content string, at time.Time) models.ArchiveEntry {
	return models.ArchiveEntry{
		TargetID:    targetID,
		Owner:       "alice",
		URL:         "https://example.com",
		ContentHash: common.SHA256Hex([]byte(content)),
		Content:     content,
		CapturedAt:  at,
	}
}

func TestSaveAndRead(t *testing.T) {
	store := newTestStore(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)

	snap, err := store.Save(entry("alice_1", "hello world", at))
	require.NoError(t, err)
	assert.FileExists(t, snap.Path)

	got, err := store.Read(snap.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Content)
	assert.Equal(t, "alice_1", got.TargetID)
	assert.True(t, got.CapturedAt.Equal(at.Truncate(time.Millisecond)))
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		_, err := store.Save(entry("alice_1", "v"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := store.Save(entry("bob_1", "other", base))
	require.NoError(t, err)

	snaps, err := store.List("alice_1")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.True(t, snaps[0].CapturedAt.After(snaps[1].CapturedAt))
	assert.True(t, snaps[1].CapturedAt.After(snaps[2].CapturedAt))

	got, err := store.Read(snaps[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "vc", got.Content)

	none, err := store.List("nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCleanupRemovesExpired(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	_, err := store.Save(entry("alice_1", "old", now.Add(-31*24*time.Hour)))
	require.NoError(t, err)
	fresh, err := store.Save(entry("alice_1", "new", now.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = store.Save(entry("bob_1", "old", now.Add(-40*24*time.Hour)))
	require.NoError(t, err)

	removed, err := store.Cleanup(now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	snaps, err := store.List("alice_1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, fresh.Path, snaps[0].Path)

	assert.NoDirExists(t, filepath.Join(store.dir, "bob_1"))
}

func TestDeleteTarget(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Save(entry("alice_1", "x", time.Now()))
	require.NoError(t, err)

	require.NoError(t, store.DeleteTarget("alice_1"))
	snaps, err := store.List("alice_1")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestSaveRequiresTarget(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Save(models.ArchiveEntry{Content: "x"})
	assert.Error(t, err)
}

func TestReadRejectsGarbage(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(t.TempDir(), "bad.parquet")
	require.NoError(t, os.WriteFile(path, []byte("not parquet"), 0644))

	_, err := store.Read(path)
	assert.Error(t, err)
}

func TestParseSnapshotName(t *testing.T) {
	at, hash, ok := parseSnapshotName("1700000000000_abcdef.parquet")
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), at.UnixMilli())
	assert.Equal(t, "abcdef", hash)

	_, _, ok = parseSnapshotName(".snapshot-123")
	assert.False(t, ok)
	_, _, ok = parseSnapshotName("x_y.parquet")
	assert.False(t, ok)
}
