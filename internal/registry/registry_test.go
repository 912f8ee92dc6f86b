package registry

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	cfg := config.NewDefaultStorageConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "db", "registry.db")

	store, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTarget(owner, url string) *models.Target {
	return &models.Target{
		ID:              models.TargetID(owner, url),
		Owner:           owner,
		URL:             url,
		Name:            "Library",
		IntervalMinutes: 15,
		ContentHash:     "h0",
		Content:         "line one",
		SentHashes:      models.NewHashSet("a", "b"),
		Documents:       []models.Document{{Name: "report", URL: url + "/report.pdf"}},
	}
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, RunMigrations(store.DB(), DriverSQLite))
	version, dirty, err := SchemaVersion(store.DB(), DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	cfg := config.NewDefaultStorageConfig()
	cfg.Driver = "mongo"
	_, err := Open(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestCreateAndGetTarget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	target := newTarget("7", "https://example.com")

	require.NoError(t, store.CreateTarget(ctx, target))

	got, err := store.GetTarget(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "7", got.Owner)
	assert.Equal(t, "Library", got.Name)
	assert.Equal(t, 15, got.IntervalMinutes)
	assert.Equal(t, "line one", got.Content)
	assert.Equal(t, []string{"a", "b"}, got.SentHashes.Sorted())
	assert.Len(t, got.Documents, 1)
	assert.False(t, got.CreatedAt.IsZero())

	err = store.CreateTarget(ctx, newTarget("7", "https://example.com"))
	assert.ErrorIs(t, err, common.ErrAlreadyTracked)

	_, err = store.GetTarget(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrTargetNotFound)
}

func TestListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateTarget(ctx, newTarget("1", "https://a.example")))
	require.NoError(t, store.CreateTarget(ctx, newTarget("1", "https://b.example")))
	require.NoError(t, store.CreateTarget(ctx, newTarget("2", "https://a.example")))

	all, err := store.ListTargets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := store.ListTargetsByOwner(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	count, err := store.CountTargetsByOwner(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateSchedule(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	target := newTarget("1", "https://a.example")
	require.NoError(t, store.CreateTarget(ctx, target))

	require.NoError(t, store.UpdateSchedule(ctx, target.ID, 90, true))
	got, err := store.GetTarget(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, got.IntervalMinutes)
	assert.True(t, got.NightMode)

	assert.Error(t, store.UpdateSchedule(ctx, target.ID, 0, false))
	assert.ErrorIs(t, store.UpdateSchedule(ctx, "missing", 5, false), common.ErrTargetNotFound)
}

func TestApplyCheckResult_AppendsHashes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	target := newTarget("1", "https://a.example")
	require.NoError(t, store.CreateTarget(ctx, target))

	checkedAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	err := store.ApplyCheckResult(ctx, models.CheckResult{
		TargetID:      target.ID,
		ContentHash:   "h1",
		Content:       "line two",
		NewSentHashes: []string{"b", "c"},
		CheckedAt:     checkedAt,
	})
	require.NoError(t, err)

	got, err := store.GetTarget(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "h1", got.ContentHash)
	assert.Equal(t, "line two", got.Content)
	assert.Equal(t, []string{"a", "b", "c"}, got.SentHashes.Sorted())
	assert.True(t, got.LastChecked.Equal(checkedAt))
	assert.Empty(t, got.Documents)
}

func TestApplyCheckResult_DeletedTargetWritesNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	target := newTarget("1", "https://a.example")
	require.NoError(t, store.CreateTarget(ctx, target))
	require.NoError(t, store.DeleteTarget(ctx, target.ID))

	err := store.ApplyCheckResult(ctx, models.CheckResult{TargetID: target.ID, ContentHash: "x", NewSentHashes: []string{"z"}})
	assert.True(t, errors.Is(err, common.ErrTargetNotFound))

	var orphans int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM sent_hashes`).Scan(&orphans))
	assert.Zero(t, orphans)

	assert.ErrorIs(t, store.DeleteTarget(ctx, target.ID), common.ErrTargetNotFound)
}

func TestApplyCheckResult_ConcurrentWriters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	target := newTarget("1", "https://a.example")
	require.NoError(t, store.CreateTarget(ctx, target))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hash := string(rune('k' + i))
			assert.NoError(t, store.ApplyCheckResult(ctx, models.CheckResult{TargetID: target.ID, ContentHash: hash, NewSentHashes: []string{hash}}))
		}(i)
	}
	wg.Wait()

	got, err := store.GetTarget(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, got.SentHashes, 10)
}

func TestFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.GetFilter(ctx, "1")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	filter := models.Filter{
		Owner:      "1",
		Types:      []models.ResourceType{models.ResourcePDF, models.ResourceVideo},
		SizeRanges: []models.SizeRange{{Min: 0, Max: 1024}},
		Regex:      `report`,
	}
	require.NoError(t, store.SetFilter(ctx, filter))
	got, err := store.GetFilter(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, filter, got)

	filter.Regex = ""
	require.NoError(t, store.SetFilter(ctx, filter))
	got, err = store.GetFilter(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, got.Regex)

	require.NoError(t, store.ClearFilter(ctx, "1"))
	got, err = store.GetFilter(ctx, "1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.IncrementStat(ctx, "1", models.StatChecks, true))
	require.NoError(t, store.IncrementStat(ctx, "1", models.StatChecks, true))
	require.NoError(t, store.IncrementStat(ctx, "1", models.StatChecks, false))
	require.NoError(t, store.IncrementStat(ctx, "1", models.StatDownloads, true))

	stats, err := store.GetStats(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.Counter{Success: 2, Failure: 1}, stats.Checks)
	assert.Equal(t, int64(1), stats.Downloads.Success)
	assert.Zero(t, stats.ContentChanges.Total())
}

func TestRebind(t *testing.T) {
	s := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	s.driver = DriverSQLite
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
}
