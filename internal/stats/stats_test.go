package stats

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/registry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHash struct {
	mu     sync.Mutex
	data   map[string]map[string]int64
	failOn string
}

func newFakeHash() *fakeHash {
	return &fakeHash{data: map[string]map[string]int64{}}
}

func (f *fakeHash) HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == key {
		return redis.NewIntResult(0, errors.New("connection reset"))
	}
	if f.data[key] == nil {
		f.data[key] = map[string]int64{}
	}
	f.data[key][field] += incr
	return redis.NewIntResult(f.data[key][field], nil)
}

func (f *fakeHash) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == key {
		return redis.NewMapStringStringResult(nil, errors.New("connection reset"))
	}
	out := map[string]string{}
	for field, v := range f.data[key] {
		out[field] = strconv.FormatInt(v, 10)
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (f *fakeHash) Close() error { return nil }

func TestRedisRecorder(t *testing.T) {
	client := newFakeHash()
	rec := newRedisRecorder(client, "", zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, rec.Increment(ctx, "alice", models.StatChecks, true))
	require.NoError(t, rec.Increment(ctx, "alice", models.StatChecks, true))
	require.NoError(t, rec.Increment(ctx, "alice", models.StatChecks, false))
	require.NoError(t, rec.Increment(ctx, "alice", models.StatDownloads, true))

	assert.Equal(t, int64(2), client.data["resourcewatch:stats:alice"]["checks:success"])

	stats, err := rec.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.Counter{Success: 2, Failure: 1}, stats.Checks)
	assert.Equal(t, models.Counter{Success: 1}, stats.Downloads)
	assert.InDelta(t, 66.67, stats.UptimePercent(), 0.01)

	empty, err := rec.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.Checks.Total())
}

func TestRedisRecorder_Errors(t *testing.T) {
	client := newFakeHash()
	client.failOn = "p:bob"
	rec := newRedisRecorder(client, "p", zerolog.Nop())

	var perr *common.PersistenceError
	assert.True(t, errors.As(rec.Increment(context.Background(), "bob", models.StatChecks, true), &perr))
	_, err := rec.Get(context.Background(), "bob")
	assert.True(t, errors.As(err, &perr))
}

func TestRedisRecorder_IgnoresForeignFields(t *testing.T) {
	client := newFakeHash()
	client.data["p:carol"] = map[string]int64{"checks:success": 3, "unknown:success": 9, "bare": 1}
	rec := newRedisRecorder(client, "p", zerolog.Nop())

	stats, err := rec.Get(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Checks.Success)
}

func TestNewRecorder_SQL(t *testing.T) {
	storage := config.NewDefaultStorageConfig()
	storage.DSN = filepath.Join(t.TempDir(), "stats.db")
	store, err := registry.Open(context.Background(), storage, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rec, err := NewRecorder(config.NewDefaultStatsConfig(), store, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &SQLRecorder{}, rec)

	ctx := context.Background()
	require.NoError(t, rec.Increment(ctx, "alice", models.StatContentChanges, true))
	stats, err := rec.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ContentChanges.Success)
	assert.NoError(t, rec.Close())
}

func TestNewRecorder_Unsupported(t *testing.T) {
	_, err := NewRecorder(config.StatsConfig{Backend: "etcd"}, nil, zerolog.Nop())
	assert.Error(t, err)
}
