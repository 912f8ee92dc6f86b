package stats

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// hashClient is the part of the redis client the recorder uses.
type hashClient interface {
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Close() error
}

// RedisRecorder keeps one hash per owner with fields "<kind>:success" and "<kind>:failure".
type RedisRecorder struct {
	client    hashClient
	keyPrefix string
	logger    zerolog.Logger
}

// NewRedisRecorder connects to redis. An unreachable server is logged, not fatal;
// later commands fail individually.
func NewRedisRecorder(cfg config.StatsConfig, logger zerolog.Logger) *RedisRecorder {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	recorder := newRedisRecorder(rdb, cfg.KeyPrefix, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		recorder.logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
	}
	return recorder
}

func newRedisRecorder(client hashClient, keyPrefix string, logger zerolog.Logger) *RedisRecorder {
	if keyPrefix == "" {
		keyPrefix = config.DefaultStatsKeyPrefix
	}
	return &RedisRecorder{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.With().Str("component", "RedisStats").Logger(),
	}
}

func (r *RedisRecorder) key(owner string) string {
	return r.keyPrefix + ":" + owner
}

func (r *RedisRecorder) Increment(ctx context.Context, owner string, kind models.StatKind, success bool) error {
	field := string(kind) + ":failure"
	if success {
		field = string(kind) + ":success"
	}
	if err := r.client.HIncrBy(ctx, r.key(owner), field, 1).Err(); err != nil {
		return common.NewPersistenceError("increment_stat", owner, err)
	}
	return nil
}

func (r *RedisRecorder) Get(ctx context.Context, owner string) (models.Stats, error) {
	stats := models.Stats{Owner: owner}
	fields, err := r.client.HGetAll(ctx, r.key(owner)).Result()
	if err != nil {
		return stats, common.NewPersistenceError("get_stats", owner, err)
	}

	for field, raw := range fields {
		kind, outcome, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		counter := stats.Counter(models.StatKind(kind))
		if counter == nil {
			continue
		}
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			r.logger.Warn().Str("field", field).Str("value", raw).Msg("Ignoring malformed counter")
			continue
		}
		switch outcome {
		case "success":
			counter.Success = value
		case "failure":
			counter.Failure = value
		}
	}
	return stats, nil
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
