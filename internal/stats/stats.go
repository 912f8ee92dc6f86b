// Package stats keeps per-owner check and download counters.
package stats

import (
	"context"
	"fmt"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/registry"
	"github.com/rs/zerolog"
)

// Recorder increments and reads counters.
type Recorder interface {
	Increment(ctx context.Context, owner string, kind models.StatKind, success bool) error
	Get(ctx context.Context, owner string) (models.Stats, error)
	Close() error
}

// NewRecorder returns the backend selected by cfg. The SQL backend shares store.
func NewRecorder(cfg config.StatsConfig, store registry.Store, logger zerolog.Logger) (Recorder, error) {
	switch cfg.Backend {
	case "", "sql":
		return NewSQLRecorder(store), nil
	case "redis":
		return NewRedisRecorder(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported stats backend %q", cfg.Backend)
	}
}

// SQLRecorder stores counters in the registry's stats table.
type SQLRecorder struct {
	store registry.Store
}

func NewSQLRecorder(store registry.Store) *SQLRecorder {
	return &SQLRecorder{store: store}
}

func (r *SQLRecorder) Increment(ctx context.Context, owner string, kind models.StatKind, success bool) error {
	return r.store.IncrementStat(ctx, owner, kind, success)
}

func (r *SQLRecorder) Get(ctx context.Context, owner string) (models.Stats, error) {
	return r.store.GetStats(ctx, owner)
}

// Close is a no-op; the registry owns the connection.
func (r *SQLRecorder) Close() error { return nil }
