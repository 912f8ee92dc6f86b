// Package registry persists tracked targets and their check state.
package registry

import (
	"context"

	"github.com/aleister1102/resourcewatch/internal/models"
)

// Store is the persisted target registry.
// Every mutation of a single target is atomic at the storage layer.
type Store interface {
	// CreateTarget inserts a target with its seeded sent hashes. Returns common.ErrAlreadyTracked on duplicates.
	CreateTarget(ctx context.Context, target *models.Target) error
	// GetTarget loads a target and its sent hashes. Returns common.ErrTargetNotFound when absent.
	GetTarget(ctx context.Context, id string) (*models.Target, error)
	ListTargets(ctx context.Context) ([]*models.Target, error)
	ListTargetsByOwner(ctx context.Context, owner string) ([]*models.Target, error)
	CountTargetsByOwner(ctx context.Context, owner string) (int, error)
	UpdateSchedule(ctx context.Context, id string, intervalMinutes int, nightMode bool) error
	DeleteTarget(ctx context.Context, id string) error
	// ApplyCheckResult writes content state and appends sent hashes in one transaction.
	// Returns common.ErrTargetNotFound, writing nothing, when the target was deleted meanwhile.
	ApplyCheckResult(ctx context.Context, result models.CheckResult) error

	GetFilter(ctx context.Context, owner string) (models.Filter, error)
	SetFilter(ctx context.Context, filter models.Filter) error
	ClearFilter(ctx context.Context, owner string) error

	IncrementStat(ctx context.Context, owner string, kind models.StatKind, success bool) error
	GetStats(ctx context.Context, owner string) (models.Stats, error)

	Close() error
}
