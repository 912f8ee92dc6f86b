package registry

import (
	"context"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/models"
)

// IncrementStat bumps an owner's success or failure counter.
func (s *SQLStore) IncrementStat(ctx context.Context, owner string, kind models.StatKind, success bool) error {
	var successInc, failureInc int64
	if success {
		successInc = 1
	} else {
		failureInc = 1
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO stats (owner, kind, success, failure) VALUES (?, ?, ?, ?)
		ON CONFLICT (owner, kind) DO UPDATE SET success = stats.success + excluded.success, failure = stats.failure + excluded.failure`),
		owner, string(kind), successInc, failureInc)
	if err != nil {
		return common.NewPersistenceError("increment_stat", owner, err)
	}
	return nil
}

// GetStats returns all counters for an owner.
func (s *SQLStore) GetStats(ctx context.Context, owner string) (models.Stats, error) {
	stats := models.Stats{Owner: owner}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT kind, success, failure FROM stats WHERE owner = ?`), owner)
	if err != nil {
		return stats, common.NewPersistenceError("get_stats", owner, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind             string
			success, failure int64
		)
		if err := rows.Scan(&kind, &success, &failure); err != nil {
			return stats, common.NewPersistenceError("get_stats", owner, err)
		}
		if counter := stats.Counter(models.StatKind(kind)); counter != nil {
			counter.Success = success
			counter.Failure = failure
		}
	}
	if err := rows.Err(); err != nil {
		return stats, common.NewPersistenceError("get_stats", owner, err)
	}
	return stats, nil
}
