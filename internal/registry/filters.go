package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/models"
)

// GetFilter returns the owner's filter, empty when none is stored.
func (s *SQLStore) GetFilter(ctx context.Context, owner string) (models.Filter, error) {
	var types, ranges, regex string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT types, size_ranges, regex FROM filters WHERE owner = ?`), owner).
		Scan(&types, &ranges, &regex)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Filter{Owner: owner}, nil
	}
	if err != nil {
		return models.Filter{}, common.NewPersistenceError("get_filter", owner, err)
	}

	filter := models.Filter{Owner: owner, Regex: regex}
	if err := json.Unmarshal([]byte(types), &filter.Types); err != nil {
		return models.Filter{}, common.WrapError(err, "failed to decode filter types")
	}
	if err := json.Unmarshal([]byte(ranges), &filter.SizeRanges); err != nil {
		return models.Filter{}, common.WrapError(err, "failed to decode filter size ranges")
	}
	return filter, nil
}

// SetFilter replaces the owner's filter.
func (s *SQLStore) SetFilter(ctx context.Context, filter models.Filter) error {
	if filter.Owner == "" {
		return common.NewValidationError("owner", filter.Owner, "owner is required")
	}
	types := filter.Types
	if types == nil {
		types = []models.ResourceType{}
	}
	ranges := filter.SizeRanges
	if ranges == nil {
		ranges = []models.SizeRange{}
	}
	typesJSON, err := json.Marshal(types)
	if err != nil {
		return common.WrapError(err, "failed to encode filter types")
	}
	rangesJSON, err := json.Marshal(ranges)
	if err != nil {
		return common.WrapError(err, "failed to encode filter size ranges")
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO filters (owner, types, size_ranges, regex) VALUES (?, ?, ?, ?)
		ON CONFLICT (owner) DO UPDATE SET types = excluded.types, size_ranges = excluded.size_ranges, regex = excluded.regex`),
		filter.Owner, string(typesJSON), string(rangesJSON), filter.Regex)
	if err != nil {
		return common.NewPersistenceError("set_filter", filter.Owner, err)
	}
	return nil
}

// ClearFilter removes the owner's filter.
func (s *SQLStore) ClearFilter(ctx context.Context, owner string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM filters WHERE owner = ?`), owner); err != nil {
		return common.NewPersistenceError("clear_filter", owner, err)
	}
	return nil
}
