package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store over database/sql for sqlite and postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger zerolog.Logger
}

// Open connects to the configured database and applies migrations.
func Open(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*SQLStore, error) {
	logger = logger.With().Str("component", "Registry").Str("driver", cfg.Driver).Logger()

	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite:
		if err := common.EnsureDir(filepath.Dir(sqlitePath(dsn))); err != nil {
			return nil, common.WrapError(err, "failed to create database directory")
		}
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, common.NewValidationError("driver", cfg.Driver, "unsupported storage driver")
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open failed for %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// single writer connection avoids SQLITE_BUSY between goroutines
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := RunMigrations(db, cfg.Driver); err != nil {
		_ = db.Close()
		logger.Error().Err(err).Msg("Failed to apply migrations")
		return nil, err
	}

	logger.Info().Msg("Registry database ready")
	return &SQLStore{db: db, driver: cfg.Driver, logger: logger}, nil
}

func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	return path
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// DB exposes the connection for maintenance commands.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Driver returns the configured driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders into $N for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const targetColumns = `id, owner, url, name, interval_minutes, night_mode, content_hash, content, documents, created_at, last_checked`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (*models.Target, error) {
	var (
		t           models.Target
		documents   string
		createdAt   int64
		lastChecked int64
	)
	if err := row.Scan(&t.ID, &t.Owner, &t.URL, &t.Name, &t.IntervalMinutes, &t.NightMode,
		&t.ContentHash, &t.Content, &documents, &createdAt, &lastChecked); err != nil {
		return nil, err
	}
	if documents != "" {
		if err := json.Unmarshal([]byte(documents), &t.Documents); err != nil {
			return nil, common.WrapError(err, "failed to decode documents")
		}
	}
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	if lastChecked > 0 {
		t.LastChecked = time.UnixMilli(lastChecked).UTC()
	}
	t.SentHashes = models.NewHashSet()
	return &t, nil
}

func encodeDocuments(docs []models.Document) (string, error) {
	if docs == nil {
		docs = []models.Document{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return "", common.WrapError(err, "failed to encode documents")
	}
	return string(data), nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// CreateTarget inserts a target and its seeded sent hashes.
func (s *SQLStore) CreateTarget(ctx context.Context, target *models.Target) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if target.ID == "" {
		target.ID = models.TargetID(target.Owner, target.URL)
	}
	if target.CreatedAt.IsZero() {
		target.CreatedAt = time.Now().UTC()
	}
	documents, err := encodeDocuments(target.Documents)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewPersistenceError("create_target", target.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM targets WHERE id = ? OR (owner = ? AND url = ?)`),
		target.ID, target.Owner, target.URL).Scan(&existing); err != nil {
		return common.NewPersistenceError("create_target", target.ID, err)
	}
	if existing > 0 {
		return common.ErrAlreadyTracked
	}

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO targets (`+targetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		target.ID, target.Owner, target.URL, target.Name, target.IntervalMinutes, target.NightMode,
		target.ContentHash, target.Content, documents, unixMilli(target.CreatedAt), unixMilli(target.LastChecked))
	if err != nil {
		return common.NewPersistenceError("create_target", target.ID, err)
	}

	if err := s.insertHashes(ctx, tx, target.ID, target.SentHashes.Sorted(), time.Now()); err != nil {
		return common.NewPersistenceError("create_target", target.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return common.NewPersistenceError("create_target", target.ID, err)
	}
	s.logger.Debug().Str("target_id", target.ID).Int("seeded_hashes", len(target.SentHashes)).Msg("Target created")
	return nil
}

func (s *SQLStore) insertHashes(ctx context.Context, tx *sql.Tx, targetID string, hashes []string, sentAt time.Time) error {
	if len(hashes) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO sent_hashes (target_id, hash, sent_at) VALUES (?, ?, ?) ON CONFLICT (target_id, hash) DO NOTHING`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, hash := range hashes {
		if _, err := stmt.ExecContext(ctx, targetID, hash, sentAt.UnixMilli()); err != nil {
			return err
		}
	}
	return nil
}

// GetTarget loads one target with its sent hashes.
func (s *SQLStore) GetTarget(ctx context.Context, id string) (*models.Target, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+targetColumns+` FROM targets WHERE id = ?`), id)
	target, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrTargetNotFound
	}
	if err != nil {
		return nil, common.NewPersistenceError("get_target", id, err)
	}

	hashes, err := s.loadHashes(ctx, id)
	if err != nil {
		return nil, common.NewPersistenceError("get_target", id, err)
	}
	target.SentHashes = hashes
	return target, nil
}

func (s *SQLStore) loadHashes(ctx context.Context, targetID string) (models.HashSet, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT hash FROM sent_hashes WHERE target_id = ?`), targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := models.NewHashSet()
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		set.Add(hash)
	}
	return set, rows.Err()
}

// ListTargets returns every target without sent hashes, ordered by creation.
func (s *SQLStore) ListTargets(ctx context.Context) ([]*models.Target, error) {
	return s.listTargets(ctx, `SELECT `+targetColumns+` FROM targets ORDER BY created_at, id`)
}

// ListTargetsByOwner returns an owner's targets without sent hashes.
func (s *SQLStore) ListTargetsByOwner(ctx context.Context, owner string) ([]*models.Target, error) {
	return s.listTargets(ctx, `SELECT `+targetColumns+` FROM targets WHERE owner = ? ORDER BY created_at, id`, owner)
}

func (s *SQLStore) listTargets(ctx context.Context, query string, args ...any) ([]*models.Target, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, common.NewPersistenceError("list_targets", "", err)
	}
	defer rows.Close()

	var targets []*models.Target
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, common.NewPersistenceError("list_targets", "", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list_targets", "", err)
	}
	return targets, nil
}

// CountTargetsByOwner returns how many targets an owner tracks.
func (s *SQLStore) CountTargetsByOwner(ctx context.Context, owner string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM targets WHERE owner = ?`), owner).Scan(&count); err != nil {
		return 0, common.NewPersistenceError("count_targets", owner, err)
	}
	return count, nil
}

// UpdateSchedule changes a target's interval and night mode.
func (s *SQLStore) UpdateSchedule(ctx context.Context, id string, intervalMinutes int, nightMode bool) error {
	if intervalMinutes <= 0 {
		return common.NewValidationError("interval_minutes", intervalMinutes, "interval must be positive")
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE targets SET interval_minutes = ?, night_mode = ? WHERE id = ?`),
		intervalMinutes, nightMode, id)
	if err != nil {
		return common.NewPersistenceError("update_schedule", id, err)
	}
	return requireRow(res, id, "update_schedule")
}

// DeleteTarget removes a target and its sent hashes.
func (s *SQLStore) DeleteTarget(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewPersistenceError("delete_target", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM sent_hashes WHERE target_id = ?`), id); err != nil {
		return common.NewPersistenceError("delete_target", id, err)
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM targets WHERE id = ?`), id)
	if err != nil {
		return common.NewPersistenceError("delete_target", id, err)
	}
	if err := requireRow(res, id, "delete_target"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.NewPersistenceError("delete_target", id, err)
	}
	return nil
}

// ApplyCheckResult persists one cycle's outcome atomically.
func (s *SQLStore) ApplyCheckResult(ctx context.Context, result models.CheckResult) error {
	documents, err := encodeDocuments(result.Documents)
	if err != nil {
		return err
	}
	checkedAt := result.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewPersistenceError("apply_check_result", result.TargetID, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.rebind(`UPDATE targets SET content_hash = ?, content = ?, documents = ?, last_checked = ? WHERE id = ?`),
		result.ContentHash, result.Content, documents, checkedAt.UnixMilli(), result.TargetID)
	if err != nil {
		return common.NewPersistenceError("apply_check_result", result.TargetID, err)
	}
	if err := requireRow(res, result.TargetID, "apply_check_result"); err != nil {
		return err
	}

	if err := s.insertHashes(ctx, tx, result.TargetID, result.NewSentHashes, checkedAt); err != nil {
		return common.NewPersistenceError("apply_check_result", result.TargetID, err)
	}

	if err := tx.Commit(); err != nil {
		return common.NewPersistenceError("apply_check_result", result.TargetID, err)
	}
	return nil
}

func requireRow(res sql.Result, id, operation string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return common.NewPersistenceError(operation, id, err)
	}
	if affected == 0 {
		return common.ErrTargetNotFound
	}
	return nil
}
