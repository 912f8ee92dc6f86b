// Package archive stores page content snapshots as parquet files.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

const snapshotExt = ".parquet"

// Snapshot identifies one archived file.
type Snapshot struct {
	TargetID    string
	Path        string
	CapturedAt  time.Time
	ContentHash string
}

// Store writes one parquet file per snapshot under <dir>/<target id>/.
type Store struct {
	dir       string
	retention time.Duration
	mu        sync.Mutex
	logger    zerolog.Logger
}

// NewStore creates an archive rooted at cfg.ArchiveDir.
func NewStore(cfg config.StorageConfig, logger zerolog.Logger) (*Store, error) {
	if err := common.EnsureDir(cfg.ArchiveDir); err != nil {
		return nil, common.WrapError(err, "failed to create archive directory")
	}
	return &Store{
		dir:       cfg.ArchiveDir,
		retention: time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour,
		logger:    logger.With().Str("component", "ArchiveStore").Logger(),
	}, nil
}

// Retention returns how long snapshots are kept.
func (s *Store) Retention() time.Duration {
	return s.retention
}

func (s *Store) targetDir(targetID string) string {
	return filepath.Join(s.dir, targetID)
}

func snapshotName(entry models.ArchiveEntry) string {
	hash := entry.ContentHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	if hash == "" {
		hash = "empty"
	}
	return fmt.Sprintf("%d_%s%s", entry.CapturedAt.UnixMilli(), hash, snapshotExt)
}

// parseSnapshotName reads the capture time and hash prefix back from a file name.
func parseSnapshotName(name string) (time.Time, string, bool) {
	if !strings.HasSuffix(name, snapshotExt) {
		return time.Time{}, "", false
	}
	stamp, hash, ok := strings.Cut(strings.TrimSuffix(name, snapshotExt), "_")
	if !ok {
		return time.Time{}, "", false
	}
	millis, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return time.Time{}, "", false
	}
	return time.UnixMilli(millis), hash, true
}

// Save writes a snapshot. The file appears atomically.
func (s *Store) Save(entry models.ArchiveEntry) (*Snapshot, error) {
	if entry.TargetID == "" {
		return nil, common.NewValidationError("target_id", entry.TargetID, "target id is required")
	}
	if entry.CapturedAt.IsZero() {
		entry.CapturedAt = time.Now()
	}
	entry.CapturedAt = entry.CapturedAt.Truncate(time.Millisecond)

	dir := s.targetDir(entry.TargetID)
	if err := common.EnsureDir(dir); err != nil {
		return nil, common.WrapError(err, "failed to create target archive directory")
	}

	path := filepath.Join(dir, snapshotName(entry))
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return nil, common.WrapError(err, "failed to create snapshot file")
	}
	tmpName := tmp.Name()

	writer := parquet.NewGenericWriter[models.ArchiveEntry](tmp, parquet.Compression(&parquet.Zstd))
	_, writeErr := writer.Write([]models.ArchiveEntry{entry})
	if writeErr == nil {
		writeErr = writer.Close()
	}
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr == nil {
		writeErr = os.Rename(tmpName, path)
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write snapshot for %s: %w", entry.TargetID, writeErr)
	}

	s.logger.Debug().Str("target_id", entry.TargetID).Str("path", path).Msg("Snapshot archived")
	return &Snapshot{TargetID: entry.TargetID, Path: path, CapturedAt: entry.CapturedAt, ContentHash: entry.ContentHash}, nil
}

// List returns a target's snapshots, newest first. A target without archives yields none.
func (s *Store) List(targetID string) ([]Snapshot, error) {
	entries, err := os.ReadDir(s.targetDir(targetID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var snapshots []Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		capturedAt, hash, ok := parseSnapshotName(e.Name())
		if !ok {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			TargetID:    targetID,
			Path:        filepath.Join(s.targetDir(targetID), e.Name()),
			CapturedAt:  capturedAt,
			ContentHash: hash,
		})
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].CapturedAt.After(snapshots[j].CapturedAt)
	})
	return snapshots, nil
}

// Read loads the entry stored in a snapshot file.
func (s *Store) Read(path string) (*models.ArchiveEntry, error) {
	osFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot '%s': %w", path, err)
	}
	defer osFile.Close()

	stat, err := osFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot '%s': %w", path, err)
	}

	pqFile, err := parquet.OpenFile(osFile, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file '%s': %w", path, err)
	}

	reader := parquet.NewGenericReader[models.ArchiveEntry](pqFile)
	defer reader.Close()

	rows := make([]models.ArchiveEntry, 1)
	n, err := reader.Read(rows)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			err = fmt.Errorf("snapshot '%s' is empty", path)
		}
		return nil, err
	}
	return &rows[0], nil
}

// DeleteTarget removes every snapshot of a target.
func (s *Store) DeleteTarget(targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.targetDir(targetID))
}

// Cleanup removes snapshots captured before now minus the retention and
// drops target directories left empty. It returns the number of files removed.
func (s *Store) Cleanup(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.retention)
	targets, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	var collector common.ErrorCollector
	for _, target := range targets {
		if !target.IsDir() {
			continue
		}
		dir := filepath.Join(s.dir, target.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			collector.Add(err)
			continue
		}

		kept := 0
		for _, f := range files {
			capturedAt, _, ok := parseSnapshotName(f.Name())
			if !ok || !capturedAt.Before(cutoff) {
				kept++
				continue
			}
			if err := os.Remove(filepath.Join(dir, f.Name())); err != nil {
				collector.Add(err)
				kept++
				continue
			}
			removed++
		}
		if kept == 0 {
			_ = os.Remove(dir)
		}
	}

	s.logger.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("Cleaned up old archives")
	return removed, collector.Error()
}
