package tracker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aleister1102/resourcewatch/internal/archive"
	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/urlhandler"
)

// Export and import formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var csvHeader = []string{"name", "url", "interval", "night_mode"}

// ErrArchiveDisabled is returned by archive queries when no archive is configured.
var ErrArchiveDisabled = errors.New("archive is disabled")

// Documents returns the document links recorded for the owner's target.
func (s *Service) Documents(ctx context.Context, owner, rawURL string) ([]models.Document, error) {
	target, err := s.lookup(ctx, owner, rawURL)
	if err != nil {
		return nil, err
	}
	return target.Documents, nil
}

func (s *Service) lookup(ctx context.Context, owner, rawURL string) (*models.Target, error) {
	normalized, err := urlhandler.NormalizeURL(rawURL)
	if err != nil {
		return nil, common.NewValidationError("url", rawURL, err.Error())
	}
	return s.deps.Store.GetTarget(ctx, models.TargetID(owner, normalized))
}

// Export writes the owner's targets to w.
func (s *Service) Export(ctx context.Context, owner, format string, w io.Writer) (int, error) {
	targets, err := s.deps.Store.ListTargetsByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}

	records := make([]models.TargetExport, 0, len(targets))
	for _, t := range targets {
		records = append(records, models.TargetExport{
			Name:            t.Name,
			URL:             t.URL,
			IntervalMinutes: t.IntervalMinutes,
			NightMode:       t.NightMode,
		})
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return 0, common.WrapError(err, "failed to encode export")
		}
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return 0, common.WrapError(err, "failed to write csv header")
		}
		for _, r := range records {
			row := []string{r.Name, r.URL, strconv.Itoa(r.IntervalMinutes), strconv.FormatBool(r.NightMode)}
			if err := cw.Write(row); err != nil {
				return 0, common.WrapError(err, "failed to write csv row")
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return 0, common.WrapError(err, "failed to flush csv")
		}
	default:
		return 0, common.NewValidationError("format", format, "unsupported export format")
	}

	return len(records), nil
}

// ImportSummary reports the outcome of an import.
type ImportSummary struct {
	Imported int
	Updated  int
	Failed   int
	Errors   []error
}

// Import tracks every record in r for owner. Records for URLs the owner
// already tracks update the schedule instead.
func (s *Service) Import(ctx context.Context, owner, format string, r io.Reader) (*ImportSummary, error) {
	records, err := decodeImport(format, r)
	if err != nil {
		return nil, err
	}

	var collector common.ErrorCollector
	summary := &ImportSummary{}
	for _, rec := range records {
		updated, err := s.importOne(ctx, owner, rec)
		switch {
		case err != nil:
			summary.Failed++
			collector.AddWithContext(err, rec.URL)
		case updated:
			summary.Updated++
		default:
			summary.Imported++
		}
	}
	summary.Errors = collector.Errors()

	s.logger.Info().
		Str("owner", owner).
		Int("imported", summary.Imported).
		Int("updated", summary.Updated).
		Int("failed", summary.Failed).
		Msg("Import completed")
	return summary, nil
}

func (s *Service) importOne(ctx context.Context, owner string, rec models.TargetExport) (bool, error) {
	existing, err := s.lookup(ctx, owner, rec.URL)
	if err != nil && !errors.Is(err, common.ErrTargetNotFound) {
		return false, err
	}

	if existing == nil {
		_, err := s.Track(ctx, TrackRequest{
			Owner:           owner,
			Name:            rec.Name,
			URL:             rec.URL,
			IntervalMinutes: rec.IntervalMinutes,
			NightMode:       rec.NightMode,
		})
		return false, err
	}

	interval := rec.IntervalMinutes
	if interval <= 0 {
		interval = existing.IntervalMinutes
	}
	if err := s.deps.Store.UpdateSchedule(ctx, existing.ID, interval, rec.NightMode); err != nil {
		return true, err
	}
	existing.IntervalMinutes = interval
	existing.NightMode = rec.NightMode
	return true, s.deps.Timers.Schedule(existing)
}

func decodeImport(format string, r io.Reader) ([]models.TargetExport, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		var records []models.TargetExport
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, common.WrapError(err, "failed to decode json import")
		}
		return records, nil
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, common.NewValidationError("format", format, "unsupported import format")
	}
}

func decodeCSV(r io.Reader) ([]models.TargetExport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, common.WrapError(err, "failed to read csv import")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	urlCol, ok := columns["url"]
	if !ok {
		return nil, common.NewValidationError("csv", rows[0], "missing url column")
	}
	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]models.TargetExport, 0, len(rows)-1)
	for line, row := range rows[1:] {
		if urlCol >= len(row) || strings.TrimSpace(row[urlCol]) == "" {
			continue
		}
		rec := models.TargetExport{Name: field(row, "name"), URL: strings.TrimSpace(row[urlCol])}
		if v := field(row, "interval"); v != "" {
			interval, err := strconv.Atoi(v)
			if err != nil {
				return nil, common.NewValidationError("interval", v, fmt.Sprintf("invalid interval on line %d", line+2))
			}
			rec.IntervalMinutes = interval
		}
		if v := field(row, "night_mode"); v != "" {
			night, err := strconv.ParseBool(v)
			if err != nil {
				return nil, common.NewValidationError("night_mode", v, fmt.Sprintf("invalid night mode on line %d", line+2))
			}
			rec.NightMode = night
		}
		records = append(records, rec)
	}
	return records, nil
}

// Summary is an owner's statistics overview.
type Summary struct {
	Stats         models.Stats
	Tracked       int
	UptimePercent float64
}

// Stats returns the owner's counters and tracked-target count.
func (s *Service) Stats(ctx context.Context, owner string) (*Summary, error) {
	counters, err := s.deps.Stats.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	tracked, err := s.deps.Store.CountTargetsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	return &Summary{Stats: counters, Tracked: tracked, UptimePercent: counters.UptimePercent()}, nil
}

// Archives lists snapshots of the owner's target, newest first.
func (s *Service) Archives(ctx context.Context, owner, rawURL string) ([]archive.Snapshot, error) {
	if s.deps.Archive == nil {
		return nil, ErrArchiveDisabled
	}
	target, err := s.lookup(ctx, owner, rawURL)
	if err != nil {
		return nil, err
	}
	return s.deps.Archive.List(target.ID)
}

// ReadArchive loads one snapshot.
func (s *Service) ReadArchive(path string) (*models.ArchiveEntry, error) {
	if s.deps.Archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.deps.Archive.Read(path)
}

// Download acquires rawURL once and delivers it to owner, outside any tracked target.
func (s *Service) Download(ctx context.Context, owner, rawURL string) error {
	normalized, err := urlhandler.NormalizeURL(rawURL)
	if err != nil {
		return common.NewValidationError("url", rawURL, err.Error())
	}

	resourceType, ok := models.ClassifyExtension(urlhandler.Extension(normalized))
	if !ok {
		resourceType = models.ResourceVideo
	}
	resource := models.NewResource(normalized, resourceType, "")
	logger := s.logger.With().Str("owner", owner).Str("url", normalized).Logger()

	artifact, err := s.deps.Acquirer.Acquire(ctx, resource)
	if err != nil {
		s.recordStat(ctx, owner, models.StatDownloads, false)
		return err
	}
	if t, ok := models.ClassifyExtension(filepath.Ext(artifact.Path)); ok {
		resource.Type = t
	}

	target := models.TargetMeta{Owner: owner, Name: "Direct download", URL: normalized}
	meta := models.MetaOf(resource)
	deliver := func(ctx context.Context, payload models.Payload) error {
		return s.deps.Notifier.Deliver(ctx, target, meta, payload)
	}

	if resource.Type.IsDocument() {
		_, err = s.deps.Rasterizer.Process(ctx, artifact.Path, deliver)
	} else {
		err = deliver(ctx, models.ArtifactPayload(artifact.Path))
		common.RemoveQuietly(logger, artifact.Path)
	}

	s.recordStat(ctx, owner, models.StatDownloads, err == nil)
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveDelivery(resource.Type.String(), err == nil)
	}
	if err != nil {
		return err
	}
	logger.Info().Str("via", artifact.Via).Msg("Direct download delivered")
	return nil
}

// GetFilter returns the owner's filter.
func (s *Service) GetFilter(ctx context.Context, owner string) (models.Filter, error) {
	return s.deps.Store.GetFilter(ctx, owner)
}

// SetFilter validates and stores the owner's filter.
func (s *Service) SetFilter(ctx context.Context, filter models.Filter) error {
	if _, err := filter.CompileRegex(); err != nil {
		return common.NewValidationError("regex", filter.Regex, err.Error())
	}
	return s.deps.Store.SetFilter(ctx, filter)
}

// ClearFilter removes the owner's filter.
func (s *Service) ClearFilter(ctx context.Context, owner string) error {
	return s.deps.Store.ClearFilter(ctx, owner)
}

// CleanupArchives removes snapshots past the retention period.
func (s *Service) CleanupArchives(ctx context.Context) error {
	if s.deps.Archive == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	removed, err := s.deps.Archive.Cleanup(s.now())
	if err != nil {
		return err
	}
	s.logger.Info().Int("removed", removed).Msg("Cleaned up old archives")
	return nil
}

// ReportTargets logs how many targets each owner tracks.
func (s *Service) ReportTargets(ctx context.Context) error {
	targets, err := s.deps.Store.ListTargets(ctx)
	if err != nil {
		return err
	}
	perOwner := make(map[string]int)
	for _, t := range targets {
		perOwner[t.Owner]++
	}
	s.logger.Info().Int("targets", len(targets)).Int("owners", len(perOwner)).Msg("Statistics aggregation completed")
	return nil
}
