// Package tracker runs the check pipeline for tracked pages: fetch, change
// detection, dedup, filtering, acquisition, rasterization and delivery.
package tracker

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/aleister1102/resourcewatch/internal/acquisition"
	"github.com/aleister1102/resourcewatch/internal/archive"
	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/differ"
	"github.com/aleister1102/resourcewatch/internal/fetcher"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/notifier"
	"github.com/aleister1102/resourcewatch/internal/rasterizer"
	"github.com/aleister1102/resourcewatch/internal/registry"
	"github.com/aleister1102/resourcewatch/internal/stats"
	"github.com/aleister1102/resourcewatch/internal/urlhandler"
	"github.com/rs/zerolog"
)

// Cycle outcomes reported to the observer.
const (
	CycleOK          = "ok"
	CycleSkipped     = "skipped"
	CycleUnreachable = "unreachable"
	CycleFailed      = "failed"
)

// persistTimeout bounds the final write of a cycle. That write ignores cycle
// cancellation: completed deliveries are recorded even during shutdown.
const persistTimeout = 10 * time.Second

// PageSource fetches a page and extracts its resources.
type PageSource interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error)
}

// ChangeDetector compares stored and fresh page content.
type ChangeDetector interface {
	Detect(prevDigest, prevContent, newContent string) differ.ChangeResult
}

// ResourceFilter applies an owner's filter to new resources.
type ResourceFilter interface {
	Apply(ctx context.Context, resources []models.Resource, filter models.Filter) []models.Resource
}

// ArtifactAcquirer materializes a resource on local disk.
type ArtifactAcquirer interface {
	Acquire(ctx context.Context, resource models.Resource) (*acquisition.Artifact, error)
}

// DocumentProcessor delivers a document raw or as page images.
type DocumentProcessor interface {
	Process(ctx context.Context, sourcePath string, deliver rasterizer.DeliverFunc) (*rasterizer.Result, error)
}

// Archiver stores page snapshots.
type Archiver interface {
	Save(entry models.ArchiveEntry) (*archive.Snapshot, error)
	List(targetID string) ([]archive.Snapshot, error)
	Read(path string) (*models.ArchiveEntry, error)
	DeleteTarget(targetID string) error
	Cleanup(now time.Time) (int, error)
}

// TimerTable installs and removes per-target timers.
type TimerTable interface {
	Schedule(target *models.Target) error
	Cancel(targetID string) bool
}

// Observer receives cycle and delivery events.
type Observer interface {
	ObserveCycle(outcome string, duration time.Duration)
	ObserveDelivery(resourceType string, success bool)
	IncContentChange()
}

// Dependencies are the collaborators of a Service. Archive and Observer are optional.
type Dependencies struct {
	Store      registry.Store
	Pages      PageSource
	Detector   ChangeDetector
	Filter     ResourceFilter
	Acquirer   ArtifactAcquirer
	Rasterizer DocumentProcessor
	Notifier   notifier.Notifier
	Stats      stats.Recorder
	Archive    Archiver
	Timers     TimerTable
	Observer   Observer
}

func (d Dependencies) validate() error {
	required := map[string]any{
		"store":      d.Store,
		"pages":      d.Pages,
		"detector":   d.Detector,
		"filter":     d.Filter,
		"acquirer":   d.Acquirer,
		"rasterizer": d.Rasterizer,
		"notifier":   d.Notifier,
		"stats":      d.Stats,
		"timers":     d.Timers,
	}
	for name, dep := range required {
		if dep == nil {
			return common.NewValidationError(name, nil, "dependency is required")
		}
	}
	return nil
}

// Service is the single entry point for tracking operations.
type Service struct {
	cfg    config.GlobalConfig
	deps   Dependencies
	now    func() time.Time
	logger zerolog.Logger
}

// NewService builds a Service from explicit dependencies.
func NewService(cfg config.GlobalConfig, deps Dependencies, logger zerolog.Logger) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Service{
		cfg:    cfg,
		deps:   deps,
		now:    time.Now,
		logger: logger.With().Str("component", "Tracker").Logger(),
	}, nil
}

// TrackRequest is the input of Track.
type TrackRequest struct {
	Owner           string
	Name            string
	URL             string
	IntervalMinutes int
	NightMode       bool
}

// Track registers a page for an owner. The initial fetch seeds the content
// digest and marks every current resource as already sent, so tracking
// itself delivers nothing.
func (s *Service) Track(ctx context.Context, req TrackRequest) (*models.Target, error) {
	normalized, err := urlhandler.NormalizeURL(req.URL)
	if err != nil {
		return nil, common.NewValidationError("url", req.URL, err.Error())
	}
	if req.IntervalMinutes <= 0 {
		req.IntervalMinutes = s.cfg.SchedulerConfig.DefaultIntervalMinutes
	}

	target := &models.Target{
		ID:              models.TargetID(req.Owner, normalized),
		Owner:           req.Owner,
		URL:             normalized,
		Name:            req.Name,
		IntervalMinutes: req.IntervalMinutes,
		NightMode:       req.NightMode,
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	count, err := s.deps.Store.CountTargetsByOwner(ctx, req.Owner)
	if err != nil {
		return nil, err
	}
	if limit := s.cfg.SchedulerConfig.MaxTrackedPerOwner; limit > 0 && count >= limit {
		return nil, common.WrapErrorf(common.ErrTrackingLimit, "owner %s already tracks %d targets", req.Owner, count)
	}

	if existing, err := s.deps.Store.GetTarget(ctx, target.ID); err == nil && existing != nil {
		return nil, common.WrapErrorf(common.ErrAlreadyTracked, "%s", normalized)
	}

	page, err := s.deps.Pages.Fetch(ctx, normalized)
	if err != nil {
		return nil, common.WrapError(err, "invalid URL or page has no content")
	}

	now := s.now()
	target.ContentHash = differ.Digest(page.Content)
	target.Content = page.Content
	target.Documents = page.Documents
	target.SentHashes = models.NewHashSet()
	for _, resource := range page.Resources {
		target.SentHashes.Add(resource.Hash)
	}
	target.CreatedAt = now
	target.LastChecked = now

	if err := s.deps.Store.CreateTarget(ctx, target); err != nil {
		return nil, err
	}
	s.archive(target, page.Content, now)

	if err := s.deps.Timers.Schedule(target); err != nil {
		return target, common.WrapError(err, "target saved but could not be scheduled")
	}

	s.logger.Info().
		Str("target_id", target.ID).
		Str("url", target.URL).
		Int("interval_minutes", target.IntervalMinutes).
		Bool("night_mode", target.NightMode).
		Int("seeded_resources", len(target.SentHashes)).
		Msg("Tracking started")
	return target, nil
}

// Untrack removes the owner's target for rawURL. The timer is removed first;
// a firing already in flight writes nothing once the row is gone.
func (s *Service) Untrack(ctx context.Context, owner, rawURL string) error {
	normalized, err := urlhandler.NormalizeURL(rawURL)
	if err != nil {
		return common.NewValidationError("url", rawURL, err.Error())
	}
	id := models.TargetID(owner, normalized)

	s.deps.Timers.Cancel(id)
	if err := s.deps.Store.DeleteTarget(ctx, id); err != nil {
		return err
	}
	if s.deps.Archive != nil {
		if err := s.deps.Archive.DeleteTarget(id); err != nil {
			s.logger.Warn().Err(err).Str("target_id", id).Msg("Failed to delete target archives")
		}
	}

	s.logger.Info().Str("target_id", id).Str("url", normalized).Msg("Tracking stopped")
	return nil
}

// List returns the owner's targets.
func (s *Service) List(ctx context.Context, owner string) ([]*models.Target, error) {
	return s.deps.Store.ListTargetsByOwner(ctx, owner)
}

// Fire runs one scheduled cycle. Errors end here.
func (s *Service) Fire(ctx context.Context, targetID string) {
	if _, err := s.RunCycle(ctx, targetID); err != nil {
		s.logger.Warn().Err(err).Str("target_id", targetID).Msg("Check cycle failed")
	}
}

// RunCycle performs one check of a target. Resource failures are counted and
// never abort the cycle; only sent hashes of successful deliveries are stored.
func (s *Service) RunCycle(ctx context.Context, targetID string) (*models.CycleReport, error) {
	start := time.Now()
	report := &models.CycleReport{TargetID: targetID}
	outcome := CycleOK
	defer func() {
		report.Duration = time.Since(start)
		if s.deps.Observer != nil {
			s.deps.Observer.ObserveCycle(outcome, report.Duration)
		}
	}()

	target, err := s.deps.Store.GetTarget(ctx, targetID)
	if errors.Is(err, common.ErrTargetNotFound) {
		report.Skipped = true
		outcome = CycleSkipped
		s.logger.Debug().Str("target_id", targetID).Msg("Target no longer tracked, skipping firing")
		return report, nil
	}
	if err != nil {
		outcome = CycleFailed
		return report, err
	}

	logger := s.logger.With().Str("target_id", target.ID).Str("url", target.URL).Logger()

	page, err := s.deps.Pages.Fetch(ctx, target.URL)
	if err != nil {
		report.Unreachable = true
		outcome = CycleUnreachable
		s.recordStat(ctx, target.Owner, models.StatChecks, false)
		if s.cfg.NotificationConfig.NotifyOnFailure {
			if notifyErr := s.deps.Notifier.NotifyFailure(ctx, target.Meta(), err); notifyErr != nil {
				logger.Warn().Err(notifyErr).Msg("Failed to send failure notice")
			}
		}
		return report, err
	}
	s.recordStat(ctx, target.Owner, models.StatChecks, true)

	checkedAt := s.now()

	fresh := acquisition.NewResources(page.Resources, target.SentHashes)
	report.Discovered = len(fresh)

	change := s.deps.Detector.Detect(target.ContentHash, target.Content, page.Content)
	if change.Changed {
		report.ContentChanged = true
		s.notifyChange(ctx, target, change, len(fresh), checkedAt, logger)
	}

	filter, err := s.deps.Store.GetFilter(ctx, target.Owner)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load owner filter, delivering unfiltered")
		filter = models.Filter{Owner: target.Owner}
	}
	selected := s.deps.Filter.Apply(ctx, fresh, filter)
	report.Filtered = len(fresh) - len(selected)

	var delivered []string
	for _, resource := range selected {
		if ctx.Err() != nil {
			logger.Info().Msg("Cycle cancelled, remaining resources wait for the next firing")
			break
		}
		if s.deliverResource(ctx, target.Meta(), resource, logger) {
			delivered = append(delivered, resource.Hash)
			report.Delivered++
		} else {
			report.Failed++
		}
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	err = s.deps.Store.ApplyCheckResult(persistCtx, models.CheckResult{
		TargetID:      target.ID,
		ContentHash:   change.Digest,
		Content:       page.Content,
		NewSentHashes: delivered,
		Documents:     page.Documents,
		CheckedAt:     checkedAt,
	})
	if errors.Is(err, common.ErrTargetNotFound) {
		report.Skipped = true
		outcome = CycleSkipped
		logger.Info().Msg("Target removed during cycle, nothing written")
		return report, nil
	}
	if err != nil {
		outcome = CycleFailed
		return report, err
	}
	s.archive(target, page.Content, checkedAt)

	logger.Info().
		Bool("content_changed", report.ContentChanged).
		Int("discovered", report.Discovered).
		Int("filtered", report.Filtered).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Msg("Check cycle completed")
	return report, nil
}

func (s *Service) notifyChange(ctx context.Context, target *models.Target, change differ.ChangeResult, newResources int, at time.Time, logger zerolog.Logger) {
	if s.deps.Observer != nil {
		s.deps.Observer.IncContentChange()
	}
	if !s.cfg.NotificationConfig.NotifyOnChange {
		s.recordStat(ctx, target.Owner, models.StatContentChanges, true)
		return
	}

	err := s.deps.Notifier.NotifyChange(ctx, target.Meta(), notifier.ChangeNotice{
		Diff:         change.Diff,
		Truncated:    change.Truncated,
		LinesAdded:   change.LinesAdded,
		LinesDeleted: change.LinesDeleted,
		NewResources: newResources,
		DetectedAt:   at,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to send change notice")
	}
	s.recordStat(ctx, target.Owner, models.StatContentChanges, err == nil)
}

// deliverResource acquires and delivers one resource. It reports success only
// when the sink accepted every part of the payload.
func (s *Service) deliverResource(ctx context.Context, target models.TargetMeta, resource models.Resource, logger zerolog.Logger) bool {
	logger = logger.With().Str("resource_url", resource.URL).Str("resource_type", resource.Type.String()).Logger()

	err := s.acquireAndDeliver(ctx, target, resource, logger)
	success := err == nil
	if err != nil {
		if acquisition.IsSizeLimit(err) {
			logger.Warn().Err(err).Msg("Resource exceeds size limit")
		} else {
			logger.Warn().Err(err).Msg("Resource delivery failed")
		}
	} else {
		logger.Info().Msg("Resource delivered")
	}

	s.recordStat(ctx, target.Owner, models.StatDownloads, success)
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveDelivery(resource.Type.String(), success)
	}
	return success
}

func (s *Service) acquireAndDeliver(ctx context.Context, target models.TargetMeta, resource models.Resource, logger zerolog.Logger) error {
	artifact, err := s.deps.Acquirer.Acquire(ctx, resource)
	if err != nil {
		return err
	}
	logger.Debug().Str("path", artifact.Path).Int64("size", artifact.Size).Str("via", artifact.Via).Msg("Resource acquired")

	meta := models.MetaOf(resource)
	deliver := func(ctx context.Context, payload models.Payload) error {
		return s.deps.Notifier.Deliver(ctx, target, meta, payload)
	}

	if resource.Type.IsDocument() {
		result, err := s.deps.Rasterizer.Process(ctx, artifact.Path, deliver)
		if result != nil {
			logger.Debug().Str("outcome", string(result.Outcome)).Int("pages", result.Pages).Int("dpi", result.DPI).Msg("Document processed")
		}
		return err
	}

	defer func() {
		if err := os.Remove(artifact.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", artifact.Path).Msg("Failed to remove artifact")
		}
	}()
	return deliver(ctx, models.ArtifactPayload(artifact.Path))
}

func (s *Service) archive(target *models.Target, content string, at time.Time) {
	if s.deps.Archive == nil || !s.cfg.StorageConfig.EnableArchive {
		return
	}
	_, err := s.deps.Archive.Save(models.ArchiveEntry{
		TargetID:    target.ID,
		Owner:       target.Owner,
		URL:         target.URL,
		ContentHash: differ.Digest(content),
		Content:     content,
		CapturedAt:  at,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("target_id", target.ID).Msg("Failed to archive snapshot")
	}
}

func (s *Service) recordStat(ctx context.Context, owner string, kind models.StatKind, success bool) {
	if err := s.deps.Stats.Increment(ctx, owner, kind, success); err != nil {
		s.logger.Debug().Err(err).Str("owner", owner).Str("kind", string(kind)).Msg("Failed to record stat")
	}
}
