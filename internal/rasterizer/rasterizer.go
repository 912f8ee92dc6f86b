package rasterizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Outcome names the terminal state of a processed document.
type Outcome string

const (
	OutcomeRaw         Outcome = "raw"
	OutcomeImages      Outcome = "images"
	OutcomeRawFallback Outcome = "raw_fallback"
	OutcomeError       Outcome = "error"
)

// DeliverFunc hands a payload to the delivery sink.
type DeliverFunc func(ctx context.Context, payload models.Payload) error

// Observer receives render timings. Implemented by the metrics package.
type Observer interface {
	ObserveRender(outcome string, duration time.Duration)
}

// Result summarizes a processed document.
type Result struct {
	Outcome Outcome
	Size    int64
	Pages   int
	DPI     int
	Images  int
}

// Rasterizer decides whether a document is delivered raw or as page images,
// renders under the shared throttle, and removes every file it touched.
type Rasterizer struct {
	cfg      config.RasterizerConfig
	counter  PageCounter
	renderer Renderer
	throttle *Throttle
	observer Observer
	workDir  string
	logger   zerolog.Logger
}

// RasterizerBuilder provides a fluent interface for creating Rasterizer
type RasterizerBuilder struct {
	cfg      config.RasterizerConfig
	counter  PageCounter
	renderer Renderer
	throttle *Throttle
	observer Observer
	logger   zerolog.Logger
}

// NewRasterizerBuilder creates a builder with default configuration and pdfcpu page counting.
func NewRasterizerBuilder(logger zerolog.Logger) *RasterizerBuilder {
	return &RasterizerBuilder{
		cfg:     config.NewDefaultRasterizerConfig(),
		counter: PDFPageCounter{},
		logger:  logger,
	}
}

func (b *RasterizerBuilder) WithConfig(cfg config.RasterizerConfig) *RasterizerBuilder {
	b.cfg = cfg
	return b
}

func (b *RasterizerBuilder) WithRenderer(renderer Renderer) *RasterizerBuilder {
	b.renderer = renderer
	return b
}

func (b *RasterizerBuilder) WithPageCounter(counter PageCounter) *RasterizerBuilder {
	b.counter = counter
	return b
}

// WithThrottle sets the shared render throttle. Every rasterizer in the process must get the same one.
func (b *RasterizerBuilder) WithThrottle(throttle *Throttle) *RasterizerBuilder {
	b.throttle = throttle
	return b
}

func (b *RasterizerBuilder) WithObserver(observer Observer) *RasterizerBuilder {
	b.observer = observer
	return b
}

// Build creates the Rasterizer.
func (b *RasterizerBuilder) Build() (*Rasterizer, error) {
	if b.throttle == nil {
		return nil, common.NewValidationError("throttle", nil, "render throttle is required")
	}
	if err := config.ValidateDPITiers(b.cfg.DPITiers); err != nil {
		return nil, common.NewValidationError("dpi_tiers", b.cfg.DPITiers, err.Error())
	}

	renderer := b.renderer
	if renderer == nil {
		renderer = NewPdftoppmRenderer(b.cfg, b.logger)
	}

	workDir := b.cfg.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "resourcewatch-render")
	}
	if err := common.EnsureDir(workDir); err != nil {
		return nil, common.WrapError(err, "failed to create render work directory")
	}

	return &Rasterizer{
		cfg:      b.cfg,
		counter:  b.counter,
		renderer: renderer,
		throttle: b.throttle,
		observer: b.observer,
		workDir:  workDir,
		logger:   b.logger.With().Str("component", "Rasterizer").Logger(),
	}, nil
}

// Process delivers the document at sourcePath either raw or as a page album.
// The source file and all render output are removed before Process returns.
// A render failure falls back to raw delivery when the source still exists;
// otherwise a RenderError is returned.
func (r *Rasterizer) Process(ctx context.Context, sourcePath string, deliver DeliverFunc) (*Result, error) {
	defer common.RemoveQuietly(r.logger, sourcePath)

	logger := r.logger.With().Str("document", sourcePath).Logger()

	if !r.cfg.Enabled {
		return &Result{Outcome: OutcomeRaw}, deliver(ctx, models.ArtifactPayload(sourcePath))
	}

	gate, err := checkGate(sourcePath, r.counter, r.cfg)
	if err != nil {
		return &Result{Outcome: OutcomeError}, common.NewRenderError(sourcePath, 0, err)
	}
	if gate.CountErr != nil {
		logger.Warn().Err(gate.CountErr).Msg("Could not read page count, gating on size only")
	}

	result := &Result{Size: gate.Size, Pages: gate.Pages}
	if gate.Pass {
		result.Outcome = OutcomeRaw
		return result, deliver(ctx, models.ArtifactPayload(sourcePath))
	}

	job := models.RenderJob{
		ID:        uuid.NewString(),
		InputPath: sourcePath,
		DPI:       SelectDPI(r.cfg.DPITiers, gate.Size, gate.Pages),
	}
	job.OutputDir = filepath.Join(r.workDir, job.ID)
	result.DPI = job.DPI
	defer func() {
		if err := os.RemoveAll(job.OutputDir); err != nil {
			logger.Warn().Err(err).Str("dir", job.OutputDir).Msg("Failed to remove render output")
		}
	}()

	logger.Info().
		Int64("size", gate.Size).
		Int("pages", gate.Pages).
		Int("dpi", job.DPI).
		Str("job_id", job.ID).
		Msg("Rendering document")

	images, renderErr := r.render(ctx, job)
	if renderErr == nil {
		result.Outcome = OutcomeImages
		result.Images = len(images)
		return result, deliver(ctx, models.AlbumPayload(images))
	}

	wrapped := common.NewRenderError(sourcePath, job.DPI, renderErr)
	if !common.FileExists(sourcePath) {
		logger.Error().Err(wrapped).Msg("Render failed and source is gone")
		result.Outcome = OutcomeError
		return result, wrapped
	}

	logger.Warn().Err(wrapped).Msg("Render failed, delivering raw document")
	result.Outcome = OutcomeRawFallback
	return result, deliver(ctx, models.ArtifactPayload(sourcePath))
}

func (r *Rasterizer) render(ctx context.Context, job models.RenderJob) ([]string, error) {
	var images []string
	start := time.Now()

	err := r.throttle.Do(ctx, func(ctx context.Context) error {
		if err := common.EnsureDir(job.OutputDir); err != nil {
			return err
		}
		var err error
		images, err = r.renderer.Render(ctx, job.InputPath, job.OutputDir, job.DPI)
		if err == nil && len(images) == 0 {
			err = errors.New("renderer produced no pages")
		}
		return err
	})

	if r.observer != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		r.observer.ObserveRender(outcome, time.Since(start))
	}
	return images, err
}
