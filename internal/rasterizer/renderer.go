package rasterizer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/rs/zerolog"
)

// Renderer converts a document into ordered page images inside outDir.
// A non-zero exit or an empty output set is a failure.
type Renderer interface {
	Render(ctx context.Context, inputPath, outDir string, dpi int) ([]string, error)
}

// PdftoppmRenderer shells out to poppler's pdftoppm.
type PdftoppmRenderer struct {
	binaryPath string
	format     string
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewPdftoppmRenderer creates a renderer from rasterizer configuration.
func NewPdftoppmRenderer(cfg config.RasterizerConfig, logger zerolog.Logger) *PdftoppmRenderer {
	format := cfg.ImageFormat
	if format == "" {
		format = "png"
	}
	return &PdftoppmRenderer{
		binaryPath: cfg.RendererPath,
		format:     format,
		timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
		logger:     logger.With().Str("adapter", "Pdftoppm").Logger(),
	}
}

func (p *PdftoppmRenderer) extension() string {
	if p.format == "jpeg" {
		return ".jpg"
	}
	return ".png"
}

// Render runs pdftoppm -r <dpi> -<format> <input> <outDir>/page.
func (p *PdftoppmRenderer) Render(ctx context.Context, inputPath, outDir string, dpi int) ([]string, error) {
	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prefix := filepath.Join(outDir, "page")
	cmd := exec.CommandContext(runCtx, p.binaryPath, "-r", strconv.Itoa(dpi), "-"+p.format, inputPath, prefix)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	p.logger.Debug().Str("command", cmd.String()).Msg("Executing renderer")

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("renderer timed out after %s", p.timeout)
		}
		return nil, fmt.Errorf("renderer failed: %w: %s", err, strings.TrimSpace(stderrBuf.String()))
	}

	pages, err := filepath.Glob(prefix + "-*" + p.extension())
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("renderer produced no pages")
	}
	sort.Strings(pages)
	return pages, nil
}
