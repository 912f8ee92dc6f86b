// Package differ detects page content changes and renders them as unified diffs.
package differ

import (
	"unicode/utf8"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// TruncationMarker is appended to diffs cut at the length limit.
const TruncationMarker = "\n... (diff truncated)"

// ChangeResult is the outcome of comparing a stored page with a fresh fetch.
type ChangeResult struct {
	Changed      bool
	Digest       string
	Diff         string
	LinesAdded   int
	LinesDeleted int
	Truncated    bool
}

// ContentDiffer compares page versions
type ContentDiffer struct {
	dmp           *diffmatchpatch.DiffMatchPatch
	maxDiffLength int
	contextLines  int
	logger        zerolog.Logger
}

// ContentDifferBuilder provides a fluent interface for creating ContentDiffer
type ContentDifferBuilder struct {
	cfg    config.DifferConfig
	logger zerolog.Logger
}

// NewContentDifferBuilder creates a new builder
func NewContentDifferBuilder(logger zerolog.Logger) *ContentDifferBuilder {
	return &ContentDifferBuilder{
		cfg:    config.NewDefaultDifferConfig(),
		logger: logger,
	}
}

// WithConfig sets the differ configuration
func (b *ContentDifferBuilder) WithConfig(cfg config.DifferConfig) *ContentDifferBuilder {
	b.cfg = cfg
	return b
}

// Build creates a new ContentDiffer instance
func (b *ContentDifferBuilder) Build() (*ContentDiffer, error) {
	if b.cfg.MaxDiffLength < len(TruncationMarker) {
		return nil, common.NewValidationError("max_diff_length", b.cfg.MaxDiffLength, "too small to hold a diff")
	}
	if b.cfg.ContextLines < 0 {
		return nil, common.NewValidationError("context_lines", b.cfg.ContextLines, "must not be negative")
	}
	return &ContentDiffer{
		dmp:           diffmatchpatch.New(),
		maxDiffLength: b.cfg.MaxDiffLength,
		contextLines:  b.cfg.ContextLines,
		logger:        b.logger.With().Str("component", "ContentDiffer").Logger(),
	}, nil
}

// Digest returns the content digest of a page.
func Digest(content string) string {
	return common.SHA256Hex([]byte(content))
}

// Detect compares the stored digest with the new content. When they differ, the result carries
// a unified diff against prevContent, truncated to the configured length.
func (cd *ContentDiffer) Detect(prevDigest, prevContent, newContent string) ChangeResult {
	result := ChangeResult{Digest: Digest(newContent)}
	if result.Digest == prevDigest {
		return result
	}
	result.Changed = true

	ops := cd.lineOps(prevContent, newContent)
	for _, op := range ops {
		switch op.kind {
		case diffmatchpatch.DiffInsert:
			result.LinesAdded++
		case diffmatchpatch.DiffDelete:
			result.LinesDeleted++
		}
	}

	result.Diff, result.Truncated = truncate(unified(ops, cd.contextLines), cd.maxDiffLength)
	cd.logger.Debug().
		Int("lines_added", result.LinesAdded).
		Int("lines_deleted", result.LinesDeleted).
		Bool("truncated", result.Truncated).
		Msg("Content change detected")
	return result
}

func truncate(diff string, max int) (string, bool) {
	if len(diff) <= max {
		return diff, false
	}
	cut := max - len(TruncationMarker)
	for cut > 0 && !utf8.RuneStart(diff[cut]) {
		cut--
	}
	return diff[:cut] + TruncationMarker, true
}
