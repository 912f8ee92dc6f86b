package acquisition

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/rs/zerolog"
)

// PrimaryExtractor is the site-aware extractor tried before a raw download.
// It writes into destDir using baseName and returns the produced file path.
type PrimaryExtractor interface {
	Extract(ctx context.Context, rawURL, destDir, baseName string) (string, error)
}

// YtDlpExtractor runs the yt-dlp CLI.
type YtDlpExtractor struct {
	cfg     config.PrimaryExtractorConfig
	maxSize int64
	logger  zerolog.Logger
}

// NewYtDlpExtractor creates a yt-dlp adapter.
func NewYtDlpExtractor(cfg config.PrimaryExtractorConfig, maxSize int64, logger zerolog.Logger) *YtDlpExtractor {
	return &YtDlpExtractor{
		cfg:     cfg,
		maxSize: maxSize,
		logger:  logger.With().Str("adapter", "YtDlpExtractor").Logger(),
	}
}

func (y *YtDlpExtractor) args(rawURL, outputTemplate string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"--no-warnings",
		"--no-simulate",
		"--print", "after_move:filepath",
		"-o", outputTemplate,
	}
	if y.maxSize > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(y.maxSize, 10))
	}
	args = append(args, y.cfg.ExtraArgs...)
	return append(args, rawURL)
}

// Extract downloads rawURL with yt-dlp and returns the file it produced.
func (y *YtDlpExtractor) Extract(ctx context.Context, rawURL, destDir, baseName string) (string, error) {
	if y.cfg.BinaryPath == "" {
		return "", fmt.Errorf("yt-dlp path is not configured")
	}

	runCtx := ctx
	if y.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(y.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	outputTemplate := filepath.Join(destDir, baseName+".%(ext)s")
	cmd := exec.CommandContext(runCtx, y.cfg.BinaryPath, y.args(rawURL, outputTemplate)...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	y.logger.Debug().Str("command", cmd.String()).Msg("Executing yt-dlp")

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("yt-dlp timed out after %d seconds", y.cfg.TimeoutSecs)
		}
		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderrBuf.String()))
	}

	path := lastLine(stdoutBuf.String())
	if path == "" {
		return "", fmt.Errorf("yt-dlp produced no file")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("yt-dlp output missing: %w", err)
	}
	if y.maxSize > 0 && info.Size() > y.maxSize {
		_ = os.Remove(path)
		return "", common.NewSizeLimitExceeded(rawURL, y.maxSize, info.Size())
	}
	return path, nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
