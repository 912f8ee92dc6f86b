package acquisition

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/httpclient"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/urlhandler"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Downloader streams a URL to a file under a byte cap.
type Downloader interface {
	Download(ctx context.Context, rawURL, destPath string, maxBytes int64) (*httpclient.DownloadResult, error)
}

// Artifact is a materialized resource on local disk. The caller owns Path.
type Artifact struct {
	Resource models.Resource
	Path     string
	Size     int64
	Via      string
}

const (
	ViaPrimary  = "primary"
	ViaFallback = "fallback"

	maxBaseNameLength = 80
)

// Acquirer turns resource URLs into local artifacts. It never retries.
type Acquirer struct {
	primary    PrimaryExtractor
	downloader Downloader
	dir        string
	maxSize    int64
	logger     zerolog.Logger
}

// AcquirerBuilder provides a fluent interface for creating Acquirer
type AcquirerBuilder struct {
	acquirer Acquirer
}

// NewAcquirerBuilder creates a builder writing artifacts into dir.
func NewAcquirerBuilder(dir string, logger zerolog.Logger) *AcquirerBuilder {
	return &AcquirerBuilder{acquirer: Acquirer{
		dir:    dir,
		logger: logger.With().Str("component", "Acquirer").Logger(),
	}}
}

// WithPrimary sets the site-aware extractor. nil disables it.
func (b *AcquirerBuilder) WithPrimary(primary PrimaryExtractor) *AcquirerBuilder {
	b.acquirer.primary = primary
	return b
}

// WithDownloader sets the raw fallback downloader.
func (b *AcquirerBuilder) WithDownloader(d Downloader) *AcquirerBuilder {
	b.acquirer.downloader = d
	return b
}

// WithMaxSize sets the hard artifact size cap in bytes.
func (b *AcquirerBuilder) WithMaxSize(max int64) *AcquirerBuilder {
	b.acquirer.maxSize = max
	return b
}

// Build creates the Acquirer.
func (b *AcquirerBuilder) Build() (*Acquirer, error) {
	if b.acquirer.downloader == nil {
		return nil, common.NewValidationError("downloader", nil, "downloader is required")
	}
	if b.acquirer.maxSize <= 0 {
		return nil, common.NewValidationError("max_size", b.acquirer.maxSize, "max size must be positive")
	}
	if err := common.EnsureDir(b.acquirer.dir); err != nil {
		return nil, common.WrapError(err, "failed to create download directory")
	}
	acquirer := b.acquirer
	return &acquirer, nil
}

// Acquire materializes a resource: primary extractor first, then raw download.
// Failures return AcquisitionError, whose parts may include SizeLimitExceeded.
func (a *Acquirer) Acquire(ctx context.Context, resource models.Resource) (*Artifact, error) {
	fetchURL := resource.FetchURL()
	baseName := artifactBaseName(fetchURL)

	var primaryErr error
	if a.primary != nil {
		path, err := a.primary.Extract(ctx, fetchURL, a.dir, baseName)
		if err == nil {
			var artifact *Artifact
			artifact, err = a.artifact(resource, path, ViaPrimary)
			if err == nil {
				return artifact, nil
			}
		}
		primaryErr = err
		a.logger.Debug().Err(err).Str("url", resource.URL).Msg("Primary extractor failed, falling back to raw download")
		if ctx.Err() != nil {
			return nil, common.NewAcquisitionError(resource.URL, primaryErr, ctx.Err())
		}
	}

	dest := filepath.Join(a.dir, baseName+urlhandler.Extension(fetchURL))
	result, err := a.downloader.Download(ctx, fetchURL, dest, a.maxSize)
	if err != nil {
		return nil, common.NewAcquisitionError(resource.URL, primaryErr, err)
	}

	return &Artifact{Resource: resource, Path: result.Path, Size: result.Size, Via: ViaFallback}, nil
}

// artifactBaseName is the sanitized file name of the resource plus a short
// random suffix. Concurrent acquisitions of one URL never share a path.
func artifactBaseName(rawURL string) string {
	suffix := uuid.NewString()[:8]
	base := urlhandler.BaseName(rawURL)
	if base == "" {
		return suffix
	}
	name := urlhandler.SanitizeFilename(base)
	if len(name) > maxBaseNameLength {
		name = name[:maxBaseNameLength]
	}
	return name + "-" + suffix
}

func (a *Acquirer) artifact(resource models.Resource, path, via string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > a.maxSize {
		_ = os.Remove(path)
		return nil, common.NewSizeLimitExceeded(resource.URL, a.maxSize, info.Size())
	}
	return &Artifact{Resource: resource, Path: path, Size: info.Size(), Via: via}, nil
}

// IsSizeLimit reports whether an acquisition failed because of the size cap.
func IsSizeLimit(err error) bool {
	var sizeErr *common.SizeLimitExceeded
	return errors.As(err, &sizeErr)
}
