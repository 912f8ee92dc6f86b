package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/notifier/discord"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DiscordNotifier delivers resources and notices through Discord webhooks.
type DiscordNotifier struct {
	cfg        config.NotificationConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(cfg config.NotificationConfig, httpClient *http.Client, logger zerolog.Logger) *DiscordNotifier {
	moduleLogger := logger.With().Str("component", "DiscordNotifier").Logger()

	if httpClient == nil {
		timeout := time.Duration(cfg.TimeoutSecs) * time.Second
		if timeout <= 0 {
			timeout = time.Duration(config.DefaultNotifierTimeoutSec) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = config.DefaultRequestsPerSecond
	}
	if cfg.CaptionMaxLength <= 0 {
		cfg.CaptionMaxLength = config.DefaultCaptionMaxLength
	}

	return &DiscordNotifier{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     moduleLogger,
	}
}

// WebhookFor returns the webhook of an owner, falling back to the default one.
func (dn *DiscordNotifier) WebhookFor(owner string) string {
	if hook, ok := dn.cfg.OwnerWebhooks[owner]; ok && hook != "" {
		return hook
	}
	return dn.cfg.WebhookURL
}

// Deliver sends a single artifact or an image album. Albums go out in chunks of
// ten files; only the first message carries the caption.
func (dn *DiscordNotifier) Deliver(ctx context.Context, target models.TargetMeta, resource models.ResourceMeta, payload models.Payload) error {
	webhookURL := dn.WebhookFor(target.Owner)
	if webhookURL == "" {
		return ErrNoWebhook
	}
	caption := FormatCaption(target, resource, dn.cfg.CaptionMaxLength)

	if payload.Kind == models.PayloadAlbum {
		return dn.sendAlbum(ctx, webhookURL, caption, payload.Images)
	}

	builder := discord.NewDiscordMessagePayloadBuilder().
		WithUsername(DiscordUsername).
		WithContent(caption)
	filename := filepath.Base(payload.Path)

	switch resource.Type {
	case models.ResourcePDF, models.ResourceAudio, models.ResourceVideo:
	case models.ResourceImage:
		embed, err := discord.NewDiscordEmbedBuilder().
			WithURL(resource.URL).
			WithColor(ImageEmbedColor).
			WithImage(discord.AttachmentURL(filename)).
			Build()
		if err != nil {
			return err
		}
		builder.AddEmbed(embed)
	default:
		return fmt.Errorf("unsupported resource type %q", resource.Type)
	}
	builder.AddAttachment(filename)

	return dn.send(ctx, webhookURL, builder.Build(), []string{payload.Path})
}

func (dn *DiscordNotifier) sendAlbum(ctx context.Context, webhookURL, caption string, images []string) error {
	if len(images) == 0 {
		return fmt.Errorf("album has no images")
	}
	for i, chunk := range chunkPaths(images, MaxAlbumChunk) {
		builder := discord.NewDiscordMessagePayloadBuilder().WithUsername(DiscordUsername)
		if i == 0 {
			builder.WithContent(caption)
		}
		for _, image := range chunk {
			builder.AddAttachment(filepath.Base(image))
		}
		if err := dn.send(ctx, webhookURL, builder.Build(), chunk); err != nil {
			return fmt.Errorf("album part %d: %w", i+1, err)
		}
	}
	return nil
}

// NotifyChange announces a content change. Disabled notices are skipped silently.
func (dn *DiscordNotifier) NotifyChange(ctx context.Context, target models.TargetMeta, notice ChangeNotice) error {
	if !dn.cfg.NotifyOnChange {
		return nil
	}
	webhookURL := dn.WebhookFor(target.Owner)
	if webhookURL == "" {
		return ErrNoWebhook
	}
	return dn.send(ctx, webhookURL, FormatChangeMessage(target, notice, dn.cfg.MentionRoleIDs), nil)
}

// NotifyFailure reports a failed check for a target.
func (dn *DiscordNotifier) NotifyFailure(ctx context.Context, target models.TargetMeta, cause error) error {
	if !dn.cfg.NotifyOnFailure {
		return nil
	}
	webhookURL := dn.WebhookFor(target.Owner)
	if webhookURL == "" {
		return ErrNoWebhook
	}
	return dn.send(ctx, webhookURL, FormatFailureMessage(target, cause, dn.cfg.MentionRoleIDs), nil)
}

// send posts one webhook message. Attachments are streamed as files[N] parts.
func (dn *DiscordNotifier) send(ctx context.Context, webhookURL string, payload discord.DiscordMessagePayload, files []string) error {
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if err := discord.ValidatePayload(payload); err != nil {
		return err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	if err := dn.limiter.Wait(ctx); err != nil {
		return err
	}

	body, writer := io.Pipe()
	defer body.Close()
	mw := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(writeMultipart(mw, payloadJSON, files))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, body)
	if err != nil {
		_ = body.CloseWithError(err)
		return fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := dn.httpClient.Do(req)
	if err != nil {
		_ = body.CloseWithError(err)
		dn.logger.Error().Err(err).Msg("Failed to send Discord webhook")
		return fmt.Errorf("failed to send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		dn.logger.Error().Int("status_code", resp.StatusCode).Str("response_body", string(respBody)).Msg("Discord webhook rejected message")
		return fmt.Errorf("discord webhook failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	dn.logger.Debug().Int("status_code", resp.StatusCode).Int("files", len(files)).Msg("Discord webhook sent")
	return nil
}

func writeMultipart(mw *multipart.Writer, payloadJSON []byte, files []string) error {
	if err := mw.WriteField("payload_json", string(payloadJSON)); err != nil {
		return err
	}
	for i, path := range files {
		if err := copyFilePart(mw, i, path); err != nil {
			return err
		}
	}
	return mw.Close()
}

func copyFilePart(mw *multipart.Writer, index int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open attachment '%s': %w", path, err)
	}
	defer f.Close()

	part, err := mw.CreateFormFile(fmt.Sprintf("files[%d]", index), filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
