package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/notifier/discord"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMessage struct {
	payload discord.DiscordMessagePayload
	files   map[string]string
}

type webhookRecorder struct {
	mu       sync.Mutex
	messages []capturedMessage
	status   int
}

func (w *webhookRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		reader, err := r.MultipartReader()
		if err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		msg := capturedMessage{files: map[string]string{}}
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				rw.WriteHeader(http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(part)
			if part.FormName() == "payload_json" {
				assert.NoError(t, json.Unmarshal(data, &msg.payload))
				continue
			}
			msg.files[part.FormName()] = part.FileName() + ":" + string(data)
		}

		w.mu.Lock()
		w.messages = append(w.messages, msg)
		status := w.status
		w.mu.Unlock()

		if status == 0 {
			status = http.StatusNoContent
		}
		rw.WriteHeader(status)
	}
}

func newTestNotifier(t *testing.T, recorder *webhookRecorder) *DiscordNotifier {
	t.Helper()
	server := httptest.NewServer(recorder.handler(t))
	t.Cleanup(server.Close)

	cfg := config.NewDefaultNotificationConfig()
	cfg.WebhookURL = server.URL
	cfg.RequestsPerSecond = 1000
	cfg.NotifyOnChange = true
	cfg.NotifyOnFailure = true
	return NewDiscordNotifier(cfg, server.Client(), zerolog.Nop())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

var testTarget = models.TargetMeta{ID: "alice_abc", Owner: "alice", Name: "Library", URL: "https://example.com/library"}

func TestDeliver_Artifact(t *testing.T) {
	recorder := &webhookRecorder{}
	dn := newTestNotifier(t, recorder)
	path := writeFile(t, t.TempDir(), "report.pdf", "%PDF-1.4")

	resource := models.ResourceMeta{URL: "https://example.com/report.pdf", Type: models.ResourcePDF, DisplayText: "Annual"}
	require.NoError(t, dn.Deliver(context.Background(), testTarget, resource, models.ArtifactPayload(path)))

	require.Len(t, recorder.messages, 1)
	msg := recorder.messages[0]
	assert.Contains(t, msg.payload.Content, "📁 Library")
	assert.Contains(t, msg.payload.Content, "📥 Direct URL: https://example.com/report.pdf")
	assert.Empty(t, msg.payload.Embeds)
	assert.Equal(t, []discord.DiscordAttachment{{ID: 0, Filename: "report.pdf"}}, msg.payload.Attachments)
	assert.Equal(t, "report.pdf:%PDF-1.4", msg.files["files[0]"])
}

func TestDeliver_ImageGetsEmbed(t *testing.T) {
	recorder := &webhookRecorder{}
	dn := newTestNotifier(t, recorder)
	path := writeFile(t, t.TempDir(), "photo.png", "png")

	resource := models.ResourceMeta{URL: "https://example.com/photo.png", Type: models.ResourceImage}
	require.NoError(t, dn.Deliver(context.Background(), testTarget, resource, models.ArtifactPayload(path)))

	require.Len(t, recorder.messages, 1)
	require.Len(t, recorder.messages[0].payload.Embeds, 1)
	assert.Equal(t, "attachment://photo.png", recorder.messages[0].payload.Embeds[0].Image.URL)
}

func TestDeliver_AlbumChunkedWithCaptionOnFirst(t *testing.T) {
	recorder := &webhookRecorder{}
	dn := newTestNotifier(t, recorder)
	dir := t.TempDir()

	var images []string
	for i := 1; i <= 23; i++ {
		images = append(images, writeFile(t, dir, fmt.Sprintf("page-%02d.png", i), "img"))
	}

	resource := models.ResourceMeta{URL: "https://example.com/big.pdf", Type: models.ResourcePDF}
	require.NoError(t, dn.Deliver(context.Background(), testTarget, resource, models.AlbumPayload(images)))

	require.Len(t, recorder.messages, 3)
	assert.NotEmpty(t, recorder.messages[0].payload.Content)
	assert.Empty(t, recorder.messages[1].payload.Content)
	assert.Empty(t, recorder.messages[2].payload.Content)

	assert.Len(t, recorder.messages[0].files, 10)
	assert.Len(t, recorder.messages[1].files, 10)
	assert.Len(t, recorder.messages[2].files, 3)
	assert.Equal(t, "page-01.png:img", recorder.messages[0].files["files[0]"])
	assert.Equal(t, "page-21.png:img", recorder.messages[2].files["files[0]"])
}

func TestDeliver_Failures(t *testing.T) {
	recorder := &webhookRecorder{status: http.StatusInternalServerError}
	dn := newTestNotifier(t, recorder)
	path := writeFile(t, t.TempDir(), "a.mp3", "mp3")
	resource := models.ResourceMeta{URL: "https://example.com/a.mp3", Type: models.ResourceAudio}

	err := dn.Deliver(context.Background(), testTarget, resource, models.ArtifactPayload(path))
	assert.Error(t, err)

	unknown := models.ResourceMeta{URL: "https://example.com/a.txt", Type: models.ResourceType("text")}
	assert.Error(t, dn.Deliver(context.Background(), testTarget, unknown, models.ArtifactPayload(path)))

	missing := models.ArtifactPayload(filepath.Join(t.TempDir(), "gone.mp3"))
	recorder.mu.Lock()
	recorder.status = 0
	recorder.mu.Unlock()
	assert.Error(t, dn.Deliver(context.Background(), testTarget, resource, missing))
}

func TestDeliver_NoWebhook(t *testing.T) {
	dn := NewDiscordNotifier(config.NewDefaultNotificationConfig(), nil, zerolog.Nop())
	err := dn.Deliver(context.Background(), testTarget, models.ResourceMeta{Type: models.ResourcePDF}, models.ArtifactPayload("x"))
	assert.True(t, errors.Is(err, ErrNoWebhook))
}

func TestWebhookFor_OwnerOverride(t *testing.T) {
	cfg := config.NewDefaultNotificationConfig()
	cfg.WebhookURL = "https://discord.example/default"
	cfg.OwnerWebhooks = map[string]string{"bob": "https://discord.example/bob"}
	dn := NewDiscordNotifier(cfg, nil, zerolog.Nop())

	assert.Equal(t, "https://discord.example/bob", dn.WebhookFor("bob"))
	assert.Equal(t, "https://discord.example/default", dn.WebhookFor("alice"))
}

func TestNotifyChangeAndFailure(t *testing.T) {
	recorder := &webhookRecorder{}
	dn := newTestNotifier(t, recorder)

	notice := ChangeNotice{Diff: "--- Previous\n+++ Current\n-a\n+b", LinesAdded: 1, LinesDeleted: 1, Truncated: true}
	require.NoError(t, dn.NotifyChange(context.Background(), testTarget, notice))
	require.NoError(t, dn.NotifyFailure(context.Background(), testTarget, errors.New("connection refused")))

	require.Len(t, recorder.messages, 2)
	change := recorder.messages[0].payload
	assert.Contains(t, change.Content, "Change detected at")
	require.Len(t, change.Embeds, 1)
	assert.True(t, strings.HasPrefix(change.Embeds[0].Description, "```diff\n--- Previous"))
	assert.Equal(t, "Diff truncated", change.Embeds[0].Footer.Text)

	failure := recorder.messages[1].payload
	assert.Contains(t, failure.Content, "Error checking updates for https://example.com/library")
	assert.Contains(t, failure.Embeds[0].Description, "connection refused")
}

func TestNotifyChange_Disabled(t *testing.T) {
	recorder := &webhookRecorder{}
	dn := newTestNotifier(t, recorder)
	dn.cfg.NotifyOnChange = false

	require.NoError(t, dn.NotifyChange(context.Background(), testTarget, ChangeNotice{}))
	assert.Empty(t, recorder.messages)
}

func TestFormatCaption_Truncated(t *testing.T) {
	resource := models.ResourceMeta{URL: "https://example.com/" + strings.Repeat("é", 2000) + ".pdf", Type: models.ResourcePDF}
	caption := FormatCaption(testTarget, resource, 1024)

	assert.Equal(t, 1024, utf8.RuneCountInString(caption))
	assert.True(t, strings.HasSuffix(caption, "..."))
	assert.True(t, utf8.ValidString(caption))
}

func TestFormatChangeMessage_LongDiffFitsEmbed(t *testing.T) {
	notice := ChangeNotice{Diff: strings.Repeat("+line\n", 2000)}
	payload := FormatChangeMessage(testTarget, notice, []string{"123"})

	require.Len(t, payload.Embeds, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(payload.Embeds[0].Description), discord.MaxDescriptionLength)
	assert.True(t, strings.HasPrefix(payload.Content, "<@&123>"))
	assert.Equal(t, []string{"123"}, payload.AllowedMentions.Roles)
}

func TestChunkPaths(t *testing.T) {
	assert.Nil(t, chunkPaths(nil, 10))
	chunks := chunkPaths([]string{"a", "b", "c"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, chunks)
}
