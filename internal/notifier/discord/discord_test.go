package discord

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordEmbedBuilder_Build(t *testing.T) {
	embed, err := NewDiscordEmbedBuilder().
		WithTitle("Test").
		WithDescription("Description").
		WithTimestamp(time.Now()).
		WithColor(0x00FF00).
		WithImage(AttachmentURL("a.png")).
		AddField("Source", "https://example.com", false).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "Test", embed.Title)
	assert.Equal(t, "Description", embed.Description)
	assert.NotEmpty(t, embed.Timestamp)
	assert.Equal(t, "attachment://a.png", embed.Image.URL)
	assert.Len(t, embed.Fields, 1)
}

func TestDiscordEmbedBuilder_RejectsOversized(t *testing.T) {
	_, err := NewDiscordEmbedBuilder().WithTitle(strings.Repeat("t", 257)).Build()
	assert.Error(t, err)

	_, err = NewDiscordEmbedBuilder().AddField("", "v", false).Build()
	assert.Error(t, err)
}

func TestMessagePayloadBuilder(t *testing.T) {
	payload := NewDiscordMessagePayloadBuilder().
		WithContent("hello").
		AddAttachment("one.pdf").
		AddAttachment("two.png").
		Build()

	require.Len(t, payload.Attachments, 2)
	assert.Equal(t, 1, payload.Attachments[1].ID)
	require.NoError(t, ValidatePayload(payload))

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"allowed_mentions":{"parse":[]}`)
}

func TestValidatePayload_Limits(t *testing.T) {
	builder := NewDiscordMessagePayloadBuilder()
	for i := 0; i < MaxAttachments+1; i++ {
		builder.AddAttachment("f.png")
	}
	assert.Error(t, ValidatePayload(builder.Build()))

	assert.Error(t, ValidatePayload(DiscordMessagePayload{Content: strings.Repeat("x", MaxContentLength+1)}))
}
