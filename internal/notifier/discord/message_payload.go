package discord

// DiscordMessagePayload represents the JSON payload sent to a Discord webhook.
// With files attached it travels as the payload_json multipart field.
type DiscordMessagePayload struct {
	Content         string                 `json:"content,omitempty"`
	Username        string                 `json:"username,omitempty"`
	AvatarURL       string                 `json:"avatar_url,omitempty"`
	Embeds          []DiscordEmbed         `json:"embeds,omitempty"`
	Attachments     []DiscordAttachment    `json:"attachments,omitempty"`
	AllowedMentions *DiscordAllowedMention `json:"allowed_mentions,omitempty"`
}

// DiscordAttachment describes the file uploaded in multipart part files[ID].
type DiscordAttachment struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

// DiscordAllowedMention restricts which mentions in Content ping anyone.
type DiscordAllowedMention struct {
	Parse []string `json:"parse"`
	Roles []string `json:"roles,omitempty"`
}
