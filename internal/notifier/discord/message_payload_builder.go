package discord

// DiscordMessagePayloadBuilder helps in constructing DiscordMessagePayload objects.
type DiscordMessagePayloadBuilder struct {
	payload DiscordMessagePayload
}

// NewDiscordMessagePayloadBuilder creates a new instance of DiscordMessagePayloadBuilder.
// Mentions are disabled unless roles are allowed explicitly.
func NewDiscordMessagePayloadBuilder() *DiscordMessagePayloadBuilder {
	return &DiscordMessagePayloadBuilder{
		payload: DiscordMessagePayload{
			AllowedMentions: &DiscordAllowedMention{Parse: []string{}},
		},
	}
}

// WithContent sets the Content for the DiscordMessagePayload.
func (b *DiscordMessagePayloadBuilder) WithContent(content string) *DiscordMessagePayloadBuilder {
	b.payload.Content = content
	return b
}

// WithUsername sets the Username for the DiscordMessagePayload.
func (b *DiscordMessagePayloadBuilder) WithUsername(username string) *DiscordMessagePayloadBuilder {
	b.payload.Username = username
	return b
}

// WithAllowedRoles lets the listed role mentions notify.
func (b *DiscordMessagePayloadBuilder) WithAllowedRoles(roleIDs []string) *DiscordMessagePayloadBuilder {
	b.payload.AllowedMentions.Roles = roleIDs
	return b
}

// AddEmbed adds an embed to the DiscordMessagePayload.
func (b *DiscordMessagePayloadBuilder) AddEmbed(embed DiscordEmbed) *DiscordMessagePayloadBuilder {
	b.payload.Embeds = append(b.payload.Embeds, embed)
	return b
}

// AddAttachment registers a file; its index is the multipart part number.
func (b *DiscordMessagePayloadBuilder) AddAttachment(filename string) *DiscordMessagePayloadBuilder {
	b.payload.Attachments = append(b.payload.Attachments, DiscordAttachment{
		ID:       len(b.payload.Attachments),
		Filename: filename,
	})
	return b
}

// Build returns the constructed DiscordMessagePayload object.
func (b *DiscordMessagePayloadBuilder) Build() DiscordMessagePayload {
	return b.payload
}
