package discord

import (
	"time"
)

// DiscordEmbedBuilder helps in constructing DiscordEmbed objects.
type DiscordEmbedBuilder struct {
	embed     DiscordEmbed
	validator *DiscordEmbedValidator
}

// NewDiscordEmbedBuilder creates a new Discord embed builder
func NewDiscordEmbedBuilder() *DiscordEmbedBuilder {
	return &DiscordEmbedBuilder{
		embed:     DiscordEmbed{},
		validator: NewDiscordEmbedValidator(),
	}
}

// WithTitle sets the embed title
func (deb *DiscordEmbedBuilder) WithTitle(title string) *DiscordEmbedBuilder {
	deb.embed.Title = title
	return deb
}

// WithDescription sets the embed description
func (deb *DiscordEmbedBuilder) WithDescription(description string) *DiscordEmbedBuilder {
	deb.embed.Description = description
	return deb
}

func (deb *DiscordEmbedBuilder) WithURL(url string) *DiscordEmbedBuilder {
	deb.embed.URL = url
	return deb
}

// WithTimestamp sets the embed timestamp
func (deb *DiscordEmbedBuilder) WithTimestamp(timestamp time.Time) *DiscordEmbedBuilder {
	deb.embed.Timestamp = timestamp.Format(time.RFC3339)
	return deb
}

// WithColor sets the embed color
func (deb *DiscordEmbedBuilder) WithColor(color int) *DiscordEmbedBuilder {
	deb.embed.Color = color
	return deb
}

// WithFooter sets the embed footer
func (deb *DiscordEmbedBuilder) WithFooter(text string) *DiscordEmbedBuilder {
	deb.embed.Footer = &DiscordEmbedFooter{Text: text}
	return deb
}

// WithImage shows an image inside the embed.
func (deb *DiscordEmbedBuilder) WithImage(url string) *DiscordEmbedBuilder {
	deb.embed.Image = &DiscordEmbedImage{URL: url}
	return deb
}

// AddField appends a field; Validate rejects oversized values.
func (deb *DiscordEmbedBuilder) AddField(name, value string, inline bool) *DiscordEmbedBuilder {
	deb.embed.Fields = append(deb.embed.Fields, DiscordEmbedField{Name: name, Value: value, Inline: inline})
	return deb
}

// Validate validates the current embed
func (deb *DiscordEmbedBuilder) Validate() error {
	return deb.validator.ValidateEmbed(deb.embed)
}

// Build returns the embed, or an error when it breaks webhook limits.
func (deb *DiscordEmbedBuilder) Build() (DiscordEmbed, error) {
	if err := deb.Validate(); err != nil {
		return DiscordEmbed{}, err
	}
	return deb.embed, nil
}
