package discord

import (
	"fmt"
	"unicode/utf8"

	"github.com/aleister1102/resourcewatch/internal/common"
)

// Webhook limits enforced before sending.
const (
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096
	MaxFields            = 25
	MaxFieldValueLength  = 1024
	MaxContentLength     = 2000
	MaxAttachments       = 10
)

// DiscordEmbedValidator validates Discord embed objects
type DiscordEmbedValidator struct{}

// NewDiscordEmbedValidator creates a new embed validator
func NewDiscordEmbedValidator() *DiscordEmbedValidator {
	return &DiscordEmbedValidator{}
}

// ValidateEmbed validates a Discord embed
func (dev *DiscordEmbedValidator) ValidateEmbed(embed DiscordEmbed) error {
	if utf8.RuneCountInString(embed.Title) > MaxTitleLength {
		return common.NewValidationError("title", embed.Title, "title cannot exceed 256 characters")
	}

	if utf8.RuneCountInString(embed.Description) > MaxDescriptionLength {
		return common.NewValidationError("description", embed.Description, "description cannot exceed 4096 characters")
	}

	if len(embed.Fields) > MaxFields {
		return common.NewValidationError("fields", len(embed.Fields), "cannot have more than 25 fields")
	}

	for i, field := range embed.Fields {
		if field.Name == "" {
			return common.NewValidationError("field_name", field.Name, fmt.Sprintf("field %d name cannot be empty", i))
		}
		if field.Value == "" {
			return common.NewValidationError("field_value", field.Value, fmt.Sprintf("field %d value cannot be empty", i))
		}
		if utf8.RuneCountInString(field.Value) > MaxFieldValueLength {
			return common.NewValidationError("field_value", field.Value, fmt.Sprintf("field %d value cannot exceed 1024 characters", i))
		}
	}

	if embed.Footer != nil && utf8.RuneCountInString(embed.Footer.Text) > 2048 {
		return common.NewValidationError("footer_text", embed.Footer.Text, "footer text cannot exceed 2048 characters")
	}

	return nil
}

// ValidatePayload checks message-level limits.
func ValidatePayload(payload DiscordMessagePayload) error {
	if utf8.RuneCountInString(payload.Content) > MaxContentLength {
		return common.NewValidationError("content", len(payload.Content), "content cannot exceed 2000 characters")
	}
	if len(payload.Attachments) > MaxAttachments {
		return common.NewValidationError("attachments", len(payload.Attachments), "cannot attach more than 10 files")
	}
	validator := NewDiscordEmbedValidator()
	for _, embed := range payload.Embeds {
		if err := validator.ValidateEmbed(embed); err != nil {
			return err
		}
	}
	return nil
}
