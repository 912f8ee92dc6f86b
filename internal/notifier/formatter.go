package notifier

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/notifier/discord"
)

// FormatCaption builds the caption attached to a delivered resource, truncated to maxLength runes.
func FormatCaption(target models.TargetMeta, resource models.ResourceMeta, maxLength int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📁 %s\n", target.Name)
	fmt.Fprintf(&sb, "🔗 Source: %s\n", target.URL)
	fmt.Fprintf(&sb, "📥 Direct URL: %s", resource.URL)
	if resource.DisplayText != "" {
		fmt.Fprintf(&sb, "\n📝 %s", resource.DisplayText)
	}
	return truncateString(sb.String(), maxLength)
}

// FormatChangeMessage builds the webhook payload announcing a content change.
func FormatChangeMessage(target models.TargetMeta, notice ChangeNotice, roleIDs []string) discord.DiscordMessagePayload {
	detectedAt := notice.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now()
	}

	builder := discord.NewDiscordEmbedBuilder().
		WithTitle(truncateString("🔄 Website Updated: "+target.Name, discord.MaxTitleLength)).
		WithURL(target.URL).
		WithColor(ChangeEmbedColor).
		WithTimestamp(detectedAt).
		AddField("Lines", fmt.Sprintf("+%d / -%d", notice.LinesAdded, notice.LinesDeleted), true).
		AddField("New resources", fmt.Sprintf("%d", notice.NewResources), true)

	if notice.Diff != "" {
		fence := "```diff\n%s\n```"
		room := discord.MaxDescriptionLength - len(fence) + 2
		builder.WithDescription(fmt.Sprintf(fence, truncateString(notice.Diff, room)))
	}
	if notice.Truncated {
		builder.WithFooter("Diff truncated")
	}

	return buildPayload(
		fmt.Sprintf("%s📅 Change detected at: %s", mentionPrefix(roleIDs), detectedAt.Format("2006-01-02 15:04:05")),
		builder,
		roleIDs,
	)
}

// FormatFailureMessage builds the webhook payload reporting a failed check.
func FormatFailureMessage(target models.TargetMeta, cause error, roleIDs []string) discord.DiscordMessagePayload {
	builder := discord.NewDiscordEmbedBuilder().
		WithTitle(truncateString("⚠️ Error checking updates: "+target.Name, discord.MaxTitleLength)).
		WithURL(target.URL).
		WithColor(ErrorEmbedColor).
		WithTimestamp(time.Now())
	if cause != nil {
		builder.WithDescription(fmt.Sprintf("```%s```", truncateString(cause.Error(), maxErrorTextLength)))
	}
	return buildPayload(mentionPrefix(roleIDs)+"⚠️ Error checking updates for "+target.URL, builder, roleIDs)
}

func buildPayload(content string, builder *discord.DiscordEmbedBuilder, roleIDs []string) discord.DiscordMessagePayload {
	payload := discord.NewDiscordMessagePayloadBuilder().
		WithUsername(DiscordUsername).
		WithContent(truncateString(content, discord.MaxContentLength)).
		WithAllowedRoles(roleIDs)
	if embed, err := builder.Build(); err == nil {
		payload.AddEmbed(embed)
	}
	return payload.Build()
}

// mentionPrefix creates mention strings for Discord role IDs
func mentionPrefix(roleIDs []string) string {
	if len(roleIDs) == 0 {
		return ""
	}
	mentions := make([]string, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		mentions = append(mentions, fmt.Sprintf("<@&%s>", roleID))
	}
	return strings.Join(mentions, " ") + "\n"
}

// truncateString cuts s to maxLength runes, ending with an ellipsis when cut.
func truncateString(s string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string([]rune(s)[:maxLength])
	}
	return string([]rune(s)[:maxLength-3]) + "..."
}

// chunkPaths splits paths into consecutive groups of at most size.
func chunkPaths(paths []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(paths); start += size {
		end := start + size
		if end > len(paths) {
			end = len(paths)
		}
		chunks = append(chunks, paths[start:end])
	}
	return chunks
}
