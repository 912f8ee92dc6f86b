package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aleister1102/resourcewatch/internal/archive"
	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/httpclient"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/aleister1102/resourcewatch/internal/rslimiter"
	"github.com/aleister1102/resourcewatch/internal/tracker"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	listPageSize     = 10
	maxArchiveRows   = 10
	maxImportErrors  = 5
	maxDocumentLines = 25
)

// Tracker is the tracking service as seen by commands.
type Tracker interface {
	Track(ctx context.Context, req tracker.TrackRequest) (*models.Target, error)
	Untrack(ctx context.Context, owner, rawURL string) error
	List(ctx context.Context, owner string) ([]*models.Target, error)
	Documents(ctx context.Context, owner, rawURL string) ([]models.Document, error)
	GetFilter(ctx context.Context, owner string) (models.Filter, error)
	SetFilter(ctx context.Context, filter models.Filter) error
	ClearFilter(ctx context.Context, owner string) error
	Stats(ctx context.Context, owner string) (*tracker.Summary, error)
	Archives(ctx context.Context, owner, rawURL string) ([]archive.Snapshot, error)
	Export(ctx context.Context, owner, format string, w io.Writer) (int, error)
	Import(ctx context.Context, owner, format string, r io.Reader) (*tracker.ImportSummary, error)
	Download(ctx context.Context, owner, rawURL string) error
}

// AttachmentFetcher downloads uploaded files.
type AttachmentFetcher interface {
	Get(ctx context.Context, rawURL string) (*httpclient.HTTPResponse, error)
}

// StatusSource reports how many targets are scheduled.
type StatusSource interface {
	Len() int
}

// Request is one slash command invocation.
type Request struct {
	Name        string
	Owner       string
	Options     []*discordgo.ApplicationCommandInteractionDataOption
	Attachments map[string]*discordgo.MessageAttachment
}

// Response is the follow-up message for a command.
type Response struct {
	Content string
	Files   []*discordgo.File
}

func text(format string, args ...interface{}) Response {
	return Response{Content: fmt.Sprintf(format, args...)}
}

// Handlers executes commands against the tracker.
type Handlers struct {
	tracker   Tracker
	fetcher   AttachmentFetcher
	status    StatusSource
	usage     func() rslimiter.ResourceUsage
	startedAt time.Time
	now       func() time.Time
	logger    zerolog.Logger
}

// NewHandlers creates command handlers.
func NewHandlers(t Tracker, fetcher AttachmentFetcher, logger zerolog.Logger) *Handlers {
	return &Handlers{
		tracker:   t,
		fetcher:   fetcher,
		usage:     rslimiter.GetResourceUsage,
		startedAt: time.Now(),
		now:       time.Now,
		logger:    logger.With().Str("component", "BotHandlers").Logger(),
	}
}

// WithStatusSource adds the scheduled-target count to /status.
func (h *Handlers) WithStatusSource(source StatusSource) *Handlers {
	h.status = source
	return h
}

// Handle routes a command to its handler.
func (h *Handlers) Handle(ctx context.Context, req Request) (Response, error) {
	opts := newOptionMap(req.Options)

	switch req.Name {
	case cmdTrack:
		return h.handleTrack(ctx, req.Owner, opts)
	case cmdUntrack:
		return h.handleUntrack(ctx, req.Owner, opts)
	case cmdList:
		return h.handleList(ctx, req.Owner, opts)
	case cmdDocuments:
		return h.handleDocuments(ctx, req.Owner, opts)
	case cmdFilter:
		return h.handleFilter(ctx, req.Owner, req.Options)
	case cmdStats:
		return h.handleStats(ctx, req.Owner)
	case cmdArchives:
		return h.handleArchives(ctx, req.Owner, opts)
	case cmdExport:
		return h.handleExport(ctx, req.Owner, opts)
	case cmdImport:
		return h.handleImport(ctx, req.Owner, opts, req.Attachments)
	case cmdDownload:
		return h.handleDownload(ctx, req.Owner, opts)
	case cmdStatus:
		return h.handleStatus(), nil
	}
	return text("Unknown command"), nil
}

func (h *Handlers) handleTrack(ctx context.Context, owner string, opts optionMap) (Response, error) {
	rawURL := opts.str("url")
	if rawURL == "" {
		return Response{}, common.NewValidationError("url", rawURL, "URL cannot be empty")
	}

	target, err := h.tracker.Track(ctx, tracker.TrackRequest{
		Owner:           owner,
		Name:            opts.str("name"),
		URL:             rawURL,
		IntervalMinutes: opts.integer("interval", 0),
		NightMode:       opts.boolean("night"),
	})
	if err != nil {
		return Response{}, err
	}

	night := ""
	if target.NightMode {
		night = ", paused during quiet hours"
	}
	return text("✅ Now tracking **%s**\n`%s`\nChecked every %d min%s.",
		target.DisplayName(), target.URL, target.IntervalMinutes, night), nil
}

func (h *Handlers) handleUntrack(ctx context.Context, owner string, opts optionMap) (Response, error) {
	rawURL := opts.str("url")
	if err := h.tracker.Untrack(ctx, owner, rawURL); err != nil {
		return Response{}, err
	}
	return text("🗑️ Stopped tracking `%s`", rawURL), nil
}

func (h *Handlers) handleList(ctx context.Context, owner string, opts optionMap) (Response, error) {
	targets, err := h.tracker.List(ctx, owner)
	if err != nil {
		return Response{}, err
	}
	if len(targets) == 0 {
		return text("You are not tracking any pages."), nil
	}

	totalPages := (len(targets) + listPageSize - 1) / listPageSize
	page := opts.integer("page", 1)
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * listPageSize
	end := start + listPageSize
	if end > len(targets) {
		end = len(targets)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Tracked pages (Page %d/%d):**\n", page, totalPages)
	for i := start; i < end; i++ {
		t := targets[i]
		night := ""
		if t.NightMode {
			night = " 🌙"
		}
		fmt.Fprintf(&b, "%d. **%s** every %d min%s\n   `%s`\n", i+1, t.DisplayName(), t.IntervalMinutes, night, t.URL)
	}
	fmt.Fprintf(&b, "Total: %d pages", len(targets))
	if page < totalPages {
		fmt.Fprintf(&b, "\n*Use `/list page:%d` for next page*", page+1)
	}
	return Response{Content: b.String()}, nil
}

func (h *Handlers) handleDocuments(ctx context.Context, owner string, opts optionMap) (Response, error) {
	docs, err := h.tracker.Documents(ctx, owner, opts.str("url"))
	if err != nil {
		return Response{}, err
	}
	if len(docs) == 0 {
		return text("No documents found on this page."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📄 **Documents (%d):**\n", len(docs))
	for i, doc := range docs {
		if i == maxDocumentLines {
			fmt.Fprintf(&b, "…and %d more", len(docs)-maxDocumentLines)
			break
		}
		fmt.Fprintf(&b, "• [%s](<%s>)\n", doc.Name, doc.URL)
	}
	return Response{Content: b.String()}, nil
}

func (h *Handlers) handleFilter(ctx context.Context, owner string, options []*discordgo.ApplicationCommandInteractionDataOption) (Response, error) {
	if len(options) == 0 || options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return Response{}, common.NewValidationError("filter", nil, "subcommand is required")
	}
	sub := options[0]
	opts := newOptionMap(sub.Options)

	if sub.Name == filterClear {
		if err := h.tracker.ClearFilter(ctx, owner); err != nil {
			return Response{}, err
		}
		return text("🧹 Filter cleared. All new resources will be delivered."), nil
	}

	filter, err := h.tracker.GetFilter(ctx, owner)
	if err != nil {
		return Response{}, err
	}
	filter.Owner = owner

	switch sub.Name {
	case filterShow:
		return Response{Content: formatFilter(filter)}, nil
	case filterTypes:
		types, err := parseTypes(opts.str("types"))
		if err != nil {
			return Response{}, err
		}
		filter.Types = types
	case filterSize:
		ranges, err := parseRanges(opts.str("ranges"))
		if err != nil {
			return Response{}, err
		}
		filter.SizeRanges = ranges
	case filterRegex:
		filter.Regex = opts.str("pattern")
	default:
		return text("Unknown filter command"), nil
	}

	if err := h.tracker.SetFilter(ctx, filter); err != nil {
		return Response{}, err
	}
	return Response{Content: "✅ Filter updated.\n" + formatFilter(filter)}, nil
}

func parseTypes(value string) ([]models.ResourceType, error) {
	var types []models.ResourceType
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := models.ParseResourceType(part)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		return nil, common.NewValidationError("types", value, "at least one type is required")
	}
	return types, nil
}

func parseRanges(value string) ([]models.SizeRange, error) {
	var ranges []models.SizeRange
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := models.ParseSizeRange(part)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, common.NewValidationError("ranges", value, "at least one range is required")
	}
	return ranges, nil
}

func formatFilter(f models.Filter) string {
	if f.IsEmpty() {
		return "No filter set. All new resources are delivered."
	}

	var b strings.Builder
	b.WriteString("**Filter**\n```\n")
	if len(f.Types) > 0 {
		names := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			names = append(names, t.String())
		}
		fmt.Fprintf(&b, "Types: %s\n", strings.Join(names, ", "))
	}
	if len(f.SizeRanges) > 0 {
		ranges := make([]string, 0, len(f.SizeRanges))
		for _, r := range f.SizeRanges {
			ranges = append(ranges, fmt.Sprintf("%s-%s", formatBytes(r.Min), formatBytes(r.Max)))
		}
		fmt.Fprintf(&b, "Sizes: %s\n", strings.Join(ranges, ", "))
	}
	if f.Regex != "" {
		fmt.Fprintf(&b, "Regex: %s\n", f.Regex)
	}
	b.WriteString("```")
	return b.String()
}

func (h *Handlers) handleStats(ctx context.Context, owner string) (Response, error) {
	summary, err := h.tracker.Stats(ctx, owner)
	if err != nil {
		return Response{}, err
	}
	s := summary.Stats
	return text("📊 **Statistics**\n```\nTracked pages: %d\nChecks: %d ok / %d failed\nUptime: %.1f%%\nDownloads: %d ok / %d failed\nContent changes: %d\n```",
		summary.Tracked,
		s.Checks.Success, s.Checks.Failure,
		summary.UptimePercent,
		s.Downloads.Success, s.Downloads.Failure,
		s.ContentChanges.Total()), nil
}

func (h *Handlers) handleArchives(ctx context.Context, owner string, opts optionMap) (Response, error) {
	snapshots, err := h.tracker.Archives(ctx, owner, opts.str("url"))
	if err != nil {
		return Response{}, err
	}
	if len(snapshots) == 0 {
		return text("No snapshots stored for this page."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🗄️ **Snapshots (%d):**\n```\n", len(snapshots))
	for i, snap := range snapshots {
		if i == maxArchiveRows {
			break
		}
		hash := snap.ContentHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(&b, "%s  %s\n", snap.CapturedAt.UTC().Format("2006-01-02 15:04"), hash)
	}
	b.WriteString("```")
	return Response{Content: b.String()}, nil
}

func (h *Handlers) handleExport(ctx context.Context, owner string, opts optionMap) (Response, error) {
	format := opts.str("format")
	if format == "" {
		format = tracker.FormatJSON
	}

	var buf bytes.Buffer
	count, err := h.tracker.Export(ctx, owner, format, &buf)
	if err != nil {
		return Response{}, err
	}
	if count == 0 {
		return text("Nothing to export."), nil
	}

	contentType := "application/json"
	if format == tracker.FormatCSV {
		contentType = "text/csv"
	}
	return Response{
		Content: fmt.Sprintf("📤 Exported %d pages.", count),
		Files: []*discordgo.File{{
			Name:        "tracked." + format,
			ContentType: contentType,
			Reader:      &buf,
		}},
	}, nil
}

func (h *Handlers) handleImport(ctx context.Context, owner string, opts optionMap, attachments map[string]*discordgo.MessageAttachment) (Response, error) {
	id := opts.str("file")
	attachment, ok := attachments[id]
	if id == "" || !ok || attachment == nil {
		return Response{}, common.NewValidationError("file", id, "attachment is required")
	}
	if h.fetcher == nil {
		return Response{}, common.NewError("attachment download is not configured")
	}

	format := tracker.FormatJSON
	if strings.EqualFold(filepath.Ext(attachment.Filename), ".csv") {
		format = tracker.FormatCSV
	}

	resp, err := h.fetcher.Get(ctx, attachment.URL)
	if err != nil {
		return Response{}, common.WrapError(err, "failed to download attachment")
	}

	summary, err := h.tracker.Import(ctx, owner, format, bytes.NewReader(resp.Body))
	if err != nil {
		return Response{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📥 Imported %d, updated %d, failed %d.", summary.Imported, summary.Updated, summary.Failed)
	for i, err := range summary.Errors {
		if i == maxImportErrors {
			fmt.Fprintf(&b, "\n…and %d more errors", len(summary.Errors)-maxImportErrors)
			break
		}
		fmt.Fprintf(&b, "\n• %v", err)
	}
	return Response{Content: b.String()}, nil
}

func (h *Handlers) handleDownload(ctx context.Context, owner string, opts optionMap) (Response, error) {
	rawURL := opts.str("url")
	if err := h.tracker.Download(ctx, owner, rawURL); err != nil {
		return Response{}, err
	}
	return text("✅ Delivered `%s`", rawURL), nil
}

func (h *Handlers) handleStatus() Response {
	usage := h.usage()

	var b strings.Builder
	b.WriteString("📊 **Service Status**\n```\n")
	fmt.Fprintf(&b, "Uptime: %s\n", formatDuration(h.now().Sub(h.startedAt)))
	if h.status != nil {
		fmt.Fprintf(&b, "Scheduled pages: %d\n", h.status.Len())
	}
	fmt.Fprintf(&b, "Memory: %d MB (system %.1f%%)\n", usage.AllocMB, usage.SystemMemUsedPercent)
	fmt.Fprintf(&b, "CPU: %.1f%%\n", usage.CPUUsagePercent)
	fmt.Fprintf(&b, "Goroutines: %d\n", usage.Goroutines)
	b.WriteString("```")
	return Response{Content: b.String()}
}

// errorMessage turns a command error into a user-facing reply.
func errorMessage(err error) string {
	var validation *common.ValidationError
	switch {
	case errors.Is(err, common.ErrAlreadyTracked):
		return "⚠️ You already track this page."
	case errors.Is(err, common.ErrTrackingLimit):
		return "⚠️ Tracking limit reached. Untrack a page first."
	case errors.Is(err, common.ErrTargetNotFound):
		return "⚠️ That page is not tracked."
	case errors.Is(err, common.ErrUnreachable):
		return "❌ Invalid URL or page has no content."
	case errors.Is(err, tracker.ErrArchiveDisabled):
		return "⚠️ Archiving is disabled."
	case errors.As(err, &validation):
		return fmt.Sprintf("⚠️ Invalid %s: %s", validation.Field, validation.Message)
	}
	return fmt.Sprintf("❌ Error: %v", err)
}

// formatDuration formats duration in human readable format
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func newOptionMap(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	m := make(optionMap, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func (m optionMap) str(name string) string {
	opt, ok := m[name]
	if !ok {
		return ""
	}
	switch opt.Type {
	case discordgo.ApplicationCommandOptionString:
		return strings.TrimSpace(opt.StringValue())
	case discordgo.ApplicationCommandOptionAttachment:
		if id, ok := opt.Value.(string); ok {
			return id
		}
	}
	return ""
}

func (m optionMap) integer(name string, def int) int {
	opt, ok := m[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return def
	}
	return int(opt.IntValue())
}

func (m optionMap) boolean(name string) bool {
	opt, ok := m[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionBoolean {
		return false
	}
	return opt.BoolValue()
}
