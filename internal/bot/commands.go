package bot

import "github.com/bwmarrin/discordgo"

// Command names
const (
	cmdTrack     = "track"
	cmdUntrack   = "untrack"
	cmdList      = "list"
	cmdDocuments = "documents"
	cmdFilter    = "filter"
	cmdStats     = "stats"
	cmdArchives  = "archives"
	cmdExport    = "export"
	cmdImport    = "import"
	cmdDownload  = "download"
	cmdStatus    = "status"
)

// Filter subcommands
const (
	filterShow  = "show"
	filterTypes = "types"
	filterSize  = "size"
	filterRegex = "regex"
	filterClear = "clear"
)

var minInterval = 1.0

func urlOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "url",
		Description: description,
		Required:    true,
	}
}

func formatOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "format",
		Description: "File format (default: json)",
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "json", Value: "json"},
			{Name: "csv", Value: "csv"},
		},
	}
}

// Command definitions
var commands = []*discordgo.ApplicationCommand{
	{
		Name:        cmdTrack,
		Description: "Start tracking a page for new resources",
		Options: []*discordgo.ApplicationCommandOption{
			urlOption("Page URL to track"),
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Display name",
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "interval",
				Description: "Check interval in minutes",
				MinValue:    &minInterval,
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "night",
				Description: "Pause checks during quiet hours",
			},
		},
	},
	{
		Name:        cmdUntrack,
		Description: "Stop tracking a page",
		Options:     []*discordgo.ApplicationCommandOption{urlOption("Tracked page URL")},
	},
	{
		Name:        cmdList,
		Description: "List tracked pages",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "page",
				Description: "Page number (default: 1)",
			},
		},
	},
	{
		Name:        cmdDocuments,
		Description: "List document links on a tracked page",
		Options:     []*discordgo.ApplicationCommandOption{urlOption("Tracked page URL")},
	},
	{
		Name:        cmdFilter,
		Description: "Manage your delivery filter",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        filterShow,
				Description: "Show the current filter",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        filterTypes,
				Description: "Only deliver these resource types",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "types",
						Description: "Comma separated: pdf, image, audio, video",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        filterSize,
				Description: "Only deliver resources within these byte ranges",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "ranges",
						Description: "Comma separated min-max ranges in bytes",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        filterRegex,
				Description: "Only deliver resources whose URL matches",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "pattern",
						Description: "Regular expression",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        filterClear,
				Description: "Remove the filter",
			},
		},
	},
	{
		Name:        cmdStats,
		Description: "Show your check and download statistics",
	},
	{
		Name:        cmdArchives,
		Description: "List content snapshots of a tracked page",
		Options:     []*discordgo.ApplicationCommandOption{urlOption("Tracked page URL")},
	},
	{
		Name:        cmdExport,
		Description: "Export tracked pages as a file",
		Options:     []*discordgo.ApplicationCommandOption{formatOption()},
	},
	{
		Name:        cmdImport,
		Description: "Import tracked pages from a file",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "file",
				Description: "JSON or CSV export",
				Required:    true,
			},
		},
	},
	{
		Name:        cmdDownload,
		Description: "Download a single resource now",
		Options:     []*discordgo.ApplicationCommandOption{urlOption("Resource URL")},
	},
	{
		Name:        cmdStatus,
		Description: "Show service status",
	},
}
