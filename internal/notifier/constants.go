package notifier

// Discord formatting constants
const (
	DiscordUsername   = "resourcewatch"
	DefaultEmbedColor = 0x2B2D31
	ChangeEmbedColor  = 0x5BC0DE
	ErrorEmbedColor   = 0xD9534F
	ImageEmbedColor   = 0x5CB85C
)

// MaxAlbumChunk is the number of images sent per webhook message.
const MaxAlbumChunk = 10

const maxErrorTextLength = 800
