// Package bot is the Discord slash-command surface over the tracker.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const commandTimeout = 5 * time.Minute

// Bot represents the Discord bot instance
type Bot struct {
	session    *discordgo.Session
	cfg        config.BotConfig
	handlers   *Handlers
	authorized map[string]struct{}
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	logger     zerolog.Logger
}

// NewBot creates a new Discord bot instance
func NewBot(cfg config.BotConfig, handlers *Handlers, logger zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	if cfg.CommandsPerMin <= 0 {
		cfg.CommandsPerMin = config.NewDefaultBotConfig().CommandsPerMin
	}

	authorized := make(map[string]struct{}, len(cfg.AuthorizedUsers))
	for _, id := range cfg.AuthorizedUsers {
		authorized[id] = struct{}{}
	}

	b := &Bot{
		session:    session,
		cfg:        cfg,
		handlers:   handlers,
		authorized: authorized,
		limiters:   make(map[string]*rate.Limiter),
		logger:     logger.With().Str("component", "DiscordBot").Logger(),
	}

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteractionCreate)
	return b, nil
}

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info().
		Str("username", event.User.Username).
		Msg("Discord bot is ready")

	if err := b.registerCommands(s); err != nil {
		b.logger.Error().Err(err).Msg("Failed to register commands")
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	user := interactionUser(i)
	if user == nil {
		return
	}
	if msg, ok := b.admit(user.ID); !ok {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: msg,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			b.logger.Error().Err(err).Msg("Failed to send rejection")
		}
		return
	}

	b.handleCommand(s, i, user.ID)
}

// admit checks authorization and the per-user command rate.
func (b *Bot) admit(userID string) (string, bool) {
	if len(b.authorized) > 0 {
		if _, ok := b.authorized[userID]; !ok {
			b.logger.Warn().Str("user_id", userID).Msg("Unauthorized command attempt")
			return "⛔ You are not authorized to use this bot.", false
		}
	}

	if !b.limiter(userID).Allow() {
		b.logger.Warn().Str("user_id", userID).Msg("Rate limit exceeded for interaction")
		return "⚠️ Rate limit exceeded. Please wait before sending another command.", false
	}
	return "", true
}

func (b *Bot) limiter(userID string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.limiters[userID]
	if !ok {
		perMin := b.cfg.CommandsPerMin
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin)
		b.limiters[userID] = l
	}
	return l
}

// Start opens the session and blocks until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	b.logger.Info().Msg("Discord bot started successfully")

	if err := b.session.UpdateGameStatus(0, "Watching pages"); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to set bot status")
	}

	<-ctx.Done()

	b.logger.Info().Msg("Shutting down Discord bot...")
	b.cleanupCommands(b.session)
	return b.session.Close()
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate, owner string) {
	data := i.ApplicationCommandData()

	// Defer response to avoid timeout
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to defer interaction response")
		return
	}

	req := Request{Name: data.Name, Owner: owner, Options: data.Options}
	if data.Resolved != nil {
		req.Attachments = data.Resolved.Attachments
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	resp, err := b.handlers.Handle(ctx, req)
	if err != nil {
		b.logger.Error().Err(err).Str("command", data.Name).Str("owner", owner).Msg("Command execution failed")
		resp = Response{Content: errorMessage(err)}
	}

	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: resp.Content,
		Files:   resp.Files,
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to send follow-up message")
	}
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func (b *Bot) registerCommands(s *discordgo.Session) error {
	b.logger.Info().Msg("Registering slash commands...")

	for _, cmd := range commands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, b.cfg.GuildID, cmd); err != nil {
			return fmt.Errorf("failed to create command %s: %w", cmd.Name, err)
		}
		b.logger.Debug().Str("command", cmd.Name).Msg("Registered command")
	}

	b.logger.Info().Int("count", len(commands)).Msg("Successfully registered all commands")
	return nil
}

func (b *Bot) cleanupCommands(s *discordgo.Session) {
	registered, err := s.ApplicationCommands(s.State.User.ID, b.cfg.GuildID)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to fetch commands for cleanup")
		return
	}

	for _, cmd := range registered {
		if err := s.ApplicationCommandDelete(s.State.User.ID, b.cfg.GuildID, cmd.ID); err != nil {
			b.logger.Error().Err(err).Str("command", cmd.Name).Msg("Failed to delete command")
		}
	}
	b.logger.Info().Msg("Command cleanup completed")
}
