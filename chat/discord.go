package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codeGROOVE-dev/retry"
)

// Discord is a chat client backed by a Discord bot session.
type Discord struct {
	session  *discordgo.Session
	logger   *slog.Logger
	commands map[string]Command
	mu       sync.RWMutex
}

// NewDiscord creates a Discord client. Call Open before use.
func NewDiscord(token string, logger *slog.Logger) (*Discord, error) {
	if token == "" {
		return nil, errors.New("discord bot token is empty")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	d := &Discord{
		session:  session,
		logger:   logger,
		commands: make(map[string]Command),
	}
	session.AddHandler(d.handleInteraction)
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Info("Discord session ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})

	return d, nil
}

// Open connects the gateway session.
func (d *Discord) Open(ctx context.Context) error {
	err := retry.Do(
		func() error {
			startTime := time.Now()
			if err := d.session.Open(); err != nil {
				d.logger.Warn("Discord gateway connect failed, will retry",
					"duration_ms", time.Since(startTime).Milliseconds(),
					"error", err)
				return err
			}
			return nil
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(2*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Info("Retrying Discord connect after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("open discord session after retries: %w", err)
	}
	return nil
}

// Close disconnects the gateway session.
func (d *Discord) Close() error {
	return d.session.Close()
}

// Send posts a new message.
func (d *Discord) Send(ctx context.Context, channelID, content string) (*Message, error) {
	m, err := d.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("send message", err)
	}
	return fromDiscord(m), nil
}

// Edit replaces the content of an existing message.
func (d *Discord) Edit(ctx context.Context, channelID, messageID, content string) error {
	if _, err := d.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx)); err != nil {
		return wrap("edit message", err)
	}
	return nil
}

// Delete removes a message.
func (d *Discord) Delete(ctx context.Context, channelID, messageID string) error {
	if err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return wrap("delete message", err)
	}
	return nil
}

// Pin pins a message in its channel.
func (d *Discord) Pin(ctx context.Context, channelID, messageID string) error {
	if err := d.session.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return wrap("pin message", err)
	}
	return nil
}

// Message fetches a message by id.
func (d *Discord) Message(ctx context.Context, channelID, messageID string) (*Message, error) {
	m, err := d.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("fetch message", err)
	}
	return fromDiscord(m), nil
}

// Pinned lists the pinned messages of a channel.
func (d *Discord) Pinned(ctx context.Context, channelID string) ([]*Message, error) {
	ms, err := d.session.ChannelMessagesPinned(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("list pinned messages", err)
	}
	out := make([]*Message, 0, len(ms))
	for _, m := range ms {
		out = append(out, fromDiscord(m))
	}
	return out, nil
}

// Recent lists up to limit of the newest messages of a channel (Discord caps this at 100).
func (d *Discord) Recent(ctx context.Context, channelID string, limit int) ([]*Message, error) {
	ms, err := d.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("list messages", err)
	}
	out := make([]*Message, 0, len(ms))
	for _, m := range ms {
		out = append(out, fromDiscord(m))
	}
	return out, nil
}

// SetPresence sets the bot's "Watching ..." activity.
func (d *Discord) SetPresence(_ context.Context, text string) error {
	if err := d.session.UpdateWatchStatus(0, text); err != nil {
		return fmt.Errorf("update presence: %w", err)
	}
	return nil
}

// RegisterCommands creates slash commands for guildID (global when empty).
// Must be called after Open.
func (d *Discord) RegisterCommands(guildID string, cmds []Command) error {
	if d.session.State == nil || d.session.State.User == nil {
		return errors.New("register commands: session not open")
	}
	appID := d.session.State.User.ID

	for _, cmd := range cmds {
		ac := &discordgo.ApplicationCommand{
			Name:        cmd.Name,
			Description: cmd.Description,
		}
		for _, o := range cmd.Options {
			kind := discordgo.ApplicationCommandOptionString
			if o.Integer {
				kind = discordgo.ApplicationCommandOptionInteger
			}
			ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
				Type:        kind,
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
			})
		}

		if _, err := d.session.ApplicationCommandCreate(appID, guildID, ac); err != nil {
			return fmt.Errorf("create command %s: %w", cmd.Name, err)
		}

		d.mu.Lock()
		d.commands[cmd.Name] = cmd
		d.mu.Unlock()
		d.logger.Info("Slash command registered", "command", cmd.Name, "guild_id", guildID)
	}
	return nil
}

func (d *Discord) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	d.mu.RLock()
	cmd, ok := d.commands[data.Name]
	d.mu.RUnlock()
	if !ok {
		return
	}

	// Feed fetches can exceed the three second interaction deadline.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		d.logger.Warn("Failed to defer interaction", "command", data.Name, "error", err)
		return
	}

	args := make(map[string]string, len(data.Options))
	for _, o := range data.Options {
		args[o.Name] = fmt.Sprint(o.Value)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	content := cmd.Handle(ctx, i.ChannelID, args)
	d.logger.Debug("Slash command handled", "command", data.Name, "channel_id", i.ChannelID, "reply_length", len(content))

	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		d.logger.Warn("Failed to send interaction reply", "command", data.Name, "error", err)
	}
}

func wrap(op string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
		}
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
				return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func fromDiscord(m *discordgo.Message) *Message {
	return &Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Pinned:    m.Pinned,
		CreatedAt: m.Timestamp,
	}
}
