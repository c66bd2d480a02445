// Package bot adapts the scheduling controller and the document converter to
// Discord.
//
// Handlers never keep state between interactions: every component carries
// only "op|eventName" and the event is re-read on each click.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	appLog "gatherbot/internal/log"
	"gatherbot/internal/model"
	"gatherbot/internal/scheduling"
)

// Session is the part of *discordgo.Session the handlers use.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponse(interaction *discordgo.Interaction, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Controller is the scheduling API the bot drives.
type Controller interface {
	CreateAvailability(ctx context.Context, req scheduling.CreateAvailabilityRequest) (*model.Event, error)
	CreateScheduled(ctx context.Context, req scheduling.CreateScheduledRequest) (*model.Event, error)
	Show(name string) (*model.Event, error)
	List() []*model.Event
	Search(query string, limit int) []string
	PickAvailability(ctx context.Context, req scheduling.PickRequest) (*scheduling.PickResult, error)
	Stats(name string) (*scheduling.Stats, error)
	Recommend(name string) (*scheduling.Recommendation, error)
	Join(ctx context.Context, name, userID string) (*model.Event, bool, error)
	Leave(ctx context.Context, name, userID string) (*model.Event, bool, error)
	Participants(name string) (*model.Event, []string, error)
	Delete(ctx context.Context, name, callerID string) (*model.Event, error)
	AttachMessage(ctx context.Context, name, channelID, messageID string) error
}

// Converter turns a downloaded attachment into PDF.
type Converter interface {
	ConvertBytes(ctx context.Context, filename string, data []byte) ([]byte, error)
	MaxBytes() int64
}

// Fetcher downloads attachments.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Bot struct {
	session    Session
	controller Controller
	converter  Converter
	fetcher    Fetcher
	voice      voiceGateway
	convertTTL time.Duration

	discord *discordgo.Session
}

type Option func(*Bot)

// WithConverter enables attachment conversion.
func WithConverter(c Converter, f Fetcher, timeout time.Duration) Option {
	return func(b *Bot) {
		b.converter = c
		b.fetcher = f
		if timeout > 0 {
			b.convertTTL = timeout
		}
	}
}

func withVoice(v voiceGateway) Option {
	return func(b *Bot) { b.voice = v }
}

func New(session Session, controller Controller, opts ...Option) *Bot {
	b := &Bot{
		session:    session,
		controller: controller,
		convertTTL: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Intents the bot needs: commands, attachment messages and voice state.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsDirectMessages |
	discordgo.IntentMessageContent |
	discordgo.IntentsGuildVoiceStates

// Connect creates a Discord session for token and a Bot driving it. The
// gateway is not opened until Serve.
func Connect(token string, controller Controller, opts ...Option) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = Intents

	opts = append([]Option{withVoice(&sessionVoice{s: s})}, opts...)
	b := New(s, controller, opts...)
	b.discord = s
	return b, nil
}

// Serve opens the gateway, registers commands on guildID (globally when
// empty) and handles events until ctx is done.
func (b *Bot) Serve(ctx context.Context, guildID string) error {
	s := b.discord
	if s == nil {
		return errors.New("bot has no discord session")
	}

	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		appLog.Info("discord connected", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	s.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.HandleInteraction(ctx, i.Interaction)
	})
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.HandleMessage(ctx, m.Message)
	})

	if err := s.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	defer s.Close()

	registered, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	appLog.Info("commands registered", "count", len(registered), "guild_id", guildID)

	<-ctx.Done()
	b.shutdownVoice()
	appLog.Info("discord disconnecting")
	return nil
}

// HandleInteraction routes one interaction. It never panics; failures are
// logged and, where possible, reported to the user privately.
func (b *Bot) HandleInteraction(parent context.Context, i *discordgo.Interaction) {
	user := interactionUser(i)
	userID := ""
	if user != nil {
		userID = user.ID
	}
	ctx := appLog.WithInteraction(parent, uuid.NewString(), userID)

	defer func() {
		if r := recover(); r != nil {
			appLog.ErrorContext(ctx, "interaction handler panicked", fmt.Errorf("%v", r))
			b.replyError(ctx, i, errors.New("internal error"))
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(ctx, i)
	case discordgo.InteractionModalSubmit:
		b.handleModal(ctx, i)
	default:
		appLog.WarnContext(ctx, "unhandled interaction type", "type", i.Type.String())
	}
}

// Remind posts a reminder for ev in the channel of its summary message.
func (b *Bot) Remind(ctx context.Context, ev *model.Event) error {
	if ev.ChannelID == "" {
		return errors.New("event has no summary channel")
	}
	rsvp, ok := ev.RSVP()
	if !ok {
		return errors.New("only scheduled events have reminders")
	}

	content := fmt.Sprintf("⏰ **%s** starts <t:%d:R>.", ev.Name, rsvp.At.Unix())
	if len(rsvp.Participants) > 0 {
		mentions := make([]string, 0, len(rsvp.Participants))
		for _, id := range rsvp.Participants {
			mentions = append(mentions, mention(id))
		}
		content += " " + strings.Join(mentions, " ")
	}

	msg := &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: rsvp.Participants,
		},
	}
	if ev.MessageID != "" {
		msg.Reference = &discordgo.MessageReference{MessageID: ev.MessageID, ChannelID: ev.ChannelID}
	}
	_, err := b.session.ChannelMessageSendComplex(ev.ChannelID, msg)
	if err != nil {
		return err
	}
	appLog.InfoContext(ctx, "reminder sent", "event", ev.Name, "participants", len(rsvp.Participants))
	return nil
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// displayName is the name availability is recorded under: the server
// nickname, else the global display name, else the username.
func displayName(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.Nick != "" {
		return i.Member.Nick
	}
	u := interactionUser(i)
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
