package bot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	appLog "gatherbot/internal/log"
)

var (
	errNotInVoice  = errors.New("not in a voice channel")
	errNoVoiceConn = errors.New("no voice connection")
)

// voiceGateway joins and leaves voice channels on behalf of the bot.
type voiceGateway interface {
	// UserChannel returns the voice channel userID is connected to.
	UserChannel(guildID, userID string) (string, error)
	Join(guildID, channelID string) error
	Leave(guildID string) error
	LeaveAll()
}

type sessionVoice struct {
	s *discordgo.Session
}

func (v *sessionVoice) UserChannel(guildID, userID string) (string, error) {
	vs, err := v.s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", errNotInVoice
	}
	return vs.ChannelID, nil
}

func (v *sessionVoice) Join(guildID, channelID string) error {
	// Muted and deafened: the bot only keeps people company.
	_, err := v.s.ChannelVoiceJoin(guildID, channelID, true, true)
	return err
}

func (v *sessionVoice) Leave(guildID string) error {
	v.s.RLock()
	vc, ok := v.s.VoiceConnections[guildID]
	v.s.RUnlock()
	if !ok {
		return errNoVoiceConn
	}
	return vc.Disconnect()
}

func (v *sessionVoice) LeaveAll() {
	v.s.RLock()
	conns := make([]*discordgo.VoiceConnection, 0, len(v.s.VoiceConnections))
	for _, vc := range v.s.VoiceConnections {
		conns = append(conns, vc)
	}
	v.s.RUnlock()
	for _, vc := range conns {
		_ = vc.Disconnect()
	}
}

func (b *Bot) voiceJoin(ctx context.Context, i *discordgo.Interaction) {
	if b.voice == nil || i.GuildID == "" {
		b.reply(ctx, i, true, "❌ Voice is only available in a server.", nil, nil)
		return
	}
	channelID, err := b.voice.UserChannel(i.GuildID, interactionUser(i).ID)
	if err != nil {
		b.reply(ctx, i, true, "❌ Join a voice channel first.", nil, nil)
		return
	}
	if err := b.voice.Join(i.GuildID, channelID); err != nil {
		appLog.ErrorContext(ctx, "voice join failed", err, "channel_id", channelID)
		b.reply(ctx, i, true, "❌ Could not join your voice channel.", nil, nil)
		return
	}
	appLog.InfoContext(ctx, "voice joined", "guild_id", i.GuildID, "channel_id", channelID)
	b.reply(ctx, i, false, "🔊 Joined <#"+channelID+">.", nil, nil)
}

func (b *Bot) voiceLeave(ctx context.Context, i *discordgo.Interaction) {
	if b.voice == nil || i.GuildID == "" {
		b.reply(ctx, i, true, "❌ Voice is only available in a server.", nil, nil)
		return
	}
	if err := b.voice.Leave(i.GuildID); err != nil {
		if errors.Is(err, errNoVoiceConn) {
			b.reply(ctx, i, true, "ℹ️ I am not in a voice channel.", nil, nil)
			return
		}
		appLog.ErrorContext(ctx, "voice leave failed", err)
		b.reply(ctx, i, true, "❌ Could not leave the voice channel.", nil, nil)
		return
	}
	appLog.InfoContext(ctx, "voice left", "guild_id", i.GuildID)
	b.reply(ctx, i, false, "👋 Left the voice channel.", nil, nil)
}

func (b *Bot) shutdownVoice() {
	if b.voice != nil {
		b.voice.LeaveAll()
	}
}
