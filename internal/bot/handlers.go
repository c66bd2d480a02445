package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"gatherbot/internal/errdef"
	"gatherbot/internal/ics"
	appLog "gatherbot/internal/log"
	"gatherbot/internal/model"
	"gatherbot/internal/scheduling"
)

// maxChoices is the platform cap on autocomplete suggestions.
const maxChoices = 25

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	opts := optionMap(data.Options)
	name := opts["name"]
	userID := interactionUser(i).ID

	appLog.InfoContext(ctx, "command", "name", data.Name)

	switch data.Name {
	case cmdPollCreate:
		b.respond(ctx, i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseModal, Data: pollModal()})
	case cmdEventCreate:
		b.respond(ctx, i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseModal, Data: eventModal()})
	case cmdEventSchedule:
		ev, err := b.controller.CreateScheduled(ctx, scheduling.CreateScheduledRequest{
			Name:        name,
			CreatorID:   userID,
			Description: opts["description"],
			Date:        opts["date"],
			Time:        opts["time"],
		})
		b.replyCreated(ctx, i, ev, err)
	case cmdEventShow:
		ev, err := b.controller.Show(name)
		if err != nil {
			b.replyError(ctx, i, err)
			return
		}
		b.reply(ctx, i, false, "", []*discordgo.MessageEmbed{summaryEmbed(ev)}, summaryComponents(ev))
	case cmdEventList:
		b.reply(ctx, i, false, "", []*discordgo.MessageEmbed{listEmbed(b.controller.List())}, nil)
	case cmdEventJoin:
		b.join(ctx, i, name, true)
	case cmdEventLeave:
		b.join(ctx, i, name, false)
	case cmdPollPick:
		b.showPicker(ctx, i, name)
	case cmdPollStats:
		b.stats(ctx, i, name)
	case cmdPollRecommend:
		b.recommend(ctx, i, name)
	case cmdEventParticipants:
		b.participants(ctx, i, name)
	case cmdEventDelete:
		b.delete(ctx, i, name)
	case cmdVoiceJoin:
		b.voiceJoin(ctx, i)
	case cmdVoiceLeave:
		b.voiceLeave(ctx, i)
	default:
		b.reply(ctx, i, true, "❌ Unknown command.", nil, nil)
	}
}

func (b *Bot) handleAutocomplete(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	query := ""
	for _, opt := range data.Options {
		if opt.Focused {
			query = opt.StringValue()
		}
	}

	names := b.controller.Search(query, maxChoices)
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(names))
	for _, n := range names {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: n, Value: n})
	}
	b.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.Interaction) {
	data := i.MessageComponentData()
	op, name, ok := decodeID(data.CustomID)
	if !ok {
		appLog.WarnContext(ctx, "unknown component", "custom_id", data.CustomID)
		b.reply(ctx, i, true, "❌ This control is no longer supported.", nil, nil)
		return
	}
	appLog.InfoContext(ctx, "component", "op", op, "event", name)

	if index, ok := parseDaysOp(op); ok {
		b.pickWindow(ctx, i, name, index, data.Values)
		return
	}

	switch op {
	case opPick:
		b.showPicker(ctx, i, name)
	case opClear:
		b.clearDates(ctx, i, name)
	case opStats:
		b.stats(ctx, i, name)
	case opRecommend:
		b.recommend(ctx, i, name)
	case opJoin:
		b.join(ctx, i, name, true)
	case opLeave:
		b.join(ctx, i, name, false)
	case opParticipants:
		b.participants(ctx, i, name)
	case opICS:
		b.exportICS(ctx, i, name)
	case opDelete:
		b.delete(ctx, i, name)
	default:
		b.reply(ctx, i, true, "❌ This control is no longer supported.", nil, nil)
	}
}

func (b *Bot) handleModal(ctx context.Context, i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	op, _, _ := decodeID(data.CustomID)
	fields := modalValues(data.Components)
	userID := interactionUser(i).ID

	var (
		ev  *model.Event
		err error
	)
	switch op {
	case modalPoll:
		ev, err = b.controller.CreateAvailability(ctx, scheduling.CreateAvailabilityRequest{
			Name:        fields["name"],
			CreatorID:   userID,
			Description: fields["description"],
			Month:       fields["month"],
		})
	case modalEvent:
		ev, err = b.controller.CreateScheduled(ctx, scheduling.CreateScheduledRequest{
			Name:        fields["name"],
			CreatorID:   userID,
			Description: fields["description"],
			Date:        fields["date"],
			Time:        fields["time"],
		})
	default:
		appLog.WarnContext(ctx, "unknown modal", "custom_id", data.CustomID)
		b.reply(ctx, i, true, "❌ This form is no longer supported.", nil, nil)
		return
	}
	b.replyCreated(ctx, i, ev, err)
}

// replyCreated posts the public summary of a new event and remembers where
// it was posted.
func (b *Bot) replyCreated(ctx context.Context, i *discordgo.Interaction, ev *model.Event, err error) {
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}
	content := fmt.Sprintf("✅ %s created **%s**", mention(ev.CreatorID), ev.Name)
	if !b.reply(ctx, i, false, content, []*discordgo.MessageEmbed{summaryEmbed(ev)}, summaryComponents(ev)) {
		return
	}

	msg, err := b.session.InteractionResponse(i)
	if err != nil {
		appLog.ErrorContext(ctx, "fetching summary message failed", err, "event", ev.Name)
		return
	}
	if err := b.controller.AttachMessage(ctx, ev.Name, msg.ChannelID, msg.ID); err != nil {
		appLog.ErrorContext(ctx, "recording summary message failed", err, "event", ev.Name)
	}
}

func (b *Bot) showPicker(ctx context.Context, i *discordgo.Interaction, name string) {
	ev, err := b.controller.Show(name)
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}
	poll, ok := ev.Poll()
	if !ok {
		b.replyError(ctx, i, wrongKindError(ev))
		return
	}
	if poll.Month.IsZero() {
		b.reply(ctx, i, true, scheduling.Message(noMonthError(ev)), nil, nil)
		return
	}

	selected := poll.Dates(displayName(i))
	b.reply(ctx, i, true, pickerContent(ev, selected, ""), nil, datePicker(ev, poll, selected))
}

// pickWindow stores the selection of one date selector. Days outside the
// selector's window keep their previous state.
func (b *Bot) pickWindow(ctx context.Context, i *discordgo.Interaction, name string, index int, values []string) {
	ev, err := b.controller.Show(name)
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}
	poll, ok := ev.Poll()
	if !ok {
		b.replyError(ctx, i, wrongKindError(ev))
		return
	}
	windows := pickerWindows(poll.Month)
	if index >= len(windows) {
		b.reply(ctx, i, true, "❌ This date selector is out of date. Open the picker again.", nil, nil)
		return
	}

	window := make([]string, 0, len(windows[index]))
	for _, d := range windows[index] {
		window = append(window, d.String())
	}
	b.savePick(ctx, i, scheduling.PickRequest{
		Name:        name,
		Participant: displayName(i),
		Dates:       append([]string{}, values...),
		Window:      window,
	})
}

func (b *Bot) clearDates(ctx context.Context, i *discordgo.Interaction, name string) {
	b.savePick(ctx, i, scheduling.PickRequest{Name: name, Participant: displayName(i)})
}

func (b *Bot) savePick(ctx context.Context, i *discordgo.Interaction, req scheduling.PickRequest) {
	res, err := b.controller.PickAvailability(ctx, req)
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}
	poll, _ := res.Event.Poll()

	status := fmt.Sprintf("✅ Saved %d date(s).", len(res.Dates))
	if res.Cleared {
		status = "🧹 Your dates were cleared."
	}
	components := datePicker(res.Event, poll, res.Dates)
	b.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    pickerContent(res.Event, res.Dates, status),
			Components: components,
		},
	})
}

func (b *Bot) stats(ctx context.Context, i *discordgo.Interaction, name string) {
	stats, err := b.controller.Stats(name)
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}
	b.reply(ctx, i, true, "", []*discordgo.MessageEmbed{statsEmbed(stats)}, nil)
}

func (b *Bot) recommend(ctx context.Context, i *discordgo.Interaction, name string) {
	rec, err := b.controller.Recommend(name)
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}
	b.reply(ctx, i, true, "", []*discordgo.MessageEmbed{recommendationEmbed(rec)}, nil)
}

func (b *Bot) join(ctx context.Context, i *discordgo.Interaction, name string, join bool) {
	userID := interactionUser(i).ID
	toggle := b.controller.Leave
	if join {
		toggle = b.controller.Join
	}
	ev, changed, err := toggle(ctx, name, userID)
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}

	var content string
	switch {
	case join && changed:
		content = fmt.Sprintf("✅ You joined **%s**.", ev.Name)
	case join:
		content = fmt.Sprintf("ℹ️ You already joined **%s**.", ev.Name)
	case changed:
		content = fmt.Sprintf("👋 You left **%s**.", ev.Name)
	default:
		content = fmt.Sprintf("ℹ️ You were not attending **%s**.", ev.Name)
	}
	b.reply(ctx, i, true, content, nil, nil)

	if changed {
		b.refreshSummary(ctx, ev)
	}
}

func (b *Bot) participants(ctx context.Context, i *discordgo.Interaction, name string) {
	ev, ids, err := b.controller.Participants(name)
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}
	b.reply(ctx, i, true, "", []*discordgo.MessageEmbed{participantsEmbed(ev, ids)}, nil)
}

func (b *Bot) exportICS(ctx context.Context, i *discordgo.Interaction, name string) {
	ev, err := b.controller.Show(name)
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}
	var buf bytes.Buffer
	if err := ics.Write(&buf, time.Now(), ev); err != nil {
		b.replyError(ctx, i, err)
		return
	}
	b.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("📎 Calendar file for **%s**", ev.Name),
			Flags:   discordgo.MessageFlagsEphemeral,
			Files: []*discordgo.File{{
				Name:        ics.Filename(ev.Name),
				ContentType: "text/calendar",
				Reader:      &buf,
			}},
		},
	})
}

func (b *Bot) delete(ctx context.Context, i *discordgo.Interaction, name string) {
	removed, err := b.controller.Delete(ctx, name, interactionUser(i).ID)
	if err != nil {
		b.replyError(ctx, i, err)
		return
	}
	b.reply(ctx, i, true, fmt.Sprintf("🗑️ Deleted **%s**.", removed.Name), nil, nil)

	if removed.ChannelID == "" || removed.MessageID == "" {
		return
	}
	embeds := []*discordgo.MessageEmbed{deletedEmbed(removed)}
	components := []discordgo.MessageComponent{}
	content := ""
	_, err = b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         removed.MessageID,
		Channel:    removed.ChannelID,
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		appLog.ErrorContext(ctx, "editing deleted summary failed", err, "event", removed.Name)
	}
}

// refreshSummary updates the counters on an event's public card.
func (b *Bot) refreshSummary(ctx context.Context, ev *model.Event) {
	if ev.ChannelID == "" || ev.MessageID == "" {
		return
	}
	embeds := []*discordgo.MessageEmbed{summaryEmbed(ev)}
	_, err := b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:      ev.MessageID,
		Channel: ev.ChannelID,
		Embeds:  &embeds,
	})
	if err != nil {
		appLog.ErrorContext(ctx, "refreshing summary failed", err, "event", ev.Name)
	}
}

// reply sends a channel message response. It reports whether the response
// was accepted.
func (b *Bot) reply(ctx context.Context, i *discordgo.Interaction, private bool, content string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) bool {
	data := &discordgo.InteractionResponseData{
		Content:    content,
		Embeds:     embeds,
		Components: components,
	}
	if private {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return b.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (b *Bot) replyError(ctx context.Context, i *discordgo.Interaction, err error) {
	appLog.InfoContext(ctx, "operation failed", "err", err)
	b.reply(ctx, i, true, scheduling.Message(err), nil, nil)
}

func (b *Bot) respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) bool {
	if err := b.session.InteractionRespond(i, resp); err != nil {
		appLog.ErrorContext(ctx, "interaction response failed", err, "type", resp.Type)
		return false
	}
	return true
}

func wrongKindError(ev *model.Event) error {
	return errdef.NewWrongKind("%q is a %s event, not an availability poll", ev.Name, ev.Kind())
}

func noMonthError(ev *model.Event) error {
	return errdef.NewNoTargetMonth("%q has no target month", ev.Name)
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string, len(opts))
	for _, opt := range opts {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			out[opt.Name] = opt.StringValue()
		}
	}
	return out
}

// modalValues collects text input values by custom ID.
func modalValues(rows []discordgo.MessageComponent) map[string]string {
	out := map[string]string{}
	for _, row := range rows {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if in, ok := c.(*discordgo.TextInput); ok {
				out[in.CustomID] = strings.TrimSpace(in.Value)
			}
		}
	}
	return out
}
