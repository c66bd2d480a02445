package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"gatherbot/internal/model"
	"gatherbot/internal/scheduling"
)

// maxSelectOptions is the platform cap on options per select menu.
const maxSelectOptions = 25

const (
	colorAvailability = 0x5865F2
	colorScheduled    = 0x57F287
	colorDeleted      = 0x99AAB5
	colorInfo         = 0xFEE75C
)

// summaryEmbed renders the public card of an event.
func summaryEmbed(ev *model.Event) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       ev.Name,
		Description: ev.Description,
		Timestamp:   ev.CreatedAt.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Created by", Value: mention(ev.CreatorID), Inline: true},
		},
	}

	switch d := ev.Details.(type) {
	case *model.Poll:
		embed.Color = colorAvailability
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Type", Value: "📅 Availability poll", Inline: true},
			&discordgo.MessageEmbedField{Name: "Month", Value: d.Month.String(), Inline: true},
			&discordgo.MessageEmbedField{Name: "Responses", Value: strconv.Itoa(len(d.Participants)), Inline: true},
		)
	case *model.RSVP:
		embed.Color = colorScheduled
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Type", Value: "🗓️ Scheduled event", Inline: true},
			&discordgo.MessageEmbedField{Name: "When", Value: formatWhen(d.At), Inline: true},
			&discordgo.MessageEmbedField{Name: "Attending", Value: strconv.Itoa(len(d.Participants)), Inline: true},
		)
	}
	return embed
}

// formatWhen renders a timestamp both in the host zone and as a platform
// timestamp tag, which clients show in the reader's own zone.
func formatWhen(at time.Time) string {
	return fmt.Sprintf("%s %s\n<t:%d:R>", at.Format(model.DateFormat), at.Format(model.ClockFormat), at.Unix())
}

// summaryComponents returns the action rows for an event's public card.
func summaryComponents(ev *model.Event) []discordgo.MessageComponent {
	var buttons []discordgo.MessageComponent
	switch ev.Kind() {
	case model.KindAvailability:
		buttons = []discordgo.MessageComponent{
			button("Pick dates", discordgo.PrimaryButton, opPick, ev.Name),
			button("Stats", discordgo.SecondaryButton, opStats, ev.Name),
			button("Recommend", discordgo.SuccessButton, opRecommend, ev.Name),
			button("Delete", discordgo.DangerButton, opDelete, ev.Name),
		}
	case model.KindScheduled:
		buttons = []discordgo.MessageComponent{
			button("Join", discordgo.SuccessButton, opJoin, ev.Name),
			button("Leave", discordgo.SecondaryButton, opLeave, ev.Name),
			button("Participants", discordgo.SecondaryButton, opParticipants, ev.Name),
			button(".ics", discordgo.SecondaryButton, opICS, ev.Name),
			button("Delete", discordgo.DangerButton, opDelete, ev.Name),
		}
	}
	if len(buttons) == 0 {
		return nil
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func button(label string, style discordgo.ButtonStyle, op, name string) discordgo.Button {
	return discordgo.Button{Label: label, Style: style, CustomID: encodeID(op, name)}
}

// deletedEmbed replaces the card of a deleted event.
func deletedEmbed(ev *model.Event) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "~~" + ev.Name + "~~",
		Description: "🗑️ This event was deleted by its creator.",
		Color:       colorDeleted,
	}
}

// chunkDays splits days into windows of at most size.
func chunkDays(days []model.Date, size int) [][]model.Date {
	var out [][]model.Date
	for len(days) > 0 {
		n := min(size, len(days))
		out = append(out, days[:n])
		days = days[n:]
	}
	return out
}

// pickerWindows returns the date windows of the poll's selectors. The same
// function backs rendering and submission, so a selector index always maps
// to the same days.
func pickerWindows(month model.Month) [][]model.Date {
	return chunkDays(month.Days(), maxSelectOptions)
}

// datePicker renders one select per window with the participant's current
// dates preselected, followed by a clear button.
func datePicker(ev *model.Event, poll *model.Poll, selected []model.Date) []discordgo.MessageComponent {
	chosen := make(map[model.Date]bool, len(selected))
	for _, d := range selected {
		chosen[d] = true
	}

	minValues := 0
	var rows []discordgo.MessageComponent
	for i, window := range pickerWindows(poll.Month) {
		options := make([]discordgo.SelectMenuOption, 0, len(window))
		for _, d := range window {
			options = append(options, discordgo.SelectMenuOption{
				Label:   fmt.Sprintf("%s (%s)", d.String(), d.Weekday()),
				Value:   d.String(),
				Default: chosen[d],
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    encodeID(daysOp(i), ev.Name),
				Placeholder: fmt.Sprintf("%s to %s", window[0], window[len(window)-1]),
				MinValues:   &minValues,
				MaxValues:   len(options),
				Options:     options,
			},
		}})
	}
	rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		button("Clear my dates", discordgo.DangerButton, opClear, ev.Name),
	}})
	return rows
}

func pickerContent(ev *model.Event, selected []model.Date, status string) string {
	var b strings.Builder
	if status != "" {
		b.WriteString(status)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**%s**: pick every day you can make. ", ev.Name)
	if len(selected) == 0 {
		b.WriteString("You have not picked any dates yet.")
	} else {
		fmt.Fprintf(&b, "Your dates: %s", joinDates(selected))
	}
	return b.String()
}

func statsEmbed(stats *scheduling.Stats) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "📊 " + stats.Event.Name,
		Color: colorInfo,
	}
	if len(stats.Participants) == 0 {
		embed.Description = "Nobody has picked dates yet."
		return embed
	}

	embed.Description = fmt.Sprintf("%d participant(s) for %s", len(stats.Participants), stats.Month)
	var top []string
	for i, dc := range stats.Popular {
		if i == 5 {
			break
		}
		top = append(top, fmt.Sprintf("%s (%d)", dc.Date, dc.Count))
	}
	popular := &discordgo.MessageEmbedField{
		Name:  "Most popular",
		Value: strings.Join(top, ", "),
	}
	addParticipantFields(embed, stats.Participants, 1, fieldLength(popular))
	embed.Fields = append(embed.Fields, popular)
	return embed
}

func recommendationEmbed(rec *scheduling.Recommendation) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "✨ " + rec.Event.Name}
	if len(rec.Dates) > 0 {
		embed.Color = colorScheduled
		embed.Description = "Everyone is available on:\n" + truncate(joinDates(rec.Dates), 4000)
		return embed
	}

	embed.Color = colorInfo
	embed.Description = "There is no date that works for everyone. First picks per participant:"
	addParticipantFields(embed, rec.Diagnosis, 0, 0)
	return embed
}

// Platform limits on a single embed.
const (
	maxEmbedFields     = 25
	maxEmbedChars      = 6000
	maxFieldNameChars  = 256
	maxFieldValueChars = 1024
	overflowFieldChars = 32
)

// addParticipantFields appends one field per participant while the embed
// stays within the platform limits, leaving room for reserve more fields
// totalling reserveChars characters. Whoever does not fit is counted in a
// final "and N more" field.
func addParticipantFields(embed *discordgo.MessageEmbed, rows []scheduling.ParticipantDates, reserve, reserveChars int) {
	for i, p := range rows {
		value := joinDates(p.Dates)
		if value == "" {
			value = "-"
		}
		field := &discordgo.MessageEmbedField{
			Name:  truncate(p.Name, maxFieldNameChars),
			Value: truncate(value, maxFieldValueChars),
		}

		fieldsLeft := maxEmbedFields - len(embed.Fields) - reserve
		charsLeft := maxEmbedChars - embedLength(embed) - reserveChars
		if i < len(rows)-1 {
			// the overflow field must still fit after this one
			fieldsLeft--
			charsLeft -= overflowFieldChars
		}
		if fieldsLeft < 1 || fieldLength(field) > charsLeft {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  "…",
				Value: fmt.Sprintf("and %d more", len(rows)-i),
			})
			return
		}
		embed.Fields = append(embed.Fields, field)
	}
}

func fieldLength(f *discordgo.MessageEmbedField) int {
	return utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
}

// embedLength counts the characters the platform limits per embed.
func embedLength(e *discordgo.MessageEmbed) int {
	n := utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description)
	if e.Footer != nil {
		n += utf8.RuneCountInString(e.Footer.Text)
	}
	if e.Author != nil {
		n += utf8.RuneCountInString(e.Author.Name)
	}
	for _, f := range e.Fields {
		n += fieldLength(f)
	}
	return n
}

func participantsEmbed(ev *model.Event, ids []string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "👥 " + ev.Name,
		Color: colorScheduled,
	}
	if len(ids) == 0 {
		embed.Description = "Nobody has joined yet."
		return embed
	}
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, mention(id))
	}
	embed.Description = fmt.Sprintf("%d attending\n%s", len(ids), truncate(strings.Join(mentions, "\n"), 4000))
	return embed
}

func listEmbed(events []*model.Event) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "Events", Color: colorInfo}
	if len(events) == 0 {
		embed.Description = "No events yet. Create one with /poll_create or /event_create."
		return embed
	}

	lines := make([]string, 0, len(events))
	for _, ev := range events {
		switch d := ev.Details.(type) {
		case *model.Poll:
			lines = append(lines, fmt.Sprintf("📅 **%s**: poll for %s, %d response(s)", ev.Name, d.Month, len(d.Participants)))
		case *model.RSVP:
			lines = append(lines, fmt.Sprintf("🗓️ **%s**: %s %s, %d attending", ev.Name, d.At.Format(model.DateFormat), d.At.Format(model.ClockFormat), len(d.Participants)))
		}
	}
	embed.Description = truncate(strings.Join(lines, "\n"), 4000)
	return embed
}

func pollModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: encodeID(modalPoll, ""),
		Title:    "New availability poll",
		Components: []discordgo.MessageComponent{
			textInput("name", "Event name", "Weekend trip", discordgo.TextInputShort, true, model.MaxNameLength),
			textInput("description", "Description", "What is it about?", discordgo.TextInputParagraph, false, model.MaxDescriptionLength),
			textInput("month", "Month (YYYY-MM, blank for this month)", "2025-11", discordgo.TextInputShort, false, 7),
		},
	}
}

func eventModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: encodeID(modalEvent, ""),
		Title:    "New scheduled event",
		Components: []discordgo.MessageComponent{
			textInput("name", "Event name", "Board games", discordgo.TextInputShort, true, model.MaxNameLength),
			textInput("description", "Description", "Where, what to bring...", discordgo.TextInputParagraph, false, model.MaxDescriptionLength),
			textInput("date", "Date (YYYY-MM-DD)", "2025-11-14", discordgo.TextInputShort, true, 10),
			textInput("time", "Time (HH:MM, 24h)", "19:30", discordgo.TextInputShort, true, 5),
		},
	}
}

func textInput(id, label, placeholder string, style discordgo.TextInputStyle, required bool, maxLength int) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.TextInput{
			CustomID:    id,
			Label:       label,
			Style:       style,
			Placeholder: placeholder,
			Required:    required,
			MaxLength:   maxLength,
		},
	}}
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func joinDates(dates []model.Date) string {
	parts := make([]string, 0, len(dates))
	for _, d := range dates {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, ", ")
}

// truncate shortens s to at most max characters.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}
