package bot

import "github.com/bwmarrin/discordgo"

// Slash command names.
const (
	cmdPollCreate        = "poll_create"
	cmdEventCreate       = "event_create"
	cmdEventSchedule     = "event_schedule"
	cmdEventShow         = "event_show"
	cmdEventList         = "event_list"
	cmdEventJoin         = "event_join"
	cmdEventLeave        = "event_leave"
	cmdPollPick          = "poll_pick"
	cmdPollStats         = "poll_stats"
	cmdPollRecommend     = "poll_recommend"
	cmdEventParticipants = "event_participants"
	cmdEventDelete       = "event_delete"
	cmdVoiceJoin         = "voice_join"
	cmdVoiceLeave        = "voice_leave"
)

func nameOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "name",
		Description:  "Event name",
		Required:     true,
		Autocomplete: true,
	}
}

func stringOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

// Commands returns the slash command definitions the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	named := func(name, description string) *discordgo.ApplicationCommand {
		return &discordgo.ApplicationCommand{
			Name:        name,
			Description: description,
			Options:     []*discordgo.ApplicationCommandOption{nameOption()},
		}
	}

	return []*discordgo.ApplicationCommand{
		{Name: cmdPollCreate, Description: "Create an availability poll for a month"},
		{Name: cmdEventCreate, Description: "Create an event at a fixed date and time"},
		{
			Name:        cmdEventSchedule,
			Description: "Create an event at a fixed date and time without a form",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("name", "Event name", true),
				stringOption("date", "Date (YYYY-MM-DD)", true),
				stringOption("time", "Time (HH:MM, 24h)", true),
				stringOption("description", "Description", false),
			},
		},
		named(cmdEventShow, "Show an event"),
		{Name: cmdEventList, Description: "List all events"},
		named(cmdEventJoin, "Join a scheduled event"),
		named(cmdEventLeave, "Leave a scheduled event"),
		named(cmdPollPick, "Pick the dates you are available"),
		named(cmdPollStats, "Show everyone's picked dates"),
		named(cmdPollRecommend, "Find dates that work for everyone"),
		named(cmdEventParticipants, "List who joined a scheduled event"),
		named(cmdEventDelete, "Delete an event you created"),
		{Name: cmdVoiceJoin, Description: "Make the bot join your voice channel"},
		{Name: cmdVoiceLeave, Description: "Make the bot leave the voice channel"},
	}
}
