package store

import (
	"errors"
	"fmt"
	"time"

	"gatherbot/internal/model"
)

// document is the on-disk layout of the YAML file backend.
type document struct {
	Events []record `yaml:"events"`
}

// record is the persisted form of one event. Field names only need to be
// stable for this process; nothing else reads the file.
type record struct {
	Name        string     `yaml:"name"`
	Kind        model.Kind `yaml:"kind"`
	CreatorID   string     `yaml:"creator_id"`
	Description string     `yaml:"description,omitempty"`
	CreatedAt   string     `yaml:"created_at"`
	ChannelID   string     `yaml:"channel_id,omitempty"`
	MessageID   string     `yaml:"message_id,omitempty"`

	// availability
	TargetMonth  string              `yaml:"target_month,omitempty"`
	Availability map[string][]string `yaml:"availability,omitempty"`

	// scheduled
	ScheduledAt string   `yaml:"scheduled_at,omitempty"`
	Reminded    bool     `yaml:"reminded,omitempty"`
	RSVPs       []string `yaml:"rsvps,omitempty"`
}

func toRecord(ev *model.Event) (record, error) {
	r := record{
		Name:        ev.Name,
		Kind:        ev.Kind(),
		CreatorID:   ev.CreatorID,
		Description: ev.Description,
		CreatedAt:   ev.CreatedAt.Format(time.RFC3339Nano),
		ChannelID:   ev.ChannelID,
		MessageID:   ev.MessageID,
	}

	switch d := ev.Details.(type) {
	case *model.Poll:
		r.TargetMonth = d.Month.String()
		if len(d.Participants) > 0 {
			r.Availability = make(map[string][]string, len(d.Participants))
			for name, dates := range d.Participants {
				values := make([]string, 0, len(dates))
				for _, date := range dates {
					values = append(values, date.String())
				}
				r.Availability[name] = values
			}
		}
	case *model.RSVP:
		r.ScheduledAt = d.At.Format(time.RFC3339)
		r.Reminded = d.Reminded
		if len(d.Participants) > 0 {
			r.RSVPs = append([]string(nil), d.Participants...)
		}
	default:
		return record{}, fmt.Errorf("event %q has no details", ev.Name)
	}
	return r, nil
}

func (r record) toEvent() (*model.Event, error) {
	if r.Name == "" {
		return nil, errors.New("record without name")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("event %q: created_at: %w", r.Name, err)
	}

	ev := &model.Event{
		Name:        r.Name,
		CreatorID:   r.CreatorID,
		Description: r.Description,
		CreatedAt:   createdAt,
		ChannelID:   r.ChannelID,
		MessageID:   r.MessageID,
	}

	switch r.Kind {
	case model.KindAvailability:
		if r.ScheduledAt != "" || len(r.RSVPs) > 0 || r.Reminded {
			return nil, fmt.Errorf("event %q: availability event carries RSVP fields", r.Name)
		}
		poll := &model.Poll{Participants: make(map[string][]model.Date, len(r.Availability))}
		if r.TargetMonth != "" {
			if poll.Month, err = model.ParseMonth(r.TargetMonth); err != nil {
				return nil, fmt.Errorf("event %q: %w", r.Name, err)
			}
		}
		if poll.Month.IsZero() && len(r.Availability) > 0 {
			return nil, fmt.Errorf("event %q: availability without target_month", r.Name)
		}
		for name, values := range r.Availability {
			dates, err := model.ParseDates(values)
			if err != nil {
				return nil, fmt.Errorf("event %q participant %q: %w", r.Name, name, err)
			}
			for _, d := range dates {
				if !poll.Month.Contains(d) {
					return nil, fmt.Errorf("event %q participant %q: date %s is not in %s", r.Name, name, d, poll.Month)
				}
			}
			if len(dates) == 0 {
				continue
			}
			poll.Participants[name] = model.NormalizeDates(dates)
		}
		ev.Details = poll

	case model.KindScheduled:
		if r.TargetMonth != "" || len(r.Availability) > 0 {
			return nil, fmt.Errorf("event %q: scheduled event carries availability fields", r.Name)
		}
		at, err := time.Parse(time.RFC3339, r.ScheduledAt)
		if err != nil {
			return nil, fmt.Errorf("event %q: scheduled_at: %w", r.Name, err)
		}
		rsvp := &model.RSVP{At: at, Reminded: r.Reminded, Participants: []string{}}
		for _, id := range r.RSVPs {
			rsvp.Add(id)
		}
		ev.Details = rsvp

	default:
		return nil, fmt.Errorf("event %q: unknown kind %q", r.Name, r.Kind)
	}

	return ev, nil
}

func encodeEvents(events []*model.Event) ([]record, error) {
	out := make([]record, 0, len(events))
	for _, ev := range events {
		r, err := toRecord(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func decodeRecords(records []record) ([]*model.Event, error) {
	out := make([]*model.Event, 0, len(records))
	for _, r := range records {
		ev, err := r.toEvent()
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
