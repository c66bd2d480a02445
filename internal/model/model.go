package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"gatherbot/internal/errdef"
)

// Limits on user-supplied text. Event names travel inside component custom
// IDs, which the chat platform caps at 100 characters.
const (
	MaxNameLength        = 80
	MaxDescriptionLength = 1000
)

// Kind tells the two event variants apart.
type Kind string

const (
	// KindAvailability is an open poll collecting per-participant dates.
	KindAvailability Kind = "availability"
	// KindScheduled is a fixed date-time event collecting RSVPs.
	KindScheduled Kind = "scheduled"
)

func (k Kind) String() string {
	return string(k)
}

// Details is the kind-specific part of an Event. It is implemented only by
// *Poll and *RSVP, so an event can never carry a participant structure that
// does not match its kind.
type Details interface {
	Kind() Kind
	clone() Details
}

// Event is a single gathering, identified by its unique name.
type Event struct {
	Name        string
	CreatorID   string
	Description string
	CreatedAt   time.Time

	// ChannelID / MessageID locate the public summary message, if one was
	// posted. Used to edit it on deletion and to post reminders.
	ChannelID string
	MessageID string

	Details Details
}

func (e *Event) Kind() Kind {
	if e == nil || e.Details == nil {
		return ""
	}
	return e.Details.Kind()
}

// Poll returns the availability details when e is an availability event.
func (e *Event) Poll() (*Poll, bool) {
	p, ok := e.Details.(*Poll)
	return p, ok && p != nil
}

// RSVP returns the RSVP details when e is a scheduled event.
func (e *Event) RSVP() (*RSVP, bool) {
	r, ok := e.Details.(*RSVP)
	return r, ok && r != nil
}

// ParticipantCount counts availability submitters or RSVPs.
func (e *Event) ParticipantCount() int {
	switch d := e.Details.(type) {
	case *Poll:
		return len(d.Participants)
	case *RSVP:
		return len(d.Participants)
	}
	return 0
}

// Clone returns a deep copy of e.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	if e.Details != nil {
		out.Details = e.Details.clone()
	}
	return &out
}

// NewAvailabilityEvent builds an availability poll. An empty month defaults to
// the calendar month of now.
func NewAvailabilityEvent(name, creatorID, description, month string, now time.Time) (*Event, error) {
	name, description, err := validateCommon(name, description)
	if err != nil {
		return nil, err
	}

	target := MonthOf(now)
	if strings.TrimSpace(month) != "" {
		target, err = ParseMonth(month)
		if err != nil {
			return nil, err
		}
	}

	return &Event{
		Name:        name,
		CreatorID:   creatorID,
		Description: description,
		CreatedAt:   now,
		Details: &Poll{
			Month:        target,
			Participants: map[string][]Date{},
		},
	}, nil
}

// NewScheduledEvent builds a fixed-time RSVP event from a YYYY-MM-DD date and
// an HH:MM time, interpreted in loc.
func NewScheduledEvent(name, creatorID, description, date, clock string, loc *time.Location, now time.Time) (*Event, error) {
	name, description, err := validateCommon(name, description)
	if err != nil {
		return nil, err
	}

	at, err := ParseSchedule(date, clock, loc)
	if err != nil {
		return nil, err
	}

	return &Event{
		Name:        name,
		CreatorID:   creatorID,
		Description: description,
		CreatedAt:   now,
		Details: &RSVP{
			At:           at,
			Participants: []string{},
		},
	}, nil
}

// ParseSchedule combines a date and a time of day into one timestamp.
func ParseSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	value := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	at, err := time.ParseInLocation(DateFormat+" "+ClockFormat, value, loc)
	if err != nil {
		return time.Time{}, errdef.NewInvalidFormat("invalid date/time %q: expected date YYYY-MM-DD and time HH:MM (24h)", value)
	}
	return at, nil
}

// ValidateName checks an event name and returns it trimmed.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errdef.NewInvalidFormat("event name must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", errdef.NewInvalidFormat("event name must be at most %d characters", MaxNameLength)
	}
	// Names are URL path segments in the status API.
	if strings.Contains(name, "/") {
		return "", errdef.NewInvalidFormat("event name must not contain \"/\"")
	}
	return name, nil
}

func validateCommon(name, description string) (string, string, error) {
	name, err := ValidateName(name)
	if err != nil {
		return "", "", err
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", "", errdef.NewInvalidFormat("description must be at most %d characters", MaxDescriptionLength)
	}
	return name, description, nil
}
