// Package ics renders events as iCalendar documents.
package ics

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"gatherbot/internal/model"
)

const ProductID = "-//gatherbot//events//EN"

// DefaultDuration is the length given to scheduled events, which only carry
// a start time.
const DefaultDuration = 2 * time.Hour

// uidNamespace scopes the name-based UIDs generated for exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://gatherbot.invalid/events"))

// Calendar builds one calendar holding every event.
//
//   - Scheduled events become one timed VEVENT.
//   - Availability polls become one all-day TENTATIVE VEVENT per date every
//     participant can make. A poll without common dates contributes nothing.
func Calendar(now time.Time, events ...*model.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, ev := range events {
		switch d := ev.Details.(type) {
		case *model.RSVP:
			ve := cal.AddEvent(uid(ev, ""))
			ve.SetDtStampTime(now)
			ve.SetCreatedTime(ev.CreatedAt)
			ve.SetStartAt(d.At)
			ve.SetEndAt(d.At.Add(DefaultDuration))
			ve.SetSummary(ev.Name)
			ve.SetStatus(ical.ObjectStatusConfirmed)
			ve.SetDescription(describe(ev, fmt.Sprintf("%d attending", len(d.Participants))))

		case *model.Poll:
			common := d.Common()
			for _, date := range common {
				ve := cal.AddEvent(uid(ev, date.String()))
				ve.SetDtStampTime(now)
				ve.SetCreatedTime(ev.CreatedAt)
				ve.SetAllDayStartAt(date.Time())
				ve.SetAllDayEndAt(date.Time().AddDate(0, 0, 1))
				ve.SetSummary(ev.Name + " (tentative)")
				ve.SetStatus(ical.ObjectStatusTentative)
				ve.SetDescription(describe(ev, fmt.Sprintf("all %d participants are available", len(d.Participants))))
			}
		}
	}
	return cal
}

// Write serializes the calendar for events to w.
func Write(w io.Writer, now time.Time, events ...*model.Event) error {
	_, err := io.WriteString(w, Calendar(now, events...).Serialize())
	return err
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns a download name for the named event.
func Filename(name string) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-.")
	if base == "" {
		base = "event"
	}
	return base + ".ics"
}

func uid(ev *model.Event, suffix string) string {
	key := ev.Name + "\x00" + ev.CreatedAt.UTC().Format(time.RFC3339Nano) + "\x00" + suffix
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@gatherbot"
}

func describe(ev *model.Event, status string) string {
	if ev.Description == "" {
		return status
	}
	return ev.Description + "\n\n" + status
}
