// Package scheduling implements the user-facing operations on events.
//
// A Controller is stateless between calls. Every operation re-resolves the
// target event from the store, so controls rendered long ago keep working as
// long as they only carry the event name.
package scheduling

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"gatherbot/internal/errdef"
	appLog "gatherbot/internal/log"
	"gatherbot/internal/model"
	"gatherbot/internal/store"
)

// DiagnosisDates is how many dates per participant a failed recommendation
// lists.
const DiagnosisDates = 5

// EventStore is the part of *store.Store the controller depends on.
type EventStore interface {
	Get(name string) (*model.Event, bool)
	Events() []*model.Event
	Update(fn func(tx *store.Tx) error) error
}

type Controller struct {
	store    EventStore
	validate *validator.Validate
	location *time.Location
	now      func() time.Time
}

type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLocation sets the zone scheduled times are entered in.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.location = loc
		}
	}
}

func NewController(store EventStore, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		validate: newValidator(),
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type CreateAvailabilityRequest struct {
	Name        string `validate:"notblank,max=80"`
	CreatorID   string `validate:"required"`
	Description string `validate:"max=1000"`
	// Month is YYYY-MM; empty means the current month.
	Month string
}

func (c *Controller) CreateAvailability(ctx context.Context, req CreateAvailabilityRequest) (*model.Event, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	ev, err := model.NewAvailabilityEvent(req.Name, req.CreatorID, req.Description, req.Month, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.create(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

type CreateScheduledRequest struct {
	Name        string `validate:"notblank,max=80"`
	CreatorID   string `validate:"required"`
	Description string `validate:"max=1000"`
	Date        string `validate:"notblank"`
	Time        string `validate:"notblank"`
}

func (c *Controller) CreateScheduled(ctx context.Context, req CreateScheduledRequest) (*model.Event, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	ev, err := model.NewScheduledEvent(req.Name, req.CreatorID, req.Description, req.Date, req.Time, c.location, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.create(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *Controller) create(ctx context.Context, ev *model.Event) error {
	err := c.store.Update(func(tx *store.Tx) error {
		return tx.Create(ev)
	})
	if err != nil {
		return err
	}
	appLog.InfoContext(ctx, "event created", "event", ev.Name, "kind", ev.Kind())
	return nil
}

// Show returns the named event.
func (c *Controller) Show(name string) (*model.Event, error) {
	ev, ok := c.store.Get(strings.TrimSpace(name))
	if !ok {
		return nil, errdef.NewNotFound("event %q not found", strings.TrimSpace(name))
	}
	return ev, nil
}

// List returns every event in creation order.
func (c *Controller) List() []*model.Event {
	return c.store.Events()
}

// Search returns up to limit event names containing query, case-insensitively.
// Names starting with query come first.
func (c *Controller) Search(query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	var prefix, contains []string
	for _, ev := range c.store.Events() {
		lower := strings.ToLower(ev.Name)
		switch {
		case strings.HasPrefix(lower, query):
			prefix = append(prefix, ev.Name)
		case strings.Contains(lower, query):
			contains = append(contains, ev.Name)
		}
	}
	out := append(prefix, contains...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type PickRequest struct {
	Name string `validate:"notblank"`
	// Participant is the display name the dates are recorded under.
	Participant string `validate:"notblank"`
	// Dates are YYYY-MM-DD values. An empty list withdraws.
	Dates []string
	// Window, when set, limits the replacement to these dates; the
	// participant's dates outside it are kept.
	Window []string
}

type PickResult struct {
	Event *model.Event
	// Dates is the participant's full selection after the change.
	Dates []model.Date
	// Cleared reports that the participant no longer has any dates.
	Cleared bool
}

func (c *Controller) PickAvailability(ctx context.Context, req PickRequest) (*PickResult, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	dates, err := model.ParseDates(req.Dates)
	if err != nil {
		return nil, err
	}
	window, err := model.ParseDates(req.Window)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(req.Participant)

	var result PickResult
	err = c.store.Update(func(tx *store.Tx) error {
		ev, err := tx.Get(strings.TrimSpace(req.Name))
		if err != nil {
			return err
		}
		poll, ok := ev.Poll()
		if !ok {
			return wrongKind(ev, model.KindAvailability)
		}
		if req.Window != nil {
			err = poll.ReplaceWithin(key, window, dates)
		} else {
			err = poll.Replace(key, dates)
		}
		if err != nil {
			return err
		}
		result.Event = ev.Clone()
		result.Dates = poll.Dates(key)
		result.Cleared = len(result.Dates) == 0
		return nil
	})
	if err != nil {
		return nil, err
	}

	appLog.InfoContext(ctx, "availability updated", "event", result.Event.Name, "participant", key, "dates", len(result.Dates))
	return &result, nil
}

// ParticipantDates is one row of the availability statistics.
type ParticipantDates struct {
	Name  string
	Dates []model.Date
}

// DateCount is how many participants are free on Date.
type DateCount struct {
	Date  model.Date
	Count int
}

type Stats struct {
	Event        *model.Event
	Month        model.Month
	Participants []ParticipantDates
	// Popular lists dates chosen by at least one participant, most popular
	// first, ties by date.
	Popular []DateCount
}

func (c *Controller) Stats(name string) (*Stats, error) {
	ev, poll, err := c.poll(name)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Event: ev, Month: poll.Month}
	counts := map[model.Date]int{}
	for _, key := range poll.Keys() {
		dates := poll.Dates(key)
		stats.Participants = append(stats.Participants, ParticipantDates{Name: key, Dates: dates})
		for _, d := range dates {
			counts[d]++
		}
	}
	for d, n := range counts {
		stats.Popular = append(stats.Popular, DateCount{Date: d, Count: n})
	}
	sort.Slice(stats.Popular, func(i, j int) bool {
		a, b := stats.Popular[i], stats.Popular[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Date.Before(b.Date)
	})
	return stats, nil
}

type Recommendation struct {
	Event *model.Event
	// Dates holds the dates every participant can make, ascending.
	Dates []model.Date
	// Diagnosis is filled when Dates is empty: each participant's first
	// DiagnosisDates dates, so the group can see where they diverge.
	Diagnosis []ParticipantDates
}

func (c *Controller) Recommend(name string) (*Recommendation, error) {
	ev, poll, err := c.poll(name)
	if err != nil {
		return nil, err
	}
	if len(poll.Participants) == 0 {
		return nil, errdef.NewNoParticipants("nobody has picked dates for %q yet", ev.Name)
	}

	rec := &Recommendation{Event: ev, Dates: poll.Common()}
	if len(rec.Dates) > 0 {
		return rec, nil
	}
	for _, key := range poll.Keys() {
		dates := poll.Dates(key)
		if len(dates) > DiagnosisDates {
			dates = dates[:DiagnosisDates]
		}
		rec.Diagnosis = append(rec.Diagnosis, ParticipantDates{Name: key, Dates: dates})
	}
	return rec, nil
}

// Join adds userID to a scheduled event. changed is false when the user was
// already attending.
func (c *Controller) Join(ctx context.Context, name, userID string) (ev *model.Event, changed bool, err error) {
	return c.toggle(ctx, name, userID, true)
}

// Leave removes userID from a scheduled event. changed is false when the
// user was not attending.
func (c *Controller) Leave(ctx context.Context, name, userID string) (ev *model.Event, changed bool, err error) {
	return c.toggle(ctx, name, userID, false)
}

func (c *Controller) toggle(ctx context.Context, name, userID string, join bool) (*model.Event, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, false, errdef.NewInvalidFormat("user id must not be empty")
	}

	var (
		out     *model.Event
		changed bool
	)
	err := c.store.Update(func(tx *store.Tx) error {
		ev, err := tx.Get(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		rsvp, ok := ev.RSVP()
		if !ok {
			return wrongKind(ev, model.KindScheduled)
		}
		if join {
			changed = rsvp.Add(userID)
		} else {
			changed = rsvp.Remove(userID)
		}
		out = ev.Clone()
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		action := "left"
		if join {
			action = "joined"
		}
		appLog.InfoContext(ctx, "rsvp "+action, "event", out.Name, "participants", out.ParticipantCount())
	}
	return out, changed, nil
}

// Participants returns the RSVP list of a scheduled event in join order.
func (c *Controller) Participants(name string) (*model.Event, []string, error) {
	ev, err := c.Show(name)
	if err != nil {
		return nil, nil, err
	}
	rsvp, ok := ev.RSVP()
	if !ok {
		return nil, nil, wrongKind(ev, model.KindScheduled)
	}
	return ev, append([]string{}, rsvp.Participants...), nil
}

// Delete removes the named event if callerID created it. The returned event
// still carries the location of its summary message.
func (c *Controller) Delete(ctx context.Context, name, callerID string) (*model.Event, error) {
	var removed *model.Event
	err := c.store.Update(func(tx *store.Tx) error {
		ev, err := tx.Get(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		if ev.CreatorID != callerID {
			return errdef.NewForbidden("only the creator of %q can delete it", ev.Name)
		}
		removed, err = tx.Delete(ev.Name)
		return err
	})
	if err != nil {
		return nil, err
	}
	appLog.InfoContext(ctx, "event deleted", "event", removed.Name)
	return removed, nil
}

// AttachMessage records where the public summary of an event was posted.
func (c *Controller) AttachMessage(ctx context.Context, name, channelID, messageID string) error {
	return c.store.Update(func(tx *store.Tx) error {
		ev, err := tx.Get(name)
		if err != nil {
			return err
		}
		ev.ChannelID, ev.MessageID = channelID, messageID
		return nil
	})
}

func (c *Controller) poll(name string) (*model.Event, *model.Poll, error) {
	ev, err := c.Show(name)
	if err != nil {
		return nil, nil, err
	}
	poll, ok := ev.Poll()
	if !ok {
		return nil, nil, wrongKind(ev, model.KindAvailability)
	}
	return ev, poll, nil
}

func wrongKind(ev *model.Event, want model.Kind) error {
	return errdef.NewWrongKind("%q is a %s event, not %s", ev.Name, ev.Kind(), want)
}
