package scheduling

import (
	"context"
	"time"

	appLog "gatherbot/internal/log"
	"gatherbot/internal/model"
	"gatherbot/internal/store"
)

// ClaimDueReminders marks every scheduled event starting within lead of now
// as reminded and returns them. An event is returned at most once over the
// lifetime of the store. Events that already started are not claimed.
func (c *Controller) ClaimDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]*model.Event, error) {
	// Most ticks find nothing; avoid a write in that case.
	if !anyDue(c.store.Events(), now, lead) {
		return nil, nil
	}

	var claimed []*model.Event
	err := c.store.Update(func(tx *store.Tx) error {
		claimed = claimed[:0]
		for _, ev := range tx.Events() {
			if !due(ev, now, lead) {
				continue
			}
			rsvp, _ := ev.RSVP()
			rsvp.Reminded = true
			claimed = append(claimed, ev.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ev := range claimed {
		appLog.InfoContext(ctx, "reminder claimed", "event", ev.Name)
	}
	return claimed, nil
}

func anyDue(events []*model.Event, now time.Time, lead time.Duration) bool {
	for _, ev := range events {
		if due(ev, now, lead) {
			return true
		}
	}
	return false
}

func due(ev *model.Event, now time.Time, lead time.Duration) bool {
	rsvp, ok := ev.RSVP()
	if !ok || rsvp.Reminded {
		return false
	}
	return now.Before(rsvp.At) && !rsvp.At.After(now.Add(lead))
}
