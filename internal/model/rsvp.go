package model

import "time"

// RSVP holds the attendance list of a scheduled event. Participants are user
// identifiers; order is join order.
type RSVP struct {
	At           time.Time
	Participants []string
	// Reminded is set once the pre-event reminder has been sent.
	Reminded bool
}

func (r *RSVP) Kind() Kind { return KindScheduled }

func (r *RSVP) clone() Details {
	out := *r
	out.Participants = append([]string{}, r.Participants...)
	return &out
}

// Has reports whether userID already joined.
func (r *RSVP) Has(userID string) bool {
	for _, id := range r.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Add joins userID. It reports false when the user was already a member.
func (r *RSVP) Add(userID string) bool {
	if r.Has(userID) {
		return false
	}
	r.Participants = append(r.Participants, userID)
	return true
}

// Remove drops userID. It reports false when the user was not a member.
func (r *RSVP) Remove(userID string) bool {
	for i, id := range r.Participants {
		if id == userID {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return true
		}
	}
	return false
}
