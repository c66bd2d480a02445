package model

import (
	"sort"
	"strings"

	"gatherbot/internal/errdef"
)

// Poll holds the availability records of an availability event.
//
// Participants is keyed by the display name used at submission time. Every
// value is sorted, free of duplicates and never empty: withdrawing removes
// the key instead of storing an empty set.
type Poll struct {
	Month        Month
	Participants map[string][]Date
}

func (p *Poll) Kind() Kind { return KindAvailability }

func (p *Poll) clone() Details {
	out := &Poll{
		Month:        p.Month,
		Participants: make(map[string][]Date, len(p.Participants)),
	}
	for k, v := range p.Participants {
		out.Participants[k] = append([]Date(nil), v...)
	}
	return out
}

// Replace sets the participant's dates to exactly dates. An empty set
// removes the participant.
func (p *Poll) Replace(key string, dates []Date) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errdef.NewInvalidFormat("participant name must not be empty")
	}
	if p.Month.IsZero() {
		return errdef.NewNoTargetMonth("this poll has no target month")
	}
	for _, d := range dates {
		if !p.Month.Contains(d) {
			return errdef.NewInvalidFormat("date %s is not in %s", d, p.Month)
		}
	}

	dates = NormalizeDates(dates)
	if len(dates) == 0 {
		delete(p.Participants, key)
		return nil
	}
	if p.Participants == nil {
		p.Participants = map[string][]Date{}
	}
	p.Participants[key] = dates
	return nil
}

// ReplaceWithin replaces only the participant's dates that fall inside
// window, keeping the ones outside it. Used when a month's days are split
// over several selection controls: each control owns one window and their
// selections are unioned.
func (p *Poll) ReplaceWithin(key string, window, dates []Date) error {
	inWindow := make(map[Date]struct{}, len(window))
	for _, d := range window {
		inWindow[d] = struct{}{}
	}
	for _, d := range dates {
		if _, ok := inWindow[d]; !ok {
			return errdef.NewInvalidFormat("date %s is not offered by this selector", d)
		}
	}

	merged := append([]Date(nil), dates...)
	for _, d := range p.Participants[strings.TrimSpace(key)] {
		if _, ok := inWindow[d]; !ok {
			merged = append(merged, d)
		}
	}
	return p.Replace(key, merged)
}

// Dates returns the participant's recorded dates.
func (p *Poll) Dates(key string) []Date {
	return append([]Date(nil), p.Participants[key]...)
}

// Keys returns participant names in alphabetical order.
func (p *Poll) Keys() []string {
	keys := make([]string, 0, len(p.Participants))
	for k := range p.Participants {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Common returns the dates every participant is available on.
func (p *Poll) Common() []Date {
	return CommonAvailableDates(p.Participants)
}

// CommonAvailableDates intersects every participant's date set. The result is
// ascending and empty when there are no participants or any set is empty.
func CommonAvailableDates(participants map[string][]Date) []Date {
	common := []Date{}
	if len(participants) == 0 {
		return common
	}

	var running map[Date]struct{}
	for _, dates := range participants {
		if len(dates) == 0 {
			return common
		}
		if running == nil {
			running = make(map[Date]struct{}, len(dates))
			for _, d := range dates {
				running[d] = struct{}{}
			}
			continue
		}
		next := make(map[Date]struct{}, len(running))
		for _, d := range dates {
			if _, ok := running[d]; ok {
				next[d] = struct{}{}
			}
		}
		running = next
		if len(running) == 0 {
			return common
		}
	}

	for d := range running {
		common = append(common, d)
	}
	sortDates(common)
	return common
}

// NormalizeDates sorts dates ascending and drops duplicates.
func NormalizeDates(dates []Date) []Date {
	if len(dates) == 0 {
		return nil
	}
	out := append([]Date(nil), dates...)
	sortDates(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if !out[i].Equal(out[n-1]) {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

func sortDates(dates []Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
