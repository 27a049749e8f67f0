package domain

import "time"

// DefaultDailyLimit is the number of wildcards a team may raise per day.
const DefaultDailyLimit = 5

// Quota is the derived wildcard counter of a team for one calendar day.
type Quota struct {
	Allowed   bool `json:"allowed"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	Max       int  `json:"max"`
}

// NewQuota derives the quota from the number of tickets used today.
func NewQuota(used, limit int) Quota {
	remaining := max(limit-used, 0)
	return Quota{
		Allowed:   remaining > 0,
		Used:      used,
		Remaining: remaining,
		Max:       limit,
	}
}

// Exhausted returns the quota reported when a team has no wildcards left.
func Exhausted(used, limit int) Quota {
	return Quota{Allowed: false, Used: used, Remaining: 0, Max: limit}
}

// AfterCreate is the quota once one more ticket has been counted.
func (q Quota) AfterCreate() Quota {
	return NewQuota(q.Used+1, q.Max)
}

// DayStart returns midnight of t's calendar day in loc. A nil loc means UTC.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
