package domain

import (
	"time"

	"github.com/google/uuid"
)

// TeamUsage is one team's wildcard activity inside a quota window.
type TeamUsage struct {
	TeamID    uuid.UUID
	TeamName  string
	Created   int
	Pending   int
	Resolved  int
	Remaining int
}

// UsageReport summarizes the current quota window for staff.
type UsageReport struct {
	Since          time.Time
	DailyLimit     int
	Teams          []TeamUsage
	Created        int
	Pending        int
	Resolved       int
	Exhausted      int
	MeanResolution time.Duration
}

// NewUsageReport totals per-team rows and fills in each team's remaining
// wildcards for limit.
func NewUsageReport(since time.Time, limit int, teams []TeamUsage, meanResolution time.Duration) *UsageReport {
	report := &UsageReport{
		Since:          since,
		DailyLimit:     limit,
		Teams:          make([]TeamUsage, 0, len(teams)),
		MeanResolution: meanResolution,
	}

	for _, team := range teams {
		quota := NewQuota(team.Created, limit)
		team.Remaining = quota.Remaining
		if !quota.Allowed {
			report.Exhausted++
		}

		report.Created += team.Created
		report.Pending += team.Pending
		report.Resolved += team.Resolved
		report.Teams = append(report.Teams, team)
	}

	return report
}
