package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
)

func TestNewQuota(t *testing.T) {
	tests := []struct {
		name string
		used int
		want domain.Quota
	}{
		{"fresh day", 0, domain.Quota{Allowed: true, Used: 0, Remaining: 5, Max: 5}},
		{"one left", 4, domain.Quota{Allowed: true, Used: 4, Remaining: 1, Max: 5}},
		{"exhausted", 5, domain.Quota{Allowed: false, Used: 5, Remaining: 0, Max: 5}},
		{"over the limit never goes negative", 7, domain.Quota{Allowed: false, Used: 7, Remaining: 0, Max: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.NewQuota(tt.used, 5))
		})
	}
}

func TestQuota_AfterCreate(t *testing.T) {
	q := domain.NewQuota(3, 5).AfterCreate()
	assert.Equal(t, domain.Quota{Allowed: true, Used: 4, Remaining: 1, Max: 5}, q)

	q = q.AfterCreate()
	assert.False(t, q.Allowed)
	assert.Zero(t, q.Remaining)
}

func TestExhausted(t *testing.T) {
	assert.Equal(t, domain.Quota{Allowed: false, Used: 5, Remaining: 0, Max: 5}, domain.Exhausted(5, 5))
}

func TestDayStart(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	// 23:30 UTC on the 14th is already the 15th in Madrid.
	late := time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, madrid), domain.DayStart(late, madrid))
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), domain.DayStart(late, nil))

	// The DST switch day still starts at local midnight.
	dst := time.Date(2025, 3, 30, 12, 0, 0, 0, madrid)
	start := domain.DayStart(dst, madrid)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 30, start.Day())
}

func TestNewUsageReport(t *testing.T) {
	since := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	teams := []domain.TeamUsage{
		{TeamID: uuid.New(), TeamName: "A", Created: 7, Pending: 2, Resolved: 5},
		{TeamID: uuid.New(), TeamName: "B", Created: 1, Resolved: 1},
	}

	report := domain.NewUsageReport(since, 5, teams, 90*time.Second)

	assert.Equal(t, since, report.Since)
	assert.Equal(t, 8, report.Created)
	assert.Equal(t, 2, report.Pending)
	assert.Equal(t, 6, report.Resolved)
	assert.Equal(t, 1, report.Exhausted)
	assert.Zero(t, report.Teams[0].Remaining)
	assert.Equal(t, 4, report.Teams[1].Remaining)
	assert.Equal(t, 90*time.Second, report.MeanResolution)

	// The caller's slice is left alone.
	assert.Zero(t, teams[1].Remaining)
}
