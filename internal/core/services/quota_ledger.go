package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/metrics"
)

// QuotaConfig fixes the daily wildcard limit and the time zone whose
// calendar day bounds the quota window.
type QuotaConfig struct {
	DailyLimit int
	Location   *time.Location
}

// QuotaLedger derives per-team daily quotas from the ticket table and
// serializes creates per team.
type QuotaLedger struct {
	tickets ports.TicketRepository
	teams   ports.TeamRepository
	clock   ports.Clock
	limit   int
	loc     *time.Location
	locks   *teamLocks
	metrics *metrics.Metrics
}

// NewQuotaLedger creates a ledger. A non-positive limit falls back to
// domain.DefaultDailyLimit and a nil location to UTC.
func NewQuotaLedger(
	tickets ports.TicketRepository,
	teams ports.TeamRepository,
	clock ports.Clock,
	cfg QuotaConfig,
	m *metrics.Metrics,
) *QuotaLedger {
	if clock == nil {
		clock = ports.SystemClock
	}
	limit := cfg.DailyLimit
	if limit <= 0 {
		limit = domain.DefaultDailyLimit
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &QuotaLedger{
		tickets: tickets,
		teams:   teams,
		clock:   clock,
		limit:   limit,
		loc:     loc,
		locks:   newTeamLocks(),
		metrics: m,
	}
}

// Limit returns the configured daily limit.
func (l *QuotaLedger) Limit() int {
	return l.limit
}

// Check reports the team's quota for the current day without reserving.
func (l *QuotaLedger) Check(ctx context.Context, teamID uuid.UUID) (domain.Quota, error) {
	if teamID == uuid.Nil {
		return domain.Quota{}, apperrors.ErrTeamRequired
	}
	used, _, err := l.countToday(ctx, teamID)
	if err != nil {
		return domain.Quota{}, err
	}
	return domain.NewQuota(used, l.limit), nil
}

// CheckAndReserve takes the team's writer lock and counts today's tickets.
// When a wildcard is left it returns the quota before the create and a
// reservation that keeps other creates for the team waiting until Release.
// An exhausted quota yields ErrQuotaExceeded and no reservation.
func (l *QuotaLedger) CheckAndReserve(ctx context.Context, teamID uuid.UUID) (domain.Quota, *Reservation, error) {
	if teamID == uuid.Nil {
		return domain.Quota{}, nil, apperrors.ErrTeamRequired
	}

	unlock, err := l.locks.acquire(ctx, teamID)
	if err != nil {
		return domain.Quota{}, nil, err
	}

	used, now, err := l.countToday(ctx, teamID)
	if err != nil {
		unlock()
		return domain.Quota{}, nil, err
	}

	if used >= l.limit {
		unlock()
		l.metrics.QuotaRejected()
		return domain.Exhausted(used, l.limit), nil, apperrors.NewQuotaExceededError(used, l.limit)
	}

	quota := domain.NewQuota(used, l.limit)
	return quota, &Reservation{
		quota:   quota,
		now:     now,
		since:   domain.DayStart(now, l.loc),
		release: unlock,
	}, nil
}

func (l *QuotaLedger) countToday(ctx context.Context, teamID uuid.UUID) (int, time.Time, error) {
	if l.teams != nil {
		exists, err := l.teams.Exists(ctx, teamID)
		if err != nil {
			return 0, time.Time{}, err
		}
		if !exists {
			return 0, time.Time{}, apperrors.ErrTeamNotFound
		}
	}

	now := l.clock.Now()
	used, err := l.tickets.CountByTeamSince(ctx, teamID, domain.DayStart(now, l.loc))
	if err != nil {
		return 0, time.Time{}, err
	}
	return used, now, nil
}

// DayStart returns the start of the current quota window.
func (l *QuotaLedger) DayStart() time.Time {
	return domain.DayStart(l.clock.Now(), l.loc)
}

// Reservation is held between the quota check and the insert.
type Reservation struct {
	quota   domain.Quota
	now     time.Time
	since   time.Time
	release func()
	once    sync.Once
}

// Quota is the team's quota before the reserved ticket is created.
func (r *Reservation) Quota() domain.Quota { return r.quota }

// Now is the instant the reservation was taken; new tickets use it as
// their creation time so they land in the counted window.
func (r *Reservation) Now() time.Time { return r.now }

// Since is the start of the quota window the reservation counted.
func (r *Reservation) Since() time.Time { return r.since }

// Release lets the next create for the team proceed.
func (r *Reservation) Release() {
	r.once.Do(r.release)
}

// teamLocks is a keyed mutex whose waits honor context cancellation.
type teamLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*teamLock
}

type teamLock struct {
	sem  chan struct{}
	refs int
}

func newTeamLocks() *teamLocks {
	return &teamLocks{locks: make(map[uuid.UUID]*teamLock)}
}

func (t *teamLocks) acquire(ctx context.Context, teamID uuid.UUID) (func(), error) {
	t.mu.Lock()
	lock, ok := t.locks[teamID]
	if !ok {
		lock = &teamLock{sem: make(chan struct{}, 1)}
		t.locks[teamID] = lock
	}
	lock.refs++
	t.mu.Unlock()

	select {
	case lock.sem <- struct{}{}:
		return func() {
			<-lock.sem
			t.release(teamID, lock)
		}, nil
	case <-ctx.Done():
		t.release(teamID, lock)
		return nil, ctx.Err()
	}
}

func (t *teamLocks) release(teamID uuid.UUID, lock *teamLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(t.locks, teamID)
	}
}

func (t *teamLocks) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
