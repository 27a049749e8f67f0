// Package memory holds an in-process implementation of the repository
// ports, used for local runs without a database and in service tests.
package memory

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
)

// Store keeps teams, users and tickets behind a single mutex, which also
// makes CreateWithinQuota's count and insert atomic.
type Store struct {
	mu      sync.RWMutex
	teams   map[uuid.UUID]string
	viewers map[uuid.UUID]domain.Viewer
	tickets map[uuid.UUID]*domain.Ticket
}

var (
	_ ports.TicketRepository = (*Store)(nil)
	_ ports.TeamRepository   = (*Store)(nil)
	_ ports.ViewerRepository = (*Store)(nil)
	_ ports.UsageRepository  = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		teams:   make(map[uuid.UUID]string),
		viewers: make(map[uuid.UUID]domain.Viewer),
		tickets: make(map[uuid.UUID]*domain.Ticket),
	}
}

// AddTeam registers a team.
func (s *Store) AddTeam(id uuid.UUID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[id] = name
}

// PutViewer registers or replaces a user's role and team.
func (s *Store) PutViewer(viewer domain.Viewer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewers[viewer.UserID] = viewer
}

// Exists implements ports.TeamRepository.
func (s *Store) Exists(_ context.Context, teamID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.teams[teamID]
	return ok, nil
}

// GetViewer implements ports.ViewerRepository.
func (s *Store) GetViewer(_ context.Context, userID uuid.UUID) (domain.Viewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	viewer, ok := s.viewers[userID]
	if !ok {
		return domain.Viewer{}, apperrors.ErrUserNotFound
	}
	if viewer.TeamID != nil {
		teamID := *viewer.TeamID
		viewer.TeamID = &teamID
	}
	return viewer, nil
}

// CreateWithinQuota implements ports.TicketRepository. The count and the
// insert happen under one lock, so the cap holds for concurrent callers.
func (s *Store) CreateWithinQuota(ctx context.Context, ticket *domain.Ticket, since time.Time, limit int) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countLocked(ticket.TeamID, since) >= limit {
		return nil, apperrors.ErrQuotaExceeded
	}
	if _, dup := s.tickets[ticket.ID]; dup {
		return nil, apperrors.ErrConflict
	}

	stored := clone(ticket)
	s.tickets[stored.ID] = stored
	return clone(stored), nil
}

// GetByID implements ports.TicketRepository.
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return clone(ticket), nil
}

// MarkResolved implements ports.TicketRepository. Only a pending ticket is
// updated; otherwise the stored ticket is returned with applied false.
func (s *Store) MarkResolved(_ context.Context, ticket *domain.Ticket) (*domain.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tickets[ticket.ID]
	if !ok {
		return nil, false, apperrors.ErrTicketNotFound
	}
	if stored.IsResolved() {
		return clone(stored), false, nil
	}

	stored.Status = domain.StatusResolved
	stored.ResolvedAt = ticket.ResolvedAt
	stored.ResolvedBy = ticket.ResolvedBy
	return clone(stored), true, nil
}

// ListUnresolved implements ports.TicketRepository.
func (s *Store) ListUnresolved(_ context.Context) ([]*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Ticket, 0)
	for _, ticket := range s.tickets {
		if !ticket.IsResolved() {
			result = append(result, clone(ticket))
		}
	}
	slices.SortFunc(result, func(a, b *domain.Ticket) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return result, nil
}

// ListByTeamSince implements ports.TicketRepository.
func (s *Store) ListByTeamSince(_ context.Context, teamID uuid.UUID, since time.Time) ([]*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Ticket, 0)
	for _, ticket := range s.tickets {
		if ticket.TeamID == teamID && !ticket.CreatedAt.Before(since) {
			result = append(result, clone(ticket))
		}
	}
	slices.SortFunc(result, func(a, b *domain.Ticket) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})
	return result, nil
}

// CountByTeamSince implements ports.TicketRepository.
func (s *Store) CountByTeamSince(_ context.Context, teamID uuid.UUID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(teamID, since), nil
}

func (s *Store) countLocked(teamID uuid.UUID, since time.Time) int {
	count := 0
	for _, ticket := range s.tickets {
		if ticket.TeamID == teamID && !ticket.CreatedAt.Before(since) {
			count++
		}
	}
	return count
}

// TeamUsageSince implements ports.UsageRepository.
func (s *Store) TeamUsageSince(_ context.Context, since time.Time) ([]domain.TeamUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTeam := make(map[uuid.UUID]*domain.TeamUsage, len(s.teams))
	for id, name := range s.teams {
		byTeam[id] = &domain.TeamUsage{TeamID: id, TeamName: name}
	}
	for _, ticket := range s.tickets {
		usage, ok := byTeam[ticket.TeamID]
		if !ok || ticket.CreatedAt.Before(since) {
			continue
		}
		usage.Created++
		if ticket.IsResolved() {
			usage.Resolved++
		} else {
			usage.Pending++
		}
	}

	result := make([]domain.TeamUsage, 0, len(byTeam))
	for _, usage := range byTeam {
		result = append(result, *usage)
	}
	slices.SortFunc(result, func(a, b domain.TeamUsage) int {
		if c := b.Created - a.Created; c != 0 {
			return c
		}
		return strings.Compare(a.TeamName, b.TeamName)
	})
	return result, nil
}

// MeanResolutionSince implements ports.UsageRepository.
func (s *Store) MeanResolutionSince(_ context.Context, since time.Time) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total time.Duration
	count := 0
	for _, ticket := range s.tickets {
		if ticket.CreatedAt.Before(since) || ticket.ResolvedAt == nil {
			continue
		}
		total += ticket.ResolvedAt.Sub(ticket.CreatedAt)
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return (total / time.Duration(count)).Round(time.Second), nil
}

func clone(ticket *domain.Ticket) *domain.Ticket {
	c := *ticket
	if ticket.ResolvedAt != nil {
		at := *ticket.ResolvedAt
		c.ResolvedAt = &at
	}
	if ticket.ResolvedBy != nil {
		by := *ticket.ResolvedBy
		c.ResolvedBy = &by
	}
	return &c
}
