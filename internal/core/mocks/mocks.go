package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) CreateWithinQuota(ctx context.Context, ticket *domain.Ticket, since time.Time, limit int) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) MarkResolved(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, bool, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Ticket), args.Bool(1), args.Error(2)
}

func (m *MockTicketRepository) ListUnresolved(ctx context.Context) ([]*domain.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListByTeamSince(ctx context.Context, teamID uuid.UUID, since time.Time) ([]*domain.Ticket, error) {
	args := m.Called(ctx, teamID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) CountByTeamSince(ctx context.Context, teamID uuid.UUID, since time.Time) (int, error) {
	args := m.Called(ctx, teamID, since)
	return args.Int(0), args.Error(1)
}

// MockTeamRepository is a mock implementation of ports.TeamRepository
type MockTeamRepository struct {
	mock.Mock
}

func NewMockTeamRepository() *MockTeamRepository {
	return &MockTeamRepository{}
}

func (m *MockTeamRepository) Exists(ctx context.Context, teamID uuid.UUID) (bool, error) {
	args := m.Called(ctx, teamID)
	return args.Bool(0), args.Error(1)
}

// MockViewerRepository is a mock implementation of ports.ViewerRepository
type MockViewerRepository struct {
	mock.Mock
}

func NewMockViewerRepository() *MockViewerRepository {
	return &MockViewerRepository{}
}

func (m *MockViewerRepository) GetViewer(ctx context.Context, userID uuid.UUID) (domain.Viewer, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.Viewer), args.Error(1)
}

// MockUsageRepository is a mock implementation of ports.UsageRepository
type MockUsageRepository struct {
	mock.Mock
}

func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{}
}

func (m *MockUsageRepository) TeamUsageSince(ctx context.Context, since time.Time) ([]domain.TeamUsage, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TeamUsage), args.Error(1)
}

func (m *MockUsageRepository) MeanResolutionSince(ctx context.Context, since time.Time) (time.Duration, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(time.Duration), args.Error(1)
}

// MockAuthorizationService is a mock implementation of ports.AuthorizationService
type MockAuthorizationService struct {
	mock.Mock
}

func NewMockAuthorizationService() *MockAuthorizationService {
	return &MockAuthorizationService{}
}

func (m *MockAuthorizationService) Can(viewer domain.Viewer, permission string) bool {
	args := m.Called(viewer, permission)
	return args.Bool(0)
}

// MockIdentityService is a mock implementation of ports.IdentityService
type MockIdentityService struct {
	mock.Mock
}

func NewMockIdentityService() *MockIdentityService {
	return &MockIdentityService{}
}

func (m *MockIdentityService) Resolve(ctx context.Context, userID uuid.UUID) domain.Viewer {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.Viewer)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*ports.CreateTicketResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.CreateTicketResult), args.Error(1)
}

func (m *MockTicketService) ResolveTicket(ctx context.Context, ticketID, resolverID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID, resolverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ListUnresolved(ctx context.Context) ([]*domain.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ListTeamTickets(ctx context.Context, teamID uuid.UUID) ([]*domain.Ticket, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetQuota(ctx context.Context, teamID uuid.UUID) (domain.Quota, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).(domain.Quota), args.Error(1)
}

func (m *MockTicketService) Shutdown() {
	m.Called()
}

// MockChangeFeed is a mock implementation of ports.ChangeFeed
type MockChangeFeed struct {
	mock.Mock
}

func NewMockChangeFeed() *MockChangeFeed {
	return &MockChangeFeed{}
}

func (m *MockChangeFeed) Publish(ctx context.Context, event domain.ChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockChangeFeed) Subscribe(ctx context.Context, filter domain.FeedFilter) (ports.Subscription, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.Subscription), args.Error(1)
}

// MockSubscription is a channel-backed ports.Subscription. Tests push
// events with Send; Unsubscribe closes the channel once.
type MockSubscription struct {
	id     string
	events chan domain.ChangeEvent

	mu           sync.Mutex
	closed       bool
	unsubscribed int
}

func NewMockSubscription(buffer int) *MockSubscription {
	return &MockSubscription{
		id:     uuid.NewString(),
		events: make(chan domain.ChangeEvent, buffer),
	}
}

func (s *MockSubscription) ID() string { return s.id }

func (s *MockSubscription) Events() <-chan domain.ChangeEvent { return s.events }

// Send delivers event unless the subscription is closed.
func (s *MockSubscription) Send(event domain.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.events <- event
	return true
}

func (s *MockSubscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed++
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// Closed reports whether Unsubscribe was called.
func (s *MockSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockNotificationSink records delivered notifications.
type MockNotificationSink struct {
	mu            sync.Mutex
	notifications []domain.Notification
	failWhen      func(domain.Notification) error
	delivered     chan domain.Notification
}

func NewMockNotificationSink() *MockNotificationSink {
	return &MockNotificationSink{delivered: make(chan domain.Notification, 64)}
}

// FailWhen makes deliveries for which fn returns an error fail.
func (s *MockNotificationSink) FailWhen(fn func(domain.Notification) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWhen = fn
}

func (s *MockNotificationSink) Deliver(n domain.Notification) error {
	s.mu.Lock()
	var err error
	if s.failWhen != nil {
		err = s.failWhen(n)
	}
	if err == nil {
		s.notifications = append(s.notifications, n)
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.delivered <- n
	return nil
}

// Delivered is signalled on every successful delivery.
func (s *MockNotificationSink) Delivered() <-chan domain.Notification {
	return s.delivered
}

func (s *MockNotificationSink) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.notifications...)
}
