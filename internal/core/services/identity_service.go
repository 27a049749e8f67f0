package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/metrics"
)

// IdentityService resolves who is behind a session. Any failure resolves
// to the anonymous viewer instead of an error.
type IdentityService struct {
	viewerRepo ports.ViewerRepository
	logger     *slog.Logger
}

var _ ports.IdentityService = (*IdentityService)(nil)

// NewIdentityService creates a new IdentityService.
func NewIdentityService(viewerRepo ports.ViewerRepository, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		viewerRepo: viewerRepo,
		logger:     logger.With("component", "identity_service"),
	}
}

// Resolve fetches role and team for userID.
func (s *IdentityService) Resolve(ctx context.Context, userID uuid.UUID) domain.Viewer {
	if userID == uuid.Nil {
		return domain.Anonymous()
	}

	viewer, err := s.viewerRepo.GetViewer(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			s.logger.Debug("unknown user, treating as anonymous", "user_id", userID)
		} else {
			s.logger.Warn("failed to resolve viewer, treating as anonymous",
				"user_id", userID,
				"error", err,
			)
		}
		return domain.Anonymous()
	}

	if viewer.UserID != userID || viewer.Role == "" {
		s.logger.Warn("viewer record is incomplete, treating as anonymous", "user_id", userID)
		return domain.Anonymous()
	}

	return viewer
}

// SessionFactory opens notification sessions for connected clients.
type SessionFactory struct {
	identity ports.IdentityService
	feed     ports.ChangeFeed
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewSessionFactory creates a factory that binds sessions to feed.
func NewSessionFactory(
	identity ports.IdentityService,
	feed ports.ChangeFeed,
	logger *slog.Logger,
	m *metrics.Metrics,
) *SessionFactory {
	return &SessionFactory{
		identity: identity,
		feed:     feed,
		logger:   logger,
		metrics:  m,
	}
}

// Open resolves the user's viewer and attaches a router that delivers to
// sink. The session is live until Close.
func (f *SessionFactory) Open(ctx context.Context, userID uuid.UUID, sink ports.NotificationSink) *Session {
	s := &Session{
		userID:   userID,
		identity: f.identity,
		router:   NewNotificationRouter(f.feed, sink, f.logger, f.metrics),
	}
	s.router.Attach(ctx, f.identity.Resolve(ctx, userID))
	return s
}

// Session is the identity context of one connection. It is passed down
// explicitly; nothing about it is global.
type Session struct {
	userID   uuid.UUID
	identity ports.IdentityService
	router   *NotificationRouter

	closeOnce sync.Once
}

// Viewer returns the identity the session currently routes for.
func (s *Session) Viewer() domain.Viewer {
	return s.router.Viewer()
}

// Router exposes the session's router.
func (s *Session) Router() *NotificationRouter {
	return s.router
}

// Refresh re-resolves the viewer, e.g. after a team assignment, and
// re-subscribes the router if anything changed.
func (s *Session) Refresh(ctx context.Context) domain.Viewer {
	viewer := s.identity.Resolve(ctx, s.userID)
	s.router.UpdateViewer(ctx, viewer)
	return viewer
}

// Close releases the session's subscription.
func (s *Session) Close() {
	s.closeOnce.Do(s.router.Close)
}
