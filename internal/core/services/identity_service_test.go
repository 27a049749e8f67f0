package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/mocks"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/services"
)

func TestIdentityService_Resolve(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	t.Run("known student", func(t *testing.T) {
		repo := mocks.NewMockViewerRepository()
		want := domain.Viewer{UserID: userID, Role: domain.RoleStudent, TeamID: &teamID}
		repo.On("GetViewer", ctx, userID).Return(want, nil)

		viewer := services.NewIdentityService(repo, discardLogger()).Resolve(ctx, userID)

		assert.True(t, want.Equal(viewer))
		repo.AssertExpectations(t)
	})

	t.Run("nil user is anonymous without lookup", func(t *testing.T) {
		repo := mocks.NewMockViewerRepository()

		viewer := services.NewIdentityService(repo, discardLogger()).Resolve(ctx, uuid.Nil)

		assert.True(t, viewer.IsAnonymous())
		repo.AssertNotCalled(t, "GetViewer")
	})

	t.Run("unknown user is anonymous", func(t *testing.T) {
		repo := mocks.NewMockViewerRepository()
		repo.On("GetViewer", ctx, userID).Return(domain.Viewer{}, apperrors.ErrUserNotFound)

		viewer := services.NewIdentityService(repo, discardLogger()).Resolve(ctx, userID)

		assert.True(t, viewer.IsAnonymous())
	})

	t.Run("lookup failure is anonymous", func(t *testing.T) {
		repo := mocks.NewMockViewerRepository()
		repo.On("GetViewer", ctx, userID).Return(domain.Viewer{}, errors.New("connection reset"))

		viewer := services.NewIdentityService(repo, discardLogger()).Resolve(ctx, userID)

		assert.Equal(t, domain.Anonymous(), viewer)
	})

	t.Run("record without role is anonymous", func(t *testing.T) {
		repo := mocks.NewMockViewerRepository()
		repo.On("GetViewer", ctx, userID).Return(domain.Viewer{UserID: userID}, nil)

		viewer := services.NewIdentityService(repo, discardLogger()).Resolve(ctx, userID)

		assert.True(t, viewer.IsAnonymous())
	})
}
