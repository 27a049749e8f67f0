package http

import (
	"net/http"

	mw "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/adapters/primary/http/middleware"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	apperrors "github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/errors"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/infrastructure/logging"
)

// viewerContext resolves the viewer behind a request and checks what the
// viewer may do. Role and team come from the store, not the token.
type viewerContext struct {
	identity     ports.IdentityService
	authz        ports.AuthorizationService
	errorHandler *ErrorHandler
}

// viewer returns the resolved viewer. It writes 401 and returns false when
// the request carries no claims or the user is unknown.
func (c *viewerContext) viewer(w http.ResponseWriter, r *http.Request) (domain.Viewer, *http.Request, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		c.errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Not authorized"))
		return domain.Anonymous(), r, false
	}

	viewer := c.identity.Resolve(r.Context(), claims.UserID)
	if viewer.IsAnonymous() {
		c.errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Unknown user"))
		return viewer, r, false
	}

	ctx := logging.WithRole(r.Context(), string(viewer.Role))
	mw.Annotate(ctx, "role", string(viewer.Role))
	if viewer.HasTeam() {
		ctx = logging.WithTeamID(ctx, viewer.Team().String())
		mw.Annotate(ctx, "team_id", viewer.Team().String())
	}
	return viewer, r.WithContext(ctx), true
}

// require resolves the viewer and checks one permission, writing 403 when
// it is missing.
func (c *viewerContext) require(w http.ResponseWriter, r *http.Request, permission string) (domain.Viewer, *http.Request, bool) {
	viewer, r, ok := c.viewer(w, r)
	if !ok {
		return viewer, r, false
	}
	if !c.authz.Can(viewer, permission) {
		c.errorHandler.Handle(w, r, apperrors.NewForbiddenError("You do not have permission to perform this action"))
		return viewer, r, false
	}
	return viewer, r, true
}
