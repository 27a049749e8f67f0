package http

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/services"
)

// MeResponse describes the authenticated viewer as the server sees it.
type MeResponse struct {
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	TeamID      *string  `json:"teamId"`
	Permissions []string `json:"permissions"`
}

// PermissionsResponse defines the JSON response for user permissions.
type PermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

// MeHandler handles HTTP requests for the authenticated user.
type MeHandler struct {
	viewers *viewerContext
	logger  *slog.Logger
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(
	identity ports.IdentityService,
	authz ports.AuthorizationService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MeHandler {
	return &MeHandler{
		viewers: &viewerContext{
			identity:     identity,
			authz:        authz,
			errorHandler: errorHandler,
		},
		logger: logger.With("handler", "me"),
	}
}

// RegisterRoutes registers the /me routes.
func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleMe)
	r.Get("/permissions", h.HandlePermissions)
}

// HandleMe handles GET /me.
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	viewer, _, ok := h.viewers.viewer(w, r)
	if !ok {
		return
	}

	var teamID *string
	if viewer.HasTeam() {
		id := viewer.Team().String()
		teamID = &id
	}

	WriteJSON(w, http.StatusOK, MeResponse{
		UserID:      viewer.UserID.String(),
		Role:        string(viewer.Role),
		TeamID:      teamID,
		Permissions: sortedPermissions(services.Permissions(viewer)),
	})
}

// HandlePermissions handles GET /me/permissions.
func (h *MeHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	viewer, _, ok := h.viewers.viewer(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, PermissionsResponse{
		Permissions: sortedPermissions(services.Permissions(viewer)),
	})
}

func sortedPermissions(permissions []string) []string {
	if permissions == nil {
		permissions = []string{}
	}
	sort.Strings(permissions)
	return permissions
}
