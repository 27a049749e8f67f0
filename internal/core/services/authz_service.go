package services

import (
	"slices"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/domain"
	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/ports"
)

// Permissions checked by the HTTP layer.
const (
	PermWildcardsCreate         = "wildcards:create"
	PermWildcardsReadOwn        = "wildcards:read:own"
	PermWildcardsListUnresolved = "wildcards:list:unresolved"
	PermWildcardsResolve        = "wildcards:resolve"
	PermWildcardsUsage          = "wildcards:usage"
	PermNotificationsSubscribe  = "notifications:subscribe"
)

var rolePermissions = map[domain.Role][]string{
	domain.RoleStudent: {
		PermWildcardsCreate,
		PermWildcardsReadOwn,
		PermNotificationsSubscribe,
	},
	domain.RoleTeacher: {
		PermWildcardsListUnresolved,
		PermWildcardsResolve,
		PermWildcardsUsage,
		PermNotificationsSubscribe,
	},
	domain.RoleAdmin: {
		PermWildcardsListUnresolved,
		PermWildcardsResolve,
		PermWildcardsUsage,
		PermNotificationsSubscribe,
	},
}

// AuthorizationService implements the business logic for RBAC.
type AuthorizationService struct{}

// Ensure implementation matches the interface.
var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// NewAuthorizationService creates a new service for authorization logic.
func NewAuthorizationService() ports.AuthorizationService {
	return &AuthorizationService{}
}

// Can checks if a viewer has a specific permission. Anonymous viewers have
// none, and students without a team have no team wildcards to act on.
func (s *AuthorizationService) Can(viewer domain.Viewer, permission string) bool {
	if viewer.IsAnonymous() {
		return false
	}
	if isTeamScoped(permission) && !viewer.HasTeam() {
		return false
	}
	return slices.Contains(rolePermissions[viewer.Role], permission)
}

// Permissions lists what Can grants the viewer.
func Permissions(viewer domain.Viewer) []string {
	authz := &AuthorizationService{}
	granted := []string{}
	for _, permission := range rolePermissions[viewer.Role] {
		if authz.Can(viewer, permission) {
			granted = append(granted, permission)
		}
	}
	return granted
}

func isTeamScoped(permission string) bool {
	return permission == PermWildcardsCreate || permission == PermWildcardsReadOwn
}
