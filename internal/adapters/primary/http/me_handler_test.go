package http

import (
	stdhttp "net/http"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carlitic/hackathon-caminas-platform-sub000/internal/core/services"
)

func TestMe_Student(t *testing.T) {
	f := newAPIFixture(t)

	recorder := f.do(t, f.student, stdhttp.MethodGet, "/me", nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	response := decode[MeResponse](t, recorder)
	assert.Equal(t, f.student.UserID.String(), response.UserID)
	assert.Equal(t, "student", response.Role)
	require.NotNil(t, response.TeamID)
	assert.Equal(t, f.teamID.String(), *response.TeamID)
	assert.Contains(t, response.Permissions, services.PermWildcardsCreate)
	assert.NotContains(t, response.Permissions, services.PermWildcardsResolve)
}

func TestMe_Teacher(t *testing.T) {
	f := newAPIFixture(t)

	response := decode[MeResponse](t, f.do(t, f.teacher, stdhttp.MethodGet, "/me", nil))
	assert.Equal(t, "teacher", response.Role)
	assert.Nil(t, response.TeamID)
	assert.Contains(t, response.Permissions, services.PermWildcardsListUnresolved)
}

func TestMePermissions(t *testing.T) {
	f := newAPIFixture(t)

	recorder := f.do(t, f.teacher, stdhttp.MethodGet, "/me/permissions", nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	response := decode[PermissionsResponse](t, recorder)
	require.NotEmpty(t, response.Permissions)
	assert.Contains(t, response.Permissions, services.PermWildcardsResolve)

	sorted := append([]string(nil), response.Permissions...)
	sort.Strings(sorted)
	assert.Equal(t, sorted, response.Permissions)
}

func TestMePermissions_LoneStudent(t *testing.T) {
	f := newAPIFixture(t)

	response := decode[PermissionsResponse](t, f.do(t, f.loneStudent, stdhttp.MethodGet, "/me/permissions", nil))
	assert.Equal(t, []string{services.PermNotificationsSubscribe}, response.Permissions)
}

func TestMePermissions_Unauthorized(t *testing.T) {
	f := newAPIFixture(t)

	recorder := doRequest(t, f.router, "", stdhttp.MethodGet, "/me/permissions", nil)
	require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}
