package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortalLoginRoutes(t *testing.T) {
	assert.Equal(t, "/login", PortalAdmin.LoginRoute())
	assert.Equal(t, "/docente/login", PortalDocente.LoginRoute())
	assert.Equal(t, "/estudiante/login", PortalEstudiante.LoginRoute())

	assert.Equal(t, "/auth/login", PortalAdmin.LoginPath())
	assert.Equal(t, "/auth/docente/login", PortalDocente.LoginPath())
	assert.Equal(t, "/auth/estudiante/login", PortalEstudiante.LoginPath())
}

func TestPortalForRole(t *testing.T) {
	assert.Equal(t, PortalAdmin, PortalForRole(RoleAdmin))
	assert.Equal(t, PortalAdmin, PortalForRole(RoleCoordinador))
	assert.Equal(t, PortalAdmin, PortalForRole(RoleAutoridad))
	assert.Equal(t, PortalDocente, PortalForRole("profesor"))
	assert.Equal(t, PortalEstudiante, PortalForRole("alumno"))
}

func TestDashboardRoute(t *testing.T) {
	assert.Equal(t, "/admin/dashboard", DashboardRoute(RoleAdmin))
	assert.Equal(t, "/admin/dashboard", DashboardRoute("coordinador"))
	assert.Equal(t, "/docente/dashboard", DashboardRoute(RoleDocente))
	assert.Equal(t, "/estudiante/dashboard", DashboardRoute("alumno"))
	assert.Equal(t, "/dashboard", DashboardRoute("AUTORIDAD"))
}
