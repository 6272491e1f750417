package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		raw  string
		want UserRole
	}{
		{"ADMIN", RoleAdmin},
		{"admin", RoleAdmin},
		{" Admin ", RoleAdmin},
		{"ADMINISTRADOR", RoleAdmin},
		{"administrador", RoleAdmin},
		{"docente", RoleDocente},
		{"PROFESOR", RoleDocente},
		{"alumno", RoleEstudiante},
		{"ESTUDIANTE", RoleEstudiante},
		{"coordinador", RoleCoordinador},
		{"autoridad", RoleAutoridad},
		{"invitado", UserRole("INVITADO")},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeRole(tc.raw), "raw=%q", tc.raw)
	}
}

func TestUserHasRoleIsCaseInsensitive(t *testing.T) {
	user := &User{Role: "docente"}
	assert.True(t, user.HasRole("DOCENTE"))
	assert.True(t, user.HasRole("docente"))
	assert.True(t, user.HasRole("Profesor"))
	assert.False(t, user.HasRole("ADMIN"))
}

func TestUserHasAnyRole(t *testing.T) {
	user := &User{Role: RoleCoordinador}
	assert.True(t, user.HasAnyRole("ADMIN", "COORDINADOR"))
	assert.False(t, user.HasAnyRole("DOCENTE", "ESTUDIANTE"))
}

func TestUserPermissions(t *testing.T) {
	user := &User{Permissions: []Permission{
		{Name: "ver_pagos", Module: "pagos", Action: "ver"},
		{Name: "editar_estudiantes", Module: "estudiantes", Action: "editar"},
	}}

	assert.True(t, user.HasPermission("ver_pagos"))
	assert.False(t, user.HasPermission("eliminar_pagos"))
	assert.True(t, user.HasPermissionByModuleAction("estudiantes", "editar"))
	assert.False(t, user.HasPermissionByModuleAction("estudiantes", "eliminar"))
	assert.True(t, user.HasAnyPermission("nada", "ver_pagos"))
	assert.False(t, user.HasAnyPermission("nada", "tampoco"))
}

func TestNilUserIsSafe(t *testing.T) {
	var user *User
	assert.False(t, user.HasRole("ADMIN"))
	assert.False(t, user.HasPermission("ver_pagos"))
	assert.False(t, user.IsAdmin())
	user.Normalize()
}

func TestNormalizeRewritesRole(t *testing.T) {
	user := &User{Role: "profesor"}
	user.Normalize()
	assert.Equal(t, RoleDocente, user.Role)
	assert.True(t, user.IsDocente())
}
