package models

import "strings"

// UserRole is the canonical, uppercase form of a role. The upstream API is
// not consistent about casing across its login endpoints, so every value
// entering the gateway goes through NormalizeRole first.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleCoordinador UserRole = "COORDINADOR"
	RoleDocente     UserRole = "DOCENTE"
	RoleAutoridad   UserRole = "AUTORIDAD"
	RoleEstudiante  UserRole = "ESTUDIANTE"
)

// roleAliases maps upstream spellings to canonical roles.
var roleAliases = map[string]UserRole{
	"ADMINISTRADOR": RoleAdmin,
	"PROFESOR":      RoleDocente,
	"ALUMNO":        RoleEstudiante,
}

// NormalizeRole maps any upstream role spelling onto its canonical form.
func NormalizeRole(raw string) UserRole {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if canonical, ok := roleAliases[upper]; ok {
		return canonical
	}
	return UserRole(upper)
}

// Permission is a fine-grained grant attached to a user. Read-only on the
// gateway side; the upstream API owns their lifecycle.
type Permission struct {
	Name   string `json:"nombre"`
	Module string `json:"modulo"`
	Action string `json:"accion"`
}

// User is the authenticated identity returned by the upstream API.
type User struct {
	ID          string       `json:"id"`
	Name        string       `json:"nombre"`
	Email       string       `json:"email"`
	Role        UserRole     `json:"rol"`
	Permissions []Permission `json:"permisos,omitempty"`
}

// HasRole reports whether the user's role matches, case-insensitively.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	return NormalizeRole(string(u.Role)) == NormalizeRole(role)
}

// HasAnyRole reports whether the user's role is one of the given set.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// HasPermission reports whether any permission carries the given name.
func (u *User) HasPermission(name string) bool {
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// HasPermissionByModuleAction matches a permission on both module and action.
func (u *User) HasPermissionByModuleAction(module, action string) bool {
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p.Module == module && p.Action == action {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether any of the names matches a permission.
func (u *User) HasAnyPermission(names ...string) bool {
	for _, name := range names {
		if u.HasPermission(name) {
			return true
		}
	}
	return false
}

// Convenience predicates for the fixed role set.

func (u *User) IsAdmin() bool       { return u.HasRole(string(RoleAdmin)) }
func (u *User) IsCoordinador() bool { return u.HasRole(string(RoleCoordinador)) }
func (u *User) IsDocente() bool     { return u.HasRole(string(RoleDocente)) }
func (u *User) IsAutoridad() bool   { return u.HasRole(string(RoleAutoridad)) }
func (u *User) IsEstudiante() bool  { return u.HasRole(string(RoleEstudiante)) }

// Normalize forces the role onto its canonical form. Applied wherever a user
// record enters the gateway: login responses and stored-session hydration.
func (u *User) Normalize() {
	if u == nil {
		return
	}
	u.Role = NormalizeRole(string(u.Role))
}
