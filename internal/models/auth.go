package models

// Portal identifies one of the three login entry points. Each posts to a
// role-specific upstream authentication endpoint.
type Portal string

const (
	PortalAdmin      Portal = "admin"
	PortalDocente    Portal = "docente"
	PortalEstudiante Portal = "estudiante"
)

// LoginPath returns the upstream authentication endpoint for the portal.
func (p Portal) LoginPath() string {
	switch p {
	case PortalDocente:
		return "/auth/docente/login"
	case PortalEstudiante:
		return "/auth/estudiante/login"
	default:
		return "/auth/login"
	}
}

// LoginRoute returns the gateway login route for the portal.
func (p Portal) LoginRoute() string {
	switch p {
	case PortalDocente:
		return "/docente/login"
	case PortalEstudiante:
		return "/estudiante/login"
	default:
		return "/login"
	}
}

// PortalForRole maps a canonical role onto the portal it belongs to.
func PortalForRole(role UserRole) Portal {
	switch NormalizeRole(string(role)) {
	case RoleDocente:
		return PortalDocente
	case RoleEstudiante:
		return PortalEstudiante
	default:
		return PortalAdmin
	}
}

// DashboardRoute returns the home route for a user's own role.
func DashboardRoute(role UserRole) string {
	switch NormalizeRole(string(role)) {
	case RoleAdmin, RoleCoordinador:
		return "/admin/dashboard"
	case RoleDocente:
		return "/docente/dashboard"
	case RoleEstudiante:
		return "/estudiante/dashboard"
	default:
		return "/dashboard"
	}
}

// LoginRequest holds credentials forwarded to the upstream API.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is what login callers receive. Login never propagates a raw
// error: failures come back as Success=false plus a message.
type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// ProfileUpdateRequest carries editable profile fields.
type ProfileUpdateRequest struct {
	Name  string `json:"nombre" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"telefono"`
}

// ProfileUpdateResult mirrors LoginResult for profile updates.
type ProfileUpdateResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}
