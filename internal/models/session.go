package models

// SessionState tracks where a session sits in its lifecycle. Unknown only
// exists between loading a session record and the verification call settling.
type SessionState string

const (
	SessionUnknown         SessionState = "unknown"
	SessionAuthenticated   SessionState = "authenticated"
	SessionUnauthenticated SessionState = "unauthenticated"
)

// Session is the durable per-browser session record. The token is the only
// piece that must survive a gateway restart; the user is re-derived by
// replaying verification against the upstream current-user endpoint.
type Session struct {
	ID    string       `json:"id"`
	Token string       `json:"token,omitempty"`
	User  *User        `json:"user,omitempty"`
	State SessionState `json:"state"`
	Error string       `json:"error,omitempty"`
}

// IsAuthenticated is true iff both token and user are present and the last
// verification succeeded.
func (s *Session) IsAuthenticated() bool {
	if s == nil {
		return false
	}
	return s.State == SessionAuthenticated && s.Token != "" && s.User != nil
}
