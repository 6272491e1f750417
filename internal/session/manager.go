package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/upstream"
	"github.com/icap-edu/icap-portal-gateway/pkg/config"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
)

type authAPI interface {
	Login(ctx context.Context, portal models.Portal, req models.LoginRequest) (*upstream.LoginPayload, error)
	Me(ctx context.Context, token string) (*models.User, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (*upstream.RefreshPayload, error)
	UpdateProfile(ctx context.Context, token string, req models.ProfileUpdateRequest) (*models.User, error)
}

// CacheFlusher drops any request-scoped cached data held for a session.
// Logout calls it so nothing cached under the old identity survives.
type CacheFlusher interface {
	FlushSession(ctx context.Context, sessionID string) error
}

// FlusherFunc adapts a function to CacheFlusher.
type FlusherFunc func(ctx context.Context, sessionID string) error

func (f FlusherFunc) FlushSession(ctx context.Context, sessionID string) error {
	return f(ctx, sessionID)
}

// Manager is the single owner of session state. Every transition funnels
// through dispatch; no other component writes a session field.
type Manager struct {
	store     Store
	api       authAPI
	flusher   CacheFlusher
	validator *validator.Validate
	logger    *zap.Logger

	cookieName    string
	cookieSecure  bool
	ttl           time.Duration
	refreshWindow time.Duration

	mu sync.Mutex
}

// NewManager constructs the session manager.
func NewManager(store Store, api authAPI, flusher CacheFlusher, validate *validator.Validate, logger *zap.Logger, cfg config.SessionConfig) *Manager {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:         store,
		api:           api,
		flusher:       flusher,
		validator:     validate,
		logger:        logger,
		cookieName:    cfg.CookieName,
		cookieSecure:  cfg.CookieSecure,
		ttl:           cfg.TTL,
		refreshWindow: cfg.RefreshWindow,
	}
}

// CookieName returns the session cookie identifier.
func (m *Manager) CookieName() string { return m.cookieName }

// CookieSecure reports whether the cookie requires HTTPS.
func (m *Manager) CookieSecure() bool { return m.cookieSecure }

// TTL exposes the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// event is a session state transition. reduce is the only code that mutates
// a session record.
type eventKind int

const (
	eventVerified eventKind = iota
	eventVerifyFailed
	eventLoggedIn
	eventLoginFailed
	eventLoggedOut
	eventTokenRefreshed
	eventProfileUpdated
	eventErrorCleared
)

type event struct {
	kind    eventKind
	token   string
	user    *models.User
	message string
}

func reduce(sess *models.Session, ev event) {
	switch ev.kind {
	case eventVerified:
		sess.User = ev.user
		sess.State = models.SessionAuthenticated
		sess.Error = ""
	case eventVerifyFailed:
		sess.Token = ""
		sess.User = nil
		sess.State = models.SessionUnauthenticated
		sess.Error = ev.message
	case eventLoggedIn:
		sess.Token = ev.token
		sess.User = ev.user
		sess.State = models.SessionAuthenticated
		sess.Error = ""
	case eventLoginFailed:
		sess.Token = ""
		sess.User = nil
		sess.State = models.SessionUnauthenticated
		sess.Error = ev.message
	case eventLoggedOut:
		sess.Token = ""
		sess.User = nil
		sess.State = models.SessionUnauthenticated
		sess.Error = ""
	case eventTokenRefreshed:
		sess.Token = ev.token
	case eventProfileUpdated:
		sess.User = ev.user
	case eventErrorCleared:
		sess.Error = ""
	}
}

// dispatch applies the event and persists the result. Serialized by the
// manager mutex so concurrent requests cannot tear a session record.
func (m *Manager) dispatch(ctx context.Context, sess *models.Session, ev event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reduce(sess, ev)

	var err error
	if ev.kind == eventLoggedOut {
		err = m.store.Delete(ctx, sess.ID)
	} else {
		err = m.store.Save(ctx, sess)
	}
	if err != nil {
		m.logger.Warn("failed to persist session", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

// Resolve loads the session for a browser session ID, creating an empty
// record when none exists. A fresh or token-less record starts Unknown so
// callers always run Verify before judging authentication.
func (m *Manager) Resolve(ctx context.Context, id string) *models.Session {
	if id != "" {
		sess, err := m.store.Load(ctx, id)
		if err == nil {
			return sess
		}
		if !errors.Is(err, ErrNoSession) {
			m.logger.Warn("failed to load session", zap.String("session_id", id), zap.Error(err))
		}
	}
	if id == "" {
		id = NewSessionID()
	}
	return &models.Session{ID: id, State: models.SessionUnknown}
}

// Verify settles an Unknown session: no token means unauthenticated, a token
// is replayed against the upstream current-user endpoint. Any verification
// failure, network included, purges the token. Already-settled sessions only
// trigger a proactive token refresh when expiry is near.
func (m *Manager) Verify(ctx context.Context, sess *models.Session) {
	if sess.State == models.SessionAuthenticated {
		m.maybeRefresh(ctx, sess)
		return
	}
	if sess.State == models.SessionUnauthenticated {
		return
	}

	if sess.Token == "" {
		m.dispatch(ctx, sess, event{kind: eventVerifyFailed})
		return
	}

	user, err := m.api.Me(ctx, sess.Token)
	if err != nil {
		m.logger.Info("session verification failed", zap.String("session_id", sess.ID), zap.Error(err))
		m.dispatch(ctx, sess, event{kind: eventVerifyFailed, message: appErrors.FromError(err).Message})
		return
	}

	m.dispatch(ctx, sess, event{kind: eventVerified, user: user})
	m.maybeRefresh(ctx, sess)
}

// Login authenticates against the portal's upstream endpoint. Failures are
// folded into the result; no error crosses this boundary.
func (m *Manager) Login(ctx context.Context, sess *models.Session, portal models.Portal, req models.LoginRequest) models.LoginResult {
	if err := m.validator.Struct(req); err != nil {
		return models.LoginResult{Success: false, Message: "email y contraseña son obligatorios"}
	}

	payload, err := m.api.Login(ctx, portal, req)
	if err != nil {
		message := appErrors.FromError(err).Message
		if message == "" {
			message = "no se pudo iniciar sesión"
		}
		m.dispatch(ctx, sess, event{kind: eventLoginFailed, message: message})
		return models.LoginResult{Success: false, Message: message}
	}

	m.dispatch(ctx, sess, event{kind: eventLoggedIn, token: payload.Token, user: payload.User})
	m.logger.Info("user logged in",
		zap.String("session_id", sess.ID),
		zap.String("user_id", payload.User.ID),
		zap.String("role", string(payload.User.Role)),
	)
	return models.LoginResult{Success: true, User: payload.User}
}

// Logout tears the session down. The upstream call is best effort: its
// failure never blocks local cleanup. Idempotent by design.
func (m *Manager) Logout(ctx context.Context, sess *models.Session) {
	if sess.Token != "" {
		if err := m.api.Logout(ctx, sess.Token); err != nil {
			m.logger.Warn("upstream logout failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}

	if m.flusher != nil {
		if err := m.flusher.FlushSession(ctx, sess.ID); err != nil {
			m.logger.Warn("failed to flush session cache", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}

	m.dispatch(ctx, sess, event{kind: eventLoggedOut})
	m.logger.Info("user logged out", zap.String("session_id", sess.ID))
}

// RefreshToken exchanges the token; failure converges on a full logout.
func (m *Manager) RefreshToken(ctx context.Context, sess *models.Session) {
	if sess.Token == "" {
		return
	}
	payload, err := m.api.Refresh(ctx, sess.Token)
	if err != nil || payload.Token == "" {
		m.logger.Info("token refresh failed, logging out", zap.String("session_id", sess.ID), zap.Error(err))
		m.Logout(ctx, sess)
		return
	}
	m.dispatch(ctx, sess, event{kind: eventTokenRefreshed, token: payload.Token})
}

// UpdateProfile replaces the in-memory user on success, keeping the token.
func (m *Manager) UpdateProfile(ctx context.Context, sess *models.Session, req models.ProfileUpdateRequest) models.ProfileUpdateResult {
	if err := m.validator.Struct(req); err != nil {
		return models.ProfileUpdateResult{Success: false, Message: "datos de perfil inválidos"}
	}
	if !sess.IsAuthenticated() {
		return models.ProfileUpdateResult{Success: false, Message: appErrors.ErrUnauthorized.Message}
	}

	user, err := m.api.UpdateProfile(ctx, sess.Token, req)
	if err != nil {
		message := appErrors.FromError(err).Message
		if message == "" {
			message = "no se pudo actualizar el perfil"
		}
		return models.ProfileUpdateResult{Success: false, Message: message}
	}

	m.dispatch(ctx, sess, event{kind: eventProfileUpdated, user: user})
	return models.ProfileUpdateResult{Success: true, User: user}
}

// ClearError drops the recorded failure message without other changes.
func (m *Manager) ClearError(ctx context.Context, sess *models.Session) {
	if sess.Error == "" {
		return
	}
	m.dispatch(ctx, sess, event{kind: eventErrorCleared})
}

// HandleUnauthorized is the upstream client's global 401 hook target: purge
// the session so the next guarded request lands on login.
func (m *Manager) HandleUnauthorized(ctx context.Context, sess *models.Session) {
	m.Logout(ctx, sess)
}

func (m *Manager) maybeRefresh(ctx context.Context, sess *models.Session) {
	if m.refreshWindow <= 0 || !sess.IsAuthenticated() {
		return
	}
	if models.TokenExpiresWithin(sess.Token, m.refreshWindow) {
		m.RefreshToken(ctx, sess)
	}
}
