package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/upstream"
	"github.com/icap-edu/icap-portal-gateway/pkg/config"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
)

type authAPIMock struct {
	loginResp   *upstream.LoginPayload
	loginErr    error
	meResp      *models.User
	meErr       error
	logoutErr   error
	refreshResp *upstream.RefreshPayload
	refreshErr  error
	profileResp *models.User
	profileErr  error

	loginCalls   int
	meCalls      int
	logoutCalls  int
	refreshCalls int
	lastPortal   models.Portal
}

func (m *authAPIMock) Login(ctx context.Context, portal models.Portal, req models.LoginRequest) (*upstream.LoginPayload, error) {
	m.loginCalls++
	m.lastPortal = portal
	return m.loginResp, m.loginErr
}

func (m *authAPIMock) Me(ctx context.Context, token string) (*models.User, error) {
	m.meCalls++
	return m.meResp, m.meErr
}

func (m *authAPIMock) Logout(ctx context.Context, token string) error {
	m.logoutCalls++
	return m.logoutErr
}

func (m *authAPIMock) Refresh(ctx context.Context, token string) (*upstream.RefreshPayload, error) {
	m.refreshCalls++
	return m.refreshResp, m.refreshErr
}

func (m *authAPIMock) UpdateProfile(ctx context.Context, token string, req models.ProfileUpdateRequest) (*models.User, error) {
	return m.profileResp, m.profileErr
}

type flusherMock struct {
	flushed []string
}

func (f *flusherMock) FlushSession(ctx context.Context, sessionID string) error {
	f.flushed = append(f.flushed, sessionID)
	return nil
}

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		CookieName:    "icap_session",
		TTL:           time.Hour,
		RefreshWindow: 5 * time.Minute,
	}
}

func newTestManager(api *authAPIMock, flusher CacheFlusher) (*Manager, Store) {
	store := NewMemoryStore()
	return NewManager(store, api, flusher, nil, nil, testConfig()), store
}

func TestResolveUnknownWithoutCookie(t *testing.T) {
	manager, _ := newTestManager(&authAPIMock{}, nil)

	sess := manager.Resolve(context.Background(), "")
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, models.SessionUnknown, sess.State)
	assert.False(t, sess.IsAuthenticated())
}

func TestVerifyWithoutTokenSettlesUnauthenticated(t *testing.T) {
	api := &authAPIMock{}
	manager, _ := newTestManager(api, nil)

	sess := manager.Resolve(context.Background(), "")
	manager.Verify(context.Background(), sess)

	assert.Equal(t, models.SessionUnauthenticated, sess.State)
	assert.Zero(t, api.meCalls)
}

func TestVerifyReplaysTokenAgainstUpstream(t *testing.T) {
	api := &authAPIMock{meResp: &models.User{ID: "u-1", Role: models.RoleAdmin}}
	manager, store := newTestManager(api, nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Session{ID: "s-1", Token: "tok", State: models.SessionUnknown}))
	sess := manager.Resolve(ctx, "s-1")
	manager.Verify(ctx, sess)

	assert.Equal(t, 1, api.meCalls)
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "u-1", sess.User.ID)
}

func TestVerifyFailurePurgesToken(t *testing.T) {
	api := &authAPIMock{meErr: appErrors.ErrUnauthorized}
	manager, store := newTestManager(api, nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Session{ID: "s-1", Token: "stale", State: models.SessionUnknown}))
	sess := manager.Resolve(ctx, "s-1")
	manager.Verify(ctx, sess)

	assert.Equal(t, models.SessionUnauthenticated, sess.State)
	assert.Empty(t, sess.Token)
	assert.NotEmpty(t, sess.Error)

	// the purge is durable
	reloaded, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, reloaded.Token)
}

func TestVerifyNetworkFailureAlsoPurges(t *testing.T) {
	api := &authAPIMock{meErr: appErrors.ErrUpstreamDown}
	manager, store := newTestManager(api, nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Session{ID: "s-1", Token: "tok", State: models.SessionUnknown}))
	sess := manager.Resolve(ctx, "s-1")
	manager.Verify(ctx, sess)

	assert.Equal(t, models.SessionUnauthenticated, sess.State)
	assert.Empty(t, sess.Token)
}

func TestLoginSuccess(t *testing.T) {
	api := &authAPIMock{loginResp: &upstream.LoginPayload{
		Token: "tok-1",
		User:  &models.User{ID: "u-1", Role: models.RoleDocente},
	}}
	manager, _ := newTestManager(api, nil)
	ctx := context.Background()

	sess := manager.Resolve(ctx, "")
	result := manager.Login(ctx, sess, models.PortalDocente, models.LoginRequest{Email: "d@icap.edu", Password: "secreto"})

	require.True(t, result.Success)
	assert.Equal(t, models.PortalDocente, api.lastPortal)
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "tok-1", sess.Token)
	assert.Empty(t, sess.Error)
}

func TestLoginFailureNeverReturnsError(t *testing.T) {
	api := &authAPIMock{loginErr: appErrors.ErrInvalidCredentials}
	manager, _ := newTestManager(api, nil)
	ctx := context.Background()

	sess := manager.Resolve(ctx, "")
	result := manager.Login(ctx, sess, models.PortalAdmin, models.LoginRequest{Email: "a@icap.edu", Password: "mala"})

	assert.False(t, result.Success)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Message, result.Message)
	assert.False(t, sess.IsAuthenticated())
	assert.Equal(t, result.Message, sess.Error)
}

func TestLoginValidatesBeforeUpstream(t *testing.T) {
	api := &authAPIMock{}
	manager, _ := newTestManager(api, nil)

	sess := manager.Resolve(context.Background(), "")
	result := manager.Login(context.Background(), sess, models.PortalAdmin, models.LoginRequest{Email: "no-es-correo"})

	assert.False(t, result.Success)
	assert.Zero(t, api.loginCalls)
}

func TestLogoutIsIdempotentAndBestEffort(t *testing.T) {
	api := &authAPIMock{logoutErr: appErrors.ErrUpstreamDown}
	flusher := &flusherMock{}
	manager, store := newTestManager(api, flusher)
	ctx := context.Background()

	sess := &models.Session{ID: "s-1", Token: "tok", User: &models.User{ID: "u-1"}, State: models.SessionAuthenticated}
	require.NoError(t, store.Save(ctx, sess))

	manager.Logout(ctx, sess)
	assert.Equal(t, 1, api.logoutCalls)
	assert.Equal(t, []string{"s-1"}, flusher.flushed)
	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, sess.Token)

	_, err := store.Load(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNoSession)

	// second logout is a no-op upstream-wise: the token is already gone
	manager.Logout(ctx, sess)
	assert.Equal(t, 1, api.logoutCalls)
}

func TestRefreshFailureConvergesOnLogout(t *testing.T) {
	api := &authAPIMock{refreshErr: appErrors.ErrUnauthorized}
	manager, _ := newTestManager(api, nil)
	ctx := context.Background()

	sess := &models.Session{ID: "s-1", Token: "tok", User: &models.User{ID: "u-1"}, State: models.SessionAuthenticated}
	manager.RefreshToken(ctx, sess)

	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, sess.Token)
}

func TestRefreshSwapsToken(t *testing.T) {
	api := &authAPIMock{refreshResp: &upstream.RefreshPayload{Token: "tok-2"}}
	manager, _ := newTestManager(api, nil)
	ctx := context.Background()

	sess := &models.Session{ID: "s-1", Token: "tok-1", User: &models.User{ID: "u-1"}, State: models.SessionAuthenticated}
	manager.RefreshToken(ctx, sess)

	assert.Equal(t, "tok-2", sess.Token)
	assert.True(t, sess.IsAuthenticated())
}

func TestUpdateProfileKeepsToken(t *testing.T) {
	api := &authAPIMock{profileResp: &models.User{ID: "u-1", Name: "Nuevo Nombre", Role: models.RoleAdmin}}
	manager, _ := newTestManager(api, nil)
	ctx := context.Background()

	sess := &models.Session{ID: "s-1", Token: "tok", User: &models.User{ID: "u-1", Name: "Viejo"}, State: models.SessionAuthenticated}
	result := manager.UpdateProfile(ctx, sess, models.ProfileUpdateRequest{Name: "Nuevo Nombre", Email: "u@icap.edu"})

	require.True(t, result.Success)
	assert.Equal(t, "Nuevo Nombre", sess.User.Name)
	assert.Equal(t, "tok", sess.Token)
}

func TestUpdateProfileFailureKeepsUser(t *testing.T) {
	api := &authAPIMock{profileErr: appErrors.ErrValidation}
	manager, _ := newTestManager(api, nil)
	ctx := context.Background()

	sess := &models.Session{ID: "s-1", Token: "tok", User: &models.User{ID: "u-1", Name: "Viejo"}, State: models.SessionAuthenticated}
	result := manager.UpdateProfile(ctx, sess, models.ProfileUpdateRequest{Name: "Nuevo", Email: "u@icap.edu"})

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)
	assert.Equal(t, "Viejo", sess.User.Name)
}

func TestClearError(t *testing.T) {
	manager, _ := newTestManager(&authAPIMock{}, nil)
	ctx := context.Background()

	sess := &models.Session{ID: "s-1", State: models.SessionUnauthenticated, Error: "credenciales inválidas"}
	manager.ClearError(ctx, sess)
	assert.Empty(t, sess.Error)
}
