package upstream

import (
	"context"
	"net/url"
	"strconv"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
)

// LoginPayload is the data block of a successful upstream login.
type LoginPayload struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RefreshPayload is the data block of a token refresh.
type RefreshPayload struct {
	Token string `json:"token"`
}

// Login authenticates against the portal's upstream endpoint. The 401 hook
// is skipped: a rejected credential is not an expired session.
func (c *Client) Login(ctx context.Context, portal models.Portal, req models.LoginRequest) (*LoginPayload, error) {
	envelope, err := c.Post(ctx, portal.LoginPath(), "", req, SkipUnauthorizedHook())
	if err != nil {
		return nil, err
	}
	payload := &LoginPayload{}
	if err := DecodeData(envelope, payload); err != nil {
		return nil, err
	}
	payload.User.Normalize()
	return payload, nil
}

// Me fetches the current user for a token. Used for silent verification; the
// 401 hook is skipped because the caller handles the failure itself.
func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	envelope, err := c.Get(ctx, "/auth/me", token, nil, SkipUnauthorizedHook())
	if err != nil {
		return nil, err
	}
	payload := struct {
		User *models.User `json:"user"`
	}{}
	if err := DecodeData(envelope, &payload); err != nil {
		return nil, err
	}
	payload.User.Normalize()
	return payload.User, nil
}

// Logout revokes the token upstream. Best effort; callers swallow the error.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.Post(ctx, "/auth/logout", token, nil, SkipUnauthorizedHook())
	return err
}

// Refresh exchanges the current token for a fresh one.
func (c *Client) Refresh(ctx context.Context, token string) (*RefreshPayload, error) {
	envelope, err := c.Post(ctx, "/auth/refresh", token, nil, SkipUnauthorizedHook())
	if err != nil {
		return nil, err
	}
	payload := &RefreshPayload{}
	if err := DecodeData(envelope, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// UpdateProfile replaces the profile and returns the updated user wholesale.
func (c *Client) UpdateProfile(ctx context.Context, token string, req models.ProfileUpdateRequest) (*models.User, error) {
	envelope, err := c.Put(ctx, "/auth/profile", token, req)
	if err != nil {
		return nil, err
	}
	payload := struct {
		User *models.User `json:"user"`
	}{}
	if err := DecodeData(envelope, &payload); err != nil {
		return nil, err
	}
	payload.User.Normalize()
	return payload.User, nil
}

// ListValues turns ListParams into the upstream's query string convention.
func ListValues(params models.ListParams) url.Values {
	values := url.Values{}
	page := params.Page
	if page < 1 {
		page = 1
	}
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	values.Set("page", strconv.Itoa(page))
	values.Set("per_page", strconv.Itoa(perPage))
	if params.Search != "" {
		values.Set("search", params.Search)
	}
	if params.SortBy != "" {
		values.Set("sort_by", params.SortBy)
		dir := params.SortDir
		if dir == "" {
			dir = models.SortAsc
		}
		values.Set("sort_dir", string(dir))
	}
	for key, value := range params.Filters {
		if value != "" {
			values.Set(key, value)
		}
	}
	return values
}

// SearchModule queries one module's search endpoint.
func (c *Client) SearchModule(ctx context.Context, token, module, query string, limit int) ([]models.SearchHit, error) {
	values := url.Values{}
	values.Set("q", query)
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	envelope, err := c.Get(ctx, "/"+module+"/search", token, values)
	if err != nil {
		return nil, err
	}
	var hits []models.SearchHit
	if err := DecodeData(envelope, &hits); err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].Module = module
	}
	return hits, nil
}
