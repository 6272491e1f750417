package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/pkg/config"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
)

// Envelope is the upstream response contract. Data stays raw so callers can
// decode it into their own shapes, including the page-nested list form.
type Envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// UnauthorizedHook runs whenever an authenticated call comes back 401.
type UnauthorizedHook func(ctx context.Context)

// Client talks to the ICAP REST backend. Every outgoing request carries the
// caller's bearer token when one is supplied, and every failure is normalised
// into a typed error; raw transport errors never escape.
type Client struct {
	baseURL        string
	http           *http.Client
	logger         *zap.Logger
	debug          bool
	onUnauthorized UnauthorizedHook
}

// New builds a Client from upstream configuration.
func New(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		debug:   cfg.Debug,
	}
}

// OnUnauthorized registers the global 401 hook. Only one hook is held; the
// session layer owns it.
func (c *Client) OnUnauthorized(hook UnauthorizedHook) {
	c.onUnauthorized = hook
}

type callOptions struct {
	// skipUnauthorizedHook suppresses the global 401 hook; login calls set
	// it because a failed login is not an expired session.
	skipUnauthorizedHook bool
}

// CallOption customises a single request.
type CallOption func(*callOptions)

// SkipUnauthorizedHook marks the call as exempt from the global 401 purge.
func SkipUnauthorizedHook() CallOption {
	return func(o *callOptions) { o.skipUnauthorizedHook = true }
}

// Do performs a request and decodes the response envelope. A non-success
// envelope or non-2xx status is returned as a typed error carrying the
// backend-provided message when there is one.
func (c *Client) Do(ctx context.Context, method, path, token string, body interface{}, params url.Values, opts ...CallOption) (*Envelope, error) {
	options := callOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(method, path, err)
	}
	defer res.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamDown.Code, appErrors.ErrUpstreamDown.Status, appErrors.ErrUpstreamDown.Message)
	}

	if c.debug {
		c.logger.Debug("upstream_call",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.Duration("latency", time.Since(start)),
			zap.ByteString("body", raw),
		)
	}

	envelope := &Envelope{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, envelope); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstreamDown.Code, appErrors.ErrUpstreamDown.Status, "respuesta inesperada del servidor")
		}
	}

	if res.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil && !options.skipUnauthorizedHook {
			c.onUnauthorized(ctx)
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, envelope.Message)
	}

	if res.StatusCode >= 400 || !envelope.Success {
		return nil, c.statusError(res.StatusCode, envelope)
	}

	return envelope, nil
}

// Get, Post, Put and Delete are thin verb helpers over Do.

func (c *Client) Get(ctx context.Context, path, token string, params url.Values, opts ...CallOption) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, token, nil, params, opts...)
}

func (c *Client) Post(ctx context.Context, path, token string, body interface{}, opts ...CallOption) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, token, body, nil, opts...)
}

func (c *Client) Put(ctx context.Context, path, token string, body interface{}, opts ...CallOption) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, token, body, nil, opts...)
}

func (c *Client) Delete(ctx context.Context, path, token string, opts ...CallOption) (*Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, token, nil, nil, opts...)
}

func (c *Client) statusError(status int, envelope *Envelope) error {
	message := envelope.Message

	switch {
	case status == http.StatusUnprocessableEntity:
		if message == "" {
			message = appErrors.ErrValidation.Message
		}
		return appErrors.Validation(message, envelope.Errors)
	case status == http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, message)
	case status == http.StatusForbidden:
		return appErrors.Clone(appErrors.ErrForbidden, message)
	case status == http.StatusConflict:
		return appErrors.Clone(appErrors.ErrConflict, message)
	case status >= 500:
		if message == "" {
			message = "error interno del servidor"
		}
		return appErrors.New(appErrors.ErrInternal.Code, status, message)
	default:
		if message == "" {
			message = fmt.Sprintf("la operación falló (HTTP %d)", status)
		}
		return appErrors.New("UPSTREAM_ERROR", status, message)
	}
}

// classifyTransportError distinguishes timeouts from connection failures so
// the user-facing notification can say which happened.
func (c *Client) classifyTransportError(method, path string, err error) error {
	c.logger.Warn("upstream_transport_error",
		zap.String("method", method),
		zap.String("path", path),
		zap.Error(err),
	)

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return appErrors.Wrap(err, appErrors.ErrUpstreamTimeout.Code, appErrors.ErrUpstreamTimeout.Status, appErrors.ErrUpstreamTimeout.Message)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return appErrors.Wrap(err, appErrors.ErrUpstreamDown.Code, appErrors.ErrUpstreamDown.Status, appErrors.ErrUpstreamDown.Message)
	}
	if errors.Is(err, context.Canceled) {
		return appErrors.Wrap(err, "CANCELED", appErrors.ErrUpstreamDown.Status, "la petición fue cancelada")
	}
	return appErrors.Wrap(err, appErrors.ErrUpstreamDown.Code, appErrors.ErrUpstreamDown.Status, appErrors.ErrUpstreamDown.Message)
}

// DecodeData unmarshals the envelope payload into dest.
func DecodeData(envelope *Envelope, dest interface{}) error {
	if envelope == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "respuesta inesperada del servidor")
	}
	return nil
}

// ListPayload is the page-nested shape the upstream uses for lists: the row
// slice sits one level down under a data key next to the page counters.
type ListPayload struct {
	Data        json.RawMessage `json:"data"`
	CurrentPage int             `json:"current_page"`
	LastPage    int             `json:"last_page"`
	PerPage     int             `json:"per_page"`
	Total       int             `json:"total"`
	From        int             `json:"from"`
	To          int             `json:"to"`
}

// DecodeList unpacks a list envelope, tolerating both the page-nested form
// and a bare array. The returned pagination falls back to safe defaults.
func DecodeList(envelope *Envelope) (json.RawMessage, models.Pagination, error) {
	pagination := models.DefaultPagination()
	if envelope == nil || len(envelope.Data) == 0 {
		return nil, pagination, nil
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return envelope.Data, pagination, nil
	}

	payload := ListPayload{}
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return nil, pagination, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "respuesta inesperada del servidor")
	}

	if payload.CurrentPage > 0 {
		pagination.CurrentPage = payload.CurrentPage
	}
	if payload.LastPage > 0 {
		pagination.LastPage = payload.LastPage
	}
	if payload.PerPage > 0 {
		pagination.PerPage = payload.PerPage
	}
	pagination.Total = payload.Total
	pagination.From = payload.From
	pagination.To = payload.To

	return payload.Data, pagination, nil
}
