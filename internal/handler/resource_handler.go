package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/icap-edu/icap-portal-gateway/internal/middleware"
	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/query"
	"github.com/icap-edu/icap-portal-gateway/internal/reqcache"
	"github.com/icap-edu/icap-portal-gateway/internal/resource"
	"github.com/icap-edu/icap-portal-gateway/internal/service"
	"github.com/icap-edu/icap-portal-gateway/internal/session"
	"github.com/icap-edu/icap-portal-gateway/internal/upstream"
	"github.com/icap-edu/icap-portal-gateway/pkg/export"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
	"github.com/icap-edu/icap-portal-gateway/pkg/response"
)

// ResourceHandler serves every administration screen through one generic
// CRUD surface keyed by the resource slug. Each session keeps its own list
// and submit state per screen, the way the browser screens it replaces did.
type ResourceHandler struct {
	registry  *resource.Registry
	service   *resource.Service
	cache     *reqcache.Cache
	metrics   *service.MetricsService
	manager   *session.Manager
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	maxExport int
	logger    *zap.Logger

	mu      sync.Mutex
	lists   map[string]*query.PaginatedQuery
	submits map[string]*query.Request
}

// NewResourceHandler creates a new handler for the resource catalogue.
func NewResourceHandler(registry *resource.Registry, svc *resource.Service, cache *reqcache.Cache, metrics *service.MetricsService, manager *session.Manager, maxExport int, logger *zap.Logger) *ResourceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceHandler{
		registry:  registry,
		service:   svc,
		cache:     cache,
		metrics:   metrics,
		manager:   manager,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		maxExport: maxExport,
		logger:    logger,
		lists:     make(map[string]*query.PaginatedQuery),
		submits:   make(map[string]*query.Request),
	}
}

// fail writes the error envelope. When the unauthorized hook purged the
// session during the upstream call, the cookie is expired in the same
// response so the browser drops the dead session.
func (h *ResourceHandler) fail(c *gin.Context, sess *models.Session, err error) {
	if h.manager != nil && sess != nil && !sess.IsAuthenticated() {
		middleware.ExpireSessionCookie(c, h.manager)
	}
	response.Error(c, err)
}

// Forget drops the interaction state held for a session. Wired into the
// logout flush so no list data survives an identity change.
func (h *ResourceHandler) Forget(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	prefix := sessionID + ":"
	for key := range h.lists {
		if strings.HasPrefix(key, prefix) {
			delete(h.lists, key)
		}
	}
	for key := range h.submits {
		if strings.HasPrefix(key, prefix) {
			delete(h.submits, key)
		}
	}
}

// listQuery returns the session's paginated state for one screen, creating
// it on first use. The fetcher reads the bearer token from the request
// context so a refreshed token is picked up transparently.
func (h *ResourceHandler) listQuery(sessionID string, def resource.Definition) *query.PaginatedQuery {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := sessionID + ":" + def.Name
	if q, ok := h.lists[key]; ok {
		return q
	}
	q := query.NewPaginatedQuery(func(ctx context.Context, params models.ListParams) (json.RawMessage, models.Pagination, error) {
		token := ""
		if sess, ok := session.FromContext(ctx); ok {
			token = sess.Token
		}
		started := time.Now()
		items, pagination, err := h.service.List(ctx, token, def, params)
		h.metrics.ObserveUpstreamCall(def.Path, time.Since(started))
		return items, pagination, err
	})
	h.lists[key] = q
	return q
}

// submitRequest returns the session's one-at-a-time submit pipeline for a
// screen. A second submission while one is in flight is rejected, which is
// the double-click guard the create/edit dialogs rely on.
func (h *ResourceHandler) submitRequest(sessionID string, def resource.Definition) *query.Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := sessionID + ":" + def.Name
	if r, ok := h.submits[key]; ok {
		return r
	}
	r := query.NewRequest(func(ctx context.Context, body interface{}, params url.Values) (json.RawMessage, error) {
		token := ""
		if sess, ok := session.FromContext(ctx); ok {
			token = sess.Token
		}
		values, _ := body.(map[string]interface{})
		if id := params.Get("id"); id != "" {
			return h.service.Update(ctx, token, def, id, values)
		}
		return h.service.Create(ctx, token, def, values)
	})
	h.submits[key] = r
	return r
}

func (h *ResourceHandler) definition(c *gin.Context) (resource.Definition, *models.Session, bool) {
	sess := sessionFromContext(c)
	if sess == nil || !sess.IsAuthenticated() {
		response.Error(c, appErrors.ErrUnauthorized)
		return resource.Definition{}, nil, false
	}
	def, ok := h.registry.Lookup(c.Param("resource"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "recurso no encontrado"))
		return resource.Definition{}, nil, false
	}
	return def, sess, true
}

// Catalogue godoc
// @Summary List administrable resources
// @Description Returns the registry of resource screens with their columns
// @Tags Resources
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/resources [get]
func (h *ResourceHandler) Catalogue(c *gin.Context) {
	names := h.registry.Names()
	defs := make([]resource.Definition, 0, len(names))
	for _, name := range names {
		if def, ok := h.registry.Lookup(name); ok {
			defs = append(defs, def)
		}
	}
	response.JSON(c, http.StatusOK, gin.H{"resources": defs}, nil)
}

// List godoc
// @Summary List one page of a resource
// @Description Serves the screen's paginated listing with search, sorting and filters. A changed search term restarts at page 1; pages already fetched in this session are served from the request cache
// @Tags Resources
// @Produce json
// @Param resource path string true "Resource slug"
// @Param page query int false "Page number"
// @Param per_page query int false "Rows per page"
// @Param search query string false "Free-text search"
// @Success 200 {object} response.Envelope
// @Router /admin/resources/{resource} [get]
func (h *ResourceHandler) List(c *gin.Context) {
	def, sess, ok := h.definition(c)
	if !ok {
		return
	}

	q := h.listQuery(sess.ID, def)
	params := mergeListParams(c, def, q.Params())

	cacheKey := "list:" + def.Name + ":" + upstream.ListValues(params).Encode()
	if h.cache != nil {
		if raw, err := h.cache.Get(c.Request.Context(), sess.ID, cacheKey); err == nil {
			// The screen state still advances to what was served, or the
			// next relative navigation merges against stale parameters.
			q.Commit(params)
			h.metrics.RecordCacheOperation(true)
			c.Header("Cache-Control", "no-store")
			c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
			return
		}
		h.metrics.RecordCacheOperation(false)
	}

	if err := q.Apply(c.Request.Context(), params); err != nil {
		h.fail(c, sess, err)
		return
	}

	pagination := q.Pagination()
	envelope := response.Envelope{Success: true, Data: q.Items(), Pagination: &pagination}
	if h.cache != nil {
		if payload, merr := json.Marshal(envelope); merr == nil {
			if cerr := h.cache.Set(c.Request.Context(), sess.ID, cacheKey, payload); cerr != nil {
				h.logger.Debug("request cache write failed", zap.Error(cerr))
			}
		}
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, envelope)
}

// Get godoc
// @Summary Fetch one record
// @Tags Resources
// @Produce json
// @Param resource path string true "Resource slug"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/resources/{resource}/{id} [get]
func (h *ResourceHandler) Get(c *gin.Context) {
	def, sess, ok := h.definition(c)
	if !ok {
		return
	}
	data, err := h.service.Get(c.Request.Context(), sess.Token, def, c.Param("id"))
	if err != nil {
		h.fail(c, sess, err)
		return
	}
	response.JSON(c, http.StatusOK, json.RawMessage(data), nil)
}

// Create godoc
// @Summary Create a record
// @Description Validates values against the screen's field validators before forwarding upstream. A submission racing another on the same screen is rejected
// @Tags Resources
// @Accept json
// @Produce json
// @Param resource path string true "Resource slug"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/resources/{resource} [post]
func (h *ResourceHandler) Create(c *gin.Context) {
	def, sess, ok := h.definition(c)
	if !ok {
		return
	}
	values, ok := bindValues(c)
	if !ok {
		return
	}
	data, err := h.submitRequest(sess.ID, def).Execute(c.Request.Context(), values, nil)
	if err != nil {
		h.fail(c, sess, err)
		return
	}
	h.invalidate(c, sess, def)
	response.Created(c, json.RawMessage(data))
}

// Update godoc
// @Summary Update a record
// @Tags Resources
// @Accept json
// @Produce json
// @Param resource path string true "Resource slug"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/resources/{resource}/{id} [put]
func (h *ResourceHandler) Update(c *gin.Context) {
	def, sess, ok := h.definition(c)
	if !ok {
		return
	}
	values, ok := bindValues(c)
	if !ok {
		return
	}
	params := url.Values{}
	params.Set("id", c.Param("id"))
	data, err := h.submitRequest(sess.ID, def).Execute(c.Request.Context(), values, params)
	if err != nil {
		h.fail(c, sess, err)
		return
	}
	h.invalidate(c, sess, def)
	response.JSON(c, http.StatusOK, json.RawMessage(data), nil)
}

// Delete godoc
// @Summary Delete a record
// @Description Requires confirm=true; without it the request is rejected so nothing is removed by accident
// @Tags Resources
// @Produce json
// @Param resource path string true "Resource slug"
// @Param id path string true "Record ID"
// @Param confirm query bool true "Deletion confirmation"
// @Success 204 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/resources/{resource}/{id} [delete]
func (h *ResourceHandler) Delete(c *gin.Context) {
	def, sess, ok := h.definition(c)
	if !ok {
		return
	}
	if c.Query("confirm") != "true" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "la eliminación requiere confirmación"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), sess.Token, def, c.Param("id")); err != nil {
		h.fail(c, sess, err)
		return
	}
	h.invalidate(c, sess, def)
	response.NoContent(c)
}

// Export godoc
// @Summary Export a resource listing
// @Description Streams the resource as CSV or PDF honoring the current search and filters
// @Tags Resources
// @Produce octet-stream
// @Param resource path string true "Resource slug"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /admin/resources/{resource}/export [get]
func (h *ResourceHandler) Export(c *gin.Context) {
	def, sess, ok := h.definition(c)
	if !ok {
		return
	}
	params := mergeListParams(c, def, models.DefaultListParams())

	dataset, err := h.service.ExportDataset(c.Request.Context(), sess.Token, def, params, h.maxExport)
	if err != nil {
		h.fail(c, sess, err)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	stamp := time.Now().Format("20060102")
	switch format {
	case "csv":
		payload, rerr := h.csv.Render(dataset)
		if rerr != nil {
			response.Error(c, appErrors.Wrap(rerr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no se pudo generar la exportación"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.csv", def.Name, stamp))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", payload)
	case "pdf":
		payload, rerr := h.pdf.Render(dataset, def.Label)
		if rerr != nil {
			response.Error(c, appErrors.Wrap(rerr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no se pudo generar la exportación"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.pdf", def.Name, stamp))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "formato de exportación no soportado"))
	}
}

// invalidate drops the session's cached list pages after a write so the next
// listing reflects it.
func (h *ResourceHandler) invalidate(c *gin.Context, sess *models.Session, def resource.Definition) {
	if h.cache == nil {
		return
	}
	if err := h.cache.FlushSession(c.Request.Context(), sess.ID); err != nil {
		h.logger.Debug("request cache flush failed", zap.Error(err), zap.String("resource", def.Name))
	}
}

func bindValues(c *gin.Context) (map[string]interface{}, bool) {
	var values map[string]interface{}
	if err := c.ShouldBindJSON(&values); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cuerpo de la petición inválido"))
		return nil, false
	}
	return values, true
}

// mergeListParams overlays the query string onto the screen's current list
// state: only keys present in the request change anything, so paging keeps
// the active search and filters without the client restating them.
func mergeListParams(c *gin.Context, def resource.Definition, base models.ListParams) models.ListParams {
	params := base
	if raw, present := c.GetQuery("page"); present {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			params.Page = page
		}
	}
	if raw, present := c.GetQuery("per_page"); present {
		if perPage, err := strconv.Atoi(raw); err == nil && perPage > 0 && perPage <= 100 {
			params.PerPage = perPage
		}
	}
	if raw, present := c.GetQuery("search"); present {
		params.Search = strings.TrimSpace(raw)
		if params.Search != base.Search {
			params.Page = 1
		}
	}
	if raw, present := c.GetQuery("sort_by"); present {
		params.SortBy = raw
		if dir := models.SortDirection(c.Query("sort_dir")); dir == models.SortDesc {
			params.SortDir = dir
		} else {
			params.SortDir = models.SortAsc
		}
	}
	if def.ParentFilter != "" {
		if value, present := c.GetQuery(def.ParentFilter); present {
			filters := make(map[string]string, len(base.Filters)+1)
			for k, v := range base.Filters {
				filters[k] = v
			}
			if value == "" {
				delete(filters, def.ParentFilter)
			} else {
				filters[def.ParentFilter] = value
				params.Page = 1
			}
			params.Filters = filters
		}
	}
	return params
}
