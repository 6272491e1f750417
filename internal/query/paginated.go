package query

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
)

// ListFetcher pulls one page of a resource with the given parameters.
type ListFetcher func(ctx context.Context, params models.ListParams) (json.RawMessage, models.Pagination, error)

// PaginatedQuery owns the page/size/search/sort state of one list screen.
// Every setter merges its change into the parameters and triggers exactly
// one re-fetch; SetSearch additionally resets the page to 1 in the same
// update, never as a second fetch.
type PaginatedQuery struct {
	mu     sync.Mutex
	fetch  ListFetcher
	params models.ListParams

	items      json.RawMessage
	pagination models.Pagination
	lastError  string
}

// NewPaginatedQuery builds a query with the default list state.
func NewPaginatedQuery(fetch ListFetcher) *PaginatedQuery {
	return &PaginatedQuery{
		fetch:      fetch,
		params:     models.DefaultListParams(),
		pagination: models.DefaultPagination(),
	}
}

func (q *PaginatedQuery) refetch(ctx context.Context) error {
	items, pagination, err := q.fetch(ctx, q.params)
	if err != nil {
		q.lastError = err.Error()
		return err
	}
	q.items = items
	q.pagination = pagination
	q.lastError = ""
	return nil
}

// merge normalizes a whole parameter set against the current state and
// stores it. Caller holds the mutex.
func (q *PaginatedQuery) merge(params models.ListParams) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage <= 0 {
		params.PerPage = 10
	}
	params.Search = strings.TrimSpace(params.Search)
	if params.Search != q.params.Search {
		params.Page = 1
	}
	if params.SortBy != "" && params.SortDir != models.SortDesc {
		params.SortDir = models.SortAsc
	}
	q.params = params
}

// Apply merges a whole parameter set and refetches exactly once. Used when
// the interaction state arrives in one piece, e.g. from a request's query
// string; the invariant is the same as the individual setters': one state
// change, one fetch.
func (q *PaginatedQuery) Apply(ctx context.Context, params models.ListParams) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.merge(params)
	return q.refetch(ctx)
}

// Commit merges a parameter set without fetching. Used when the rows for
// that exact state came from a cache: the screen's state must still advance
// to what was served, or the next relative navigation pages through stale
// parameters.
func (q *PaginatedQuery) Commit(params models.ListParams) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.merge(params)
}

// Fetch loads the current page without changing any parameter.
func (q *PaginatedQuery) Fetch(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.refetch(ctx)
}

// SetSearch updates the search term and resets the page to 1 atomically.
func (q *PaginatedQuery) SetSearch(ctx context.Context, term string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.params.Search = strings.TrimSpace(term)
	q.params.Page = 1
	return q.refetch(ctx)
}

// SetSorting sets the sort column and direction.
func (q *PaginatedQuery) SetSorting(ctx context.Context, column string, dir models.SortDirection) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.params.SortBy = column
	if dir != models.SortDesc {
		dir = models.SortAsc
	}
	q.params.SortDir = dir
	return q.refetch(ctx)
}

// SetPerPage changes the page size.
func (q *PaginatedQuery) SetPerPage(ctx context.Context, perPage int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if perPage <= 0 {
		perPage = 10
	}
	q.params.PerPage = perPage
	return q.refetch(ctx)
}

// SetFilter sets or clears a secondary filter value.
func (q *PaginatedQuery) SetFilter(ctx context.Context, key, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.params.Filters == nil {
		q.params.Filters = make(map[string]string)
	}
	if value == "" {
		delete(q.params.Filters, key)
	} else {
		q.params.Filters[key] = value
	}
	q.params.Page = 1
	return q.refetch(ctx)
}

// GoToPage jumps to an absolute page.
func (q *PaginatedQuery) GoToPage(ctx context.Context, page int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if page < 1 {
		page = 1
	}
	q.params.Page = page
	return q.refetch(ctx)
}

// NextPage advances one page when the server reports more pages. A no-op on
// the last page, without a fetch.
func (q *PaginatedQuery) NextPage(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pagination.CurrentPage >= q.pagination.LastPage {
		return nil
	}
	q.params.Page = q.pagination.CurrentPage + 1
	return q.refetch(ctx)
}

// PrevPage steps one page back, never below page 1.
func (q *PaginatedQuery) PrevPage(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pagination.CurrentPage <= 1 {
		return nil
	}
	q.params.Page = q.pagination.CurrentPage - 1
	return q.refetch(ctx)
}

// Items returns the last fetched rows; nil before the first fetch.
func (q *PaginatedQuery) Items() json.RawMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items
}

// Pagination returns server-reported metadata, defaults before the first
// response.
func (q *PaginatedQuery) Pagination() models.Pagination {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pagination
}

// Params returns a copy of the current list parameters.
func (q *PaginatedQuery) Params() models.ListParams {
	q.mu.Lock()
	defer q.mu.Unlock()
	params := q.params
	if q.params.Filters != nil {
		params.Filters = make(map[string]string, len(q.params.Filters))
		for k, v := range q.params.Filters {
			params.Filters[k] = v
		}
	}
	return params
}

// LastError returns the message of the most recent failed fetch.
func (q *PaginatedQuery) LastError() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastError
}
