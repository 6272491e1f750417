package models

// SortDirection for list queries.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListParams captures the paginated-list query state: 1-based page, page
// size, free-text search and optional sorting.
type ListParams struct {
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
	Search  string        `json:"search"`
	SortBy  string        `json:"sort_by"`
	SortDir SortDirection `json:"sort_dir"`
	// Filters carries the optional secondary filter a screen may add, e.g.
	// restricting students to one group.
	Filters map[string]string `json:"filters,omitempty"`
}

// DefaultListParams returns the initial list state: page 1, ten rows, no
// search, no sort.
func DefaultListParams() ListParams {
	return ListParams{Page: 1, PerPage: 10}
}

// Pagination mirrors the upstream page-based server pagination metadata.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// DefaultPagination holds the safe defaults surfaced before the upstream has
// responded.
func DefaultPagination() Pagination {
	return Pagination{CurrentPage: 1, LastPage: 1, PerPage: 10}
}

// SearchHit is one row of a global search result.
type SearchHit struct {
	Module string `json:"module"`
	ID     string `json:"id"`
	Label  string `json:"label"`
	Route  string `json:"route"`
}

// SearchResult groups hits per module for the aggregated response.
type SearchResult struct {
	Module string      `json:"module"`
	Hits   []SearchHit `json:"hits"`
	Error  string      `json:"error,omitempty"`
}
