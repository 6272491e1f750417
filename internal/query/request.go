// Package query holds the generic data-access components every resource
// screen is built from: a single-request state holder and a paginated list
// query on top of it.
package query

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
)

// Fetcher performs the underlying upstream call for a Request.
type Fetcher func(ctx context.Context, body interface{}, params url.Values) (json.RawMessage, error)

// ErrBusy is returned when Execute is called while a request is in flight.
var ErrBusy = appErrors.New("REQUEST_IN_FLIGHT", 409, "ya hay una petición en curso")

// State is a snapshot of a Request. Exactly one of Data/Error is populated
// once a request completes.
type State struct {
	Data    json.RawMessage
	Loading bool
	Error   string
	Success bool
}

// Request drives a single upstream call at a time. Executing transitions
// Loading immediately and clears any previous error in the same step.
type Request struct {
	mu       sync.Mutex
	fetch    Fetcher
	inFlight bool

	data    json.RawMessage
	err     string
	success bool
}

// NewRequest builds a Request around a fetcher.
func NewRequest(fetch Fetcher) *Request {
	return &Request{fetch: fetch}
}

// Execute runs the fetcher. A second concurrent call is rejected with
// ErrBusy rather than queued; duplicate submission is the caller's bug.
func (r *Request) Execute(ctx context.Context, body interface{}, params url.Values) (json.RawMessage, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil, ErrBusy
	}
	r.inFlight = true
	r.err = ""
	r.success = false
	r.mu.Unlock()

	data, err := r.fetch(ctx, body, params)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	if err != nil {
		r.data = nil
		r.err = appErrors.FromError(err).Message
		return nil, err
	}
	r.data = data
	r.success = true
	return data, nil
}

// Reset restores the initial empty state.
func (r *Request) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight {
		return
	}
	r.data = nil
	r.err = ""
	r.success = false
}

// State returns a consistent snapshot.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{Data: r.data, Loading: r.inFlight, Error: r.err, Success: r.success}
}
