package search

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
)

type searcherMock struct {
	mu      sync.Mutex
	calls   []string
	errOn   map[string]error
	block   chan struct{}
	started chan string
}

func (m *searcherMock) SearchModule(ctx context.Context, token, module, query string, limit int) ([]models.SearchHit, error) {
	m.mu.Lock()
	m.calls = append(m.calls, module)
	m.mu.Unlock()

	if m.started != nil {
		m.started <- module
	}
	if m.block != nil {
		<-m.block
	}
	if err, ok := m.errOn[module]; ok {
		return nil, err
	}
	return []models.SearchHit{{Module: module, ID: module + "-1", Label: query}}, nil
}

func (m *searcherMock) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestModulesByRole(t *testing.T) {
	assert.Len(t, Modules(models.RoleAdmin), 7)
	assert.Equal(t, []string{"estudiantes", "grupos"}, Modules(models.RoleDocente))
	assert.Equal(t, []string{"estudiantes", "grupos"}, Modules("profesor"))
	assert.Empty(t, Modules("INVITADO"))
}

func TestSearchQueriesEveryAccessibleModule(t *testing.T) {
	api := &searcherMock{}
	svc := NewService(api, nil, 5)

	results, err := svc.Search(context.Background(), "s-1", "tok", models.RoleAdmin, "garcia")
	require.NoError(t, err)
	require.Len(t, results, 7)
	assert.Equal(t, 7, api.callCount())

	// results arrive sorted by module
	for i := 1; i < len(results); i++ {
		assert.Less(t, results[i-1].Module, results[i].Module)
	}
}

func TestSearchModuleFailureDoesNotSinkBatch(t *testing.T) {
	api := &searcherMock{errOn: map[string]error{"grupos": appErrors.ErrUpstreamTimeout}}
	svc := NewService(api, nil, 5)

	results, err := svc.Search(context.Background(), "s-1", "tok", models.RoleDocente, "garcia")
	require.NoError(t, err)
	require.Len(t, results, 2)

	byModule := map[string]models.SearchResult{}
	for _, r := range results {
		byModule[r.Module] = r
	}
	assert.NotEmpty(t, byModule["grupos"].Error)
	assert.Empty(t, byModule["grupos"].Hits)
	assert.Empty(t, byModule["estudiantes"].Error)
	assert.Len(t, byModule["estudiantes"].Hits, 1)
}

func TestSearchEmptyQueryIsNoOp(t *testing.T) {
	api := &searcherMock{}
	svc := NewService(api, nil, 5)

	results, err := svc.Search(context.Background(), "s-1", "tok", models.RoleAdmin, "")
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Zero(t, api.callCount())
}

func TestSearchSupersededBatchIsDiscarded(t *testing.T) {
	api := &searcherMock{
		block:   make(chan struct{}),
		started: make(chan string, 8),
	}
	svc := NewService(api, nil, 5)

	type outcome struct {
		results []models.SearchResult
		err     error
	}
	first := make(chan outcome, 1)
	go func() {
		results, err := svc.Search(context.Background(), "s-1", "tok", models.RoleDocente, "gar")
		first <- outcome{results, err}
	}()

	// wait for the first batch to be in flight, then supersede it
	<-api.started
	<-api.started
	svc.nextGeneration("s-1")
	close(api.block)

	got := <-first
	assert.ErrorIs(t, got.err, ErrSuperseded)
	assert.Nil(t, got.results)
}

func TestForgetDropsGenerationState(t *testing.T) {
	svc := NewService(&searcherMock{}, nil, 5)

	gen := svc.nextGeneration("s-1")
	assert.True(t, svc.isCurrent("s-1", gen))

	svc.Forget("s-1")
	assert.False(t, svc.isCurrent("s-1", gen))
}
