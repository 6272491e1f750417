// Package search implements the cross-module global search: one upstream
// request per module the caller may access, fired in parallel and joined
// only once every module answered.
package search

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
)

type moduleSearcher interface {
	SearchModule(ctx context.Context, token, module, query string, limit int) ([]models.SearchHit, error)
}

// modulesByRole lists which modules each role may search across.
var modulesByRole = map[models.UserRole][]string{
	models.RoleAdmin:       {"estudiantes", "docentes", "grupos", "pagos", "documentos", "convenios", "usuarios"},
	models.RoleCoordinador: {"estudiantes", "docentes", "grupos", "documentos"},
	models.RoleAutoridad:   {"estudiantes", "docentes", "grupos", "convenios"},
	models.RoleDocente:     {"estudiantes", "grupos"},
	models.RoleEstudiante:  {"documentos", "pagos"},
}

// ErrSuperseded marks a search whose results were overtaken by a newer query
// from the same session before it finished.
var ErrSuperseded = appErrors.New("SEARCH_SUPERSEDED", 409, "búsqueda reemplazada por una más reciente")

// Service runs global searches. A per-session generation counter guarantees
// only the latest batch of a fast-typing user is ever returned; superseded
// batches are discarded, never partially rendered.
type Service struct {
	api    moduleSearcher
	logger *zap.Logger
	limit  int

	mu          sync.Mutex
	generations map[string]uint64
}

// NewService constructs the search service.
func NewService(api moduleSearcher, logger *zap.Logger, perModuleLimit int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if perModuleLimit <= 0 {
		perModuleLimit = 5
	}
	return &Service{
		api:         api,
		logger:      logger,
		limit:       perModuleLimit,
		generations: make(map[string]uint64),
	}
}

// Modules returns the module list a role may search.
func Modules(role models.UserRole) []string {
	return modulesByRole[models.NormalizeRole(string(role))]
}

func (s *Service) nextGeneration(sessionID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[sessionID]++
	return s.generations[sessionID]
}

func (s *Service) isCurrent(sessionID string, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[sessionID] == generation
}

// Forget drops the generation bookkeeping for a session. Called on logout.
func (s *Service) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.generations, sessionID)
}

// Search queries every accessible module in parallel and joins once all have
// completed. A module failure surfaces inside its own result slot; it does
// not sink the batch. Latency is bounded by the slowest module.
func (s *Service) Search(ctx context.Context, sessionID, token string, role models.UserRole, query string) ([]models.SearchResult, error) {
	modules := Modules(role)
	if len(modules) == 0 || query == "" {
		return nil, nil
	}

	generation := s.nextGeneration(sessionID)

	results := make([]models.SearchResult, len(modules))
	g, gctx := errgroup.WithContext(ctx)
	for i, module := range modules {
		i, module := i, module
		g.Go(func() error {
			hits, err := s.api.SearchModule(gctx, token, module, query, s.limit)
			results[i] = models.SearchResult{Module: module, Hits: hits}
			if err != nil {
				results[i].Error = appErrors.FromError(err).Message
				s.logger.Warn("module search failed",
					zap.String("module", module),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	if !s.isCurrent(sessionID, generation) {
		return nil, ErrSuperseded
	}

	sort.Slice(results, func(a, b int) bool { return results[a].Module < results[b].Module })
	return results, nil
}
