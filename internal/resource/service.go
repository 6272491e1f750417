package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/icap-edu/icap-portal-gateway/internal/form"
	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/upstream"
	"github.com/icap-edu/icap-portal-gateway/pkg/export"
	appErrors "github.com/icap-edu/icap-portal-gateway/pkg/errors"
)

type upstreamAPI interface {
	Get(ctx context.Context, path, token string, params url.Values, opts ...upstream.CallOption) (*upstream.Envelope, error)
	Post(ctx context.Context, path, token string, body interface{}, opts ...upstream.CallOption) (*upstream.Envelope, error)
	Put(ctx context.Context, path, token string, body interface{}, opts ...upstream.CallOption) (*upstream.Envelope, error)
	Delete(ctx context.Context, path, token string, opts ...upstream.CallOption) (*upstream.Envelope, error)
}

// Service is the one CRUD implementation behind every resource screen.
type Service struct {
	api    upstreamAPI
	logger *zap.Logger
}

// NewService constructs the generic resource service.
func NewService(api upstreamAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, logger: logger}
}

// List fetches one page of the resource.
func (s *Service) List(ctx context.Context, token string, def Definition, params models.ListParams) (json.RawMessage, models.Pagination, error) {
	envelope, err := s.api.Get(ctx, def.Path, token, upstream.ListValues(params))
	if err != nil {
		return nil, models.DefaultPagination(), err
	}
	return upstream.DecodeList(envelope)
}

// Get fetches a single record.
func (s *Service) Get(ctx context.Context, token string, def Definition, id string) (json.RawMessage, error) {
	envelope, err := s.api.Get(ctx, def.Path+"/"+id, token, nil)
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// Create validates the values against the resource's field validators and
// posts them upstream. Local validation failures never reach the backend.
func (s *Service) Create(ctx context.Context, token string, def Definition, values map[string]interface{}) (json.RawMessage, error) {
	if err := s.validate(def, values); err != nil {
		return nil, err
	}
	envelope, err := s.api.Post(ctx, def.Path, token, values)
	if err != nil {
		return nil, err
	}
	s.logger.Info("resource created", zap.String("resource", def.Name))
	return envelope.Data, nil
}

// Update shares Create's validation path.
func (s *Service) Update(ctx context.Context, token string, def Definition, id string, values map[string]interface{}) (json.RawMessage, error) {
	if err := s.validate(def, values); err != nil {
		return nil, err
	}
	envelope, err := s.api.Put(ctx, def.Path+"/"+id, token, values)
	if err != nil {
		return nil, err
	}
	s.logger.Info("resource updated", zap.String("resource", def.Name), zap.String("id", id))
	return envelope.Data, nil
}

// Delete removes a record. The confirmation prompt lives with the caller.
func (s *Service) Delete(ctx context.Context, token string, def Definition, id string) error {
	if _, err := s.api.Delete(ctx, def.Path+"/"+id, token); err != nil {
		return err
	}
	s.logger.Info("resource deleted", zap.String("resource", def.Name), zap.String("id", id))
	return nil
}

func (s *Service) validate(def Definition, values map[string]interface{}) error {
	if len(def.Validators) == 0 {
		return nil
	}
	f := form.New(values, def.Validators)
	if f.ValidateForm() {
		return nil
	}
	return appErrors.Validation("los datos del formulario no son válidos", f.Errors())
}

// ExportDataset pages through the resource and flattens it onto the screen's
// columns for CSV/PDF rendering. maxRows bounds runaway exports.
func (s *Service) ExportDataset(ctx context.Context, token string, def Definition, params models.ListParams, maxRows int) (export.Dataset, error) {
	if maxRows <= 0 {
		maxRows = 5000
	}

	headers := make([]string, len(def.Columns))
	for i, col := range def.Columns {
		headers[i] = col.Label
	}
	dataset := export.Dataset{Headers: headers}

	params.Page = 1
	if params.PerPage < 100 {
		params.PerPage = 100
	}

	for len(dataset.Rows) < maxRows {
		raw, pagination, err := s.List(ctx, token, def, params)
		if err != nil {
			return export.Dataset{}, err
		}

		var items []map[string]interface{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &items); err != nil {
				return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "respuesta inesperada del servidor")
			}
		}

		for _, item := range items {
			if len(dataset.Rows) >= maxRows {
				break
			}
			row := make(map[string]string, len(def.Columns))
			for _, col := range def.Columns {
				row[col.Label] = stringify(item[col.Key])
			}
			dataset.Rows = append(dataset.Rows, row)
		}

		if pagination.CurrentPage >= pagination.LastPage || len(items) == 0 {
			break
		}
		params.Page = pagination.CurrentPage + 1
	}

	return dataset, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "Sí"
		}
		return "No"
	default:
		return fmt.Sprintf("%v", v)
	}
}
