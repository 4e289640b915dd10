package services

import (
	"context"
	"fmt"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/userconsole/internal/client/client"
	"github.com/dmitrijs2005/userconsole/internal/client/export"
	"github.com/dmitrijs2005/userconsole/internal/client/form"
	"github.com/dmitrijs2005/userconsole/internal/client/models"
	"github.com/dmitrijs2005/userconsole/internal/common"
	"github.com/dmitrijs2005/userconsole/internal/logging"
)

const (
	PathUsers     = "/api/v1/users/"
	PathExportCSV = "/api/v1/users/export/csv/"

	ExportFileName = "users.csv"
	csvMediaType   = "text/csv"
)

// UserService is the typed facade over the user directory endpoints.
type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, draft models.UserDraft) (*models.User, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	// ExportCSV saves the backend's CSV export and returns where it went.
	ExportCSV(ctx context.Context) (string, error)
}

// Doer sends requests through the refresh-aware HTTP client.
type Doer interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
}

type userService struct {
	client Doer
	sink   export.Sink
	log    logging.Logger
}

func NewUserService(c Doer, sink export.Sink, log logging.Logger) UserService {
	return &userService{client: c, sink: sink, log: log.With("component", "users")}
}

func userPath(id int64) string {
	return fmt.Sprintf("%s%d/", PathUsers, id)
}

type listEnvelope struct {
	Data []models.User `json:"data"`
}

type userEnvelope struct {
	Data *models.User `json:"data"`
}

// List returns the directory in server order.
func (s *userService) List(ctx context.Context) ([]models.User, error) {
	resp, err := s.client.Do(ctx, client.Request{Method: http.MethodGet, Path: PathUsers})
	if err != nil {
		return nil, err
	}

	var env listEnvelope
	if err := resp.DecodeJSON(&env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		env.Data = []models.User{}
	}
	return env.Data, nil
}

func (s *userService) Create(ctx context.Context, draft models.UserDraft) (*models.User, error) {
	if msg := form.CheckPassword(draft.Password, true); msg != "" {
		return nil, form.Errors{form.FieldPassword: msg}
	}

	resp, err := s.client.Do(ctx, client.Request{Method: http.MethodPost, Path: PathUsers, Body: draft})
	if err != nil {
		return nil, err
	}
	u, err := decodeUser(resp)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user created", "id", u.ID)
	return u, nil
}

// Update replaces the editable attributes of id. A blank password is not
// sent, so the stored one stays; a short one is rejected locally.
func (s *userService) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	if msg := form.CheckPassword(patch.Password, false); msg != "" {
		return nil, form.Errors{form.FieldPassword: msg}
	}

	resp, err := s.client.Do(ctx, client.Request{Method: http.MethodPut, Path: userPath(id), Body: patch})
	if err != nil {
		return nil, err
	}
	u, err := decodeUser(resp)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user updated", "id", u.ID)
	return u, nil
}

func decodeUser(resp *client.Response) (*models.User, error) {
	var env userEnvelope
	if err := resp.DecodeJSON(&env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: response has no data", common.ErrFormat)
	}
	return env.Data, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if _, err := s.client.Do(ctx, client.Request{Method: http.MethodDelete, Path: userPath(id)}); err != nil {
		return err
	}
	s.log.Info(ctx, "user deleted", "id", id)
	return nil
}

// ExportCSV saves exactly the received bytes under ExportFileName. A
// response that is not declared as CSV is rejected with common.ErrFormat
// and nothing is saved.
func (s *userService) ExportCSV(ctx context.Context) (string, error) {
	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   PathExportCSV,
		Header: http.Header{"Accept": []string{csvMediaType}},
	})
	if err != nil {
		return "", err
	}

	ct := resp.Header.Get("Content-Type")
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil || mt != csvMediaType {
		return "", fmt.Errorf("%w: export content type is %q, want %s", common.ErrFormat, ct, csvMediaType)
	}

	where, err := s.sink.Save(ctx, ExportFileName, resp.Body)
	if err != nil {
		return "", fmt.Errorf("save export: %w", err)
	}

	s.log.Info(ctx, "users exported", "location", where, "bytes", len(resp.Body))
	return where, nil
}
