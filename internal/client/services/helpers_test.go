package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/userconsole/internal/client/apitest"
	"github.com/dmitrijs2005/userconsole/internal/client/client"
	"github.com/dmitrijs2005/userconsole/internal/client/models"
	"github.com/dmitrijs2005/userconsole/internal/client/repositories/session"
	"github.com/dmitrijs2005/userconsole/internal/logging"
)

// recordingSink keeps every saved file in memory.
type recordingSink struct {
	mu    sync.Mutex
	saves []savedFile
	err   error
}

type savedFile struct {
	name string
	data []byte
}

func (r *recordingSink) Save(_ context.Context, name string, data []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.saves = append(r.saves, savedFile{name: name, data: append([]byte(nil), data...)})
	return "mem://" + name, nil
}

type env struct {
	srv   *apitest.Server
	store *session.MemoryStore
	sess  *client.Session
	http  *client.HTTPClient
	sink  *recordingSink
	auth  AuthService
	users UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{srv: apitest.New(t), store: session.NewMemoryStore(), sink: &recordingSink{}}
	e.sess = client.NewSession(e.store)
	e.http = client.NewHTTPClient(client.HTTPClientConfig{BaseURL: e.srv.URL, Timeout: 5 * time.Second}, e.sess)
	e.auth = NewAuthService(e.http, e.sess, logging.Nop())
	e.users = NewUserService(e.http, e.sink, logging.Nop())
	return e
}

// admin seeds the operator account used to log in.
func (e *env) admin() models.User {
	return e.srv.AddUser(models.User{Email: "a@b.com", FirstName: "Ada", LastName: "Admin"}, "secret123")
}

func (e *env) login(t *testing.T) models.User {
	t.Helper()
	u := e.admin()
	res := e.auth.Login(context.Background(), "a@b.com", "secret123")
	if !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}
	return u
}
