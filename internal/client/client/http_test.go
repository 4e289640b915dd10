package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/userconsole/internal/client/apitest"
	"github.com/dmitrijs2005/userconsole/internal/client/models"
	"github.com/dmitrijs2005/userconsole/internal/client/repositories/session"
	"github.com/dmitrijs2005/userconsole/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersPath = "/api/v1/users/"

type harness struct {
	srv     *apitest.Server
	store   *session.MemoryStore
	client  *HTTPClient
	expired atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{srv: apitest.New(t), store: session.NewMemoryStore()}
	h.client = NewHTTPClient(
		HTTPClientConfig{BaseURL: h.srv.URL, Timeout: 5 * time.Second},
		NewSession(h.store),
		OnSessionExpired(func(context.Context) { h.expired.Add(1) }),
	)
	return h
}

// loggedIn seeds a user and stores a valid token pair as a login would.
func (h *harness) loggedIn(t *testing.T) models.TokenPair {
	t.Helper()
	u := h.srv.AddUser(models.User{Email: "admin@example.com", FirstName: "Ada", LastName: "Admin"}, "secret-pass")
	tokens := h.srv.IssueTokens(u.ID)
	require.NoError(t, h.client.Session().Save(context.Background(), tokens))
	return tokens
}

func (h *harness) stored(key string) string {
	v, _, _ := h.store.Get(context.Background(), key)
	return v
}

func TestHTTPClient_AttachesBearerToken(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)

	resp, err := h.client.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	var out struct {
		Data []models.User `json:"data"`
	}
	require.NoError(t, resp.DecodeJSON(&out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "admin@example.com", out.Data[0].Email)
	assert.Equal(t, 1, h.srv.Calls(http.MethodGet, usersPath))
	assert.Equal(t, 0, h.srv.Calls(http.MethodPost, PathRefresh))
}

func TestHTTPClient_WithoutToken_Unauthorized(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSessionExpired)
	assert.Equal(t, 0, h.srv.Calls(http.MethodPost, PathRefresh), "no refresh token stored, nothing to refresh with")
	assert.EqualValues(t, 1, h.expired.Load())
}

func TestHTTPClient_RefreshesOnceAndRetries(t *testing.T) {
	h := newHarness(t)
	old := h.loggedIn(t)
	h.srv.ExpireAccessTokens()

	resp, err := h.client.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	assert.Equal(t, 1, h.srv.Calls(http.MethodPost, PathRefresh))
	assert.Equal(t, 2, h.srv.Calls(http.MethodGet, usersPath), "original call plus exactly one retry")

	newAccess := h.stored(common.AccessTokenKey)
	assert.NotEmpty(t, newAccess)
	assert.NotEqual(t, old.Access, newAccess)
	assert.Equal(t, newAccess, h.client.Session().AccessToken())
	assert.Equal(t, old.Refresh, h.stored(common.RefreshTokenKey))
	assert.EqualValues(t, 0, h.expired.Load())
}

func TestHTTPClient_StoresRotatedRefreshToken(t *testing.T) {
	h := newHarness(t)
	old := h.loggedIn(t)
	h.srv.RotateRefresh = true
	h.srv.ExpireAccessTokens()

	_, err := h.client.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
	require.NoError(t, err)

	rotated := h.stored(common.RefreshTokenKey)
	assert.NotEmpty(t, rotated)
	assert.NotEqual(t, old.Refresh, rotated)
}

func TestHTTPClient_RefreshFailure_ClearsSessionAndSignals(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.srv.ExpireAccessTokens()
	h.srv.RevokeRefreshTokens()

	_, err := h.client.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSessionExpired)
	assert.ErrorIs(t, err, common.ErrAuth)

	assert.Equal(t, 1, h.srv.Calls(http.MethodPost, PathRefresh))
	assert.Equal(t, 1, h.srv.Calls(http.MethodGet, usersPath), "no retry after a failed refresh")
	assert.EqualValues(t, 1, h.expired.Load())

	assert.Empty(t, h.client.Session().AccessToken())
	_, ok, _ := h.store.Get(context.Background(), common.AccessTokenKey)
	assert.False(t, ok)
	_, ok, _ = h.store.Get(context.Background(), common.RefreshTokenKey)
	assert.False(t, ok)
}

func TestHTTPClient_RetriedRequestIsNotRefreshedAgain(t *testing.T) {
	var gets, refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case PathRefresh:
			refreshes.Add(1)
			_, _ = w.Write([]byte(`{"access":"fresh-token"}`))
		default:
			gets.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"no"}`))
		}
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	var expired atomic.Int32
	c := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL}, NewSession(store),
		OnSessionExpired(func(context.Context) { expired.Add(1) }))
	require.NoError(t, c.Session().Save(context.Background(), models.TokenPair{Access: "stale", Refresh: "r"}))

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.NotErrorIs(t, err, common.ErrSessionExpired)

	assert.EqualValues(t, 2, gets.Load())
	assert.EqualValues(t, 1, refreshes.Load())
	assert.EqualValues(t, 0, expired.Load())
}

func TestHTTPClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)
	h.srv.ExpireAccessTokens()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.client.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.srv.Calls(http.MethodPost, PathRefresh))
	assert.EqualValues(t, 0, h.expired.Load())
}

func TestHTTPClient_CancelledStarterDoesNotExpireSharedRefresh(t *testing.T) {
	h := newHarness(t)
	old := h.loggedIn(t)
	h.srv.ExpireAccessTokens()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.srv.BeforeRefresh = func() {
		once.Do(func() { close(started) })
		<-release
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := h.client.Do(ctxA, Request{Method: http.MethodGet, Path: usersPath})
		errA <- err
	}()
	<-started

	errB := make(chan error, 1)
	go func() {
		_, err := h.client.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
		errB <- err
	}()
	require.Eventually(t, func() bool {
		return h.srv.Calls(http.MethodGet, usersPath) == 2
	}, time.Second, 5*time.Millisecond)

	cancelA()
	close(release)

	require.NoError(t, <-errB)
	assert.NotErrorIs(t, <-errA, common.ErrSessionExpired)
	assert.EqualValues(t, 0, h.expired.Load())
	assert.Equal(t, 1, h.srv.Calls(http.MethodPost, PathRefresh))
	assert.Equal(t, old.Refresh, h.stored(common.RefreshTokenKey))
	assert.NotEmpty(t, h.client.Session().AccessToken())
}

func TestHTTPClient_CallerCancelledDuringRefreshKeepsSession(t *testing.T) {
	h := newHarness(t)
	old := h.loggedIn(t)
	h.srv.ExpireAccessTokens()

	ctx, cancel := context.WithCancel(context.Background())
	h.srv.BeforeRefresh = cancel

	_, err := h.client.Do(ctx, Request{Method: http.MethodGet, Path: usersPath})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrSessionExpired)
	assert.EqualValues(t, 0, h.expired.Load())
	assert.Equal(t, old.Refresh, h.stored(common.RefreshTokenKey))
}

func TestHTTPClient_AnonymousUnauthorizedPassesThrough(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)

	_, err := h.client.Login(context.Background(), "admin@example.com", "wrong-password")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAuth)
	assert.NotErrorIs(t, err, common.ErrSessionExpired)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "No active account found with the given credentials", apiErr.Message)

	assert.Equal(t, 0, h.srv.Calls(http.MethodPost, PathRefresh))
	assert.EqualValues(t, 0, h.expired.Load())
	assert.NotEmpty(t, h.stored(common.AccessTokenKey), "a failed login leaves the session alone")
}

func TestHTTPClient_NonUnauthorizedErrorsPassThrough(t *testing.T) {
	h := newHarness(t)
	h.loggedIn(t)

	_, err := h.client.Do(context.Background(), Request{Method: http.MethodDelete, Path: usersPath + "999/"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, 0, h.srv.Calls(http.MethodPost, PathRefresh))
}

func TestHTTPClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(HTTPClientConfig{BaseURL: url, Timeout: time.Second}, NewSession(session.NewMemoryStore()))
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNetwork)
	assert.Contains(t, err.Error(), "GET "+usersPath)
}

func TestHTTPClient_Headers(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL}, NewSession(session.NewMemoryStore()))
	c.ConfigureAuth("tok")

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   usersPath,
		Body:   map[string]string{"a": "b"},
		Header: http.Header{"Accept": []string{"text/csv"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", got.Get(common.AuthorizationHeader))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "text/csv", got.Get("Accept"))
	assert.NotEmpty(t, got.Get(common.RequestIDHeader))

	c.ConfigureAuth("")
	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: usersPath})
	require.NoError(t, err)
	assert.Empty(t, got.Get(common.AuthorizationHeader))
	assert.Empty(t, got.Get("Content-Type"))
}

func TestResponse_DecodeJSON_Format(t *testing.T) {
	r := &Response{Status: http.StatusOK, Body: []byte("<html>")}
	var v map[string]any
	err := r.DecodeJSON(&v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrFormat))
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser(models.User{Email: "admin@example.com", FirstName: "Ada", LastName: "Admin"}, "secret-pass")

	out, err := h.client.Login(context.Background(), "admin@example.com", "secret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, out.Access)
	assert.NotEmpty(t, out.Refresh)
	require.NotNil(t, out.User)
	assert.Equal(t, "Ada", out.User.FirstName)

	assert.Empty(t, h.client.Session().AccessToken(), "login does not store tokens by itself")
}

func TestLogin_MissingTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access":"only-access"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL}, NewSession(session.NewMemoryStore()))
	_, err := c.Login(context.Background(), "a@b.co", "password1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFormat)
}
