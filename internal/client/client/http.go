package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/userconsole/internal/client/models"
	"github.com/dmitrijs2005/userconsole/internal/common"
	"github.com/dmitrijs2005/userconsole/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	PathLogin   = "/api/token/"
	PathRefresh = "/api/token/refresh/"
)

// Request describes one outbound call relative to the configured base URL.
type Request struct {
	Method string
	Path   string
	// Body is JSON-encoded when non-nil.
	Body any
	// Header is merged over the defaults (Content-Type, Accept, Authorization).
	Header http.Header
	// Anonymous requests carry no Authorization header and never enter the
	// refresh protocol (login and refresh themselves).
	Anonymous bool
}

// Response is a fully read 2xx response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// DecodeJSON unmarshals the body into v, reporting common.ErrFormat on failure.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: decode json: %w", common.ErrFormat, err)
	}
	return nil
}

// HTTPClientConfig holds the transport settings.
type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient is the single point of outbound request construction. It
// attaches the bearer token and, on a 401, refreshes the access token and
// re-issues the original request once.
type HTTPClient struct {
	cfg        HTTPClientConfig
	httpClient *http.Client
	session    *Session
	log        logging.Logger

	onExpired func(ctx context.Context)
	refreshes singleflight.Group
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithLogger sets the logger; the default discards output.
func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// OnSessionExpired registers fn to run after a failed refresh has cleared the
// session, i.e. when the operator has to log in again.
func OnSessionExpired(fn func(ctx context.Context)) Option {
	return func(c *HTTPClient) { c.onExpired = fn }
}

func NewHTTPClient(cfg HTTPClientConfig, sess *Session, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		session:    sess,
		log:        logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("component", "http_client")
	return c
}

// Session exposes the token holder the client was built with.
func (c *HTTPClient) Session() *Session {
	return c.session
}

// ConfigureAuth sets the default bearer token; "" removes it.
func (c *HTTPClient) ConfigureAuth(token string) {
	c.session.SetAccessToken(token)
}

// attempt is one pass of a request through the refresh protocol. A retried
// attempt is never refreshed again, so each request is sent at most twice.
type attempt struct {
	req     Request
	retried bool
}

// Do sends req and returns the response for any 2xx status. Other statuses
// yield an *APIError; transport failures wrap common.ErrNetwork.
func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	return c.do(ctx, attempt{req: req})
}

func (c *HTTPClient) do(ctx context.Context, at attempt) (*Response, error) {
	sentWith := c.session.AccessToken()
	resp, err := c.send(ctx, at.req, sentWith)
	if err == nil {
		return resp, nil
	}

	var apiErr *APIError
	if at.req.Anonymous || at.retried || !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return nil, err
	}

	if err := c.refresh(ctx, sentWith); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Warn(ctx, "token refresh failed, session cleared", "path", at.req.Path, "error", err)
		if cerr := c.session.Clear(ctx); cerr != nil {
			c.log.Error(ctx, "failed to clear session", "error", cerr)
		}
		if c.onExpired != nil {
			c.onExpired(ctx)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrSessionExpired, apiErr)
	}

	return c.do(ctx, attempt{req: at.req, retried: true})
}

// refresh mints a new access token. Concurrent callers share one refresh
// call. When the token has already changed since the failed request was
// sent, another caller refreshed it and no call is made.
//
// The shared call is detached from the cancellation of whichever caller
// started it; it is bounded by the client timeout instead.
func (c *HTTPClient) refresh(ctx context.Context, sentWith string) error {
	stale := func() bool {
		current := c.session.AccessToken()
		return current != "" && current != sentWith
	}
	if stale() {
		return nil
	}

	_, err, shared := c.refreshes.Do("refresh", func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		if stale() {
			return nil, nil
		}
		refreshToken, err := c.session.RefreshToken(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.send(ctx, Request{
			Method:    http.MethodPost,
			Path:      PathRefresh,
			Body:      map[string]string{"refresh": refreshToken},
			Anonymous: true,
		}, "")
		if err != nil {
			return nil, err
		}

		var tokens models.TokenPair
		if err := resp.DecodeJSON(&tokens); err != nil {
			return nil, err
		}
		if tokens.Access == "" {
			return nil, fmt.Errorf("%w: refresh response has no access token", common.ErrFormat)
		}
		return nil, c.session.Refreshed(ctx, tokens)
	})
	if err == nil {
		c.log.Debug(ctx, "access token refreshed", "shared", shared, "token", common.MaskToken(c.session.AccessToken()))
	}
	return err
}

// send performs a single HTTP exchange with the given bearer token.
func (c *HTTPClient) send(ctx context.Context, r Request, token string) (*Response, error) {
	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.cfg.BaseURL+r.Path, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.RequestIDHeader, requestID)
	if !r.Anonymous && token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}
	for k, vs := range r.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request failed", "method", r.Method, "path", r.Path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", common.ErrNetwork, r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", common.ErrNetwork, err)
	}

	c.log.Debug(ctx, "request done",
		"method", r.Method,
		"path", r.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
