package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/userconsole/internal/client/models"
	"github.com/dmitrijs2005/userconsole/internal/common"
)

// Login exchanges credentials for a token pair and the operator profile.
// It does not touch the session; storing the tokens is the caller's job.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	resp, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      PathLogin,
		Body:      map[string]string{"email": email, "password": password},
		Anonymous: true,
	})
	if err != nil {
		return nil, err
	}

	var out models.LoginResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, err
	}
	if out.Access == "" || out.Refresh == "" {
		return nil, fmt.Errorf("%w: login response is missing tokens", common.ErrFormat)
	}
	return &out, nil
}
