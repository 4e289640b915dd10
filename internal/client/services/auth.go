// Package services contains the application services of the console: the
// auth session manager and the user directory.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/userconsole/internal/client/client"
	"github.com/dmitrijs2005/userconsole/internal/client/models"
	"github.com/dmitrijs2005/userconsole/internal/common"
	"github.com/dmitrijs2005/userconsole/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const loginFailedMessage = "authentication failed"

// AuthService owns the operator's authentication state.
//
// Contract:
//   - Login: exchange credentials for tokens; on failure prior state is kept.
//   - Logout: drop tokens and state. Idempotent, never fails.
//   - Restore: pick up a persisted session at startup.
//   - SessionExpired: reset in-memory state after the client gave up refreshing.
//   - ObserveUsers: fill in the profile of a restored session from a listing.
type AuthService interface {
	Login(ctx context.Context, email, password string) models.LoginResult
	Logout(ctx context.Context)
	Restore(ctx context.Context) (bool, error)
	SessionExpired(ctx context.Context)
	ObserveUsers(users []models.User)

	IsAuthenticated() bool
	User() *models.AuthenticatedUser
}

// LoginClient is the part of the HTTP client the auth service needs.
type LoginClient interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
}

type authService struct {
	client  LoginClient
	session *client.Session
	log     logging.Logger

	mu            sync.RWMutex
	authenticated bool
	user          *models.AuthenticatedUser
	// pendingID is the user_id claim of a restored token whose profile
	// has not been seen yet.
	pendingID int64
}

// NewAuthService binds the service to the login endpoint and the session
// shared with the HTTP client.
func NewAuthService(c LoginClient, sess *client.Session, log logging.Logger) AuthService {
	return &authService{client: c, session: sess, log: log.With("component", "auth")}
}

func (a *authService) Login(ctx context.Context, email, password string) models.LoginResult {
	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		a.log.Warn(ctx, "login failed", "email", email, "error", err)
		return models.LoginResult{Error: loginErrorMessage(err)}
	}

	if err := a.session.Save(ctx, resp.TokenPair); err != nil {
		a.log.Error(ctx, "failed to store session", "error", err)
		return models.LoginResult{Error: "failed to store session"}
	}

	a.mu.Lock()
	a.authenticated = true
	a.user = resp.User
	a.pendingID = 0
	if a.user == nil {
		a.pendingID = userIDFromToken(resp.Access)
	}
	a.mu.Unlock()

	a.log.Info(ctx, "logged in", "email", email)
	return models.LoginResult{Success: true}
}

func loginErrorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fmt.Sprintf("%s: %v", loginFailedMessage, err)
}

func (a *authService) Logout(ctx context.Context) {
	if err := a.session.Clear(ctx); err != nil {
		a.log.Error(ctx, "failed to clear stored tokens", "error", err)
	}
	a.reset()
}

func (a *authService) SessionExpired(ctx context.Context) {
	a.log.Info(ctx, "session expired")
	a.reset()
}

func (a *authService) reset() {
	a.mu.Lock()
	a.authenticated = false
	a.user = nil
	a.pendingID = 0
	a.mu.Unlock()
}

// Restore re-attaches a persisted access token. The profile is not stored
// locally; it is filled in by ObserveUsers once the operator's own record
// shows up in a listing.
func (a *authService) Restore(ctx context.Context) (bool, error) {
	token, ok, err := a.session.Restore(ctx)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return false, nil
	}

	a.mu.Lock()
	a.authenticated = true
	a.user = nil
	a.pendingID = userIDFromToken(token)
	a.mu.Unlock()

	a.log.Debug(ctx, "session restored", "token", common.MaskToken(token))
	return true, nil
}

func (a *authService) ObserveUsers(users []models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.authenticated || a.user != nil || a.pendingID == 0 {
		return
	}
	for _, u := range users {
		if u.ID == a.pendingID {
			a.user = models.ProfileFromUser(u)
			a.pendingID = 0
			return
		}
	}
}

func (a *authService) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.authenticated && a.session.AccessToken() != ""
}

func (a *authService) User() *models.AuthenticatedUser {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// userIDFromToken reads the user_id claim without verifying the signature;
// the backend is the one that checks tokens. It returns 0 when absent.
func userIDFromToken(token string) int64 {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	switch v := claims["user_id"].(type) {
	case float64:
		return int64(v)
	case string:
		id, _ := strconv.ParseInt(v, 10, 64)
		return id
	default:
		return 0
	}
}
