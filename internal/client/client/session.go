package client

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/userconsole/internal/client/models"
	"github.com/dmitrijs2005/userconsole/internal/client/repositories/session"
	"github.com/dmitrijs2005/userconsole/internal/common"
)

// Session owns the operator's tokens. The durable copies live in the
// session.Store; the access token used for the Authorization header is
// mirrored in memory.
//
// A Session is shared by the HTTPClient (refresh protocol) and the auth
// service (login, logout, restore). Both only go through its methods.
type Session struct {
	store session.Store

	mu     sync.RWMutex
	access string
}

func NewSession(store session.Store) *Session {
	return &Session{store: store}
}

// AccessToken returns the token currently attached to outbound requests.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// SetAccessToken sets or, with "", clears the default Authorization header.
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	s.access = token
	s.mu.Unlock()
}

// Restore loads the persisted access token and attaches it to requests.
// ok is false when no access token was stored.
func (s *Session) Restore(ctx context.Context) (token string, ok bool, err error) {
	token, ok, err = s.store.Get(ctx, common.AccessTokenKey)
	if err != nil || !ok || token == "" {
		return "", false, err
	}
	s.SetAccessToken(token)
	return token, true, nil
}

// Save persists both tokens and attaches the access token to requests.
func (s *Session) Save(ctx context.Context, tokens models.TokenPair) error {
	values := map[string]string{
		common.AccessTokenKey:  tokens.Access,
		common.RefreshTokenKey: tokens.Refresh,
	}
	var err error
	if bs, ok := s.store.(session.BatchStore); ok {
		err = bs.SetAll(ctx, values)
	} else {
		err = errors.Join(
			s.store.Set(ctx, common.AccessTokenKey, tokens.Access),
			s.store.Set(ctx, common.RefreshTokenKey, tokens.Refresh),
		)
	}
	if err != nil {
		return err
	}
	s.SetAccessToken(tokens.Access)
	return nil
}

// RefreshToken returns the stored refresh token or common.ErrNoRefreshToken.
func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	token, ok, err := s.store.Get(ctx, common.RefreshTokenKey)
	if err != nil {
		return "", err
	}
	if !ok || token == "" {
		return "", common.ErrNoRefreshToken
	}
	return token, nil
}

// Refreshed stores a newly minted access token (and a rotated refresh token
// when the backend issued one) and attaches it to requests.
func (s *Session) Refreshed(ctx context.Context, tokens models.TokenPair) error {
	if err := s.store.Set(ctx, common.AccessTokenKey, tokens.Access); err != nil {
		return err
	}
	if tokens.Refresh != "" {
		if err := s.store.Set(ctx, common.RefreshTokenKey, tokens.Refresh); err != nil {
			return err
		}
	}
	s.SetAccessToken(tokens.Access)
	return nil
}

// Clear removes both tokens from the store and detaches the header.
// The in-memory header is cleared even if the store fails. The deletes
// run even when ctx is already cancelled.
func (s *Session) Clear(ctx context.Context) error {
	s.SetAccessToken("")
	ctx = context.WithoutCancel(ctx)
	return errors.Join(
		s.store.Clear(ctx, common.AccessTokenKey),
		s.store.Clear(ctx, common.RefreshTokenKey),
	)
}
