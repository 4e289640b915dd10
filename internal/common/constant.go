// Package common contains shared constants and sentinel errors used across
// the user console components.
package common

const (
	// AuthorizationHeader carries "Bearer <access token>" on outbound requests.
	AuthorizationHeader = "Authorization"

	// RequestIDHeader is set to a fresh UUID on every outbound request.
	RequestIDHeader = "X-Request-ID"

	// BearerPrefix precedes the access token in AuthorizationHeader.
	BearerPrefix = "Bearer "
)

// Session store keys.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)
