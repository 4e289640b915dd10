// Package client is the console's single point of contact with the REST
// backend.
//
// # Overview
//
//  1. HTTPClient builds every outbound request: base URL, JSON encoding,
//     X-Request-ID and the Authorization: Bearer header taken from Session.
//  2. On a 401 it runs the refresh protocol: POST /api/token/refresh/ with the
//     stored refresh token, store the new access token, then re-issue the
//     original request exactly once. If no refresh token exists or the refresh
//     call fails, the session is cleared, the OnSessionExpired callback runs
//     and the original 401 is returned wrapped in common.ErrSessionExpired.
//     Concurrent refreshes are collapsed into one call.
//  3. Session holds the tokens: durable copies in a session.Store, the access
//     token mirrored in memory for the header.
//  4. InitDatabase / RunMigrations bootstrap the SQLite session database
//     with the embedded goose migrations.
//
// # Error Handling
//
// Non-2xx responses surface as *APIError, which unwraps to common.ErrAuth,
// common.ErrNotFound or common.ErrValidation by status. Transport failures
// wrap common.ErrNetwork.
package client
