// Package cli provides the interactive user-management console.
//
// It restores a persisted session (or prompts for credentials), loads the
// user directory and runs a REPL over the dashboard controller:
//
//   - login / logout / whoami
//   - list, next, prev, page N: paginated view of the fetched directory
//   - create, edit <id>, delete <id>: user mutations
//   - export: save the CSV export
//   - dismiss, reload
//
// When the HTTP client gives up on a refresh the console reports the expired
// session and prompts for login before the next command.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
