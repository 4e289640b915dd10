package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dmitrijs2005/userconsole/internal/client/dashboard"
	"github.com/dmitrijs2005/userconsole/internal/client/services"
	"github.com/dmitrijs2005/userconsole/internal/logging"
)

// App is the interactive console bound to the auth and user services.
type App struct {
	auth   services.AuthService
	dash   *dashboard.Controller
	log    logging.Logger
	reader *bufio.Reader
	out    io.Writer

	// expired is set from the HTTP client's session-expired callback and
	// consumed by the REPL, which then prompts for login.
	expired atomic.Bool
}

// Options tune NewApp; zero values pick the defaults.
type Options struct {
	PageSize int
	Logger   logging.Logger
}

// NewApp builds the console. The App itself answers the dashboard's delete
// confirmations on in/out.
func NewApp(auth services.AuthService, users services.UserService, in io.Reader, out io.Writer, opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	a := &App{
		auth:   auth,
		log:    log.With("component", "cli"),
		reader: bufio.NewReader(in),
		out:    out,
	}
	a.dash = dashboard.New(users, a,
		dashboard.WithPageSize(opts.PageSize),
		dashboard.WithProfileObserver(auth),
		dashboard.WithLogger(log),
	)
	return a
}

// Dashboard exposes the controller the console drives.
func (a *App) Dashboard() *dashboard.Controller {
	return a.dash
}

// Confirm implements dashboard.Confirmer over the console input.
func (a *App) Confirm(_ context.Context, prompt string) (bool, error) {
	return Confirm(a.reader, prompt, a.out)
}

// SessionExpired is registered as the HTTP client's session-expired
// callback. It may run on any goroutine.
func (a *App) SessionExpired(ctx context.Context) {
	a.auth.SessionExpired(ctx)
	a.expired.Store(true)
}

func (a *App) takeExpired() bool {
	return a.expired.Swap(false)
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsAuthenticated()
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "(logged out)"
	}
	if u := a.auth.User(); u != nil {
		return fmt.Sprintf("(%s)", u.Email)
	}
	return "(logged in)"
}

// Run restores a persisted session or asks for credentials, then serves
// commands until exit or end of input.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "User console (type 'help' for commands)")

	restored, err := a.auth.Restore(ctx)
	if err != nil {
		a.log.Warn(ctx, "session restore failed", "error", err)
	}

	if restored {
		report(a.Reload(ctx))
	}
	if a.takeExpired() {
		printlnFn("Session expired, please log in again")
	}
	if !a.isLoggedIn() {
		report(a.Login(ctx))
	}

	runREPL(ctx, a, a.status, a.reader)
}
