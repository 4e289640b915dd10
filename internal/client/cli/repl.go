package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/userconsole/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	takeExpired() bool

	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	List(ctx context.Context) error
	NextPage(ctx context.Context) error
	PrevPage(ctx context.Context) error
	GoToPage(ctx context.Context, arg string) error
	Create(ctx context.Context) error
	Edit(ctx context.Context, arg string) error
	Delete(ctx context.Context, arg string) error
	Export(ctx context.Context) error
	Dismiss(ctx context.Context) error
	Reload(ctx context.Context) error
}

// runREPL starts a read–eval–print loop over the console commands.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to methods on 'a'. The loop exits on end of input or when the
// user types "exit" or "quit".
//
//	Not logged in:
//	  - help, login, whoami, exit | quit
//
//	Logged in:
//	  - help, whoami, logout
//	  - (l)ist, next, prev, page N
//	  - create, edit <id>, delete <id>
//	  - export, dismiss, reload
//	  - exit | quit
//
// Handler errors are printed and the loop continues. After every command a
// pending session expiry is reported and a login is prompted.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("uc %s > ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, arg := parts[0], ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		if needsLogin(cmd) && !a.isLoggedIn() {
			printlnFn("Please log in first")
			continue
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, next, prev, page N, create, edit ID, delete ID, export, dismiss, reload, whoami, logout, exit")
			} else {
				printlnFn("Available commands: login, whoami, exit")
			}
		case "login":
			report(a.Login(ctx))
		case "logout":
			report(a.Logout(ctx))
		case "whoami":
			report(a.Whoami(ctx))
		case "l", "list":
			report(a.List(ctx))
		case "next":
			report(a.NextPage(ctx))
		case "prev":
			report(a.PrevPage(ctx))
		case "page":
			report(a.GoToPage(ctx, arg))
		case "create":
			report(a.Create(ctx))
		case "edit":
			report(a.Edit(ctx, arg))
		case "delete":
			report(a.Delete(ctx, arg))
		case "export":
			report(a.Export(ctx))
		case "dismiss":
			report(a.Dismiss(ctx))
		case "reload":
			report(a.Reload(ctx))
		default:
			printlnFn("Unknown command:", cmd)
		}

		if a.takeExpired() {
			printlnFn("Session expired, please log in again")
			report(a.Login(ctx))
		}
	}
}

func needsLogin(cmd string) bool {
	switch cmd {
	case "logout", "l", "list", "next", "prev", "page", "create", "edit", "delete", "export", "reload":
		return true
	default:
		return false
	}
}

func report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotConfirmed):
		printlnFn("Cancelled")
	default:
		printlnFn("Error:", err)
	}
}
