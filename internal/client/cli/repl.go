package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	inVerifyView() bool
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	Resend(ctx context.Context) error
	Open(ctx context.Context, raw string) error
	Status(ctx context.Context) error
	Reconcile(ctx context.Context) error
	JWT(ctx context.Context) error
	Home(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the appauth CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF, when ctx is done, or when
// the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Login view:
//	  - help            - show available commands
//	  - signup          - create an account
//	  - login           - authenticate
//	  - logout          - end the session
//	  - whoami          - show the current session
//	  - resend          - request a new verification email
//	  - reconcile       - finish signup steps that failed earlier
//	  - jwt             - issue a short-lived token for the session
//	  - open <url>      - deliver a deep link
//	  - exit | quit     - leave the program
//
//	Verify view (after signup, or with an unverified session):
//	  - status          - show the verification state
//	  - resend          - request a new verification email
//	  - open <url>      - deliver a deep link
//	  - home            - back to the login view
//
// Errors returned by command handlers are ignored here; the controllers have
// already turned them into notices.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner, println func(...any) (int, error)) {
	for {
		if ctx.Err() != nil {
			return
		}
		println(statusFn())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			switch {
			case a.inVerifyView():
				println("Available commands: status, resend, open <url>, whoami, logout, home, exit")
			case a.isLoggedIn():
				println("Available commands: whoami, resend, reconcile, jwt, open <url>, logout, exit")
			default:
				println("Available commands: signup, login, open <url>, exit")
			}

		case "signup", "register":
			_ = a.Signup(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "resend":
			_ = a.Resend(ctx)

		case "open":
			if len(args) == 0 {
				println("Usage: open <url>")
				continue
			}
			_ = a.Open(ctx, args[0])

		case "status":
			_ = a.Status(ctx)

		case "reconcile":
			_ = a.Reconcile(ctx)

		case "jwt":
			_ = a.JWT(ctx)

		case "home":
			_ = a.Home(ctx)

		case "exit", "quit":
			println("Bye!")
			return

		default:
			println(fmt.Sprintf("Unknown command: %s", cmd))
		}
	}
}
