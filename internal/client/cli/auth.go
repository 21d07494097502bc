package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/appauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// Signup prompts for name, email and password and creates the account. On
// success the REPL switches to the verify view.
func (a *App) Signup(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Signup(ctx, name, email, password); err != nil {
		return err
	}

	a.setView(ViewVerify)
	return nil
}

// Login prompts for credentials and creates a session. An unverified
// session switches the REPL to the verify view.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Login(ctx, email, password); err != nil {
		return err
	}

	if a.auth.Session().NeedsVerification() {
		a.setView(ViewVerify)
	}
	return nil
}

// Logout ends the session. On failure the user stays logged in.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.setView(ViewLogin)
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	s := a.auth.Session()
	if s == nil {
		a.println("Not logged in.")
		return nil
	}

	verified := "no"
	if s.EmailVerification {
		verified = "yes"
	}
	a.println(a.auth.Greeting())
	a.println("  user id:        " + s.UserID)
	a.println("  email:          " + s.Email)
	a.println("  email verified: " + verified)
	return nil
}

func (a *App) Reconcile(ctx context.Context) error {
	return a.auth.Reconcile(ctx)
}

// JWT prints a short-lived token for the session and its expiry.
func (a *App) JWT(ctx context.Context) error {
	tok, exp, err := a.auth.IssueJWT(ctx)
	if err != nil {
		a.println("Could not issue a token: " + err.Error())
		return err
	}

	a.println(tok)
	if !exp.IsZero() {
		a.println("expires " + exp.Local().Format(time.RFC3339) + " (in " + time.Until(exp).Round(time.Second).String() + ")")
	}
	return nil
}
