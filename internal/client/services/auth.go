// Package services contains the application controllers of the client.
// This file defines the auth controller: signup, login, logout, start-up
// session discovery, verification resend and signup reconciliation.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/appauth/internal/client/client"
	"github.com/dmitrijs2005/appauth/internal/client/models"
	"github.com/dmitrijs2005/appauth/internal/client/observe"
	"github.com/dmitrijs2005/appauth/internal/client/repositories/pending"
	"github.com/dmitrijs2005/appauth/internal/common"
	"github.com/dmitrijs2005/appauth/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthOptions carries the fixed remote identifiers the controller needs.
type AuthOptions struct {
	// RedirectURL is the HTTPS page the verification email points to.
	RedirectURL         string
	DatabaseID          string
	ProfileCollectionID string
}

// AuthController owns credentials, the session lifecycle and account
// creation.
//
// Contract:
//   - Signup: account, profile document, verification email, then Login.
//   - Login: create a session and load the identity as the current Session.
//   - Logout: destroy the remote session, then clear local state.
//   - CurrentSession: pick up a session that survived on the service.
//   - ResendVerification: request a new verification email.
//   - Reconcile: retry signup steps that failed after the account existed.
//
// One operation runs at a time; a concurrent call fails with common.ErrBusy
// without touching the network. Every mutating operation publishes a Notice.
type AuthController struct {
	client   client.Client
	pending  pending.Repository
	opts     AuthOptions
	logger   logging.Logger
	validate *validator.Validate
	newID    func() string

	inFlight atomic.Bool
	session  *observe.Value[*models.Session]
	notices  *observe.Value[models.Notice]

	mu    sync.Mutex
	creds models.Credentials
}

// NewAuthController wires the controller. pendingRepo may be nil, in which
// case failed signup steps are only logged.
func NewAuthController(c client.Client, pendingRepo pending.Repository, opts AuthOptions, logger logging.Logger) *AuthController {
	return &AuthController{
		client:   c,
		pending:  pendingRepo,
		opts:     opts,
		logger:   logger.With("component", "auth"),
		validate: newValidator(),
		newID:    uuid.NewString,
		session:  observe.NewValue[*models.Session](nil),
		notices:  observe.NewValue(models.Notice{}),
	}
}

// Session returns the current session or nil when logged out.
func (a *AuthController) Session() *models.Session {
	return a.session.Get()
}

// Sessions returns the observable session; nil means logged out.
func (a *AuthController) Sessions() *observe.Value[*models.Session] {
	return a.session
}

// Notices returns the observable stream of user-facing messages.
func (a *AuthController) Notices() *observe.Value[models.Notice] {
	return a.notices
}

// Credentials returns a copy of the form state held since the last signup
// or login.
func (a *AuthController) Credentials() models.Credentials {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := a.creds
	c.Password = append([]byte(nil), a.creds.Password...)
	return c
}

// Busy reports whether an operation is in flight.
func (a *AuthController) Busy() bool {
	return a.inFlight.Load()
}

func (a *AuthController) begin() error {
	if !a.inFlight.CompareAndSwap(false, true) {
		return common.ErrBusy
	}
	return nil
}

func (a *AuthController) end() {
	a.inFlight.Store(false)
}

func (a *AuthController) notify(level models.NoticeLevel, title, body string) {
	a.notices.Publish(models.Notice{Level: level, Title: title, Body: body})
}

// fail logs a remote failure, publishes it and wraps it as common.ErrAuth.
func (a *AuthController) fail(ctx context.Context, title, op string, err error) error {
	a.logger.Error(ctx, op+" failed", "error", err)
	a.notify(models.NoticeError, title, client.Message(err, "Something went wrong. Please try again."))
	return fmt.Errorf("%w: %s: %w", common.ErrAuth, op, err)
}

func (a *AuthController) setCredentials(name, email string, password []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.creds.Wipe()
	a.creds = models.Credentials{Name: name, Email: email, Password: append([]byte(nil), password...)}
}

func (a *AuthController) clearCredentials() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.creds.Wipe()
}

// Signup creates the account, mirrors the profile, requests the verification
// email and logs in. A failure stops the remaining steps. Steps that failed
// after the account was created are queued for Reconcile; the account is
// not rolled back.
func (a *AuthController) Signup(ctx context.Context, name, email string, password []byte) error {
	in := newSignupInput(name, email, password)
	if err := validateInput(a.validate, in); err != nil {
		a.notify(models.NoticeError, "Error", "Please fill in all fields.")
		return err
	}
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	a.setCredentials(in.Name, in.Email, password)

	identity, err := a.client.CreateAccount(ctx, a.newID(), in.Email, string(password), in.Name)
	if err != nil {
		return a.fail(ctx, "Sign Up Failed", "create account", err)
	}
	a.logger.Info(ctx, "account created", "user_id", identity.ID)

	profile := models.Profile{UserID: identity.ID, Name: in.Name, Email: in.Email}
	if err := a.mirrorProfile(ctx, profile); err != nil {
		a.queue(ctx, profile, err, models.StepProfile, models.StepVerification)
		return a.fail(ctx, "Sign Up Failed", "create profile document", err)
	}

	if err := a.client.CreateVerification(ctx, a.opts.RedirectURL); err != nil {
		a.queue(ctx, profile, err, models.StepVerification)
		return a.fail(ctx, "Sign Up Failed", "request verification email", err)
	}
	a.logger.Info(ctx, "verification email requested", "user_id", identity.ID)

	if err := a.login(ctx, in.Email, password); err != nil {
		return err
	}

	a.notify(models.NoticeSuccess, "Sign Up Successful", "Please check your email to verify your account.")
	return nil
}

// mirrorProfile writes the profile document under the account id, so a
// retried write cannot create a duplicate.
func (a *AuthController) mirrorProfile(ctx context.Context, p models.Profile) error {
	err := a.client.CreateDocument(ctx, a.opts.DatabaseID, a.opts.ProfileCollectionID, p.UserID, p.Fields())
	if errors.Is(err, client.ErrConflict) {
		return nil
	}
	return err
}

func (a *AuthController) queue(ctx context.Context, p models.Profile, cause error, kinds ...models.StepKind) {
	if a.pending == nil {
		a.logger.Warn(ctx, "signup left incomplete, no reconcile queue configured", "user_id", p.UserID)
		return
	}

	steps := make([]*models.PendingStep, 0, len(kinds))
	for _, k := range kinds {
		steps = append(steps, &models.PendingStep{
			UserID:    p.UserID,
			Name:      p.Name,
			Email:     p.Email,
			Step:      k,
			LastError: cause.Error(),
		})
	}
	if err := a.pending.Add(ctx, steps...); err != nil {
		a.logger.Error(ctx, "failed to queue pending signup steps", "user_id", p.UserID, "error", err)
	}
}

// Login creates a session for the credentials and loads the identity.
// The current session is left unchanged on failure.
func (a *AuthController) Login(ctx context.Context, email string, password []byte) error {
	in := newLoginInput(email, password)
	if err := validateInput(a.validate, in); err != nil {
		a.notify(models.NoticeError, "Error", "Please enter both email and password.")
		return err
	}
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	a.setCredentials("", in.Email, password)
	if err := a.login(ctx, in.Email, password); err != nil {
		return err
	}

	a.notify(models.NoticeSuccess, "Login Successful", a.Greeting())
	return nil
}

func (a *AuthController) login(ctx context.Context, email string, password []byte) error {
	rs, err := a.client.CreateSession(ctx, email, string(password))
	if err != nil {
		return a.fail(ctx, "Login Failed", "create session", err)
	}

	identity, err := a.client.GetAccount(ctx)
	if err != nil {
		return a.fail(ctx, "Login Failed", "get account", err)
	}

	a.session.Set(models.NewSession(rs.ID, identity))
	a.logger.Info(ctx, "logged in", "user_id", identity.ID, "email_verified", identity.EmailVerification)
	return nil
}

// Logout deletes the current remote session whether or not a local session
// is known. Local session and credentials are cleared only after the
// service confirmed the deletion, so a failed logout leaves the user logged
// in and able to retry.
func (a *AuthController) Logout(ctx context.Context) error {
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	if err := a.client.DeleteSession(ctx, models.CurrentSessionID); err != nil {
		a.logger.Error(ctx, "delete session failed", "error", err)
		a.notify(models.NoticeError, "Error", "Failed to logout.")
		return fmt.Errorf("%w: delete session: %w", common.ErrAuth, err)
	}

	a.session.Set(nil)
	a.clearCredentials()
	a.notify(models.NoticeInfo, "Logged Out", "You have been signed out.")
	a.logger.Info(ctx, "logged out")
	return nil
}

// CurrentSession asks the service for a session that outlived the previous
// run. No session is the normal logged-out state: (nil, nil).
func (a *AuthController) CurrentSession(ctx context.Context) (*models.Session, error) {
	identity, err := a.client.GetAccount(ctx)
	if err != nil {
		if errors.Is(err, client.ErrNoSession) {
			a.logger.Info(ctx, "no active session")
			a.session.Set(nil)
			return nil, nil
		}
		a.logger.Warn(ctx, "could not check current session", "error", err)
		return nil, fmt.Errorf("%w: get account: %w", common.ErrAuth, err)
	}

	s := models.NewSession(models.CurrentSessionID, identity)
	a.session.Set(s)
	return s, nil
}

// RefreshSession reloads the identity of the current session, keeping its
// session id. Without a session there is nothing to refresh: (nil, nil).
func (a *AuthController) RefreshSession(ctx context.Context) (*models.Session, error) {
	cur := a.session.Get()
	if cur == nil {
		return nil, nil
	}

	identity, err := a.client.GetAccount(ctx)
	if err != nil {
		if errors.Is(err, client.ErrNoSession) {
			a.session.Set(nil)
		}
		return nil, fmt.Errorf("%w: refresh session: %w", common.ErrAuth, err)
	}

	s := models.NewSession(cur.SessionID, identity)
	a.session.Set(s)
	return s, nil
}

// ResendVerification requests a new verification email for the current
// session. It may be called any number of times. A verified session is not
// prompted again.
func (a *AuthController) ResendVerification(ctx context.Context) error {
	s := a.session.Get()
	if s == nil {
		a.notify(models.NoticeError, "Error", "Please log in first to resend verification email.")
		return fmt.Errorf("%w: resend verification requires an active session", common.ErrState)
	}
	if s.EmailVerification {
		a.notify(models.NoticeInfo, "Already Verified", "Your email address is already verified.")
		return nil
	}
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	if err := a.client.CreateVerification(ctx, a.opts.RedirectURL); err != nil {
		return a.fail(ctx, "Error", "request verification email", err)
	}

	a.notify(models.NoticeSuccess, "Verification Email Sent", "Please check your email and click the verification link.")
	return nil
}

// Reconcile retries the signup steps queued for the current user. Each step
// that succeeds is removed; failed steps stay queued.
func (a *AuthController) Reconcile(ctx context.Context) error {
	s := a.session.Get()
	if s == nil {
		a.notify(models.NoticeError, "Error", "Please log in first to finish your signup.")
		return fmt.Errorf("%w: reconcile requires an active session", common.ErrState)
	}
	if a.pending == nil {
		a.notify(models.NoticeInfo, "Nothing To Do", "There are no unfinished signup steps.")
		return nil
	}
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	steps, err := a.pending.ListByUser(ctx, s.UserID)
	if err != nil {
		a.logger.Error(ctx, "list pending steps failed", "error", err)
		a.notify(models.NoticeError, "Error", "Could not read unfinished signup steps.")
		return err
	}
	if len(steps) == 0 {
		a.notify(models.NoticeInfo, "Nothing To Do", "There are no unfinished signup steps.")
		return nil
	}

	var errs []error
	done := 0
	for _, step := range steps {
		if err := a.runStep(ctx, s, step); err != nil {
			a.logger.Warn(ctx, "pending step failed again", "step", step.Step, "error", err)
			if merr := a.pending.MarkAttempt(ctx, step.ID, err.Error()); merr != nil {
				a.logger.Error(ctx, "mark attempt failed", "error", merr)
			}
			errs = append(errs, fmt.Errorf("%s: %w", step.Step, err))
			continue
		}
		if err := a.pending.Delete(ctx, step.ID); err != nil {
			a.logger.Error(ctx, "delete pending step failed", "error", err)
		}
		done++
	}

	if len(errs) > 0 {
		a.notify(models.NoticeError, "Signup Incomplete",
			fmt.Sprintf("Completed %d of %d unfinished steps. Try again later.", done, len(steps)))
		return fmt.Errorf("%w: reconcile: %w", common.ErrAuth, errors.Join(errs...))
	}
	a.notify(models.NoticeSuccess, "Signup Complete", fmt.Sprintf("Completed %d unfinished signup steps.", done))
	return nil
}

func (a *AuthController) runStep(ctx context.Context, s *models.Session, step *models.PendingStep) error {
	switch step.Step {
	case models.StepProfile:
		return a.mirrorProfile(ctx, step.Profile())
	case models.StepVerification:
		if s.EmailVerification {
			return nil
		}
		return a.client.CreateVerification(ctx, a.opts.RedirectURL)
	default:
		return fmt.Errorf("unknown step %q", step.Step)
	}
}

// IssueJWT mints a short-lived JWT for the current session and returns it
// with its expiry. The token is decoded locally without verification; the
// service that receives it is the one that checks the signature.
func (a *AuthController) IssueJWT(ctx context.Context) (string, time.Time, error) {
	if a.session.Get() == nil {
		return "", time.Time{}, fmt.Errorf("%w: a session is required to issue a token", common.ErrState)
	}

	tok, err := a.client.CreateJWT(ctx)
	if err != nil {
		return "", time.Time{}, a.fail(ctx, "Error", "create jwt", err)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		a.logger.Warn(ctx, "issued token is not a parseable JWT", "error", err)
		return tok, time.Time{}, nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return tok, time.Time{}, nil
	}
	return tok, exp.Time, nil
}

// Greeting is the heading of the auth view.
func (a *AuthController) Greeting() string {
	s := a.session.Get()
	if s == nil {
		return "Login"
	}
	name := strings.TrimSpace(s.Name)
	if name == "" {
		name = s.Email
	}
	return "Welcome, " + name
}
