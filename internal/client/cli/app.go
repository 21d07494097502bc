package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/appauth/internal/client/client"
	"github.com/dmitrijs2005/appauth/internal/client/config"
	"github.com/dmitrijs2005/appauth/internal/client/deeplink"
	"github.com/dmitrijs2005/appauth/internal/client/models"
	"github.com/dmitrijs2005/appauth/internal/client/observe"
	"github.com/dmitrijs2005/appauth/internal/client/repositories/pending"
	"github.com/dmitrijs2005/appauth/internal/client/services"
	"github.com/dmitrijs2005/appauth/internal/logging"
)

// View is the screen the REPL currently shows.
type View string

const (
	ViewLogin  View = "login"
	ViewVerify View = "verify"
)

// authController is the subset of *services.AuthController used here.
type authController interface {
	Signup(ctx context.Context, name, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) error
	Logout(ctx context.Context) error
	CurrentSession(ctx context.Context) (*models.Session, error)
	ResendVerification(ctx context.Context) error
	Reconcile(ctx context.Context) error
	IssueJWT(ctx context.Context) (string, time.Time, error)
	Session() *models.Session
	Sessions() *observe.Value[*models.Session]
	Notices() *observe.Value[models.Notice]
	Greeting() string
}

// verificationController is the subset of *services.VerificationController
// used here.
type verificationController interface {
	Start(ctx context.Context)
	Close()
	Resend(ctx context.Context) error
	SyncSession(s *models.Session)
	CanResend() bool
	Status() *observe.Value[models.VerificationStatus]
	Notices() *observe.Value[models.Notice]
}

type App struct {
	config *config.Config
	logger logging.Logger
	out    *syncWriter
	reader *bufio.Reader

	auth         authController
	verification verificationController
	links        *deeplink.Dispatcher

	mu   sync.Mutex
	view View

	unsubs  []func()
	closers []func() error
}

// NewApp wires the service client, local state database, deep-link
// dispatcher and both controllers from c.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.StateDBPath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.StateDBPath, "error", err)
		return nil, err
	}

	api, err := client.NewHTTPClient(client.Options{
		Endpoint:  c.Endpoint,
		ProjectID: c.ProjectID,
		Platform:  c.Platform,
		Timeout:   c.RequestTimeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	links := deeplink.NewDispatcher(logger, 0)
	if c.InitialLink != "" {
		links.SetInitial(c.InitialLink)
	}

	auth := services.NewAuthController(api, pending.NewSQLiteRepository(db), services.AuthOptions{
		RedirectURL:         c.VerificationRedirectURL,
		DatabaseID:          c.DatabaseID,
		ProfileCollectionID: c.ProfileCollectionID,
	}, logger)
	verification := services.NewVerificationController(api, auth, links, c.VerificationRedirectURL, logger)

	a := newApp(c, logger, os.Stdin, os.Stdout, auth, verification, links)
	a.closers = append(a.closers, api.Close, db.Close)
	return a, nil
}

func newApp(c *config.Config, logger logging.Logger, in io.Reader, out io.Writer,
	auth authController, verification verificationController, links *deeplink.Dispatcher,
) *App {
	a := &App{
		config:       c,
		logger:       logger,
		out:          &syncWriter{w: out},
		reader:       bufio.NewReader(in),
		auth:         auth,
		verification: verification,
		links:        links,
		view:         ViewLogin,
	}

	a.unsubs = append(a.unsubs,
		auth.Notices().Subscribe(a.printNotice),
		verification.Notices().Subscribe(a.printNotice),
		auth.Sessions().Subscribe(a.onSession),
		verification.Status().Subscribe(a.onStatus),
	)
	return a
}

// Run picks up an existing session, starts the deep-link consumer and the
// optional loopback receiver, and blocks in the REPL until the user exits or
// input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close()

	a.println("Welcome to appauth (type 'help' for commands)")

	if s, err := a.auth.CurrentSession(ctx); err != nil {
		a.println("Could not reach the account service; you can still log in.")
	} else if s != nil {
		a.println(a.auth.Greeting())
		if s.NeedsVerification() {
			a.setView(ViewVerify)
		}
	}

	a.verification.Start(ctx)

	var wg sync.WaitGroup
	if addr := a.config.LinkListenAddr; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := deeplink.Serve(ctx, addr, deeplink.NewReceiver(a.links, a.config.DeepLinkScheme, a.logger), func(bound net.Addr) {
				a.logger.Info(ctx, "link receiver listening", "addr", bound.String())
			})
			if err != nil {
				a.logger.Error(ctx, "link receiver stopped", "error", err)
			}
		}()
	}

	runREPL(ctx, a, a.prompt, bufio.NewScanner(a.reader), a.println)

	cancel()
	wg.Wait()
}

// Close stops the deep-link consumer and releases the database and client.
func (a *App) Close() {
	a.verification.Close()
	for _, u := range a.unsubs {
		u()
	}
	a.unsubs = nil
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

func (a *App) setView(v View) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.view = v
}

func (a *App) isLoggedIn() bool {
	return a.auth.Session() != nil
}

func (a *App) inVerifyView() bool {
	return a.View() == ViewVerify
}

// prompt renders the REPL prompt: the view, the verification state while
// in the verify view, and the signed-in email.
func (a *App) prompt() string {
	s := "appauth (" + string(a.View())
	if a.inVerifyView() {
		s += ": " + string(a.verification.Status().Get().State)
	}
	s += ")"
	if sess := a.auth.Session(); sess != nil {
		s += " " + sess.Email
	}
	return s + "> "
}

func (a *App) println(args ...any) (int, error) {
	return fmt.Fprintln(a.out, args...)
}

func (a *App) printNotice(n models.Notice) {
	if n.Title == "" && n.Body == "" {
		return
	}
	a.println(fmt.Sprintf("[%s] %s: %s", n.Level, n.Title, n.Body))
}

// onSession shows the unverified-email reminder for every new unverified
// session and keeps the verification state in step with the session.
func (a *App) onSession(s *models.Session) {
	a.verification.SyncSession(s)
	if s.NeedsVerification() {
		a.println("Email not verified: please verify your email to access all features. Type 'resend' for a new link.")
	}
}

func (a *App) onStatus(st models.VerificationStatus) {
	a.logger.Debug(context.Background(), "verification state changed", "state", st.State)
	if st.State == models.VerificationSuccess && a.inVerifyView() {
		a.println("Your email is verified. Type 'home' to go back.")
	}
}

// syncWriter serializes output from the REPL and from notice callbacks,
// which may run on the deep-link consumer goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
