package services

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/appauth/internal/client/client"
	"github.com/dmitrijs2005/appauth/internal/client/models"
	"github.com/dmitrijs2005/appauth/internal/client/repositories/pending"
	"github.com/dmitrijs2005/appauth/internal/logging"
	"github.com/stretchr/testify/require"
)

// ---- fake client ----

// fakeClient implements client.Client for controller tests. Err fields set
// the outcome of each call, calls records the order of invocations.
type fakeClient struct {
	mu sync.Mutex

	CreateAccountErr      error
	CreateSessionErr      error
	GetAccountErr         error
	DeleteSessionErr      error
	CreateVerificationErr error
	UpdateVerificationErr error
	CreateDocumentErr     error
	CreateJWTErr          error

	Identity models.Identity
	JWT      string

	// block, when set, holds UpdateVerification and CreateVerification
	// until it is closed.
	block   chan struct{}
	entered chan struct{}

	calls []string

	LastAccountID   string
	LastEmail       string
	LastPassword    string
	LastName        string
	LastSessionID   string
	LastRedirectURL string
	LastUserID      string
	LastSecret      string
	LastDocument    map[string]any
	LastDocumentID  string
	LastCollection  string
}

var _ client.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		Identity: models.Identity{ID: "U1", Name: "Amina", Email: "amina@example.com"},
		JWT:      "token",
	}
}

func (f *fakeClient) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) wait() {
	if f.block == nil {
		return
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	<-f.block
}

func (f *fakeClient) CreateAccount(ctx context.Context, id, email, password, name string) (*models.Identity, error) {
	f.record("CreateAccount")
	f.LastAccountID, f.LastEmail, f.LastPassword, f.LastName = id, email, password, name
	if f.CreateAccountErr != nil {
		return nil, f.CreateAccountErr
	}
	ident := f.Identity
	ident.ID = id
	f.Identity = ident
	return &ident, nil
}

func (f *fakeClient) CreateSession(ctx context.Context, email, password string) (*models.RemoteSession, error) {
	f.record("CreateSession")
	f.LastEmail, f.LastPassword = email, password
	if f.CreateSessionErr != nil {
		return nil, f.CreateSessionErr
	}
	return &models.RemoteSession{ID: "S1", UserID: f.Identity.ID, Current: true}, nil
}

func (f *fakeClient) GetAccount(ctx context.Context) (*models.Identity, error) {
	f.record("GetAccount")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetAccountErr != nil {
		return nil, f.GetAccountErr
	}
	ident := f.Identity
	return &ident, nil
}

func (f *fakeClient) DeleteSession(ctx context.Context, sessionID string) error {
	f.record("DeleteSession")
	f.LastSessionID = sessionID
	return f.DeleteSessionErr
}

func (f *fakeClient) CreateVerification(ctx context.Context, redirectURL string) error {
	f.record("CreateVerification")
	f.mu.Lock()
	f.LastRedirectURL = redirectURL
	f.mu.Unlock()
	f.wait()
	return f.CreateVerificationErr
}

func (f *fakeClient) UpdateVerification(ctx context.Context, userID, secret string) error {
	f.record("UpdateVerification")
	f.mu.Lock()
	f.LastUserID, f.LastSecret = userID, secret
	f.mu.Unlock()
	f.wait()
	return f.UpdateVerificationErr
}

func (f *fakeClient) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) error {
	f.record("CreateDocument")
	f.LastCollection, f.LastDocumentID, f.LastDocument = collectionID, documentID, data
	return f.CreateDocumentErr
}

func (f *fakeClient) CreateJWT(ctx context.Context) (string, error) {
	f.record("CreateJWT")
	return f.JWT, f.CreateJWTErr
}

func (f *fakeClient) Close() error { return nil }

// setVerified flips the identity flag the service reports.
func (f *fakeClient) setVerified(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Identity.EmailVerification = v
}

// ---- helpers ----

var testOpts = AuthOptions{
	RedirectURL:         "https://example.com/verify",
	DatabaseID:          "db",
	ProfileCollectionID: "users",
}

func setupPending(t *testing.T) *pending.SQLiteRepository {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pending.NewSQLiteRepository(db)
}

func newAuth(t *testing.T, fc *fakeClient, repo pending.Repository) *AuthController {
	t.Helper()
	a := NewAuthController(fc, repo, testOpts, logging.Discard())
	a.newID = func() string { return "U1" }
	return a
}

// noticeRecorder collects published notices.
type noticeRecorder struct {
	mu sync.Mutex
	ns []models.Notice
}

func recordNotices(t *testing.T, src interface {
	Subscribe(func(models.Notice)) func()
}) *noticeRecorder {
	t.Helper()
	r := &noticeRecorder{}
	unsub := src.Subscribe(func(n models.Notice) {
		r.mu.Lock()
		r.ns = append(r.ns, n)
		r.mu.Unlock()
	})
	t.Cleanup(unsub)
	return r
}

func (r *noticeRecorder) All() []models.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notice(nil), r.ns...)
}

func (r *noticeRecorder) Last() models.Notice {
	all := r.All()
	if len(all) == 0 {
		return models.Notice{}
	}
	return all[len(all)-1]
}
