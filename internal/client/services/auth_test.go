package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/appauth/internal/client/client"
	"github.com/dmitrijs2005/appauth/internal/client/models"
	"github.com/dmitrijs2005/appauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup_BlankFieldsFailWithoutRemoteCalls(t *testing.T) {
	cases := []struct {
		name, email, password string
	}{
		{"", "amina@example.com", "secret123"},
		{"   ", "amina@example.com", "secret123"},
		{"Amina", "", "secret123"},
		{"Amina", "\t\n", "secret123"},
		{"Amina", "amina@example.com", ""},
		{"Amina", "amina@example.com", "   "},
		{"", "", ""},
	}

	for _, tc := range cases {
		fc := newFakeClient()
		a := newAuth(t, fc, nil)
		notices := recordNotices(t, a.Notices())

		err := a.Signup(context.Background(), tc.name, tc.email, []byte(tc.password))
		require.ErrorIs(t, err, common.ErrValidation, "%q/%q/%q", tc.name, tc.email, tc.password)
		assert.Empty(t, fc.Calls())
		assert.Nil(t, a.Session())
		assert.Equal(t, "Please fill in all fields.", notices.Last().Body)
	}
}

func TestLogin_BlankFieldsFailWithoutRemoteCalls(t *testing.T) {
	cases := []struct{ email, password string }{
		{"", "secret123"},
		{"  ", "secret123"},
		{"amina@example.com", ""},
		{"amina@example.com", " \t"},
	}

	for _, tc := range cases {
		fc := newFakeClient()
		a := newAuth(t, fc, nil)
		notices := recordNotices(t, a.Notices())

		err := a.Login(context.Background(), tc.email, []byte(tc.password))
		require.ErrorIs(t, err, common.ErrValidation)
		assert.Empty(t, fc.Calls())
		assert.Equal(t, models.NoticeError, notices.Last().Level)
		assert.Equal(t, "Please enter both email and password.", notices.Last().Body)
	}
}

func TestSignup_Success(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, setupPending(t))
	notices := recordNotices(t, a.Notices())

	err := a.Signup(context.Background(), " Amina ", "amina@example.com", []byte("secret123"))
	require.NoError(t, err)

	assert.Equal(t, []string{"CreateAccount", "CreateDocument", "CreateVerification", "CreateSession", "GetAccount"}, fc.Calls())

	assert.Equal(t, "U1", fc.LastAccountID)
	assert.Equal(t, "Amina", fc.LastName)
	assert.Equal(t, "secret123", fc.LastPassword)

	assert.Equal(t, "users", fc.LastCollection)
	assert.Equal(t, "U1", fc.LastDocumentID)
	assert.Equal(t, map[string]any{"userId": "U1", "name": "Amina", "email": "amina@example.com"}, fc.LastDocument)
	assert.NotContains(t, fc.LastDocument, "password")

	assert.Equal(t, testOpts.RedirectURL, fc.LastRedirectURL)

	s := a.Session()
	require.NotNil(t, s)
	assert.Equal(t, "U1", s.UserID)
	assert.Equal(t, "S1", s.SessionID)
	assert.False(t, s.EmailVerification)
	assert.True(t, s.NeedsVerification())

	last := notices.Last()
	assert.Equal(t, models.NoticeSuccess, last.Level)
	assert.Equal(t, "Sign Up Successful", last.Title)
	assert.Equal(t, "Please check your email to verify your account.", last.Body)
}

func TestSignup_AccountFailureStopsEverything(t *testing.T) {
	fc := newFakeClient()
	fc.CreateAccountErr = &client.APIError{Status: 409, Message: "A user with the same email already exists."}
	repo := setupPending(t)
	a := newAuth(t, fc, repo)
	notices := recordNotices(t, a.Notices())

	err := a.Signup(context.Background(), "Amina", "amina@example.com", []byte("secret123"))
	require.ErrorIs(t, err, common.ErrAuth)

	assert.Equal(t, []string{"CreateAccount"}, fc.Calls())
	assert.Nil(t, a.Session())
	assert.Equal(t, "A user with the same email already exists.", notices.Last().Body)

	steps, err := repo.ListByUser(context.Background(), "U1")
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestSignup_DocumentFailureQueuesRemainingSteps(t *testing.T) {
	fc := newFakeClient()
	fc.CreateDocumentErr = client.ErrUnavailable
	repo := setupPending(t)
	a := newAuth(t, fc, repo)

	err := a.Signup(context.Background(), "Amina", "amina@example.com", []byte("secret123"))
	require.ErrorIs(t, err, common.ErrAuth)
	require.ErrorIs(t, err, client.ErrUnavailable)

	assert.Equal(t, []string{"CreateAccount", "CreateDocument"}, fc.Calls())
	assert.Nil(t, a.Session())

	steps, err := repo.ListByUser(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, models.StepProfile, steps[0].Step)
	assert.Equal(t, models.StepVerification, steps[1].Step)
	assert.Equal(t, "Amina", steps[0].Name)
	assert.Contains(t, steps[0].LastError, "unavailable")
}

func TestSignup_VerificationFailureQueuesVerificationOnly(t *testing.T) {
	fc := newFakeClient()
	fc.CreateVerificationErr = client.ErrUnavailable
	repo := setupPending(t)
	a := newAuth(t, fc, repo)

	err := a.Signup(context.Background(), "Amina", "amina@example.com", []byte("secret123"))
	require.ErrorIs(t, err, common.ErrAuth)
	assert.Equal(t, []string{"CreateAccount", "CreateDocument", "CreateVerification"}, fc.Calls())

	steps, err := repo.ListByUser(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, models.StepVerification, steps[0].Step)
}

func TestSignup_ExistingProfileDocumentIsAccepted(t *testing.T) {
	fc := newFakeClient()
	fc.CreateDocumentErr = client.ErrConflict
	a := newAuth(t, fc, nil)

	require.NoError(t, a.Signup(context.Background(), "Amina", "amina@example.com", []byte("secret123")))
	assert.NotNil(t, a.Session())
}

func TestSignup_WithoutQueueStillFails(t *testing.T) {
	fc := newFakeClient()
	fc.CreateDocumentErr = errors.New("boom")
	a := newAuth(t, fc, nil)

	err := a.Signup(context.Background(), "Amina", "amina@example.com", []byte("secret123"))
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestLogin_ReflectsRemoteVerificationFlag(t *testing.T) {
	for _, verified := range []bool{false, true} {
		fc := newFakeClient()
		fc.Identity.EmailVerification = verified
		a := newAuth(t, fc, nil)

		require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))

		s := a.Session()
		require.NotNil(t, s)
		assert.Equal(t, verified, s.EmailVerification)
		assert.Equal(t, []string{"CreateSession", "GetAccount"}, fc.Calls())
		assert.Equal(t, "amina@example.com", a.Credentials().Email)
	}
}

func TestLogin_FailureLeavesSessionNil(t *testing.T) {
	fc := newFakeClient()
	fc.CreateSessionErr = &client.APIError{Status: 401, Message: "Invalid credentials."}
	a := newAuth(t, fc, nil)
	notices := recordNotices(t, a.Notices())

	err := a.Login(context.Background(), "amina@example.com", []byte("wrong"))
	require.ErrorIs(t, err, common.ErrAuth)
	assert.Nil(t, a.Session())

	last := notices.Last()
	assert.Equal(t, "Login Failed", last.Title)
	assert.Equal(t, "Invalid credentials.", last.Body)
}

func TestLogin_IdentityFetchFailure(t *testing.T) {
	fc := newFakeClient()
	fc.GetAccountErr = client.ErrUnavailable
	a := newAuth(t, fc, nil)

	err := a.Login(context.Background(), "amina@example.com", []byte("secret123"))
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Nil(t, a.Session())
}

func TestLogin_SessionChangeIsObservable(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)

	var seen []*models.Session
	unsub := a.Sessions().Subscribe(func(s *models.Session) { seen = append(seen, s) })
	defer unsub()

	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))
	require.NoError(t, a.Logout(context.Background()))

	require.Len(t, seen, 2)
	assert.Equal(t, "U1", seen[0].UserID)
	assert.Nil(t, seen[1])
}

func TestLogout_ClearsSessionAndCredentials(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))

	require.NoError(t, a.Logout(context.Background()))

	assert.Equal(t, models.CurrentSessionID, fc.LastSessionID)
	assert.Nil(t, a.Session())
	creds := a.Credentials()
	assert.True(t, creds.Empty())
}

func TestLogout_FailureKeepsLocalState(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))
	notices := recordNotices(t, a.Notices())

	fc.DeleteSessionErr = client.ErrUnavailable
	err := a.Logout(context.Background())
	require.ErrorIs(t, err, common.ErrAuth)
	require.ErrorIs(t, err, client.ErrUnavailable)

	assert.NotNil(t, a.Session())
	assert.Equal(t, "amina@example.com", a.Credentials().Email)
	assert.Equal(t, "Failed to logout.", notices.Last().Body)
}

func TestLogout_WithoutLocalSessionStillDestroysRemote(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)

	require.NoError(t, a.Logout(context.Background()))
	assert.Equal(t, []string{"DeleteSession"}, fc.Calls())
}

func TestCurrentSession(t *testing.T) {
	t.Run("no session is not an error", func(t *testing.T) {
		fc := newFakeClient()
		fc.GetAccountErr = client.ErrNoSession
		a := newAuth(t, fc, nil)

		s, err := a.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Nil(t, a.Session())
	})

	t.Run("existing session", func(t *testing.T) {
		fc := newFakeClient()
		fc.Identity.EmailVerification = true
		a := newAuth(t, fc, nil)

		s, err := a.CurrentSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, models.CurrentSessionID, s.SessionID)
		assert.True(t, s.EmailVerification)
		assert.Same(t, s, a.Session())
	})

	t.Run("service unreachable", func(t *testing.T) {
		fc := newFakeClient()
		fc.GetAccountErr = client.ErrUnavailable
		a := newAuth(t, fc, nil)

		_, err := a.CurrentSession(context.Background())
		require.ErrorIs(t, err, common.ErrAuth)
	})
}

func TestRefreshSession_KeepsSessionID(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)

	s, err := a.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Empty(t, fc.Calls())

	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))
	fc.setVerified(true)

	s, err = a.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "S1", s.SessionID)
	assert.True(t, s.EmailVerification)
	assert.True(t, a.Session().EmailVerification)
}

func TestRefreshSession_LostSessionClearsLocal(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))

	fc.GetAccountErr = client.ErrNoSession
	_, err := a.RefreshSession(context.Background())
	require.ErrorIs(t, err, client.ErrNoSession)
	assert.Nil(t, a.Session())
}

func TestResendVerification_RequiresSession(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)
	notices := recordNotices(t, a.Notices())

	err := a.ResendVerification(context.Background())
	require.ErrorIs(t, err, common.ErrState)
	assert.Empty(t, fc.Calls())
	assert.Equal(t, "Please log in first to resend verification email.", notices.Last().Body)
}

func TestResendVerification_Repeatable(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))
	notices := recordNotices(t, a.Notices())

	require.NoError(t, a.ResendVerification(context.Background()))
	require.NoError(t, a.ResendVerification(context.Background()))

	assert.Equal(t, []string{"CreateSession", "GetAccount", "CreateVerification", "CreateVerification"}, fc.Calls())
	assert.Equal(t, "Verification Email Sent", notices.Last().Title)
}

func TestResendVerification_VerifiedSessionSkipsCall(t *testing.T) {
	fc := newFakeClient()
	fc.Identity.EmailVerification = true
	a := newAuth(t, fc, nil)
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))

	require.NoError(t, a.ResendVerification(context.Background()))
	assert.NotContains(t, fc.Calls(), "CreateVerification")
}

func TestResendVerification_Failure(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))

	fc.CreateVerificationErr = client.ErrUnavailable
	err := a.ResendVerification(context.Background())
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestAuth_InFlightGuardRejectsReentry(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))

	fc.block = make(chan struct{})
	fc.entered = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- a.ResendVerification(context.Background()) }()
	<-fc.entered
	assert.True(t, a.Busy())

	before := len(fc.Calls())
	require.ErrorIs(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")), common.ErrBusy)
	require.ErrorIs(t, a.Logout(context.Background()), common.ErrBusy)
	require.ErrorIs(t, a.Signup(context.Background(), "Amina", "amina@example.com", []byte("secret123")), common.ErrState)
	assert.Len(t, fc.Calls(), before)

	close(fc.block)
	require.NoError(t, <-done)
	assert.False(t, a.Busy())
}

func TestReconcile_CompletesQueuedSteps(t *testing.T) {
	fc := newFakeClient()
	fc.CreateDocumentErr = client.ErrUnavailable
	repo := setupPending(t)
	a := newAuth(t, fc, repo)

	require.Error(t, a.Signup(context.Background(), "Amina", "amina@example.com", []byte("secret123")))

	fc.CreateDocumentErr = nil
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))
	notices := recordNotices(t, a.Notices())

	require.NoError(t, a.Reconcile(context.Background()))

	calls := fc.Calls()
	assert.Equal(t, []string{"CreateDocument", "CreateVerification"}, calls[len(calls)-2:])
	assert.Equal(t, "Signup Complete", notices.Last().Title)

	steps, err := repo.ListByUser(context.Background(), "U1")
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestReconcile_FailedStepStaysQueued(t *testing.T) {
	fc := newFakeClient()
	fc.CreateVerificationErr = client.ErrUnavailable
	repo := setupPending(t)
	a := newAuth(t, fc, repo)

	require.Error(t, a.Signup(context.Background(), "Amina", "amina@example.com", []byte("secret123")))
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))

	err := a.Reconcile(context.Background())
	require.ErrorIs(t, err, common.ErrAuth)
	require.ErrorIs(t, err, client.ErrUnavailable)

	steps, err := repo.ListByUser(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 2, steps[0].Attempts)
}

func TestReconcile_RequiresSession(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, setupPending(t))

	require.ErrorIs(t, a.Reconcile(context.Background()), common.ErrState)
	assert.Empty(t, fc.Calls())
}

func TestReconcile_NothingQueued(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, setupPending(t))
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))
	notices := recordNotices(t, a.Notices())

	require.NoError(t, a.Reconcile(context.Background()))
	assert.Equal(t, "Nothing To Do", notices.Last().Title)
}

func TestIssueJWT(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "U1",
		"exp":    exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	fc := newFakeClient()
	fc.JWT = signed
	a := newAuth(t, fc, nil)

	_, _, err = a.IssueJWT(context.Background())
	require.ErrorIs(t, err, common.ErrState)

	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))

	tok, gotExp, err := a.IssueJWT(context.Background())
	require.NoError(t, err)
	assert.Equal(t, signed, tok)
	assert.True(t, exp.Equal(gotExp), "want %v, got %v", exp, gotExp)
}

func TestIssueJWT_OpaqueToken(t *testing.T) {
	fc := newFakeClient()
	fc.JWT = "not-a-jwt"
	a := newAuth(t, fc, nil)
	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))

	tok, exp, err := a.IssueJWT(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", tok)
	assert.True(t, exp.IsZero())
}

func TestGreeting(t *testing.T) {
	fc := newFakeClient()
	a := newAuth(t, fc, nil)
	assert.Equal(t, "Login", a.Greeting())

	require.NoError(t, a.Login(context.Background(), "amina@example.com", []byte("secret123")))
	assert.Equal(t, "Welcome, Amina", a.Greeting())
}
