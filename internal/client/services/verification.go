package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/appauth/internal/client/client"
	"github.com/dmitrijs2005/appauth/internal/client/deeplink"
	"github.com/dmitrijs2005/appauth/internal/client/models"
	"github.com/dmitrijs2005/appauth/internal/client/observe"
	"github.com/dmitrijs2005/appauth/internal/common"
	"github.com/dmitrijs2005/appauth/internal/logging"
	"golang.org/x/crypto/blake2b"
)

const (
	msgVerified        = "Email verified successfully!"
	msgVerifyFailed    = "We couldn't verify your email. The link may have expired or been used already."
	msgResent          = "A new verification email has been sent to your inbox."
	msgResendFailed    = "Failed to resend verification email."
	msgResendNoLogin   = "Please log in first to resend verification email."
	msgAlreadyVerified = "Your email address is already verified."
)

// SessionSource is the part of the auth controller the verification
// controller depends on.
type SessionSource interface {
	Session() *models.Session
	RefreshSession(ctx context.Context) (*models.Session, error)
}

// VerificationController drives the email verification state machine:
//
//	pending|error -> verifying -> success|error   (deep link)
//	pending|error -> resending -> pending|error   (Resend)
//
// success is terminal for the signed-in user. A session for another user
// (or none) starts over from pending and forgets consumed tokens. Tokens that
// reached a final answer are remembered by fingerprint, so the same link
// delivered by a second source is dropped.
type VerificationController struct {
	client      client.Client
	auth        SessionSource
	links       deeplink.Subscriber
	redirectURL string
	logger      logging.Logger

	// stateMu orders state changes made by SyncSession against the start
	// and end of an operation.
	stateMu  sync.Mutex
	inFlight atomic.Bool
	userID   string
	deferred *models.Session
	hasSync  bool
	status   *observe.Value[models.VerificationStatus]
	notices  *observe.Value[models.Notice]

	mu       sync.Mutex
	consumed map[[blake2b.Size256]byte]struct{}

	startOnce   sync.Once
	closeOnce   sync.Once
	closed      atomic.Bool
	unsubscribe func()
	done        chan struct{}
}

// NewVerificationController creates the controller. When the current
// session is already verified it starts in success and never asks for
// verification again.
func NewVerificationController(c client.Client, auth SessionSource, links deeplink.Subscriber, redirectURL string, logger logging.Logger) *VerificationController {
	initial := models.VerificationStatus{State: models.VerificationPending}
	var userID string
	if s := auth.Session(); s != nil {
		userID = s.UserID
		if s.EmailVerification {
			initial.State = models.VerificationSuccess
		}
	}

	return &VerificationController{
		client:      c,
		auth:        auth,
		links:       links,
		redirectURL: redirectURL,
		logger:      logger.With("component", "verification"),
		userID:      userID,
		status:      observe.NewValue(initial),
		notices:     observe.NewValue(models.Notice{}),
		consumed:    make(map[[blake2b.Size256]byte]struct{}),
	}
}

// Status returns the observable verification status.
func (v *VerificationController) Status() *observe.Value[models.VerificationStatus] {
	return v.status
}

// Notices returns the observable stream of user-facing messages.
func (v *VerificationController) Notices() *observe.Value[models.Notice] {
	return v.notices
}

// State returns the current state.
func (v *VerificationController) State() models.VerificationState {
	return v.status.Get().State
}

// CanResend reports whether the view should offer a resend.
func (v *VerificationController) CanResend() bool {
	st := v.status.Get().State
	return v.auth.Session().NeedsVerification() &&
		(st == models.VerificationPending || st == models.VerificationError)
}

// SyncSession follows the auth controller's session value. A verified
// session moves the controller to success; a different user, or no user,
// resets it to pending with no consumed tokens. While an operation is in
// flight the session is held and applied when the operation ends.
func (v *VerificationController) SyncSession(s *models.Session) {
	v.stateMu.Lock()
	defer v.stateMu.Unlock()

	if v.inFlight.Load() {
		v.deferred, v.hasSync = s, true
		return
	}
	v.applySession(s)
}

// applySession must be called with stateMu held and no operation in flight.
func (v *VerificationController) applySession(s *models.Session) {
	var userID string
	if s != nil {
		userID = s.UserID
	}

	if userID != v.userID {
		v.userID = userID
		v.mu.Lock()
		clear(v.consumed)
		v.mu.Unlock()
		v.status.Set(models.VerificationStatus{State: models.VerificationPending})
	}
	if s != nil && s.EmailVerification {
		v.status.Set(models.VerificationStatus{State: models.VerificationSuccess})
	}
}

// acquire marks an operation in flight. It fails with common.ErrBusy while
// another one runs and reports false when the email is already verified.
func (v *VerificationController) acquire() (bool, error) {
	v.stateMu.Lock()
	defer v.stateMu.Unlock()

	if !v.inFlight.CompareAndSwap(false, true) {
		return false, common.ErrBusy
	}
	if v.State() == models.VerificationSuccess {
		v.inFlight.Store(false)
		return false, nil
	}
	return true, nil
}

// release ends the operation and applies a session that arrived meanwhile.
func (v *VerificationController) release() {
	v.stateMu.Lock()
	defer v.stateMu.Unlock()

	v.inFlight.Store(false)
	if v.hasSync {
		s := v.deferred
		v.deferred, v.hasSync = nil, false
		v.applySession(s)
	}
}

// Start subscribes to deep links and consumes them on one goroutine until
// ctx is done or Close is called. Calling Start more than once is a no-op.
func (v *VerificationController) Start(ctx context.Context) {
	v.startOnce.Do(func() {
		if v.closed.Load() {
			return
		}

		ch, unsubscribe := v.links.Subscribe()
		v.unsubscribe = unsubscribe
		v.done = make(chan struct{})

		go func() {
			defer close(v.done)
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-ch:
					if !ok || v.closed.Load() {
						return
					}
					if err := v.HandleLink(ctx, raw); errors.Is(err, common.ErrBusy) {
						v.logger.Warn(ctx, "deep link arrived while busy, ignored")
					}
				}
			}
		}()
	})
}

// Close unsubscribes from deep links and waits for the consumer to stop.
// Links delivered afterwards are never acted upon.
func (v *VerificationController) Close() {
	v.closeOnce.Do(func() {
		v.closed.Store(true)
		// blocks a later Start
		v.startOnce.Do(func() {})

		if v.unsubscribe != nil {
			v.unsubscribe()
		}
		if v.done != nil {
			<-v.done
		}
	})
}

// HandleLink verifies the token carried by raw. Links without a usable
// userId and secret are not for us and are ignored.
func (v *VerificationController) HandleLink(ctx context.Context, raw string) error {
	tok, ok := deeplink.Parse(raw)
	if !ok {
		v.logger.Debug(ctx, "ignoring link without verification token")
		return nil
	}
	return v.Verify(ctx, tok)
}

// Verify submits tok. It does nothing once the email is verified or when tok
// was already answered by the service.
func (v *VerificationController) Verify(ctx context.Context, tok models.VerificationToken) error {
	if v.State() == models.VerificationSuccess {
		v.logger.Debug(ctx, "email already verified, link ignored")
		return nil
	}

	fp := fingerprint(tok)
	if v.seen(fp) {
		v.logger.Debug(ctx, "verification token already used, link ignored")
		return nil
	}

	ok, err := v.acquire()
	if !ok {
		return err
	}
	defer v.release()

	v.status.Set(models.VerificationStatus{State: models.VerificationVerifying})

	if err := v.client.UpdateVerification(ctx, tok.UserID, tok.Secret); err != nil {
		v.logger.Error(ctx, "verification rejected", "user_id", tok.UserID, "error", err)

		kind := common.ErrAuth
		if errors.Is(err, client.ErrInvalidToken) {
			kind = common.ErrVerification
			v.remember(fp)
		}

		msg := client.Message(err, msgVerifyFailed)
		v.status.Set(models.VerificationStatus{State: models.VerificationError, Message: msg})
		v.notices.Publish(models.Notice{Level: models.NoticeError, Title: "Verification Failed", Body: msg})
		return fmt.Errorf("%w: confirm verification: %w", kind, err)
	}

	v.remember(fp)
	v.status.Set(models.VerificationStatus{State: models.VerificationSuccess})
	v.notices.Publish(models.Notice{Level: models.NoticeSuccess, Title: "Verified", Body: msgVerified})
	v.logger.Info(ctx, "email verified", "user_id", tok.UserID)

	if _, err := v.auth.RefreshSession(ctx); err != nil {
		v.logger.Warn(ctx, "session refresh after verification failed", "error", err)
	}
	return nil
}

// Resend requests a new verification email. It needs an active session and
// is only possible from pending or error.
func (v *VerificationController) Resend(ctx context.Context) error {
	if v.auth.Session() == nil {
		v.notices.Publish(models.Notice{Level: models.NoticeError, Title: "Error", Body: msgResendNoLogin})
		return fmt.Errorf("%w: resend verification requires an active session", common.ErrState)
	}
	if v.State() == models.VerificationSuccess {
		v.notices.Publish(models.Notice{Level: models.NoticeInfo, Title: "Already Verified", Body: msgAlreadyVerified})
		return fmt.Errorf("%w: email already verified", common.ErrState)
	}

	ok, err := v.acquire()
	if err != nil {
		return err
	}
	if !ok {
		v.notices.Publish(models.Notice{Level: models.NoticeInfo, Title: "Already Verified", Body: msgAlreadyVerified})
		return fmt.Errorf("%w: email already verified", common.ErrState)
	}
	defer v.release()

	v.status.Set(models.VerificationStatus{State: models.VerificationResending})

	if err := v.client.CreateVerification(ctx, v.redirectURL); err != nil {
		v.logger.Error(ctx, "resend verification failed", "error", err)
		v.status.Set(models.VerificationStatus{State: models.VerificationError, Message: msgResendFailed})
		v.notices.Publish(models.Notice{Level: models.NoticeError, Title: "Error", Body: msgResendFailed})
		return fmt.Errorf("%w: request verification email: %w", common.ErrAuth, err)
	}

	v.status.Set(models.VerificationStatus{State: models.VerificationPending})
	v.notices.Publish(models.Notice{Level: models.NoticeSuccess, Title: "Email Sent", Body: msgResent})
	return nil
}

func (v *VerificationController) seen(fp [blake2b.Size256]byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.consumed[fp]
	return ok
}

func (v *VerificationController) remember(fp [blake2b.Size256]byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.consumed[fp] = struct{}{}
}

// fingerprint identifies a token without keeping its secret in memory.
func fingerprint(tok models.VerificationToken) [blake2b.Size256]byte {
	b := make([]byte, 0, len(tok.UserID)+1+len(tok.Secret))
	b = append(b, tok.UserID...)
	b = append(b, 0)
	b = append(b, tok.Secret...)
	sum := blake2b.Sum256(b)
	common.WipeByteArray(b)
	return sum
}
