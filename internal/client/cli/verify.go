package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/appauth/internal/client/deeplink"
	"github.com/dmitrijs2005/appauth/internal/common"
)

const msgInProgress = "Verification in progress, please wait."

// Resend asks for a new verification email. In the verify view it drives the
// verification state machine, elsewhere it goes through the auth controller.
// The resend control is off while verifying or resending.
func (a *App) Resend(ctx context.Context) error {
	if a.inVerifyView() {
		if a.verification.Status().Get().Busy() {
			a.println(msgInProgress)
			return common.ErrBusy
		}
		return a.verification.Resend(ctx)
	}
	return a.auth.ResendVerification(ctx)
}

// Open publishes raw to the deep-link dispatcher, the same way the start-up
// link and the loopback receiver do. Links without a token are not sent.
func (a *App) Open(ctx context.Context, raw string) error {
	if _, ok := deeplink.Parse(raw); !ok {
		a.println("Link carries no verification token, ignored.")
		return nil
	}
	a.links.Publish(raw)
	a.println("Link delivered.")
	return nil
}

// Status prints the verification state and, after a failure, its message.
func (a *App) Status(ctx context.Context) error {
	st := a.verification.Status().Get()
	line := fmt.Sprintf("Verification: %s", st.State)
	if st.Message != "" {
		line += " (" + st.Message + ")"
	}
	a.println(line)
	if st.Busy() {
		a.println(msgInProgress)
		return nil
	}
	if a.verification.CanResend() {
		a.println("Didn't get the email? Type 'resend'.")
	}
	return nil
}

// Home leaves the verify view.
func (a *App) Home(ctx context.Context) error {
	a.setView(ViewLogin)
	return nil
}
