// Package common defines the error kinds shared by the auth and verification
// controllers. Controllers wrap transport errors with a kind, so callers can
// match both:
//
//	errors.Is(err, common.ErrAuth)          // what failed
//	errors.Is(err, client.ErrUnauthorized)  // why it failed
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation: bad local input. Never reaches the network.
	ErrValidation = errors.New("validation error")

	// ErrAuth: the remote service rejected the request or was unreachable.
	ErrAuth = errors.New("auth error")

	// ErrState: a precondition such as an active session is not met.
	ErrState = errors.New("state error")

	// ErrVerification: the verification token is invalid, expired or used.
	ErrVerification = errors.New("verification error")

	// ErrBusy is returned when another operation of the same controller is
	// still in flight.
	ErrBusy = fmt.Errorf("%w: operation already in progress", ErrState)
)
