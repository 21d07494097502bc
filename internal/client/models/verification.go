package models

// VerificationToken is the single-use (userId, secret) pair carried by a
// verification deep link.
type VerificationToken struct {
	UserID string
	Secret string
}

type VerificationState string

const (
	VerificationPending   VerificationState = "pending"
	VerificationVerifying VerificationState = "verifying"
	VerificationSuccess   VerificationState = "success"
	VerificationError     VerificationState = "error"
	VerificationResending VerificationState = "resending"
)

// VerificationStatus is the observable state of the verification view.
// Message is set only in the error state.
type VerificationStatus struct {
	State   VerificationState
	Message string
}

// Busy reports whether a network operation is running for this state.
func (s VerificationStatus) Busy() bool {
	return s.State == VerificationVerifying || s.State == VerificationResending
}
