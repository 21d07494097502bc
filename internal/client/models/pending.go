package models

import "time"

// StepKind names a signup step that can be retried after the account exists.
type StepKind string

const (
	StepProfile      StepKind = "profile"
	StepVerification StepKind = "verification"
)

// PendingStep is a signup step that failed after account creation and waits
// for an explicit reconcile.
type PendingStep struct {
	ID        int64
	UserID    string
	Name      string
	Email     string
	Step      StepKind
	LastError string
	Attempts  int
	CreatedAt time.Time
}

// Profile returns the profile document this step mirrors.
func (p *PendingStep) Profile() Profile {
	return Profile{UserID: p.UserID, Name: p.Name, Email: p.Email}
}
