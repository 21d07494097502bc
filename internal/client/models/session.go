package models

// CurrentSessionID addresses the session the client is currently using.
const CurrentSessionID = "current"

// Session is the local, in-memory view of an authenticated identity.
// It is never written to disk.
type Session struct {
	SessionID         string
	UserID            string
	Name              string
	Email             string
	EmailVerification bool
}

// NewSession builds a Session from an identity. An empty sessionID means
// the session was picked up at start-up and is addressed as "current".
func NewSession(sessionID string, id *Identity) *Session {
	if sessionID == "" {
		sessionID = CurrentSessionID
	}
	return &Session{
		SessionID:         sessionID,
		UserID:            id.ID,
		Name:              id.Name,
		Email:             id.Email,
		EmailVerification: id.EmailVerification,
	}
}

// NeedsVerification reports whether the session must keep offering a resend.
func (s *Session) NeedsVerification() bool {
	return s != nil && !s.EmailVerification
}
