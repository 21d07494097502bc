package models

// Profile is the denormalized copy of the account stored as a document on
// signup. It never carries the password.
type Profile struct {
	UserID string
	Name   string
	Email  string
}

// Fields returns the document body.
func (p Profile) Fields() map[string]any {
	return map[string]any{
		"userId": p.UserID,
		"name":   p.Name,
		"email":  p.Email,
	}
}
