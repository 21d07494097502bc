package deeplink

import (
	"net/url"
	"strings"

	"github.com/dmitrijs2005/appauth/internal/client/models"
)

const (
	paramUserID = "userId"
	paramSecret = "secret"
)

// Parse extracts the verification token from raw. ok is false when the URL
// is malformed or either userId or secret is missing or blank.
func Parse(raw string) (tok models.VerificationToken, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return models.VerificationToken{}, false
	}
	return FromQuery(u.Query())
}

// FromQuery is Parse for already decoded query parameters.
func FromQuery(q url.Values) (models.VerificationToken, bool) {
	userID := strings.TrimSpace(q.Get(paramUserID))
	secret := strings.TrimSpace(q.Get(paramSecret))
	if userID == "" || secret == "" {
		return models.VerificationToken{}, false
	}
	return models.VerificationToken{UserID: userID, Secret: secret}, true
}

// Build returns a link in the application's scheme carrying tok.
func Build(scheme string, tok models.VerificationToken) string {
	u := url.URL{Scheme: scheme, Host: "verify"}
	q := url.Values{}
	q.Set(paramUserID, tok.UserID)
	q.Set(paramSecret, tok.Secret)
	u.RawQuery = q.Encode()
	return u.String()
}
