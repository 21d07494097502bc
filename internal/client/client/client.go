package client

import (
	"context"

	"github.com/dmitrijs2005/appauth/internal/client/models"
)

// Client is the remote account/session/document service used by the
// controllers. Implementations must honor ctx cancellation.
type Client interface {
	CreateAccount(ctx context.Context, id, email, password, name string) (*models.Identity, error)
	CreateSession(ctx context.Context, email, password string) (*models.RemoteSession, error)
	// GetAccount fails with ErrNoSession when nobody is logged in.
	GetAccount(ctx context.Context) (*models.Identity, error)
	DeleteSession(ctx context.Context, sessionID string) error
	CreateVerification(ctx context.Context, redirectURL string) error
	// UpdateVerification fails with ErrInvalidToken for expired, used or
	// malformed tokens.
	UpdateVerification(ctx context.Context, userID, secret string) error
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) error
	CreateJWT(ctx context.Context) (string, error)
	Close() error
}
