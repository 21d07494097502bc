package pending

import (
	"context"

	"github.com/dmitrijs2005/appauth/internal/client/models"
)

type Repository interface {
	Add(ctx context.Context, steps ...*models.PendingStep) error
	ListByUser(ctx context.Context, userID string) ([]*models.PendingStep, error)
	MarkAttempt(ctx context.Context, id int64, lastErr string) error
	Delete(ctx context.Context, id int64) error
}
