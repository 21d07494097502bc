package pending

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/appauth/internal/client/models"
	"github.com/dmitrijs2005/appauth/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Add inserts steps, or refreshes an existing (user, step) row. When the
// repository wraps a *sql.DB all rows are written in one transaction.
func (r *SQLiteRepository) Add(ctx context.Context, steps ...*models.PendingStep) error {
	if db, ok := r.db.(*sql.DB); ok {
		return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return NewSQLiteRepository(tx).add(ctx, steps)
		})
	}
	return r.add(ctx, steps)
}

func (r *SQLiteRepository) add(ctx context.Context, steps []*models.PendingStep) error {
	for _, s := range steps {
		created := s.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO pending_steps (user_id, name, email, step, last_error, attempts, created_at)
			VALUES (?, ?, ?, ?, ?, 1, ?)
			ON CONFLICT(user_id, step) DO UPDATE SET
				last_error = excluded.last_error,
				attempts   = pending_steps.attempts + 1
		`, s.UserID, s.Name, s.Email, string(s.Step), s.LastError, created.Unix())
		if err != nil {
			return fmt.Errorf("failed to add pending step %s for %s: %w", s.Step, s.UserID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]*models.PendingStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, email, step, last_error, attempts, created_at
		FROM pending_steps
		WHERE user_id = ?
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending steps: %w", err)
	}
	defer rows.Close()

	var out []*models.PendingStep
	for rows.Next() {
		var (
			s       models.PendingStep
			step    string
			created int64
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Email, &step, &s.LastError, &s.Attempts, &created); err != nil {
			return nil, fmt.Errorf("failed to scan pending step: %w", err)
		}
		s.Step = models.StepKind(step)
		s.CreatedAt = time.Unix(created, 0)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending steps: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkAttempt(ctx context.Context, id int64, lastErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pending_steps SET attempts = attempts + 1, last_error = ? WHERE id = ?
	`, lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to mark attempt on pending step %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_steps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending step %d: %w", id, err)
	}
	return nil
}
