// Package pending stores signup steps that failed after the remote account
// was created, so they can be retried on an explicit reconcile.
//
// Key Types
//
//   - type Repository        - contract used by the auth controller
//   - type SQLiteRepository  - SQLite implementation over dbx.DBTX
//
// Typical Usage
//
//	repo := pending.NewSQLiteRepository(db)
//	_ = repo.Add(ctx, steps...)
//	list, _ := repo.ListByUser(ctx, userID)
//	_ = repo.Delete(ctx, list[0].ID)
//
// A (user, step) pair is stored at most once; adding it again refreshes the
// last error and bumps the attempt counter.
package pending
