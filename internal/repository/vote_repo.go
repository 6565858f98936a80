package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresVoteRepository is the pgx-backed vote store.
type PostgresVoteRepository struct {
	db *pgxpool.Pool
}

// NewPostgresVoteRepository creates a vote repository.
func NewPostgresVoteRepository(db *pgxpool.Pool) *PostgresVoteRepository {
	return &PostgresVoteRepository{db: db}
}

// AddVoteAtomic is the store-native atomic vote routine: the guarded insert
// and the counter increment commit together or not at all. Two voters racing
// on the same pair see exactly one accepted=true; the loser's insert hits the
// primary key and leaves the counter alone. Retrying after a network failure
// is safe because the insert is idempotent under the constraint.
func (r *PostgresVoteRepository) AddVoteAtomic(ctx context.Context, requestID, userID string) (bool, int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO votes (request_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (request_id, user_id) DO NOTHING
	`, requestID, userID)
	if err != nil {
		return false, 0, err
	}

	if tag.RowsAffected() == 0 {
		// Duplicate vote: report the current counter without mutating it.
		var votes int
		if err := tx.QueryRow(ctx, `SELECT votes FROM requests WHERE id = $1`, requestID).Scan(&votes); err != nil {
			return false, 0, err
		}
		return false, votes, tx.Commit(ctx)
	}

	var votes int
	err = tx.QueryRow(ctx, `
		UPDATE requests SET votes = votes + 1 WHERE id = $1 RETURNING votes
	`, requestID).Scan(&votes)
	if err != nil {
		return false, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, err
	}
	return true, votes, nil
}

// Count returns the number of vote rows for a request.
func (r *PostgresVoteRepository) Count(ctx context.Context, requestID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE request_id = $1`, requestID).Scan(&count)
	return count, err
}

// HasVoted reports whether the (request, user) pair exists.
func (r *PostgresVoteRepository) HasVoted(ctx context.Context, requestID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM votes WHERE request_id = $1 AND user_id = $2
		)
	`, requestID, userID).Scan(&exists)
	return exists, err
}
