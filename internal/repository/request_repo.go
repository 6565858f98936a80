package repository

import (
	"context"
	"errors"

	"github.com/encore-live/server/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint rejection.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// PostgresRequestRepository is the pgx-backed request store.
type PostgresRequestRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRequestRepository creates a request repository.
func NewPostgresRequestRepository(db *pgxpool.Pool) *PostgresRequestRepository {
	return &PostgresRequestRepository{db: db}
}

// Create inserts a new request. A concurrent create for the same pending
// title surfaces as domain.ErrDuplicatePendingTitle via the partial unique
// index; callers fall back to attaching to the existing request.
func (r *PostgresRequestRepository) Create(ctx context.Context, req *domain.Request) error {
	query := `
		INSERT INTO requests (id, title, artist, votes, is_locked, is_played, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.Title,
		req.Artist,
		req.Votes,
		req.IsLocked,
		req.IsPlayed,
		req.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicatePendingTitle
	}
	return err
}

// GetByID returns a request, or nil when absent.
func (r *PostgresRequestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	query := `
		SELECT id, title, artist, votes, is_locked, is_played, created_at
		FROM requests
		WHERE id = $1
	`
	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// GetPendingByTitle returns the non-played request with this exact title, or nil.
func (r *PostgresRequestRepository) GetPendingByTitle(ctx context.Context, title string) (*domain.Request, error) {
	query := `
		SELECT id, title, artist, votes, is_locked, is_played, created_at
		FROM requests
		WHERE title = $1 AND NOT is_played
	`
	req, err := scanRequest(r.db.QueryRow(ctx, query, title))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// ListQueue returns non-played requests ordered by votes, then age.
func (r *PostgresRequestRepository) ListQueue(ctx context.Context) ([]*domain.Request, error) {
	query := `
		SELECT id, title, artist, votes, is_locked, is_played, created_at
		FROM requests
		WHERE NOT is_played
		ORDER BY votes DESC, created_at ASC
	`
	return r.queryRequests(ctx, query)
}

// ListAll returns every request, newest first.
func (r *PostgresRequestRepository) ListAll(ctx context.Context) ([]*domain.Request, error) {
	query := `
		SELECT id, title, artist, votes, is_locked, is_played, created_at
		FROM requests
		ORDER BY created_at DESC
	`
	return r.queryRequests(ctx, query)
}

func (r *PostgresRequestRepository) queryRequests(ctx context.Context, query string, args ...any) ([]*domain.Request, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.Request, error) {
	var req domain.Request
	err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Artist,
		&req.Votes,
		&req.IsLocked,
		&req.IsPlayed,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// AddRequester attaches an attendee to a request.
func (r *PostgresRequestRepository) AddRequester(ctx context.Context, rq *domain.Requester) error {
	query := `
		INSERT INTO requesters (id, request_id, name, photo, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		rq.ID,
		rq.RequestID,
		rq.Name,
		rq.Photo,
		rq.Message,
		rq.CreatedAt,
	)
	return err
}

// ListRequesters returns a request's attendees in insertion order.
func (r *PostgresRequestRepository) ListRequesters(ctx context.Context, requestID string) ([]*domain.Requester, error) {
	query := `
		SELECT id, request_id, name, photo, message, created_at
		FROM requesters
		WHERE request_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requesters []*domain.Requester
	for rows.Next() {
		var rq domain.Requester
		err := rows.Scan(
			&rq.ID,
			&rq.RequestID,
			&rq.Name,
			&rq.Photo,
			&rq.Message,
			&rq.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		requesters = append(requesters, &rq)
	}
	return requesters, rows.Err()
}

// SetLockedExclusive unlocks every other request, then sets the target's
// flag, as one transaction. The unlock-first pass keeps the at-most-one-locked
// invariant even when two staff devices race.
func (r *PostgresRequestRepository) SetLockedExclusive(ctx context.Context, id string, locked bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if locked {
		if _, err := tx.Exec(ctx, `UPDATE requests SET is_locked = FALSE WHERE is_locked AND id <> $1`, id); err != nil {
			return err
		}
	}
	tag, err := tx.Exec(ctx, `UPDATE requests SET is_locked = $2 WHERE id = $1 AND NOT is_played`, id, locked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}

	return tx.Commit(ctx)
}

// MarkPlayed finalizes a request. Repeated calls leave the same terminal
// state and report no error.
func (r *PostgresRequestRepository) MarkPlayed(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE requests SET is_played = TRUE, is_locked = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

// ResetQueue finalizes every live request and purges all vote rows in one
// transaction, returning the number of requests cleared.
func (r *PostgresRequestRepository) ResetQueue(ctx context.Context) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE requests
		SET is_played = TRUE, is_locked = FALSE, votes = 0
		WHERE NOT is_played
	`)
	if err != nil {
		return 0, err
	}
	cleared := int(tag.RowsAffected())

	// Purge votes so the same users can vote on future requests.
	if _, err := tx.Exec(ctx, `DELETE FROM votes`); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return cleared, nil
}
