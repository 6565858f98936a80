package repository

import (
	"context"
	"errors"
	"time"

	"github.com/encore-live/server/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSetListRepository is the pgx-backed set list store.
type PostgresSetListRepository struct {
	db *pgxpool.Pool
}

// NewPostgresSetListRepository creates a set list repository.
func NewPostgresSetListRepository(db *pgxpool.Pool) *PostgresSetListRepository {
	return &PostgresSetListRepository{db: db}
}

// Create inserts the set list and its song-position rows in one transaction.
func (r *PostgresSetListRepository) Create(ctx context.Context, sl *domain.SetList, songs []*domain.SetListSong) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO set_lists (id, name, date, notes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sl.ID, sl.Name, sl.Date, sl.Notes, sl.IsActive, sl.CreatedAt, sl.UpdatedAt)
	if err != nil {
		return err
	}

	if err := insertSetListSongs(ctx, tx, sl.ID, songs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Update rewrites the set list row and fully replaces its song rows.
func (r *PostgresSetListRepository) Update(ctx context.Context, sl *domain.SetList, songs []*domain.SetListSong) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE set_lists
		SET name = $2, date = $3, notes = $4, updated_at = $5
		WHERE id = $1
	`, sl.ID, sl.Name, sl.Date, sl.Notes, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSetListNotFound
	}

	// Full replace: the position rows are owned by the save, never patched.
	if _, err := tx.Exec(ctx, `DELETE FROM set_list_songs WHERE set_list_id = $1`, sl.ID); err != nil {
		return err
	}
	if err := insertSetListSongs(ctx, tx, sl.ID, songs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertSetListSongs(ctx context.Context, tx pgx.Tx, setListID string, songs []*domain.SetListSong) error {
	for i, s := range songs {
		_, err := tx.Exec(ctx, `
			INSERT INTO set_list_songs (set_list_id, song_id, position)
			VALUES ($1, $2, $3)
		`, setListID, s.SongID, i)
		if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a set list; song rows cascade.
func (r *PostgresSetListRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM set_lists WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSetListNotFound
	}
	return nil
}

// GetByID returns a set list with its songs in position order, or nil.
func (r *PostgresSetListRepository) GetByID(ctx context.Context, id string) (*domain.SetList, error) {
	query := `
		SELECT id, name, date, notes, is_active, created_at, updated_at
		FROM set_lists
		WHERE id = $1
	`
	sl, err := scanSetList(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sl.Songs, err = r.listSongs(ctx, sl.ID)
	return sl, err
}

// List returns all set lists, newest date first, without song rows.
func (r *PostgresSetListRepository) List(ctx context.Context) ([]*domain.SetList, error) {
	query := `
		SELECT id, name, date, notes, is_active, created_at, updated_at
		FROM set_lists
		ORDER BY date DESC, created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lists []*domain.SetList
	for rows.Next() {
		sl, err := scanSetList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, sl)
	}
	return lists, rows.Err()
}

// SetActive toggles the target's flag. Activation deactivates every other set
// list first, inside the same transaction, so a successful call always
// converges to a single active row.
func (r *PostgresSetListRepository) SetActive(ctx context.Context, id string, active bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if active {
		if _, err := tx.Exec(ctx, `UPDATE set_lists SET is_active = FALSE WHERE is_active AND id <> $1`, id); err != nil {
			return err
		}
	}
	tag, err := tx.Exec(ctx, `
		UPDATE set_lists SET is_active = $2, updated_at = $3 WHERE id = $1
	`, id, active, time.Now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSetListNotFound
	}
	return tx.Commit(ctx)
}

// GetActive returns the de-facto active set list: most recently updated among
// rows flagged active. Nil when none is flagged.
func (r *PostgresSetListRepository) GetActive(ctx context.Context) (*domain.SetList, error) {
	query := `
		SELECT id, name, date, notes, is_active, created_at, updated_at
		FROM set_lists
		WHERE is_active
		ORDER BY updated_at DESC
		LIMIT 1
	`
	sl, err := scanSetList(r.db.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sl.Songs, err = r.listSongs(ctx, sl.ID)
	return sl, err
}

func (r *PostgresSetListRepository) listSongs(ctx context.Context, setListID string) ([]*domain.SetListSong, error) {
	query := `
		SELECT sls.set_list_id, sls.song_id, sls.position, s.title, s.artist
		FROM set_list_songs sls
		JOIN songs s ON s.id = sls.song_id
		WHERE sls.set_list_id = $1
		ORDER BY sls.position ASC
	`
	rows, err := r.db.Query(ctx, query, setListID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []*domain.SetListSong
	for rows.Next() {
		var s domain.SetListSong
		if err := rows.Scan(&s.SetListID, &s.SongID, &s.Position, &s.Title, &s.Artist); err != nil {
			return nil, err
		}
		songs = append(songs, &s)
	}
	return songs, rows.Err()
}

func scanSetList(row rowScanner) (*domain.SetList, error) {
	var sl domain.SetList
	err := row.Scan(
		&sl.ID,
		&sl.Name,
		&sl.Date,
		&sl.Notes,
		&sl.IsActive,
		&sl.CreatedAt,
		&sl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}
