package repository

import (
	"context"
	"errors"

	"github.com/encore-live/server/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSongRepository is the pgx-backed song catalog.
type PostgresSongRepository struct {
	db *pgxpool.Pool
}

// NewPostgresSongRepository creates a song repository.
func NewPostgresSongRepository(db *pgxpool.Pool) *PostgresSongRepository {
	return &PostgresSongRepository{db: db}
}

// Create inserts a catalog entry.
func (r *PostgresSongRepository) Create(ctx context.Context, song *domain.Song) error {
	query := `
		INSERT INTO songs (id, title, artist, genre, album_art, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		song.ID,
		song.Title,
		song.Artist,
		song.Genre,
		song.AlbumArt,
		song.CreatedAt,
	)
	return err
}

// GetByID returns a song, or nil when absent.
func (r *PostgresSongRepository) GetByID(ctx context.Context, id string) (*domain.Song, error) {
	query := `
		SELECT id, title, artist, genre, album_art, created_at
		FROM songs
		WHERE id = $1
	`
	var song domain.Song
	err := r.db.QueryRow(ctx, query, id).Scan(
		&song.ID,
		&song.Title,
		&song.Artist,
		&song.Genre,
		&song.AlbumArt,
		&song.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &song, nil
}

// List returns the catalog ordered by title.
func (r *PostgresSongRepository) List(ctx context.Context) ([]*domain.Song, error) {
	query := `
		SELECT id, title, artist, genre, album_art, created_at
		FROM songs
		ORDER BY title ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []*domain.Song
	for rows.Next() {
		var song domain.Song
		err := rows.Scan(
			&song.ID,
			&song.Title,
			&song.Artist,
			&song.Genre,
			&song.AlbumArt,
			&song.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		songs = append(songs, &song)
	}
	return songs, rows.Err()
}
