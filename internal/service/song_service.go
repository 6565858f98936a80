package service

import (
	"context"
	"strings"
	"time"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/internal/repository"
	"github.com/encore-live/server/pkg/logger"

	"github.com/google/uuid"
)

// SongInput is the payload for adding a catalog entry.
type SongInput struct {
	Title    string
	Artist   string
	Genre    []string
	AlbumArt string
}

// SongService manages the song catalog set lists draw from.
type SongService struct {
	songs repository.SongRepository
	pub   ChangePublisher
	log   logger.Logger
}

// NewSongService creates a song service.
func NewSongService(songs repository.SongRepository, pub ChangePublisher, log logger.Logger) *SongService {
	if log == nil {
		log = logger.Global()
	}
	return &SongService{
		songs: songs,
		pub:   pub,
		log:   log,
	}
}

// Create adds a catalog entry.
func (s *SongService) Create(ctx context.Context, in *SongInput) (*domain.Song, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.ErrEmptyTitle
	}

	song := &domain.Song{
		ID:        uuid.New().String(),
		Title:     strings.TrimSpace(in.Title),
		Artist:    strings.TrimSpace(in.Artist),
		Genre:     domain.JoinGenreTags(in.Genre),
		AlbumArt:  in.AlbumArt,
		CreatedAt: time.Now(),
	}
	if err := s.songs.Create(ctx, song); err != nil {
		return nil, err
	}

	publish(ctx, s.pub, s.log, domain.TableSongs, domain.OpInsert, song)
	s.log.Info("song added", logger.String("song_id", song.ID), logger.String("title", song.Title))
	return song, nil
}

// Get returns a catalog entry, or ErrSongNotFound.
func (s *SongService) Get(ctx context.Context, id string) (*domain.Song, error) {
	song, err := s.songs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, domain.ErrSongNotFound
	}
	return song, nil
}

// List returns the catalog ordered by title.
func (s *SongService) List(ctx context.Context) ([]*domain.Song, error) {
	return s.songs.List(ctx)
}
