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

// SetListInput is the payload for creating or re-saving a set list.
// SongIDs are catalog references in play order; positions are assigned
// densely from zero and a save fully replaces prior positions.
type SetListInput struct {
	Name    string
	Date    time.Time
	Notes   string
	SongIDs []string
}

// SetListService manages set lists and enforces the activation guard:
// at most one set list is active, activation is
// deactivate-all-then-activate-one in a single store transaction, and the
// active set list is deterministically the most recently updated row flagged
// active should a race ever leave more than one flagged.
type SetListService struct {
	setLists repository.SetListRepository
	songs    repository.SongRepository
	pub      ChangePublisher
	log      logger.Logger
}

// NewSetListService creates a set list service.
func NewSetListService(setLists repository.SetListRepository, songs repository.SongRepository, pub ChangePublisher, log logger.Logger) *SetListService {
	if log == nil {
		log = logger.Global()
	}
	return &SetListService{
		setLists: setLists,
		songs:    songs,
		pub:      pub,
		log:      log,
	}
}

func (s *SetListService) buildSongs(ctx context.Context, setListID string, songIDs []string) ([]*domain.SetListSong, error) {
	songs := make([]*domain.SetListSong, 0, len(songIDs))
	for i, songID := range songIDs {
		song, err := s.songs.GetByID(ctx, songID)
		if err != nil {
			return nil, err
		}
		if song == nil {
			return nil, domain.ErrSongNotFound
		}
		songs = append(songs, &domain.SetListSong{
			SetListID: setListID,
			SongID:    songID,
			Position:  i,
			Title:     song.Title,
			Artist:    song.Artist,
		})
	}
	return songs, nil
}

// Create stores a new, inactive set list.
func (s *SetListService) Create(ctx context.Context, in *SetListInput) (*domain.SetList, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidSetListName
	}

	now := time.Now()
	sl := &domain.SetList{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(in.Name),
		Date:      in.Date,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	songs, err := s.buildSongs(ctx, sl.ID, in.SongIDs)
	if err != nil {
		return nil, err
	}

	if err := s.setLists.Create(ctx, sl, songs); err != nil {
		return nil, err
	}
	sl.Songs = songs

	publish(ctx, s.pub, s.log, domain.TableSetLists, domain.OpInsert, sl)
	s.log.Info("set list created", logger.String("set_list_id", sl.ID), logger.String("name", sl.Name))
	return sl, nil
}

// Update re-saves a set list, fully replacing its song-position rows.
func (s *SetListService) Update(ctx context.Context, id string, in *SetListInput) (*domain.SetList, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.ErrInvalidSetListName
	}

	sl, err := s.setLists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sl == nil {
		return nil, domain.ErrSetListNotFound
	}

	sl.Name = strings.TrimSpace(in.Name)
	sl.Date = in.Date
	sl.Notes = in.Notes
	songs, err := s.buildSongs(ctx, id, in.SongIDs)
	if err != nil {
		return nil, err
	}

	if err := s.setLists.Update(ctx, sl, songs); err != nil {
		return nil, err
	}
	sl.Songs = songs
	sl.UpdatedAt = time.Now()

	publish(ctx, s.pub, s.log, domain.TableSetLists, domain.OpUpdate, sl)
	return sl, nil
}

// Delete removes a set list. Deleting the active set list is an invariant
// violation: rejected with no partial mutation.
func (s *SetListService) Delete(ctx context.Context, id string) error {
	sl, err := s.setLists.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sl == nil {
		return domain.ErrSetListNotFound
	}
	if sl.IsActive {
		return domain.ErrSetListActive
	}

	if err := s.setLists.Delete(ctx, id); err != nil {
		return err
	}
	publishDelete(ctx, s.pub, s.log, domain.TableSetLists, id)
	s.log.Info("set list deleted", logger.String("set_list_id", id))
	return nil
}

// SetActive toggles the addressed set list's active flag. Activation
// deactivates every other set list in the same transaction, so the system
// converges to a single active set list regardless of interleaving.
func (s *SetListService) SetActive(ctx context.Context, id string) (*domain.SetList, error) {
	sl, err := s.setLists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sl == nil {
		return nil, domain.ErrSetListNotFound
	}

	// Remember the current holder so its update is announced too.
	previous, err := s.setLists.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	toggled := !sl.IsActive
	if err := s.setLists.SetActive(ctx, id, toggled); err != nil {
		return nil, err
	}
	sl.IsActive = toggled
	sl.UpdatedAt = time.Now()

	publish(ctx, s.pub, s.log, domain.TableSetLists, domain.OpUpdate, sl)
	if previous != nil && previous.ID != id && toggled {
		previous.IsActive = false
		publish(ctx, s.pub, s.log, domain.TableSetLists, domain.OpUpdate, previous)
	}

	s.log.Info("set list activation toggled",
		logger.String("set_list_id", id),
		logger.Bool("active", toggled),
	)
	return sl, nil
}

// GetActive returns the single de-facto active set list, or nil.
func (s *SetListService) GetActive(ctx context.Context) (*domain.SetList, error) {
	return s.setLists.GetActive(ctx)
}

// Get returns a set list with songs, or ErrSetListNotFound.
func (s *SetListService) Get(ctx context.Context, id string) (*domain.SetList, error) {
	sl, err := s.setLists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sl == nil {
		return nil, domain.ErrSetListNotFound
	}
	return sl, nil
}

// List returns all set lists without song rows.
func (s *SetListService) List(ctx context.Context) ([]*domain.SetList, error) {
	return s.setLists.List(ctx)
}
