package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/internal/repository"
	"github.com/encore-live/server/pkg/logger"

	"github.com/google/uuid"
)

// SubmitInput is one attendee's song request.
type SubmitInput struct {
	Title         string
	Artist        string
	RequesterName string
	Photo         []byte
	Message       string
	UserID        string
}

// RequestService handles request submission with per-title dedup: a second
// attendee asking for an already-pending title attaches to the existing
// request instead of creating a duplicate.
type RequestService struct {
	requests repository.RequestRepository
	votes    *VoteService
	pub      ChangePublisher
	log      logger.Logger
}

// NewRequestService creates a request service.
func NewRequestService(requests repository.RequestRepository, votes *VoteService, pub ChangePublisher, log logger.Logger) *RequestService {
	if log == nil {
		log = logger.Global()
	}
	return &RequestService{
		requests: requests,
		votes:    votes,
		pub:      pub,
		log:      log,
	}
}

// validate rejects bad input before any store call.
func (in *SubmitInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return domain.ErrEmptyTitle
	case strings.TrimSpace(in.RequesterName) == "":
		return domain.ErrEmptyName
	case in.UserID == "":
		return domain.ErrEmptyUserID
	case len([]rune(in.Message)) > domain.MaxMessageLen:
		return domain.ErrMessageTooLong
	case len(in.Photo) > domain.MaxPhotoBytes:
		return domain.ErrPhotoTooLarge
	}
	return nil
}

// Submit records a song request. Dedup is exact-string on title among
// non-played requests; near-duplicate titles (casing, punctuation) are
// deliberately not merged. The submitting attendee is attached as a
// requester and their vote is cast through the regular vote protocol, so a
// user who already voted for the pending title does not bump the counter
// twice.
func (s *RequestService) Submit(ctx context.Context, in *SubmitInput) (*domain.Request, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)

	existing, err := s.requests.GetPendingByTitle(ctx, title)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		req := &domain.Request{
			ID:        uuid.New().String(),
			Title:     title,
			Artist:    strings.TrimSpace(in.Artist),
			CreatedAt: time.Now(),
		}
		err = s.requests.Create(ctx, req)
		switch {
		case errors.Is(err, domain.ErrDuplicatePendingTitle):
			// Lost a create race: another session just submitted the same
			// title. Attach to theirs.
			existing, err = s.requests.GetPendingByTitle(ctx, title)
			if err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, domain.ErrRequestNotFound
			}
		case err != nil:
			return nil, err
		default:
			existing = req
			publish(ctx, s.pub, s.log, domain.TableRequests, domain.OpInsert, req)
			s.log.Info("request created",
				logger.String("request_id", req.ID),
				logger.String("title", req.Title),
			)
		}
	}

	requester := &domain.Requester{
		ID:        uuid.New().String(),
		RequestID: existing.ID,
		Name:      strings.TrimSpace(in.RequesterName),
		Photo:     in.Photo,
		Message:   in.Message,
		CreatedAt: time.Now(),
	}
	if err := s.requests.AddRequester(ctx, requester); err != nil {
		return nil, err
	}

	result, err := s.votes.CastVote(ctx, existing.ID, in.UserID)
	if err != nil {
		return nil, err
	}
	if result.Accepted {
		existing.Votes = result.Votes
	}

	return existing, nil
}

// Get returns a request with its requesters attached.
func (s *RequestService) Get(ctx context.Context, id string) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrRequestNotFound
	}
	req.Requesters, err = s.requests.ListRequesters(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}
