package service

import (
	"context"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/internal/repository"
	"github.com/encore-live/server/pkg/logger"
)

// QueueService drives the request state machine:
// Pending -> Locked -> Played, Played terminal, at most one locked request
// queue-wide. Store failures abort a transition and are returned to the
// caller; a toggle is never silently retried because a blind retry could
// double-toggle.
type QueueService struct {
	requests repository.RequestRepository
	pub      ChangePublisher
	log      logger.Logger
}

// NewQueueService creates a queue service.
func NewQueueService(requests repository.RequestRepository, pub ChangePublisher, log logger.Logger) *QueueService {
	if log == nil {
		log = logger.Global()
	}
	return &QueueService{
		requests: requests,
		pub:      pub,
		log:      log,
	}
}

// Lock toggles the "next up" marker on a request. Locking first unlocks
// every other request inside the store transaction, so at most one request
// is ever locked. Unlocking just clears the flag. Played requests reject the
// transition.
func (s *QueueService) Lock(ctx context.Context, id string) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrRequestNotFound
	}
	if req.IsPlayed {
		return nil, domain.ErrRequestPlayed
	}

	// Remember who held the lock so its update is announced too.
	var previous *domain.Request
	if !req.IsLocked {
		queue, err := s.requests.ListQueue(ctx)
		if err != nil {
			return nil, err
		}
		for _, q := range queue {
			if q.IsLocked && q.ID != id {
				previous = q
				break
			}
		}
	}

	toggled := !req.IsLocked
	if err := s.requests.SetLockedExclusive(ctx, id, toggled); err != nil {
		return nil, err
	}
	req.IsLocked = toggled

	publish(ctx, s.pub, s.log, domain.TableRequests, domain.OpUpdate, req)
	if previous != nil {
		previous.IsLocked = false
		publish(ctx, s.pub, s.log, domain.TableRequests, domain.OpUpdate, previous)
	}

	s.log.Info("request lock toggled",
		logger.String("request_id", id),
		logger.Bool("locked", toggled),
	)
	return req, nil
}

// MarkPlayed finalizes a request. Idempotent: repeating the call leaves
// is_played=true, is_locked=false and reports no error.
func (s *QueueService) MarkPlayed(ctx context.Context, id string) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrRequestNotFound
	}

	if err := s.requests.MarkPlayed(ctx, id); err != nil {
		return nil, err
	}
	req.IsPlayed = true
	req.IsLocked = false

	publish(ctx, s.pub, s.log, domain.TableRequests, domain.OpUpdate, req)
	s.log.Info("request marked played", logger.String("request_id", id))
	return req, nil
}

// ResetQueue is the "end of set" boundary: every live request becomes
// played with zero votes and no lock, and all vote rows are purged so the
// same users can vote on future requests. One store transaction. The number
// of cleared requests is logged and returned for diagnostics.
func (s *QueueService) ResetQueue(ctx context.Context) (int, error) {
	// Snapshot the live queue first so each cleared request can be announced.
	queue, err := s.requests.ListQueue(ctx)
	if err != nil {
		return 0, err
	}

	cleared, err := s.requests.ResetQueue(ctx)
	if err != nil {
		return 0, err
	}

	for _, req := range queue {
		req.IsPlayed = true
		req.IsLocked = false
		req.Votes = 0
		publish(ctx, s.pub, s.log, domain.TableRequests, domain.OpUpdate, req)
	}

	s.log.Info("queue reset", logger.Int("requests_cleared", cleared))
	return cleared, nil
}

// ListQueue returns the live queue, highest votes first.
func (s *QueueService) ListQueue(ctx context.Context) ([]*domain.Request, error) {
	return s.requests.ListQueue(ctx)
}
