package service

import (
	"context"

	"github.com/encore-live/server/internal/domain"
	"github.com/encore-live/server/internal/repository"
	"github.com/encore-live/server/pkg/logger"
)

// VoteService implements the vote commit protocol: one vote per
// (request, user) pair, enforced by the store's pair constraint, with the
// counter increment committed atomically alongside the guarded insert.
type VoteService struct {
	requests repository.RequestRepository
	votes    repository.VoteRepository
	pub      ChangePublisher
	log      logger.Logger
}

// NewVoteService creates a vote service.
func NewVoteService(requests repository.RequestRepository, votes repository.VoteRepository, pub ChangePublisher, log logger.Logger) *VoteService {
	if log == nil {
		log = logger.Global()
	}
	return &VoteService{
		requests: requests,
		votes:    votes,
		pub:      pub,
		log:      log,
	}
}

// CastVote records one vote for a request. A duplicate attempt by the same
// user returns Accepted=false with no counter change and no error: the
// rejection is an expected outcome the UI surfaces, not a failure. The whole
// call is safe to retry after a network failure — the insert is idempotent
// under the pair constraint, so a retried call can never double-count.
func (s *VoteService) CastVote(ctx context.Context, requestID, userID string) (*domain.VoteResult, error) {
	if userID == "" {
		return nil, domain.ErrEmptyUserID
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, domain.ErrRequestNotFound
	}
	if req.IsPlayed {
		return nil, domain.ErrRequestPlayed
	}

	accepted, votes, err := s.votes.AddVoteAtomic(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	if accepted {
		req.Votes = votes
		publish(ctx, s.pub, s.log, domain.TableRequests, domain.OpUpdate, req)
		s.log.Info("vote accepted",
			logger.String("request_id", requestID),
			logger.String("user_id", userID),
			logger.Int("votes", votes),
		)
	} else {
		s.log.Info("duplicate vote rejected",
			logger.String("request_id", requestID),
			logger.String("user_id", userID),
		)
	}

	return &domain.VoteResult{Accepted: accepted, Votes: votes}, nil
}

// HasVoted reports whether a user already voted for a request.
func (s *VoteService) HasVoted(ctx context.Context, requestID, userID string) (bool, error) {
	return s.votes.HasVoted(ctx, requestID, userID)
}
