package services

import (
	"context"

	"github.com/abrezinsky/paredao/internal/auth"
	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

const (
	votingPath      = "/voting"
	votedPath       = "/voting?voted=true"
	votingLoginPath = "/login"
)

// VotingService handles vote-related business logic
type VotingService struct {
	log          logger.Logger
	api          paredao.Client
	cache        *query.Client
	eliminations *EliminationService
}

// NewVotingService creates a new VotingService
func NewVotingService(log logger.Logger, api paredao.Client, cache *query.Client, eliminations *EliminationService) *VotingService {
	return &VotingService{log: log, api: api, cache: cache, eliminations: eliminations}
}

// CurrentElimination returns the first open elimination, or nil when none is open
func (s *VotingService) CurrentElimination(ctx context.Context, token string) (*paredao.Elimination, error) {
	open, err := s.eliminations.ListOpen(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}
	current := open[0]
	return &current, nil
}

// ResultLoader returns the fetch function of an elimination's vote counts
func (s *VotingService) ResultLoader(token, eliminationID string) func(ctx context.Context) ([]paredao.ParticipantResult, error) {
	return func(ctx context.Context) ([]paredao.ParticipantResult, error) {
		return bind(s.api, token).Result(ctx, eliminationID)
	}
}

// Result returns the vote counts of an elimination, from cache when fresh
func (s *VotingService) Result(ctx context.Context, token, eliminationID string) ([]paredao.ParticipantResult, error) {
	results, err := query.Fetch(ctx, s.cache, KeyResult(eliminationID), s.ResultLoader(token, eliminationID))
	if err != nil {
		return nil, fromAPI(err)
	}
	return results, nil
}

// Vote casts a vote in the current open elimination. Nothing is written to
// the cache before the API confirms the vote.
func (s *VotingService) Vote(ctx context.Context, token string, form validation.VoteForm) (Outcome, error) {
	var out Outcome
	if fe := validation.Vote(&form); fe != nil {
		out.Fields = fe
		return out, invalidForm(fe)
	}

	elimination, err := s.CurrentElimination(ctx, token)
	if err != nil {
		out.notify(notice.Errorf(notice.Unexpected))
		return out, err
	}
	if elimination == nil {
		out.notify(notice.Errorf(notice.NoOpenElimination))
		return out, ErrNoOpenElimination
	}

	err = bind(s.api, token).Vote(ctx, elimination.ID, paredao.VoteRequest{
		ParticipantID: form.ParticipantID,
		CaptchaToken:  form.CaptchaToken,
	})
	if err != nil {
		switch paredao.CodeOf(err) {
		case paredao.CaptchaNotVerified:
			out.notify(notice.Errorf(notice.CaptchaNotVerified))
		case paredao.Unauthorized:
			out.notify(notice.Errorf(notice.VoteRequiresLogin))
			out.Redirect = votingLoginPath
		default:
			out.notify(notice.Errorf(notice.Unexpected))
		}
		s.log.Info("vote rejected", "elimination", elimination.ID, "error", err)
		return out, fromAPI(err)
	}

	if err := s.cache.InvalidateAndWait(ctx, KeyResult(elimination.ID), KeyDashboard); err != nil {
		s.log.Warn("refetch after vote failed", "error", err)
	}
	s.log.Debug("vote cast", "elimination", elimination.ID, "participant", form.ParticipantID)
	out.Redirect = votedPath
	return out, nil
}

// LoginToVote is where unauthenticated voters are sent
func LoginToVote() string {
	return auth.LoginRedirect(votingPath)
}
