package services

import (
	"context"
	"slices"

	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/internal/mutation"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

const eliminationsPath = "/eliminations"

// EliminationService manages eliminations
type EliminationService struct {
	log          logger.Logger
	api          paredao.Client
	cache        *query.Client
	participants *ParticipantService

	closeMutation *mutation.Mutation[closeEliminationVars, struct{}, query.Snapshot]
}

type closeEliminationVars struct {
	token string
	id    string
	out   *Outcome
}

// NewEliminationService creates a new EliminationService
func NewEliminationService(log logger.Logger, api paredao.Client, cache *query.Client, participants *ParticipantService) *EliminationService {
	s := &EliminationService{log: log, api: api, cache: cache, participants: participants}
	s.closeMutation = &mutation.Mutation[closeEliminationVars, struct{}, query.Snapshot]{
		Name:      "close-elimination",
		Log:       log,
		OnMutate:  s.onCloseMutate,
		Fn:        s.closeFn,
		OnSuccess: s.onCloseSuccess,
		OnError:   s.onCloseError,
		OnSettled: s.onCloseSettled,
	}
	return s
}

// Loader returns the fetch function of the eliminations list for token
func (s *EliminationService) Loader(token string) func(ctx context.Context) ([]paredao.Elimination, error) {
	return func(ctx context.Context) ([]paredao.Elimination, error) {
		return bind(s.api, token).ListEliminations(ctx)
	}
}

// OpenLoader returns the fetch function of the open eliminations for token
func (s *EliminationService) OpenLoader(token string) func(ctx context.Context) ([]paredao.Elimination, error) {
	return func(ctx context.Context) ([]paredao.Elimination, error) {
		return bind(s.api, token).ListOpenEliminations(ctx)
	}
}

// List returns every elimination, from cache when fresh
func (s *EliminationService) List(ctx context.Context, token string) ([]paredao.Elimination, error) {
	eliminations, err := fetchPrivate(ctx, s.cache, KeyEliminationsFor(token), s.Loader(token))
	if err != nil {
		return nil, fromAPI(err)
	}
	return eliminations, nil
}

// ListOpen returns the eliminations open for voting, from cache when fresh
func (s *EliminationService) ListOpen(ctx context.Context, token string) ([]paredao.Elimination, error) {
	eliminations, err := query.Fetch(ctx, s.cache, KeyEliminationsOpen, s.OpenLoader(token))
	if err != nil {
		return nil, fromAPI(err)
	}
	return eliminations, nil
}

// Create opens an elimination between two distinct participants
func (s *EliminationService) Create(ctx context.Context, token string, form validation.EliminationForm) (Outcome, error) {
	var out Outcome
	if fe := validation.Elimination(&form); fe != nil {
		out.Fields = fe
		return out, invalidForm(fe)
	}

	participants, err := s.participants.List(ctx, token)
	if err != nil {
		out.fail(err, notice.Errorf(notice.Unexpected), eliminationsPath)
		return out, err
	}
	if len(participants) < 2 {
		out.notify(notice.Warningf(notice.NotEnoughParticipants))
		return out, ErrNotEnoughParticipants
	}

	err = bind(s.api, token).CreateElimination(ctx, [2]string{form.ParticipantA, form.ParticipantB})
	if err != nil {
		switch paredao.CodeOf(err) {
		case paredao.LimitReached:
			out.notify(notice.Errorf(notice.EliminationLimit))
		case paredao.ResourceNotFound:
			out.notify(notice.Errorf(notice.ParticipantNotFound))
		default:
			out.fail(err, notice.Errorf(notice.Unexpected), eliminationsPath)
		}
		return out, fromAPI(err)
	}

	if err := s.cache.InvalidateAndWait(ctx, KeyEliminations, KeyParticipants, KeyEliminationsOpen); err != nil {
		s.log.Warn("refetch after creating elimination failed", "error", err)
	}
	s.log.Info("elimination created", "participants", []string{form.ParticipantA, form.ParticipantB})
	out.notify(notice.Successf(notice.EliminationCreated))
	return out, nil
}

// Close finishes an elimination optimistically: the cached entry is shown
// closed with no participants until the API answers.
func (s *EliminationService) Close(ctx context.Context, token, id string) (Outcome, error) {
	var out Outcome
	_, err := s.closeMutation.Run(ctx, closeEliminationVars{token: token, id: id, out: &out})
	return out, fromAPI(err)
}

func (s *EliminationService) onCloseMutate(ctx context.Context, v closeEliminationVars) (query.Snapshot, error) {
	key := KeyEliminationsFor(v.token)
	s.cache.Cancel(key)
	if _, ok := query.Get[[]paredao.Elimination](s.cache, key); !ok {
		// nothing rendered yet, nothing to update
		return query.Snapshot{}, nil
	}

	previous := query.Optimistic(s.cache, key, func(current []paredao.Elimination) []paredao.Elimination {
		next := slices.Clone(current)
		for i := range next {
			if next[i].ID == v.id {
				next[i].Open = false
				next[i].Participants = []paredao.ParticipantRef{}
			}
		}
		return next
	})
	return previous, nil
}

func (s *EliminationService) closeFn(ctx context.Context, v closeEliminationVars) (struct{}, error) {
	return struct{}{}, bind(s.api, v.token).FinishElimination(ctx, v.id)
}

func (s *EliminationService) onCloseSuccess(ctx context.Context, _ struct{}, v closeEliminationVars, _ query.Snapshot) {
	s.log.Info("elimination closed", "id", v.id)
}

func (s *EliminationService) onCloseError(ctx context.Context, err error, v closeEliminationVars, previous query.Snapshot) {
	s.cache.Restore(previous)
	v.out.fail(err, notice.Errorf(notice.CloseEliminationFailed), eliminationsPath)
}

func (s *EliminationService) onCloseSettled(ctx context.Context, _ struct{}, _ error, _ closeEliminationVars, _ query.Snapshot) {
	s.cache.Invalidate(KeyEliminations, KeyEliminationsOpen, KeyParticipants)
}
