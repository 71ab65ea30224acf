package services

import (
	"context"
	"slices"
	"strings"

	"github.com/abrezinsky/paredao/internal/errors"
	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/internal/mutation"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

const participantsPath = "/participants"

// ParticipantService manages the participant roster
type ParticipantService struct {
	log   logger.Logger
	api   paredao.Client
	cache *query.Client

	deleteMutation *mutation.Mutation[deleteParticipantVars, struct{}, deleteParticipantContext]
}

type deleteParticipantVars struct {
	token string
	id    string
	out   *Outcome
}

type deleteParticipantContext struct {
	previous  query.Snapshot
	firstName string
}

// NewParticipantService creates a new ParticipantService
func NewParticipantService(log logger.Logger, api paredao.Client, cache *query.Client) *ParticipantService {
	s := &ParticipantService{log: log, api: api, cache: cache}
	s.deleteMutation = &mutation.Mutation[deleteParticipantVars, struct{}, deleteParticipantContext]{
		Name:      "delete-participant",
		Log:       log,
		OnMutate:  s.onDeleteMutate,
		Fn:        s.deleteFn,
		OnSuccess: s.onDeleteSuccess,
		OnError:   s.onDeleteError,
		OnSettled: s.onDeleteSettled,
	}
	return s
}

// Loader returns the fetch function of the participants list for token
func (s *ParticipantService) Loader(token string) func(ctx context.Context) ([]paredao.Participant, error) {
	return func(ctx context.Context) ([]paredao.Participant, error) {
		return bind(s.api, token).ListParticipants(ctx)
	}
}

// List returns the roster, from cache when fresh
func (s *ParticipantService) List(ctx context.Context, token string) ([]paredao.Participant, error) {
	participants, err := fetchPrivate(ctx, s.cache, KeyParticipantsFor(token), s.Loader(token))
	if err != nil {
		return nil, fromAPI(err)
	}
	return participants, nil
}

// Create adds a participant named "<name> <surname>"
func (s *ParticipantService) Create(ctx context.Context, token string, form validation.ParticipantForm) (Outcome, error) {
	var out Outcome
	if fe := validation.Participant(&form); fe != nil {
		out.Fields = fe
		return out, invalidForm(fe)
	}

	err := bind(s.api, token).CreateParticipant(ctx, form.FullName())
	if err != nil {
		switch paredao.CodeOf(err) {
		case paredao.ResourceAlreadyTaken:
			out.Fields = validation.FieldErrors{"name": notice.Errorf(notice.ParticipantNameTaken)}
		case paredao.LimitReached:
			out.notify(notice.Errorf(notice.ParticipantLimit))
		default:
			out.fail(err, notice.Errorf(notice.Unexpected), participantsPath)
		}
		return out, fromAPI(err)
	}

	s.cache.Invalidate(KeyParticipants)
	s.log.Info("participant created", "name", form.FullName())
	out.notify(notice.Successf(notice.ParticipantCreated))
	return out, nil
}

// Delete removes a participant optimistically. A participant in an open
// elimination is refused without calling the API.
func (s *ParticipantService) Delete(ctx context.Context, token, id string) (Outcome, error) {
	var out Outcome

	participants, err := s.List(ctx, token)
	if err != nil {
		out.fail(err, notice.Errorf(notice.Unexpected), participantsPath)
		return out, err
	}
	idx := slices.IndexFunc(participants, func(p paredao.Participant) bool { return p.ID == id })
	if idx < 0 {
		out.notify(notice.Errorf(notice.ParticipantNotFound))
		return out, errors.NotFoundf("participant %s not found", id)
	}
	if s.inOpenElimination(participants[idx]) {
		out.notify(notice.Warningf(notice.ParticipantInElimination))
		return out, ErrParticipantInElimination
	}

	_, err = s.deleteMutation.Run(ctx, deleteParticipantVars{token: token, id: id, out: &out})
	return out, fromAPI(err)
}

func (s *ParticipantService) inOpenElimination(p paredao.Participant) bool {
	if p.InElimination() {
		return true
	}
	open, _ := query.Get[[]paredao.Elimination](s.cache, KeyEliminationsOpen)
	for _, e := range open {
		if !e.Open {
			continue
		}
		for _, ref := range e.Participants {
			if ref.ID == p.ID {
				return true
			}
		}
	}
	return false
}

func (s *ParticipantService) onDeleteMutate(ctx context.Context, v deleteParticipantVars) (deleteParticipantContext, error) {
	key := KeyParticipantsFor(v.token)
	s.cache.Cancel(key)

	var firstName string
	previous := query.Optimistic(s.cache, key, func(current []paredao.Participant) []paredao.Participant {
		for _, p := range current {
			if p.ID == v.id {
				firstName, _, _ = strings.Cut(p.Name, " ")
			}
		}
		return slices.DeleteFunc(slices.Clone(current), func(p paredao.Participant) bool { return p.ID == v.id })
	})
	return deleteParticipantContext{previous: previous, firstName: firstName}, nil
}

func (s *ParticipantService) deleteFn(ctx context.Context, v deleteParticipantVars) (struct{}, error) {
	return struct{}{}, bind(s.api, v.token).DeleteParticipant(ctx, v.id)
}

func (s *ParticipantService) onDeleteSuccess(ctx context.Context, _ struct{}, v deleteParticipantVars, mctx deleteParticipantContext) {
	s.log.Info("participant deleted", "id", v.id)
	v.out.notify(notice.Successf(notice.ParticipantDeleted, "Name", mctx.firstName))
}

func (s *ParticipantService) onDeleteError(ctx context.Context, err error, v deleteParticipantVars, mctx deleteParticipantContext) {
	s.cache.Restore(mctx.previous)
	v.out.fail(err, notice.Errorf(notice.DeleteParticipantFailed, "Name", mctx.firstName), participantsPath)
}

func (s *ParticipantService) onDeleteSettled(ctx context.Context, _ struct{}, _ error, _ deleteParticipantVars, _ deleteParticipantContext) {
	s.cache.Invalidate(KeyParticipants)
}
