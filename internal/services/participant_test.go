package services_test

import (
	"context"
	"testing"

	"github.com/abrezinsky/paredao/internal/errors"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/services"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

func TestParticipantCreate(t *testing.T) {
	full := make([]paredao.Participant, paredao.MaxParticipants)
	for i := range full {
		full[i] = participant(string(rune('a'+i)), "Participant "+string(rune('A'+i)))
	}

	tests := []struct {
		name       string
		opts       []paredao.MockOption
		form       validation.ParticipantForm
		wantKind   errors.Kind
		wantErr    bool
		wantNotice string
		wantField  string
		fieldID    string
	}{
		{
			name:       "created",
			form:       validation.ParticipantForm{Name: " Ana ", Surname: "Souza"},
			wantNotice: notice.ParticipantCreated,
		},
		{
			name:      "short surname",
			form:      validation.ParticipantForm{Name: "Ana", Surname: "So"},
			wantErr:   true,
			wantKind:  errors.ErrValidation,
			wantField: "surname",
			fieldID:   notice.SurnameTooShort,
		},
		{
			name:      "name taken",
			opts:      []paredao.MockOption{paredao.WithParticipants([]paredao.Participant{participant("p1", "Ana Souza")})},
			form:      validation.ParticipantForm{Name: "Ana", Surname: "Souza"},
			wantErr:   true,
			wantKind:  errors.ErrConflict,
			wantField: "name",
			fieldID:   notice.ParticipantNameTaken,
		},
		{
			name:       "roster full",
			opts:       []paredao.MockOption{paredao.WithParticipants(full)},
			form:       validation.ParticipantForm{Name: "Ana", Surname: "Souza"},
			wantErr:    true,
			wantKind:   errors.ErrConflict,
			wantNotice: notice.ParticipantLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts...)
			out, err := f.participants.Create(context.Background(), testToken, tt.form)

			if tt.wantErr {
				assertKind(t, err, tt.wantKind)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNotice != "" && !hasNotice(out, tt.wantNotice) {
				t.Errorf("expected notice %s, got %v", tt.wantNotice, out.Notices)
			}
			if tt.wantField != "" {
				if got := out.Fields[tt.wantField].ID; got != tt.fieldID {
					t.Errorf("expected field %s error %s, got %q", tt.wantField, tt.fieldID, got)
				}
			}
		})
	}
}

func TestParticipantCreate_SendsFullNameAndInvalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.participants.List(ctx, testToken); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if _, err := f.participants.Create(ctx, testToken, validation.ParticipantForm{Name: "Ana", Surname: "Maria  Souza"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !f.cache.State(services.KeyParticipantsFor(testToken)).Stale {
		t.Error("expected participants to be stale after create")
	}
	list, err := f.participants.List(ctx, testToken)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Ana Maria Souza" {
		t.Errorf("unexpected roster: %+v", list)
	}
}

func TestParticipantDelete_OptimisticRemoval(t *testing.T) {
	var during []paredao.Participant
	var f *fixture
	f = newFixture(t,
		paredao.WithParticipants([]paredao.Participant{participant("p1", "Ana Souza"), participant("p2", "Bruno Lima")}),
		paredao.WithHook(paredao.OpDeleteParticipant, func(context.Context) {
			during, _ = query.Get[[]paredao.Participant](f.cache, services.KeyParticipantsFor(testToken))
		}),
	)
	ctx := context.Background()

	if _, err := f.participants.List(ctx, testToken); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	out, err := f.participants.Delete(ctx, testToken, "p1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(during) != 1 || during[0].ID != "p2" {
		t.Errorf("expected the cache to drop p1 before the request, got %+v", during)
	}
	if data := noticeData(out, notice.ParticipantDeleted); data == nil || data["Name"] != "Ana" {
		t.Errorf("expected deleted notice naming Ana, got %v", out.Notices)
	}
	if !f.cache.State(services.KeyParticipantsFor(testToken)).Stale {
		t.Error("expected participants to be invalidated when settled")
	}
	if got := f.api.Participants(); len(got) != 1 {
		t.Errorf("expected 1 participant left on the server, got %d", len(got))
	}
}

func TestParticipantDelete_FailureRestoresSnapshot(t *testing.T) {
	f := newFixture(t,
		paredao.WithParticipants([]paredao.Participant{participant("p1", "Ana Souza"), participant("p2", "Bruno Lima")}),
		paredao.WithError(paredao.OpDeleteParticipant, &paredao.UnknownError{Status: 500, Body: "boom"}),
	)
	ctx := context.Background()

	if _, err := f.participants.List(ctx, testToken); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	out, err := f.participants.Delete(ctx, testToken, "p1")
	assertKind(t, err, errors.ErrUpstream)

	cached, ok := query.Get[[]paredao.Participant](f.cache, services.KeyParticipantsFor(testToken))
	if !ok || len(cached) != 2 || cached[0].ID != "p1" {
		t.Errorf("expected the roster to be restored, got %+v", cached)
	}
	if data := noticeData(out, notice.DeleteParticipantFailed); data == nil || data["Name"] != "Ana" {
		t.Errorf("expected failure notice naming Ana, got %v", out.Notices)
	}
	if hasNotice(out, notice.ParticipantDeleted) {
		t.Error("success notice must not be shown on failure")
	}
}

func TestParticipantDelete_InOpenElimination(t *testing.T) {
	elimID := "e1"
	inElimination := participant("p1", "Ana Souza")
	inElimination.EliminationID = &elimID

	tests := []struct {
		name string
		opts []paredao.MockOption
		warm bool
	}{
		{
			name: "participant references elimination",
			opts: []paredao.MockOption{paredao.WithParticipants([]paredao.Participant{inElimination})},
		},
		{
			name: "cached open elimination lists participant",
			opts: []paredao.MockOption{
				paredao.WithParticipants([]paredao.Participant{participant("p1", "Ana Souza")}),
				paredao.WithEliminations([]paredao.Elimination{openElimination("e1", paredao.ParticipantRef{ID: "p1"})}),
			},
			warm: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts...)
			ctx := context.Background()
			if tt.warm {
				if _, err := f.eliminations.ListOpen(ctx, testToken); err != nil {
					t.Fatalf("ListOpen failed: %v", err)
				}
			}

			out, err := f.participants.Delete(ctx, testToken, "p1")
			if err != services.ErrParticipantInElimination {
				t.Errorf("expected ErrParticipantInElimination, got %v", err)
			}
			if !hasNotice(out, notice.ParticipantInElimination) {
				t.Errorf("expected warning notice, got %v", out.Notices)
			}
			if n := f.api.Calls(paredao.OpDeleteParticipant); n != 0 {
				t.Errorf("expected no delete request, got %d", n)
			}
			cached, _ := query.Get[[]paredao.Participant](f.cache, services.KeyParticipantsFor(testToken))
			if len(cached) != 1 {
				t.Errorf("expected the cache to be untouched, got %+v", cached)
			}
		})
	}
}

func TestParticipantDelete_NotFound(t *testing.T) {
	f := newFixture(t, paredao.WithParticipants([]paredao.Participant{participant("p1", "Ana Souza")}))

	out, err := f.participants.Delete(context.Background(), testToken, "missing")
	assertKind(t, err, errors.ErrNotFound)
	if !hasNotice(out, notice.ParticipantNotFound) {
		t.Errorf("expected not found notice, got %v", out.Notices)
	}
}

func TestParticipantDelete_ExpiredSession(t *testing.T) {
	f := newFixture(t,
		paredao.WithParticipants([]paredao.Participant{participant("p1", "Ana Souza")}),
		paredao.WithError(paredao.OpDeleteParticipant, apiError(401, paredao.Unauthorized)),
	)

	out, err := f.participants.Delete(context.Background(), testToken, "p1")
	assertKind(t, err, errors.ErrUnauthorized)
	if !hasNotice(out, notice.SessionExpired) {
		t.Errorf("expected session expired notice, got %v", out.Notices)
	}
	if out.Redirect != "/login?redirect=%2Fparticipants" {
		t.Errorf("unexpected redirect %q", out.Redirect)
	}
}

func TestParticipantDelete_NotCancelledWithCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t,
		paredao.WithParticipants([]paredao.Participant{participant("p1", "Ana Souza")}),
		paredao.WithHook(paredao.OpDeleteParticipant, func(context.Context) { cancel() }),
	)

	if _, err := f.participants.Delete(ctx, testToken, "p1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := f.api.Participants(); len(got) != 0 {
		t.Errorf("expected the delete to complete, %d participants left", len(got))
	}
}
