package services_test

import (
	"context"
	"slices"
	"testing"

	"github.com/abrezinsky/paredao/internal/errors"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/services"
	"github.com/abrezinsky/paredao/internal/testutil"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

const testToken = "test-token"

type fixture struct {
	api          *paredao.MockClient
	cache        *query.Client
	participants *services.ParticipantService
	eliminations *services.EliminationService
	voting       *services.VotingService
	dashboard    *services.DashboardService
	account      *services.AccountService
	live         *services.Live
}

// newFixture wires every service to one mock API and one cache
func newFixture(t *testing.T, opts ...paredao.MockOption) *fixture {
	t.Helper()
	s := testutil.NewServices(t, opts...)
	return &fixture{
		api:          s.API,
		cache:        s.Cache,
		participants: s.Participants,
		eliminations: s.Eliminations,
		voting:       s.Voting,
		dashboard:    s.Dashboard,
		account:      s.Account,
		live:         s.Live,
	}
}

func hasNotice(out services.Outcome, id string) bool {
	return slices.ContainsFunc(out.Notices, func(m notice.Message) bool { return m.ID == id })
}

func noticeData(out services.Outcome, id string) map[string]any {
	for _, m := range out.Notices {
		if m.ID == id {
			return m.Data
		}
	}
	return nil
}

func assertKind(t *testing.T, err error, want errors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := errors.KindOf(err); got != want {
		t.Errorf("expected %s error, got %s (%v)", want, got, err)
	}
}

func participant(id, name string) paredao.Participant {
	return paredao.Participant{ID: id, Name: name}
}

func openElimination(id string, refs ...paredao.ParticipantRef) paredao.Elimination {
	return paredao.Elimination{ID: id, Open: true, Participants: refs}
}

func apiError(status int, code paredao.ErrorCode) error {
	return &paredao.HTTPError{Status: status, Code: code, Message: string(code)}
}

func TestServiceErrors_Kinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Kind
	}{
		{"participant in elimination", services.ErrParticipantInElimination, errors.ErrPrecondition},
		{"not enough participants", services.ErrNotEnoughParticipants, errors.ErrPrecondition},
		{"no open elimination", services.ErrNoOpenElimination, errors.ErrNotFound},
		{"captcha", services.ErrCaptchaNotVerified, errors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertKind(t, tt.err, tt.want)
		})
	}
}

func TestDashboard_GetCachesAndRefreshReloads(t *testing.T) {
	f := newFixture(t, paredao.WithDashboard(paredao.DashboardResult{TotalVotes: 12, HasElimination: true}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := f.dashboard.Get(ctx, testToken)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if result.TotalVotes != 12 {
			t.Errorf("expected 12 votes, got %d", result.TotalVotes)
		}
	}
	if n := f.api.Calls(paredao.OpDashboard); n != 1 {
		t.Errorf("expected 1 dashboard call, got %d", n)
	}

	if _, err := f.dashboard.Refresh(ctx, testToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if n := f.api.Calls(paredao.OpDashboard); n != 2 {
		t.Errorf("expected refresh to reload, got %d calls", n)
	}
}

func TestDashboard_UpstreamFailure(t *testing.T) {
	f := newFixture(t, paredao.WithError(paredao.OpDashboard, &paredao.UnknownError{Status: 500}))

	_, err := f.dashboard.Get(context.Background(), testToken)
	assertKind(t, err, errors.ErrUpstream)
}

func TestPrivateReads_PartitionedBySession(t *testing.T) {
	tests := []struct {
		name string
		op   string
		key  func(token string) query.Key
		read func(f *fixture, token string) error
	}{
		{
			name: "participants",
			op:   paredao.OpListParticipants,
			key:  services.KeyParticipantsFor,
			read: func(f *fixture, token string) error {
				_, err := f.participants.List(context.Background(), token)
				return err
			},
		},
		{
			name: "eliminations",
			op:   paredao.OpListEliminations,
			key:  services.KeyEliminationsFor,
			read: func(f *fixture, token string) error {
				_, err := f.eliminations.List(context.Background(), token)
				return err
			},
		},
		{
			name: "dashboard",
			op:   paredao.OpDashboard,
			key:  services.KeyDashboardFor,
			read: func(f *fixture, token string) error {
				_, err := f.dashboard.Get(context.Background(), token)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, paredao.WithParticipants([]paredao.Participant{participant("p1", "Ana Souza")}))

			for i := 0; i < 2; i++ {
				if err := tt.read(f, testToken); err != nil {
					t.Fatalf("read failed: %v", err)
				}
			}
			if n := f.api.Calls(tt.op); n != 1 {
				t.Fatalf("expected 1 call for the session, got %d", n)
			}

			// another cookie never shares the session's entry
			f.api.SetError(tt.op, apiError(401, paredao.Unauthorized))
			assertKind(t, tt.read(f, "x"), errors.ErrUnauthorized)
			if n := f.api.Calls(tt.op); n != 2 {
				t.Errorf("expected the other cookie to reach the API, got %d calls", n)
			}
			if state := f.cache.State(tt.key("x")); state.Status != query.StatusPending {
				t.Errorf("expected no entry for the rejected cookie, got %+v", state)
			}

			if err := tt.read(f, testToken); err != nil {
				t.Errorf("session read failed: %v", err)
			}
			if n := f.api.Calls(tt.op); n != 2 {
				t.Errorf("expected the session to stay cached, got %d calls", n)
			}
		})
	}
}

func TestInvalidatePrefix_ReachesEverySession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, token := range []string{testToken, "other-token"} {
		if _, err := f.participants.List(ctx, token); err != nil {
			t.Fatalf("List failed: %v", err)
		}
	}

	if _, err := f.participants.Create(ctx, testToken, validation.ParticipantForm{Name: "Ana", Surname: "Souza"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for _, token := range []string{testToken, "other-token"} {
		if !f.cache.State(services.KeyParticipantsFor(token)).Stale {
			t.Errorf("expected %s roster to be stale", token)
		}
	}
}
