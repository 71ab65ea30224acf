package services

import (
	"context"

	"github.com/abrezinsky/paredao/internal/auth"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

// AccountServicer defines the interface for login, registration and the current user
type AccountServicer interface {
	Login(ctx context.Context, form validation.LoginForm, remoteIP string) (*LoginResult, Outcome, error)
	Register(ctx context.Context, form validation.RegisterForm) (Outcome, error)
	Me(ctx context.Context, session auth.Session) (*paredao.User, error)
	Logout(session auth.Session)
}

// ParticipantServicer defines the interface for participant operations
type ParticipantServicer interface {
	List(ctx context.Context, token string) ([]paredao.Participant, error)
	Create(ctx context.Context, token string, form validation.ParticipantForm) (Outcome, error)
	Delete(ctx context.Context, token, id string) (Outcome, error)
}

// EliminationServicer defines the interface for elimination operations
type EliminationServicer interface {
	List(ctx context.Context, token string) ([]paredao.Elimination, error)
	ListOpen(ctx context.Context, token string) ([]paredao.Elimination, error)
	Create(ctx context.Context, token string, form validation.EliminationForm) (Outcome, error)
	Close(ctx context.Context, token, id string) (Outcome, error)
}

// VotingServicer defines the interface for voting operations
type VotingServicer interface {
	CurrentElimination(ctx context.Context, token string) (*paredao.Elimination, error)
	Result(ctx context.Context, token, eliminationID string) ([]paredao.ParticipantResult, error)
	Vote(ctx context.Context, token string, form validation.VoteForm) (Outcome, error)
}

// DashboardServicer defines the interface for the dashboard
type DashboardServicer interface {
	Get(ctx context.Context, token string) (*paredao.DashboardResult, error)
	Refresh(ctx context.Context, token string) (*paredao.DashboardResult, error)
}

// LiveServicer opens live subscriptions to cache keys
type LiveServicer interface {
	Watch(token string, key query.Key, listener func(query.Entry)) (func(), error)
}

// Ensure concrete types implement interfaces
var (
	_ AccountServicer     = (*AccountService)(nil)
	_ ParticipantServicer = (*ParticipantService)(nil)
	_ EliminationServicer = (*EliminationService)(nil)
	_ VotingServicer      = (*VotingService)(nil)
	_ DashboardServicer   = (*DashboardService)(nil)
	_ LiveServicer        = (*Live)(nil)
)
