// Package testutil wires the services over a mock Paredão API for tests.
package testutil

import (
	"testing"
	"time"

	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/services"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

// NewCache creates a query client that never retries or waits.
// It is closed when the test ends.
func NewCache(t *testing.T) *query.Client {
	t.Helper()

	cache := query.New(logger.Noop{}, query.Options{Retry: 0, RetryDelay: func(int) time.Duration { return 0 }})
	t.Cleanup(cache.Close)
	return cache
}

// NewCatalog loads the embedded notice catalog with the given default locale
func NewCatalog(t *testing.T, locale string) *notice.Catalog {
	t.Helper()

	catalog, err := notice.NewCatalog(logger.Noop{}, locale)
	if err != nil {
		t.Fatalf("failed to load notice catalog: %v", err)
	}
	return catalog
}

// Services is every service wired to one mock API and one cache
type Services struct {
	API          *paredao.MockClient
	Cache        *query.Client
	Participants *services.ParticipantService
	Eliminations *services.EliminationService
	Voting       *services.VotingService
	Dashboard    *services.DashboardService
	Account      *services.AccountService
	Live         *services.Live
}

// NewServices builds a fresh mock API from opts and wires the services to it.
// Captcha verification is disabled.
func NewServices(t *testing.T, opts ...paredao.MockOption) *Services {
	t.Helper()

	log := logger.Noop{}
	s := &Services{API: paredao.NewMockClient(opts...), Cache: NewCache(t)}
	s.Participants = services.NewParticipantService(log, s.API, s.Cache)
	s.Eliminations = services.NewEliminationService(log, s.API, s.Cache, s.Participants)
	s.Voting = services.NewVotingService(log, s.API, s.Cache, s.Eliminations)
	s.Dashboard = services.NewDashboardService(log, s.API, s.Cache)
	s.Account = services.NewAccountService(log, s.API, s.Cache, nil)
	s.Live = services.NewLive(s.Cache, s.Participants, s.Eliminations, s.Voting, s.Dashboard)
	return s
}
