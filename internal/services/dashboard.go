package services

import (
	"context"
	"time"

	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

// DashboardRefetchInterval is how often live consumers poll the dashboard
const DashboardRefetchInterval = 30 * time.Second

// DashboardService serves the aggregate voting snapshot
type DashboardService struct {
	log   logger.Logger
	api   paredao.Client
	cache *query.Client
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(log logger.Logger, api paredao.Client, cache *query.Client) *DashboardService {
	return &DashboardService{log: log, api: api, cache: cache}
}

// Loader returns the fetch function of the dashboard for token
func (s *DashboardService) Loader(token string) func(ctx context.Context) (*paredao.DashboardResult, error) {
	return func(ctx context.Context) (*paredao.DashboardResult, error) {
		return bind(s.api, token).Dashboard(ctx)
	}
}

// Get returns the dashboard, from cache when fresh
func (s *DashboardService) Get(ctx context.Context, token string) (*paredao.DashboardResult, error) {
	result, err := fetchPrivate(ctx, s.cache, KeyDashboardFor(token), s.Loader(token))
	if err != nil {
		return nil, fromAPI(err)
	}
	return result, nil
}

// Refresh loads the dashboard even when the cached copy is fresh
func (s *DashboardService) Refresh(ctx context.Context, token string) (*paredao.DashboardResult, error) {
	key := KeyDashboardFor(token)
	v, err := s.cache.Refetch(ctx, key, func(ctx context.Context) (any, error) {
		return s.Loader(token)(ctx)
	})
	if err != nil {
		if paredao.HasCode(err, paredao.Unauthorized) {
			s.cache.Remove(key)
		}
		return nil, fromAPI(err)
	}
	result, _ := v.(*paredao.DashboardResult)
	s.log.Debug("dashboard refreshed")
	return result, nil
}
