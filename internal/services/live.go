package services

import (
	"github.com/abrezinsky/paredao/internal/errors"
	"github.com/abrezinsky/paredao/internal/query"
)

// Live resolves the keys a live consumer may subscribe to and the loader
// that keeps each one fresh.
type Live struct {
	cache        *query.Client
	participants *ParticipantService
	eliminations *EliminationService
	voting       *VotingService
	dashboard    *DashboardService
}

// NewLive creates a new Live
func NewLive(cache *query.Client, participants *ParticipantService, eliminations *EliminationService, voting *VotingService, dashboard *DashboardService) *Live {
	return &Live{
		cache:        cache,
		participants: participants,
		eliminations: eliminations,
		voting:       voting,
		dashboard:    dashboard,
	}
}

// Watch registers listener as an observer of key. The voting keys are open
// to anonymous consumers and shared; the rest need a token and are watched
// under the session's own key, reported back as key.
func (l *Live) Watch(token string, key query.Key, listener func(query.Entry)) (func(), error) {
	switch {
	case key.Equal(KeyEliminationsOpen):
		return query.Watch(l.cache, key, l.eliminations.OpenLoader(token), listener, query.WatchOptions{}), nil
	case len(key) == 2 && key[0] == KeyResults[0] && key[1] != "":
		return query.Watch(l.cache, key, l.voting.ResultLoader(token, key[1]), listener, query.WatchOptions{}), nil
	}

	if token == "" {
		return nil, errors.Unauthorized("subscription requires a session")
	}
	reported := func(e query.Entry) {
		e.Key = key
		listener(e)
	}
	switch {
	case key.Equal(KeyParticipants):
		return query.Watch(l.cache, KeyParticipantsFor(token), l.participants.Loader(token), reported, query.WatchOptions{}), nil
	case key.Equal(KeyEliminations):
		return query.Watch(l.cache, KeyEliminationsFor(token), l.eliminations.Loader(token), reported, query.WatchOptions{}), nil
	case key.Equal(KeyDashboard):
		return query.Watch(l.cache, KeyDashboardFor(token), l.dashboard.Loader(token), reported,
			query.WatchOptions{RefetchInterval: DashboardRefetchInterval}), nil
	default:
		return nil, errors.InvalidInputf("unknown topic %s", key.Display())
	}
}
