package services_test

import (
	"testing"
	"time"

	"github.com/abrezinsky/paredao/internal/errors"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/services"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

func TestLiveWatch_Access(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		key      query.Key
		wantKind errors.Kind
		wantErr  bool
	}{
		{name: "open eliminations anonymous", key: services.KeyEliminationsOpen},
		{name: "result anonymous", key: services.KeyResult("e1")},
		{name: "participants with session", token: testToken, key: services.KeyParticipants},
		{name: "dashboard with session", token: testToken, key: services.KeyDashboard},
		{name: "participants anonymous", key: services.KeyParticipants, wantErr: true, wantKind: errors.ErrUnauthorized},
		{name: "result without id", token: testToken, key: services.KeyResults, wantErr: true, wantKind: errors.ErrInvalidInput},
		{name: "unknown topic", token: testToken, key: query.Key{"settings"}, wantErr: true, wantKind: errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, votingElimination())
			stop, err := f.live.Watch(tt.token, tt.key, func(query.Entry) {})
			if tt.wantErr {
				assertKind(t, err, tt.wantKind)
				return
			}
			if err != nil {
				t.Fatalf("Watch failed: %v", err)
			}
			stop()
		})
	}
}

func TestLiveWatch_ReceivesUpdatesAfterInvalidate(t *testing.T) {
	f := newFixture(t, votingElimination())
	updates := make(chan []paredao.Elimination, 8)

	stop, err := f.live.Watch("", services.KeyEliminationsOpen, func(e query.Entry) {
		if v, ok := query.Value[[]paredao.Elimination](e); ok {
			updates <- v
		}
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer stop()

	select {
	case open := <-updates:
		if len(open) != 1 || open[0].ID != "e1" {
			t.Errorf("unexpected first update %+v", open)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the initial fetch")
	}

	f.cache.Invalidate(services.KeyEliminationsOpen)
	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the refetch")
	}
	if n := f.api.Calls(paredao.OpListOpen); n != 2 {
		t.Errorf("expected 2 fetches, got %d", n)
	}
}

func TestLiveWatch_PrivateTopicsWatchedPerSession(t *testing.T) {
	f := newFixture(t, paredao.WithParticipants([]paredao.Participant{participant("p1", "Ana Souza")}))
	keys := make(chan query.Key, 8)

	stop, err := f.live.Watch(testToken, services.KeyParticipants, func(e query.Entry) {
		if e.HasValue {
			keys <- e.Key
		}
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer stop()

	select {
	case key := <-keys:
		if !key.Equal(services.KeyParticipants) {
			t.Errorf("expected updates reported as %s, got %s", services.KeyParticipants.Display(), key.Display())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the initial fetch")
	}
	if n := f.cache.State(services.KeyParticipantsFor(testToken)).Observers; n != 1 {
		t.Errorf("expected the session's entry to be observed, got %d observers", n)
	}
	if n := f.cache.State(services.KeyParticipants).Observers; n != 0 {
		t.Errorf("expected no shared entry, got %d observers", n)
	}
}
