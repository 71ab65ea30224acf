package handlers

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abrezinsky/paredao/internal/services"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

// LoginView is the data of the login page
type LoginView struct {
	SiteKey  string `json:"site_key"`
	Redirect string `json:"redirect,omitempty"`
}

// RegisterView is the data of the registration page
type RegisterView struct {
	LoginURL string `json:"login_url"`
}

// DashboardView is the data of the home page
type DashboardView struct {
	User       *paredao.User            `json:"user,omitempty"`
	Dashboard  *paredao.DashboardResult `json:"dashboard"`
	TotalVotes string                   `json:"total_votes"`
	PeakHour   int                      `json:"peak_hour"`
}

// ParticipantView is one row of the participants page
type ParticipantView struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Picture       *string `json:"picture,omitempty"`
	InElimination bool    `json:"in_elimination"`
	Added         string  `json:"added"`
}

// ParticipantsView is the data of the participants page
type ParticipantsView struct {
	Participants []ParticipantView `json:"participants"`
	Count        int               `json:"count"`
	Max          int               `json:"max"`
}

// EliminationView is one row of the eliminations page.
// Ends is relative to the request time, e.g. "3 hours from now".
type EliminationView struct {
	ID           string                   `json:"id"`
	Open         bool                     `json:"open"`
	Participants []paredao.ParticipantRef `json:"participants"`
	StartDate    time.Time                `json:"start_date"`
	EndDate      time.Time                `json:"end_date"`
	Ends         string                   `json:"ends"`
}

// EliminationsView is the data of the eliminations page. Candidates are the
// participants that can still be placed into a new elimination.
type EliminationsView struct {
	Eliminations []EliminationView        `json:"eliminations"`
	Candidates   []paredao.ParticipantRef `json:"candidates"`
	HasOpen      bool                     `json:"has_open"`
}

// VotingView is the data of the public voting page. Summary is set once
// the visitor has voted.
type VotingView struct {
	Elimination *paredao.Elimination `json:"elimination"`
	SiteKey     string               `json:"site_key"`
	SignedIn    bool                 `json:"signed_in"`
	LoginURL    string               `json:"login_url"`
	Voted       bool                 `json:"voted"`
	Summary     *services.Summary    `json:"summary,omitempty"`
}

func newDashboardView(user *paredao.User, d *paredao.DashboardResult) DashboardView {
	view := DashboardView{User: user, Dashboard: d}
	if d == nil {
		return view
	}
	view.TotalVotes = humanize.Comma(int64(d.TotalVotes))
	for hour, votes := range d.SpreadVotes {
		if votes > d.SpreadVotes[view.PeakHour] {
			view.PeakHour = hour
		}
	}
	return view
}

func newParticipantsView(participants []paredao.Participant) ParticipantsView {
	view := ParticipantsView{
		Participants: make([]ParticipantView, 0, len(participants)),
		Count:        len(participants),
		Max:          paredao.MaxParticipants,
	}
	for _, p := range participants {
		view.Participants = append(view.Participants, ParticipantView{
			ID:            p.ID,
			Name:          p.Name,
			Picture:       p.Picture,
			InElimination: p.InElimination(),
			Added:         humanize.Time(p.Created),
		})
	}
	return view
}

func newEliminationsView(eliminations []paredao.Elimination, participants []paredao.Participant) EliminationsView {
	view := EliminationsView{
		Eliminations: make([]EliminationView, 0, len(eliminations)),
		Candidates:   []paredao.ParticipantRef{},
	}
	for _, e := range eliminations {
		view.Eliminations = append(view.Eliminations, EliminationView{
			ID:           e.ID,
			Open:         e.Open,
			Participants: e.Participants,
			StartDate:    e.StartDate,
			EndDate:      e.EndDate,
			Ends:         humanize.Time(e.EndDate),
		})
		view.HasOpen = view.HasOpen || e.Open
	}
	for _, p := range participants {
		if !p.InElimination() {
			view.Candidates = append(view.Candidates, paredao.ParticipantRef{ID: p.ID, Name: p.Name})
		}
	}
	return view
}
