package handlers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/abrezinsky/paredao/internal/auth"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

// session returns the session attached by the guards
func session(r *http.Request) auth.Session {
	s, _ := auth.FromContext(r.Context())
	return s
}

// ==================== Dashboard ====================

func (h *Handlers) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	s := session(r)

	var (
		user      *paredao.User
		dashboard *paredao.DashboardResult
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		user, err = h.Account.Me(ctx, s)
		return err
	})
	g.Go(func() (err error) {
		dashboard, err = h.Dashboard.Get(ctx, s.Token)
		return err
	})
	err := g.Wait()

	h.respondPage(w, r, newDashboardView(user, dashboard), err)
}

func (h *Handlers) handleRefreshDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.Dashboard.Refresh(r.Context(), session(r).Token)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, newDashboardView(nil, dashboard))
}

// ==================== Participants ====================

func (h *Handlers) handleParticipantsPage(w http.ResponseWriter, r *http.Request) {
	participants, err := h.Participants.List(r.Context(), session(r).Token)
	h.respondPage(w, r, newParticipantsView(participants), err)
}

func (h *Handlers) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	var form validation.ParticipantForm
	if err := decodeJSON(r, &form); err != nil {
		h.respondError(w, r, err)
		return
	}

	out, err := h.Participants.Create(r.Context(), session(r).Token, form)
	h.respondAction(w, r, out, err)
}

func (h *Handlers) handleDeleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out, err := h.Participants.Delete(r.Context(), session(r).Token, id)
	h.respondAction(w, r, out, err)
}

// ==================== Eliminations ====================

func (h *Handlers) handleEliminationsPage(w http.ResponseWriter, r *http.Request) {
	token := session(r).Token

	var (
		eliminations []paredao.Elimination
		participants []paredao.Participant
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		eliminations, err = h.Eliminations.List(ctx, token)
		return err
	})
	g.Go(func() (err error) {
		participants, err = h.Participants.List(ctx, token)
		return err
	})
	err := g.Wait()

	h.respondPage(w, r, newEliminationsView(eliminations, participants), err)
}

func (h *Handlers) handleCreateElimination(w http.ResponseWriter, r *http.Request) {
	var form validation.EliminationForm
	if err := decodeJSON(r, &form); err != nil {
		h.respondError(w, r, err)
		return
	}

	out, err := h.Eliminations.Create(r.Context(), session(r).Token, form)
	h.respondAction(w, r, out, err)
}

func (h *Handlers) handleCloseElimination(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out, err := h.Eliminations.Close(r.Context(), session(r).Token, id)
	h.respondAction(w, r, out, err)
}
