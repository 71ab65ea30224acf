package handlers

import (
	"net/http"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/paredao/internal/services"
	"github.com/abrezinsky/paredao/internal/validation"
)

const votingPagePath = "/voting"

// handleVotingPage serves the current elimination, or its standings once
// the visitor has voted
func (h *Handlers) handleVotingPage(w http.ResponseWriter, r *http.Request) {
	s := session(r)
	view := VotingView{
		SiteKey:  h.opts.SiteKey,
		SignedIn: s.Token != "",
		LoginURL: services.LoginToVote(),
		Voted:    r.URL.Query().Get("voted") == "true",
	}

	elimination, err := h.Voting.CurrentElimination(r.Context(), s.Token)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	view.Elimination = elimination

	if view.Voted && elimination != nil {
		results, err := h.Voting.Result(r.Context(), s.Token, elimination.ID)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		summary := services.Summarize(elimination.ID, results)
		view.Summary = &summary
	}

	respondOK(w, view)
}

// handleVote handles vote submissions
func (h *Handlers) handleVote(w http.ResponseWriter, r *http.Request) {
	var form validation.VoteForm
	if err := decodeJSON(r, &form); err != nil {
		h.respondError(w, r, err)
		return
	}

	out, err := h.Voting.Vote(r.Context(), session(r).Token, form)
	h.respondAction(w, r, out, err)
}

// handleVotingQR returns a PNG QR code pointing at the public voting page
func (h *Handlers) handleVotingQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(h.publicURL(r)+votingPagePath, qrcode.Medium, 256)
	if err != nil {
		h.respondError(w, r, InternalError(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}

// publicURL is the configured public address, or the one the request came in on
func (h *Handlers) publicURL(r *http.Request) string {
	if h.opts.PublicURL != "" {
		return h.opts.PublicURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
