package handlers_test

import (
	"bytes"
	"image/png"
	"net/http"
	"testing"

	"github.com/abrezinsky/paredao/internal/handlers"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

func TestHandleVotingPage(t *testing.T) {
	setup := newTestSetup(t, roster(), openElimination())

	rec := setup.do(http.MethodGet, "/voting", nil, nil)

	expectStatus(t, rec, http.StatusOK)
	view := decodeView[handlers.VotingView](t, rec)
	if view.Elimination == nil || view.Elimination.ID != "e1" {
		t.Fatalf("expected the open elimination, got %+v", view.Elimination)
	}
	if view.SignedIn || view.Voted || view.Summary != nil {
		t.Errorf("unexpected anonymous view %+v", view)
	}
	if view.SiteKey != "site-key" || view.LoginURL != "/login?redirect=%2Fvoting" {
		t.Errorf("unexpected view %+v", view)
	}
}

func TestHandleVotingPage_NoOpenElimination(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(http.MethodGet, "/voting?voted=true", nil, nil)

	expectStatus(t, rec, http.StatusOK)
	view := decodeView[handlers.VotingView](t, rec)
	if view.Elimination != nil || view.Summary != nil {
		t.Errorf("expected an empty view, got %+v", view)
	}
}

func TestHandleVote_ThenResults(t *testing.T) {
	setup := newTestSetup(t, roster(), openElimination(), paredao.WithVotes("e1", map[string]int{"p1": 2, "p2": 1}))

	rec := setup.do(http.MethodPost, "/voting/vote", map[string]string{"participant_id": "p2", "captcha_token": "ok"}, setup.authCookie)

	expectStatus(t, rec, http.StatusOK)
	result := decodeAction(t, rec)
	if !result.OK || result.Redirect != "/voting?voted=true" {
		t.Fatalf("unexpected result %+v", result)
	}

	rec = setup.do(http.MethodGet, result.Redirect, nil, setup.authCookie)
	expectStatus(t, rec, http.StatusOK)
	view := decodeView[handlers.VotingView](t, rec)
	if !view.SignedIn || !view.Voted || view.Summary == nil {
		t.Fatalf("expected the standings, got %+v", view)
	}
	if view.Summary.TotalVotes != 4 {
		t.Errorf("expected 4 votes, got %d", view.Summary.TotalVotes)
	}
	for _, s := range view.Summary.Standings {
		if s.Percent != 50 || !s.Leader {
			t.Errorf("expected a tie at 50%%, got %+v", s)
		}
	}
}

func TestHandleVote_Rejected(t *testing.T) {
	tests := []struct {
		name         string
		opts         []paredao.MockOption
		body         map[string]string
		signedIn     bool
		wantStatus   int
		wantRedirect string
		wantNotice   string
	}{
		{
			name:         "anonymous",
			opts:         []paredao.MockOption{openElimination()},
			body:         map[string]string{"participant_id": "p1"},
			wantStatus:   http.StatusUnauthorized,
			wantRedirect: "/login",
			wantNotice:   "You need to be logged in to vote",
		},
		{
			name:       "captcha",
			opts:       []paredao.MockOption{openElimination(), paredao.WithError(paredao.OpVote, &paredao.HTTPError{Status: 400, Code: paredao.CaptchaNotVerified})},
			body:       map[string]string{"participant_id": "p1"},
			signedIn:   true,
			wantStatus: http.StatusUnprocessableEntity,
			wantNotice: "Captcha not verified",
		},
		{
			name:       "no open elimination",
			body:       map[string]string{"participant_id": "p1"},
			signedIn:   true,
			wantStatus: http.StatusUnprocessableEntity,
			wantNotice: "No elimination found",
		},
		{
			name:       "no participant",
			opts:       []paredao.MockOption{openElimination()},
			body:       map[string]string{},
			signedIn:   true,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup := newTestSetup(t, tt.opts...)
			var cookie *http.Cookie
			if tt.signedIn {
				cookie = setup.authCookie
			}

			rec := setup.do(http.MethodPost, "/voting/vote", tt.body, cookie)

			expectStatus(t, rec, tt.wantStatus)
			result := decodeAction(t, rec)
			if result.OK || result.Redirect != tt.wantRedirect {
				t.Errorf("unexpected result %+v", result)
			}
			if tt.wantNotice != "" && !hasNoticeText(result, tt.wantNotice) {
				t.Errorf("expected notice %q, got %+v", tt.wantNotice, result.Notices)
			}
		})
	}
}

func TestHandleVotingQR(t *testing.T) {
	tests := []struct {
		name      string
		publicURL string
	}{
		{"configured public url", "https://paredao.example.com"},
		{"derived from request", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup := newTestSetupWithOptions(t, handlers.Options{PublicURL: tt.publicURL})

			rec := setup.do(http.MethodGet, "/voting/qr", nil, nil)

			expectStatus(t, rec, http.StatusOK)
			if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("expected image/png, got %q", ct)
			}
			if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
				t.Errorf("expected a valid PNG: %v", err)
			}
		})
	}
}
