package handlers

import (
	"net/http"

	"github.com/abrezinsky/paredao/internal/auth"
	"github.com/abrezinsky/paredao/internal/services"
	"github.com/abrezinsky/paredao/internal/validation"
)

// handleLoginPage returns the login view
func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	respondOK(w, LoginView{
		SiteKey:  h.opts.SiteKey,
		Redirect: auth.SafeRedirect(r.URL.Query().Get("redirect"), ""),
	})
}

// handleLogin processes login form submission
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form validation.LoginForm
	if err := decodeJSON(r, &form); err != nil {
		h.respondError(w, r, err)
		return
	}

	login, out, err := h.Account.Login(r.Context(), form, remoteIP(r))
	if err == nil {
		auth.SetTokenCookie(w, login.Token, login.Expires, h.opts.SecureCookies)
	}
	h.respondAction(w, r, out, err)
}

// handleRegisterPage returns the registration view
func (h *Handlers) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	respondOK(w, RegisterView{LoginURL: auth.LoginPath})
}

// handleRegister processes registration form submission
func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form validation.RegisterForm
	if err := decodeJSON(r, &form); err != nil {
		h.respondError(w, r, err)
		return
	}

	out, err := h.Account.Register(r.Context(), form)
	h.respondAction(w, r, out, err)
}

// handleLogout clears the session and redirects to login
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session, ok := auth.FromContext(r.Context()); ok {
		h.Account.Logout(session)
	}

	auth.ClearTokenCookie(w)
	h.respondAction(w, r, services.Outcome{Redirect: auth.LoginPath}, nil)
}
