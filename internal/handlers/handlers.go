package handlers

import (
	"net/http"

	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/services"
)

// Options holds the deployment settings the handlers need
type Options struct {
	// SiteKey is the public captcha key shown on the login and voting pages
	SiteKey string
	// PublicURL is the address voters reach the server at; used for the QR code.
	// Empty means derive it from the request.
	PublicURL     string
	SecureCookies bool
	CORSOrigins   []string
}

// LiveHandler serves websocket connections
type LiveHandler interface {
	ServeWs(w http.ResponseWriter, r *http.Request)
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Account      services.AccountServicer
	Participants services.ParticipantServicer
	Eliminations services.EliminationServicer
	Voting       services.VotingServicer
	Dashboard    services.DashboardServicer
	Catalog      *notice.Catalog
	Hub          LiveHandler
	Log          logger.Logger
	opts         Options
}

// New creates a new Handlers instance with all dependencies.
// hub may be nil, in which case /ws is not served.
func New(
	account services.AccountServicer,
	participants services.ParticipantServicer,
	eliminations services.EliminationServicer,
	voting services.VotingServicer,
	dashboard services.DashboardServicer,
	catalog *notice.Catalog,
	hub LiveHandler,
	log logger.Logger,
	opts Options,
) *Handlers {
	if log == nil {
		log = logger.Noop{}
	}
	return &Handlers{
		Account:      account,
		Participants: participants,
		Eliminations: eliminations,
		Voting:       voting,
		Dashboard:    dashboard,
		Catalog:      catalog,
		Hub:          hub,
		Log:          log,
		opts:         opts,
	}
}
