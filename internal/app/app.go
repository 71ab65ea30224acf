package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/paredao/internal/captcha"
	"github.com/abrezinsky/paredao/internal/config"
	"github.com/abrezinsky/paredao/internal/handlers"
	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/services"
	"github.com/abrezinsky/paredao/internal/websocket"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

const shutdownTimeout = 10 * time.Second

// App holds all application dependencies
type App struct {
	log       logger.Logger
	cfg       config.Config
	cache     *query.Client
	hub       *websocket.Hub
	handlers  *handlers.Handlers
	publicURL string
}

// New creates and initializes a new application instance. api is the
// Paredão API client; a nil api is built from cfg.ServerURL.
func New(log logger.Logger, cfg config.Config, api paredao.Client) (*App, error) {
	if api == nil {
		client, err := paredao.NewHTTPClient(cfg.ServerURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create API client: %w", err)
		}
		api = client
	}

	catalog, err := notice.NewCatalog(log, cfg.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("failed to load notices: %w", err)
	}

	// Initialize the cache and services
	cache := query.New(log, query.DefaultOptions())
	participantService := services.NewParticipantService(log, api, cache)
	eliminationService := services.NewEliminationService(log, api, cache, participantService)
	votingService := services.NewVotingService(log, api, cache, eliminationService)
	dashboardService := services.NewDashboardService(log, api, cache)
	accountService := services.NewAccountService(log, api, cache, captcha.New(cfg.SecretKey, log))
	live := services.NewLive(cache, participantService, eliminationService, votingService, dashboardService)

	// Initialize WebSocket hub with DI
	hub := websocket.New(log, live, cfg.CORSOrigins)
	hub.Start()
	cache.SetInvalidateHook(hub.Invalidated)

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = defaultPublicURL(getPreferredIP(realNetworkProvider{}), cfg.Port)
	}

	h := handlers.New(
		accountService,
		participantService,
		eliminationService,
		votingService,
		dashboardService,
		catalog,
		hub,
		log,
		handlers.Options{
			SiteKey:       cfg.SiteKey,
			PublicURL:     publicURL,
			SecureCookies: cfg.SecureCookies,
			CORSOrigins:   cfg.CORSOrigins,
		},
	)

	return &App{
		log:       log,
		cfg:       cfg,
		cache:     cache,
		hub:       hub,
		handlers:  h,
		publicURL: publicURL,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// PublicURL is the address voters reach the server at
func (a *App) PublicURL() string {
	return a.publicURL
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	a.hub.Stop()
	a.cache.Close()
}

// Run serves HTTP on addr until ctx is done, then shuts the server down
func (a *App) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.log.Info("Server starting", "addr", addr, "api", a.cfg.ServerURL)
	a.log.Info("Voting URL", "url", a.publicURL+"/voting")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-serverErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// defaultPublicURL builds the LAN address phones can scan from the QR code
func defaultPublicURL(ip string, port int) string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(ip, fmt.Sprint(port)))
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IP address for LAN access.
// Prefers private network addresses (192.168.x.x, 10.x.x.x, 172.16-31.x.x).
// Falls back to localhost if no suitable address is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP

	for _, iface := range ifaces {
		// Skip down and loopback interfaces
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			// Only consider IPv4 addresses
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}

			candidates = append(candidates, ip)
		}
	}

	// Prefer private network addresses
	for _, ip := range candidates {
		ipStr := ip.String()
		if strings.HasPrefix(ipStr, "192.168.") ||
			strings.HasPrefix(ipStr, "10.") ||
			isPrivate172(ip) {
			return ipStr
		}
	}

	if len(candidates) > 0 {
		return candidates[0].String()
	}

	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
