// Package captcha verifies Cloudflare Turnstile tokens server-side.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/abrezinsky/paredao/internal/logger"
)

// DefaultVerifyURL is Turnstile's siteverify endpoint
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// ErrNotVerified is returned when the token is missing or rejected
var ErrNotVerified = errors.New("captcha not verified")

// Verifier checks a browser-provided bot-check token
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
	Enabled() bool
}

// Turnstile verifies tokens with the secret key. The secret never leaves the server.
type Turnstile struct {
	secret     string
	verifyURL  string
	httpClient *http.Client
	log        logger.Logger
}

// NewTurnstile creates a verifier; use WithURL and WithHTTPClient to override defaults
func NewTurnstile(secret string, log logger.Logger, opts ...Option) *Turnstile {
	if log == nil {
		log = logger.Noop{}
	}
	t := &Turnstile{
		secret:     secret,
		verifyURL:  DefaultVerifyURL,
		httpClient: &http.Client{},
		log:        log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Option configures a Turnstile verifier
type Option func(*Turnstile)

func WithURL(u string) Option {
	return func(t *Turnstile) { t.verifyURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(t *Turnstile) { t.httpClient = c }
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
	Action     string   `json:"action"`
}

func (t *Turnstile) Enabled() bool { return true }

// Verify asks Turnstile whether token is valid
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return ErrNotVerified
	}

	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach siteverify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse siteverify response: %w", err)
	}
	if !result.Success {
		t.log.Info("captcha rejected", "errors", result.ErrorCodes)
		return ErrNotVerified
	}
	return nil
}

// Disabled accepts every token. Used when no secret key is configured.
type Disabled struct{}

func (Disabled) Verify(context.Context, string, string) error { return nil }
func (Disabled) Enabled() bool                                { return false }

// New returns a Turnstile verifier for secret, or Disabled with a warning when secret is empty
func New(secret string, log logger.Logger) Verifier {
	if secret == "" {
		if log != nil {
			log.Warn("VERIFY_SECRET_KEY not set, captcha verification disabled")
		}
		return Disabled{}
	}
	return NewTurnstile(secret, log)
}

var (
	_ Verifier = (*Turnstile)(nil)
	_ Verifier = Disabled{}
)
