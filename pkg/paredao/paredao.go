// Package paredao provides a client for the Paredão voting API.
package paredao

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/abrezinsky/paredao/internal/logger"
)

// Multipart is a pre-encoded multipart/form-data body.
// It is sent as-is and its ContentType (with boundary) is used verbatim.
type Multipart struct {
	ContentType string
	Body        []byte
}

// Request describes one call to the API.
// Data is either *Multipart or any value that encodes to JSON.
type Request struct {
	Method string
	Path   string
	Data   any
}

// Client defines the interface for Paredão API operations
type Client interface {
	// WithToken returns a client that sends token as the Authorization header
	WithToken(token string) Client
	// Request performs a raw call and decodes the JSON response into out
	Request(ctx context.Context, req Request, out any) error

	Login(ctx context.Context, creds Credentials) (*LoginResponse, error)
	Register(ctx context.Context, reg Registration) error
	Me(ctx context.Context) (*User, error)

	ListParticipants(ctx context.Context) ([]Participant, error)
	CreateParticipant(ctx context.Context, name string) error
	DeleteParticipant(ctx context.Context, id string) error

	ListEliminations(ctx context.Context) ([]Elimination, error)
	ListOpenEliminations(ctx context.Context) ([]Elimination, error)
	CreateElimination(ctx context.Context, participantIDs [2]string) error
	FinishElimination(ctx context.Context, id string) error
	Dashboard(ctx context.Context) (*DashboardResult, error)
	Result(ctx context.Context, eliminationID string) ([]ParticipantResult, error)
	Vote(ctx context.Context, eliminationID string, vote VoteRequest) error
}

// HTTPClient is the real HTTP client for the Paredão API
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        logger.Logger
	token      string
}

// NewHTTPClient creates a client for the API rooted at baseURL.
// No timeout is configured; callers bound requests through their context.
func NewHTTPClient(baseURL string, log logger.Logger) (*HTTPClient, error) {
	return NewHTTPClientWithHTTPClient(baseURL, &http.Client{}, log)
}

// NewHTTPClientWithHTTPClient creates a client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) (*HTTPClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("API base URL %q must be absolute", baseURL)
	}
	if log == nil {
		log = logger.Noop{}
	}
	return &HTTPClient{
		baseURL:    base,
		httpClient: httpClient,
		log:        log,
	}, nil
}

// BaseURL returns the configured API base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL.String()
}

// WithToken returns a copy of the client bound to token
func (c *HTTPClient) WithToken(token string) Client {
	cp := *c
	cp.token = token
	return &cp
}

// resolve resolves path against the base URL the way a browser resolves a relative reference
func (c *HTTPClient) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// Request executes a call against the API.
// Non-2xx responses become *HTTPError when the body has the {code, message}
// shape and *UnknownError otherwise.
func (c *HTTPClient) Request(ctx context.Context, r Request, out any) error {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	apiURL, err := c.resolve(r.Path)
	if err != nil {
		return err
	}

	var body io.Reader
	contentType := ""
	switch data := r.Data.(type) {
	case *Multipart:
		body = bytes.NewReader(data.Body)
		contentType = data.ContentType
	default:
		contentType = "application/json"
		if method != http.MethodGet && data != nil {
			encoded, err := json.Marshal(data)
			if err != nil {
				return fmt.Errorf("failed to encode request body: %w", err)
			}
			body = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	c.log.Debug("API request", "method", method, "url", apiURL, "authenticated", c.token != "")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("API response", "method", method, "url", apiURL, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Login exchanges credentials for an access token
func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.Request(ctx, Request{Method: http.MethodPost, Path: "api/v1/auth/login", Data: creds}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account
func (c *HTTPClient) Register(ctx context.Context, reg Registration) error {
	return c.Request(ctx, Request{Method: http.MethodPost, Path: "api/v1/auth/register", Data: reg}, nil)
}

// Me fetches the current user
func (c *HTTPClient) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.Request(ctx, Request{Path: "api/v1/users/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListParticipants returns every participant
func (c *HTTPClient) ListParticipants(ctx context.Context) ([]Participant, error) {
	var participants []Participant
	if err := c.Request(ctx, Request{Path: "api/v1/participants"}, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

// CreateParticipant creates a participant with the given full name
func (c *HTTPClient) CreateParticipant(ctx context.Context, name string) error {
	return c.Request(ctx, Request{
		Method: http.MethodPost,
		Path:   "api/v1/participants",
		Data:   map[string]any{"name": name},
	}, nil)
}

// DeleteParticipant deletes a participant
func (c *HTTPClient) DeleteParticipant(ctx context.Context, id string) error {
	return c.Request(ctx, Request{
		Method: http.MethodDelete,
		Path:   "api/v1/participants/" + url.PathEscape(id),
	}, nil)
}

// ListEliminations returns every elimination
func (c *HTTPClient) ListEliminations(ctx context.Context) ([]Elimination, error) {
	var eliminations []Elimination
	if err := c.Request(ctx, Request{Path: "api/v1/eliminations"}, &eliminations); err != nil {
		return nil, err
	}
	return eliminations, nil
}

// ListOpenEliminations returns the eliminations currently open for voting
func (c *HTTPClient) ListOpenEliminations(ctx context.Context) ([]Elimination, error) {
	var eliminations []Elimination
	if err := c.Request(ctx, Request{Path: "api/v1/eliminations/open"}, &eliminations); err != nil {
		return nil, err
	}
	return eliminations, nil
}

// CreateElimination opens an elimination between two participants
func (c *HTTPClient) CreateElimination(ctx context.Context, participantIDs [2]string) error {
	return c.Request(ctx, Request{
		Method: http.MethodPost,
		Path:   "api/v1/eliminations",
		Data:   map[string]any{"participants": participantIDs[:]},
	}, nil)
}

// FinishElimination closes an elimination
func (c *HTTPClient) FinishElimination(ctx context.Context, id string) error {
	return c.Request(ctx, Request{
		Method: http.MethodPatch,
		Path:   "api/v1/eliminations/" + url.PathEscape(id) + "/finish",
	}, nil)
}

// Dashboard returns the aggregate dashboard snapshot
func (c *HTTPClient) Dashboard(ctx context.Context) (*DashboardResult, error) {
	var result DashboardResult
	if err := c.Request(ctx, Request{Path: "api/v1/eliminations/dashboard"}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Result returns the per-participant vote counts of an elimination
func (c *HTTPClient) Result(ctx context.Context, eliminationID string) ([]ParticipantResult, error) {
	var results []ParticipantResult
	err := c.Request(ctx, Request{Path: "api/v1/eliminations/" + url.PathEscape(eliminationID) + "/result"}, &results)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Vote casts a vote for a participant of an elimination
func (c *HTTPClient) Vote(ctx context.Context, eliminationID string, vote VoteRequest) error {
	return c.Request(ctx, Request{
		Method: http.MethodPost,
		Path:   "api/v1/eliminations/" + url.PathEscape(eliminationID) + "/vote",
		Data:   vote,
	}, nil)
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
