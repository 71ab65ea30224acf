package paredao

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Operation names used by MockClient for error injection and call counting
const (
	OpLogin             = "login"
	OpRegister          = "register"
	OpMe                = "me"
	OpListParticipants  = "participants.list"
	OpCreateParticipant = "participants.create"
	OpDeleteParticipant = "participants.delete"
	OpListEliminations  = "eliminations.list"
	OpListOpen          = "eliminations.open"
	OpCreateElimination = "eliminations.create"
	OpFinishElimination = "eliminations.finish"
	OpDashboard         = "eliminations.dashboard"
	OpResult            = "eliminations.result"
	OpVote              = "eliminations.vote"
	OpRequest           = "request"
)

type mockState struct {
	mu           sync.Mutex
	users        map[string]mockUser // email -> user
	participants []Participant
	eliminations []Elimination
	votes        map[string]map[string]int // eliminationID -> participantID -> count
	dashboard    *DashboardResult
	errs         map[string]error
	calls        map[string]int
	tokens       []string
	issued       map[string]string // access token -> user id
	nextID       int
	hooks        map[string]func(ctx context.Context)
}

type mockUser struct {
	user     User
	password string
}

// MockClient is an in-memory Paredão API for tests.
// Copies returned by WithToken share state with the original.
type MockClient struct {
	state *mockState
	token string
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithParticipants seeds the participant roster
func WithParticipants(participants []Participant) MockOption {
	return func(m *MockClient) {
		m.state.participants = append([]Participant(nil), participants...)
	}
}

// WithEliminations seeds the eliminations
func WithEliminations(eliminations []Elimination) MockOption {
	return func(m *MockClient) {
		m.state.eliminations = append([]Elimination(nil), eliminations...)
	}
}

// WithUser registers an account that can log in
func WithUser(user User, password string) MockOption {
	return func(m *MockClient) {
		m.state.users[strings.ToLower(user.Email)] = mockUser{user: user, password: password}
	}
}

// WithVotes seeds vote counts for an elimination
func WithVotes(eliminationID string, counts map[string]int) MockOption {
	return func(m *MockClient) {
		m.state.votes[eliminationID] = counts
	}
}

// WithDashboard fixes the dashboard response instead of computing it
func WithDashboard(result DashboardResult) MockOption {
	return func(m *MockClient) {
		m.state.dashboard = &result
	}
}

// WithError makes the given operation fail with err
func WithError(op string, err error) MockOption {
	return func(m *MockClient) {
		m.state.errs[op] = err
	}
}

// WithHook runs fn at the start of the given operation, before any state change.
// Tests use it to block a call and observe intermediate cache state.
func WithHook(op string, fn func(ctx context.Context)) MockOption {
	return func(m *MockClient) {
		m.state.hooks[op] = fn
	}
}

// NewMockClient creates a mock client
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{state: &mockState{
		users:  make(map[string]mockUser),
		votes:  make(map[string]map[string]int),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
		hooks:  make(map[string]func(ctx context.Context)),
		issued: make(map[string]string),
		nextID: 1,
	}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetError changes the injected error for op; nil clears it
func (m *MockClient) SetError(op string, err error) {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	if err == nil {
		delete(m.state.errs, op)
		return
	}
	m.state.errs[op] = err
}

// Calls returns how many times op was invoked
func (m *MockClient) Calls(op string) int {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	return m.state.calls[op]
}

// Tokens returns the tokens seen by authenticated calls, in order
func (m *MockClient) Tokens() []string {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	return append([]string(nil), m.state.tokens...)
}

// Participants returns the server-side roster
func (m *MockClient) Participants() []Participant {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	return append([]Participant(nil), m.state.participants...)
}

// IssueToken returns a token accepted by Me for a seeded user, or "" when unknown
func (m *MockClient) IssueToken(userID string) string {
	m.state.mu.Lock()
	defer m.state.mu.Unlock()
	for _, u := range m.state.users {
		if u.user.ID == userID {
			token := MockToken(u.user, time.Now().Add(time.Hour))
			m.state.issued[token] = userID
			return token
		}
	}
	return ""
}

// WithToken returns a client bound to token sharing this mock's state
func (m *MockClient) WithToken(token string) Client {
	return &MockClient{state: m.state, token: token}
}

// begin records the call, runs any hook, and returns the injected error.
// The state lock is held on successful return; callers must unlock.
func (m *MockClient) begin(ctx context.Context, op string) error {
	m.state.mu.Lock()
	m.state.calls[op]++
	if m.token != "" {
		m.state.tokens = append(m.state.tokens, m.token)
	}
	hook := m.state.hooks[op]
	m.state.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.state.mu.Lock()
	if err := m.state.errs[op]; err != nil {
		m.state.mu.Unlock()
		return err
	}
	return nil
}

func (m *MockClient) requireToken() error {
	if m.token == "" {
		return &HTTPError{Status: 401, Code: Unauthorized, Message: "access token not provided"}
	}
	return nil
}

func (m *MockClient) genID(prefix string) string {
	id := fmt.Sprintf("%s_%d", prefix, m.state.nextID)
	m.state.nextID++
	return id
}

// Request records the call; raw requests have no simulated behavior
func (m *MockClient) Request(ctx context.Context, req Request, out any) error {
	if err := m.begin(ctx, OpRequest); err != nil {
		return err
	}
	m.state.mu.Unlock()
	return nil
}

// mockSigningKey signs mock tokens; the front-end never verifies them
var mockSigningKey = []byte("paredao-mock")

// MockToken returns a JWT shaped like the API's access tokens
func MockToken(user User, expires time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     expires.Unix(),
	})
	signed, err := token.SignedString(mockSigningKey)
	if err != nil {
		panic(fmt.Sprintf("mock token: %v", err))
	}
	return signed
}

// Login issues a MockToken for the user
func (m *MockClient) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	if err := m.begin(ctx, OpLogin); err != nil {
		return nil, err
	}
	defer m.state.mu.Unlock()

	u, ok := m.state.users[strings.ToLower(creds.Email)]
	if !ok || u.password != creds.Password {
		return nil, &HTTPError{Status: 401, Code: InvalidCredentials, Message: "invalid credentials"}
	}
	expires := time.Now().Add(24 * time.Hour)
	token := MockToken(u.user, expires)
	m.state.issued[token] = u.user.ID
	return &LoginResponse{
		UserID:      u.user.ID,
		AccessToken: token,
		Expires:     expires,
	}, nil
}

// Register creates an account
func (m *MockClient) Register(ctx context.Context, reg Registration) error {
	if err := m.begin(ctx, OpRegister); err != nil {
		return err
	}
	defer m.state.mu.Unlock()

	key := strings.ToLower(reg.Email)
	if _, exists := m.state.users[key]; exists {
		return &HTTPError{Status: 409, Code: ResourceAlreadyTaken, Message: "email already taken"}
	}
	now := time.Now()
	m.state.users[key] = mockUser{
		user:     User{ID: m.genID("user"), Name: reg.Name, Email: reg.Email, Created: now, Updated: now},
		password: reg.Password,
	}
	return nil
}

// Me returns the user owning the bound token
func (m *MockClient) Me(ctx context.Context) (*User, error) {
	if err := m.begin(ctx, OpMe); err != nil {
		return nil, err
	}
	defer m.state.mu.Unlock()
	if err := m.requireToken(); err != nil {
		return nil, err
	}
	userID := m.state.issued[m.token]
	for _, u := range m.state.users {
		if userID != "" && u.user.ID == userID {
			user := u.user
			return &user, nil
		}
	}
	return nil, &HTTPError{Status: 401, Code: Unauthorized, Message: "invalid access token"}
}

// ListParticipants returns a copy of the roster
func (m *MockClient) ListParticipants(ctx context.Context) ([]Participant, error) {
	if err := m.begin(ctx, OpListParticipants); err != nil {
		return nil, err
	}
	defer m.state.mu.Unlock()
	return append([]Participant{}, m.state.participants...), nil
}

// CreateParticipant enforces unique names and the roster limit
func (m *MockClient) CreateParticipant(ctx context.Context, name string) error {
	if err := m.begin(ctx, OpCreateParticipant); err != nil {
		return err
	}
	defer m.state.mu.Unlock()

	if len(m.state.participants) >= MaxParticipants {
		return &HTTPError{Status: 403, Code: LimitReached, Message: "participant limit reached"}
	}
	for _, p := range m.state.participants {
		if strings.EqualFold(p.Name, name) {
			return &HTTPError{Status: 409, Code: ResourceAlreadyTaken, Message: "participant already exists"}
		}
	}
	now := time.Now()
	m.state.participants = append(m.state.participants, Participant{
		ID: m.genID("part"), Name: name, Created: now, Updated: now,
	})
	return nil
}

// DeleteParticipant removes a participant
func (m *MockClient) DeleteParticipant(ctx context.Context, id string) error {
	if err := m.begin(ctx, OpDeleteParticipant); err != nil {
		return err
	}
	defer m.state.mu.Unlock()

	for i, p := range m.state.participants {
		if p.ID == id {
			m.state.participants = append(m.state.participants[:i:i], m.state.participants[i+1:]...)
			return nil
		}
	}
	return &HTTPError{Status: 404, Code: ResourceNotFound, Message: "participant not found"}
}

// ListEliminations returns a copy of every elimination
func (m *MockClient) ListEliminations(ctx context.Context) ([]Elimination, error) {
	if err := m.begin(ctx, OpListEliminations); err != nil {
		return nil, err
	}
	defer m.state.mu.Unlock()
	return copyEliminations(m.state.eliminations, false), nil
}

// ListOpenEliminations returns the open eliminations
func (m *MockClient) ListOpenEliminations(ctx context.Context) ([]Elimination, error) {
	if err := m.begin(ctx, OpListOpen); err != nil {
		return nil, err
	}
	defer m.state.mu.Unlock()
	return copyEliminations(m.state.eliminations, true), nil
}

func copyEliminations(src []Elimination, openOnly bool) []Elimination {
	out := []Elimination{}
	for _, e := range src {
		if openOnly && !e.Open {
			continue
		}
		e.Participants = append([]ParticipantRef{}, e.Participants...)
		out = append(out, e)
	}
	return out
}

// CreateElimination allows a single open elimination at a time
func (m *MockClient) CreateElimination(ctx context.Context, participantIDs [2]string) error {
	if err := m.begin(ctx, OpCreateElimination); err != nil {
		return err
	}
	defer m.state.mu.Unlock()

	for _, e := range m.state.eliminations {
		if e.Open {
			return &HTTPError{Status: 403, Code: LimitReached, Message: "an elimination is already open"}
		}
	}

	indexes := make([]int, 0, 2)
	for _, pid := range participantIDs {
		idx := -1
		for i := range m.state.participants {
			if m.state.participants[i].ID == pid {
				idx = i
			}
		}
		if idx < 0 {
			return &HTTPError{Status: 404, Code: ResourceNotFound, Message: "participant not found"}
		}
		indexes = append(indexes, idx)
	}

	id := m.genID("elim")
	refs := make([]ParticipantRef, 0, 2)
	for _, idx := range indexes {
		elimID := id
		m.state.participants[idx].EliminationID = &elimID
		refs = append(refs, ParticipantRef{ID: m.state.participants[idx].ID, Name: m.state.participants[idx].Name})
	}

	now := time.Now()
	m.state.eliminations = append(m.state.eliminations, Elimination{
		ID: id, Open: true, Participants: refs,
		StartDate: now, EndDate: now.Add(24 * time.Hour), Created: now, Updated: now,
	})
	return nil
}

// FinishElimination closes an elimination and frees its participants
func (m *MockClient) FinishElimination(ctx context.Context, id string) error {
	if err := m.begin(ctx, OpFinishElimination); err != nil {
		return err
	}
	defer m.state.mu.Unlock()

	for i := range m.state.eliminations {
		if m.state.eliminations[i].ID != id {
			continue
		}
		m.state.eliminations[i].Open = false
		m.state.eliminations[i].Updated = time.Now()
		for j := range m.state.participants {
			if ref := m.state.participants[j].EliminationID; ref != nil && *ref == id {
				m.state.participants[j].EliminationID = nil
			}
		}
		return nil
	}
	return &HTTPError{Status: 404, Code: ResourceNotFound, Message: "elimination not found"}
}

// Dashboard returns the fixed dashboard or one computed from recorded votes
func (m *MockClient) Dashboard(ctx context.Context) (*DashboardResult, error) {
	if err := m.begin(ctx, OpDashboard); err != nil {
		return nil, err
	}
	defer m.state.mu.Unlock()

	if m.state.dashboard != nil {
		result := *m.state.dashboard
		return &result, nil
	}
	result := DashboardResult{TotalUsers: len(m.state.users)}
	for _, e := range m.state.eliminations {
		if e.Open {
			result.HasElimination = true
		}
	}
	for _, counts := range m.state.votes {
		for _, n := range counts {
			result.TotalVotes += n
		}
	}
	result.SpreadVotes[time.Now().Hour()] = result.TotalVotes
	result.VotesPerHour = float64(result.TotalVotes) / 24
	return &result, nil
}

// Result returns vote counts for the participants of an elimination
func (m *MockClient) Result(ctx context.Context, eliminationID string) ([]ParticipantResult, error) {
	if err := m.begin(ctx, OpResult); err != nil {
		return nil, err
	}
	defer m.state.mu.Unlock()

	for _, e := range m.state.eliminations {
		if e.ID != eliminationID {
			continue
		}
		results := make([]ParticipantResult, 0, len(e.Participants))
		for _, p := range e.Participants {
			results = append(results, ParticipantResult{ID: p.ID, Name: p.Name, Count: m.state.votes[e.ID][p.ID]})
		}
		return results, nil
	}
	return nil, &HTTPError{Status: 404, Code: ResourceNotFound, Message: "elimination not found"}
}

// Vote records a vote; it requires a token like the real API
func (m *MockClient) Vote(ctx context.Context, eliminationID string, vote VoteRequest) error {
	if err := m.begin(ctx, OpVote); err != nil {
		return err
	}
	defer m.state.mu.Unlock()
	if err := m.requireToken(); err != nil {
		return err
	}

	for _, e := range m.state.eliminations {
		if e.ID != eliminationID || !e.Open {
			continue
		}
		for _, p := range e.Participants {
			if p.ID == vote.ParticipantID {
				if m.state.votes[e.ID] == nil {
					m.state.votes[e.ID] = make(map[string]int)
				}
				m.state.votes[e.ID][p.ID]++
				return nil
			}
		}
	}
	return &HTTPError{Status: 404, Code: ResourceNotFound, Message: "elimination or participant not found"}
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
