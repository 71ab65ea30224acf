package paredao

import "time"

// MaxParticipants is the roster size the API accepts
const MaxParticipants = 8

// User is the authenticated account as returned by api/v1/users/me
type User struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Participant is a nominee that can be placed into an elimination.
// EliminationID is nil when the participant is not in any elimination.
type Participant struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Picture       *string   `json:"picture"`
	EliminationID *string   `json:"elimination_id"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated"`
}

// InElimination reports whether the participant is referenced by an elimination
func (p Participant) InElimination() bool {
	return p.EliminationID != nil && *p.EliminationID != ""
}

// ParticipantRef is the name/id projection of a participant embedded in an elimination
type ParticipantRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Elimination is a head-to-head contest between exactly two participants
type Elimination struct {
	ID           string           `json:"id"`
	Open         bool             `json:"open"`
	Participants []ParticipantRef `json:"participants"`
	StartDate    time.Time        `json:"start_date"`
	EndDate      time.Time        `json:"end_date"`
	Created      time.Time        `json:"created"`
	Updated      time.Time        `json:"updated"`
}

// ParticipantResult is the aggregate vote count of one participant
type ParticipantResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DashboardResult is the aggregate voting snapshot.
// SpreadVotes is indexed by hour of day.
type DashboardResult struct {
	TotalVotes     int     `json:"total_votes"`
	TotalUsers     int     `json:"total_users"`
	VotesPerHour   float64 `json:"votes_per_hour"`
	SpreadVotes    [24]int `json:"spread_votes"`
	HasElimination bool    `json:"has_elimination"`
}

// LoginResponse is returned by api/v1/auth/login
type LoginResponse struct {
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token"`
	Expires     time.Time `json:"expires"`
}

// Credentials is the login request body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request body
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VoteRequest is the vote request body.
// CaptchaToken is forwarded from the browser's challenge widget when present.
type VoteRequest struct {
	ParticipantID string `json:"participant_id"`
	CaptchaToken  string `json:"captcha_token,omitempty"`
}
