package services

import (
	"math"

	"github.com/abrezinsky/paredao/pkg/paredao"
)

// Standing is one participant's share of an elimination's votes
type Standing struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Votes   int    `json:"votes"`
	Percent int    `json:"percent"`
	Leader  bool   `json:"leader"`
}

// Summary is the tally of an elimination
type Summary struct {
	EliminationID string     `json:"elimination_id"`
	TotalVotes    int        `json:"total_votes"`
	Standings     []Standing `json:"standings"`
}

// Summarize computes totals, rounded percentages and the leader flag.
// Every participant tied for the highest count is a leader; nobody leads
// an elimination without votes.
func Summarize(eliminationID string, results []paredao.ParticipantResult) Summary {
	summary := Summary{EliminationID: eliminationID, Standings: make([]Standing, 0, len(results))}

	highest := 0
	for _, r := range results {
		summary.TotalVotes += r.Count
		highest = max(highest, r.Count)
	}

	for _, r := range results {
		s := Standing{ID: r.ID, Name: r.Name, Votes: r.Count}
		if summary.TotalVotes > 0 {
			s.Percent = int(math.Round(float64(r.Count) * 100 / float64(summary.TotalVotes)))
			s.Leader = r.Count == highest
		}
		summary.Standings = append(summary.Standings, s)
	}
	return summary
}
