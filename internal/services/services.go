// Package services implements the front-end's actions on top of the
// Paredão API client and the shared query cache.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/abrezinsky/paredao/internal/auth"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

// Cache keys. Participants, eliminations, dashboard and me are per session:
// their entries live under the prefix plus the session's credential, so
// invalidating the prefix reaches every session.
var (
	KeyParticipants     = query.Key{"participants"}
	KeyEliminations     = query.Key{"eliminations"}
	KeyEliminationsOpen = query.Key{"eliminations-open"}
	KeyDashboard        = query.Key{"dashboard"}
	KeyMe               = query.Key{"me"}
	KeyResults          = query.Key{"result"}
)

// KeyResult is the key of an elimination's vote counts
func KeyResult(eliminationID string) query.Key {
	return query.Key{"result", eliminationID}
}

// credential identifies a token in cache keys without storing it
func credential(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// KeyParticipantsFor is the participants key of the session holding token
func KeyParticipantsFor(token string) query.Key {
	return query.Key{KeyParticipants[0], credential(token)}
}

// KeyEliminationsFor is the eliminations key of the session holding token
func KeyEliminationsFor(token string) query.Key {
	return query.Key{KeyEliminations[0], credential(token)}
}

// KeyDashboardFor is the dashboard key of the session holding token
func KeyDashboardFor(token string) query.Key {
	return query.Key{KeyDashboard[0], credential(token)}
}

// KeyMeFor is the current user key of the session holding token. It is
// derived from the token itself, never from its unverified claims.
func KeyMeFor(token string) query.Key {
	return query.Key{KeyMe[0], credential(token)}
}

// fetchPrivate reads a per-session key. A rejected credential leaves no entry behind.
func fetchPrivate[T any](ctx context.Context, cache *query.Client, key query.Key, load func(ctx context.Context) (T, error)) (T, error) {
	v, err := query.Fetch(ctx, cache, key, load)
	if paredao.HasCode(err, paredao.Unauthorized) {
		cache.Remove(key)
	}
	return v, err
}

// Outcome is what an action reports back to the browser besides its error
type Outcome struct {
	Redirect string
	Notices  []notice.Message
	Fields   validation.FieldErrors
}

func (o *Outcome) notify(m notice.Message) {
	o.Notices = append(o.Notices, m)
}

// fail records the notice for a failed API call. Expired or missing
// credentials always send the user back to the login page.
func (o *Outcome) fail(err error, fallback notice.Message, returnTo string) {
	if paredao.HasCode(err, paredao.Unauthorized) {
		o.notify(notice.Errorf(notice.SessionExpired))
		o.Redirect = auth.LoginRedirect(returnTo)
		return
	}
	o.notify(fallback)
}

// bind returns the API client to use for token. An empty token yields an
// anonymous client.
func bind(api paredao.Client, token string) paredao.Client {
	if token == "" {
		return api
	}
	return api.WithToken(token)
}
