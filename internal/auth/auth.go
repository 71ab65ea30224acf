package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	CookieName = "gc_access_token"

	LoginPath = "/login"
	HomePath  = "/"
)

// Subject is the identity carried by an access token's claims.
// It is read without verifying the signature and is only used for cache
// keys and logging; the API remains the authority on the token.
type Subject struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Session is the credential of the current request
type Session struct {
	Token   string
	Subject Subject
}

type contextKey struct{}

// WithSession stores s in ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by the guards, if any
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok && s.Token != ""
}

// ParseSubject extracts the subject from a JWT without verifying it
func ParseSubject(token string) (Subject, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Subject{}, fmt.Errorf("failed to parse access token: %w", err)
	}

	var s Subject
	for _, key := range []string{"user_id", "sub", "id"} {
		if v, ok := claims[key]; ok {
			s.UserID = claimString(v)
			break
		}
	}
	s.Email = claimString(claims["email"])
	if exp, ok := claims["exp"].(float64); ok {
		s.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return s, nil
}

func claimString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}

// TokenFromRequest returns the access token cookie value, or ""
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// sessionFromRequest builds the session for a request carrying a token.
// An unparsable token still counts as present; only the subject is left empty.
func sessionFromRequest(r *http.Request) (Session, bool) {
	token := TokenFromRequest(r)
	if token == "" {
		return Session{}, false
	}
	subject, _ := ParseSubject(token)
	return Session{Token: token, Subject: subject}, true
}

// Load attaches the session to the request context when a token cookie is
// present, without enforcing anything. Used on public pages.
func Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := sessionFromRequest(r); ok {
			r = r.WithContext(WithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireToken redirects to the login page, remembering the requested
// location, when no token cookie is present. Only presence is checked.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFromRequest(r)
		if !ok {
			http.Redirect(w, r, LoginRedirect(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequireGuest sends requests that already carry a token to the home page
func RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TokenFromRequest(r) != "" {
			http.Redirect(w, r, HomePath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginRedirect returns the login URL carrying target as the redirect parameter
func LoginRedirect(target string) string {
	if target == "" {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"redirect": {target}}.Encode()
}

// SafeRedirect returns target when it is a local absolute path, fallback otherwise
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return target
}

// SetTokenCookie stores the access token. A zero expires makes it a session cookie.
func SetTokenCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires
		cookie.MaxAge = max(int(time.Until(expires).Seconds()), 1)
	}
	http.SetCookie(w, cookie)
}

// ClearTokenCookie removes the access token cookie
func ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
