package services

import (
	"context"
	"errors"
	"time"

	"github.com/abrezinsky/paredao/internal/auth"
	"github.com/abrezinsky/paredao/internal/captcha"
	apperrors "github.com/abrezinsky/paredao/internal/errors"
	"github.com/abrezinsky/paredao/internal/logger"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/query"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

// AccountService handles login, registration and the current user
type AccountService struct {
	log     logger.Logger
	api     paredao.Client
	cache   *query.Client
	captcha captcha.Verifier
}

// NewAccountService creates a new AccountService
func NewAccountService(log logger.Logger, api paredao.Client, cache *query.Client, verifier captcha.Verifier) *AccountService {
	if verifier == nil {
		verifier = captcha.Disabled{}
	}
	return &AccountService{log: log, api: api, cache: cache, captcha: verifier}
}

// LoginResult is a successful sign-in: the cookie to set and whose it is
type LoginResult struct {
	Token   string
	Expires time.Time
	UserID  string
}

// Login signs in with email and password. The bot check is verified before
// the credentials are sent.
func (s *AccountService) Login(ctx context.Context, form validation.LoginForm, remoteIP string) (*LoginResult, Outcome, error) {
	var out Outcome
	if fe := validation.Login(&form); fe != nil {
		out.Fields = fe
		return nil, out, invalidForm(fe)
	}

	if err := s.captcha.Verify(ctx, form.CaptchaToken, remoteIP); err != nil {
		out.notify(notice.Errorf(notice.CaptchaNotVerified))
		if errors.Is(err, captcha.ErrNotVerified) {
			return nil, out, ErrCaptchaNotVerified
		}
		s.log.Warn("captcha verification failed", "error", err)
		return nil, out, apperrors.Upstream(err)
	}

	resp, err := s.api.Login(ctx, paredao.Credentials{Email: form.Email, Password: form.Password})
	if err != nil {
		switch paredao.CodeOf(err) {
		case paredao.InvalidCredentials:
			out.notify(notice.Errorf(notice.InvalidCredentials))
		case paredao.CaptchaNotVerified:
			out.notify(notice.Errorf(notice.CaptchaNotVerified))
		default:
			out.notify(notice.Errorf(notice.Unexpected))
		}
		return nil, out, fromAPI(err)
	}

	s.cache.Invalidate(KeyMe)
	s.log.Info("user logged in", "user", resp.UserID)
	out.Redirect = auth.SafeRedirect(form.Redirect, auth.HomePath)
	return &LoginResult{Token: resp.AccessToken, Expires: resp.Expires, UserID: resp.UserID}, out, nil
}

// Register creates an account named "<name> <surname>"
func (s *AccountService) Register(ctx context.Context, form validation.RegisterForm) (Outcome, error) {
	var out Outcome
	if fe := validation.Register(&form); fe != nil {
		out.Fields = fe
		return out, invalidForm(fe)
	}

	err := s.api.Register(ctx, paredao.Registration{
		Name:     form.FullName(),
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		if paredao.HasCode(err, paredao.ResourceAlreadyTaken) {
			out.Fields = validation.FieldErrors{"email": notice.Errorf(notice.EmailTaken)}
		} else {
			out.notify(notice.Errorf(notice.Unexpected))
		}
		return out, fromAPI(err)
	}

	s.log.Info("account created", "email", form.Email)
	out.notify(notice.Successf(notice.AccountCreated))
	out.Redirect = auth.LoginPath
	return out, nil
}

// MeLoader returns the fetch function of the current user for token
func (s *AccountService) MeLoader(token string) func(ctx context.Context) (*paredao.User, error) {
	return func(ctx context.Context) (*paredao.User, error) {
		return bind(s.api, token).Me(ctx)
	}
}

// Me returns the user the session belongs to, cached per token
func (s *AccountService) Me(ctx context.Context, session auth.Session) (*paredao.User, error) {
	user, err := fetchPrivate(ctx, s.cache, KeyMeFor(session.Token), s.MeLoader(session.Token))
	if err != nil {
		return nil, fromAPI(err)
	}
	return user, nil
}

// Logout forgets everything cached for the session. The caller clears the cookie.
func (s *AccountService) Logout(session auth.Session) {
	if session.Token != "" {
		s.cache.Remove(KeyMeFor(session.Token))
		s.cache.Remove(KeyParticipantsFor(session.Token))
		s.cache.Remove(KeyEliminationsFor(session.Token))
		s.cache.Remove(KeyDashboardFor(session.Token))
	}
	s.log.Info("user logged out", "user", session.Subject.UserID)
}
