package services

import (
	stderrors "errors"

	"github.com/abrezinsky/paredao/internal/errors"
	"github.com/abrezinsky/paredao/internal/validation"
	"github.com/abrezinsky/paredao/pkg/paredao"
)

// Service errors
var (
	ErrParticipantInElimination = errors.Precondition("participant is in an open elimination")
	ErrNotEnoughParticipants    = errors.Precondition("at least 2 participants are required")
	ErrNoOpenElimination        = errors.NotFound("no open elimination")
	ErrCaptchaNotVerified       = errors.Validation("captcha not verified")
)

// invalidForm wraps field errors as a validation error
func invalidForm(fe validation.FieldErrors) error {
	return errors.Wrap(fe, errors.ErrValidation, "invalid form")
}

// fromAPI classifies an error returned by the Paredão client
func fromAPI(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return err
	}
	var httpErr *paredao.HTTPError
	if !stderrors.As(err, &httpErr) {
		return errors.Upstream(err)
	}
	switch httpErr.Code {
	case paredao.Unauthorized, paredao.InvalidCredentials:
		return errors.Wrap(err, errors.ErrUnauthorized, string(httpErr.Code))
	case paredao.ResourceNotFound:
		return errors.Wrap(err, errors.ErrNotFound, string(httpErr.Code))
	case paredao.ResourceAlreadyTaken, paredao.LimitReached:
		return errors.Wrap(err, errors.ErrConflict, string(httpErr.Code))
	case paredao.CaptchaNotVerified:
		return errors.Wrap(err, errors.ErrValidation, string(httpErr.Code))
	default:
		return errors.Upstream(err)
	}
}
