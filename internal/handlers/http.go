package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/paredao/internal/auth"
	"github.com/abrezinsky/paredao/internal/errors"
	"github.com/abrezinsky/paredao/internal/notice"
	"github.com/abrezinsky/paredao/internal/services"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodePrecondition   = "PRECONDITION_FAILED"
	ErrCodeUpstream       = "UPSTREAM_ERROR"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`

	cause error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// BadRequest creates a 400 error with custom message
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// InternalError creates a 500 error that keeps the original error for the log
func InternalError(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error", cause: err}
}

// ActionResult is the body of every action response. Errors maps form
// fields to the localized message to show under them.
type ActionResult struct {
	OK       bool              `json:"ok"`
	Redirect string            `json:"redirect,omitempty"`
	Notices  []notice.Notice   `json:"notices,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondError writes an error response. Internal errors are logged with
// their cause; the client only sees the generic message.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		apiErr = ToAPIError(err)
	}
	if apiErr.Status == http.StatusInternalServerError {
		h.Log.Error("Internal error", "path", r.URL.Path, "error", apiErr.cause)
	}
	respondJSON(w, apiErr.Status, apiErr)
}

// statusFor maps an action error to its response status
func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch errors.KindOf(err) {
	case errors.ErrValidation, errors.ErrInvalidInput, errors.ErrPrecondition, errors.ErrConflict, errors.ErrNotFound:
		return http.StatusUnprocessableEntity
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondAction renders an action outcome with notices in the browser's language
func (h *Handlers) respondAction(w http.ResponseWriter, r *http.Request, out services.Outcome, err error) {
	loc := h.Catalog.For(r.Header.Get("Accept-Language"))
	result := ActionResult{
		OK:       err == nil,
		Redirect: out.Redirect,
		Notices:  loc.Render(out.Notices...),
	}
	if len(out.Fields) > 0 {
		result.Errors = make(map[string]string, len(out.Fields))
		for field, msg := range out.Fields {
			result.Errors[field] = loc.Text(msg)
		}
	}
	switch errors.KindOf(err) {
	case errors.ErrUnauthorized:
		// a rejected token must not keep the guest pages out of reach
		if _, ok := auth.FromContext(r.Context()); ok {
			auth.ClearTokenCookie(w)
		}
	case errors.ErrInternal:
		if err != nil {
			h.Log.Error("action failed", "path", r.URL.Path, "error", err)
		}
	}
	respondJSON(w, statusFor(err), result)
}

// respondPage writes a view model. An expired session drops the cookie and
// sends the browser to the login page.
func (h *Handlers) respondPage(w http.ResponseWriter, r *http.Request, view interface{}, err error) {
	if err == nil {
		respondOK(w, view)
		return
	}
	if errors.Is(err, errors.ErrUnauthorized) {
		auth.ClearTokenCookie(w)
		http.Redirect(w, r, auth.LoginRedirect(r.URL.RequestURI()), http.StatusFound)
		return
	}
	h.respondError(w, r, err)
}

// decodeJSON decodes JSON from request body into the target
func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}

// idParam extracts a required URL parameter
func idParam(r *http.Request, name string) (string, error) {
	param := chi.URLParam(r, name)
	if param == "" {
		return "", BadRequest("Missing " + name + " parameter")
	}
	return param, nil
}

// remoteIP returns the client address without its port
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ToAPIError converts service errors to appropriate API errors
func ToAPIError(err error) *APIError {
	var appErr *errors.Error
	if !stderrors.As(err, &appErr) {
		return InternalError(err)
	}
	switch appErr.Kind {
	case errors.ErrNotFound:
		return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: appErr.Message}
	case errors.ErrValidation, errors.ErrInvalidInput:
		return &APIError{Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: appErr.Message}
	case errors.ErrConflict:
		return &APIError{Status: http.StatusConflict, Code: ErrCodeConflict, Message: appErr.Message}
	case errors.ErrPrecondition:
		return &APIError{Status: http.StatusUnprocessableEntity, Code: ErrCodePrecondition, Message: appErr.Message}
	case errors.ErrUnauthorized:
		return &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: appErr.Message}
	case errors.ErrUpstream:
		return &APIError{Status: http.StatusBadGateway, Code: ErrCodeUpstream, Message: "Paredão API unavailable"}
	default:
		return InternalError(err)
	}
}
