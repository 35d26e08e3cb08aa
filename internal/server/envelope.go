package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/auth"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/identity"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/logger"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

const (
	msgMalformedAuthHeader = "Invalid or missing Authorization header"
	msgInvalidToken        = "Invalid token"
	msgProviderUnavailable = "Identity provider unavailable"
	msgUserNotFound        = "User not found"
	msgMissingAccessToken  = "Missing access_token"
	msgInvalidJSON         = "Invalid JSON body"
	msgInvalidName         = "name must be a string or null"
	msgBodyTooLarge        = "Request body too large"
	msgTooManyRequests     = "Too many requests"
	msgNotFound            = "Not found"
	msgMethodNotAllowed    = "Method not allowed"
	msgDatabaseUnavailable = "Database unavailable"
	msgInternalServerError = "Internal server error"
)

// envelope wraps every response body. Data is null on failure and Error is
// null on success.
type envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: &message})
}

// writeError maps err to a status and message and logs server-side failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeFailure(w, status, message)
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMalformedAuthHeader):
		return http.StatusUnauthorized, msgMalformedAuthHeader
	case errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized, msgInvalidToken
	case errors.Is(err, identity.ErrProviderUnavailable):
		return http.StatusBadGateway, msgProviderUnavailable
	case errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, msgUserNotFound
	default:
		return http.StatusInternalServerError, msgInternalServerError
	}
}
