package server

import (
	"net/http"
	"strings"
)

type callbackRequest struct {
	AccessToken string `json:"access_token"`
}

// authCallback exchanges a provider access token for the mirrored user record
// and records the login.
func (h handler) authCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := decodeJSONWithLimit(w, r, &req, defaultRequestBodyLimitBytes); err != nil {
		if isRequestBodyTooLarge(err) {
			writeFailure(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		// An unreadable body carries no token either.
		req = callbackRequest{}
	}
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		writeFailure(w, http.StatusBadRequest, msgMissingAccessToken)
		return
	}

	rec, profile, err := h.auth.Exchange(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.users.RecordLogin(r.Context(), profile)
	writeSuccess(w, http.StatusOK, rec)
}

func (h handler) me(w http.ResponseWriter, r *http.Request) {
	rec, err := h.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}
