package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

func (h handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, users)
}

func (h handler) getUser(w http.ResponseWriter, r *http.Request) {
	rec, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

// updateUser applies a partial update. Only "name" is honoured; an explicit
// null clears it and an absent key leaves it unchanged.
func (h handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeJSONWithLimit(w, r, &body, defaultRequestBodyLimitBytes); err != nil {
		if isRequestBodyTooLarge(err) {
			writeFailure(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		writeFailure(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if body == nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	upd, ok := parseUpdate(body)
	if !ok {
		writeFailure(w, http.StatusBadRequest, msgInvalidName)
		return
	}

	rec, err := h.users.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

func parseUpdate(body map[string]json.RawMessage) (user.Update, bool) {
	var upd user.Update
	raw, ok := body["name"]
	if !ok {
		return upd, true
	}
	upd.NameSet = true
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return upd, true
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return user.Update{}, false
	}
	upd.Name = &name
	return upd, true
}

func (h handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, true)
}

func (h handler) loginEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.users.RecentLoginEvents(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, events)
}
