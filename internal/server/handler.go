package server

import (
	"context"
	"net/http"
	"time"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/auth"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

const healthzTimeout = 2 * time.Second

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handler struct {
	users *user.Service
	auth  *auth.Authenticator
	db    Pinger
}

func newHandler(deps Deps) handler {
	return handler{users: deps.Users, auth: deps.Auth, db: deps.DB}
}

func (h handler) health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthzTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			writeFailure(w, http.StatusServiceUnavailable, msgDatabaseUnavailable)
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}
