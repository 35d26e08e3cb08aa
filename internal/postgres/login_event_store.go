package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

// InsertLoginEvent appends one row; logged_in_at is assigned by the database.
func (s *UserStore) InsertLoginEvent(ctx context.Context, p user.Profile) error {
	db := dbFrom(ctx, s.db)
	_, err := db.Exec(ctx, `
		insert into login_events (id, auth_user_id, email, provider)
		values ($1, $2, $3, $4)
	`, uuid.New(), p.ID, p.Email, p.Provider)
	if err != nil {
		return fmt.Errorf("insert login event: %w", err)
	}
	return nil
}

func (s *UserStore) ListRecentLoginEvents(ctx context.Context, limit int) ([]user.LoginEvent, error) {
	if limit <= 0 {
		limit = user.RecentLoginEventsLimit
	}
	db := dbFrom(ctx, s.db)
	rows, err := db.Query(ctx, `
		select id, auth_user_id, email, provider, logged_in_at
		from login_events
		order by logged_in_at desc, id desc
		limit $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list login events: %w", err)
	}
	defer rows.Close()

	out := make([]user.LoginEvent, 0, limit)
	for rows.Next() {
		var (
			ev user.LoginEvent
			id uuid.UUID
		)
		if err := rows.Scan(&id, &ev.AuthUserID, &ev.Email, &ev.Provider, &ev.LoggedInAt); err != nil {
			return nil, fmt.Errorf("scan login event: %w", err)
		}
		ev.ID = id.String()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate login events: %w", err)
	}
	return out, nil
}
