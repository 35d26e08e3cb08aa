package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

const userColumns = `id, email, name, avatar_url, provider, created_at, updated_at`

// UserStore implements user.Store on the users and login_events tables.
type UserStore struct {
	db DBTX
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{db: pool}
}

var _ user.Store = (*UserStore)(nil)

func scanUser(row pgx.Row) (user.Record, error) {
	var out user.Record
	err := row.Scan(&out.ID, &out.Email, &out.Name, &out.AvatarURL, &out.Provider, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}

// Upsert inserts the profile or overwrites the mutable columns of the
// existing row in one statement.
func (s *UserStore) Upsert(ctx context.Context, p user.Profile) (user.Record, error) {
	db := dbFrom(ctx, s.db)
	out, err := scanUser(db.QueryRow(ctx, `
		insert into users (id, email, name, avatar_url, provider)
		values ($1, $2, $3, $4, $5)
		on conflict (id) do update
		set email = excluded.email,
		    name = excluded.name,
		    avatar_url = excluded.avatar_url,
		    provider = excluded.provider,
		    updated_at = now()
		returning `+userColumns,
		p.ID, p.Email, p.DisplayName, p.AvatarURL, p.Provider,
	))
	if err != nil {
		return user.Record{}, fmt.Errorf("upsert user: %w", err)
	}
	return out, nil
}

func (s *UserStore) List(ctx context.Context) ([]user.Record, error) {
	db := dbFrom(ctx, s.db)
	rows, err := db.Query(ctx, `select `+userColumns+` from users order by created_at asc, id asc`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]user.Record, 0)
	for rows.Next() {
		rec, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (user.Record, error) {
	db := dbFrom(ctx, s.db)
	out, err := scanUser(db.QueryRow(ctx, `select `+userColumns+` from users where id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return user.Record{}, user.ErrNotFound
		}
		return user.Record{}, fmt.Errorf("find user by id: %w", err)
	}
	return out, nil
}

// Update writes only the columns marked as set in u.
func (s *UserStore) Update(ctx context.Context, id string, u user.Update) (user.Record, error) {
	if u.Empty() {
		return s.FindByID(ctx, id)
	}
	db := dbFrom(ctx, s.db)
	out, err := scanUser(db.QueryRow(ctx, `
		update users
		set name = $2,
		    updated_at = now()
		where id = $1
		returning `+userColumns,
		id, u.Name,
	))
	if err != nil {
		if isNoRows(err) {
			return user.Record{}, user.ErrNotFound
		}
		return user.Record{}, fmt.Errorf("update user: %w", err)
	}
	return out, nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	db := dbFrom(ctx, s.db)
	if _, err := db.Exec(ctx, `delete from users where id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
