// Package usertest provides an in-memory user.Store for tests.
package usertest

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

type Store struct {
	mu     sync.Mutex
	users  map[string]user.Record
	events []user.LoginEvent
	seq    int
	clock  time.Time

	// Err* force the matching operation to fail.
	ErrUpsert     error
	ErrRead       error
	ErrWrite      error
	ErrLoginEvent error
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]user.Record),
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) Upsert(_ context.Context, p user.Profile) (user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrUpsert != nil {
		return user.Record{}, s.ErrUpsert
	}
	now := s.tick()
	rec, ok := s.users[p.ID]
	if !ok {
		rec = user.Record{ID: p.ID, CreatedAt: now}
	}
	rec.Email = p.Email
	rec.Name = p.DisplayName
	rec.AvatarURL = p.AvatarURL
	rec.Provider = p.Provider
	rec.UpdatedAt = now
	s.users[p.ID] = rec
	return rec, nil
}

func (s *Store) List(context.Context) ([]user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrRead != nil {
		return nil, s.ErrRead
	}
	out := make([]user.Record, 0, len(s.users))
	for _, rec := range s.users {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindByID(_ context.Context, id string) (user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrRead != nil {
		return user.Record{}, s.ErrRead
	}
	rec, ok := s.users[id]
	if !ok {
		return user.Record{}, user.ErrNotFound
	}
	return rec, nil
}

func (s *Store) Update(_ context.Context, id string, u user.Update) (user.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrWrite != nil {
		return user.Record{}, s.ErrWrite
	}
	rec, ok := s.users[id]
	if !ok {
		return user.Record{}, user.ErrNotFound
	}
	if u.NameSet {
		rec.Name = u.Name
	}
	rec.UpdatedAt = s.tick()
	s.users[id] = rec
	return rec, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrWrite != nil {
		return s.ErrWrite
	}
	delete(s.users, id)
	return nil
}

func (s *Store) InsertLoginEvent(_ context.Context, p user.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrLoginEvent != nil {
		return s.ErrLoginEvent
	}
	s.seq++
	s.events = append(s.events, user.LoginEvent{
		ID:         "evt-" + strconv.Itoa(s.seq),
		AuthUserID: p.ID,
		Email:      p.Email,
		Provider:   p.Provider,
		LoggedInAt: s.tick(),
	})
	return nil
}

func (s *Store) ListRecentLoginEvents(_ context.Context, limit int) ([]user.LoginEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ErrRead != nil {
		return nil, s.ErrRead
	}
	out := make([]user.LoginEvent, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// Events returns every recorded login event, oldest first.
func (s *Store) Events() []user.LoginEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]user.LoginEvent(nil), s.events...)
}

// Put stores rec as is.
func (s *Store) Put(rec user.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[rec.ID] = rec
}
