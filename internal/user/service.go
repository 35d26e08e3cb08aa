package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/logger"
)

type Store interface {
	Upsert(ctx context.Context, p Profile) (Record, error)
	List(ctx context.Context) ([]Record, error)
	FindByID(ctx context.Context, id string) (Record, error)
	Update(ctx context.Context, id string, u Update) (Record, error)
	Delete(ctx context.Context, id string) error
	InsertLoginEvent(ctx context.Context, p Profile) error
	ListRecentLoginEvents(ctx context.Context, limit int) ([]LoginEvent, error)
}

type Options struct {
	// LoginEventTimeout bounds the best-effort login event insert.
	LoginEventTimeout time.Duration
	// LoginEventFailures, when set, counts swallowed login event errors.
	LoginEventFailures prometheus.Counter
	// Syncs, when set, counts upserts by result label.
	Syncs *prometheus.CounterVec
}

type Service struct {
	store Store
	opts  Options
}

func NewService(store Store, opts Options) *Service {
	if opts.LoginEventTimeout <= 0 {
		opts.LoginEventTimeout = 2 * time.Second
	}
	return &Service{store: store, opts: opts}
}

// Sync upserts the profile keyed by its id and returns the stored row.
func (s *Service) Sync(ctx context.Context, p Profile) (Record, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Record{}, ErrMissingID
	}
	rec, err := s.store.Upsert(ctx, p)
	if err != nil {
		s.countSync("error")
		return Record{}, storeError(ErrStoreWrite, "sync user", err)
	}
	s.countSync("ok")
	return rec, nil
}

// RecordLogin appends a login event for p. It never fails: errors are logged
// and counted, and the call returns once the insert finishes or times out.
func (s *Service) RecordLogin(ctx context.Context, p Profile) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.LoginEventTimeout)
	defer cancel()

	if err := s.store.InsertLoginEvent(ctx, p); err != nil {
		if s.opts.LoginEventFailures != nil {
			s.opts.LoginEventFailures.Inc()
		}
		logger.From(ctx).Warn("record login event failed",
			zap.String("user_id", p.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context) ([]Record, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, storeError(ErrStoreRead, "list users", err)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	rec, err := s.store.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Record{}, storeError(ErrStoreRead, "get user", err)
	}
	return rec, nil
}

// Update applies a partial update. An empty update returns the current row.
func (s *Service) Update(ctx context.Context, id string, u Update) (Record, error) {
	id = strings.TrimSpace(id)
	if u.Empty() {
		return s.Get(ctx, id)
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	rec, err := s.store.Update(ctx, id, u)
	if err != nil {
		return Record{}, storeError(ErrStoreWrite, "update user", err)
	}
	return rec, nil
}

// Delete removes the user. Deleting an absent id is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return storeError(ErrStoreWrite, "delete user", err)
	}
	return nil
}

func (s *Service) RecentLoginEvents(ctx context.Context) ([]LoginEvent, error) {
	out, err := s.store.ListRecentLoginEvents(ctx, RecentLoginEventsLimit)
	if err != nil {
		return nil, storeError(ErrStoreRead, "list login events", err)
	}
	if out == nil {
		out = []LoginEvent{}
	}
	if len(out) > RecentLoginEventsLimit {
		out = out[:RecentLoginEventsLimit]
	}
	return out, nil
}

func (s *Service) countSync(result string) {
	if s.opts.Syncs != nil {
		s.opts.Syncs.WithLabelValues(result).Inc()
	}
}

// storeError keeps ErrNotFound as is and tags everything else with kind.
func storeError(kind error, op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
