package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/velychko/bookgo/internal/domain"
	"github.com/velychko/bookgo/internal/repository"
	postgresrepo "github.com/velychko/bookgo/internal/repository/postgres"
	redisrepo "github.com/velychko/bookgo/internal/repository/redis"
)

type Config struct {
	EventSummaryTTL time.Duration
	AvailabilityTTL time.Duration
}

type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.EventSummaryTTL <= 0 {
		cfg.EventSummaryTTL = 60 * time.Second
	}

	if cfg.AvailabilityTTL <= 0 {
		cfg.AvailabilityTTL = 15 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// GetEvent retrieves an event by its ID through the caching layer.
//
// Returns:
//   - error: query.ErrEventNotFound if the event is not found.
func (s *Service) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "service.query.GetEvent"

	key := redisrepo.KeyEventSummary(id)

	event, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.EventSummaryTTL,
		func(ctx context.Context) (domain.Event, error) {
			e, err := s.store.Events().Get(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.Event{}, ErrEventNotFound
				}

				return domain.Event{}, err
			}

			return *e, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &event, nil
}

// ListEvents returns all events, uncached.
func (s *Service) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const op = "service.query.ListEvents"

	out, err := s.store.Events().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Availability returns seat counters for an event through the caching layer.
//
// Returns:
//   - error: query.ErrEventNotFound if the event is not found.
func (s *Service) Availability(ctx context.Context, eventID int64) (*domain.EventAvailability, error) {
	const op = "service.query.Availability"

	key := redisrepo.KeyEventAvailability(eventID)

	av, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		key,
		s.cfg.AvailabilityTTL,
		func(ctx context.Context) (domain.EventAvailability, error) {
			a, err := s.store.Events().Availability(ctx, eventID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.EventAvailability{}, ErrEventNotFound
				}

				return domain.EventAvailability{}, err
			}

			return *a, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &av, nil
}
