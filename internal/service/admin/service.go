package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/velychko/bookgo/internal/domain"
	"github.com/velychko/bookgo/internal/repository"
	postgresrepo "github.com/velychko/bookgo/internal/repository/postgres"
	redisrepo "github.com/velychko/bookgo/internal/repository/redis"
	"github.com/velychko/bookgo/internal/uow"
)

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisrepo.BookingsPubSub
	uow    *uow.UoW
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, pubsub *redisrepo.BookingsPubSub) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
	}
}

// CreateEvent creates an event record and returns it.
func (s *Service) CreateEvent(ctx context.Context, name string, totalSeats int) (*domain.Event, error) {
	const op = "service.admin.CreateEvent"

	var e domain.Event
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		id, err := s.store.Events().With(tx).Create(ctx, name, totalSeats)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		e = domain.Event{ID: id, Name: name, TotalSeats: totalSeats}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &e, nil
}

// UpdateEvent applies a partial update; nil fields keep their current value.
//
// Returns:
//   - error: admin.ErrEventNotFound if the event does not exist.
func (s *Service) UpdateEvent(ctx context.Context, id int64, name *string, totalSeats *int) (*domain.Event, error) {
	const op = "service.admin.UpdateEvent"

	var e domain.Event
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		cur, err := s.store.Events().With(tx).Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		e = *cur
		if name != nil {
			e.Name = *name
		}
		if totalSeats != nil {
			e.TotalSeats = *totalSeats
		}

		if err := s.store.Events().With(tx).Update(ctx, id, e.Name, e.TotalSeats); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateEvent(ctx, id)
			}
			if s.pubsub != nil {
				_ = s.pubsub.PublishEventChanged(ctx, id)
			}
		})
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &e, nil
}

// DeleteEvent removes an event; its bookings are removed by the store's
// cascade rule.
//
// Returns:
//   - error: admin.ErrEventNotFound if the event does not exist.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	const op = "service.admin.DeleteEvent"

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Events().With(tx).Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrEventNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateEvent(ctx, id)
			}
			if s.pubsub != nil {
				_ = s.pubsub.PublishEventChanged(ctx, id)
			}
		})
		return nil
	})
}
