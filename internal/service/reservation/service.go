package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/velychko/bookgo/internal/domain"
	"github.com/velychko/bookgo/internal/repository"
	redisrepo "github.com/velychko/bookgo/internal/repository/redis"
)

// Store is the booking persistence the engine runs on. The production
// implementation is *postgres.BookingRepo; Reserve must execute the whole
// check-and-insert sequence atomically under a per-event exclusive lock.
type Store interface {
	Reserve(ctx context.Context, eventID int64, userID string) (*domain.Booking, error)
	Get(ctx context.Context, id int64) (*domain.BookingWithEvent, error)
	List(ctx context.Context) ([]domain.BookingWithEvent, error)
	ListByUser(ctx context.Context, userID string) ([]domain.BookingWithEvent, error)
	ListByEvent(ctx context.Context, eventID int64) ([]domain.BookingWithEvent, error)
}

type Service struct {
	store   Store
	cache   *redisrepo.Cache
	pubsub  *redisrepo.BookingsPubSub
	limiter *redisrepo.SlidingWindowLimiter
}

func New(
	store Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.BookingsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
	}
}

// Reserve books one seat of an event for a user.
//
// Parameters:
//   - ctx: request-scoped context.
//   - eventID: ID of the event to book.
//   - userID: ID of the booking user.
//   - rlKey: rate-limiter key for the caller, empty to skip limiting.
//
// Returns:
//   - *domain.Booking: the created booking.
//   - error: reservation.ErrEventNotFound if the event does not exist.
//   - error: reservation.ErrDuplicateBooking if the pair is already booked.
//   - error: reservation.ErrNoSeatsLeft if the event is at capacity.
//   - error: reservation.ErrLockTimeout if the event row lock was not
//     acquired in time; safe to retry.
func (s *Service) Reserve(
	ctx context.Context,
	eventID int64,
	userID string,
	rlKey string,
) (*domain.Booking, error) {
	const op = "service.reservation.Reserve"

	if eventID <= 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
	}

	if userID == "" {
		return nil, fmt.Errorf("%s: empty user id", op)
	}

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w: retry in %s", op, ErrRateLimited, retry)
		}
	}

	b, err := s.store.Reserve(ctx, eventID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%s:%w", op, ErrDuplicateBooking)
		case errors.Is(err, repository.ErrNoSeatsLeft):
			return nil, fmt.Errorf("%s:%w", op, ErrNoSeatsLeft)
		case errors.Is(err, repository.ErrLockTimeout):
			return nil, fmt.Errorf("%s:%w", op, ErrLockTimeout)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateEvent(ctx, eventID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishBookingCreated(ctx, eventID)
	}

	return b, nil
}

// GetBooking retrieves a booking with its event.
//
// Returns:
//   - error: reservation.ErrBookingNotFound if the booking is not found.
func (s *Service) GetBooking(ctx context.Context, id int64) (*domain.BookingWithEvent, error) {
	const op = "service.reservation.GetBooking"

	bw, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return bw, nil
}

// ListBookings returns all bookings with their events.
func (s *Service) ListBookings(ctx context.Context) ([]domain.BookingWithEvent, error) {
	const op = "service.reservation.ListBookings"

	out, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListByUser returns a user's bookings, empty slice for an unknown user.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.BookingWithEvent, error) {
	const op = "service.reservation.ListByUser"

	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListByEvent returns an event's bookings, empty slice for an unknown event.
func (s *Service) ListByEvent(ctx context.Context, eventID int64) ([]domain.BookingWithEvent, error) {
	const op = "service.reservation.ListByEvent"

	out, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
