package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velychko/bookgo/internal/domain"
	"github.com/velychko/bookgo/internal/repository"
)

type BookingRepo struct {
	pool        *pgxpool.Pool
	db          DB
	lockTimeout time.Duration
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Reserve books one seat of an event for a user.
//
// The whole check-and-insert sequence runs in a single transaction that
// holds an exclusive lock on the event row (SELECT ... FOR UPDATE), so
// concurrent reserves against the same event are totally ordered while
// reserves against different events never contend. The checks run in a
// fixed order: event existence, duplicate (event, user) pair, remaining
// capacity. Nothing is written on any failure path.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - eventID: unique identifier of the event to reserve against.
//   - userID: opaque identifier of the reserving user.
//
// Returns:
//   - *domain.Booking: the created booking with generated id and timestamp.
//   - error: repository.ErrNotFound if the event does not exist.
//   - error: repository.ErrConflict if the user already booked this event.
//   - error: repository.ErrNoSeatsLeft if the event is at capacity.
//   - error: repository.ErrLockTimeout if the row lock was not acquired in time.
func (r *BookingRepo) Reserve(ctx context.Context, eventID int64, userID string) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Reserve"

	if r.db != nil {
		b, err := r.reserveCore(ctx, r.db, eventID, userID)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return b, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	b, err := r.reserveCore(ctx, tx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return b, nil
}

func (r *BookingRepo) reserveCore(
	ctx context.Context,
	db DB,
	eventID int64,
	userID string,
) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.reserveCore"

	if r.lockTimeout > 0 {
		lockSQL := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := db.Exec(ctx, lockSQL); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	var totalSeats int
	err := db.QueryRow(ctx,
		`SELECT total_seats
       	 FROM events
      	 WHERE id = $1
     	 FOR UPDATE`,
		eventID,
	).Scan(&totalSeats)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var exists bool
	err = db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM bookings WHERE event_id = $1 AND user_id = $2
		 )`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if exists {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrConflict)
	}

	var booked int
	err = db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE event_id = $1`,
		eventID,
	).Scan(&booked)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if booked >= totalSeats {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrNoSeatsLeft)
	}

	b := domain.Booking{
		EventID: eventID,
		UserID:  userID,
	}
	err = db.QueryRow(ctx,
		`INSERT INTO bookings(event_id, user_id)
       	 VALUES ($1, $2)
     	 RETURNING id, created_at`,
		eventID, userID,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &b, nil
}

// Get retrieves a booking by its ID, joined with its event.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - id: unique identifier of the booking to retrieve.
//
// Returns:
//   - *domain.BookingWithEvent: the booking with its event when found.
//   - error: repository.ErrNotFound if the booking is not found.
func (r *BookingRepo) Get(ctx context.Context, id int64) (*domain.BookingWithEvent, error) {
	const op = "postgres.BookingRepo.Get"

	db := r.handle()

	var bw domain.BookingWithEvent
	err := db.QueryRow(ctx,
		`SELECT b.id, b.event_id, b.user_id, b.created_at,
	    		e.id, e.name, e.total_seats
       	 FROM bookings b
       	 JOIN events e ON e.id = b.event_id
      	 WHERE b.id = $1`,
		id,
	).Scan(
		&bw.ID, &bw.EventID, &bw.UserID, &bw.CreatedAt,
		&bw.Event.ID, &bw.Event.Name, &bw.Event.TotalSeats,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &bw, nil
}

// List returns all bookings joined with their events, oldest first.
func (r *BookingRepo) List(ctx context.Context) ([]domain.BookingWithEvent, error) {
	const op = "postgres.BookingRepo.List"

	return r.list(ctx, op,
		`SELECT b.id, b.event_id, b.user_id, b.created_at,
	    		e.id, e.name, e.total_seats
       	 FROM bookings b
       	 JOIN events e ON e.id = b.event_id
      	 ORDER BY b.created_at, b.id`,
	)
}

// ListByUser returns all bookings of a user joined with their events.
// An unknown user yields an empty slice, not an error.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]domain.BookingWithEvent, error) {
	const op = "postgres.BookingRepo.ListByUser"

	return r.list(ctx, op,
		`SELECT b.id, b.event_id, b.user_id, b.created_at,
	    		e.id, e.name, e.total_seats
       	 FROM bookings b
       	 JOIN events e ON e.id = b.event_id
      	 WHERE b.user_id = $1
      	 ORDER BY b.created_at, b.id`,
		userID,
	)
}

// ListByEvent returns all bookings of an event joined with the event.
// An unknown event yields an empty slice, not an error.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID int64) ([]domain.BookingWithEvent, error) {
	const op = "postgres.BookingRepo.ListByEvent"

	return r.list(ctx, op,
		`SELECT b.id, b.event_id, b.user_id, b.created_at,
	    		e.id, e.name, e.total_seats
       	 FROM bookings b
       	 JOIN events e ON e.id = b.event_id
      	 WHERE b.event_id = $1
      	 ORDER BY b.created_at, b.id`,
		eventID,
	)
}

func (r *BookingRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.BookingWithEvent, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.BookingWithEvent{}
	for rows.Next() {
		var bw domain.BookingWithEvent
		if err := rows.Scan(
			&bw.ID, &bw.EventID, &bw.UserID, &bw.CreatedAt,
			&bw.Event.ID, &bw.Event.Name, &bw.Event.TotalSeats,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, bw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
