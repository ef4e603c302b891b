package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velychko/bookgo/internal/domain"
	"github.com/velychko/bookgo/internal/repository"
)

type EventRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *EventRepo) With(db DB) *EventRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *EventRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *EventRepo) Create(ctx context.Context, name string, totalSeats int) (int64, error) {
	const op = "postgres.EventRepo.Create"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO events(name, total_seats)
       	 VALUES ($1, $2)
     	 RETURNING id`,
		name, totalSeats,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// Get retrieves an event by its ID.
//
// Returns:
//   - *domain.Event: the event when found.
//   - error: repository.ErrNotFound if the event is not found.
func (r *EventRepo) Get(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "postgres.EventRepo.Get"

	db := r.handle()

	var e domain.Event
	err := db.QueryRow(ctx,
		`SELECT id, name, total_seats
       	 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.TotalSeats)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &e, nil
}

func (r *EventRepo) List(ctx context.Context) ([]domain.Event, error) {
	const op = "postgres.EventRepo.List"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, name, total_seats
		 FROM events
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.TotalSeats); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Update overwrites the mutable fields of an event.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (r *EventRepo) Update(ctx context.Context, id int64, name string, totalSeats int) error {
	const op = "postgres.EventRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE events
        	SET name = $2, total_seats = $3
      	 WHERE id = $1`,
		id, name, totalSeats,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes an event; its bookings go with it (FK ON DELETE CASCADE).
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (r *EventRepo) Delete(ctx context.Context, id int64) error {
	const op = "postgres.EventRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Availability returns seat counters for an event.
//
// Returns:
//   - *domain.EventAvailability: total, booked and free seat counts.
//   - error: repository.ErrNotFound if the event is not found.
func (r *EventRepo) Availability(ctx context.Context, id int64) (*domain.EventAvailability, error) {
	const op = "postgres.EventRepo.Availability"

	db := r.handle()

	var av domain.EventAvailability
	err := db.QueryRow(ctx,
		`SELECT e.total_seats,
	    		COUNT(b.id)
       	 FROM events e
       	 LEFT JOIN bookings b ON b.event_id = e.id
      	 WHERE e.id = $1
      	 GROUP BY e.total_seats`,
		id,
	).Scan(&av.Total, &av.Booked)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	av.Free = av.Total - av.Booked
	if av.Free < 0 {
		av.Free = 0
	}

	return &av, nil
}
