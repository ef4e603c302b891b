package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velychko/bookgo/internal/domain"
)

type LeaderboardRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LeaderboardRepo) With(db DB) *LeaderboardRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LeaderboardRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// TopUsers counts bookings per user created within [from, to) and returns
// the top users ordered by count descending. Ties are ordered by earliest
// qualifying booking, then by user_id, so the ranking is stable. Place is
// assigned by result position starting at 1.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - from, to: half-open window over bookings.created_at.
//   - limit: maximum number of entries to return.
//
// Returns:
//   - []domain.LeaderboardEntry: ranked entries, empty when no bookings match.
func (r *LeaderboardRepo) TopUsers(
	ctx context.Context,
	from, to time.Time,
	limit int,
) ([]domain.LeaderboardEntry, error) {
	const op = "postgres.LeaderboardRepo.TopUsers"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT user_id, COUNT(*) AS bookings_count
       	 FROM bookings
      	 WHERE created_at >= $1 AND created_at < $2
      	 GROUP BY user_id
      	 ORDER BY bookings_count DESC, MIN(created_at), user_id
      	 LIMIT $3`,
		from, to, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	out := []domain.LeaderboardEntry{}
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.BookingsCount); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		e.Place = len(out) + 1
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
