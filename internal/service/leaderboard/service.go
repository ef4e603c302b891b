package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/velychko/bookgo/internal/domain"
	redisrepo "github.com/velychko/bookgo/internal/repository/redis"
)

// Store is the aggregation query the leaderboard runs on. The production
// implementation is *postgres.LeaderboardRepo.
type Store interface {
	TopUsers(ctx context.Context, from, to time.Time, limit int) ([]domain.LeaderboardEntry, error)
}

type Config struct {
	TopN     int
	CacheTTL time.Duration
}

type Service struct {
	store Store
	cache *redisrepo.Cache
	cfg   Config
}

func New(store Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	return &Service{
		store: store,
		cache: cache,
		cfg:   cfg,
	}
}

// TopUsers ranks users by booking count within the requested window.
//
// Parameters:
//   - ctx: request-scoped context.
//   - period: one of domain.PeriodDay, PeriodWeek, PeriodMonth.
//   - year, month, day: window anchor; day is ignored for PeriodMonth.
//
// Returns:
//   - []domain.LeaderboardEntry: ranked entries, place assigned by position.
//   - error: leaderboard.ErrInvalidPeriod for an unknown period.
//   - error: leaderboard.ErrInvalidDate when a required component is missing;
//     the store is never touched in either case.
func (s *Service) TopUsers(
	ctx context.Context,
	period domain.Period,
	year, month, day int,
) ([]domain.LeaderboardEntry, error) {
	const op = "service.leaderboard.TopUsers"

	from, to, err := resolveWindow(period, year, month, day)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	load := func(ctx context.Context) ([]domain.LeaderboardEntry, error) {
		return s.store.TopUsers(ctx, from, to, s.cfg.TopN)
	}

	if s.cache == nil {
		out, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return out, nil
	}

	key := redisrepo.KeyLeaderboard(period, year, month, day)

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.CacheTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// resolveWindow turns (period, year, month, day) into the half-open
// interval [from, to) in UTC. time.Date normalizes out-of-range values,
// so month+1 and day-6 roll over calendar boundaries correctly.
func resolveWindow(period domain.Period, year, month, day int) (time.Time, time.Time, error) {
	if year <= 0 || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}

	switch period {
	case domain.PeriodDay:
		if day < 1 || day > 31 {
			return time.Time{}, time.Time{}, ErrInvalidDate
		}
		from := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 0, 1), nil

	case domain.PeriodWeek:
		if day < 1 || day > 31 {
			return time.Time{}, time.Time{}, ErrInvalidDate
		}
		end := time.Date(year, time.Month(month), day+1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, 0, -7), end, nil

	case domain.PeriodMonth:
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0), nil
	}

	return time.Time{}, time.Time{}, ErrInvalidPeriod
}
