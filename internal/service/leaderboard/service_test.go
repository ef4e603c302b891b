package leaderboard

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velychko/bookgo/internal/domain"
)

func utc(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		name   string
		period domain.Period
		year   int
		month  int
		day    int
		from   time.Time
		to     time.Time
	}{
		{
			name:   "day",
			period: domain.PeriodDay,
			year:   2024, month: 3, day: 15,
			from: utc(2024, time.March, 15),
			to:   utc(2024, time.March, 16),
		},
		{
			name:   "day at month boundary",
			period: domain.PeriodDay,
			year:   2024, month: 3, day: 31,
			from: utc(2024, time.March, 31),
			to:   utc(2024, time.April, 1),
		},
		{
			name:   "week trailing seven days",
			period: domain.PeriodWeek,
			year:   2024, month: 3, day: 10,
			from: utc(2024, time.March, 4),
			to:   utc(2024, time.March, 11),
		},
		{
			name:   "week spanning month boundary",
			period: domain.PeriodWeek,
			year:   2024, month: 3, day: 3,
			from: utc(2024, time.February, 26),
			to:   utc(2024, time.March, 4),
		},
		{
			name:   "week spanning year boundary",
			period: domain.PeriodWeek,
			year:   2024, month: 1, day: 2,
			from: utc(2023, time.December, 27),
			to:   utc(2024, time.January, 3),
		},
		{
			name:   "month",
			period: domain.PeriodMonth,
			year:   2024, month: 3, day: 0,
			from: utc(2024, time.March, 1),
			to:   utc(2024, time.April, 1),
		},
		{
			name:   "month of december rolls into january",
			period: domain.PeriodMonth,
			year:   2024, month: 12, day: 0,
			from: utc(2024, time.December, 1),
			to:   utc(2025, time.January, 1),
		},
		{
			name:   "february in a leap year",
			period: domain.PeriodMonth,
			year:   2024, month: 2, day: 0,
			from: utc(2024, time.February, 1),
			to:   utc(2024, time.March, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := resolveWindow(tt.period, tt.year, tt.month, tt.day)
			require.NoError(t, err)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestResolveWindow_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		period domain.Period
		year   int
		month  int
		day    int
		want   error
	}{
		{"unknown period", domain.Period("year"), 2024, 3, 1, ErrInvalidPeriod},
		{"empty period", domain.Period(""), 2024, 3, 1, ErrInvalidPeriod},
		{"day without day", domain.PeriodDay, 2024, 3, 0, ErrInvalidDate},
		{"week without day", domain.PeriodWeek, 2024, 3, 0, ErrInvalidDate},
		{"day out of range", domain.PeriodDay, 2024, 3, 32, ErrInvalidDate},
		{"zero year", domain.PeriodMonth, 0, 3, 0, ErrInvalidDate},
		{"month out of range", domain.PeriodMonth, 2024, 13, 0, ErrInvalidDate},
		{"zero month", domain.PeriodDay, 2024, 0, 5, ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := resolveWindow(tt.period, tt.year, tt.month, tt.day)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// bookingsStore ranks in-memory bookings the way the SQL aggregation
// does: count desc, earliest qualifying booking asc, user id asc.
type bookingsStore struct {
	bookings []domain.Booking
	calls    int
}

func (s *bookingsStore) TopUsers(ctx context.Context, from, to time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	s.calls++

	type agg struct {
		count    int64
		earliest time.Time
	}
	byUser := map[string]*agg{}
	for _, b := range s.bookings {
		if b.CreatedAt.Before(from) || !b.CreatedAt.Before(to) {
			continue
		}
		a, ok := byUser[b.UserID]
		if !ok {
			a = &agg{earliest: b.CreatedAt}
			byUser[b.UserID] = a
		}
		a.count++
		if b.CreatedAt.Before(a.earliest) {
			a.earliest = b.CreatedAt
		}
	}

	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		ai, aj := byUser[users[i]], byUser[users[j]]
		if ai.count != aj.count {
			return ai.count > aj.count
		}
		if !ai.earliest.Equal(aj.earliest) {
			return ai.earliest.Before(aj.earliest)
		}
		return users[i] < users[j]
	})

	out := []domain.LeaderboardEntry{}
	for _, u := range users {
		if len(out) >= limit {
			break
		}
		out = append(out, domain.LeaderboardEntry{
			UserID:        u,
			Place:         len(out) + 1,
			BookingsCount: byUser[u].count,
		})
	}
	return out, nil
}

func TestTopUsers_MonthWindow(t *testing.T) {
	store := &bookingsStore{bookings: []domain.Booking{
		{ID: 1, EventID: 1, UserID: "alice", CreatedAt: utc(2024, time.March, 2)},
		{ID: 2, EventID: 2, UserID: "alice", CreatedAt: utc(2024, time.March, 20)},
		{ID: 3, EventID: 1, UserID: "bob", CreatedAt: utc(2024, time.March, 10)},
		// outside the window
		{ID: 4, EventID: 3, UserID: "bob", CreatedAt: utc(2024, time.February, 29)},
		{ID: 5, EventID: 3, UserID: "carol", CreatedAt: utc(2024, time.April, 1)},
	}}
	svc := New(store, nil, Config{})

	got, err := svc.TopUsers(context.Background(), domain.PeriodMonth, 2024, 3, 0)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, domain.LeaderboardEntry{UserID: "alice", Place: 1, BookingsCount: 2}, got[0])
	assert.Equal(t, domain.LeaderboardEntry{UserID: "bob", Place: 2, BookingsCount: 1}, got[1])
}

func TestTopUsers_TieBrokenByEarliestBooking(t *testing.T) {
	store := &bookingsStore{bookings: []domain.Booking{
		{ID: 1, UserID: "a", CreatedAt: time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)},
		{ID: 2, UserID: "b", CreatedAt: time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)},
		{ID: 3, UserID: "a", CreatedAt: time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC)},
	}}
	svc := New(store, nil, Config{})
	ctx := context.Background()

	got, err := svc.TopUsers(ctx, domain.PeriodMonth, 2024, 3, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.LeaderboardEntry{UserID: "a", Place: 1, BookingsCount: 1}, got[0])
	assert.Equal(t, domain.LeaderboardEntry{UserID: "b", Place: 2, BookingsCount: 1}, got[1])

	got, err = svc.TopUsers(ctx, domain.PeriodDay, 2024, 3, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].UserID)
}

func TestTopUsers_DayWindowIsHalfOpen(t *testing.T) {
	store := &bookingsStore{bookings: []domain.Booking{
		{ID: 1, UserID: "u1", CreatedAt: utc(2024, time.March, 15)},
		{ID: 2, UserID: "u2", CreatedAt: time.Date(2024, time.March, 15, 23, 59, 59, 0, time.UTC)},
		// midnight of the next day is excluded
		{ID: 3, UserID: "u3", CreatedAt: utc(2024, time.March, 16)},
	}}
	svc := New(store, nil, Config{})

	got, err := svc.TopUsers(context.Background(), domain.PeriodDay, 2024, 3, 15)
	require.NoError(t, err)

	require.Len(t, got, 2)
	for _, e := range got {
		assert.NotEqual(t, "u3", e.UserID)
	}
}

func TestTopUsers_TruncatesToTopN(t *testing.T) {
	var bs []domain.Booking
	id := int64(0)
	for u := 0; u < 15; u++ {
		// user-0 books 15 times, user-14 books once
		for n := 0; n < 15-u; n++ {
			id++
			bs = append(bs, domain.Booking{
				ID:        id,
				UserID:    string(rune('a'+u)) + "-user",
				CreatedAt: utc(2024, time.March, 1+n),
			})
		}
	}
	store := &bookingsStore{bookings: bs}
	svc := New(store, nil, Config{})

	got, err := svc.TopUsers(context.Background(), domain.PeriodMonth, 2024, 3, 0)
	require.NoError(t, err)

	require.Len(t, got, 10)
	assert.Equal(t, 1, got[0].Place)
	assert.Equal(t, int64(15), got[0].BookingsCount)
	assert.Equal(t, 10, got[9].Place)
}

func TestTopUsers_InvalidArgsSkipStore(t *testing.T) {
	store := &bookingsStore{}
	svc := New(store, nil, Config{})
	ctx := context.Background()

	_, err := svc.TopUsers(ctx, domain.Period("year"), 2024, 3, 1)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = svc.TopUsers(ctx, domain.PeriodDay, 2024, 3, 0)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = svc.TopUsers(ctx, domain.PeriodWeek, 2024, 0, 5)
	assert.ErrorIs(t, err, ErrInvalidDate)

	assert.Equal(t, 0, store.calls)
}

func TestTopUsers_EmptyWindow(t *testing.T) {
	store := &bookingsStore{bookings: []domain.Booking{
		{ID: 1, UserID: "u1", CreatedAt: utc(2024, time.June, 1)},
	}}
	svc := New(store, nil, Config{})

	got, err := svc.TopUsers(context.Background(), domain.PeriodMonth, 2024, 3, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
