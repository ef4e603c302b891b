package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velychko/bookgo/internal/domain"
	"github.com/velychko/bookgo/internal/repository"
	"github.com/velychko/bookgo/internal/service"
	"github.com/velychko/bookgo/internal/service/leaderboard"
	"github.com/velychko/bookgo/internal/service/reservation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBookings implements reservation.Store over maps.
type fakeBookings struct {
	mu       sync.Mutex
	events   map[int64]domain.Event
	bookings map[int64][]domain.Booking
	nextID   int64

	reserveErr error
}

func newFakeBookings(events ...domain.Event) *fakeBookings {
	s := &fakeBookings{
		events:   make(map[int64]domain.Event),
		bookings: make(map[int64][]domain.Booking),
	}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeBookings) Reserve(ctx context.Context, eventID int64, userID string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reserveErr != nil {
		return nil, s.reserveErr
	}

	ev, ok := s.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, b := range s.bookings[eventID] {
		if b.UserID == userID {
			return nil, repository.ErrConflict
		}
	}
	if len(s.bookings[eventID]) >= ev.TotalSeats {
		return nil, repository.ErrNoSeatsLeft
	}

	s.nextID++
	b := domain.Booking{ID: s.nextID, EventID: eventID, UserID: userID, CreatedAt: time.Now().UTC()}
	s.bookings[eventID] = append(s.bookings[eventID], b)
	return &b, nil
}

func (s *fakeBookings) Get(ctx context.Context, id int64) (*domain.BookingWithEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for eventID, bs := range s.bookings {
		for _, b := range bs {
			if b.ID == id {
				return &domain.BookingWithEvent{Booking: b, Event: s.events[eventID]}, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeBookings) List(ctx context.Context) ([]domain.BookingWithEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.BookingWithEvent{}
	for eventID, bs := range s.bookings {
		for _, b := range bs {
			out = append(out, domain.BookingWithEvent{Booking: b, Event: s.events[eventID]})
		}
	}
	return out, nil
}

func (s *fakeBookings) ListByUser(ctx context.Context, userID string) ([]domain.BookingWithEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.BookingWithEvent{}
	for eventID, bs := range s.bookings {
		for _, b := range bs {
			if b.UserID == userID {
				out = append(out, domain.BookingWithEvent{Booking: b, Event: s.events[eventID]})
			}
		}
	}
	return out, nil
}

func (s *fakeBookings) ListByEvent(ctx context.Context, eventID int64) ([]domain.BookingWithEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.BookingWithEvent{}
	for _, b := range s.bookings[eventID] {
		out = append(out, domain.BookingWithEvent{Booking: b, Event: s.events[eventID]})
	}
	return out, nil
}

// fakeLeaderboard returns canned entries for any window.
type fakeLeaderboard struct {
	entries []domain.LeaderboardEntry
}

func (s *fakeLeaderboard) TopUsers(ctx context.Context, from, to time.Time, limit int) ([]domain.LeaderboardEntry, error) {
	if len(s.entries) > limit {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func newTestRouter(bookings *fakeBookings, lb *fakeLeaderboard) *gin.Engine {
	if lb == nil {
		lb = &fakeLeaderboard{}
	}
	svcs := &service.Services{
		Reservation: reservation.New(bookings, nil, nil, nil),
		Leaderboard: leaderboard.New(lb, nil, leaderboard.Config{}),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(svcs, nil, logger)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(newFakeBookings(), nil)

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReserveEndpoint_Created(t *testing.T) {
	r := newTestRouter(newFakeBookings(domain.Event{ID: 1, Name: "gig", TotalSeats: 2}), nil)

	w := doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		ReserveRequest{EventID: 1, UserID: "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var b domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, int64(1), b.EventID)
	assert.Equal(t, "u1", b.UserID)
	assert.NotZero(t, b.ID)
}

func TestReserveEndpoint_EventNotFound(t *testing.T) {
	r := newTestRouter(newFakeBookings(), nil)

	w := doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		ReserveRequest{EventID: 99, UserID: "u1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReserveEndpoint_Duplicate(t *testing.T) {
	r := newTestRouter(newFakeBookings(domain.Event{ID: 1, TotalSeats: 5}), nil)

	w := doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		ReserveRequest{EventID: 1, UserID: "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		ReserveRequest{EventID: 1, UserID: "u1"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReserveEndpoint_NoSeatsLeft(t *testing.T) {
	r := newTestRouter(newFakeBookings(domain.Event{ID: 1, TotalSeats: 1}), nil)

	w := doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		ReserveRequest{EventID: 1, UserID: "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		ReserveRequest{EventID: 1, UserID: "u2"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "no seats left", resp.Error)
}

func TestReserveEndpoint_BadPayload(t *testing.T) {
	r := newTestRouter(newFakeBookings(domain.Event{ID: 1, TotalSeats: 1}), nil)

	// missing user_id
	w := doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		map[string]any{"event_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// non-positive event_id
	w = doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		map[string]any{"event_id": 0, "user_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReserveEndpoint_LockTimeout(t *testing.T) {
	store := newFakeBookings(domain.Event{ID: 1, TotalSeats: 1})
	store.reserveErr = repository.ErrLockTimeout
	r := newTestRouter(store, nil)

	w := doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		ReserveRequest{EventID: 1, UserID: "u1"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestGetBookingEndpoint(t *testing.T) {
	store := newFakeBookings(domain.Event{ID: 1, Name: "gig", TotalSeats: 2})
	r := newTestRouter(store, nil)

	w := doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		ReserveRequest{EventID: 1, UserID: "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodGet, "/api/bookings/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.BookingWithEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "gig", got.Event.Name)

	w = doJSON(t, r, http.MethodGet, "/api/bookings/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/bookings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListBookingsByUserEndpoint(t *testing.T) {
	store := newFakeBookings(domain.Event{ID: 1, TotalSeats: 5})
	r := newTestRouter(store, nil)

	w := doJSON(t, r, http.MethodPost, "/api/bookings/reserve",
		ReserveRequest{EventID: 1, UserID: "u1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/bookings/user?user_id=u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out []domain.BookingWithEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Len(t, out, 1)

	// missing user_id
	w = doJSON(t, r, http.MethodGet, "/api/bookings/user", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTopUsersEndpoint(t *testing.T) {
	lb := &fakeLeaderboard{entries: []domain.LeaderboardEntry{
		{UserID: "u1", Place: 1, BookingsCount: 3},
		{UserID: "u2", Place: 2, BookingsCount: 1},
	}}
	r := newTestRouter(newFakeBookings(), lb)

	w := doJSON(t, r, http.MethodGet, "/api/bookings/top-users?period=month&year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "max-age=30")

	var out []domain.LeaderboardEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "u1", out[0].UserID)
	assert.Equal(t, 1, out[0].Place)
}

func TestTopUsersEndpoint_BadRequest(t *testing.T) {
	r := newTestRouter(newFakeBookings(), nil)

	// unsupported period
	w := doJSON(t, r, http.MethodGet, "/api/bookings/top-users?period=year&year=2024&month=3&day=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// day period without a day
	w = doJSON(t, r, http.MethodGet, "/api/bookings/top-users?period=day&year=2024&month=3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
