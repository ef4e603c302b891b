package domain

import "time"

// Period selects the leaderboard aggregation window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

type Event struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TotalSeats int    `json:"total_seats"`
}

type Booking struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingWithEvent is a booking expanded with its owning event,
// the shape every read path returns.
type BookingWithEvent struct {
	Booking
	Event Event `json:"event"`
}

type EventAvailability struct {
	Total  int `json:"total"`
	Booked int `json:"booked"`
	Free   int `json:"free"`
}

type LeaderboardEntry struct {
	UserID        string `json:"user_id"`
	Place         int    `json:"place"`
	BookingsCount int64  `json:"bookings_count"`
}
