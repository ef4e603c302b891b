package reservation

import "errors"

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrDuplicateBooking = errors.New("user has already booked a seat for this event")
	ErrNoSeatsLeft      = errors.New("no seats left")
	ErrLockTimeout      = errors.New("could not acquire seat lock in time")
	ErrRateLimited      = errors.New("rate limited")
)
