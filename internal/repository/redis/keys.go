package redis

import (
	"fmt"

	"github.com/velychko/bookgo/internal/domain"
)

const ns = "bookgo:v1"

func KeyEventSummary(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:summary", ns, eventID)
}

func KeyEventAvailability(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:availability", ns, eventID)
}

func KeyLeaderboard(period domain.Period, year, month, day int) string {
	return fmt.Sprintf("%s:leaderboard:%s:%04d-%02d-%02d", ns, period, year, month, day)
}

func ChannelBookingsChanged() string {
	return ns + ":bookings:changed"
}
