package leaderboard

import "errors"

var (
	ErrInvalidPeriod = errors.New("unknown period")
	ErrInvalidDate   = errors.New("missing or invalid date component")
)
