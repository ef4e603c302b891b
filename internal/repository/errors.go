package repository

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrNoSeatsLeft = errors.New("no seats left")
	ErrLockTimeout = errors.New("lock wait timeout")
)
