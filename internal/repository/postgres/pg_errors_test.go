package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/velychko/bookgo/internal/repository"
)

func TestTranslateDBErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), repository.ErrNotFound},
		{"deadline exceeded", context.DeadlineExceeded, repository.ErrLockTimeout},
		{"unique violation", &pgconn.PgError{Code: "23505"}, repository.ErrConflict},
		{"fk violation", &pgconn.PgError{Code: "23503"}, repository.ErrNotFound},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, repository.ErrLockTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateDBErr(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestTranslateDBErr_PassesThroughUnknown(t *testing.T) {
	err := errors.New("connection reset")
	assert.Equal(t, err, translateDBErr(err))

	pgErr := &pgconn.PgError{Code: "22P02"}
	got := translateDBErr(pgErr)
	assert.ErrorAs(t, got, new(*pgconn.PgError))
	assert.NotErrorIs(t, got, repository.ErrNotFound)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsRetryable(fmt.Errorf("tx: %w", &pgconn.PgError{Code: "40001"})))

	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}
