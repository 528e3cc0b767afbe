package repository_test

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"
	"github.com/stretchr/testify/assert"

	"github.com/mtlprog/hrscore/internal/repository"
)

func TestIsUnavailable(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"closed pool", fmt.Errorf("query tasks: %w", puddle.ErrClosedPool), true},
		{"dial refused", fmt.Errorf("query tasks: %w", refused), true},
		{"no rows", pgx.ErrNoRows, false},
		{"constraint violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.IsUnavailable(tt.err))
		})
	}
}
