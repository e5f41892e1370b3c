package db

import (
	"context"
	_ "embed"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when an update matches no row in the expected state.
var ErrNotFound = errors.New("record not found")

type Store struct {
	Pool *pgxpool.Pool
}

// Connect opens the pool and pings it, retrying with exponential backoff
// while the database is still coming up.
func Connect(ctx context.Context, conn string, attempts int, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, conn)
	if err != nil {
		return nil, errors.Wrap(err, "open pool")
	}

	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(attempts-1)),
		ctx,
	)

	err = backoff.RetryNotify(
		func() error { return pool.Ping(ctx) },
		policy,
		func(err error, wait time.Duration) {
			log.Warn("database not ready",
				zap.Error(err),
				zap.Duration("retry_in", wait),
			)
		},
	)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	return &Store{Pool: pool}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return errors.Wrap(err, "apply schema")
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) Close() {
	s.Pool.Close()
}
