package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Pool sizing for the API process. LISTEN holds its own connection outside
// this pool.
const (
	pgMaxOpenConns = 25
	pgMaxIdleConns = 10
)

//go:embed migrations/postgres.sql
var postgresSchema string

var postgresDialect = dialect{
	name:     "postgres",
	numbered: true,
	now:      "clock_timestamp()", // advances within a transaction, unlike now()
	isUnique: func(err error) bool {
		return pqCode(err) == "23505"
	},
	isForeignKey: func(err error) bool {
		return pqCode(err) == "23503"
	},
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// OpenPostgres connects with a lib/pq connection string or URL and makes
// sure the schema exists.
func OpenPostgres(ctx context.Context, connStr string) (*Storage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply postgres schema: %w", err)
	}

	s := newStorage(db, postgresDialect)
	s.log.Info("connected to db")
	return s, nil
}
