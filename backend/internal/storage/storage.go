package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/threed-dev/threed/shared/logger"
)

const queryTimeout = 5 * time.Second

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dialect hides the few places where postgres and sqlite disagree.
type dialect struct {
	name string

	// numbered reports whether the driver understands $N placeholders
	numbered bool

	// now is the SQL expression that stamps created_at inside the insert.
	// Empty means the process clock supplies it as an argument.
	now string

	timeArg      func(time.Time) any
	isUnique     func(error) bool
	isForeignKey func(error) bool
}

// Storage is the content repository. Every write is one transaction.
type Storage struct {
	db      *sql.DB
	dialect dialect
	clock   *clock
	log     *slog.Logger
}

func newStorage(db *sql.DB, d dialect) *Storage {
	return &Storage{
		db:      db,
		dialect: d,
		clock:   &clock{},
		log:     logger.Component("storage").With("dialect", d.name),
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// q adapts a query written with $N placeholders to the driver.
// Placeholders must appear once each, in ascending order.
func (s *Storage) q(query string) string {
	if s.dialect.numbered {
		return query
	}
	return rebind(query)
}

func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
		i = j - 1
	}
	return b.String()
}

// insert runs an INSERT whose created_at value is written as %s and
// returns the stored timestamp.
func (s *Storage) insert(ctx context.Context, tx *sql.Tx, query string, args ...any) (time.Time, error) {
	var createdAt time.Time
	if s.dialect.now != "" {
		err := tx.QueryRowContext(ctx, s.q(fmt.Sprintf(query, s.dialect.now)+" RETURNING created_at"), args...).
			Scan(timestamp{&createdAt})
		return createdAt, err
	}
	createdAt = s.clock.Now()
	slot := "$" + strconv.Itoa(len(args)+1)
	_, err := tx.ExecContext(ctx, s.q(fmt.Sprintf(query, slot)), append(args, s.dialect.timeArg(createdAt))...)
	return createdAt, err
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// clock hands out strictly increasing microsecond timestamps so that
// insertion order and created_at order agree within one process. Only
// sqlite uses it; several API processes share a postgres and its clock.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

// timestamp scans TIMESTAMPTZ values as well as unix microseconds.
type timestamp struct {
	t *time.Time
}

func (ts timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v.UTC()
	case int64:
		*ts.t = time.UnixMicro(v).UTC()
	case []byte:
		micros, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("unexpected timestamp %q", v)
		}
		*ts.t = time.UnixMicro(micros).UTC()
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
