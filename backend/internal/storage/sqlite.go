package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/sqlite.sql
var sqliteSchema string

var sqliteDialect = dialect{
	name:     "sqlite",
	numbered: false,
	timeArg:  func(t time.Time) any { return t.UnixMicro() },
	isUnique: func(err error) bool {
		return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE") ||
			isConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, "PRIMARY KEY")
	},
	isForeignKey: func(err error) bool {
		return isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY")
	},
}

// isConstraint matches the extended result code, falling back to the
// primary code plus message for connections without extended codes.
func isConstraint(err error, extended int, marker string) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == extended {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), marker)
}

// OpenSqlite opens (or creates) the database at path. ":memory:" gives a
// private in-memory database, which is what the tests use.
func OpenSqlite(ctx context.Context, path string) (*Storage, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one writer; also keeps a :memory: database alive on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	s := newStorage(db, sqliteDialect)
	s.log.Info("opened db", "path", path)
	return s, nil
}

// Open picks the dialect by driver name.
func Open(ctx context.Context, driver, dsn string) (*Storage, error) {
	switch driver {
	case "postgres":
		return OpenPostgres(ctx, dsn)
	case "sqlite":
		return OpenSqlite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
