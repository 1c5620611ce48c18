//go:build integration

package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/threed-dev/threed/shared/domain"
)

var pgStorage *Storage

func TestMain(m *testing.M) {
	ctx := context.Background()
	var container *postgres.PostgresContainer
	pgStorage, container = mustSetup(ctx)

	exitCode := m.Run()
	teardown(ctx, pgStorage, container)
	os.Exit(exitCode)
}

func mustSetup(ctx context.Context) (*Storage, *postgres.PostgresContainer) {
	dbName := "threed"
	dbUser := "user"
	dbPassword := "password"
	container, err := postgres.Run(ctx,
		"postgres:15.3-alpine",
		postgres.WithInitScripts(filepath.Join("migrations", "postgres.sql")),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			// postgres restarts once after running init scripts
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("failed to obtain container port: %s", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("failed to obtain container host: %s", err)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port.Port(), dbUser, dbPassword, dbName)
	storage, err := OpenPostgres(ctx, connStr)
	if err != nil {
		log.Fatalf("failed to connect to postgres container: %s", err)
	}
	return storage, container
}

func teardown(ctx context.Context, storage *Storage, container *postgres.PostgresContainer) {
	if err := storage.Cleanup(); err != nil {
		log.Printf("failed to close storage connection: %s", err)
	}
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
}

func TestPostgresRepository(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) *Storage {
		_, err := pgStorage.db.Exec("TRUNCATE likes, replies, threads, users")
		require.NoError(t, err)
		return pgStorage
	})
}

// Two API processes share the database; a skewed process clock must not
// reorder their writes.
func TestPostgresStampsRowsWithServerClock(t *testing.T) {
	ctx := context.Background()
	_, err := pgStorage.db.Exec("TRUNCATE likes, replies, threads, users")
	require.NoError(t, err)

	skewed := newStorage(pgStorage.db, postgresDialect)
	skewed.clock.last = time.Now().Add(time.Hour)

	user, err := pgStorage.InsertUser(ctx, "ivy", "hash")
	require.NoError(t, err)

	first, err := skewed.InsertThread(ctx, domain.ThreadInput{Title: "first"}, user.Id)
	require.NoError(t, err)
	second, err := pgStorage.InsertThread(ctx, domain.ThreadInput{Title: "second"}, user.Id)
	require.NoError(t, err)

	require.True(t, second.CreatedAt.After(first.CreatedAt))
	require.WithinDuration(t, time.Now(), first.CreatedAt, time.Minute)

	threads, err := pgStorage.ListThreads(ctx, domain.SortOldest, domain.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, threads, 2)
	require.Equal(t, first.Id, threads[0].Id)
	require.True(t, first.CreatedAt.Equal(threads[0].CreatedAt))
}
