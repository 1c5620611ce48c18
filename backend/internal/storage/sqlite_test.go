package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSqlite(t *testing.T) *Storage {
	t.Helper()
	s, err := OpenSqlite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Cleanup() })
	return s
}

func TestSqliteRepository(t *testing.T) {
	runRepositoryTests(t, newSqlite)
}

func TestSqlitePing(t *testing.T) {
	s := newSqlite(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	assert.Equal(t,
		"SELECT * FROM t WHERE a = ? AND b = ? LIMIT ? OFFSET ?",
		rebind("SELECT * FROM t WHERE a = $1 AND b = $2 LIMIT $3 OFFSET $10"),
	)
	assert.Equal(t, "SELECT '$' FROM t", rebind("SELECT '$' FROM t"))
}

func TestClock_StrictlyIncreasing(t *testing.T) {
	c := &clock{}
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		next := c.Now()
		require.True(t, next.After(prev), "clock went backwards at %d", i)
		assert.Equal(t, next, next.Truncate(time.Microsecond))
		prev = next
	}
}

func TestTimestampScan(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)

	var got time.Time
	require.NoError(t, timestamp{&got}.Scan(want.UnixMicro()))
	assert.True(t, want.Equal(got))

	require.NoError(t, timestamp{&got}.Scan(want.In(time.FixedZone("X", 3600))))
	assert.True(t, want.Equal(got))
	assert.Equal(t, time.UTC, got.Location())

	assert.Error(t, timestamp{&got}.Scan("yesterday"))
}
