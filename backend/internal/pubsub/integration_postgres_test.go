//go:build integration

package pubsub

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// upperCodec sends the payload itself as the key.
type upperCodec struct{}

func (upperCodec) Encode(topic string, payload any) (string, error) {
	s, ok := payload.(string)
	if !ok {
		return "", fmt.Errorf("unexpected payload %T", payload)
	}
	return s, nil
}

func (upperCodec) Decode(ctx context.Context, topic, key string) (any, error) {
	return "decoded:" + key, nil
}

func TestPostgresBridge(t *testing.T) {
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:15.3-alpine",
		postgres.WithDatabase("threed"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// two processes sharing one database
	busA, busB := NewBus(4), NewBus(4)
	a, err := NewPostgres(connStr, "threed_test", busA, upperCodec{})
	require.NoError(t, err)
	defer a.Close()
	b, err := NewPostgres(connStr, "threed_test", busB, upperCodec{})
	require.NoError(t, err)
	defer b.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.Run(runCtx)
	go b.Run(runCtx)

	subA := a.Subscribe(ctx, "newThread", nil)
	subB := b.Subscribe(ctx, "newThread", nil)
	defer subA.Close()
	defer subB.Close()

	require.NoError(t, a.Publish(ctx, "newThread", "t1"))

	assert.Equal(t, "decoded:t1", receive(t, subA))
	assert.Equal(t, "decoded:t1", receive(t, subB))
}
