package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStoreIntegration exercises the cart store against a real Redis
// container.
func TestStoreIntegration(t *testing.T) {
	// Skip if short test mode
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)

	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port.Port(),
		Password: "",
		DB:       0,
	})
	defer client.Close()

	store := &Store{Client: client, TTL: time.Minute}

	require.NoError(t, store.Save(ctx, "user1", testCart()))

	got, err := store.Load(ctx, "user1", "evt1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.TotalAmountCents)

	require.NoError(t, store.Clear(ctx, "user1", "evt1"))

	_, err = store.Load(ctx, "user1", "evt1")
	assert.Error(t, err)
}
