package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/ombulabs/rails-superhero-cards/internal/progress"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisBus spins up a Redis container and returns a connected RedisBus.
func setupRedisBus(t *testing.T) *progress.RedisBus {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	bus, err := progress.NewRedisBus("redis://" + host + ":" + port.Port())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestChannelKey(t *testing.T) {
	assert.Equal(t, "image_stream:abc-123", progress.ChannelKey("abc-123"))
}

func TestPublishSubscribe_Ordering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bus := setupRedisBus(t)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, "sess-order")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.Publish(ctx, "sess-order", models.ProgressEvent{
		Type: models.EventPartial, ImageBase64: "aGk=", PartialIndex: 1,
	}))
	require.NoError(t, bus.Publish(ctx, "sess-order", models.ProgressEvent{
		Type: models.EventPartial, ImageBase64: "aGk=", PartialIndex: 2,
	}))
	require.NoError(t, bus.Publish(ctx, "sess-order", models.ProgressEvent{
		Type: models.EventComplete, ImageBase64: "ZmluYWw=",
	}))

	var got []models.ProgressEvent
	for i := 0; i < 3; i++ {
		select {
		case ev := <-sub.Events():
			got = append(got, ev)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}

	assert.Equal(t, models.EventPartial, got[0].Type)
	assert.Equal(t, 1, got[0].PartialIndex)
	assert.Equal(t, 2, got[1].PartialIndex)
	assert.Equal(t, models.EventComplete, got[2].Type)
	assert.True(t, got[2].Terminal())
}

func TestPublish_NoSubscriberIsDropped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bus := setupRedisBus(t)
	ctx := context.Background()

	// Nobody listening: publish succeeds and the event is simply gone.
	require.NoError(t, bus.Publish(ctx, "sess-nobody", models.ProgressEvent{
		Type: models.EventComplete, ImageBase64: "ZmluYWw=",
	}))

	sub, err := bus.Subscribe(ctx, "sess-nobody")
	require.NoError(t, err)
	defer sub.Close()

	select {
	case ev, ok := <-sub.Events():
		if ok {
			t.Fatalf("expected no replay, got %+v", ev)
		}
	case <-time.After(500 * time.Millisecond):
	}
}

func TestSubscribe_IsolatedBySession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bus := setupRedisBus(t)
	ctx := context.Background()

	subA, err := bus.Subscribe(ctx, "sess-a")
	require.NoError(t, err)
	defer subA.Close()

	require.NoError(t, bus.Publish(ctx, "sess-b", models.ProgressEvent{Type: models.EventComplete}))
	require.NoError(t, bus.Publish(ctx, "sess-a", models.ProgressEvent{Type: models.EventConnected, SessionID: "sess-a"}))

	select {
	case ev := <-subA.Events():
		assert.Equal(t, models.EventConnected, ev.Type)
		assert.Equal(t, "sess-a", ev.SessionID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for session-a event")
	}
}

func TestSubscription_CloseEndsEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	bus := setupRedisBus(t)

	sub, err := bus.Subscribe(context.Background(), "sess-close")
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok, "events channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after Close")
	}
}
