package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/ombulabs/rails-superhero-cards/internal/jobs"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupQueue spins up a Redis container and returns a connected RedisQueue.
func setupQueue(t *testing.T) *jobs.RedisQueue {
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

	q, err := jobs.NewRedisQueue("redis://"+host+":"+port.Port(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	return q
}

func TestPayload_Theme(t *testing.T) {
	assert.Equal(t, models.ThemeSuperhero, jobs.Payload{}.Theme())
	assert.Equal(t, models.ThemeHoliday, jobs.Payload{HolidayTheme: true}.Theme())
}

func TestEnqueueClaim_Roundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupQueue(t)
	ctx := context.Background()

	in := jobs.Payload{
		SessionID:   "sess-rt",
		Text:        "I write Ruby code",
		ImageBase64: "aW1hZ2U=",
	}
	jobID, err := q.Enqueue(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	rec, err := q.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, rec.State)
	assert.Equal(t, "sess-rt", rec.SessionID)

	claimed, err := q.Claim(ctx, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, jobID, claimed)

	got, err := q.Payload(ctx, claimed)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestClaim_EmptyQueueTimesOut(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupQueue(t)

	_, err := q.Claim(context.Background(), time.Second)
	assert.ErrorIs(t, err, jobs.ErrNoJob)
}

func TestStatus_UnknownJobIsPending(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupQueue(t)

	rec, err := q.Status(context.Background(), "no-such-job")
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, rec.State)
	assert.Empty(t, rec.SessionID)
	assert.Empty(t, rec.Error)
}

func TestMarkTransitions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, jobs.Payload{SessionID: "sess-marks", ImageBase64: "aW1n"})
	require.NoError(t, err)

	require.NoError(t, q.MarkStarted(ctx, jobID))
	rec, err := q.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStarted, rec.State)

	require.NoError(t, q.MarkSuccess(ctx, jobID, "sess-marks"))
	rec, err = q.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobSuccess, rec.State)
	assert.Equal(t, "sess-marks", rec.SessionID)

	// Terminal states drop the payload.
	_, err = q.Payload(ctx, jobID)
	assert.Error(t, err)
}

func TestMarkFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupQueue(t)
	ctx := context.Background()

	jobID, err := q.Enqueue(ctx, jobs.Payload{SessionID: "sess-fail", ImageBase64: "aW1n"})
	require.NoError(t, err)

	require.NoError(t, q.MarkFailure(ctx, jobID, "worker panicked"))
	rec, err := q.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailure, rec.State)
	assert.Equal(t, "worker panicked", rec.Error)

	status, _ := rec.State.Map()
	assert.Equal(t, models.StatusError, status)
}

func TestIncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	q := setupQueue(t)
	ctx := context.Background()

	n, err := q.IncrWithExpiry(ctx, "ratelimit:test", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = q.IncrWithExpiry(ctx, "ratelimit:test", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
