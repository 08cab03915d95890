// Package jobs is the asynchronous dispatch layer between the submission
// endpoint and the worker. Jobs travel through a redis list; per-job state
// lives in a redis hash with a TTL, so an id nobody remembers simply ages out
// and reads back as pending.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
	"github.com/redis/go-redis/v9"
)

// ErrNoJob is returned by Claim when the queue stayed empty for the whole
// claim window.
var ErrNoJob = errors.New("no job available")

// Payload carries a session's inputs from the submission endpoint to the
// worker. The image is base64 so the whole payload is one JSON value.
type Payload struct {
	SessionID    string `json:"session_id"`
	Text         string `json:"text"`
	HolidayTheme bool   `json:"holiday_theme"`
	ImageBase64  string `json:"image_base64"`
}

// Theme returns the card theme the payload selects.
func (p Payload) Theme() models.CardTheme {
	if p.HolidayTheme {
		return models.ThemeHoliday
	}
	return models.ThemeSuperhero
}

// Record is the dispatcher's view of one job.
type Record struct {
	State     models.JobState
	SessionID string
	Error     string
}

// Dispatcher is the request-side interface: hand off work, look up status.
type Dispatcher interface {
	Enqueue(ctx context.Context, p Payload) (jobID string, err error)
	Status(ctx context.Context, jobID string) (Record, error)
}

// Queue is the worker-side interface.
type Queue interface {
	Claim(ctx context.Context, timeout time.Duration) (jobID string, err error)
	Payload(ctx context.Context, jobID string) (Payload, error)
	MarkStarted(ctx context.Context, jobID string) error
	MarkSuccess(ctx context.Context, jobID, sessionID string) error
	MarkFailure(ctx context.Context, jobID, message string) error
}

// RedisQueue implements Dispatcher and Queue using go-redis/v9.
type RedisQueue struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQueue creates a RedisQueue from a Redis URL. ttl bounds how long
// job state and payloads survive after their last update.
func NewRedisQueue(redisURL string, ttl time.Duration) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisQueue{client: redis.NewClient(opts), ttl: ttl}, nil
}

// NewRedisQueueFromClient wraps an existing client, sharing its connection pool.
func NewRedisQueueFromClient(client *redis.Client, ttl time.Duration) *RedisQueue {
	return &RedisQueue{client: client, ttl: ttl}
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Enqueue registers the job and pushes its id onto the queue. It returns as
// soon as the handoff is durable in redis; execution is fully asynchronous.
func (q *RedisQueue) Enqueue(ctx context.Context, p Payload) (string, error) {
	jobID := uuid.NewString()

	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, jobKey(jobID), "state", string(models.JobPending), "session_id", p.SessionID)
	pipe.Expire(ctx, jobKey(jobID), q.ttl)
	pipe.Set(ctx, jobPayloadKey(jobID), payload, q.ttl)
	pipe.LPush(ctx, queueKey, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	return jobID, nil
}

// Status reads a job's state hash. A missing hash is not an error: the id is
// reported as pending, per the backend's convention that absence of
// information is not a failure.
func (q *RedisQueue) Status(ctx context.Context, jobID string) (Record, error) {
	fields, err := q.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("read job state: %w", err)
	}
	if len(fields) == 0 {
		return Record{State: models.JobPending}, nil
	}
	return Record{
		State:     models.JobState(fields["state"]),
		SessionID: fields["session_id"],
		Error:     fields["error"],
	}, nil
}

// Claim blocks for up to timeout waiting for a job id.
func (q *RedisQueue) Claim(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoJob
	}
	if err != nil {
		return "", fmt.Errorf("claim job: %w", err)
	}
	// BRPop returns [key, value].
	return res[1], nil
}

func (q *RedisQueue) Payload(ctx context.Context, jobID string) (Payload, error) {
	raw, err := q.client.Get(ctx, jobPayloadKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Payload{}, fmt.Errorf("payload for job %s expired or missing", jobID)
	}
	if err != nil {
		return Payload{}, fmt.Errorf("read job payload: %w", err)
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("decode job payload: %w", err)
	}
	return p, nil
}

func (q *RedisQueue) MarkStarted(ctx context.Context, jobID string) error {
	return q.setState(ctx, jobID, models.JobStarted, nil)
}

func (q *RedisQueue) MarkSuccess(ctx context.Context, jobID, sessionID string) error {
	return q.setState(ctx, jobID, models.JobSuccess, map[string]string{"session_id": sessionID})
}

func (q *RedisQueue) MarkFailure(ctx context.Context, jobID, message string) error {
	return q.setState(ctx, jobID, models.JobFailure, map[string]string{"error": message})
}

func (q *RedisQueue) setState(ctx context.Context, jobID string, state models.JobState, extra map[string]string) error {
	fields := []any{"state", string(state)}
	for k, v := range extra {
		fields = append(fields, k, v)
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, jobKey(jobID), fields...)
	pipe.Expire(ctx, jobKey(jobID), q.ttl)
	if state.Terminal() {
		pipe.Del(ctx, jobPayloadKey(jobID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark job %s %s: %w", jobID, state, err)
	}
	return nil
}

// IncrWithExpiry increments a counter and refreshes its expiry, backing the
// rate-limit middleware.
func (q *RedisQueue) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := q.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

var _ Dispatcher = (*RedisQueue)(nil)
var _ Queue = (*RedisQueue)(nil)
