package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ombulabs/rails-superhero-cards/internal/store"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("cards_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func completeCard(sessionID string) *models.Card {
	key := "hero-cards/20260101_120000_" + sessionID + ".png"
	return &models.Card{
		ID:           uuid.New(),
		SessionID:    sessionID,
		Text:         "I write Ruby code",
		Theme:        models.ThemeSuperhero,
		AWSObjectKey: &key,
		Status:       models.CardStatusComplete,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestCard_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	card := completeCard("sess-create-get")
	require.NoError(t, s.CreateCard(ctx, card))

	got, err := s.GetCardBySessionID(ctx, "sess-create-get")
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)
	assert.Equal(t, "I write Ruby code", got.Text)
	assert.Equal(t, models.ThemeSuperhero, got.Theme)
	assert.Equal(t, models.CardStatusComplete, got.Status)
	require.NotNil(t, got.AWSObjectKey)
	assert.Equal(t, *card.AWSObjectKey, *got.AWSObjectKey)
	assert.Nil(t, got.ErrorMessage)
}

func TestCard_CreateErrorRecord(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	msg := "Sorry, we cannot generate a card with that message. Please enter an appropriate message"
	card := &models.Card{
		ID:           uuid.New(),
		SessionID:    "sess-error",
		Text:         "something rejected",
		Theme:        models.ThemeHoliday,
		Status:       models.CardStatusError,
		ErrorMessage: &msg,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateCard(ctx, card))

	got, err := s.GetCardBySessionID(ctx, "sess-error")
	require.NoError(t, err)
	assert.Equal(t, models.CardStatusError, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, msg, *got.ErrorMessage)
	assert.Nil(t, got.AWSObjectKey)
}

func TestCard_CompleteWithoutObjectKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	// Archival can fail after a successful generation; the record still lands
	// as complete with a NULL object key.
	card := completeCard("sess-no-key")
	card.AWSObjectKey = nil
	require.NoError(t, s.CreateCard(ctx, card))

	got, err := s.GetCardBySessionID(ctx, "sess-no-key")
	require.NoError(t, err)
	assert.Equal(t, models.CardStatusComplete, got.Status)
	assert.Nil(t, got.AWSObjectKey)
	assert.Nil(t, got.ErrorMessage)
}

func TestCard_DuplicateSessionID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	first := completeCard("sess-dup")
	require.NoError(t, s.CreateCard(ctx, first))

	second := completeCard("sess-dup")
	second.ID = uuid.New()
	second.AWSObjectKey = nil
	err := s.CreateCard(ctx, second)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	// The original record is untouched.
	got, err := s.GetCardBySessionID(ctx, "sess-dup")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestCard_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetCardBySessionID(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
