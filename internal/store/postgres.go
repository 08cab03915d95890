package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateCard(ctx context.Context, card *models.Card) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cards (id, session_id, text, theme, aws_object_key, status, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		card.ID, card.SessionID, card.Text, card.Theme, card.AWSObjectKey,
		card.Status, card.ErrorMessage, card.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCardBySessionID(ctx context.Context, sessionID string) (*models.Card, error) {
	var c models.Card
	err := s.pool.QueryRow(ctx,
		`SELECT id, session_id, text, theme, aws_object_key, status, error_message, created_at
		 FROM cards WHERE session_id = $1`, sessionID,
	).Scan(&c.ID, &c.SessionID, &c.Text, &c.Theme, &c.AWSObjectKey,
		&c.Status, &c.ErrorMessage, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card by session id: %w", err)
	}
	return &c, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*PostgresStore)(nil)
