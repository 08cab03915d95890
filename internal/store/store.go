package store

import (
	"context"
	"errors"

	"github.com/ombulabs/rails-superhero-cards/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
//
// Card rows are terminal records: CreateCard is called exactly once per
// session id, by the worker that finished (or failed) the pipeline, and rows
// are never updated afterwards.
type Store interface {
	Ping(ctx context.Context) error

	CreateCard(ctx context.Context, card *models.Card) error
	GetCardBySessionID(ctx context.Context, sessionID string) (*models.Card, error)
}
