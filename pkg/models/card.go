package models

import (
	"time"

	"github.com/google/uuid"
)

// CardTheme selects which generation variant produced a card.
type CardTheme string

const (
	ThemeSuperhero CardTheme = "superhero"
	ThemeHoliday   CardTheme = "holiday"
)

// Card statuses. A card row is written exactly once, at pipeline termination,
// so only terminal values ever reach the database.
const (
	CardStatusComplete = "complete"
	CardStatusError    = "error"
)

// Card is the durable record of one end-to-end generation attempt, keyed by
// the caller-supplied session id. "Pending" is the absence of a row.
type Card struct {
	ID           uuid.UUID
	SessionID    string
	Text         string
	Theme        CardTheme
	AWSObjectKey *string
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
}
