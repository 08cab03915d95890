// Package pipeline runs one card generation end to end: validate the text,
// pick a title, generate the picture, compose the card, archive it, and
// record the outcome. It publishes progress events as it goes and writes
// exactly one card row per session, at termination.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ombulabs/rails-superhero-cards/internal/blob"
	"github.com/ombulabs/rails-superhero-cards/internal/card"
	"github.com/ombulabs/rails-superhero-cards/internal/jobs"
	"github.com/ombulabs/rails-superhero-cards/internal/progress"
	"github.com/ombulabs/rails-superhero-cards/internal/store"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
)

// Options are the tunables the generator reads per run.
type Options struct {
	ImageSize           string
	PartialImages       int
	FolderPrefix        string
	HolidayFolderPrefix string
}

// Deps are the collaborators a Generator needs. Reporter and Rand are
// optional; Reporter defaults to a no-op and Rand to a time-seeded source.
type Deps struct {
	Provider   models.AIProvider
	Progress   progress.Publisher
	Store      store.Store
	Blobs      blob.Store
	Compositor *card.Compositor

	// Reporter receives unexpected errors for telemetry.
	Reporter func(error)

	// Rand drives holiday theme selection.
	Rand *rand.Rand
}

// Generator executes card generation jobs. Safe for concurrent use.
type Generator struct {
	provider   models.AIProvider
	bus        progress.Publisher
	store      store.Store
	blobs      blob.Store
	compositor *card.Compositor
	opts       Options
	report     func(error)

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewGenerator(deps Deps, opts Options) *Generator {
	report := deps.Reporter
	if report == nil {
		report = func(error) {}
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		provider:   deps.Provider,
		bus:        deps.Progress,
		store:      deps.Store,
		blobs:      deps.Blobs,
		compositor: deps.Compositor,
		opts:       opts,
		report:     report,
		rng:        rng,
	}
}

// Run executes one job to termination. Handled failures (rejected text, bad
// images, provider errors) are resolved into an error card and a published
// error event, and Run returns nil: from the queue's point of view the job
// finished. Secondary failures while finishing (event publish, row write)
// are logged and reported but never overturn the outcome; Run only returns
// non-nil for defects the caller must record as a job failure.
func (g *Generator) Run(ctx context.Context, p jobs.Payload) error {
	v := variantFor(p.Theme())
	log := slog.With("session_id", p.SessionID, "theme", string(v.theme()))
	log.Info("starting card generation")

	title, cardBase64, err := g.generate(ctx, v, p)
	if err != nil {
		return g.finishError(ctx, v, p, err)
	}

	g.publish(ctx, p.SessionID, models.ProgressEvent{
		Type:        models.EventComplete,
		SessionID:   p.SessionID,
		ImageBase64: cardBase64,
	})

	// Archival is best effort: a card the user already received is complete
	// even if S3 rejected it.
	var objectKey *string
	key, err := g.blobs.UploadImage(ctx, cardBase64, p.SessionID, v.folderPrefix(g.opts))
	if err != nil {
		log.Error("card upload failed, completing without object key", "error", err)
		g.report(fmt.Errorf("upload card for session %s: %w", p.SessionID, err))
	} else {
		objectKey = &key
	}

	g.record(ctx, &models.Card{
		ID:           uuid.New(),
		SessionID:    p.SessionID,
		Text:         p.Text,
		Theme:        v.theme(),
		AWSObjectKey: objectKey,
		Status:       models.CardStatusComplete,
		CreatedAt:    time.Now().UTC(),
	})

	log.Info("card generation complete", "title", title, "uploaded", objectKey != nil)
	return nil
}

func (g *Generator) generate(ctx context.Context, v variant, p jobs.Payload) (string, string, error) {
	if p.ImageBase64 == "" {
		return "", "", &ValidationError{Message: imageRequiredMessage}
	}
	image, err := base64.StdEncoding.DecodeString(p.ImageBase64)
	if err != nil {
		return "", "", fmt.Errorf("decode uploaded image: %w", err)
	}

	validation, err := g.provider.ValidateText(ctx, v.validationPrompt(p.Text))
	if err != nil {
		return "", "", fmt.Errorf("validate text: %w", err)
	}
	if !validation.IsValid {
		slog.Info("text rejected by validator",
			"session_id", p.SessionID, "reason", validation.Reason)
		return "", "", &ValidationError{Message: v.rejectionMessage()}
	}

	return v.generate(ctx, g, p, image)
}

// finishError resolves a failed run: publish the error event and persist the
// error card. User-actionable failures keep their message; everything else is
// masked behind the generic message and reported.
func (g *Generator) finishError(ctx context.Context, v variant, p jobs.Payload, cause error) error {
	message := userMessage(cause)
	if message == GenericErrorMessage {
		slog.Error("card generation failed",
			"session_id", p.SessionID, "error", cause)
		g.report(fmt.Errorf("card generation for session %s: %w", p.SessionID, cause))
	} else {
		slog.Info("card generation rejected",
			"session_id", p.SessionID, "message", message)
	}

	g.publish(ctx, p.SessionID, models.ProgressEvent{
		Type:      models.EventError,
		SessionID: p.SessionID,
		Message:   message,
	})

	g.record(ctx, &models.Card{
		ID:           uuid.New(),
		SessionID:    p.SessionID,
		Text:         p.Text,
		Theme:        v.theme(),
		Status:       models.CardStatusError,
		ErrorMessage: &message,
		CreatedAt:    time.Now().UTC(),
	})
	return nil
}

// userMessage maps an error to what the user may see. Only error types whose
// messages were written for users pass through.
func userMessage(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	var formatErr *card.ImageFormatError
	if errors.As(err, &formatErr) {
		return formatErr.Message
	}
	var sizeErr *card.ImageSizeError
	if errors.As(err, &sizeErr) {
		return sizeErr.Message
	}
	return GenericErrorMessage
}

// record writes the terminal card row. A duplicate session id means another
// worker already terminated this session; the first row wins. A failed write
// is logged and reported but does not change the outcome: the user already
// received the result over the stream.
func (g *Generator) record(ctx context.Context, c *models.Card) {
	err := g.store.CreateCard(ctx, c)
	if errors.Is(err, store.ErrDuplicateKey) {
		slog.Warn("card row already exists, keeping the first",
			"session_id", c.SessionID)
		return
	}
	if err != nil {
		slog.Error("failed to persist card row",
			"session_id", c.SessionID, "status", c.Status, "error", err)
		g.report(fmt.Errorf("persist card for session %s: %w", c.SessionID, err))
	}
}

// publish sends a progress event, logging delivery failures. Events are
// transient; the card row is the durable record.
func (g *Generator) publish(ctx context.Context, sessionID string, event models.ProgressEvent) {
	if err := g.bus.Publish(ctx, sessionID, event); err != nil {
		slog.Warn("failed to publish progress event",
			"session_id", sessionID, "type", event.Type, "error", err)
	}
}

func (g *Generator) pickTheme() string {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return HolidayThemes[g.rng.Intn(len(HolidayThemes))]
}
