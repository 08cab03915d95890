package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ombulabs/rails-superhero-cards/internal/jobs"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
)

// variant is one card flavor: how its text is validated, how its title is
// chosen, and how the picture gets generated.
type variant interface {
	theme() models.CardTheme
	validationPrompt(text string) string
	rejectionMessage() string
	folderPrefix(o Options) string

	// generate produces the finished card (base64 PNG) and its title from the
	// prepared upload. Streaming variants publish partial events along the way.
	generate(ctx context.Context, g *Generator, p jobs.Payload, image []byte) (title, cardBase64 string, err error)
}

func variantFor(theme models.CardTheme) variant {
	if theme == models.ThemeHoliday {
		return holidayVariant{}
	}
	return superheroVariant{}
}

// superheroVariant names the hero with the language model and generates the
// picture in one blocking edit. No partials are streamed.
type superheroVariant struct{}

func (superheroVariant) theme() models.CardTheme { return models.ThemeSuperhero }

func (superheroVariant) validationPrompt(text string) string {
	return fillPrompt(superheroValidationPrompt, text)
}

func (superheroVariant) rejectionMessage() string { return superheroRejectionMessage }

func (superheroVariant) folderPrefix(o Options) string { return o.FolderPrefix }

func (superheroVariant) generate(ctx context.Context, g *Generator, p jobs.Payload, image []byte) (string, string, error) {
	title, err := g.provider.GenerateTitle(ctx, fillPrompt(titleGenerationPrompt, p.Text))
	if err != nil {
		return "", "", fmt.Errorf("generate superhero name: %w", err)
	}
	slog.Info("superhero name generated", "session_id", p.SessionID, "name", title)

	imageBase64, err := g.provider.EditImage(ctx, models.ImageEditRequest{
		Image:  image,
		Prompt: fillPrompt(superheroImagePrompt, p.Text),
		Size:   g.opts.ImageSize,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate superhero image: %w", err)
	}

	cardBase64, err := g.compositor.Compose(imageBase64, title)
	if err != nil {
		return "", "", fmt.Errorf("compose card: %w", err)
	}
	return title, cardBase64, nil
}

// holidayVariant titles the card with the user's own message, picks a random
// theme from the catalog, and streams partial images while the edit runs.
// Every partial is composed into a full card before it is published, so
// listeners always see the finished layout filling in.
type holidayVariant struct{}

func (holidayVariant) theme() models.CardTheme { return models.ThemeHoliday }

func (holidayVariant) validationPrompt(text string) string {
	return fillPrompt(holidayValidationPrompt, text)
}

func (holidayVariant) rejectionMessage() string { return holidayRejectionMessage }

func (holidayVariant) folderPrefix(o Options) string { return o.HolidayFolderPrefix }

func (v holidayVariant) generate(ctx context.Context, g *Generator, p jobs.Payload, image []byte) (string, string, error) {
	title := p.Text
	theme := g.pickTheme()
	slog.Info("holiday theme selected", "session_id", p.SessionID, "theme", theme)

	var finalImage string
	partialIndex := 0

	err := g.provider.EditImageStream(ctx, models.ImageEditRequest{
		Image:         image,
		Prompt:        fillPrompt(holidayImagePrompt, theme),
		Size:          g.opts.ImageSize,
		PartialImages: g.opts.PartialImages,
	}, func(ev models.ImageEvent) error {
		switch ev.Type {
		case models.ImageEventPartial, models.ImageEventGenPartial:
			partialIndex++
			partial, err := g.compositor.Compose(ev.B64JSON, title)
			if err != nil {
				slog.Warn("skipping uncomposable partial image",
					"session_id", p.SessionID, "partial_index", partialIndex, "error", err)
				return nil
			}
			g.publish(ctx, p.SessionID, models.ProgressEvent{
				Type:         models.EventPartial,
				SessionID:    p.SessionID,
				ImageBase64:  partial,
				PartialIndex: partialIndex,
			})
		case models.ImageEventCompleted, models.ImageEventGenCompleted:
			finalImage = ev.B64JSON
		default:
			slog.Debug("ignoring image stream event",
				"session_id", p.SessionID, "type", ev.Type)
		}
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("generate holiday image: %w", err)
	}
	if finalImage == "" {
		return "", "", fmt.Errorf("image stream ended without a completed image")
	}

	cardBase64, err := g.compositor.Compose(finalImage, title)
	if err != nil {
		return "", "", fmt.Errorf("compose card: %w", err)
	}
	return title, cardBase64, nil
}
