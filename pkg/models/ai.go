package models

import "context"

// Validation is the structured result of a text-policy classification call.
type Validation struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason"`
}

// ImageEditRequest asks the provider to transform an uploaded photo according
// to a prompt. PartialImages only applies to streaming edits.
type ImageEditRequest struct {
	Image         []byte
	ImageName     string
	Prompt        string
	Size          string
	PartialImages int
}

// Image stream event types emitted by the provider. Anything else is logged
// and ignored by the pipeline.
const (
	ImageEventPartial   = "image_edit.partial_image"
	ImageEventCompleted = "image_edit.completed"

	// The generations endpoint uses a different event namespace for the same
	// payloads.
	ImageEventGenPartial   = "image_generation.partial_image"
	ImageEventGenCompleted = "image_generation.completed"
)

// ImageEvent is one event from a streaming image edit.
type ImageEvent struct {
	Type    string
	B64JSON string
}

// AIProvider is the interface all LLM/image providers implement.
// Implementations must be safe for concurrent use.
type AIProvider interface {
	Name() string

	// ValidateText classifies user text against a rubric prompt.
	ValidateText(ctx context.Context, prompt string) (Validation, error)

	// GenerateTitle derives a short title from a prompt; the provider returns
	// the single string field of the structured output.
	GenerateTitle(ctx context.Context, prompt string) (string, error)

	// EditImage performs a blocking edit and returns the final image as base64.
	EditImage(ctx context.Context, req ImageEditRequest) (string, error)

	// EditImageStream performs a streaming edit, invoking fn for every event
	// in order. A non-nil error from fn aborts the stream.
	EditImageStream(ctx context.Context, req ImageEditRequest, fn func(ImageEvent) error) error
}
