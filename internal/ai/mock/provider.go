// Package mock provides an AIProvider test double.
package mock

import (
	"context"
	"encoding/base64"

	"github.com/ombulabs/rails-superhero-cards/pkg/models"
)

// MockProvider satisfies models.AIProvider for testing.
type MockProvider struct {
	Name_               string
	ValidateTextFunc    func(ctx context.Context, prompt string) (models.Validation, error)
	GenerateTitleFunc   func(ctx context.Context, prompt string) (string, error)
	EditImageFunc       func(ctx context.Context, req models.ImageEditRequest) (string, error)
	EditImageStreamFunc func(ctx context.Context, req models.ImageEditRequest, fn func(models.ImageEvent) error) error
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) ValidateText(ctx context.Context, prompt string) (models.Validation, error) {
	if m.ValidateTextFunc != nil {
		return m.ValidateTextFunc(ctx, prompt)
	}
	return models.Validation{IsValid: true, Reason: "mock accepts everything"}, nil
}

func (m *MockProvider) GenerateTitle(ctx context.Context, prompt string) (string, error) {
	if m.GenerateTitleFunc != nil {
		return m.GenerateTitleFunc(ctx, prompt)
	}
	return "Captain Mock", nil
}

func (m *MockProvider) EditImage(ctx context.Context, req models.ImageEditRequest) (string, error) {
	if m.EditImageFunc != nil {
		return m.EditImageFunc(ctx, req)
	}
	return base64.StdEncoding.EncodeToString(req.Image), nil
}

func (m *MockProvider) EditImageStream(ctx context.Context, req models.ImageEditRequest, fn func(models.ImageEvent) error) error {
	if m.EditImageStreamFunc != nil {
		return m.EditImageStreamFunc(ctx, req, fn)
	}
	return fn(models.ImageEvent{
		Type:    models.ImageEventCompleted,
		B64JSON: base64.StdEncoding.EncodeToString(req.Image),
	})
}

// NewMockProvider returns a MockProvider with sensible default responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{Name_: "mock"}
}

// NewRejectingProvider returns a MockProvider whose validator rejects all text.
func NewRejectingProvider(reason string) *MockProvider {
	return &MockProvider{
		Name_: "mock-rejecting",
		ValidateTextFunc: func(_ context.Context, _ string) (models.Validation, error) {
			return models.Validation{IsValid: false, Reason: reason}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider where every call fails with err.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		ValidateTextFunc: func(_ context.Context, _ string) (models.Validation, error) {
			return models.Validation{}, err
		},
		GenerateTitleFunc: func(_ context.Context, _ string) (string, error) {
			return "", err
		},
		EditImageFunc: func(_ context.Context, _ models.ImageEditRequest) (string, error) {
			return "", err
		},
		EditImageStreamFunc: func(_ context.Context, _ models.ImageEditRequest, _ func(models.ImageEvent) error) error {
			return err
		},
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
