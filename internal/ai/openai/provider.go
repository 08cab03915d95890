// Package openai implements models.AIProvider against the OpenAI REST API:
// chat completions with structured outputs for classification and title
// generation, and the image edits endpoint (blocking and streaming) for
// picture generation.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/ombulabs/rails-superhero-cards/internal/ai"
	"github.com/ombulabs/rails-superhero-cards/internal/config"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
)

// Provider implements models.AIProvider using OpenAI.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Provider) Name() string { return "openai" }

// --- structured chat completions ---

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat any           `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func jsonSchemaFormat(name string, schema map[string]any) any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   name,
			"strict": true,
			"schema": schema,
		},
	}
}

// structuredCompletion runs a chat completion whose reply must conform to the
// given JSON schema, and decodes the reply into out.
func (p *Provider) structuredCompletion(ctx context.Context, prompt, schemaName string, schema map[string]any, out any) error {
	reqBody := chatRequest{
		Model:          p.cfg.Model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: jsonSchemaFormat(schemaName, schema),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ai.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromStatus(resp)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return fmt.Errorf("%w: decode chat response: %v", ai.ErrInvalidResponse, err)
	}
	if len(chat.Choices) == 0 {
		return fmt.Errorf("%w: empty choices", ai.ErrInvalidResponse)
	}

	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("%w: decode structured output: %v", ai.ErrInvalidResponse, err)
	}
	return nil
}

func (p *Provider) ValidateText(ctx context.Context, prompt string) (models.Validation, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_valid": map[string]any{
				"type":        "boolean",
				"description": "Whether the input is valid and appropriate",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Brief explanation of why it's valid or invalid",
			},
		},
		"required":             []string{"is_valid", "reason"},
		"additionalProperties": false,
	}

	var result models.Validation
	if err := p.structuredCompletion(ctx, prompt, "validation_output", schema, &result); err != nil {
		return models.Validation{}, err
	}
	return result, nil
}

func (p *Provider) GenerateTitle(ctx context.Context, prompt string) (string, error) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"superhero_name": map[string]any{
				"type":        "string",
				"description": "The name of the superhero.",
			},
		},
		"required":             []string{"superhero_name"},
		"additionalProperties": false,
	}

	var result struct {
		SuperheroName string `json:"superhero_name"`
	}
	if err := p.structuredCompletion(ctx, prompt, "superhero_name_output", schema, &result); err != nil {
		return "", err
	}
	return result.SuperheroName, nil
}

// --- image edits ---

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (p *Provider) EditImage(ctx context.Context, req models.ImageEditRequest) (string, error) {
	resp, err := p.postImageEdit(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errorFromStatus(resp)
	}

	var out imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode image response: %v", ai.ErrInvalidResponse, err)
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("%w: image response has no data", ai.ErrInvalidResponse)
	}
	return out.Data[0].B64JSON, nil
}

func (p *Provider) EditImageStream(ctx context.Context, req models.ImageEditRequest, fn func(models.ImageEvent) error) error {
	resp, err := p.postImageEdit(ctx, req, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFromStatus(resp)
	}

	reader := bufio.NewReaderSize(resp.Body, 1<<20)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if ev, ok := parseStreamLine(line); ok {
				if ev.Type == "done" {
					return nil
				}
				if cbErr := fn(ev); cbErr != nil {
					return cbErr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read image stream: %v", ai.ErrProviderUnavailable, err)
		}
	}
}

// parseStreamLine extracts one SSE data frame. Non-data lines (event names,
// keep-alives, blanks) are skipped.
func parseStreamLine(line string) (models.ImageEvent, bool) {
	line = strings.TrimRight(line, "\r\n")
	data, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		return models.ImageEvent{}, false
	}
	if data == "[DONE]" {
		return models.ImageEvent{Type: "done"}, true
	}

	var ev struct {
		Type    string `json:"type"`
		B64JSON string `json:"b64_json"`
	}
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		slog.Warn("skipping undecodable image stream frame", "error", err)
		return models.ImageEvent{}, false
	}
	return models.ImageEvent{Type: ev.Type, B64JSON: ev.B64JSON}, true
}

func (p *Provider) postImageEdit(ctx context.Context, req models.ImageEditRequest, stream bool) (*http.Response, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	name := req.ImageName
	if name == "" {
		name = "uploaded_image.png"
	}
	part, err := w.CreateFormFile("image", name)
	if err != nil {
		return nil, fmt.Errorf("build image form: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, fmt.Errorf("write image form: %w", err)
	}

	fields := map[string]string{
		"prompt": req.Prompt,
		"model":  p.cfg.ImageModel,
		"n":      "1",
		"size":   req.Size,
	}
	if stream {
		fields["stream"] = "true"
		fields["partial_images"] = strconv.Itoa(req.PartialImages)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/images/edits", &body)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrProviderUnavailable, err)
	}
	return resp, nil
}

func errorFromStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%w: status %d: %s", ai.ErrProviderUnavailable, resp.StatusCode, string(body))
}

var _ models.AIProvider = (*Provider)(nil)
