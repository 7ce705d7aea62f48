// Package gemini wraps the Gemini multimodal model used for ID document extraction.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

var ErrEmptyResponse = errors.New("empty response from Gemini")

// Config controls the generation parameters. Low temperature keeps the
// output near-deterministic.
type Config struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// Client sends one prompt plus one inline image per call.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	logger *slog.Logger
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to init Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetTopP(cfg.TopP)
	model.SetTopK(cfg.TopK)
	model.SetMaxOutputTokens(cfg.MaxOutputTokens)

	return &Client{client: client, model: model, name: cfg.Model, logger: logger}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.name }

func (c *Client) Close() error { return c.client.Close() }

// Generate returns the concatenated text parts of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	reqID := uuid.NewString()
	c.logger.Info("gemini.request", "req_id", reqID, "model", c.name, "mime", mimeType, "bytes", len(data))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt), genai.Blob{MIMEType: mimeType, Data: data})
	if err != nil {
		c.logger.Error("gemini.send_error", "req_id", reqID, "error", err)
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	c.logger.Info("gemini.response", "req_id", reqID, "chars", len(text))
	return text, nil
}
