// Package gemini provides a multimodal Gemini generator through langchaingo.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"nutrirag/internal/config"
	"nutrirag/internal/domain"
)

const DefaultModel = "gemini-2.5-flash"

// Config configures the Gemini generator.
type Config struct {
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Generator sends text and image parts to a Gemini model.
type Generator struct {
	model   llms.Model
	timeout time.Duration
}

// New builds a Gemini generator, failing fast when the API key is unset.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	key, err := config.APIKey(cfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(key),
		googleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generator: init client: %w", err)
	}
	return Wrap(client, cfg.Timeout), nil
}

// Wrap builds a Generator around any langchaingo model.
func Wrap(model llms.Model, timeout time.Duration) *Generator {
	return &Generator{model: model, timeout: timeout}
}

func (g *Generator) Name() string { return "gemini" }

// Generate sends all parts as a single human turn and returns the first choice verbatim.
func (g *Generator) Generate(ctx context.Context, parts ...domain.Part) (string, error) {
	if len(parts) == 0 {
		return "", errors.New("gemini generator: empty prompt")
	}
	content := make([]llms.ContentPart, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case domain.PartImage:
			content = append(content, llms.BinaryPart(p.MIMEType, p.Data))
		default:
			content = append(content, llms.TextPart(p.Text))
		}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.model.GenerateContent(ctx, []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: content},
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate: %w", domain.ErrUpstreamUnavailable, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: gemini generate: no candidates returned", domain.ErrUpstreamUnavailable)
	}
	return resp.Choices[0].Content, nil
}
