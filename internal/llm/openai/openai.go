// Package openai provides a multimodal generator for OpenAI-compatible chat APIs.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"nutrirag/internal/config"
	"nutrirag/internal/domain"
)

// Config configures the OpenAI-compatible generator.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Generator sends prompts to a chat completion endpoint.
type Generator struct {
	model  string
	client *goopenai.Client
}

func New(cfg Config) (*Generator, error) {
	key, err := config.APIKey(cfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	oc := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: t}
	return &Generator{model: cfg.Model, client: goopenai.NewClientWithConfig(oc)}, nil
}

func (g *Generator) Name() string { return "openai" }

// Generate sends all parts as one user message; images travel as data URLs.
func (g *Generator) Generate(ctx context.Context, parts ...domain.Part) (string, error) {
	if len(parts) == 0 {
		return "", errors.New("openai generator: empty prompt")
	}
	multi := make([]goopenai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case domain.PartImage:
			url := "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
			multi = append(multi, goopenai.ChatMessagePart{
				Type:     goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{URL: url, Detail: goopenai.ImageURLDetailAuto},
			})
		default:
			multi = append(multi, goopenai.ChatMessagePart{Type: goopenai.ChatMessagePartTypeText, Text: p.Text})
		}
	}
	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, MultiContent: multi},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai chat: %w", domain.ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai chat: no choices returned", domain.ErrUpstreamUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
