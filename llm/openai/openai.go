// Package openai adapts the OpenAI chat completions API to a plain
// system/user completion call.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.9
	DefaultTimeout     = 60 * time.Second
)

// Options configures a Client.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string // e.g. https://api.openai.com/v1; empty keeps the SDK default
	Temperature *float32 // nil uses DefaultTemperature
	Timeout     time.Duration
}

func (o *Options) defaults() {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Temperature == nil {
		t := float32(DefaultTemperature)
		o.Temperature = &t
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
}

// Client completes prompts with a single chat completion request.
type Client struct {
	api         *goopenai.Client
	model       string
	temperature float32
}

// New creates a Client. The API key is required.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai: missing api key")
	}
	opts.defaults()

	cfg := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	// The request type drops a zero temperature, so an explicit 0 is sent
	// as the smallest positive value instead.
	temperature := *opts.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	return &Client{
		api:         goopenai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: temperature,
	}, nil
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// Complete sends one system and one user message and returns the first
// choice's content. An empty choice list is an error; empty content is not.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
