// Package gemini adapts the Gemini API to a plain system/user completion
// call.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.9
	DefaultTimeout     = 60 * time.Second
)

// Options configures a Client.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string   // empty keeps the SDK default endpoint
	Temperature *float32 // nil uses DefaultTemperature; 0 is sent as 0
	Timeout     time.Duration
}

// Client completes prompts with a single GenerateContent call.
type Client struct {
	gClient     *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// New creates a Client. The API key is required.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini: missing api key")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	temperature := float32(DefaultTemperature)
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	gClient, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Client{
		gClient:     gClient,
		model:       opts.Model,
		temperature: temperature,
		timeout:     opts.Timeout,
	}, nil
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// Complete sends userPrompt with systemPrompt as the system instruction.
// A response without text yields "" and no error.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: userPrompt}},
		Role:  "user",
	}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		Temperature:       genai.Ptr(c.temperature),
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}
