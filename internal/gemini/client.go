// Package gemini suggests expense categories with the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

// DefaultModel is used unless WithModel says otherwise.
const DefaultModel = "gemini-2.5-flash"

const defaultTimeout = 10 * time.Second

// ContentGenerator is the one Gemini call the client makes. *genai.Models
// implements it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

var _ ContentGenerator = (*genai.Models)(nil)

// Client asks Gemini for category suggestions.
type Client struct {
	generator ContentGenerator
	model     string
	timeout   time.Duration
}

var _ Suggester = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithModel selects the Gemini model. Empty keeps the default.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds every suggestion request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// ErrNoAPIKey is returned by NewClient without a key.
var ErrNoAPIKey = errors.New("gemini API key is required")

// NewClient connects to the Gemini API with apiKey.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return NewClientWithGenerator(client.Models, opts...), nil
}

// NewClientWithGenerator builds a Client on any ContentGenerator.
func NewClientWithGenerator(generator ContentGenerator, opts ...Option) *Client {
	c := &Client{generator: generator, model: DefaultModel, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model the client asks.
func (c *Client) Model() string {
	return c.model
}

// generate runs one traced request under the client timeout.
func (c *Client) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := otel.Tracer("gitlab.com/yelinaung/trackify/internal/gemini").Start(ctx, "gemini.GenerateContent")
	defer span.End()
	span.SetAttributes(attribute.String("gen_ai.request.model", c.model))

	resp, err := c.generator.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return nil, fmt.Errorf("genai.GenerateContent: %w", err)
	}
	return resp, nil
}
