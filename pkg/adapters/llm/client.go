package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/compass/internal/jsonx"
	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrEmptyResponse is returned when the provider answers with no choices.
	ErrEmptyResponse = errors.New("model returned no choices")
	// ErrMalformedOutput is returned when structured output cannot be decoded.
	ErrMalformedOutput = errors.New("model output is not the requested JSON shape")
)

const jsonInstruction = "\n\nRespond with a single JSON object and nothing else."

// Client implements ports.ToolCallingGenerator over a langchaingo model.
type Client struct {
	model       llms.Model
	temperature float64
	jsonMode    bool
	logger      *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithJSONMode toggles the provider's native JSON mode for structured calls.
func WithJSONMode(enabled bool) Option {
	return func(c *Client) {
		c.jsonMode = enabled
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New wraps an existing langchaingo model.
func New(model llms.Model, opts ...Option) *Client {
	c := &Client{
		model:       model,
		temperature: 0.2,
		jsonMode:    true,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewOpenAI builds a Client for OpenAI or any OpenAI-compatible endpoint.
func NewOpenAI(apiKey, model, baseURL string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	oaOpts := []openai.Option{openai.WithToken(apiKey)}
	if model != "" {
		oaOpts = append(oaOpts, openai.WithModel(model))
	}
	if baseURL != "" {
		oaOpts = append(oaOpts, openai.WithBaseURL(baseURL))
	}

	m, err := openai.New(oaOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return New(m, opts...), nil
}

// Generate returns the text of one completion.
func (c *Client) Generate(ctx context.Context, p ports.Prompt) (string, error) {
	resp, err := c.model.GenerateContent(ctx, toMessages(p), c.callOptions(p)...)
	if err != nil {
		return "", fmt.Errorf("%s: generate: %w", p.Name, err)
	}
	choice, err := firstChoice(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Name, err)
	}
	return choice.Content, nil
}

// Stream forwards chunks to onToken while the completion is produced.
func (c *Client) Stream(ctx context.Context, p ports.Prompt, onToken ports.TokenFunc) (string, error) {
	opts := append(c.callOptions(p), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		return onToken(string(chunk))
	}))

	resp, err := c.model.GenerateContent(ctx, toMessages(p), opts...)
	if err != nil {
		return "", fmt.Errorf("%s: stream: %w", p.Name, err)
	}
	choice, err := firstChoice(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Name, err)
	}
	return choice.Content, nil
}

// GenerateStructured asks for JSON and decodes it into target.
func (c *Client) GenerateStructured(ctx context.Context, p ports.Prompt, target any) error {
	p.System += jsonInstruction
	opts := c.callOptions(p)
	if c.jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := c.model.GenerateContent(ctx, toMessages(p), opts...)
	if err != nil {
		return fmt.Errorf("%s: generate: %w", p.Name, err)
	}
	choice, err := firstChoice(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	if err := jsonx.Decode(choice.Content, target); err != nil {
		c.logger.Debug("structured output rejected", "prompt", p.Name, "output", choice.Content, "err", err)
		return fmt.Errorf("%s: %w: %v", p.Name, ErrMalformedOutput, err)
	}
	return nil
}

// GenerateWithTools runs one completion with tools, replaying earlier rounds.
func (c *Client) GenerateWithTools(ctx context.Context, p ports.Prompt, tools []domain.Tool, exchanges []ports.ToolExchange) (ports.AgentStep, error) {
	msgs := toMessages(p)
	for _, ex := range exchanges {
		msgs = append(msgs, toExchangeMessages(ex)...)
	}

	opts := append(c.callOptions(p), llms.WithTools(toTools(tools)))
	resp, err := c.model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return ports.AgentStep{}, fmt.Errorf("%s: generate: %w", p.Name, err)
	}
	choice, err := firstChoice(resp)
	if err != nil {
		return ports.AgentStep{}, fmt.Errorf("%s: %w", p.Name, err)
	}

	step := ports.AgentStep{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		step.Calls = append(step.Calls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return step, nil
}

func (c *Client) callOptions(p ports.Prompt) []llms.CallOption {
	temp := c.temperature
	if p.Temperature != nil {
		temp = *p.Temperature
	}
	return []llms.CallOption{llms.WithTemperature(temp)}
}

func firstChoice(resp *llms.ContentResponse) (*llms.ContentChoice, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Choices[0], nil
}
