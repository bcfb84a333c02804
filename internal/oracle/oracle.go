// Package oracle provides the text-completion client for copilotd.
//
// The client submits an ordered list of role-tagged messages to the hosted
// model's OpenAI-compatible chat endpoint and returns the generated text.
// One call type, synchronous: no streaming, no tool calling, no retries.
//
// Example:
//
//	cfg := oracle.ConfigFromEnv()
//	client, err := oracle.New(cfg)
//	if err != nil {
//	    // Handle error
//	}
//	result, err := client.Generate(ctx, []oracle.Message{
//	    {Role: oracle.RoleSystem, Content: "You are a helpful assistant."},
//	    {Role: oracle.RoleUser, Content: "hello"},
//	})
package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrEmptyMessages indicates an empty or nil message list
	ErrEmptyMessages = errors.New("empty or nil messages")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoCompletion indicates the model returned no completion choices
	ErrNoCompletion = errors.New("no completion choices returned")
)

// Default model parameters. The low temperature keeps intent labels and
// structured patches stable across calls.
const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel       = "gemini-1.5-flash"
	DefaultTemperature = 0.2
)

// Role identifies the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a prompt.
type Message struct {
	Role    Role
	Content string
}

// Result carries the generated text from one completion call.
type Result struct {
	Text string
}

// Client is the single-call completion interface consumed by the workflow.
// Implementations must treat the message list as ordered and return the
// model's text verbatim.
type Client interface {
	Generate(ctx context.Context, messages []Message) (*Result, error)
}

// Config holds configuration for the completion client.
type Config struct {
	// BaseURL is the base URL of an OpenAI-compatible chat API.
	// The default points at the hosted Gemini compatibility surface.
	BaseURL string

	// Model is the model identifier to request.
	Model string

	// APIKey authenticates against the API (required by hosted providers).
	APIKey string

	// Temperature controls sampling randomness for every call.
	Temperature float64
}

// ConfigFromEnv creates a Config from environment variables.
//
// Environment variables:
//   - ORACLE_BASE_URL: API base URL (default: Gemini OpenAI-compatible endpoint)
//   - ORACLE_MODEL: model name (default: gemini-1.5-flash)
//   - ORACLE_API_KEY: API key
//   - ORACLE_TEMPERATURE: sampling temperature (default: 0.2)
func ConfigFromEnv() Config {
	baseURL := os.Getenv("ORACLE_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := os.Getenv("ORACLE_MODEL")
	if model == "" {
		model = DefaultModel
	}

	temperature := DefaultTemperature
	if raw := os.Getenv("ORACLE_TEMPERATURE"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			temperature = parsed
		}
	}

	return Config{
		BaseURL:     baseURL,
		Model:       model,
		APIKey:      os.Getenv("ORACLE_API_KEY"),
		Temperature: temperature,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be in [0, 2], got %v", ErrInvalidConfig, c.Temperature)
	}
	return nil
}

// LLM implements Client on langchaingo's OpenAI-compatible chat API.
type LLM struct {
	llm    *openai.LLM
	config Config
}

var _ Client = (*LLM)(nil)

// New creates a completion client with the given configuration.
//
// The OpenAI client shape works against any OpenAI-compatible endpoint,
// including the hosted Gemini compatibility surface used by default.
//
// Returns an error if the configuration is invalid.
func New(config Config) (*LLM, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// langchaingo requires a token even for endpoints that ignore it
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	opts := []openai.Option{
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.Model),
		openai.WithToken(apiKey),
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &LLM{
		llm:    llm,
		config: config,
	}, nil
}

// Generate submits the ordered message list and returns the generated text.
//
// Generate performs no retry, timeout, or rate limiting. A call that hangs
// or errors propagates to the caller unchanged; the context is passed
// through to the transport for cancellation only.
//
// Returns ErrEmptyMessages if messages is empty or nil, and ErrNoCompletion
// if the model responds without any choices.
func (l *LLM) Generate(ctx context.Context, messages []Message) (*Result, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: at least one message required", ErrEmptyMessages)
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(chatMessageType(m.Role), m.Content))
	}

	resp, err := l.llm.GenerateContent(ctx, content, llms.WithTemperature(l.config.Temperature))
	if err != nil {
		return nil, fmt.Errorf("generating completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoCompletion
	}

	return &Result{Text: resp.Choices[0].Content}, nil
}

// chatMessageType maps prompt roles onto langchaingo message types.
func chatMessageType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
