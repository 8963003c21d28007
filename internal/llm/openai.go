package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"visit-summary/internal/config"
)

// Message is a minimal chat message.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ErrNoChoices is returned when the API answers without any completion.
var ErrNoChoices = errors.New("model returned no choices")

// Client performs a single non-streaming completion over a message list and
// returns the assistant's text.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// OpenAIClient calls the OpenAI chat completion API (or any compatible
// endpoint configured through BaseURL).
type OpenAIClient struct {
	client *openai.Client
	cfg    config.OpenAI
	log    zerolog.Logger
}

// NewOpenAIClient constructs an OpenAI-backed client from immutable config.
// Credentials are validated by config.Validate, not here.
func NewOpenAIClient(cfg config.OpenAI, log zerolog.Logger) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		cfg:    cfg,
		log:    log.With().Str("component", "llm").Str("model", cfg.Model).Logger(),
	}
}

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string { return c.cfg.Model }

// Complete sends the messages to the chat completion API and returns the
// first choice's content.  The call is bounded by the configured timeout.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != RoleSystem && role != RoleUser && role != RoleAssistant {
			// coerce anything unknown to user
			role = RoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    oaMsgs,
		Temperature: requestTemperature(c.cfg.Temperature),
		Stream:      false,
	}
	if c.cfg.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai chat completion (status %d): %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	c.log.Debug().
		Dur("duration", time.Since(start)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat completion")

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// requestTemperature maps a configured temperature onto the request field.
// The client drops a zero temperature via omitempty and the API then applies
// its default of 1, so zero is sent as the smallest positive float.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
