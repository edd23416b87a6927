package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"shopping-agent/internal/domain"
)

const defaultBaseURL = "https://api.openai.com/v1"

// KeySource supplies the API key used to authenticate requests.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a KeySource for a key known at startup.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	if strings.TrimSpace(string(k)) == "" {
		return "", errors.New("openai: API key is empty")
	}
	return string(k), nil
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Message    string
	err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *HTTPStatusError) Unwrap() error {
	return e.err
}

// Client is a focused OpenAI-compatible client for JSON chat completions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	keys       KeySource

	mu  sync.Mutex
	api *goopenai.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. The key is resolved on the first call to Chat
// and the underlying SDK client is reused afterwards.
func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("openai: key source must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		keys:       keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return c, nil
}

// normalizeBaseURL makes sure the configured base ends in /v1, which is where
// the SDK appends endpoint paths.
func normalizeBaseURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

func (c *Client) resolveAPI(ctx context.Context) (*goopenai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}

	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: resolve API key: %w", err)
	}
	cfg := goopenai.DefaultConfig(key)
	cfg.BaseURL = normalizeBaseURL(c.baseURL)
	cfg.HTTPClient = c.httpClient
	c.api = goopenai.NewClientWithConfig(cfg)
	return c.api, nil
}

// Chat sends messages to the chat completions endpoint in JSON-object mode
// and returns the content of the first choice.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	if model == "" {
		return "", errors.New("openai: model must not be empty")
	}

	api, err := c.resolveAPI(ctx)
	if err != nil {
		return "", err
	}

	resp, err := api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: toSDKMessages(messages),
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", asStatusError(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func toSDKMessages(messages []domain.ChatMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// asStatusError converts SDK errors that carry an HTTP status into
// *HTTPStatusError so callers can branch on the status without importing the SDK.
func asStatusError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: reqErr.HTTPStatusCode, Message: string(reqErr.Body), err: err}
	}
	return err
}
