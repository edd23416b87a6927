package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopping-agent/internal/domain"
)

const defaultLLMTimeout = 10 * time.Second

// LLMClient is a chat-completion backend that answers in JSON.
type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// LLMParser delegates interpretation to a completion model and accepts its
// answer only when it matches the command schema exactly.
type LLMParser struct {
	llm     LLMClient
	model   string
	timeout time.Duration
}

func NewLLMParser(llm LLMClient, model string, timeout time.Duration) (*LLMParser, error) {
	if llm == nil {
		return nil, errors.New("parser: llm client must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("parser: model must not be empty")
	}
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	return &LLMParser{llm: llm, model: model, timeout: timeout}, nil
}

func (p *LLMParser) Parse(ctx context.Context, text string) (domain.ParsedCommand, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.llm.Chat(ctx, p.model, buildPromptMessages(text))
	if err != nil {
		return domain.ParsedCommand{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	cmd, err := decodeModelCommand(raw)
	if err != nil {
		return domain.ParsedCommand{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return cmd, nil
}
