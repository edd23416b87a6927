// Package parser turns free-form shopping commands into structured actions.
// Two interchangeable implementations exist: a deterministic rule-based
// parser and one that delegates interpretation to a chat-completion model.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopping-agent/internal/domain"
)

// Parser converts command text into a ParsedCommand.
type Parser interface {
	Parse(ctx context.Context, text string) (domain.ParsedCommand, error)
}

// Kind names a parser implementation in configuration.
type Kind string

const (
	KindRule Kind = "rule"
	KindLLM  Kind = "llm"
)

// ParseKind validates a configured parser name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRule, KindLLM:
		return k, nil
	}
	return "", fmt.Errorf("parser: unknown kind %q", s)
}

var (
	// ErrUpstream marks a failed or timed out call to the completion model.
	ErrUpstream = errors.New("parser: upstream call failed")
	// ErrMalformedResponse marks model output that does not satisfy the
	// command schema.
	ErrMalformedResponse = errors.New("parser: malformed model response")
)
