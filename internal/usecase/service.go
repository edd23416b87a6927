package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"shopping-agent/internal/domain"
	"shopping-agent/internal/parser"
	"shopping-agent/internal/reconcile"
)

const defaultMaxCommandLength = 500

type Parser interface {
	Parse(ctx context.Context, text string) (domain.ParsedCommand, error)
}

type Reconciler interface {
	Apply(s reconcile.Store, cmd domain.ParsedCommand) []domain.Item
}

// ListStore is the in-memory list the service mutates through the reconciler.
type ListStore interface {
	reconcile.Store
	Items() []domain.Item
	History() []string
	Clear() []domain.Item
}

type Suggester interface {
	Suggest(current []domain.Item) []domain.Suggestion
}

// Journal is the optional audit trail of applied commands.
type Journal interface {
	RecordCommand(ctx context.Context, text string, cmd domain.ParsedCommand) (domain.CommandRecord, error)
	RecentCommands(ctx context.Context, limit int) ([]domain.CommandRecord, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type CommandService struct {
	parser     Parser
	reconciler Reconciler
	store      ListStore
	suggester  Suggester
	journal    Journal
	logger     *zap.Logger
	maxLen     int
}

type Option func(*CommandService)

// WithJournal enables command journaling and the command history read path.
func WithJournal(j Journal) Option {
	return func(s *CommandService) {
		s.journal = j
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *CommandService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxCommandLength bounds accepted command text in runes. Non-positive
// values keep the default.
func WithMaxCommandLength(n int) Option {
	return func(s *CommandService) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// ExecuteOutput is the result of a full text command round trip.
type ExecuteOutput struct {
	Command string
	Parsed  domain.ParsedCommand
	Items   []domain.Item
}

// HistoryOutput pairs the in-memory added-name history with journaled commands.
type HistoryOutput struct {
	Added    []string
	Commands []domain.CommandRecord
}

func NewCommandService(p Parser, r Reconciler, st ListStore, sg Suggester, opts ...Option) (*CommandService, error) {
	if p == nil {
		return nil, errors.New("usecase: parser must not be nil")
	}
	if r == nil {
		return nil, errors.New("usecase: reconciler must not be nil")
	}
	if st == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if sg == nil {
		return nil, errors.New("usecase: suggester must not be nil")
	}
	s := &CommandService{
		parser:     p,
		reconciler: r,
		store:      st,
		suggester:  sg,
		logger:     zap.NewNop(),
		maxLen:     defaultMaxCommandLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Interpret parses text without touching the list.
func (s *CommandService) Interpret(ctx context.Context, text string) (domain.ParsedCommand, error) {
	text, err := s.validateCommand(text)
	if err != nil {
		return domain.ParsedCommand{}, err
	}
	return s.parse(ctx, text)
}

// Reconcile applies an already structured command and returns the updated list.
func (s *CommandService) Reconcile(_ context.Context, cmd domain.ParsedCommand) ([]domain.Item, error) {
	if !cmd.Action.Valid() {
		return nil, newError(ErrorInvalidInput, "invalid_action", nil)
	}
	items := s.reconciler.Apply(s.store, cmd)
	s.logger.Info("command reconciled",
		zap.String("action", string(cmd.Action)),
		zap.Int("items", len(cmd.Items)),
		zap.Int("list_size", len(items)),
	)
	return items, nil
}

// Execute parses text, applies it to the list and journals the result when a
// journal is configured. A journal failure does not fail the request.
func (s *CommandService) Execute(ctx context.Context, text string) (ExecuteOutput, error) {
	text, err := s.validateCommand(text)
	if err != nil {
		return ExecuteOutput{}, err
	}
	cmd, err := s.parse(ctx, text)
	if err != nil {
		return ExecuteOutput{}, err
	}

	items, err := s.Reconcile(ctx, cmd)
	if err != nil {
		return ExecuteOutput{}, err
	}

	if s.journal != nil {
		if _, jerr := s.journal.RecordCommand(ctx, text, cmd); jerr != nil {
			s.logger.Warn("journal write failed",
				zap.String("action", string(cmd.Action)),
				zap.Error(jerr),
			)
		}
	}

	return ExecuteOutput{Command: text, Parsed: cmd, Items: items}, nil
}

func (s *CommandService) Items() []domain.Item {
	return s.store.Items()
}

// Clear empties the list. History of added names is kept.
func (s *CommandService) Clear() []domain.Item {
	items := s.store.Clear()
	s.logger.Info("shopping list cleared")
	return items
}

func (s *CommandService) Suggestions() []domain.Suggestion {
	return s.suggester.Suggest(s.store.Items())
}

// History returns the added-name history and, when journaling is enabled,
// the most recent journaled commands.
func (s *CommandService) History(ctx context.Context, limit int) (HistoryOutput, error) {
	out := HistoryOutput{Added: s.store.History(), Commands: []domain.CommandRecord{}}
	if s.journal == nil {
		return out, nil
	}
	cmds, err := s.RecentCommands(ctx, limit)
	if err != nil {
		return HistoryOutput{}, err
	}
	out.Commands = cmds
	return out, nil
}

// RecentCommands reads the journal directly. It fails with UNAVAILABLE when
// no journal is configured.
func (s *CommandService) RecentCommands(ctx context.Context, limit int) ([]domain.CommandRecord, error) {
	if s.journal == nil {
		return nil, newError(ErrorUnavailable, "journal_disabled", nil)
	}
	cmds, err := s.journal.RecentCommands(ctx, limit)
	if err != nil {
		return nil, newError(ErrorInternal, "journal_read_error", err)
	}
	return cmds, nil
}

func (s *CommandService) validateCommand(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", newError(ErrorInvalidInput, "empty_command", nil)
	}
	if utf8.RuneCountInString(text) > s.maxLen {
		return "", newError(ErrorInvalidInput, "command_too_long", nil)
	}
	return text, nil
}

func (s *CommandService) parse(ctx context.Context, text string) (domain.ParsedCommand, error) {
	cmd, err := s.parser.Parse(ctx, text)
	if err == nil {
		return cmd, nil
	}
	if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
		return domain.ParsedCommand{}, newError(ErrorRateLimited, "llm_rate_limited", err)
	}
	if errors.Is(err, parser.ErrMalformedResponse) {
		return domain.ParsedCommand{}, newError(ErrorUpstreamParse, "llm_malformed_response", err)
	}
	return domain.ParsedCommand{}, newError(ErrorUpstreamParse, "llm_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
