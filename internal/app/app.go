// Package app assembles the shopping agent from configuration. Both the
// Lambda entry point and the local HTTP server build through New.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopping-agent/handler"
	"shopping-agent/internal/config"
	"shopping-agent/internal/domain"
	"shopping-agent/internal/integrations/openai"
	"shopping-agent/internal/integrations/paramstore"
	"shopping-agent/internal/parser"
	"shopping-agent/internal/reconcile"
	"shopping-agent/internal/repository"
	"shopping-agent/internal/store"
	"shopping-agent/internal/suggest"
	"shopping-agent/internal/usecase"
)

// App holds the wired components.
type App struct {
	Store   *store.ListStore
	Service *usecase.CommandService
	Handler *handler.Handler
}

type awsLoader func(ctx context.Context) (aws.Config, error)

type Option func(*builder)

// WithAWSConfigLoader replaces the default AWS SDK config resolution.
func WithAWSConfigLoader(fn func(ctx context.Context) (aws.Config, error)) Option {
	return func(b *builder) {
		b.loadAWS = fn
	}
}

type builder struct {
	cfg     *config.Config
	logger  *zap.Logger
	loadAWS awsLoader

	awsCfg *aws.Config
}

func defaultAWSLoader(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// New wires the parser, store, reconciler, suggestion engine, optional
// journal and transport handler. AWS config is only loaded when SSM or
// DynamoDB is needed.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &builder{cfg: cfg, logger: logger, loadAWS: defaultAWSLoader}
	for _, opt := range opts {
		opt(b)
	}

	p, err := b.buildParser(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := suggest.New(cfg.SuggestionMode, suggest.WithLimit(cfg.SuggestionLimit))
	if err != nil {
		return nil, fmt.Errorf("app: suggestion engine: %w", err)
	}

	st := b.buildStore()
	svcOpts := []usecase.Option{
		usecase.WithLogger(logger),
		usecase.WithMaxCommandLength(cfg.MaxCommandLength),
	}
	if cfg.JournalEnabled() {
		journal, err := b.buildJournal(ctx)
		if err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, usecase.WithJournal(journal))
	}

	svc, err := usecase.NewCommandService(p, reconcile.New(), st, engine, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: command service: %w", err)
	}

	h, err := handler.NewHandler(svc, handler.WithLogger(logger), handler.WithAllowedOrigin(cfg.AllowedOrigin))
	if err != nil {
		return nil, fmt.Errorf("app: handler: %w", err)
	}

	logger.Info("shopping agent configured",
		zap.String("parser", string(cfg.Parser)),
		zap.String("suggestion_mode", string(cfg.SuggestionMode)),
		zap.Bool("journal", cfg.JournalEnabled()),
		zap.Bool("seeded", cfg.SeedDemoList),
	)
	return &App{Store: st, Service: svc, Handler: h}, nil
}

func (b *builder) awsConfig(ctx context.Context) (aws.Config, error) {
	if b.awsCfg != nil {
		return *b.awsCfg, nil
	}
	c, err := b.loadAWS(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
	}
	b.awsCfg = &c
	return c, nil
}

func (b *builder) buildParser(ctx context.Context) (usecase.Parser, error) {
	if b.cfg.Parser != parser.KindLLM {
		return parser.NewRuleParser(), nil
	}

	keys, err := b.keySource(ctx)
	if err != nil {
		return nil, err
	}
	client, err := openai.NewClient(keys,
		openai.WithBaseURL(b.cfg.OpenAIBaseURL),
		openai.WithHTTPClient(&http.Client{Timeout: b.cfg.LLMTimeout + time.Second}),
	)
	if err != nil {
		return nil, fmt.Errorf("app: openai client: %w", err)
	}
	p, err := parser.NewLLMParser(client, b.cfg.OpenAIModel, b.cfg.LLMTimeout)
	if err != nil {
		return nil, fmt.Errorf("app: llm parser: %w", err)
	}
	return p, nil
}

// keySource prefers a key from the environment and falls back to SSM.
func (b *builder) keySource(ctx context.Context) (openai.KeySource, error) {
	if b.cfg.OpenAIAPIKey != "" {
		return openai.StaticKey(b.cfg.OpenAIAPIKey), nil
	}
	awsCfg, err := b.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("app: paramstore: %w", err)
	}
	src, err := paramstore.NewTokenSource(params, b.cfg.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("app: token source: %w", err)
	}
	return src, nil
}

func (b *builder) buildJournal(ctx context.Context) (*repository.Client, error) {
	awsCfg, err := b.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	j, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), b.cfg.JournalTable, b.cfg.ListID)
	if err != nil {
		return nil, fmt.Errorf("app: journal: %w", err)
	}
	return j, nil
}

func (b *builder) buildStore() *store.ListStore {
	if !b.cfg.SeedDemoList {
		return store.New()
	}
	now := time.Now().UTC()
	return store.New(
		store.WithItems(DemoItems(now)...),
		store.WithHistory(DemoHistory...),
	)
}

// DemoHistory is the added-name history shipped with the demo list.
var DemoHistory = []string{"milk", "bread", "eggs", "apples", "bananas", "coffee"}

// DemoItems returns the demo shopping list stamped with now.
func DemoItems(now time.Time) []domain.Item {
	return []domain.Item{
		{ID: uuid.NewString(), Name: "milk", Quantity: 1, Category: domain.CategoryDairy, AddedAt: now},
		{ID: uuid.NewString(), Name: "bread", Quantity: 1, Category: domain.CategoryBakery, AddedAt: now},
		{ID: uuid.NewString(), Name: "apples", Quantity: 3, Category: domain.CategoryProduce, AddedAt: now},
	}
}
