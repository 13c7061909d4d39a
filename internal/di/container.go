package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mcpchat/internal/application/port/input"
	"mcpchat/internal/application/port/output"
	"mcpchat/internal/application/service"
	"mcpchat/internal/domain/entity"
	"mcpchat/internal/infrastructure/llm/langchain"
	"mcpchat/internal/infrastructure/llm/openrouter"
	"mcpchat/internal/infrastructure/logger"
	"mcpchat/internal/infrastructure/mcp"
	"mcpchat/internal/infrastructure/prompts"
	"mcpchat/internal/usecase/orchestrator"
)

const (
	BackendOpenRouter = "openrouter"
	BackendLangChain  = "langchain"

	DefaultModel = "anthropic/claude-3.5-sonnet"
)

var _ input.QueryRunner = (*Container)(nil)

type Config struct {
	ServerSpec string
	Backend    string

	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string

	MaxTurns    int
	MaxTokens   int
	ToolTimeout time.Duration
	// SystemPrompt overrides the embedded template. It is rendered with the tool list too.
	SystemPrompt   string
	NoSystemPrompt bool

	LogFile string
	Debug   bool
	LogHTTP bool
}

func ConfigFromEnv(env output.ConfigPort) Config {
	return Config{
		ServerSpec:        env.Get("MCP_SERVER"),
		Backend:           env.GetWithDefault("COMPLETION_BACKEND", BackendOpenRouter),
		OpenRouterAPIKey:  env.Get("OPENROUTER_API_KEY"),
		OpenRouterModel:   env.GetWithDefault("OPENROUTER_MODEL_NAME", DefaultModel),
		OpenRouterBaseURL: env.GetWithDefault("OPENROUTER_BASE_URL", openrouter.DefaultBaseURL),
		MaxTurns:          env.GetInt("MAX_TURNS", orchestrator.DefaultMaxTurns),
		MaxTokens:         env.GetInt("MAX_TOKENS", orchestrator.DefaultMaxTokens),
		ToolTimeout:       env.GetDuration("TOOL_TIMEOUT", 60*time.Second),
		SystemPrompt:      env.Get("SYSTEM_PROMPT"),
		LogFile:           env.Get("LOG_FILE"),
		Debug:             env.GetBool("DEBUG", false),
		LogHTTP:           env.GetBool("LOG_HTTP", false),
	}
}

// Option replaces a collaborator NewContainer would otherwise build from Config.
type Option func(*Container)

func WithLogger(l output.LoggerPort) Option {
	return func(c *Container) { c.Logger = l }
}

func WithLink(l output.ToolLinkPort) Option {
	return func(c *Container) { c.Link = l }
}

func WithCompletion(llm output.CompletionPort) Option {
	return func(c *Container) { c.LLM = llm }
}

// Container is the session object: one link, one catalog and the orchestrator built on them.
// It is safe to run queries from several goroutines; the link serializes their requests.
type Container struct {
	Logger  output.LoggerPort
	Link    output.ToolLinkPort
	LLM     output.CompletionPort
	Catalog output.ToolCatalog
	Invoker output.ToolInvoker

	cfg      Config
	progress output.UserInteractionPort

	refreshMu sync.Mutex
	mu        sync.RWMutex
	runner    *orchestrator.UseCase
}

func NewContainer(ctx context.Context, cfg Config, progress output.UserInteractionPort, opts ...Option) (*Container, error) {
	c := &Container{cfg: cfg, progress: progress}
	for _, opt := range opts {
		opt(c)
	}

	if c.Logger == nil {
		log, err := logger.NewLoggerAdapter(logger.Config{FilePath: cfg.LogFile, Debug: cfg.Debug})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		c.Logger = log
	}

	if c.LLM == nil {
		llm, err := newCompletion(cfg, c.Logger)
		if err != nil {
			c.Logger.Close()
			return nil, err
		}
		c.LLM = llm
	}

	if c.Link == nil {
		if strings.TrimSpace(cfg.ServerSpec) == "" {
			c.Logger.Close()
			return nil, errors.New("tool server is not configured (set --server or MCP_SERVER)")
		}
		linkCfg := mcp.DefaultConfig(cfg.ServerSpec)
		linkCfg.Logger = c.Logger
		if cfg.ToolTimeout > 0 {
			linkCfg.RequestTimeout = cfg.ToolTimeout
		}
		link, err := mcp.Connect(ctx, linkCfg)
		if err != nil {
			c.Logger.Close()
			return nil, err
		}
		c.Link = link
	}

	c.Catalog = service.NewToolCatalog()
	c.Invoker = service.NewToolInvoker(c.Link, c.Logger.Named("invoker"), service.DefaultMaxResultLen)

	if _, err := c.RefreshTools(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func newCompletion(cfg Config, log output.LoggerPort) (output.CompletionPort, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is required")
	}
	model := cfg.OpenRouterModel
	if model == "" {
		model = DefaultModel
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendOpenRouter:
		llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, model)
		if cfg.OpenRouterBaseURL != "" {
			llmCfg.BaseURL = cfg.OpenRouterBaseURL
		}
		llmCfg.Logger = log.Named("openrouter")
		llmCfg.LogHTTP = cfg.LogHTTP
		return openrouter.NewOpenRouterAdapter(llmCfg), nil
	case BackendLangChain:
		baseURL := cfg.OpenRouterBaseURL
		if baseURL == "" {
			baseURL = openrouter.DefaultBaseURL
		}
		return langchain.New(langchain.Config{
			APIKey:  cfg.OpenRouterAPIKey,
			Model:   model,
			BaseURL: baseURL,
			Logger:  log.Named("langchain"),
		})
	default:
		return nil, fmt.Errorf("unknown completion backend %q", cfg.Backend)
	}
}

// RefreshTools re-lists the server's tools and rebuilds the orchestrator around them.
// The catalog changes only once the new system prompt renders, so a failed refresh
// leaves both the catalog and the runner as they were. Runs already in flight keep
// the catalog they started with.
func (c *Container) RefreshTools(ctx context.Context) ([]entity.ToolDefinition, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	defs, err := c.Link.ListTools(ctx)
	if err != nil {
		c.Logger.Error("Tool discovery failed", "error", err)
		return nil, err
	}
	snapshot, err := entity.NewToolSnapshot(defs)
	if err != nil {
		c.Logger.Error("Tool discovery failed", "error", err)
		return nil, err
	}
	tools := snapshot.Definitions()

	systemPrompt, err := c.systemPrompt(tools)
	if err != nil {
		return nil, fmt.Errorf("failed to generate system prompt: %w", err)
	}

	runner := orchestrator.New(c.LLM, c.Catalog, c.Invoker, c.Logger, c.progress, orchestrator.Config{
		MaxTurns:     c.cfg.MaxTurns,
		MaxTokens:    c.cfg.MaxTokens,
		SystemPrompt: systemPrompt,
	})

	c.mu.Lock()
	c.Catalog.Replace(snapshot)
	c.runner = runner
	c.mu.Unlock()

	c.Logger.Info("Tool catalog loaded", "count", len(tools))
	return tools, nil
}

func (c *Container) systemPrompt(tools []entity.ToolDefinition) (string, error) {
	if c.cfg.NoSystemPrompt {
		return "", nil
	}
	tmpl := c.cfg.SystemPrompt
	if tmpl == "" {
		tmpl = prompts.DefaultSystemPrompt
	}
	return prompts.GenerateSystemPrompt(tmpl, tools)
}

func (c *Container) RunQuery(ctx context.Context, text string) (*input.QueryResult, error) {
	c.mu.RLock()
	runner := c.runner
	c.mu.RUnlock()
	return runner.RunQuery(ctx, text)
}

func (c *Container) Tools() []entity.ToolDefinition {
	return c.Catalog.Snapshot().Definitions()
}

func (c *Container) Close() error {
	var errs []error
	if c.Link != nil {
		if err := c.Link.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close link: %w", err))
		}
	}
	if c.Logger != nil {
		if err := c.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close logger: %w", err))
		}
	}
	return errors.Join(errs...)
}
