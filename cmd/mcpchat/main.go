package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"mcpchat/internal/di"
	"mcpchat/internal/infrastructure/env"
	"mcpchat/internal/infrastructure/logger"
	"mcpchat/internal/infrastructure/userinteraction"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

type rootOptions struct {
	server         string
	backend        string
	model          string
	maxTurns       int
	maxTokens      int
	toolTimeout    time.Duration
	systemPrompt   string
	noSystemPrompt bool
	logFile        string
	debug          bool
	envFile        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "mcpchat",
		Short: "Chat with an LLM that can call tools on an MCP server",
		Long: `mcpchat connects to one MCP tool server, offers its tools to an
OpenAI-compatible model and runs the tool calls the model asks for.

Server specs:
  server.py | server.js        local script, interpreter picked by extension
  stdio://<command> [args]     any local command speaking MCP over stdio
  https://host/sse             SSE endpoint
  http+stream://host/mcp       streamable HTTP endpoint`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", "", "MCP server spec (overrides MCP_SERVER)")
	flags.StringVar(&opts.backend, "backend", "", "completion backend: openrouter or langchain (overrides COMPLETION_BACKEND)")
	flags.StringVarP(&opts.model, "model", "m", "", "model name (overrides OPENROUTER_MODEL_NAME)")
	flags.IntVar(&opts.maxTurns, "max-turns", 0, "completion requests allowed per query (overrides MAX_TURNS)")
	flags.IntVar(&opts.maxTokens, "max-tokens", 0, "output token limit per completion (overrides MAX_TOKENS)")
	flags.DurationVar(&opts.toolTimeout, "tool-timeout", 0, "timeout for a single tool server request (overrides TOOL_TIMEOUT)")
	flags.StringVar(&opts.systemPrompt, "system-prompt", "", "system prompt template (overrides SYSTEM_PROMPT)")
	flags.BoolVar(&opts.noSystemPrompt, "no-system-prompt", false, "send no system prompt")
	flags.StringVar(&opts.logFile, "log-file", "", "write JSON logs to this file")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file loaded over the environment")

	rootCmd.AddCommand(
		chatCmd(opts),
		queryCmd(opts),
		toolsCmd(opts),
		serveCmd(opts),
	)
	return rootCmd
}

// resolveConfig layers command line flags over environment configuration.
// Precedence, lowest first: .env, .env.<APP_ENV>, --env-file, flags.
func resolveConfig(cmd *cobra.Command, opts *rootOptions, args []string, defaultLog string) (di.Config, error) {
	envService := env.NewEnvService()
	if opts.envFile != "" {
		if err := env.LoadFile(opts.envFile); err != nil {
			return di.Config{}, err
		}
	}
	cfg := di.ConfigFromEnv(envService)

	changed := cmd.Flags().Changed
	if changed("server") {
		cfg.ServerSpec = opts.server
	} else if len(args) > 0 {
		cfg.ServerSpec = args[0]
	}
	if changed("backend") {
		cfg.Backend = opts.backend
	}
	if changed("model") {
		cfg.OpenRouterModel = opts.model
	}
	if changed("max-turns") {
		cfg.MaxTurns = opts.maxTurns
	}
	if changed("max-tokens") {
		cfg.MaxTokens = opts.maxTokens
	}
	if changed("tool-timeout") {
		cfg.ToolTimeout = opts.toolTimeout
	}
	if changed("system-prompt") {
		cfg.SystemPrompt = opts.systemPrompt
	}
	if opts.noSystemPrompt {
		cfg.NoSystemPrompt = true
	}
	if changed("log-file") {
		cfg.LogFile = opts.logFile
	}
	if cfg.LogFile == "" && defaultLog != "" {
		cfg.LogFile = logger.DefaultLogPath(defaultLog)
	}
	if opts.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func openSession(ctx context.Context, cfg di.Config, console *userinteraction.ConsoleUserInteraction) (*di.Container, error) {
	container, err := di.NewContainer(ctx, cfg, console)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return container, nil
}
