package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mcpchat/internal/application/port/input"
	"mcpchat/internal/application/port/output"
	"mcpchat/internal/domain/entity"

	"github.com/google/uuid"
)

const (
	DefaultMaxTurns  = 10
	DefaultMaxTokens = 1000
)

var _ input.QueryRunner = (*UseCase)(nil)

type Config struct {
	MaxTurns     int
	MaxTokens    int
	Temperature  float32
	SystemPrompt string
}

func DefaultConfig() Config {
	return Config{
		MaxTurns:  DefaultMaxTurns,
		MaxTokens: DefaultMaxTokens,
	}
}

// UseCase drives one query through completion turns and tool invocations until the model
// answers without requesting tools.
type UseCase struct {
	llm      output.CompletionPort
	catalog  output.ToolCatalog
	invoker  output.ToolInvoker
	logger   output.LoggerPort
	progress output.UserInteractionPort
	cfg      Config
}

func New(
	llm output.CompletionPort,
	catalog output.ToolCatalog,
	invoker output.ToolInvoker,
	logger output.LoggerPort,
	progress output.UserInteractionPort,
	cfg Config,
) *UseCase {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if progress == nil {
		progress = nopProgress{}
	}
	return &UseCase{
		llm:      llm,
		catalog:  catalog,
		invoker:  invoker,
		logger:   logger.Named("orchestrator"),
		progress: progress,
		cfg:      cfg,
	}
}

type run struct {
	id         string
	state      entity.RunState
	logger     output.LoggerPort
	conv       *entity.Conversation
	tools      entity.ToolSnapshot
	pending    []entity.ToolCall
	texts      []string
	transcript []string
	history    []entity.TurnRecord
	toolCalls  int
	truncated  bool
}

func (r *run) finalText() string {
	return strings.Join(r.texts, "\n")
}

func (r *run) fail(kind entity.FailureKind, err error) error {
	r.state = entity.StateTerminated
	return &entity.OrchestrationError{Kind: kind, RunID: r.id, Turn: r.conv.Turn(), Err: err}
}

func (uc *UseCase) RunQuery(ctx context.Context, text string) (*input.QueryResult, error) {
	r := &run{
		id:    uuid.NewString(),
		state: entity.StateAwaitingQuery,
	}
	r.logger = uc.logger.WithField("runId", r.id)

	query := strings.TrimSpace(text)
	if query == "" {
		return nil, &entity.OrchestrationError{Kind: entity.FailureInvalidQuery, RunID: r.id, Err: entity.ErrEmptyQuery}
	}

	r.conv = entity.NewConversation(uc.cfg.SystemPrompt, query)
	r.tools = uc.catalog.Snapshot()
	r.logger.Info("Running query", "query", query, "tools", r.tools.Len(), "maxTurns", uc.cfg.MaxTurns)

	r.state = entity.StateRequestingCompletion
	for r.state != entity.StateTerminated {
		var err error
		switch r.state {
		case entity.StateRequestingCompletion:
			err = uc.requestCompletion(ctx, r)
		case entity.StateInvokingTools:
			err = uc.invokeTools(ctx, r)
		default:
			err = r.fail(entity.FailureInternal, fmt.Errorf("unexpected run state %s", r.state))
		}
		if err != nil {
			r.logger.Error("Query failed", "turn", r.conv.Turn(), "error", err)
			return nil, err
		}
	}

	r.logger.Info("Query completed", "turns", r.conv.Turn(), "toolCalls", r.toolCalls)
	return &input.QueryResult{
		RunID:      r.id,
		FinalText:  r.finalText(),
		Transcript: strings.Join(r.transcript, "\n"),
		Turns:      r.conv.Turn(),
		ToolCalls:  r.toolCalls,
		Truncated:  r.truncated,
		Messages:   r.conv.Messages(),
		History:    r.history,
	}, nil
}

func (uc *UseCase) requestCompletion(ctx context.Context, r *run) error {
	if err := ctx.Err(); err != nil {
		return r.fail(entity.FailureCancelled, err)
	}

	turn := r.conv.NextTurn()
	uc.progress.ShowTurn(ctx, turn, uc.cfg.MaxTurns)
	r.logger.Debug("Requesting completion", "turn", turn, "messages", r.conv.Len())

	outcome, err := uc.llm.Complete(ctx, output.CompletionRequest{
		Messages:    r.conv.Messages(),
		Tools:       r.tools.Definitions(),
		MaxTokens:   uc.cfg.MaxTokens,
		Temperature: uc.cfg.Temperature,
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return r.fail(entity.FailureCancelled, err)
		}
		return r.fail(entity.FailureCompletion, err)
	}
	if err := outcome.Validate(); err != nil {
		return r.fail(entity.FailureCompletion, entity.NewCompletionError(entity.CompletionMalformed, err))
	}

	if outcome.Truncated() {
		r.truncated = true
		r.logger.Warn("Completion stopped at the token limit", "turn", turn, "maxTokens", uc.cfg.MaxTokens)
	}

	if t := outcome.Text(); t != "" {
		r.texts = append(r.texts, t)
		r.transcript = append(r.transcript, t)
		uc.progress.ShowThinking(ctx, t)
	}

	calls := outcome.ToolCalls()
	if err := r.conv.Append(entity.AssistantMessage(outcome.Text(), calls)); err != nil {
		return r.fail(entity.FailureInternal, err)
	}
	r.history = append(r.history, entity.TurnRecord{
		Turn:      turn,
		Text:      outcome.Text(),
		ToolCalls: calls,
		Truncated: outcome.Truncated(),
	})

	if !outcome.HasToolCalls() {
		r.state = entity.StateTerminated
		return nil
	}
	if turn >= uc.cfg.MaxTurns {
		r.logger.Warn("Turn limit reached with tool calls pending", "turn", turn, "pending", len(calls))
		return r.fail(entity.FailureTurnLimit, &entity.TurnLimitError{Limit: uc.cfg.MaxTurns, PartialText: r.finalText()})
	}

	r.pending = calls
	r.state = entity.StateInvokingTools
	return nil
}

func (uc *UseCase) invokeTools(ctx context.Context, r *run) error {
	record := &r.history[len(r.history)-1]
	for len(r.pending) > 0 {
		if err := ctx.Err(); err != nil {
			return r.fail(entity.FailureCancelled, err)
		}

		call := r.pending[0]
		r.pending = r.pending[1:]

		args := call.ArgumentsJSON()
		if _, known := r.tools.Lookup(call.Name); known {
			r.transcript = append(r.transcript, fmt.Sprintf("[Calling tool %s with args %s]", call.Name, args))
		}
		uc.progress.ShowToolStart(ctx, call.Name, args)

		result := uc.invoker.Call(ctx, r.tools, call)
		r.toolCalls++
		record.Results = append(record.Results, result)

		msg := entity.ToolResultMessage(call, result)
		uc.progress.ShowToolResult(ctx, call.Name, msg.Content, msg.IsError)
		if err := r.conv.Append(msg); err != nil {
			return r.fail(entity.FailureInternal, err)
		}
	}

	r.state = entity.StateRequestingCompletion
	return nil
}

type nopProgress struct{}

func (nopProgress) Prompt(context.Context, string) (string, error)       { return "", nil }
func (nopProgress) ShowTurn(context.Context, int, int)                   {}
func (nopProgress) ShowThinking(context.Context, string)                 {}
func (nopProgress) ShowToolStart(context.Context, string, string)        {}
func (nopProgress) ShowToolResult(context.Context, string, string, bool) {}
