package langchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"mcpchat/internal/application/port/output"
	"mcpchat/internal/domain/entity"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

var _ output.CompletionPort = (*Adapter)(nil)

const stopReasonLength = "length"

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  output.LoggerPort
}

// Adapter drives any langchaingo llms.Model through the completion port.
type Adapter struct {
	model  llms.Model
	logger output.LoggerPort
}

// New builds an adapter on top of langchaingo's OpenAI-compatible client, which also
// talks to OpenRouter when BaseURL points there.
func New(cfg Config) (*Adapter, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain client: %w", err)
	}
	return NewWithModel(llm, cfg.Logger), nil
}

func NewWithModel(model llms.Model, logger output.LoggerPort) *Adapter {
	return &Adapter{model: model, logger: logger}
}

func (a *Adapter) Complete(ctx context.Context, req output.CompletionRequest) (entity.CompletionOutcome, error) {
	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature != 0 {
		opts = append(opts, llms.WithTemperature(float64(req.Temperature)))
	}
	if len(req.Tools) > 0 {
		opts = append(opts, llms.WithTools(convertTools(req.Tools)), llms.WithToolChoice("auto"))
	}

	if a.logger != nil {
		a.logger.Debug("Generating content",
			"messagesCount", len(req.Messages),
			"toolsCount", len(req.Tools))
	}

	resp, err := a.model.GenerateContent(ctx, convertMessages(req.Messages), opts...)
	if err != nil {
		return entity.CompletionOutcome{}, classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return entity.CompletionOutcome{}, entity.NewCompletionError(entity.CompletionMalformed, errors.New("no choices in response"))
	}

	return convertChoice(resp.Choices[0])
}

func convertMessages(messages []entity.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case entity.RoleSystem:
			result = append(result, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		case entity.RoleUser:
			result = append(result, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case entity.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   tc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.ArgumentsJSON(),
					},
				})
			}
			result = append(result, mc)
		case entity.RoleToolResult:
			result = append(result, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.Name,
					Content:    msg.Content,
				}},
			})
		}
	}
	return result
}

func convertTools(tools []entity.ToolDefinition) []llms.Tool {
	result := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return result
}

func convertChoice(choice *llms.ContentChoice) (entity.CompletionOutcome, error) {
	truncated := strings.EqualFold(choice.StopReason, stopReasonLength)

	calls := make([]entity.ToolCall, 0, len(choice.ToolCalls))
	for i, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			return entity.CompletionOutcome{}, entity.NewCompletionError(entity.CompletionMalformed,
				fmt.Errorf("tool call %d has no function", i))
		}
		args, err := parseArguments(tc.FunctionCall.Arguments)
		if err != nil {
			kind := entity.CompletionMalformed
			if truncated {
				kind = entity.CompletionTruncated
			}
			return entity.CompletionOutcome{}, entity.NewCompletionError(kind,
				fmt.Errorf("tool call %q arguments: %w", tc.FunctionCall.Name, err))
		}
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		calls = append(calls, entity.ToolCall{
			ID:           id,
			Name:         tc.FunctionCall.Name,
			Arguments:    args,
			RawArguments: tc.FunctionCall.Arguments,
		})
	}

	outcome := entity.NewOutcome(strings.TrimSpace(choice.Content), calls)
	if truncated {
		outcome = outcome.MarkTruncated()
	}
	if err := outcome.Validate(); err != nil {
		return entity.CompletionOutcome{}, entity.NewCompletionError(entity.CompletionMalformed, err)
	}
	return outcome, nil
}

func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// classifyError maps provider failures onto completion error kinds through langchaingo's
// typed errors. A body that does not decode is malformed rather than unavailable.
func classifyError(err error) error {
	kind := entity.CompletionUnavailable
	if isMalformedBody(err) {
		kind = entity.CompletionMalformed
	} else if lcErr := asLLMError(err); lcErr != nil {
		switch lcErr.Code {
		case llms.ErrCodeAuthentication:
			kind = entity.CompletionAuth
		case llms.ErrCodeRateLimit, llms.ErrCodeProviderUnavailable:
			kind = entity.CompletionRateLimited
		}
	}
	return entity.NewCompletionError(kind, fmt.Errorf("generate content: %w", err))
}

func asLLMError(err error) *llms.Error {
	var lcErr *llms.Error
	if errors.As(err, &lcErr) {
		return lcErr
	}
	if errors.As(lcopenai.MapError(err), &lcErr) {
		return lcErr
	}
	return nil
}

func isMalformedBody(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
