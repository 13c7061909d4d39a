package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mcpchat/internal/application/port/output"
	"mcpchat/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

var _ output.CompletionPort = (*OpenRouterAdapter)(nil)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

type OpenRouterAdapter struct {
	client *openai.Client
	model  string
	logger output.LoggerPort
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  output.LoggerPort
	// LogHTTP logs every request body and response status at info level.
	LogHTTP bool
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: DefaultBaseURL,
	}
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	var requestData map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &requestData)
	}

	t.logger.Info("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"body", requestData,
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "error", err)
		return resp, err
	}

	t.logger.Info("HTTP Response",
		"status", resp.Status,
		"statusCode", resp.StatusCode,
	)
	return resp, nil
}

func NewOpenRouterAdapter(cfg Config) *OpenRouterAdapter {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	if cfg.Logger != nil && cfg.LogHTTP {
		config.HTTPClient = &http.Client{
			Transport: &loggingTransport{
				base:   http.DefaultTransport,
				logger: cfg.Logger,
			},
		}
	}

	return &OpenRouterAdapter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

func (a *OpenRouterAdapter) Complete(ctx context.Context, req output.CompletionRequest) (entity.CompletionOutcome, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertTools(req.Tools)
		chatReq.ToolChoice = "auto"
	}

	if a.logger != nil {
		a.logger.Debug("Creating chat completion",
			"model", a.model,
			"messagesCount", len(chatReq.Messages),
			"toolsCount", len(chatReq.Tools))
	}

	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return entity.CompletionOutcome{}, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return entity.CompletionOutcome{}, entity.NewCompletionError(entity.CompletionMalformed, errors.New("no choices in response"))
	}

	return convertChoice(resp.Choices[0])
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}

		if msg.Role == entity.RoleToolResult {
			oaiMsg.Role = openai.ChatMessageRoleTool
			oaiMsg.ToolCallID = msg.ToolCallID
			oaiMsg.Name = msg.Name
		}

		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.ArgumentsJSON(),
				},
			})
		}

		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []entity.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return result
}

// convertChoice validates the provider message into a tagged outcome.
func convertChoice(choice openai.ChatCompletionChoice) (entity.CompletionOutcome, error) {
	truncated := choice.FinishReason == openai.FinishReasonLength
	msg := choice.Message

	calls := make([]entity.ToolCall, 0, len(msg.ToolCalls))
	for i, tc := range msg.ToolCalls {
		args, err := parseArguments(tc.Function.Arguments)
		if err != nil {
			kind := entity.CompletionMalformed
			if truncated {
				kind = entity.CompletionTruncated
			}
			return entity.CompletionOutcome{}, entity.NewCompletionError(kind,
				fmt.Errorf("tool call %q arguments: %w", tc.Function.Name, err))
		}

		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		calls = append(calls, entity.ToolCall{
			ID:           id,
			Name:         tc.Function.Name,
			Arguments:    args,
			RawArguments: tc.Function.Arguments,
		})
	}

	outcome := entity.NewOutcome(strings.TrimSpace(msg.Content), calls)
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

func classifyError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	kind := entity.CompletionUnavailable
	switch {
	case status == 0 && isMalformedBody(err):
		kind = entity.CompletionMalformed
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = entity.CompletionAuth
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		kind = entity.CompletionRateLimited
	}

	return &entity.CompletionError{
		Kind:       kind,
		StatusCode: status,
		Err:        fmt.Errorf("chat completion failed: %w", err),
	}
}

// isMalformedBody reports a response body that could not be decoded at all.
func isMalformedBody(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
