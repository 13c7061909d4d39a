package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mcpchat/internal/application/port/input"
	"mcpchat/internal/application/port/output"
	"mcpchat/internal/domain/entity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

const maxBodyBytes = 1 << 20

// Session is what the HTTP surface needs from the long-lived chat session.
type Session interface {
	input.QueryRunner
	Tools() []entity.ToolDefinition
	RefreshTools(ctx context.Context) ([]entity.ToolDefinition, error)
}

type Handler struct {
	session Session
	logger  output.LoggerPort
}

func NewHandler(session Session, logger output.LoggerPort) *Handler {
	return &Handler{
		session: session,
		logger:  logger.Named("http"),
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	RunID      string `json:"run_id"`
	FinalText  string `json:"final_text"`
	Transcript string `json:"transcript"`
	Turns      int    `json:"turns"`
	ToolCalls  int    `json:"tool_calls"`
	Truncated  bool   `json:"truncated,omitempty"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	PartialText string `json:"partial_text,omitempty"`
}

type toolResponse struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// Router wires routes behind request-id, panic recovery and JSON access logging.
func (h *Handler) Router(serviceName string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(httplog.NewLogger(serviceName, httplog.Options{JSON: true})))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	r.Post("/query", h.Query)
	r.Get("/tools", h.ListTools)
	r.Post("/tools/refresh", h.RefreshTools)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error(), Kind: string(entity.FailureInvalidQuery)})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: entity.ErrEmptyQuery.Error(), Kind: string(entity.FailureInvalidQuery)})
		return
	}

	result, err := h.session.RunQuery(r.Context(), req.Query)
	if err != nil {
		status, body := errorStatus(err)
		h.logger.Warn("Query failed", "status", status, "kind", body.Kind, "error", err)
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		RunID:      result.RunID,
		FinalText:  result.FinalText,
		Transcript: result.Transcript,
		Turns:      result.Turns,
		ToolCalls:  result.ToolCalls,
		Truncated:  result.Truncated,
	})
}

func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toToolResponses(h.session.Tools()))
}

func (h *Handler) RefreshTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.session.RefreshTools(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		var ce *entity.CatalogError
		if errors.As(err, &ce) {
			status = http.StatusConflict
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toToolResponses(tools))
}

// errorStatus maps a failed run to an HTTP status and body.
func errorStatus(err error) (int, errorResponse) {
	body := errorResponse{Error: err.Error()}

	var oe *entity.OrchestrationError
	if errors.As(err, &oe) {
		body.Kind = string(oe.Kind)
		body.RunID = oe.RunID
	}

	var tl *entity.TurnLimitError
	if errors.As(err, &tl) {
		body.PartialText = tl.PartialText
		return http.StatusUnprocessableEntity, body
	}

	var ce *entity.CompletionError
	switch {
	case errors.Is(err, entity.ErrEmptyQuery):
		return http.StatusBadRequest, body
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, body
	case errors.As(err, &ce):
		if ce.Kind == entity.CompletionRateLimited {
			return http.StatusServiceUnavailable, body
		}
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func toToolResponses(tools []entity.ToolDefinition) []toolResponse {
	out := make([]toolResponse, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolResponse{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
