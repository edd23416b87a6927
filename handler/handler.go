package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shopping-agent/internal/domain"
	"shopping-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// UseCase is the command service surface exposed over HTTP.
type UseCase interface {
	Interpret(ctx context.Context, text string) (domain.ParsedCommand, error)
	Reconcile(ctx context.Context, cmd domain.ParsedCommand) ([]domain.Item, error)
	Execute(ctx context.Context, text string) (usecase.ExecuteOutput, error)
	Items() []domain.Item
	Clear() []domain.Item
	Suggestions() []domain.Suggestion
	History(ctx context.Context, limit int) (usecase.HistoryOutput, error)
	RecentCommands(ctx context.Context, limit int) ([]domain.CommandRecord, error)
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Command      string              `json:"command"`
	Action       domain.Action       `json:"action"`
	Items        []domain.ParsedItem `json:"items"`
	Response     string              `json:"response"`
	ShoppingList []domain.Item       `json:"shoppingList"`
}

type reconcileResponse struct {
	Items []domain.Item `json:"items"`
}

type clearResponse struct {
	Message      string        `json:"message"`
	ShoppingList []domain.Item `json:"shoppingList"`
}

type historyResponse struct {
	Added    []string               `json:"added"`
	Commands []domain.CommandRecord `json:"commands"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// request is the transport-neutral view of an incoming call.
type request struct {
	method string
	path   string
	query  map[string]string
	body   string
}

type routeFunc func(ctx context.Context, req request) (int, any, error)

type Handler struct {
	uc            UseCase
	logger        *zap.Logger
	allowedOrigin string
	routes        map[string]map[string]routeFunc
}

type Option func(*Handler)

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithAllowedOrigin sets the Access-Control-Allow-Origin value. Empty keeps "*".
func WithAllowedOrigin(origin string) Option {
	return func(h *Handler) {
		if origin = strings.TrimSpace(origin); origin != "" {
			h.allowedOrigin = origin
		}
	}
}

func NewHandler(uc UseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc, logger: zap.NewNop(), allowedOrigin: "*"}
	for _, opt := range opts {
		opt(h)
	}
	h.routes = map[string]map[string]routeFunc{
		"/api/health": {
			http.MethodGet: h.health,
		},
		"/api/items": {
			http.MethodGet:    h.listItems,
			http.MethodDelete: h.clearItems,
		},
		"/api/items/text-command": {
			http.MethodPost: h.textCommand,
		},
		"/api/items/interpret": {
			http.MethodPost: h.interpret,
		},
		"/api/items/reconcile": {
			http.MethodPost: h.reconcile,
		},
		"/api/suggestions": {
			http.MethodGet: h.suggestions,
		},
		"/api/history": {
			http.MethodGet: h.history,
		},
		"/api/history/commands": {
			http.MethodGet: h.recentCommands,
		},
	}
	return h, nil
}

// Handle serves an API Gateway proxy event.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := h.logger.With(zap.String("correlation_id", correlationID))

	body := event.Body
	if event.IsBase64Encoded && body != "" {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return h.respondError(log, correlationID, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}), nil
		}
		body = string(decoded)
	}

	req := request{
		method: strings.ToUpper(event.HTTPMethod),
		path:   normalizePath(event.Path),
		query:  event.QueryStringParameters,
		body:   body,
	}

	methods, ok := h.routes[req.path]
	if !ok {
		log.Info("route not found", zap.String("method", req.method), zap.String("path", req.path))
		return h.respond(correlationID, http.StatusNotFound, errorResponse{Error: "NOT_FOUND"}), nil
	}
	if req.method == http.MethodOptions {
		resp := h.respond(correlationID, http.StatusNoContent, nil)
		resp.Headers["Access-Control-Allow-Methods"] = allowedMethods(methods)
		resp.Headers["Access-Control-Allow-Headers"] = "Content-Type, " + correlationHeader
		return resp, nil
	}
	route, ok := methods[req.method]
	if !ok {
		resp := h.respond(correlationID, http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED"})
		resp.Headers["Allow"] = allowedMethods(methods)
		return resp, nil
	}

	status, payload, err := route(ctx, req)
	if err != nil {
		return h.respondError(log, correlationID, err), nil
	}
	log.Info("request handled",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", status),
	)
	return h.respond(correlationID, status, payload), nil
}

func (h *Handler) health(context.Context, request) (int, any, error) {
	return http.StatusOK, healthResponse{Status: "ok"}, nil
}

func (h *Handler) listItems(context.Context, request) (int, any, error) {
	return http.StatusOK, h.uc.Items(), nil
}

func (h *Handler) clearItems(context.Context, request) (int, any, error) {
	return http.StatusOK, clearResponse{Message: "Shopping list cleared", ShoppingList: h.uc.Clear()}, nil
}

func (h *Handler) textCommand(ctx context.Context, req request) (int, any, error) {
	var in commandRequest
	if err := decodeStrict(req.body, &in); err != nil {
		return 0, nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}
	}
	out, err := h.uc.Execute(ctx, in.Command)
	if err != nil {
		return 0, nil, err
	}
	items := out.Parsed.Items
	if items == nil {
		items = []domain.ParsedItem{}
	}
	return http.StatusOK, commandResponse{
		Command:      out.Command,
		Action:       out.Parsed.Action,
		Items:        items,
		Response:     out.Parsed.Response,
		ShoppingList: out.Items,
	}, nil
}

func (h *Handler) interpret(ctx context.Context, req request) (int, any, error) {
	var in commandRequest
	if err := decodeStrict(req.body, &in); err != nil {
		return 0, nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}
	}
	cmd, err := h.uc.Interpret(ctx, in.Command)
	if err != nil {
		return 0, nil, err
	}
	if cmd.Items == nil {
		cmd.Items = []domain.ParsedItem{}
	}
	return http.StatusOK, cmd, nil
}

func (h *Handler) reconcile(ctx context.Context, req request) (int, any, error) {
	var cmd domain.ParsedCommand
	if err := decodeStrict(req.body, &cmd); err != nil {
		return 0, nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Err: err}
	}
	items, err := h.uc.Reconcile(ctx, cmd)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, reconcileResponse{Items: items}, nil
}

func (h *Handler) suggestions(context.Context, request) (int, any, error) {
	return http.StatusOK, h.uc.Suggestions(), nil
}

func (h *Handler) history(ctx context.Context, req request) (int, any, error) {
	limit, err := limitParam(req.query)
	if err != nil {
		return 0, nil, err
	}
	out, err := h.uc.History(ctx, limit)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, historyResponse{Added: out.Added, Commands: out.Commands}, nil
}

func (h *Handler) recentCommands(ctx context.Context, req request) (int, any, error) {
	limit, err := limitParam(req.query)
	if err != nil {
		return 0, nil, err
	}
	cmds, err := h.uc.RecentCommands(ctx, limit)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, cmds, nil
}

func limitParam(query map[string]string) (int, error) {
	raw := strings.TrimSpace(query["limit"])
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_limit", Err: err}
	}
	return n, nil
}

func (h *Handler) respondError(log *zap.Logger, correlationID string, err error) events.APIGatewayProxyResponse {
	code := usecase.ErrorInternal
	reason := "unexpected_error"
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		code = ucErr.Code
		reason = ucErr.Reason
	}
	status := statusFor(code)

	fields := []zap.Field{zap.String("code", string(code)), zap.String("reason", reason), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Warn("request rejected", fields...)
	}
	return h.respond(correlationID, status, errorResponse{Error: string(code), Reason: reason})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstreamParse:
		return http.StatusBadGateway
	case usecase.ErrorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respond(correlationID string, status int, payload any) events.APIGatewayProxyResponse {
	headers := map[string]string{
		correlationHeader:             correlationID,
		"Access-Control-Allow-Origin": h.allowedOrigin,
	}
	if payload == nil {
		return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","reason":"encode_error"}`)
	}
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(body)}
}

// decodeStrict decodes exactly one JSON value with no unknown fields.
func decodeStrict(body string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: unexpected trailing data")
	}
	return nil
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if p = strings.TrimRight(p, "/"); p == "" {
		return "/"
	}
	return p
}

func allowedMethods(methods map[string]routeFunc) string {
	out := make([]string, 0, len(methods)+1)
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		if _, ok := methods[m]; ok {
			out = append(out, m)
		}
	}
	out = append(out, http.MethodOptions)
	return strings.Join(out, ", ")
}
