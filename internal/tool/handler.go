// Package tool exposes the resolver as a single MCP tool.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/vesselinfo/internal/intent"
	"github.com/ppiankov/vesselinfo/internal/lookup"
	"github.com/ppiankov/vesselinfo/internal/model"
)

// DefaultName is the stable tool name advertised to clients.
const DefaultName = "vessel_lookup"

// Resolver answers validated intents.
type Resolver interface {
	Resolve(ctx context.Context, intent *model.QueryIntent) (*model.QueryResult, error)
}

// Response is the tool output: a QueryResult whose records carry
// human-readable code descriptions.
type Response struct {
	Status    model.ResultStatus `json:"resultStatus"`
	Records   []Record           `json:"records"`
	Truncated bool               `json:"truncated"`
	Total     int                `json:"total"`
	Message   string             `json:"message,omitempty"`
}

// Record is a VesselRecord plus descriptions of its codes.
type Record struct {
	model.VesselRecord
	VesselTypeDescription string `json:"vesselTypeDescription"`
	CargoDescription      string `json:"cargoDescription"`
	StatusDescription     string `json:"statusDescription"`
}

// Handler validates arguments, extracts the intent and resolves it. It keeps
// no state between calls.
type Handler struct {
	name        string
	adapter     *intent.Adapter
	resolver    Resolver
	vesselTypes *lookup.Table
	cargo       *lookup.Table
	log         *zap.Logger
}

// Config holds the handler dependencies. Nil tables use the built-in
// defaults and a nil logger discards output.
type Config struct {
	Name        string
	Resolver    Resolver
	VesselTypes *lookup.Table
	Cargo       *lookup.Table
	Logger      *zap.Logger
}

// NewHandler creates a handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		name:        cfg.Name,
		resolver:    cfg.Resolver,
		vesselTypes: cfg.VesselTypes,
		cargo:       cfg.Cargo,
		log:         cfg.Logger,
	}
	if h.name == "" {
		h.name = DefaultName
	}
	if h.vesselTypes == nil {
		h.vesselTypes = lookup.DefaultVesselTypes()
	}
	if h.cargo == nil {
		h.cargo = lookup.DefaultCargo()
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	h.adapter = intent.NewAdapter(h.vesselTypes, h.cargo)
	return h
}

// Name returns the advertised tool name.
func (h *Handler) Name() string { return h.name }

// Tool returns the MCP tool definition.
func (h *Handler) Tool() mcp.Tool {
	t := mcp.NewToolWithRawSchema(h.name, toolDescription, InputSchema())
	t.OutputSchema = mcp.ToolOutputSchema{
		Type:       "object",
		Properties: outputProperties(),
		Required:   outputRequired,
	}
	t.Annotations = mcp.ToolAnnotation{
		Title:           "AIS vessel lookup",
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		IdempotentHint:  mcp.ToBoolPtr(true),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}
	return t
}

// Call runs one tool invocation. Errors are *model.SchemaValidationError,
// *model.InvalidIntentError or context errors.
func (h *Handler) Call(ctx context.Context, args map[string]any) (*Response, error) {
	kind, params, err := Validate(args)
	if err != nil {
		return nil, err
	}
	qi, err := h.adapter.Extract(kind, params)
	if err != nil {
		return nil, err
	}
	res, err := h.resolver.Resolve(ctx, qi)
	if err != nil {
		return nil, err
	}
	return h.describe(res), nil
}

// Respond is Call with per-call errors folded into an invalid response.
// The second value reports whether the call failed.
func (h *Handler) Respond(ctx context.Context, args map[string]any) (*Response, bool) {
	callID := uuid.NewString()
	started := time.Now()

	resp, err := h.Call(ctx, args)
	kind, _ := args["kind"].(string)
	if err != nil {
		h.log.Info("tool call rejected",
			zap.String("call_id", callID),
			zap.String("kind", kind),
			zap.String("error_type", errorType(err)),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(started)))
		return &Response{
			Status:  model.ResultInvalid,
			Records: []Record{},
			Message: err.Error(),
		}, true
	}

	h.log.Info("tool call",
		zap.String("call_id", callID),
		zap.String("kind", kind),
		zap.String("status", string(resp.Status)),
		zap.Int("records", len(resp.Records)),
		zap.Int("total", resp.Total),
		zap.Bool("truncated", resp.Truncated),
		zap.Duration("elapsed", time.Since(started)))
	return resp, false
}

// Handle is the MCP tool handler. Per-call errors become error results so
// the calling model can read them; only encoding failures are returned as
// protocol errors.
func (h *Handler) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, failed := h.Respond(ctx, req.GetArguments())
	text, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(string(text))},
		StructuredContent: resp,
		IsError:           failed,
	}, nil
}

func (h *Handler) describe(res *model.QueryResult) *Response {
	resp := &Response{
		Status:    res.Status,
		Records:   make([]Record, len(res.Records)),
		Truncated: res.Truncated,
		Total:     res.Total,
		Message:   res.Message,
	}
	for i, rec := range res.Records {
		resp.Records[i] = Record{
			VesselRecord:          rec,
			VesselTypeDescription: h.vesselTypes.Describe(rec.Classification.VesselType),
			CargoDescription:      h.cargo.Describe(rec.Classification.Cargo),
			StatusDescription:     rec.Status.String(),
		}
	}
	return resp
}

func errorType(err error) string {
	var (
		se *model.SchemaValidationError
		ie *model.InvalidIntentError
	)
	switch {
	case errors.As(err, &se):
		return "schema_validation"
	case errors.As(err, &ie):
		return "invalid_intent"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
