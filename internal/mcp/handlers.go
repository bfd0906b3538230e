package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/timeless/internal/attachment"
	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/config"
	"github.com/hpungsan/timeless/internal/errors"
	"github.com/hpungsan/timeless/internal/gateway"
	"github.com/hpungsan/timeless/internal/ops"
	"github.com/hpungsan/timeless/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store   *store.Store
	builder *ops.Builder
	gen     gateway.Generator
	cfg     *config.Config
	logger  *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Generator == nil {
		deps.Generator = gateway.Unavailable{}
	}
	if deps.Builder == nil {
		deps.Builder = ops.NewBuilder(deps.Store, deps.Generator, deps.Config, deps.Logger)
	}
	return &Handlers{
		store:   deps.Store,
		builder: deps.Builder,
		gen:     deps.Generator,
		cfg:     deps.Config,
		logger:  deps.Logger,
	}
}

// Request types for each tool

// CreateRequest represents the arguments for capsule_create.
type CreateRequest struct {
	Method           string             `json:"method"`
	RecipientName    string             `json:"recipient_name"`
	RecipientEmail   string             `json:"recipient_email,omitempty"`
	RecipientAddress string             `json:"recipient_address,omitempty"`
	DeliveryDate     string             `json:"delivery_date"`
	Message          string             `json:"message"`
	Attachment       *AttachmentRequest `json:"attachment,omitempty"`
	CoverChoice      string             `json:"cover_choice,omitempty"`
	UploadedCover    string             `json:"uploaded_cover,omitempty"`
}

// AttachmentRequest is an inline media file.
type AttachmentRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Data string `json:"data"`
}

// ListRequest represents the arguments for capsule_list.
type ListRequest struct {
	Method  string `json:"method,omitempty"`
	Sealed  *bool  `json:"sealed,omitempty"`
	DueOnly bool   `json:"due_only,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for capsule_fetch.
type FetchRequest struct {
	ID                string `json:"id"`
	IncludeAttachment *bool  `json:"include_attachment,omitempty"`
}

// UpdateRequest represents the arguments for capsule_update.
type UpdateRequest struct {
	ID            string  `json:"id"`
	RecipientName *string `json:"recipient_name,omitempty"`
	Message       *string `json:"message,omitempty"`
}

// IDRequest carries a capsule id for capsule_seal and capsule_delete.
type IDRequest struct {
	ID string `json:"id"`
}

// TokenRequest carries a confirmation token.
type TokenRequest struct {
	Token string `json:"token"`
}

// ExportRequest represents the arguments for capsule_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for capsule_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// PlanRequest represents the arguments for plan_set.
type PlanRequest struct {
	Plan string `json:"plan"`
}

// GenerateRequest represents the arguments for message_generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// Handler implementations

// HandleCreate handles the capsule_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var file *capsule.AttachmentFile
	if input.Attachment != nil {
		data, err := base64.StdEncoding.DecodeString(input.Attachment.Data)
		if err != nil {
			return errorResult(errors.NewInvalidRequest("attachment data is not valid base64")), nil
		}
		file = attachment.FromBytes(input.Attachment.Name, input.Attachment.Type, data)
	}

	result, err := h.builder.Create(ctx, ops.CreateInput{
		Method:           input.Method,
		RecipientName:    input.RecipientName,
		RecipientEmail:   input.RecipientEmail,
		RecipientAddress: input.RecipientAddress,
		DeliveryDate:     input.DeliveryDate,
		Message:          input.Message,
		Attachment:       file,
		CoverChoice:      input.CoverChoice,
		UploadedCover:    input.UploadedCover,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the capsule_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.store, ops.ListInput{
		Method:  input.Method,
		Sealed:  input.Sealed,
		DueOnly: input.DueOnly,
		Limit:   input.Limit,
		Offset:  input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the capsule_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(h.store, ops.FetchInput{
		ID:                input.ID,
		IncludeAttachment: input.IncludeAttachment,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the capsule_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Update(ctx, h.store, ops.UpdateInput{
		ID:            input.ID,
		RecipientName: input.RecipientName,
		Message:       input.Message,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSeal handles the capsule_seal tool call. It only issues a token.
func (h *Handlers) HandleSeal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RequestSeal(h.store, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the capsule_delete tool call. It only issues a token.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RequestDelete(h.store, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleConfirm handles the capsule_confirm tool call.
func (h *Handlers) HandleConfirm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TokenRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Confirm(ctx, h.store, input.Token)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCancel handles the capsule_cancel tool call.
func (h *Handlers) HandleCancel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TokenRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	return successResult(ops.Cancel(h.store, input.Token))
}

// HandleExport handles the capsule_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.store, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the capsule_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	mode := ops.ImportModeError
	if input.Mode == "skip" {
		mode = ops.ImportModeSkip
	}

	result, err := ops.Import(ctx, h.store, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: mode,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePlanGet handles the plan_get tool call.
func (h *Handlers) HandlePlanGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.GetPlan(ctx, h.store))
}

// HandlePlanSet handles the plan_set tool call.
func (h *Handlers) HandlePlanSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlanRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SetPlan(ctx, h.store, input.Plan)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGenerate handles the message_generate tool call.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GenerateMessage(ctx, h.gen, h.logger, ops.GenerateMessageInput{Prompt: input.Prompt})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	te := errors.As(err)
	errorObj := map[string]any{
		"code":    te.Code,
		"message": "an internal error occurred",
		"status":  te.Status,
	}
	if te.Code != errors.ErrInternal {
		// Keep wrapper context such as "line 3: ..."
		errorObj["message"] = te.Message
		if full := err.Error(); full != te.Error() {
			errorObj["message"] = full
		}
		if te.Details != nil {
			errorObj["details"] = te.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
