package mcp

import "github.com/mark3labs/mcp-go/mcp"

var createToolDef = mcp.NewTool("capsule_create",
	mcp.WithDescription("Create a time capsule. Digital capsules are emailed on the delivery date and may carry one media attachment. "+
		"Physical capsules are letters with a cover image, either AI generated or uploaded. The delivery date must be after today."),
	mcp.WithString("method", mcp.Required(), mcp.Enum("digital", "physical"),
		mcp.Description("Delivery method")),
	mcp.WithString("recipient_name", mcp.Required(), mcp.Description("Who the capsule is for")),
	mcp.WithString("recipient_email", mcp.Description("Recipient email; required for digital")),
	mcp.WithString("recipient_address", mcp.Description("Postal address; required for physical")),
	mcp.WithString("delivery_date", mcp.Required(), mcp.Description("Opening date, YYYY-MM-DD")),
	mcp.WithString("message", mcp.Required(), mcp.Description("The capsule message (markdown)")),
	mcp.WithObject("attachment",
		mcp.Description("Digital only: media file with base64 content"),
		mcp.Properties(map[string]any{
			"name": map[string]any{"type": "string"},
			"type": map[string]any{"type": "string", "description": "MIME type; sniffed when empty"},
			"data": map[string]any{"type": "string", "description": "Standard base64"},
		}),
	),
	mcp.WithString("cover_choice", mcp.Enum("ai", "upload"),
		mcp.Description("Physical only: cover source (default ai)")),
	mcp.WithString("uploaded_cover", mcp.Description("Physical only: image data: URL used when cover_choice is upload")),
)

var listToolDef = mcp.NewTool("capsule_list",
	mcp.WithDescription("List capsule summaries ordered by delivery date, earliest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("method", mcp.Enum("digital", "physical"), mcp.Description("Filter by delivery method")),
	mcp.WithBoolean("sealed", mcp.Description("Filter by seal state")),
	mcp.WithBoolean("due_only", mcp.Description("Only capsules whose delivery date has passed")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 50, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var fetchToolDef = mcp.NewTool("capsule_fetch",
	mcp.WithDescription("Fetch one capsule by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
	mcp.WithBoolean("include_attachment", mcp.Description("Include attachment content (default true)")),
)

var updateToolDef = mcp.NewTool("capsule_update",
	mcp.WithDescription("Edit the recipient name or message of an unsealed capsule."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
	mcp.WithString("recipient_name", mcp.Description("New recipient name")),
	mcp.WithString("message", mcp.Description("New message")),
)

var sealToolDef = mcp.NewTool("capsule_seal",
	mcp.WithDescription("Request sealing a capsule. Sealing is permanent. Returns a token; "+
		"ask the user, then call capsule_confirm with it (or capsule_cancel)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
)

var deleteToolDef = mcp.NewTool("capsule_delete",
	mcp.WithDescription("Request deleting a capsule. Returns a token; "+
		"ask the user, then call capsule_confirm with it (or capsule_cancel)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
)

var confirmToolDef = mcp.NewTool("capsule_confirm",
	mcp.WithDescription("Execute a pending seal or delete. Tokens are single use and expire."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("token", mcp.Required(), mcp.Description("Token from capsule_seal or capsule_delete")),
)

var cancelToolDef = mcp.NewTool("capsule_cancel",
	mcp.WithDescription("Discard a pending seal or delete."),
	mcp.WithString("token", mcp.Required(), mcp.Description("Token from capsule_seal or capsule_delete")),
)

var exportToolDef = mcp.NewTool("capsule_export",
	mcp.WithDescription("Export all capsules to a JSONL file (default under ~/.timeless/exports)."),
	mcp.WithString("path", mcp.Description("Output file path")),
)

var importToolDef = mcp.NewTool("capsule_import",
	mcp.WithDescription("Import capsules from a JSONL export. Mode error imports nothing if any record is bad; skip imports the good ones."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Export file path")),
	mcp.WithString("mode", mcp.Enum("error", "skip"), mcp.Description("Conflict handling (default error)")),
)

var planGetToolDef = mcp.NewTool("plan_get",
	mcp.WithDescription("Show the current plan and letter price."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var planSetToolDef = mcp.NewTool("plan_set",
	mcp.WithDescription("Change the plan tier."),
	mcp.WithString("plan", mcp.Required(), mcp.Enum("starter", "plus", "legacy")),
)

var generateToolDef = mcp.NewTool("message_generate",
	mcp.WithDescription("Draft a heartfelt capsule message from a short prompt. Falls back to a notice when generation is unavailable."),
	mcp.WithString("prompt", mcp.Required(), mcp.Description("What the message should be about")),
)
