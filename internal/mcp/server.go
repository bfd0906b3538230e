package mcp

import (
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/timeless/internal/config"
	"github.com/hpungsan/timeless/internal/gateway"
	"github.com/hpungsan/timeless/internal/ops"
	"github.com/hpungsan/timeless/internal/store"
)

// Deps are the services exposed as MCP tools.
type Deps struct {
	Store     *store.Store
	Builder   *ops.Builder
	Generator gateway.Generator
	Config    *config.Config
	Logger    *slog.Logger
	Version   string
}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"capsule_create": {
		def:     createToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate },
	},
	"capsule_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"capsule_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"capsule_update": {
		def:     updateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"capsule_seal": {
		def:     sealToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSeal },
	},
	"capsule_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"capsule_confirm": {
		def:     confirmToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConfirm },
	},
	"capsule_cancel": {
		def:     cancelToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCancel },
	},
	"capsule_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"capsule_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"plan_get": {
		def:     planGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanGet },
	},
	"plan_set": {
		def:     planSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanSet },
	},
	"message_generate": {
		def:     generateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGenerate },
	},
}

// AllToolNames returns every registrable tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with Timeless tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"timeless",
		deps.Version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool, len(h.cfg.DisabledTools))
	for _, name := range h.cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the tools over stdio until stdin closes.
func Run(deps Deps) error {
	return server.ServeStdio(NewServer(deps))
}
