package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/medley/internal/config"
	"github.com/hpungsan/medley/internal/engine"
	"github.com/hpungsan/medley/internal/player"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"player_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"player_window": {
		def:     windowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWindow },
	},
	"player_advance": {
		def:     advanceToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdvance },
	},
	"player_previous": {
		def:     previousToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePrevious },
	},
	"player_select": {
		def:     selectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSelect },
	},
	"player_switch": {
		def:     switchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSwitch },
	},
	"player_play": {
		def:     playToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlay },
	},
	"player_pause": {
		def:     pauseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePause },
	},
	"filter_set": {
		def:     setFiltersToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSetFilters },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
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

// NewServer creates a new MCP server with Medley tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(eng *engine.Engine, pl *player.Player, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"medley",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(eng, pl)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
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

// Run starts the MCP server using stdio transport.
func Run(eng *engine.Engine, pl *player.Player, cfg *config.Config, version string) error {
	s := NewServer(eng, pl, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
