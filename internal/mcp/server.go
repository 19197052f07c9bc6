// Package mcp exposes a read-only tool surface over the capture database via
// the Model Context Protocol on stdio. Tools only query; the batching writer
// in a collector process remains the sole mutator.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/quietloop/deskwatch/internal/store"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"activity_summary": {
		def:     summaryToolDef(),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummary },
	},
	"session_list": {
		def:     sessionListToolDef(),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionList },
	},
	"application_list": {
		def:     applicationListToolDef(),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleApplicationList },
	},
}

func summaryToolDef() mcp.Tool {
	return mcp.NewTool("activity_summary",
		mcp.WithDescription("Aggregate clicks, moves, switches, and keypress rates across all capture sessions."),
		mcp.WithNumber("top_app_limit",
			mcp.Description("Maximum entries in the clicks-per-application ranking (default 10)."),
		),
	)
}

func sessionListToolDef() mcp.Tool {
	return mcp.NewTool("session_list",
		mcp.WithDescription("List capture sessions, most recent first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum sessions to return (default 50)."),
		),
	)
}

func applicationListToolDef() mcp.Tool {
	return mcp.NewTool("application_list",
		mcp.WithDescription("List observed applications ordered by first sighting."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum applications to return (default 200)."),
		),
	)
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// NewServer creates a new MCP server with deskwatch tools registered.
func NewServer(st *store.Store, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"deskwatch",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(st)
	for _, entry := range toolRegistry {
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run starts the MCP server using stdio transport.
func Run(st *store.Store, version string) error {
	return server.ServeStdio(NewServer(st, version))
}
