package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/quietloop/deskwatch/internal/analyze"
	"github.com/quietloop/deskwatch/internal/errors"
	"github.com/quietloop/deskwatch/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	st *store.Store
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *store.Store) *Handlers {
	return &Handlers{st: st}
}

// SummaryRequest represents the arguments for activity_summary.
type SummaryRequest struct {
	TopAppLimit int `json:"top_app_limit,omitempty"`
}

// SessionListRequest represents the arguments for session_list.
type SessionListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ApplicationListRequest represents the arguments for application_list.
type ApplicationListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// HandleSummary handles the activity_summary tool call.
func (h *Handlers) HandleSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := analyze.Summary(h.st.DB(), analyze.SummaryInput{
		TopAppLimit: input.TopAppLimit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSessionList handles the session_list tool call.
func (h *Handlers) HandleSessionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	sessions, err := h.st.ListSessions(input.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	return successResult(map[string]any{"sessions": sessions})
}

// HandleApplicationList handles the application_list tool call.
func (h *Handlers) HandleApplicationList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ApplicationListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	apps, err := h.st.ListApplications(input.Limit)
	if err != nil {
		return errorResult(err), nil
	}
	if apps == nil {
		apps = []store.Application{}
	}
	return successResult(map[string]any{"applications": apps})
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed to avoid leaking paths or SQL text.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if dwErr, ok := err.(*errors.Error); ok {
		errorObj := map[string]any{
			"code":    dwErr.Code,
			"message": dwErr.Message,
		}
		if dwErr.Code != errors.ErrInternal && dwErr.Details != nil {
			errorObj["details"] = dwErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
