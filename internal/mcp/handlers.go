package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/medley/internal/engine"
	"github.com/hpungsan/medley/internal/errors"
	"github.com/hpungsan/medley/internal/note"
	"github.com/hpungsan/medley/internal/player"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	eng    *engine.Engine
	player *player.Player
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine, pl *player.Player) *Handlers {
	return &Handlers{eng: eng, player: pl}
}

// Request types for each tool

// WindowRequest represents the arguments for player_window.
type WindowRequest struct {
	Category string `json:"category"`
}

// SelectRequest represents the arguments for player_select.
type SelectRequest struct {
	Index int `json:"index"`
}

// SwitchRequest represents the arguments for player_switch.
type SwitchRequest struct {
	Category string `json:"category"`
}

// SetFiltersRequest represents the arguments for filter_set.
type SetFiltersRequest struct {
	Authors []string            `json:"authors,omitempty"`
	Tags    map[string][]string `json:"tags,omitempty"`
}

// noteView is the wire shape of a note in tool results.
type noteView struct {
	ID        string  `json:"id"`
	AuthorID  string  `json:"author_id"`
	CreatedAt int64   `json:"created_at"`
	MediaType string  `json:"media_type"`
	URL       string  `json:"url,omitempty"`
	Title     *string `json:"title,omitempty"`
	Summary   *string `json:"summary,omitempty"`
	Duration  *int64  `json:"duration,omitempty"`
}

func toNoteView(n note.Note) noteView {
	return noteView{
		ID:        n.ID,
		AuthorID:  n.AuthorID,
		CreatedAt: n.CreatedAt,
		MediaType: string(n.MediaType),
		URL:       n.URL,
		Title:     n.Title,
		Summary:   n.Summary,
		Duration:  n.Duration,
	}
}

// Handler implementations

// HandleStatus handles the player_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.player.Status())
}

// HandleWindow handles the player_window tool call.
func (h *Handlers) HandleWindow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WindowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	cat, ok := note.ParseCategory(input.Category)
	if !ok {
		return errorResult(errors.NewInvalidRequest("unknown category: " + input.Category)), nil
	}

	window, err := h.player.Window(cat)
	if err != nil {
		return errorResult(err), nil
	}

	views := make([]noteView, len(window))
	for i, n := range window {
		views[i] = toNoteView(n)
	}
	return successResult(map[string]any{
		"category": cat,
		"count":    len(views),
		"notes":    views,
	})
}

// HandleAdvance handles the player_advance tool call.
func (h *Handlers) HandleAdvance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.player.Advance()
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(st)
}

// HandlePrevious handles the player_previous tool call.
func (h *Handlers) HandlePrevious(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.player.Previous()
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(st)
}

// HandleSelect handles the player_select tool call.
func (h *Handlers) HandleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SelectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	st, err := h.player.SelectIndex(input.Index)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(st)
}

// HandleSwitch handles the player_switch tool call.
func (h *Handlers) HandleSwitch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SwitchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	cat, ok := note.ParseCategory(input.Category)
	if !ok {
		return errorResult(errors.NewInvalidRequest("unknown category: " + input.Category)), nil
	}

	st, err := h.player.SwitchCategory(cat)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(st)
}

// HandlePlay handles the player_play tool call.
func (h *Handlers) HandlePlay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.player.Play(); err != nil {
		return errorResult(err), nil
	}
	return successResult(h.player.Status())
}

// HandlePause handles the player_pause tool call.
func (h *Handlers) HandlePause(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.player.Pause()
	return successResult(h.player.Status())
}

// HandleSetFilters handles the filter_set tool call.
func (h *Handlers) HandleSetFilters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetFiltersRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.eng.SetFilters(input.Authors, input.Tags); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"generation": h.eng.Generation(),
		"authors":    len(input.Authors),
		"tags":       len(input.Tags),
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if medleyErr, ok := err.(*errors.MedleyError); ok {
		errorObj := map[string]any{
			"code":    medleyErr.Code,
			"message": medleyErr.Message,
			"status":  medleyErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if medleyErr.Code != errors.ErrInternal && medleyErr.Details != nil {
			errorObj["details"] = medleyErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
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
