package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions. Names follow the "type_action" pattern so entire
// surfaces can be disabled by prefix in config.

var statusToolDef = mcp.NewTool("player_status",
	mcp.WithDescription("Get the playback state, active category, current note, and preload URL."),
)

var windowToolDef = mcp.NewTool("player_window",
	mcp.WithDescription("List the derived playlist window for a category."),
	mcp.WithString("category",
		mcp.Required(),
		mcp.Description("Playlist category: images, videos, or podcasts."),
		mcp.Enum("images", "videos", "podcasts"),
	),
)

var advanceToolDef = mcp.NewTool("player_advance",
	mcp.WithDescription("Advance to the next item in the active window. Past the end, the window reshuffles (images), grows (videos), or requests older notes."),
)

var previousToolDef = mcp.NewTool("player_previous",
	mcp.WithDescription("Move back one item in the active window."),
)

var selectToolDef = mcp.NewTool("player_select",
	mcp.WithDescription("Jump to a specific index in the active window."),
	mcp.WithNumber("index",
		mcp.Required(),
		mcp.Description("Zero-based index within the active window."),
	),
)

var switchToolDef = mcp.NewTool("player_switch",
	mcp.WithDescription("Switch the active category. The previous category keeps its position."),
	mcp.WithString("category",
		mcp.Required(),
		mcp.Description("Playlist category: images, videos, or podcasts."),
		mcp.Enum("images", "videos", "podcasts"),
	),
)

var playToolDef = mcp.NewTool("player_play",
	mcp.WithDescription("Start playback of the active category."),
)

var pauseToolDef = mcp.NewTool("player_pause",
	mcp.WithDescription("Pause timer-driven advancement. Manual navigation still works."),
)

var setFiltersToolDef = mcp.NewTool("filter_set",
	mcp.WithDescription("Replace the author/tag filter set. Cancels in-flight queries, clears the canonical set, and resubscribes."),
	mcp.WithArray("authors",
		mcp.Description("Author identities to follow. Empty means no author filter."),
		mcp.WithStringItems(),
	),
	mcp.WithObject("tags",
		mcp.Description("Tag filters: tag name to accepted values, e.g. {\"t\": [\"music\"]}."),
	),
)
