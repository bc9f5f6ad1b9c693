package web

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/medley/internal/config"
	"github.com/hpungsan/medley/internal/engine"
	"github.com/hpungsan/medley/internal/errors"
	"github.com/hpungsan/medley/internal/note"
	"github.com/hpungsan/medley/internal/player"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	eng      *engine.Engine
	player   *player.Player
	cfg      *config.Config
	renderer *Renderer
}

// HandlePlayer handles GET /player — the playback page for the active
// category.
func (h *Handlers) HandlePlayer(w http.ResponseWriter, r *http.Request) {
	st := h.player.Status()

	var rendered template.HTML
	if st.Current != nil && st.Current.Content != "" {
		rendered = renderMarkdown(st.Current.Content)
	}

	h.renderer.renderPage(w, r, "player", PlayerPageData{
		PageData: PageData{
			Title:   "Player",
			Version: h.renderer.version,
			Nav:     "player",
		},
		Status:          st,
		RenderedContent: rendered,
	})
}

// HandleWindow handles GET /windows/{category} — list one derived window.
func (h *Handlers) HandleWindow(w http.ResponseWriter, r *http.Request) {
	cat, ok := note.ParseCategory(r.PathValue("category"))
	if !ok {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("unknown category: "+r.PathValue("category")))
		return
	}

	window, err := h.player.Window(cat)
	if err != nil && !errors.Is(err, errors.ErrEmptyWindow) {
		h.renderer.renderError(w, r, err)
		return
	}

	st := h.player.Status()
	index := -1
	if st.Category == cat {
		index = st.Index
	}

	h.renderer.renderPage(w, r, "window", WindowPageData{
		PageData: PageData{
			Title:   titleCase(string(cat)),
			Version: h.renderer.version,
			Nav:     string(cat),
		},
		Category: cat,
		Notes:    window,
		Index:    index,
	})
}

// HandleAdvance handles POST /player/advance.
func (h *Handlers) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	if _, err := h.player.Advance(); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.afterControl(w, r)
}

// HandlePrevious handles POST /player/previous.
func (h *Handlers) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	if _, err := h.player.Previous(); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.afterControl(w, r)
}

// HandleSelect handles POST /player/select with form fields "index" and an
// optional "category". The window pages post the category of the list the
// item was clicked in, so selecting there also switches to that category
// instead of jumping the index of whatever is currently active.
func (h *Handlers) HandleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.FormValue("index"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("index must be an integer"))
		return
	}
	if v := r.FormValue("category"); v != "" {
		cat, ok := note.ParseCategory(v)
		if !ok {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("unknown category: "+v))
			return
		}
		if _, err := h.player.SwitchCategory(cat); err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
	}
	if _, err := h.player.SelectIndex(index); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.afterControl(w, r)
}

// HandleSwitch handles POST /player/switch with form field "category".
func (h *Handlers) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	cat, ok := note.ParseCategory(r.FormValue("category"))
	if !ok {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("unknown category: "+r.FormValue("category")))
		return
	}
	if _, err := h.player.SwitchCategory(cat); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.afterControl(w, r)
}

// HandlePlay handles POST /player/play.
func (h *Handlers) HandlePlay(w http.ResponseWriter, r *http.Request) {
	if err := h.player.Play(); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.afterControl(w, r)
}

// HandlePause handles POST /player/pause.
func (h *Handlers) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.player.Pause()
	h.afterControl(w, r)
}

// HandleSetFilters handles POST /filters. Authors arrive comma-separated;
// tags arrive one per line as "name=value1,value2".
func (h *Handlers) HandleSetFilters(w http.ResponseWriter, r *http.Request) {
	authors := splitCSV(r.FormValue("authors"))
	tags, err := parseTagLines(r.FormValue("tags"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if err := h.eng.SetFilters(authors, tags); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.afterControl(w, r)
}

// HandleAPIStatus handles GET /api/player — the JSON status surface used
// by the frontend poller.
func (h *Handlers) HandleAPIStatus(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, h.player.Status())
}

// afterControl finishes a control action: htmx callers get the refreshed
// player fragment, JSON callers get the status, browsers get a redirect.
func (h *Handlers) afterControl(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		h.HandlePlayer(w, r)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, h.player.Status())
		return
	}
	http.Redirect(w, r, "/player", http.StatusSeeOther)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// splitCSV splits a comma-separated value list, trimming whitespace and
// dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseTagLines parses newline-separated "name=value1,value2" tag filters.
func parseTagLines(s string) (map[string][]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	tags := make(map[string][]string)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, values, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.NewInvalidRequest("tag filters must be name=value1,value2 per line")
		}
		parsed := splitCSV(values)
		if len(parsed) == 0 {
			return nil, errors.NewInvalidRequest("tag filter " + name + " has no values")
		}
		tags[name] = parsed
	}
	return tags, nil
}
