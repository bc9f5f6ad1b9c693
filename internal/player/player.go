// Package player is the display scheduler: it owns the per-category window
// state, the playback state machine, and timer-driven slideshow advancement.
// All mutation goes through one mutex so readers never observe a window
// mid-rebuild.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hpungsan/medley/internal/errors"
	"github.com/hpungsan/medley/internal/note"
	"github.com/hpungsan/medley/internal/playlist"
)

// State is the playback state of the active category.
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Options configures a Player.
type Options struct {
	// ImageWindowSize is the size of the randomized image sample.
	ImageWindowSize int

	// VideoInitialWindow and VideoGrowStep control video window growth.
	VideoInitialWindow int
	VideoGrowStep      int

	// AdvanceInterval is the slideshow auto-advance period.
	AdvanceInterval time.Duration

	// Autoplay starts playback as soon as a window becomes non-empty.
	Autoplay bool

	// RequestOlder is called when a window is exhausted and the canonical
	// set cannot supply more. It must not block; the player invokes it on
	// its own goroutine. May be nil.
	RequestOlder func(cat note.Category)

	// Seed produces shuffle seeds for the image sample. Nil means the
	// clock; tests pin it.
	Seed func() int64

	Logger *log.Logger
}

type windowState struct {
	items []note.Note
	index int
}

// Player mediates between the canonical note set and the presentation
// boundary. Windows for inactive categories keep their index across
// category switches.
type Player struct {
	mu sync.Mutex

	opts   Options
	logger *log.Logger

	canonical []note.Note
	category  note.Category
	state     State
	windows   map[note.Category]*windowState
}

// Status is a point-in-time snapshot of the scheduler for the presentation
// boundary.
type Status struct {
	State      State          `json:"state"`
	Category   note.Category  `json:"category"`
	Index      int            `json:"index"`
	WindowSize int            `json:"window_size"`
	Current    *note.Note     `json:"current,omitempty"`
	PreloadURL string         `json:"preload_url,omitempty"`
	Counts     map[string]int `json:"counts"`
}

// New creates an idle Player with empty windows, active on the images
// category.
func New(opts Options) *Player {
	if opts.Seed == nil {
		opts.Seed = func() int64 { return time.Now().UnixNano() }
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Player{
		opts:     opts,
		logger:   opts.Logger,
		category: note.CategoryImages,
		state:    StateIdle,
		windows: map[note.Category]*windowState{
			note.CategoryImages:   {},
			note.CategoryVideos:   {},
			note.CategoryPodcasts: {},
		},
	}
}

// SetCanonical replaces the canonical set and re-derives every window.
// Image windows draw a fresh sample; video windows keep already-displayed
// entries in place; podcast windows are fully re-sorted. Indices are
// clamped, never reset, so playback position survives background updates.
func (p *Player) SetCanonical(canonical []note.Note) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.canonical = canonical

	img := p.windows[note.CategoryImages]
	img.items = playlist.DeriveImages(canonical, p.opts.ImageWindowSize, p.opts.Seed())
	img.index = 0

	vid := p.windows[note.CategoryVideos]
	vid.items = playlist.DeriveVideos(canonical, vid.items, p.opts.VideoInitialWindow, 0)
	clamp(vid)

	pod := p.windows[note.CategoryPodcasts]
	pod.items = playlist.DerivePodcasts(canonical)
	clamp(pod)

	if p.state == StateIdle && p.opts.Autoplay && len(p.windows[p.category].items) > 0 {
		p.state = StatePlaying
	}
}

// Reset clears the canonical set and all windows and returns the player to
// Idle. Used when the filter set changes.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.canonical = nil
	for _, w := range p.windows {
		w.items = nil
		w.index = 0
	}
	p.state = StateIdle
}

// Status returns a snapshot of the active category.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

func (p *Player) statusLocked() Status {
	w := p.windows[p.category]
	st := Status{
		State:      p.state,
		Category:   p.category,
		Index:      w.index,
		WindowSize: len(w.items),
		Counts: map[string]int{
			string(note.CategoryImages):   len(p.windows[note.CategoryImages].items),
			string(note.CategoryVideos):   len(p.windows[note.CategoryVideos].items),
			string(note.CategoryPodcasts): len(p.windows[note.CategoryPodcasts].items),
		},
	}
	if w.index < len(w.items) {
		n := w.items[w.index]
		st.Current = &n
	}
	if p.category == note.CategoryVideos && w.index+1 < len(w.items) {
		st.PreloadURL = w.items[w.index+1].URL
	}
	return st
}

// Window returns a copy of the derived window for a category.
func (p *Player) Window(cat note.Category) ([]note.Note, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.windows[cat]
	if !ok {
		return nil, errors.NewInvalidRequest("unknown category: " + string(cat))
	}
	if len(w.items) == 0 {
		return nil, errors.NewEmptyWindow(string(cat))
	}
	out := make([]note.Note, len(w.items))
	copy(out, w.items)
	return out, nil
}

// Current returns the active note of the active category.
func (p *Player) Current() (note.Note, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.windows[p.category]
	if w.index >= len(w.items) {
		return note.Note{}, errors.NewEmptyWindow(string(p.category))
	}
	return w.items[w.index], nil
}

// Play starts playback if the active window is non-empty.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.windows[p.category].items) == 0 {
		return errors.NewEmptyWindow(string(p.category))
	}
	p.state = StatePlaying
	return nil
}

// Pause suspends timer-driven advancement. Manual advancement still works.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying {
		p.state = StatePaused
	}
}

// Advance moves the active index forward. Past the end of the window it
// takes the category's refill path (reshuffle, grow, or fetch-older) and
// loops to 0 only when no further data is obtainable.
func (p *Player) Advance() (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.windows[p.category]
	if len(w.items) == 0 {
		return p.statusLocked(), errors.NewEmptyWindow(string(p.category))
	}

	if w.index+1 < len(w.items) {
		w.index++
		return p.statusLocked(), nil
	}

	switch p.category {
	case note.CategoryImages:
		p.refillImagesLocked(w)
	case note.CategoryVideos:
		p.growVideosLocked(w)
	case note.CategoryPodcasts:
		p.fetchOlderLocked()
		w.index = 0
	}
	return p.statusLocked(), nil
}

// Previous moves the active index back, stopping at 0.
func (p *Player) Previous() (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.windows[p.category]
	if len(w.items) == 0 {
		return p.statusLocked(), errors.NewEmptyWindow(string(p.category))
	}
	if w.index > 0 {
		w.index--
	}
	return p.statusLocked(), nil
}

// SelectIndex jumps directly to an index within the active window.
func (p *Player) SelectIndex(i int) (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.windows[p.category]
	if i < 0 || i >= len(w.items) {
		return p.statusLocked(), errors.NewInvalidRequest("index out of range")
	}
	w.index = i
	return p.statusLocked(), nil
}

// SwitchCategory changes the active category. The previous category's
// index is preserved for when it becomes active again.
func (p *Player) SwitchCategory(cat note.Category) (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.windows[cat]; !ok {
		return p.statusLocked(), errors.NewInvalidRequest("unknown category: " + string(cat))
	}
	p.category = cat
	if len(p.windows[cat].items) == 0 {
		p.state = StateIdle
	} else if p.state == StateIdle && p.opts.Autoplay {
		p.state = StatePlaying
	}
	return p.statusLocked(), nil
}

// Run drives timer-based slideshow advancement until ctx is cancelled.
// Only the images category auto-advances; videos and podcasts move on
// end-of-media signals from the consumer.
func (p *Player) Run(ctx context.Context) {
	interval := p.opts.AdvanceInterval
	if interval <= 0 {
		interval = 8 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Player) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying || p.category != note.CategoryImages {
		return
	}
	w := p.windows[note.CategoryImages]
	if len(w.items) == 0 {
		return
	}
	if w.index+1 < len(w.items) {
		w.index++
		return
	}
	p.refillImagesLocked(w)
}

// refillImagesLocked draws a fresh sample and restarts from 0. When the
// canonical set has no more images than the sample can hold, an older
// fetch is requested so the next reshuffle has new material.
func (p *Player) refillImagesLocked(w *windowState) {
	eligible := playlist.Eligible(p.canonical, note.MediaImage)
	if len(eligible) <= p.opts.ImageWindowSize {
		p.fetchOlderLocked()
	}
	w.items = playlist.DeriveImages(p.canonical, p.opts.ImageWindowSize, p.opts.Seed())
	w.index = 0
}

// growVideosLocked extends the window and advances onto the first appended
// entry. When no unseen candidates remain, an older fetch is requested and
// the index loops to 0 as a last resort.
func (p *Player) growVideosLocked(w *windowState) {
	grown := playlist.DeriveVideos(p.canonical, w.items, p.opts.VideoInitialWindow, p.opts.VideoGrowStep)
	if len(grown) > len(w.items) {
		w.items = grown
		w.index++
		return
	}
	p.fetchOlderLocked()
	w.index = 0
}

func (p *Player) fetchOlderLocked() {
	if p.opts.RequestOlder == nil {
		return
	}
	cat := p.category
	p.logger.Debug("window exhausted, requesting older notes", "category", cat)
	go p.opts.RequestOlder(cat)
}

func clamp(w *windowState) {
	if len(w.items) == 0 {
		w.index = 0
		return
	}
	if w.index >= len(w.items) {
		w.index = len(w.items) - 1
	}
}
