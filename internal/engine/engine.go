// Package engine orchestrates the ingestion pipeline: it subscribes to the
// event source, classifies and merges incoming events into the canonical
// note set, persists the set through the cache, and feeds derived windows
// to the player. A filter-generation counter fences off late results from
// cancelled subscriptions.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/hpungsan/medley/internal/cache"
	"github.com/hpungsan/medley/internal/classify"
	"github.com/hpungsan/medley/internal/config"
	"github.com/hpungsan/medley/internal/errors"
	"github.com/hpungsan/medley/internal/merge"
	"github.com/hpungsan/medley/internal/note"
	"github.com/hpungsan/medley/internal/player"
	"github.com/hpungsan/medley/internal/playlist"
	"github.com/hpungsan/medley/internal/source"
)

// fetchOlderTimeout bounds one-shot pagination queries against the source.
const fetchOlderTimeout = 30 * time.Second

// Engine ties the source, cache, and player together. All canonical-set
// mutation is serialized through one mutex.
type Engine struct {
	cfg    *config.Config
	src    source.Source
	stores *cache.Manager
	player *player.Player
	logger *log.Logger

	mu         sync.Mutex
	generation int64
	baseCtx    context.Context
	cancel     context.CancelFunc
	canonical  map[string]note.Note
	authors    []string
	tags       map[string][]string

	// degraded is set after the first failed store operation so that a
	// broken cache is logged once, not once per event.
	degraded bool

	// publishMu serializes snapshot publication to the store and player.
	// publishSeq (under mu) stamps each snapshot; published (under
	// publishMu) records the newest stamp handed out, so a snapshot that
	// lost the race to a newer one is dropped instead of reverting state.
	publishMu  sync.Mutex
	publishSeq int64
	published  int64

	cron *cron.Cron
}

// New creates an Engine. The player's canonical set is fed by the engine;
// callers wire the player's older-fetch callback to FetchOlder.
func New(cfg *config.Config, src source.Source, stores *cache.Manager, pl *player.Player, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		cfg:       cfg,
		src:       src,
		stores:    stores,
		player:    pl,
		logger:    logger,
		baseCtx:   context.Background(),
		canonical: make(map[string]note.Note),
		authors:   cfg.Authors,
		tags:      cfg.Tags,
	}
}

// Start hydrates the canonical set from the cache, opens the live
// subscription for the configured filters, and schedules the periodic
// refresh and compaction jobs. It returns once the pipeline is running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()

	e.hydrate()

	if err := e.SetFilters(e.cfg.Authors, e.cfg.Tags); err != nil {
		return err
	}

	mins := e.cfg.RefreshIntervalMins
	if mins > 0 {
		e.cron = cron.New()
		spec := fmt.Sprintf("@every %dm", mins)
		if _, err := e.cron.AddFunc(spec, e.refresh); err != nil {
			return errors.NewInternal(err)
		}
		if _, err := e.cron.AddFunc(spec, e.compact); err != nil {
			return errors.NewInternal(err)
		}
		e.cron.Start()
	}
	return nil
}

// Stop cancels the live subscription and the periodic jobs.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.cron != nil {
		e.cron.Stop()
	}
}

// hydrate seeds the canonical set from the persisted cache so windows are
// usable before the first live event arrives. A broken store degrades to
// live-fetch-only mode.
func (e *Engine) hydrate() {
	store, err := e.stores.Acquire()
	if err != nil {
		e.degrade("cache unavailable, starting from live queries only", err)
		return
	}

	cached, err := store.GetAll(e.cfg.CacheCapacity)
	if err != nil {
		e.degrade("cache read failed, starting from live queries only", err)
		e.stores.Invalidate()
		return
	}
	if len(cached) == 0 {
		return
	}

	e.mu.Lock()
	e.canonical = merge.Merge(e.canonical, cached)
	sorted := merge.Sorted(e.canonical)
	e.mu.Unlock()

	e.player.SetCanonical(sorted)
	e.logger.Info("hydrated canonical set from cache", "notes", len(cached))
}

// SetFilters replaces the author/tag filter set. The previous subscription
// is cancelled, the canonical set and windows are cleared, and a new
// generation of queries is opened; results still in flight from the old
// generation are dropped when they arrive. The new subscription lives until
// the engine stops or the filters change again, not for the lifetime of
// whichever request triggered the change.
func (e *Engine) SetFilters(authors []string, tags map[string][]string) error {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	gen := e.generation
	e.authors = authors
	e.tags = tags
	e.canonical = make(map[string]note.Note)

	subCtx, cancel := context.WithCancel(e.baseCtx)
	e.cancel = cancel
	e.mu.Unlock()

	e.player.Reset()

	filters := buildFilters(authors, tags, e.cfg.CacheCapacity, nil)
	events, err := e.src.Subscribe(subCtx, filters)
	if err != nil {
		return err
	}

	e.logger.Info("filter set replaced", "generation", gen,
		"authors", len(authors), "tags", len(tags))
	go e.ingest(gen, events)
	return nil
}

// FetchOlder issues a one-shot bounded query for notes older than the
// oldest currently known, feeding results into the current generation.
// Called by the player when a window is exhausted.
func (e *Engine) FetchOlder(cat note.Category) {
	e.mu.Lock()
	gen := e.generation
	authors, tags := e.authors, e.tags
	oldest, ok := playlist.OldestCreatedAt(merge.Sorted(e.canonical))
	e.mu.Unlock()

	if !ok {
		return
	}
	until := oldest - 1

	ctx, cancel := context.WithTimeout(context.Background(), fetchOlderTimeout)
	defer cancel()

	filters := buildFilters(authors, tags, e.cfg.CacheCapacity, &until)
	events, err := e.src.Subscribe(ctx, filters)
	if err != nil {
		e.logger.Warn("older fetch failed", "category", cat, "err", err)
		return
	}

	e.logger.Debug("fetching older notes", "category", cat, "until", until)
	for ev := range events {
		if err := e.apply(gen, ev); err != nil {
			if errors.Is(err, errors.ErrStaleResult) {
				return
			}
		}
	}
}

// ingest drains one subscription's event stream into the merge pipeline.
// Exits when the stream closes or its generation goes stale.
func (e *Engine) ingest(gen int64, events <-chan source.Event) {
	for ev := range events {
		if err := e.apply(gen, ev); err != nil {
			if errors.Is(err, errors.ErrStaleResult) {
				e.logger.Debug("dropping stale subscription", "generation", gen)
				return
			}
		}
	}
}

// apply classifies one event and merges it into the canonical set,
// persisting the result and rebuilding the player's windows. Events tagged
// with a superseded generation are rejected.
func (e *Engine) apply(gen int64, ev source.Event) error {
	n := classify.Classify(ev)
	if n.ID == "" {
		return nil
	}

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return errors.NewStaleResult(gen)
	}

	if incumbent, ok := e.canonical[n.ID]; ok && !merge.Outranks(n, incumbent) {
		// Duplicate delivery that changes nothing; skip the rebuild.
		e.mu.Unlock()
		return nil
	}
	e.canonical = merge.Merge(e.canonical, []note.Note{n})
	e.pruneLocked()
	sorted := merge.Sorted(e.canonical)
	e.publishSeq++
	seq := e.publishSeq
	e.mu.Unlock()

	e.publish(seq, sorted)
	return nil
}

// publish hands a canonical snapshot to the store and the player. Concurrent
// appliers (live ingest plus an older-fetch) may race here with snapshots
// produced in order but arriving out of it; stale ones are dropped.
func (e *Engine) publish(seq int64, notes []note.Note) {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	if seq <= e.published {
		return
	}
	e.published = seq

	e.persist(notes)
	e.player.SetCanonical(notes)
}

// pruneLocked keeps the in-memory canonical set within cache capacity by
// dropping the oldest entries, mirroring the store's eviction policy.
func (e *Engine) pruneLocked() {
	capacity := e.cfg.CacheCapacity
	if capacity <= 0 || len(e.canonical) <= capacity {
		return
	}
	sorted := merge.Sorted(e.canonical)
	for _, n := range sorted[capacity:] {
		delete(e.canonical, n.ID)
	}
}

// persist writes the canonical set through the cache, degrading quietly
// when the store is down.
func (e *Engine) persist(notes []note.Note) {
	store, err := e.stores.Acquire()
	if err != nil {
		e.degrade("cache unavailable, running without persistence", err)
		return
	}
	if err := store.Put(notes); err != nil {
		e.degrade("cache write failed, running without persistence", err)
		e.stores.Invalidate()
		return
	}

	e.mu.Lock()
	e.degraded = false
	e.mu.Unlock()
}

// degrade logs a store failure once per outage rather than once per event.
func (e *Engine) degrade(msg string, err error) {
	e.mu.Lock()
	already := e.degraded
	e.degraded = true
	e.mu.Unlock()

	if !already {
		e.logger.Error(msg, "err", err)
	}
}

// refresh replaces the live subscription under the current generation.
// Subscriptions that died with their relay connection are re-issued, and
// relays that were down at startup get re-dialed through the pool. Unlike
// a filter change, the canonical set and the player's windows, indices,
// and playback state are untouched; new results merge into what is
// already there.
func (e *Engine) refresh() {
	e.mu.Lock()
	gen := e.generation
	authors, tags := e.authors, e.tags
	if e.cancel != nil {
		e.cancel()
	}
	subCtx, cancel := context.WithCancel(e.baseCtx)
	e.cancel = cancel
	e.mu.Unlock()

	filters := buildFilters(authors, tags, e.cfg.CacheCapacity, nil)
	events, err := e.src.Subscribe(subCtx, filters)
	if err != nil {
		e.logger.Warn("periodic refresh failed", "err", err)
		return
	}

	e.logger.Debug("live subscription refreshed", "generation", gen)
	go e.ingest(gen, events)
}

// compact trims the persisted cache down to capacity.
func (e *Engine) compact() {
	store, err := e.stores.Acquire()
	if err != nil {
		e.degrade("cache unavailable, skipping compaction", err)
		return
	}
	evicted, err := store.Compact(e.cfg.CacheCapacity)
	if err != nil {
		e.logger.Warn("compaction failed", "err", err)
		return
	}
	if evicted > 0 {
		e.logger.Info("compacted cache", "evicted", evicted)
	}
}

// Generation returns the current filter generation. Exposed for status
// surfaces.
func (e *Engine) Generation() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// liveKinds are the event kinds the engine subscribes to.
var liveKinds = []int{
	classify.KindText,
	classify.KindPicture,
	classify.KindVideo,
	classify.KindShortVideo,
}

// buildFilters produces one filter per query axis: one by-author and one
// per tag name. With no authors and no tags a single unfiltered query is
// issued. Queries run concurrently and overlap; the merge step dedupes.
func buildFilters(authors []string, tags map[string][]string, limit int, until *int64) []source.Filter {
	base := source.Filter{Kinds: liveKinds, Limit: limit, Until: until}

	var filters []source.Filter
	if len(authors) > 0 {
		f := base
		f.Authors = authors
		filters = append(filters, f)
	}
	for name, values := range tags {
		if len(values) == 0 {
			continue
		}
		f := base
		f.Tags = map[string][]string{name: values}
		filters = append(filters, f)
	}
	if len(filters) == 0 {
		filters = append(filters, base)
	}
	return filters
}
