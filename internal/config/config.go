package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// Relays is the list of event source websocket URLs.
	Relays []string `json:"relays,omitempty"`

	// Authors is the author identity filter. Empty means no author filter.
	Authors []string `json:"authors,omitempty"`

	// Tags is the tag filter (tag name to accepted values). Empty means no tag filter.
	Tags map[string][]string `json:"tags,omitempty"`

	// CacheCapacity bounds the number of notes kept in the persistent cache.
	// Oldest-by-created_at entries beyond this count are evicted.
	CacheCapacity int `json:"cache_capacity"`

	// ImageWindowSize is the size of the randomized image slideshow sample.
	ImageWindowSize int `json:"image_window_size"`

	// VideoInitialWindow is the size of the initial video window.
	VideoInitialWindow int `json:"video_initial_window"`

	// VideoGrowStep is how many videos are appended per window extension.
	VideoGrowStep int `json:"video_grow_step"`

	// AdvanceIntervalSecs is the slideshow auto-advance period in seconds.
	AdvanceIntervalSecs int `json:"advance_interval_secs"`

	// RefreshIntervalMins is the period for re-issuing live queries and
	// compacting the cache.
	RefreshIntervalMins int `json:"refresh_interval_mins"`

	// Autoplay starts playback as soon as a window becomes non-empty.
	// A pointer so an explicit "autoplay": false in the overlay can
	// override the enabled default; use AutoplayEnabled to read it.
	Autoplay *bool `json:"autoplay,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CacheCapacity:       1000,
		ImageWindowSize:     30,
		VideoInitialWindow:  10,
		VideoGrowStep:       10,
		AdvanceIntervalSecs: 8,
		RefreshIntervalMins: 10,
		Autoplay:            boolPtr(true),
	}
}

// AutoplayEnabled reports the effective autoplay setting; unset means on.
func (c *Config) AutoplayEnabled() bool {
	return c.Autoplay == nil || *c.Autoplay
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.medley.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist, return zero config
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; string arrays are merged and
// deduplicated; tag filters merge per tag name with overlay winning.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.CacheCapacity = pickInt(base.CacheCapacity, overlay.CacheCapacity)
	result.ImageWindowSize = pickInt(base.ImageWindowSize, overlay.ImageWindowSize)
	result.VideoInitialWindow = pickInt(base.VideoInitialWindow, overlay.VideoInitialWindow)
	result.VideoGrowStep = pickInt(base.VideoGrowStep, overlay.VideoGrowStep)
	result.AdvanceIntervalSecs = pickInt(base.AdvanceIntervalSecs, overlay.AdvanceIntervalSecs)
	result.RefreshIntervalMins = pickInt(base.RefreshIntervalMins, overlay.RefreshIntervalMins)
	result.DBMaxOpenConns = pickInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns)

	// Booleans: overlay wins when the key was present, in either direction
	result.Autoplay = base.Autoplay
	if overlay.Autoplay != nil {
		result.Autoplay = overlay.Autoplay
	}

	// Arrays: merge and deduplicate
	result.Relays = mergeStringSlice(base.Relays, overlay.Relays)
	result.Authors = mergeStringSlice(base.Authors, overlay.Authors)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	// Tag filters: per-key, overlay wins
	if len(base.Tags) > 0 || len(overlay.Tags) > 0 {
		result.Tags = make(map[string][]string)
		for k, v := range base.Tags {
			result.Tags[k] = v
		}
		for k, v := range overlay.Tags {
			result.Tags[k] = v
		}
	}

	return result
}

func boolPtr(b bool) *bool { return &b }

// pickInt returns overlay if non-zero, else base.
func pickInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
