package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/hpungsan/medley/internal/cache"
	"github.com/hpungsan/medley/internal/classify"
	"github.com/hpungsan/medley/internal/config"
	"github.com/hpungsan/medley/internal/note"
)

// setupTestStore creates a temporary cache manager seeded with notes.
func setupTestStore(t *testing.T, notes []note.Note) *cache.Manager {
	t.Helper()

	mgr := cache.NewManager(t.TempDir())
	t.Cleanup(mgr.Close)

	if len(notes) > 0 {
		store, err := mgr.Acquire()
		if err != nil {
			t.Fatalf("failed to open test store: %v", err)
		}
		if err := store.Put(notes); err != nil {
			t.Fatalf("failed to seed test store: %v", err)
		}
	}
	return mgr
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.CacheCapacity = 100
	return cfg
}

func sampleNotes() []note.Note {
	return []note.Note{
		{ID: "e1", AuthorID: "a", CreatedAt: 30, Kind: classify.KindPicture,
			MediaType: note.MediaImage, URL: "https://x.com/1.jpg"},
		{ID: "e2", AuthorID: "a", CreatedAt: 20, Kind: classify.KindVideo,
			MediaType: note.MediaVideo, URL: "https://x.com/1.mp4"},
		{ID: "e3", AuthorID: "b", CreatedAt: 10, Kind: classify.KindText,
			MediaType: note.MediaAudio, URL: "https://x.com/1.mp3"},
	}
}

// runApp runs the CLI app capturing stdout.
func runApp(t *testing.T, mgr *cache.Manager, cfg *config.Config, args ...string) (string, error) {
	t.Helper()

	app := newCLIApp(mgr, cfg)

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"medley"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"no args", []string{"medley"}, false},
		{"known subcommand", []string{"medley", "notes"}, true},
		{"run subcommand", []string{"medley", "run"}, true},
		{"help flag", []string{"medley", "--help"}, true},
		{"version flag", []string{"medley", "-v"}, true},
		{"unknown arg", []string{"medley", "bogus"}, false},
	}

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			if got := isCLIMode(); got != tt.want {
				t.Errorf("isCLIMode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCLINotes(t *testing.T) {
	mgr := setupTestStore(t, sampleNotes())
	out, err := runApp(t, mgr, testConfig(), "notes")
	if err != nil {
		t.Fatalf("notes command failed: %v", err)
	}

	var output struct {
		Count int         `json:"count"`
		Notes []note.Note `json:"notes"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Count != 3 {
		t.Errorf("count = %d, want 3", output.Count)
	}
	// Newest first
	if !strings.Contains(out, "e1") {
		t.Error("output missing newest note")
	}
}

func TestCLINotes_MediaFilter(t *testing.T) {
	mgr := setupTestStore(t, sampleNotes())

	out, err := runApp(t, mgr, testConfig(), "notes", "--media=video")
	if err != nil {
		t.Fatalf("notes --media failed: %v", err)
	}

	var output struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Count != 1 {
		t.Errorf("count = %d, want 1 video", output.Count)
	}

	_, err = runApp(t, mgr, testConfig(), "notes", "--media=books")
	if err == nil {
		t.Error("unknown media type accepted")
	}
}

func TestCLINotes_Limit(t *testing.T) {
	mgr := setupTestStore(t, sampleNotes())

	out, err := runApp(t, mgr, testConfig(), "notes", "--limit=2")
	if err != nil {
		t.Fatalf("notes --limit failed: %v", err)
	}

	var output struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatal(err)
	}
	if output.Count != 2 {
		t.Errorf("count = %d, want 2", output.Count)
	}
}

func TestCLICompact(t *testing.T) {
	mgr := setupTestStore(t, sampleNotes())
	cfg := testConfig()
	cfg.CacheCapacity = 1

	out, err := runApp(t, mgr, cfg, "compact")
	if err != nil {
		t.Fatalf("compact failed: %v", err)
	}

	var output struct {
		Evicted int `json:"evicted"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatal(err)
	}
	if output.Evicted != 2 {
		t.Errorf("evicted = %d, want 2", output.Evicted)
	}
}

func TestCLIPurge(t *testing.T) {
	mgr := setupTestStore(t, sampleNotes())

	// Without confirmation
	if _, err := runApp(t, mgr, testConfig(), "purge"); err == nil {
		t.Error("purge ran without --yes")
	}

	out, err := runApp(t, mgr, testConfig(), "purge", "--yes")
	if err != nil {
		t.Fatalf("purge --yes failed: %v", err)
	}

	var output struct {
		Purged int `json:"purged"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatal(err)
	}
	if output.Purged != 3 {
		t.Errorf("purged = %d, want 3", output.Purged)
	}
}

func TestCLIRun_NoRelays(t *testing.T) {
	mgr := setupTestStore(t, nil)
	cfg := testConfig()
	cfg.Relays = nil

	_, err := runApp(t, mgr, cfg, "run")
	if err == nil {
		t.Fatal("run started with no relays configured")
	}
	if !strings.Contains(err.Error(), "no relays") {
		t.Errorf("err = %v", err)
	}
}
