package cache

import (
	"fmt"
	"testing"

	"github.com/hpungsan/medley/internal/errors"
	"github.com/hpungsan/medley/internal/note"
)

// sampleNotes builds one playable image note per (id, createdAt) pair given
// as alternating arguments to keep call sites short.
func sampleNotes(pairs ...any) []note.Note {
	var out []note.Note
	for i := 0; i+1 < len(pairs); i += 2 {
		id := pairs[i].(string)
		createdAt := int64(pairs[i+1].(int))
		out = append(out, note.Note{
			ID:        id,
			AuthorID:  "author-" + id,
			CreatedAt: createdAt,
			Kind:      20,
			MediaType: note.MediaImage,
			URL:       fmt.Sprintf("https://x.com/%s.jpg", id),
			Content:   "content " + id,
		})
	}
	return out
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetAll_RoundTrip(t *testing.T) {
	store := openTestStore(t)

	title := "Sunset"
	summary := "over the bay"
	duration := int64(120)
	want := note.Note{
		ID:        "e1",
		AuthorID:  "a1",
		CreatedAt: 100,
		Kind:      21,
		MediaType: note.MediaVideo,
		URL:       "https://x.com/v.mp4",
		Content:   "clip",
		Title:     &title,
		Summary:   &summary,
		Duration:  &duration,
	}

	if err := store.Put([]note.Note{want}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.GetAll(10)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}

	n := got[0]
	if n.ID != want.ID || n.AuthorID != want.AuthorID || n.CreatedAt != want.CreatedAt {
		t.Errorf("identity fields = %+v, want %+v", n, want)
	}
	if n.MediaType != note.MediaVideo || n.URL != want.URL || n.Kind != 21 {
		t.Errorf("media fields = %+v, want %+v", n, want)
	}
	if n.Title == nil || *n.Title != title {
		t.Errorf("Title = %v, want %q", n.Title, title)
	}
	if n.Summary == nil || *n.Summary != summary {
		t.Errorf("Summary = %v, want %q", n.Summary, summary)
	}
	if n.Duration == nil || *n.Duration != duration {
		t.Errorf("Duration = %v, want %d", n.Duration, duration)
	}
}

func TestPutGetAll_NullableFieldsAbsent(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put([]note.Note{{
		ID: "e1", AuthorID: "a1", CreatedAt: 1, Kind: 1,
		MediaType: note.MediaUnknown, Content: "no media here",
	}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.GetAll(10)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	n := got[0]
	if n.HasURL() {
		t.Errorf("URL = %q, want empty", n.URL)
	}
	if n.Title != nil || n.Summary != nil || n.Duration != nil {
		t.Errorf("optional fields = %v %v %v, want all nil", n.Title, n.Summary, n.Duration)
	}
}

func TestPut_ReplacesWholeRow(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put(sampleNotes("e1", 10)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	replacement := sampleNotes("e1", 50)
	replacement[0].URL = "https://x.com/replaced.jpg"
	if err := store.Put(replacement); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := store.GetAll(10)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (same id)", len(got))
	}
	if got[0].CreatedAt != 50 || got[0].URL != "https://x.com/replaced.jpg" {
		t.Errorf("row not replaced: %+v", got[0])
	}
}

func TestGetAll_SortedNewestFirst(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put(sampleNotes("a", 10, "b", 30, "c", 20)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.GetAll(10)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	wantOrder := []string{"b", "c", "a"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestGetAll_CapacityEvictsOldest(t *testing.T) {
	store := openTestStore(t)

	// Insert in arbitrary order; capacity 2 keeps created_at 30 and 20
	if err := store.Put(sampleNotes("a", 20, "b", 10, "c", 30)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.GetAll(2)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].CreatedAt != 30 || got[1].CreatedAt != 20 {
		t.Errorf("kept createdAts = %d,%d, want 30,20", got[0].CreatedAt, got[1].CreatedAt)
	}

	// Eviction is durable, not just filtered from the result
	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2 after eviction", count)
	}
}

func TestGetAll_InvalidCapacity(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetAll(0)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestDeleteByIDs(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put(sampleNotes("a", 1, "b", 2, "c", 3)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := store.DeleteByIDs([]string{"a", "c", "missing"}); err != nil {
		t.Fatalf("DeleteByIDs failed: %v", err)
	}

	got, err := store.GetAll(10)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("remaining = %+v, want only b", got)
	}

	// Empty id list is a no-op
	if err := store.DeleteByIDs(nil); err != nil {
		t.Errorf("DeleteByIDs(nil) = %v, want nil", err)
	}
}

func TestCompact(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put(sampleNotes("a", 1, "b", 2, "c", 3, "d", 4)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	evicted, err := store.Compact(2)
	if err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	if evicted != 2 {
		t.Errorf("evicted = %d, want 2", evicted)
	}

	count, _ := store.Count()
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}
}

func TestPurge(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put(sampleNotes("a", 1, "b", 2)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	purged, err := store.Purge()
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}

	count, _ := store.Count()
	if count != 0 {
		t.Errorf("Count = %d, want 0", count)
	}
}

func TestPut_SkipsEmptyID(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put([]note.Note{{ID: "", CreatedAt: 1}}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	count, _ := store.Count()
	if count != 0 {
		t.Errorf("Count = %d, want 0", count)
	}
}
