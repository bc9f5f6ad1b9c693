package merge

import (
	"reflect"
	"testing"

	"github.com/hpungsan/medley/internal/classify"
	"github.com/hpungsan/medley/internal/note"
	"github.com/hpungsan/medley/internal/source"
)

func textNote(id string, createdAt int64, content string) note.Note {
	return classify.Classify(source.Event{
		ID: id, CreatedAt: createdAt, Kind: classify.KindText, Content: content,
	})
}

func pictureNote(id string, createdAt int64, url string) note.Note {
	var tags [][]string
	if url != "" {
		tags = [][]string{{"url", url}}
	}
	return classify.Classify(source.Event{
		ID: id, CreatedAt: createdAt, Kind: classify.KindPicture, Tags: tags,
	})
}

func TestMerge_InsertAndIdempotence(t *testing.T) {
	batch := []note.Note{
		textNote("e1", 10, "see https://x.com/a.jpg"),
		pictureNote("e2", 20, "https://x.com/b.jpg"),
	}

	once := Merge(nil, batch)
	if len(once) != 2 {
		t.Fatalf("len = %d, want 2", len(once))
	}

	twice := Merge(copyOf(once), batch)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMerge_StructuredOutranksText_BothArrivalOrders(t *testing.T) {
	// Same id observed through a text query and a structured picture query
	text := textNote("e1", 10, "see https://x.com/a.jpg")
	structured := pictureNote("e1", 10, "https://x.com/a.jpg")

	orders := [][]note.Note{
		{text, structured},
		{structured, text},
	}

	for i, order := range orders {
		m := Merge(nil, order)
		got := m["e1"]
		if got.Kind != classify.KindPicture {
			t.Errorf("order %d: Kind = %d, want picture kind", i, got.Kind)
		}
		if got.MediaType != note.MediaImage {
			t.Errorf("order %d: MediaType = %q, want image", i, got.MediaType)
		}
	}
}

func TestMerge_URLOutranksNoURL(t *testing.T) {
	without := textNote("e1", 50, "nothing here")
	with := textNote("e1", 10, "see https://x.com/a.jpg")

	for i, order := range [][]note.Note{{without, with}, {with, without}} {
		m := Merge(nil, order)
		if got := m["e1"]; !got.HasURL() {
			t.Errorf("order %d: merged note lost its URL", i)
		}
	}
}

func TestMerge_LaterCreatedAtWins(t *testing.T) {
	older := pictureNote("e1", 10, "https://x.com/old.jpg")
	newer := pictureNote("e1", 20, "https://x.com/new.jpg")

	for i, order := range [][]note.Note{{older, newer}, {newer, older}} {
		m := Merge(nil, order)
		if got := m["e1"]; got.URL != "https://x.com/new.jpg" {
			t.Errorf("order %d: URL = %q, want republished new.jpg", i, got.URL)
		}
	}
}

func TestMerge_KnownMediaOutranksUnknown(t *testing.T) {
	unknown := textNote("e1", 10, "no media")
	known := textNote("e1", 10, "https://x.com/a.mp3")

	// Both text kind; known has a URL so rule 2 already prefers it. Force
	// rule 4 by stripping the URL but keeping the media type.
	known.URL = ""

	for i, order := range [][]note.Note{{unknown, known}, {known, unknown}} {
		m := Merge(nil, order)
		if got := m["e1"]; got.MediaType != note.MediaAudio {
			t.Errorf("order %d: MediaType = %q, want audio", i, got.MediaType)
		}
	}
}

func TestMerge_EqualNotesDoNotReplace(t *testing.T) {
	a := pictureNote("e1", 10, "https://x.com/a.jpg")
	b := a
	b.Content = "changed content, same rank"

	m := Merge(nil, []note.Note{a})
	m = Merge(m, []note.Note{b})

	// Equal priority: incumbent survives
	if got := m["e1"]; got.Content != a.Content {
		t.Errorf("equal-rank incoming replaced incumbent")
	}
}

func TestMerge_SkipsEmptyID(t *testing.T) {
	m := Merge(nil, []note.Note{{ID: "", CreatedAt: 1}})
	if len(m) != 0 {
		t.Errorf("len = %d, want 0", len(m))
	}
}

func TestOutranks_Irreflexive(t *testing.T) {
	notes := []note.Note{
		textNote("a", 10, "plain"),
		textNote("b", 10, "https://x.com/a.jpg"),
		pictureNote("c", 10, "https://x.com/b.jpg"),
		pictureNote("d", 10, ""),
	}
	for _, n := range notes {
		if Outranks(n, n) {
			t.Errorf("Outranks(n, n) = true for %+v", n)
		}
	}
}

func TestSorted_NewestFirstStable(t *testing.T) {
	m := Merge(nil, []note.Note{
		pictureNote("b", 10, "https://x.com/b.jpg"),
		pictureNote("a", 10, "https://x.com/a.jpg"),
		pictureNote("c", 30, "https://x.com/c.jpg"),
	})

	got := Sorted(m)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	want := []string{"c", "a", "b"} // newest first, id asc within ties
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func copyOf(m map[string]note.Note) map[string]note.Note {
	out := make(map[string]note.Note, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
