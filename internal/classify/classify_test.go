package classify

import (
	"testing"

	"github.com/hpungsan/medley/internal/note"
	"github.com/hpungsan/medley/internal/source"
)

func TestSniffURL_PriorityOrder(t *testing.T) {
	tests := []struct {
		name    string
		content string
		media   note.MediaType
		url     string
	}{
		{"audio", "listen https://x.com/song.mp3 now", note.MediaAudio, "https://x.com/song.mp3"},
		{"image", "see https://x.com/a.jpg", note.MediaImage, "https://x.com/a.jpg"},
		{"video", "watch https://x.com/clip.mp4", note.MediaVideo, "https://x.com/clip.mp4"},
		{"audio outranks image", "https://x.com/a.jpg then https://x.com/b.ogg", note.MediaAudio, "https://x.com/b.ogg"},
		{"image outranks video", "https://x.com/v.webm and https://x.com/p.png", note.MediaImage, "https://x.com/p.png"},
		{"query string kept", "https://x.com/a.png?w=1200", note.MediaImage, "https://x.com/a.png?w=1200"},
		{"no match", "just words, no links", note.MediaUnknown, ""},
		{"non-media url", "read https://x.com/post.html", note.MediaUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			media, url := SniffURL(tt.content)
			if media != tt.media {
				t.Errorf("media = %q, want %q", media, tt.media)
			}
			if url != tt.url {
				t.Errorf("url = %q, want %q", url, tt.url)
			}
		})
	}
}

func TestClassify_TextKind(t *testing.T) {
	ev := source.Event{
		ID:        "e1",
		Author:    "a1",
		CreatedAt: 100,
		Kind:      KindText,
		Content:   "see https://x.com/a.jpg",
	}

	n := Classify(ev)

	if n.ID != "e1" || n.AuthorID != "a1" || n.CreatedAt != 100 {
		t.Errorf("identity fields not copied: %+v", n)
	}
	if n.MediaType != note.MediaImage {
		t.Errorf("MediaType = %q, want image", n.MediaType)
	}
	if n.URL != "https://x.com/a.jpg" {
		t.Errorf("URL = %q, want https://x.com/a.jpg", n.URL)
	}
	if n.Kind != KindText {
		t.Errorf("Kind = %d, want %d", n.Kind, KindText)
	}
}

func TestClassify_PictureKind_TagOrder(t *testing.T) {
	ev := source.Event{
		ID:   "e2",
		Kind: KindPicture,
		Tags: [][]string{
			{"image", "https://x.com/fallback.jpg"},
			{"url", "https://x.com/primary.jpg"},
		},
	}

	n := Classify(ev)

	if n.MediaType != note.MediaImage {
		t.Errorf("MediaType = %q, want image", n.MediaType)
	}
	// "url" tag outranks "image" regardless of tag position
	if n.URL != "https://x.com/primary.jpg" {
		t.Errorf("URL = %q, want primary.jpg url", n.URL)
	}
}

func TestClassify_PictureKind_MediaTagFallback(t *testing.T) {
	ev := source.Event{
		ID:   "e3",
		Kind: KindPicture,
		Tags: [][]string{{"media", "https://x.com/m.png"}},
	}

	n := Classify(ev)
	if n.URL != "https://x.com/m.png" {
		t.Errorf("URL = %q, want media tag value", n.URL)
	}
}

func TestClassify_PictureKind_NoTags(t *testing.T) {
	n := Classify(source.Event{ID: "e4", Kind: KindPicture})

	// Still an image note, just not playable
	if n.MediaType != note.MediaImage {
		t.Errorf("MediaType = %q, want image", n.MediaType)
	}
	if n.HasURL() {
		t.Errorf("URL = %q, want empty", n.URL)
	}
}

func TestClassify_VideoKinds(t *testing.T) {
	for _, kind := range []int{KindVideo, KindShortVideo} {
		ev := source.Event{
			ID:   "e5",
			Kind: kind,
			Tags: [][]string{{"media", "https://x.com/v.mp4"}},
		}
		n := Classify(ev)
		if n.MediaType != note.MediaVideo {
			t.Errorf("kind %d: MediaType = %q, want video", kind, n.MediaType)
		}
		if n.URL != "https://x.com/v.mp4" {
			t.Errorf("kind %d: URL = %q, want v.mp4", kind, n.URL)
		}
		// "image" is not a video URL tag
		ev.Tags = [][]string{{"image", "https://x.com/v.jpg"}}
		if n := Classify(ev); n.HasURL() {
			t.Errorf("kind %d: image tag used for video URL: %q", kind, n.URL)
		}
	}
}

func TestClassify_UnknownKind(t *testing.T) {
	n := Classify(source.Event{ID: "e6", Kind: 7, Content: "https://x.com/a.jpg"})

	// Unknown kinds are never sniffed
	if n.MediaType != note.MediaUnknown {
		t.Errorf("MediaType = %q, want unknown", n.MediaType)
	}
	if n.HasURL() {
		t.Errorf("URL = %q, want empty", n.URL)
	}
}

func TestClassify_Metadata(t *testing.T) {
	ev := source.Event{
		ID:   "e7",
		Kind: KindVideo,
		Tags: [][]string{
			{"url", "https://x.com/v.mp4"},
			{"title", "My Clip"},
			{"summary", "a short clip"},
			{"duration", "92"},
		},
	}

	n := Classify(ev)

	if n.Title == nil || *n.Title != "My Clip" {
		t.Errorf("Title = %v, want My Clip", n.Title)
	}
	if n.Summary == nil || *n.Summary != "a short clip" {
		t.Errorf("Summary = %v, want a short clip", n.Summary)
	}
	if n.Duration == nil || *n.Duration != 92 {
		t.Errorf("Duration = %v, want 92", n.Duration)
	}

	// Malformed duration is dropped, not an error
	ev.Tags[3] = []string{"duration", "soon"}
	if n := Classify(ev); n.Duration != nil {
		t.Errorf("Duration = %v, want nil for malformed value", n.Duration)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	ev := source.Event{
		ID:      "e8",
		Kind:    KindText,
		Content: "both https://x.com/a.mp3 and https://x.com/b.jpg",
	}

	first := Classify(ev)
	for i := 0; i < 5; i++ {
		if got := Classify(ev); got.URL != first.URL || got.MediaType != first.MediaType {
			t.Fatalf("classification not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestIsStructured(t *testing.T) {
	for _, kind := range []int{KindPicture, KindVideo, KindShortVideo} {
		if !IsStructured(kind) {
			t.Errorf("IsStructured(%d) = false, want true", kind)
		}
	}
	for _, kind := range []int{KindText, 0, 7} {
		if IsStructured(kind) {
			t.Errorf("IsStructured(%d) = true, want false", kind)
		}
	}
}
