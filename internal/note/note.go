package note

// MediaType is the media category assigned to a note during classification.
type MediaType string

const (
	MediaImage   MediaType = "image"
	MediaVideo   MediaType = "video"
	MediaAudio   MediaType = "audio"
	MediaUnknown MediaType = "unknown"
)

// Category is a playlist display category. It is distinct from MediaType:
// podcasts display audio notes, and the two media video kinds share one
// category.
type Category string

const (
	CategoryImages   Category = "images"
	CategoryVideos   Category = "videos"
	CategoryPodcasts Category = "podcasts"
)

// Media returns the media type a category displays.
func (c Category) Media() MediaType {
	switch c {
	case CategoryImages:
		return MediaImage
	case CategoryVideos:
		return MediaVideo
	case CategoryPodcasts:
		return MediaAudio
	}
	return MediaUnknown
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryImages, CategoryVideos, CategoryPodcasts:
		return Category(s), true
	}
	return "", false
}

// Note is the canonical unit of the engine: a source event annotated with a
// media type and an extracted playable URL.
type Note struct {
	// ID is the source event id. Unique within the canonical set.
	ID string

	// AuthorID is the opaque author identity from the source event
	AuthorID string

	// CreatedAt is the event creation time in Unix seconds
	CreatedAt int64

	// Kind is the numeric source category the event carried.
	// Used for prioritization during merge, never for identity.
	Kind int

	// MediaType is the classified media category
	MediaType MediaType

	// URL is the extracted playable resource locator; empty when none was found.
	// Notes without a URL never enter a playlist window but may still be
	// merged and cached for their metadata.
	URL string

	// Content is the raw event content
	Content string

	// Title is an optional display title copied from tags (nullable)
	Title *string

	// Summary is an optional short description copied from tags (nullable)
	Summary *string

	// Duration is an optional media duration in seconds copied from tags (nullable)
	Duration *int64
}

// HasURL reports whether a playable URL was extracted.
func (n Note) HasURL() bool {
	return n.URL != ""
}

// Playable reports whether the note is eligible for a window of the given
// media type: matching classification and a non-empty URL.
func (n Note) Playable(mt MediaType) bool {
	return n.MediaType == mt && n.HasURL()
}
