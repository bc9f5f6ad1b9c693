package classify

import (
	"regexp"

	"github.com/hpungsan/medley/internal/note"
)

// Pattern pairs a URL regex with the media type it implies.
type Pattern struct {
	Media note.MediaType
	Re    *regexp.Regexp
}

// URLPatterns is the ordered sniffing table for general text events: the
// first pattern that matches the content decides the media type and URL.
// Audio outranks image outranks video.
var URLPatterns = []Pattern{
	{note.MediaAudio, regexp.MustCompile(`https?://\S+\.(?:mp3|wav|ogg|m4a|flac)(?:\?\S*)?`)},
	{note.MediaImage, regexp.MustCompile(`https?://\S+\.(?:jpg|jpeg|png|gif|webp)(?:\?\S*)?`)},
	{note.MediaVideo, regexp.MustCompile(`https?://\S+\.(?:mp4|webm|mov|m4v)(?:\?\S*)?`)},
}

// SniffURL scans content against URLPatterns in priority order and returns
// the first match. Returns MediaUnknown and an empty URL when nothing matches.
func SniffURL(content string) (note.MediaType, string) {
	for _, p := range URLPatterns {
		if url := p.Re.FindString(content); url != "" {
			return p.Media, url
		}
	}
	return note.MediaUnknown, ""
}
