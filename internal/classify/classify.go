// Package classify turns raw source events into typed, media-tagged notes.
// Classification is pure: the same event always yields the same note.
package classify

import (
	"strconv"

	"github.com/hpungsan/medley/internal/note"
	"github.com/hpungsan/medley/internal/source"
)

// Event kinds the classifier understands. Anything else classifies as unknown.
const (
	KindText       = 1  // free text, URL sniffed from content
	KindPicture    = 20 // structured image event, URL carried in tags
	KindVideo      = 21 // structured video event
	KindShortVideo = 22 // structured short-form video event
)

// IsStructured reports whether a kind carries its media URL in tags rather
// than free text. Structured notes outrank text-derived ones during merge.
func IsStructured(kind int) bool {
	switch kind {
	case KindPicture, KindVideo, KindShortVideo:
		return true
	}
	return false
}

// picture and video events name their URL tag differently; each list is
// checked in order and the first present tag wins.
var (
	pictureURLTags = []string{"url", "media", "image"}
	videoURLTags   = []string{"url", "media"}
)

// Classify converts a raw event into a canonical note.
// A note that yields no URL is still returned (for merge/cache metadata);
// window derivation filters it out later.
func Classify(ev source.Event) note.Note {
	n := note.Note{
		ID:        ev.ID,
		AuthorID:  ev.Author,
		CreatedAt: ev.CreatedAt,
		Kind:      ev.Kind,
		MediaType: note.MediaUnknown,
		Content:   ev.Content,
	}

	if title := ev.TagValue("title"); title != "" {
		n.Title = &title
	}
	if summary := ev.TagValue("summary", "alt"); summary != "" {
		n.Summary = &summary
	}
	if dur := ev.TagValue("duration"); dur != "" {
		if secs, err := strconv.ParseInt(dur, 10, 64); err == nil && secs > 0 {
			n.Duration = &secs
		}
	}

	switch ev.Kind {
	case KindPicture:
		n.MediaType = note.MediaImage
		n.URL = ev.TagValue(pictureURLTags...)
	case KindVideo, KindShortVideo:
		n.MediaType = note.MediaVideo
		n.URL = ev.TagValue(videoURLTags...)
	case KindText:
		n.MediaType, n.URL = SniffURL(ev.Content)
	}

	return n
}
