// Package playlist derives per-category display windows from the canonical
// note set. Every function here is pure; the player owns the state.
package playlist

import (
	"math/rand"
	"sort"

	"github.com/hpungsan/medley/internal/note"
)

// Eligible filters canonical notes down to playable entries for one media
// type: matching classification and a non-empty URL.
func Eligible(canonical []note.Note, mt note.MediaType) []note.Note {
	var out []note.Note
	for _, n := range canonical {
		if n.Playable(mt) {
			out = append(out, n)
		}
	}
	return out
}

// Shuffle returns a permutation of notes determined entirely by seed. The
// input slice is not modified. Production seeds from the clock; tests pin it.
func Shuffle(seed int64, notes []note.Note) []note.Note {
	out := make([]note.Note, len(notes))
	copy(out, notes)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// DeriveImages samples up to windowSize playable images without replacement,
// in seed-determined order. Callers draw a fresh sample (new seed) whenever
// the canonical set changes or the current sample is exhausted.
func DeriveImages(canonical []note.Note, windowSize int, seed int64) []note.Note {
	images := Eligible(canonical, note.MediaImage)
	if len(images) == 0 || windowSize <= 0 {
		return nil
	}

	shuffled := Shuffle(seed, images)
	if len(shuffled) > windowSize {
		shuffled = shuffled[:windowSize]
	}
	return shuffled
}

// DeriveVideos grows the video window over the playable video candidates:
// newest first, deduplicated by URL with the newest occurrence winning.
// Entries already displayed keep their positions; growth only appends
// candidates not yet shown, initialSize on the first call and +growBy per
// call after that, until the candidate set is exhausted.
func DeriveVideos(canonical, displayed []note.Note, initialSize, growBy int) []note.Note {
	candidates := dedupByURL(sortNewestFirst(Eligible(canonical, note.MediaVideo)))
	if len(candidates) == 0 {
		return nil
	}

	target := initialSize
	if len(displayed) > 0 {
		target = len(displayed) + growBy
	}
	if target <= 0 {
		return nil
	}

	out := make([]note.Note, 0, target)
	seen := make(map[string]bool, target)
	for _, n := range displayed {
		out = append(out, n)
		seen[n.URL] = true
	}

	for _, c := range candidates {
		if len(out) >= target {
			break
		}
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}

	return out
}

// DerivePodcasts returns every playable audio note, newest first. Podcasts
// are not windowed.
func DerivePodcasts(canonical []note.Note) []note.Note {
	return sortNewestFirst(Eligible(canonical, note.MediaAudio))
}

// OldestCreatedAt returns the oldest created_at across the canonical set,
// used as the exclusive upper bound when paginating older fetches.
// The second return is false when the set is empty.
func OldestCreatedAt(canonical []note.Note) (int64, bool) {
	if len(canonical) == 0 {
		return 0, false
	}
	oldest := canonical[0].CreatedAt
	for _, n := range canonical[1:] {
		if n.CreatedAt < oldest {
			oldest = n.CreatedAt
		}
	}
	return oldest, true
}

// sortNewestFirst orders by created_at descending, ties broken by id.
func sortNewestFirst(notes []note.Note) []note.Note {
	out := make([]note.Note, len(notes))
	copy(out, notes)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// dedupByURL keeps the first occurrence of each URL. Input must already be
// newest-first so the newest observation wins.
func dedupByURL(notes []note.Note) []note.Note {
	seen := make(map[string]bool, len(notes))
	var out []note.Note
	for _, n := range notes {
		if seen[n.URL] {
			continue
		}
		seen[n.URL] = true
		out = append(out, n)
	}
	return out
}
