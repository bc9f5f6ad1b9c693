// Package merge reconciles notes arriving from multiple concurrent,
// overlapping queries into one canonical set keyed by note id.
package merge

import (
	"sort"

	"github.com/hpungsan/medley/internal/classify"
	"github.com/hpungsan/medley/internal/note"
)

// Outranks is the single source of truth for dedup tie-breaking. It reports
// whether candidate strictly outranks incumbent for the same note id:
//
//  1. a structured-kind note outranks a text-derived one
//  2. a note with a URL outranks one without
//  3. among two with URLs and equal structural rank, later created_at wins
//  4. a known media type outranks unknown
//
// Equal notes never outrank each other, which is what makes Merge idempotent.
func Outranks(candidate, incumbent note.Note) bool {
	cs, is := classify.IsStructured(candidate.Kind), classify.IsStructured(incumbent.Kind)
	if cs != is {
		return cs
	}

	cu, iu := candidate.HasURL(), incumbent.HasURL()
	if cu != iu {
		return cu
	}

	if cu && iu && candidate.CreatedAt != incumbent.CreatedAt {
		return candidate.CreatedAt > incumbent.CreatedAt
	}

	ck, ik := candidate.MediaType != note.MediaUnknown, incumbent.MediaType != note.MediaUnknown
	if ck != ik {
		return ck
	}

	return false
}

// Merge folds incoming notes into the existing canonical set and returns it.
// A present entry is replaced only by a strictly higher-priority note; notes
// are replaced whole, never partially mutated. The existing map is modified
// in place (a nil map is allocated).
//
// Merging the same batch twice yields the same result as merging it once, and
// the outcome does not depend on arrival order across batches.
func Merge(existing map[string]note.Note, incoming []note.Note) map[string]note.Note {
	if existing == nil {
		existing = make(map[string]note.Note, len(incoming))
	}

	for _, in := range incoming {
		if in.ID == "" {
			continue
		}
		cur, ok := existing[in.ID]
		if !ok || Outranks(in, cur) {
			existing[in.ID] = in
		}
	}

	return existing
}

// Sorted returns the canonical set as a slice ordered by created_at
// descending, ties broken by id for a stable order.
func Sorted(canonical map[string]note.Note) []note.Note {
	out := make([]note.Note, 0, len(canonical))
	for _, n := range canonical {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}
