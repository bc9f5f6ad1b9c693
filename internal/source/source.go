// Package source defines the event source boundary: an unbounded,
// possibly-duplicate, unordered stream of raw events matching a filter.
// The engine tolerates duplicate and out-of-order delivery; nothing here
// promises more than that.
package source

import "context"

// Event is an unprocessed content record as delivered by a relay.
type Event struct {
	ID        string     `json:"id"`
	Author    string     `json:"author"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
}

// TagValue returns the value of the first present tag among the given names,
// in the order the names are listed. Tag entries are [name, value, ...] arrays;
// entries without a value are skipped.
func (e Event) TagValue(names ...string) string {
	for _, name := range names {
		for _, tag := range e.Tags {
			if len(tag) >= 2 && tag[0] == name && tag[1] != "" {
				return tag[1]
			}
		}
	}
	return ""
}

// Filter selects events from a relay. Zero-valued fields are unconstrained.
type Filter struct {
	Kinds   []int               `json:"kinds,omitempty"`
	Authors []string            `json:"authors,omitempty"`
	Tags    map[string][]string `json:"tags,omitempty"`
	Limit   int                 `json:"limit,omitempty"`
	Until   *int64              `json:"until,omitempty"`
}

// Source is the subscribe/query contract the engine consumes.
// The returned channel closes when ctx is cancelled or the source fails;
// events may arrive in any order and may repeat.
type Source interface {
	Subscribe(ctx context.Context, filters []Filter) (<-chan Event, error)
}
