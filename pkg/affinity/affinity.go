// Package affinity computes the "free bonus" skills injected alongside a
// selected set. The affinity relation is directed (skill A lists skill B)
// but expansion follows it in both directions, so either endpoint of a pair
// triggers the other. The graph is never materialized: the forward
// direction reads a skill's own list and the reverse direction scans the
// catalog, which stays cheap at realistic catalog sizes.
package affinity

import (
	"sort"

	"github.com/skillgate/skillgate/pkg/catalog"
)

const (
	// DefaultMaxDepth bounds how far expansion recurses from each origin skill.
	DefaultMaxDepth = 2
	// DefaultMaxTotal bounds the total number of skills an expansion may add.
	DefaultMaxTotal = 10
)

// Expander performs bounded bidirectional affinity expansion.
type Expander struct {
	MaxDepth int
	MaxTotal int
}

// NewExpander creates an expander with the default depth and count limits.
func NewExpander() *Expander {
	return &Expander{MaxDepth: DefaultMaxDepth, MaxTotal: DefaultMaxTotal}
}

// Expand returns the additional skills to inject for free given the set
// about to be injected. Skills already acknowledged this session and skills
// with auto_inject disabled are excluded from the result but still
// traversed, so an eligible skill behind an excluded one is still found.
// A visited set breaks cycles: a skill seen in this expansion is never
// re-queued, so A<->B pairs and longer cycles terminate. The result is
// sorted by identifier for reproducible output.
func (e *Expander) Expand(toInject []string, acknowledged map[string]bool, cat *catalog.Catalog) []string {
	type queued struct {
		id    string
		depth int
	}

	visited := make(map[string]bool, len(toInject))
	queue := make([]queued, 0, len(toInject))

	seeds := make([]string, len(toInject))
	copy(seeds, toInject)
	sort.Strings(seeds)
	for _, id := range seeds {
		if !visited[id] {
			visited[id] = true
			queue = append(queue, queued{id: id, depth: 0})
		}
	}

	var added []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= e.MaxDepth {
			continue
		}

		for _, next := range e.related(cur.id, cat) {
			if visited[next] {
				continue
			}
			visited[next] = true

			skill := cat.Get(next)
			if skill == nil {
				continue
			}

			// Excluded skills are filtered from the result, not from the
			// traversal: their own affinities are still reachable.
			if !acknowledged[next] && skill.AutoInject {
				added = append(added, next)
				if len(added) >= e.MaxTotal {
					sort.Strings(added)
					return added
				}
			}
			queue = append(queue, queued{id: next, depth: cur.depth + 1})
		}
	}

	sort.Strings(added)
	return added
}

// related merges both affinity directions for a skill: the identifiers it
// lists itself, and every catalog skill that lists it.
func (e *Expander) related(id string, cat *catalog.Catalog) []string {
	seen := make(map[string]bool)
	var out []string

	if skill := cat.Get(id); skill != nil {
		for _, other := range skill.Affinity {
			if other != id && !seen[other] {
				seen[other] = true
				out = append(out, other)
			}
		}
	}

	for _, otherID := range cat.IDs() {
		if otherID == id || seen[otherID] {
			continue
		}
		for _, listed := range cat.Get(otherID).Affinity {
			if listed == id {
				seen[otherID] = true
				out = append(out, otherID)
				break
			}
		}
	}

	sort.Strings(out)
	return out
}
