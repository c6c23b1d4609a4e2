// Package hierarchy computes ancestor and descendant closures over a user's
// tag lineage graph. The graph may contain cycles.
//
// Tags are mapped to dense indices and edges are stored as adjacency lists
// of indices, so the closure walk and its memo table are plain slice
// operations.
package hierarchy

import (
	"sort"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/errors"
)

// Entry is the derived closure data for one tag. All id slices are sorted
// ascending.
type Entry struct {
	TagID              string   `json:"tag_id"`
	TagName            string   `json:"tag_name"`
	Children           []string `json:"children"`
	Parents            []string `json:"parents"`
	Ancestors          []string `json:"ancestors"`
	Descendants        []string `json:"descendants"`
	DescendantsAndSelf []string `json:"descendants_and_self"`
	CountQuestionsAll  int      `json:"count_questions_all"`
	CountQuestionsTag  int      `json:"count_questions_tag"`
}

// Hierarchy is the closure table for one user's tags at one point in time.
type Hierarchy struct {
	entries []*Entry
	byID    map[string]*Entry
}

// graph is the arena form of a tag set: ids[i] is the tag at index i.
type graph struct {
	ids      []string
	index    map[string]int
	parents  [][]int
	children [][]int
}

// Build computes the hierarchy for tags and edges. Edges touching a tag
// outside the set are ignored, as are self-edges and duplicates.
func Build(tags []*domain.Tag, edges []domain.TagLineage) *Hierarchy {
	g, names := newGraph(tags, edges)

	ancestors := closure(g.parents)
	descendants := closure(g.children)

	h := &Hierarchy{
		entries: make([]*Entry, len(g.ids)),
		byID:    make(map[string]*Entry, len(g.ids)),
	}
	for i, id := range g.ids {
		desc := g.names(descendants[i])
		self := append(append(make([]string, 0, len(desc)+1), desc...), id)
		sort.Strings(self)

		e := &Entry{
			TagID:              id,
			TagName:            names[i],
			Children:           g.names(g.children[i]),
			Parents:            g.names(g.parents[i]),
			Ancestors:          g.names(ancestors[i]),
			Descendants:        desc,
			DescendantsAndSelf: self,
		}
		h.entries[i] = e
		h.byID[id] = e
	}
	return h
}

func newGraph(tags []*domain.Tag, edges []domain.TagLineage) (*graph, []string) {
	g := &graph{index: make(map[string]int, len(tags))}
	var names []string

	for _, t := range tags {
		if t == nil {
			continue
		}
		if _, ok := g.index[t.ID]; ok {
			continue
		}
		g.index[t.ID] = len(g.ids)
		g.ids = append(g.ids, t.ID)
		names = append(names, t.Name)
	}

	// Sort the arena by id so entries come out in a stable order.
	order := make([]int, len(g.ids))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return g.ids[order[a]] < g.ids[order[b]] })
	sortedIDs := make([]string, len(order))
	sortedNames := make([]string, len(order))
	for newIdx, oldIdx := range order {
		sortedIDs[newIdx] = g.ids[oldIdx]
		sortedNames[newIdx] = names[oldIdx]
		g.index[g.ids[oldIdx]] = newIdx
	}
	g.ids = sortedIDs

	g.parents = make([][]int, len(g.ids))
	g.children = make([][]int, len(g.ids))
	seen := make(map[[2]int]struct{}, len(edges))
	for _, e := range edges {
		p, okP := g.index[e.ParentID]
		c, okC := g.index[e.ChildID]
		if !okP || !okC || p == c {
			continue
		}
		key := [2]int{p, c}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		g.children[p] = append(g.children[p], c)
		g.parents[c] = append(g.parents[c], p)
	}

	return g, sortedNames
}

// names maps indices to sorted tag ids. It never returns nil.
func (g *graph) names(idx []int) []string {
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = g.ids[n]
	}
	sort.Strings(out)
	return out
}

// closure returns, for every node, the nodes reachable from it over adj,
// excluding the node itself.
//
// Each root is walked with its own visited set. Reaching a node whose
// closure is already complete adds that closure in one step instead of
// walking it again. A root's closure is recorded only after its walk has
// finished, so every memoized set is exact even inside a cycle.
func closure(adj [][]int) [][]int {
	n := len(adj)
	memo := make([][]int, n)
	done := make([]bool, n)
	visited := make([]bool, n)

	var stack, touched []int
	for root := range n {
		var reach []int
		visited[root] = true
		touched = append(touched[:0], root)
		stack = append(stack[:0], root)

		mark := func(v int) bool {
			if visited[v] {
				return false
			}
			visited[v] = true
			touched = append(touched, v)
			reach = append(reach, v)
			return true
		}

		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range adj[v] {
				if !mark(w) {
					continue
				}
				if done[w] {
					for _, x := range memo[w] {
						mark(x)
					}
					continue
				}
				stack = append(stack, w)
			}
		}

		memo[root] = reach
		done[root] = true
		for _, v := range touched {
			visited[v] = false
		}
	}
	return memo
}

// Len returns the number of tags in the hierarchy.
func (h *Hierarchy) Len() int { return len(h.entries) }

// Entries returns every entry ordered by tag id.
func (h *Hierarchy) Entries() []*Entry { return h.entries }

// Entry returns the entry for tagID.
func (h *Hierarchy) Entry(tagID string) (*Entry, bool) {
	e, ok := h.byID[tagID]
	return e, ok
}

// Expand returns the union of DescendantsAndSelf for ids, sorted and
// de-duplicated. An id missing from the hierarchy is a NOT_FOUND error.
func (h *Hierarchy) Expand(ids []string) ([]string, error) {
	set := make(map[string]struct{})
	for _, id := range ids {
		e, ok := h.byID[id]
		if !ok {
			return nil, errors.NotFoundf("tag %s is not in the hierarchy", id)
		}
		for _, d := range e.DescendantsAndSelf {
			set[d] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// SetCounts records question counts for tagID. Unknown ids are ignored.
func (h *Hierarchy) SetCounts(tagID string, all, direct int) {
	if e, ok := h.byID[tagID]; ok {
		e.CountQuestionsAll = all
		e.CountQuestionsTag = direct
	}
}
