package hierarchy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/errors"
)

func tag(id, name string) *domain.Tag {
	t := &domain.Tag{Name: name, UserID: "alice"}
	t.ID = id
	return t
}

func edge(parent, child string) domain.TagLineage {
	return domain.TagLineage{UserID: "alice", ParentID: parent, ChildID: child}
}

func mustEntry(t *testing.T, h *Hierarchy, id string) *Entry {
	t.Helper()
	e, ok := h.Entry(id)
	require.True(t, ok, "entry %s", id)
	return e
}

func TestBuild_Empty(t *testing.T) {
	h := Build(nil, nil)
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Entries())

	got, err := h.Expand(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuild_Chain(t *testing.T) {
	h := Build(
		[]*domain.Tag{tag("c", "Groups"), tag("a", "Math"), tag("b", "Algebra")},
		[]domain.TagLineage{edge("a", "b"), edge("b", "c")},
	)

	require.Equal(t, 3, h.Len())
	ids := []string{h.Entries()[0].TagID, h.Entries()[1].TagID, h.Entries()[2].TagID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	a := mustEntry(t, h, "a")
	assert.Equal(t, "Math", a.TagName)
	assert.Equal(t, []string{"b"}, a.Children)
	assert.Empty(t, a.Parents)
	assert.Empty(t, a.Ancestors)
	assert.Equal(t, []string{"b", "c"}, a.Descendants)
	assert.Equal(t, []string{"a", "b", "c"}, a.DescendantsAndSelf)

	c := mustEntry(t, h, "c")
	assert.Equal(t, []string{"b"}, c.Parents)
	assert.Equal(t, []string{"a", "b"}, c.Ancestors)
	assert.Empty(t, c.Descendants)
	assert.Equal(t, []string{"c"}, c.DescendantsAndSelf)
}

func TestBuild_Cycle(t *testing.T) {
	h := Build(
		[]*domain.Tag{tag("a", "A"), tag("b", "B"), tag("c", "C")},
		[]domain.TagLineage{edge("a", "b"), edge("b", "c"), edge("c", "a")},
	)

	for _, id := range []string{"a", "b", "c"} {
		e := mustEntry(t, h, id)
		assert.NotContains(t, e.Descendants, id, "descendants exclude self")
		assert.NotContains(t, e.Ancestors, id, "ancestors exclude self")
		assert.Len(t, e.Descendants, 2)
		assert.Len(t, e.Ancestors, 2)
		assert.Equal(t, []string{"a", "b", "c"}, e.DescendantsAndSelf)
	}
}

func TestBuild_Diamond(t *testing.T) {
	h := Build(
		[]*domain.Tag{tag("top", ""), tag("left", ""), tag("right", ""), tag("bottom", "")},
		[]domain.TagLineage{
			edge("top", "left"), edge("top", "right"),
			edge("left", "bottom"), edge("right", "bottom"),
		},
	)

	assert.Equal(t, []string{"bottom", "left", "right"}, mustEntry(t, h, "top").Descendants)
	assert.Equal(t, []string{"left", "right", "top"}, mustEntry(t, h, "bottom").Ancestors)
	assert.Equal(t, []string{"left", "right"}, mustEntry(t, h, "bottom").Parents)
}

func TestBuild_IgnoresForeignSelfAndDuplicateEdges(t *testing.T) {
	h := Build(
		[]*domain.Tag{tag("a", "A"), tag("b", "B")},
		[]domain.TagLineage{
			edge("a", "b"),
			edge("a", "b"),
			edge("a", "a"),
			edge("a", "zz-foreign"),
			edge("zz-foreign", "b"),
		},
	)

	a := mustEntry(t, h, "a")
	assert.Equal(t, []string{"b"}, a.Children)
	assert.Equal(t, []string{"b"}, a.Descendants)
	assert.Empty(t, a.Parents)

	b := mustEntry(t, h, "b")
	assert.Equal(t, []string{"a"}, b.Parents)
	_, ok := h.Entry("zz-foreign")
	assert.False(t, ok)
}

func TestBuild_DuplicateTagsKeepFirst(t *testing.T) {
	h := Build([]*domain.Tag{tag("a", "first"), nil, tag("a", "second")}, nil)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, "first", mustEntry(t, h, "a").TagName)
}

func TestExpand(t *testing.T) {
	h := Build(
		[]*domain.Tag{tag("a", ""), tag("b", ""), tag("c", ""), tag("d", "")},
		[]domain.TagLineage{edge("a", "b"), edge("b", "c")},
	)

	got, err := h.Expand([]string{"b", "d", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, got)

	again, err := h.Expand(got)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	_, err = h.Expand([]string{"a", "missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Contains(t, err.Error(), "missing")
}

func TestSetCounts(t *testing.T) {
	h := Build([]*domain.Tag{tag("a", "")}, nil)
	h.SetCounts("a", 3, 1)
	h.SetCounts("nope", 9, 9)

	a := mustEntry(t, h, "a")
	assert.Equal(t, 3, a.CountQuestionsAll)
	assert.Equal(t, 1, a.CountQuestionsTag)
}

// reachable is a plain BFS used as the reference closure.
func reachable(adj map[string][]string, from string) map[string]bool {
	seen := map[string]bool{}
	queue := []string{from}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range adj[v] {
			if !seen[w] {
				seen[w] = true
				queue = append(queue, w)
			}
		}
	}
	return seen
}

func drawGraph(t *rapid.T) ([]*domain.Tag, []domain.TagLineage) {
	n := rapid.IntRange(0, 12).Draw(t, "tags")
	tags := make([]*domain.Tag, n)
	for i := range tags {
		tags[i] = tag(fmt.Sprintf("tag-%02d", i), fmt.Sprintf("Tag %d", i))
	}
	if n == 0 {
		return tags, nil
	}

	m := rapid.IntRange(0, n*3).Draw(t, "edges")
	edges := make([]domain.TagLineage, m)
	for i := range edges {
		p := rapid.IntRange(0, n-1).Draw(t, "parent")
		c := rapid.IntRange(0, n-1).Draw(t, "child")
		edges[i] = edge(tags[p].ID, tags[c].ID)
	}
	return tags, edges
}

func TestBuild_MatchesReferenceClosure(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tags, edges := drawGraph(t)
		h := Build(tags, edges)

		down := map[string][]string{}
		for _, e := range edges {
			if e.ParentID != e.ChildID {
				down[e.ParentID] = append(down[e.ParentID], e.ChildID)
			}
		}

		require.Equal(t, len(tags), h.Len())
		for _, a := range tags {
			ea, ok := h.Entry(a.ID)
			require.True(t, ok)
			require.Contains(t, ea.DescendantsAndSelf, a.ID)

			reach := reachable(down, a.ID)
			for _, b := range tags {
				if b.ID == a.ID {
					continue
				}
				eb, _ := h.Entry(b.ID)
				if reach[b.ID] {
					require.Contains(t, ea.Descendants, b.ID, "%s -> %s", a.ID, b.ID)
					require.Contains(t, eb.Ancestors, a.ID, "%s -> %s", a.ID, b.ID)
				} else {
					require.NotContains(t, ea.Descendants, b.ID, "%s -/> %s", a.ID, b.ID)
				}
			}
			require.NotContains(t, ea.Descendants, a.ID)
			require.Len(t, ea.DescendantsAndSelf, len(ea.Descendants)+1)
		}
	})
}

func TestExpand_FixedPoint(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tags, edges := drawGraph(t)
		h := Build(tags, edges)
		if h.Len() == 0 {
			return
		}

		var ids []string
		for _, tg := range tags {
			if rapid.Bool().Draw(t, "pick") {
				ids = append(ids, tg.ID)
			}
		}

		once, err := h.Expand(ids)
		require.NoError(t, err)
		for _, id := range ids {
			require.Contains(t, once, id)
		}

		twice, err := h.Expand(once)
		require.NoError(t, err)
		require.Equal(t, once, twice)
	})
}
