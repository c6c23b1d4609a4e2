// Package storetest holds the behavioural contract every store.Store
// backend must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/store"
)

// Factory opens an empty store. The factory owns cleanup (t.Cleanup).
type Factory func(t *testing.T) store.Store

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// Run executes the contract suite against the backend produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(context.Background()))
	})
	t.Run("Tags", func(t *testing.T) { testTags(t, newStore(t)) })
	t.Run("TagNameUniquePerUser", func(t *testing.T) { testTagNameUnique(t, newStore(t)) })
	t.Run("TagValidation", func(t *testing.T) { testTagValidation(t, newStore(t)) })
	t.Run("Lineage", func(t *testing.T) { testLineage(t, newStore(t)) })
	t.Run("Candidates", func(t *testing.T) { testCandidates(t, newStore(t)) })
	t.Run("DisabledLinks", func(t *testing.T) { testDisabledLinks(t, newStore(t)) })
	t.Run("MostRecentSchedule", func(t *testing.T) { testMostRecentSchedule(t, newStore(t)) })
	t.Run("MostRecentScheduleTie", func(t *testing.T) { testMostRecentScheduleTie(t, newStore(t)) })
}

// MakeTag builds a tag with deterministic timestamps.
func MakeTag(id, userID, name string) *domain.Tag {
	t := &domain.Tag{Name: name, UserID: userID}
	t.ID = id
	t.InitTimestamps(base)
	return t
}

// MakeQuestion builds a question created offset after the suite's base time.
func MakeQuestion(id, userID string, offset time.Duration) *domain.Question {
	q := &domain.Question{UserID: userID, Body: "What is " + id + "?"}
	q.ID = id
	q.InitTimestamps(base.Add(offset))
	return q
}

func mustCreateTags(t *testing.T, s store.Store, tags ...*domain.Tag) {
	t.Helper()
	for _, tag := range tags {
		require.NoError(t, s.CreateTag(context.Background(), tag), "create tag %s", tag.ID)
	}
}

func mustCreateQuestion(t *testing.T, s store.Store, q *domain.Question, tagIDs ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateQuestion(ctx, q), "create question %s", q.ID)
	for _, tagID := range tagIDs {
		require.NoError(t, s.SetQuestionTag(ctx, domain.QuestionTag{
			QuestionID: q.ID,
			TagID:      tagID,
			Enabled:    true,
		}))
	}
}

func tagIDs(tags []*domain.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.ID
	}
	return out
}

func questionIDs(qs []*domain.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func testTags(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateTags(t, s,
		MakeTag("tag-b", "alice", "Biology"),
		MakeTag("tag-a", "alice", "Algebra"),
		MakeTag("tag-z", "bob", "Zoology"),
	)

	got, err := s.ListTagsForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"tag-a", "tag-b"}, tagIDs(got))
	assert.Equal(t, "Algebra", got[0].Name)
	assert.Equal(t, "alice", got[0].UserID)
	assert.True(t, got[0].CreatedAt.Equal(base))

	none, err := s.ListTagsForUser(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)

	byID, err := s.GetTagsByIDs(ctx, []string{"tag-z", "tag-missing", "tag-a", "tag-a"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tag-a", "tag-z"}, tagIDs(byID))
	for _, tag := range byID {
		if tag.ID == "tag-z" {
			assert.Equal(t, "bob", tag.UserID, "owner must be populated for ownership checks")
		}
	}

	empty, err := s.GetTagsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testTagNameUnique(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateTags(t, s, MakeTag("tag-1", "alice", "Physics"))

	err := s.CreateTag(ctx, MakeTag("tag-2", "alice", "Physics"))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	err = s.CreateTag(ctx, MakeTag("tag-1", "alice", "Chemistry"))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	assert.NoError(t, s.CreateTag(ctx, MakeTag("tag-3", "bob", "Physics")))
}

func testTagValidation(t *testing.T, s store.Store) {
	err := s.CreateTag(context.Background(), MakeTag("tag-1", "alice", ""))
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func testLineage(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateTags(t, s,
		MakeTag("tag-1", "alice", "Math"),
		MakeTag("tag-2", "alice", "Algebra"),
		MakeTag("tag-3", "alice", "Groups"),
		MakeTag("tag-9", "bob", "Art"),
	)

	edges := []domain.TagLineage{
		{UserID: "alice", ParentID: "tag-1", ChildID: "tag-2"},
		{UserID: "alice", ParentID: "tag-2", ChildID: "tag-3"},
		{UserID: "alice", ParentID: "tag-3", ChildID: "tag-1"}, // cycle is valid data
		{UserID: "alice", ParentID: "tag-1", ChildID: "tag-2"}, // duplicate is a no-op
		{UserID: "bob", ParentID: "tag-9", ChildID: "tag-9"},
	}
	for _, e := range edges {
		require.NoError(t, s.CreateTagLineage(ctx, e))
	}

	got, err := s.ListEdgesForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.TagLineage{
		{UserID: "alice", ParentID: "tag-1", ChildID: "tag-2"},
		{UserID: "alice", ParentID: "tag-2", ChildID: "tag-3"},
		{UserID: "alice", ParentID: "tag-3", ChildID: "tag-1"},
	}, got)

	err = s.CreateTagLineage(ctx, domain.TagLineage{UserID: "alice", ParentID: "tag-1"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func testCandidates(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateTags(t, s,
		MakeTag("tag-1", "alice", "Math"),
		MakeTag("tag-2", "alice", "Algebra"),
		MakeTag("tag-9", "bob", "Math"),
	)

	// q-new and q-both share a creation time; id breaks the tie.
	mustCreateQuestion(t, s, MakeQuestion("q-old", "alice", 0), "tag-1")
	mustCreateQuestion(t, s, MakeQuestion("q-both", "alice", time.Hour), "tag-1", "tag-2")
	mustCreateQuestion(t, s, MakeQuestion("q-new", "alice", time.Hour), "tag-2")
	mustCreateQuestion(t, s, MakeQuestion("q-bob", "bob", 0), "tag-9")
	mustCreateQuestion(t, s, MakeQuestion("q-untagged", "alice", 0))

	got, err := s.FindCandidates(ctx, "alice", []string{"tag-1", "tag-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q-old", "q-both", "q-new"}, questionIDs(got))

	count, err := s.CountDistinctQuestionsByTagSet(ctx, "alice", []string{"tag-1", "tag-2"})
	require.NoError(t, err)
	assert.Equal(t, 3, count, "q-both is reachable twice but counts once")

	count, err = s.CountDistinctQuestionsByTagSet(ctx, "alice", []string{"tag-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A foreign tag id never leaks the other user's questions.
	leaked, err := s.FindCandidates(ctx, "alice", []string{"tag-9"})
	require.NoError(t, err)
	assert.Empty(t, leaked)

	empty, err := s.FindCandidates(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	count, err = s.CountDistinctQuestionsByTagSet(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func testDisabledLinks(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateTags(t, s, MakeTag("tag-1", "alice", "Math"))
	mustCreateQuestion(t, s, MakeQuestion("q-1", "alice", 0), "tag-1")

	require.NoError(t, s.SetQuestionTag(ctx, domain.QuestionTag{QuestionID: "q-1", TagID: "tag-1", Enabled: false}))

	got, err := s.FindCandidates(ctx, "alice", []string{"tag-1"})
	require.NoError(t, err)
	assert.Empty(t, got)

	count, err := s.CountDistinctQuestionsByTagSet(ctx, "alice", []string{"tag-1"})
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, s.SetQuestionTag(ctx, domain.QuestionTag{QuestionID: "q-1", TagID: "tag-1", Enabled: true}))

	got, err = s.FindCandidates(ctx, "alice", []string{"tag-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q-1"}, questionIDs(got))
}

func makeSchedule(id, userID, questionID string, created, next time.Time) *domain.Schedule {
	return &domain.Schedule{
		ID:           id,
		UserID:       userID,
		QuestionID:   questionID,
		CreatedAt:    created,
		NextShowAt:   next,
		Interval:     1,
		IntervalUnit: domain.IntervalDays,
	}
}

func testMostRecentSchedule(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateTags(t, s, MakeTag("tag-1", "alice", "Math"))
	mustCreateQuestion(t, s, MakeQuestion("q-1", "alice", 0), "tag-1")

	_, err := s.MostRecentScheduleFor(ctx, "alice", "q-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Creation order decides, not next-show time: the newest schedule has
	// the earliest next-show time.
	require.NoError(t, s.CreateSchedule(ctx, makeSchedule("sch-1", "alice", "q-1", base, base.Add(72*time.Hour))))
	require.NoError(t, s.CreateSchedule(ctx, makeSchedule("sch-3", "alice", "q-1", base.Add(2*time.Hour), base.Add(time.Hour))))
	require.NoError(t, s.CreateSchedule(ctx, makeSchedule("sch-2", "alice", "q-1", base.Add(time.Hour), base.Add(48*time.Hour))))

	got, err := s.MostRecentScheduleFor(ctx, "alice", "q-1")
	require.NoError(t, err)
	assert.Equal(t, "sch-3", got.ID)
	assert.True(t, got.NextShowAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, domain.IntervalDays, got.IntervalUnit)
	assert.Equal(t, 1, got.Interval)

	// Another user's history for the same question id is invisible.
	_, err = s.MostRecentScheduleFor(ctx, "bob", "q-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testMostRecentScheduleTie(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreateTags(t, s, MakeTag("tag-1", "alice", "Math"))
	mustCreateQuestion(t, s, MakeQuestion("q-1", "alice", 0), "tag-1")

	// Same creation instant: the later insert wins, whatever its id.
	require.NoError(t, s.CreateSchedule(ctx, makeSchedule("sch-b", "alice", "q-1", base, base.Add(time.Hour))))
	require.NoError(t, s.CreateSchedule(ctx, makeSchedule("sch-a", "alice", "q-1", base, base.Add(2*time.Hour))))

	got, err := s.MostRecentScheduleFor(ctx, "alice", "q-1")
	require.NoError(t, err)
	assert.Equal(t, "sch-a", got.ID)
}
