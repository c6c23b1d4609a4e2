package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/store"
	"github.com/listenupapp/recall-server/internal/store/kv"
	"github.com/listenupapp/recall-server/internal/store/sqlite"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type backend struct {
	name string
	open func(t *testing.T) store.Store
}

var backends = []backend{
	{"sqlite", func(t *testing.T) store.Store {
		s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}},
	{"badger", func(t *testing.T) store.Store {
		s, err := kv.Open("", nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}},
}

// forEachBackend runs fn once per storage backend with fresh services.
func forEachBackend(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			tags := NewTagService(s, nil)
			fn(t, &fixture{
				store:     s,
				tags:      tags,
				questions: NewQuestionService(s, tags, nil),
			})
		})
	}
}

// fixture seeds a store directly through the write path.
type fixture struct {
	store     store.Store
	tags      *TagService
	questions *QuestionService
}

func (f *fixture) tag(t *testing.T, id, userID, name string) {
	t.Helper()
	tg := &domain.Tag{Name: name, UserID: userID}
	tg.ID = id
	tg.InitTimestamps(testNow.Add(-30 * 24 * time.Hour))
	require.NoError(t, f.store.CreateTag(context.Background(), tg))
}

func (f *fixture) link(t *testing.T, userID, parentID, childID string) {
	t.Helper()
	require.NoError(t, f.store.CreateTagLineage(context.Background(), domain.TagLineage{
		UserID:   userID,
		ParentID: parentID,
		ChildID:  childID,
	}))
}

func (f *fixture) question(t *testing.T, id, userID string, created time.Time, tagIDs ...string) {
	t.Helper()
	ctx := context.Background()
	q := &domain.Question{UserID: userID, Body: "Body of " + id}
	q.ID = id
	q.InitTimestamps(created)
	require.NoError(t, f.store.CreateQuestion(ctx, q))
	for _, tagID := range tagIDs {
		require.NoError(t, f.store.SetQuestionTag(ctx, domain.QuestionTag{
			QuestionID: id,
			TagID:      tagID,
			Enabled:    true,
		}))
	}
}

func (f *fixture) schedule(t *testing.T, id, userID, questionID string, created, next time.Time) {
	t.Helper()
	require.NoError(t, f.store.CreateSchedule(context.Background(), &domain.Schedule{
		ID:           id,
		UserID:       userID,
		QuestionID:   questionID,
		CreatedAt:    created,
		NextShowAt:   next,
		Interval:     1,
		IntervalUnit: domain.IntervalDays,
	}))
}
