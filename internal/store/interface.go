// Package store defines the persistence interfaces for the recall server.
//
// Two backends implement Store: store/sqlite (relational, the default)
// and store/kv (embedded Badger). Both are verified by store/storetest.
package store

import (
	"context"

	"github.com/listenupapp/recall-server/internal/domain"
)

// TagStore provides read access to a user's tags and lineage edges.
type TagStore interface {
	// ListTagsForUser returns every tag owned by userID, ordered by id.
	ListTagsForUser(ctx context.Context, userID string) ([]*domain.Tag, error)

	// ListEdgesForUser returns every lineage edge scoped to userID.
	ListEdgesForUser(ctx context.Context, userID string) ([]domain.TagLineage, error)

	// GetTagsByIDs returns the tags that exist among ids, regardless of
	// owner. Missing ids are silently skipped.
	GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error)
}

// QuestionStore provides the question pool queries.
type QuestionStore interface {
	// CountDistinctQuestionsByTagSet counts userID's questions having an
	// enabled link to any tag in tagIDs. Each question counts once.
	CountDistinctQuestionsByTagSet(ctx context.Context, userID string, tagIDs []string) (int, error)

	// FindCandidates returns userID's questions having an enabled link to
	// any tag in tagIDs, de-duplicated and ordered by creation time, then id.
	FindCandidates(ctx context.Context, userID string, tagIDs []string) ([]*domain.Question, error)
}

// ScheduleStore provides schedule lookups.
type ScheduleStore interface {
	// MostRecentScheduleFor returns the latest-created schedule of
	// questionID for userID, or ErrNotFound when none exists.
	MostRecentScheduleFor(ctx context.Context, userID, questionID string) (*domain.Schedule, error)
}

// Writer holds the write operations used by seeding, the CLI and tests.
type Writer interface {
	CreateTag(ctx context.Context, t *domain.Tag) error
	CreateTagLineage(ctx context.Context, l domain.TagLineage) error
	CreateQuestion(ctx context.Context, q *domain.Question) error
	SetQuestionTag(ctx context.Context, qt domain.QuestionTag) error
	CreateSchedule(ctx context.Context, s *domain.Schedule) error
}

// Store is the full persistence surface of a backend.
type Store interface {
	TagStore
	QuestionStore
	ScheduleStore
	Writer

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
