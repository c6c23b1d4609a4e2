package kv

import (
	"context"
	"sort"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/store"
)

// CreateQuestion stores a new question.
func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	if q.ID == "" || q.UserID == "" {
		return store.ErrInvalidInput.WithMessage("question requires id and user_id")
	}
	return s.questions.Create(ctx, q.ID, q)
}

// SetQuestionTag links a question to a tag, or flips the enabled flag of an
// existing link. Both ends must exist.
func (s *Store) SetQuestionTag(ctx context.Context, qt domain.QuestionTag) error {
	if _, err := s.questions.Get(ctx, qt.QuestionID); err != nil {
		return store.ErrInvalidInput.WithMessage("unknown question " + qt.QuestionID).WithCause(err)
	}
	if _, err := s.tags.Get(ctx, qt.TagID); err != nil {
		return store.ErrInvalidInput.WithMessage("unknown tag " + qt.TagID).WithCause(err)
	}
	return s.questionTags.Put(ctx, qt.QuestionID+sep+qt.TagID, &qt)
}

// taggedQuestionIDs returns the ids of questions with an enabled link to
// any tag in tagIDs. Ownership is not checked here.
func (s *Store) taggedQuestionIDs(ctx context.Context, tagIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, tagID := range uniqueSorted(tagIDs) {
		links, err := s.questionTags.ListByIndex(ctx, "tag", tagID)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			if !link.Enabled || link.TagID != tagID {
				continue
			}
			if _, ok := seen[link.QuestionID]; ok {
				continue
			}
			seen[link.QuestionID] = struct{}{}
			ids = append(ids, link.QuestionID)
		}
	}
	return ids, nil
}

// CountDistinctQuestionsByTagSet counts userID's questions with an enabled
// link to any tag in tagIDs, each question once.
func (s *Store) CountDistinctQuestionsByTagSet(ctx context.Context, userID string, tagIDs []string) (int, error) {
	questions, err := s.FindCandidates(ctx, userID, tagIDs)
	if err != nil {
		return 0, err
	}
	return len(questions), nil
}

// FindCandidates returns the de-duplicated question pool for tagIDs, oldest first.
func (s *Store) FindCandidates(ctx context.Context, userID string, tagIDs []string) ([]*domain.Question, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}

	ids, err := s.taggedQuestionIDs(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	all, err := s.questions.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	questions := all[:0]
	for _, q := range all {
		if q.UserID == userID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return questions, nil
}
