package kv

import (
	"context"
	"fmt"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/store"
)

// CreateSchedule appends a schedule to a question's history.
func (s *Store) CreateSchedule(ctx context.Context, sc *domain.Schedule) error {
	if sc.ID == "" || sc.UserID == "" || sc.QuestionID == "" {
		return store.ErrInvalidInput.WithMessage("schedule requires id, user_id and question_id")
	}
	if _, err := s.questions.Get(ctx, sc.QuestionID); err != nil {
		return store.ErrInvalidInput.WithMessage("unknown question " + sc.QuestionID).WithCause(err)
	}

	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next schedule sequence: %w", err)
	}

	return s.schedules.Create(ctx, sc.ID, &scheduleRecord{Schedule: *sc, Seq: n})
}

// MostRecentScheduleFor returns the latest-created schedule of a question.
// Schedules created at the same instant are ordered by insertion sequence.
// Returns store.ErrNotFound if the question has never been scheduled.
func (s *Store) MostRecentScheduleFor(ctx context.Context, userID, questionID string) (*domain.Schedule, error) {
	records, err := s.schedules.ListByIndex(ctx, "question", userID+sep+questionID)
	if err != nil {
		return nil, err
	}

	var latest *scheduleRecord
	for _, r := range records {
		if r.UserID != userID || r.QuestionID != questionID {
			continue
		}
		if latest == nil || newerSchedule(r, latest) {
			latest = r
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}

	sc := latest.Schedule
	return &sc, nil
}

func newerSchedule(a, b *scheduleRecord) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}
