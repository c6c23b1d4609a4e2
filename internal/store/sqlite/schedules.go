package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/store"
)

const scheduleColumns = `id, user_id, question_id, created_at, next_show_at, interval, interval_unit`

func scanSchedule(scanner interface{ Scan(dest ...any) error }) (*domain.Schedule, error) {
	var sc domain.Schedule

	var (
		createdAt  string
		nextShowAt string
		unit       string
	)

	err := scanner.Scan(
		&sc.ID,
		&sc.UserID,
		&sc.QuestionID,
		&createdAt,
		&nextShowAt,
		&sc.Interval,
		&unit,
	)
	if err != nil {
		return nil, err
	}

	sc.IntervalUnit = domain.IntervalUnit(unit)

	sc.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	sc.NextShowAt, err = parseTime(nextShowAt)
	if err != nil {
		return nil, err
	}

	return &sc, nil
}

// CreateSchedule appends a schedule to a question's history.
func (s *Store) CreateSchedule(ctx context.Context, sc *domain.Schedule) error {
	if sc.ID == "" || sc.UserID == "" || sc.QuestionID == "" {
		return store.ErrInvalidInput.WithMessage("schedule requires id, user_id and question_id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, user_id, question_id, created_at, next_show_at, interval, interval_unit)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID,
		sc.UserID,
		sc.QuestionID,
		formatTime(sc.CreatedAt),
		formatTime(sc.NextShowAt),
		sc.Interval,
		string(sc.IntervalUnit),
	)
	return mapConstraintError(err)
}

// MostRecentScheduleFor returns the latest-created schedule of a question.
// Schedules created at the same instant are ordered by insertion (rowid).
// Returns store.ErrNotFound if the question has never been scheduled.
func (s *Store) MostRecentScheduleFor(ctx context.Context, userID, questionID string) (*domain.Schedule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE user_id = ? AND question_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, userID, questionID)

	sc, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}
