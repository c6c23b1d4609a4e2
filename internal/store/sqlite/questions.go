package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/store"
)

// questionColumns is qualified with the q alias because candidate queries
// join question_tags. Must match the scan order in scanQuestion.
const questionColumns = `q.id, q.user_id, q.body, q.answer_id, q.created_at, q.updated_at`

func scanQuestion(scanner interface{ Scan(dest ...any) error }) (*domain.Question, error) {
	var q domain.Question

	var (
		answerID  sql.NullString
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&q.ID,
		&q.UserID,
		&q.Body,
		&answerID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.AnswerID = answerID.String

	q.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	q.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &q, nil
}

// CreateQuestion inserts a new question.
func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	if q.ID == "" || q.UserID == "" {
		return store.ErrInvalidInput.WithMessage("question requires id and user_id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (id, user_id, body, answer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID,
		q.UserID,
		q.Body,
		nullString(q.AnswerID),
		formatTime(q.CreatedAt),
		formatTime(q.UpdatedAt),
	)
	return mapConstraintError(err)
}

// SetQuestionTag links a question to a tag, or flips the enabled flag of an
// existing link.
func (s *Store) SetQuestionTag(ctx context.Context, qt domain.QuestionTag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO question_tags (question_id, tag_id, enabled)
		VALUES (?, ?, ?)
		ON CONFLICT (question_id, tag_id) DO UPDATE SET enabled = excluded.enabled`,
		qt.QuestionID,
		qt.TagID,
		qt.Enabled,
	)
	return mapConstraintError(err)
}

// taggedQuestions selects userID's questions joined to enabled links whose
// tag is in tagIDs.
func taggedQuestions(columns, userID string, tagIDs []string) sq.SelectBuilder {
	return queryBuilder().
		Select(columns).
		From("questions q").
		Join("question_tags qt ON qt.question_id = q.id").
		Where(sq.Eq{
			"q.user_id":  userID,
			"qt.enabled": true,
			"qt.tag_id":  tagIDs,
		})
}

// CountDistinctQuestionsByTagSet counts userID's questions with an enabled
// link to any tag in tagIDs. A question reachable through several tags in
// the set counts once.
func (s *Store) CountDistinctQuestionsByTagSet(ctx context.Context, userID string, tagIDs []string) (int, error) {
	if len(tagIDs) == 0 {
		return 0, nil
	}

	query, args, err := taggedQuestions("COUNT(DISTINCT q.id)", userID, tagIDs).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// FindCandidates returns the de-duplicated question pool for tagIDs, oldest first.
func (s *Store) FindCandidates(ctx context.Context, userID string, tagIDs []string) ([]*domain.Question, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}

	query, args, err := taggedQuestions(questionColumns, userID, tagIDs).
		Distinct().
		OrderBy("q.created_at ASC", "q.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidates query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	defer rows.Close()

	var questions []*domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return questions, nil
}
