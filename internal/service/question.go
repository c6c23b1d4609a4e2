package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/errors"
	"github.com/listenupapp/recall-server/internal/selection"
	"github.com/listenupapp/recall-server/internal/store"
)

// QuestionService picks the next question a user should answer.
type QuestionService struct {
	store  store.Store
	tags   *TagService
	logger *slog.Logger
}

// NewQuestionService creates a new question service.
func NewQuestionService(store store.Store, tags *TagService, logger *slog.Logger) *QuestionService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &QuestionService{
		store:  store,
		tags:   tags,
		logger: logger,
	}
}

// SelectRequest describes one selection. An empty TagIDs selects every tag
// the user owns. An empty Mode means selection.ModeNext.
type SelectRequest struct {
	UserID string
	TagIDs []string
	Mode   string
}

// SelectNextQuestion returns the question userID should see next among the
// questions tagged with req.TagIDs or any of their descendants.
//
// A result with a nil Question means nothing matched. Invalid modes and
// unusable tag ids fail before any question is read.
func (s *QuestionService) SelectNextQuestion(ctx context.Context, req SelectRequest, now time.Time) (selection.Result, error) {
	if req.UserID == "" {
		return selection.Result{}, errors.Validation("user id is required")
	}

	// 1. Parse the mode.
	mode, err := selection.ParseMode(req.Mode)
	if err != nil {
		return selection.Result{}, err
	}

	// 2. Gate the input tags.
	if err := s.tags.ValidateTagOwnership(ctx, req.UserID, req.TagIDs); err != nil {
		return selection.Result{}, err
	}

	// 3. Expand the selection through the hierarchy.
	h, err := s.tags.loadHierarchy(ctx, req.UserID)
	if err != nil {
		return selection.Result{}, err
	}
	selected := req.TagIDs
	if len(selected) == 0 {
		selected = make([]string, 0, h.Len())
		for _, e := range h.Entries() {
			selected = append(selected, e.TagID)
		}
	}
	expanded, err := h.Expand(selected)
	if err != nil {
		return selection.Result{}, err
	}

	// 4. Narrow to the candidate pool and annotate schedules.
	pool, err := s.store.FindCandidates(ctx, req.UserID, expanded)
	if err != nil {
		return selection.Result{}, fmt.Errorf("find candidates: %w", err)
	}
	candidates := make([]selection.Candidate, 0, len(pool))
	for _, q := range pool {
		sc, err := s.latestSchedule(ctx, req.UserID, q)
		if err != nil {
			return selection.Result{}, err
		}
		candidates = append(candidates, selection.Candidate{Question: q, Schedule: sc})
	}

	// 5. Pick.
	res, err := selection.Select(mode, candidates, now)
	if err != nil {
		return selection.Result{}, err
	}

	names := make([]string, 0, len(selected))
	seen := make(map[string]struct{}, len(selected))
	for _, tagID := range selected {
		if _, dup := seen[tagID]; dup {
			continue
		}
		seen[tagID] = struct{}{}
		if e, ok := h.Entry(tagID); ok {
			names = append(names, e.TagName)
		}
	}
	sort.Strings(names)
	res.MatchedTagNames = names

	s.logger.Debug("next question selected",
		"user_id", req.UserID,
		"mode", mode,
		"bucket", res.Bucket,
		"candidate_count", res.CandidateCount,
		"overdue_count", res.OverdueCount,
	)

	return res, nil
}

// latestSchedule returns q's authoritative schedule, or nil when it has
// none. A schedule that belongs to another user or question is treated as
// absent.
func (s *QuestionService) latestSchedule(ctx context.Context, userID string, q *domain.Question) (*domain.Schedule, error) {
	sc, err := s.store.MostRecentScheduleFor(ctx, userID, q.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule for %s: %w", q.ID, err)
	}
	if sc.UserID != userID || sc.QuestionID != q.ID {
		s.logger.Warn("ignoring mismatched schedule",
			"schedule_id", sc.ID,
			"user_id", userID,
			"question_id", q.ID,
		)
		return nil, nil
	}
	return sc, nil
}
