package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/selection"
	"github.com/listenupapp/recall-server/internal/service"
)

func (s *Server) registerQuestionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "selectNextQuestion",
		Method:      http.MethodPost,
		Path:        "/api/v1/questions/next",
		Summary:     "Select next question",
		Description: "Picks the question to show next among the questions tagged with the selection or its descendants",
		Tags:        []string{"Questions"},
	}, s.handleSelectNextQuestion)
}

// === DTOs ===

// NextQuestionRequest is the request body for selecting a question.
type NextQuestionRequest struct {
	TagIDs []string `json:"tag_ids,omitempty" validate:"max=500,dive,tagid" doc:"Tag IDs; empty selects every tag of the caller"`
	Mode   string   `json:"mode,omitempty" doc:"next (default), overdue, unscheduled or upcoming"`
}

// NextQuestionInput wraps the selection request for Huma.
type NextQuestionInput struct {
	UserID string `header:"X-User-ID" doc:"Calling user"`
	Body   NextQuestionRequest
}

// QuestionResponse contains question data in API responses.
type QuestionResponse struct {
	ID        string    `json:"id" doc:"Question ID"`
	Body      string    `json:"body" doc:"Question text"`
	AnswerID  string    `json:"answer_id,omitempty" doc:"Linked answer ID"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
}

// ScheduleResponse contains the authoritative schedule of a question.
type ScheduleResponse struct {
	ID           string    `json:"id" doc:"Schedule ID"`
	NextShowAt   time.Time `json:"next_show_at" doc:"When the question is due"`
	Interval     int       `json:"interval" doc:"Review interval"`
	IntervalUnit string    `json:"interval_unit" doc:"Unit of the review interval"`
	CreatedAt    time.Time `json:"created_at" doc:"When the schedule was recorded"`
}

// NextQuestionResponse is the selection result.
type NextQuestionResponse struct {
	Question        *QuestionResponse `json:"question" doc:"Selected question, null when nothing matched"`
	Schedule        *ScheduleResponse `json:"schedule,omitempty" doc:"Schedule of the selected question, absent when unscheduled"`
	Bucket          string            `json:"bucket" doc:"overdue, unscheduled, upcoming, or empty"`
	OverdueCount    int               `json:"overdue_count" doc:"Candidates due now"`
	CandidateCount  int               `json:"candidate_count" doc:"Questions in the pool"`
	MatchedTagNames []string          `json:"matched_tag_names" doc:"Names of the requested tags, before expansion"`
}

// NextQuestionOutput wraps the selection response for Huma.
type NextQuestionOutput struct {
	Body NextQuestionResponse
}

// === Handlers ===

func (s *Server) handleSelectNextQuestion(ctx context.Context, input *NextQuestionInput) (*NextQuestionOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, toAPIError(err)
	}

	result, err := s.services.Question.SelectNextQuestion(ctx, service.SelectRequest{
		UserID: userID,
		TagIDs: input.Body.TagIDs,
		Mode:   input.Body.Mode,
	}, s.clock())
	if err != nil {
		return nil, toAPIError(err)
	}

	return &NextQuestionOutput{Body: toNextQuestionResponse(result)}, nil
}

func toNextQuestionResponse(r selection.Result) NextQuestionResponse {
	resp := NextQuestionResponse{
		Bucket:          string(r.Bucket),
		OverdueCount:    r.OverdueCount,
		CandidateCount:  r.CandidateCount,
		MatchedTagNames: orEmpty(r.MatchedTagNames),
	}
	if r.Question != nil {
		resp.Question = toQuestionResponse(r.Question)
	}
	if r.Schedule != nil {
		resp.Schedule = toScheduleResponse(r.Schedule)
	}
	return resp
}

func toQuestionResponse(q *domain.Question) *QuestionResponse {
	return &QuestionResponse{
		ID:        q.ID,
		Body:      q.Body,
		AnswerID:  q.AnswerID,
		CreatedAt: q.CreatedAt,
	}
}

func toScheduleResponse(sch *domain.Schedule) *ScheduleResponse {
	return &ScheduleResponse{
		ID:           sch.ID,
		NextShowAt:   sch.NextShowAt,
		Interval:     sch.Interval,
		IntervalUnit: string(sch.IntervalUnit),
		CreatedAt:    sch.CreatedAt,
	}
}
