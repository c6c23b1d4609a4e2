package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/hierarchy"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getTagHierarchy",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/hierarchy",
		Summary:     "Get tag hierarchy",
		Description: "Returns every tag of the caller with its closure and question counts",
		Tags:        []string{"Tags"},
	}, s.handleGetTagHierarchy)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags",
		Summary:       "Create tag",
		Description:   "Creates a tag with a normalized name, unique per user",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "linkTags",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags/links",
		Summary:       "Link tags",
		Description:   "Adds a parent to child edge between two of the caller's tags",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleLinkTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "expandTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/expand",
		Summary:     "Expand tags",
		Description: "Returns the given tags together with all of their descendants",
		Tags:        []string{"Tags"},
	}, s.handleExpandTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "validateTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/validate",
		Summary:     "Validate tag ownership",
		Description: "Succeeds when every tag exists and belongs to the caller",
		Tags:        []string{"Tags"},
	}, s.handleValidateTags)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID        string    `json:"id" doc:"Tag ID"`
	Name      string    `json:"name" doc:"Tag name"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// TagOutput wraps the tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// TagHierarchyEntry is one tag with its closure.
type TagHierarchyEntry struct {
	TagID              string   `json:"tag_id" doc:"Tag ID"`
	TagName            string   `json:"tag_name" doc:"Tag name"`
	Children           []string `json:"children" doc:"Direct child tag IDs"`
	Parents            []string `json:"parents" doc:"Direct parent tag IDs"`
	Ancestors          []string `json:"ancestors" doc:"All tags that reach this one"`
	Descendants        []string `json:"descendants" doc:"All tags reachable from this one"`
	DescendantsAndSelf []string `json:"descendants_and_self" doc:"Descendants plus this tag"`
	CountQuestionsAll  int      `json:"count_questions_all" doc:"Distinct questions tagged with this tag or a descendant"`
	CountQuestionsTag  int      `json:"count_questions_tag" doc:"Distinct questions tagged with this tag directly"`
}

// TagHierarchyResponse lists hierarchy entries sorted by tag ID.
type TagHierarchyResponse struct {
	Entries []TagHierarchyEntry `json:"entries" doc:"Hierarchy entries sorted by tag ID"`
}

// TagHierarchyOutput wraps the hierarchy response for Huma.
type TagHierarchyOutput struct {
	Body TagHierarchyResponse
}

// UserInput identifies the caller.
type UserInput struct {
	UserID string `header:"X-User-ID" doc:"Calling user"`
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name string `json:"name" validate:"required,max=100" doc:"Tag name"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	UserID string `header:"X-User-ID" doc:"Calling user"`
	Body   CreateTagRequest
}

// LinkTagsRequest is the request body for linking two tags.
type LinkTagsRequest struct {
	ParentID string `json:"parent_id" validate:"tagid" doc:"Parent tag ID"`
	ChildID  string `json:"child_id" validate:"tagid" doc:"Child tag ID"`
}

// LinkTagsInput wraps the link request for Huma.
type LinkTagsInput struct {
	UserID string `header:"X-User-ID" doc:"Calling user"`
	Body   LinkTagsRequest
}

// TagIDsRequest carries a tag selection.
type TagIDsRequest struct {
	TagIDs []string `json:"tag_ids,omitempty" validate:"max=500,dive,tagid" doc:"Tag IDs"`
}

// TagIDsInput wraps a tag selection for Huma.
type TagIDsInput struct {
	UserID string `header:"X-User-ID" doc:"Calling user"`
	Body   TagIDsRequest
}

// ExpandTagsResponse contains the expanded selection.
type ExpandTagsResponse struct {
	TagIDs []string `json:"tag_ids" doc:"Sorted union of the tags and their descendants"`
}

// ExpandTagsOutput wraps the expand response for Huma.
type ExpandTagsOutput struct {
	Body ExpandTagsResponse
}

// ValidateTagsResponse reports a successful ownership check.
type ValidateTagsResponse struct {
	Valid bool `json:"valid" doc:"Always true; failures are returned as 403 or 404"`
}

// ValidateTagsOutput wraps the validate response for Huma.
type ValidateTagsOutput struct {
	Body ValidateTagsResponse
}

// MessageOutput is an empty response.
type MessageOutput struct{}

// === Handlers ===

func (s *Server) handleGetTagHierarchy(ctx context.Context, input *UserInput) (*TagHierarchyOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}

	h, err := s.services.Tag.BuildTagHierarchy(ctx, userID)
	if err != nil {
		return nil, toAPIError(err)
	}

	entries := make([]TagHierarchyEntry, 0, h.Len())
	for _, e := range h.Entries() {
		entries = append(entries, toHierarchyEntry(e))
	}

	return &TagHierarchyOutput{Body: TagHierarchyResponse{Entries: entries}}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, toAPIError(err)
	}

	tag, err := s.services.Tag.CreateTag(ctx, userID, input.Body.Name)
	if err != nil {
		return nil, toAPIError(err)
	}

	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleLinkTags(ctx context.Context, input *LinkTagsInput) (*MessageOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, toAPIError(err)
	}

	if err := s.services.Tag.LinkTags(ctx, userID, input.Body.ParentID, input.Body.ChildID); err != nil {
		return nil, toAPIError(err)
	}

	return &MessageOutput{}, nil
}

func (s *Server) handleExpandTags(ctx context.Context, input *TagIDsInput) (*ExpandTagsOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, toAPIError(err)
	}

	// Foreign ids must report FORBIDDEN, not the hierarchy's NOT_FOUND.
	if err := s.services.Tag.ValidateTagOwnership(ctx, userID, input.Body.TagIDs); err != nil {
		return nil, toAPIError(err)
	}

	expanded, err := s.services.Tag.ExpandTagIDs(ctx, userID, input.Body.TagIDs)
	if err != nil {
		return nil, toAPIError(err)
	}

	return &ExpandTagsOutput{Body: ExpandTagsResponse{TagIDs: orEmpty(expanded)}}, nil
}

func (s *Server) handleValidateTags(ctx context.Context, input *TagIDsInput) (*ValidateTagsOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, toAPIError(err)
	}

	if err := s.services.Tag.ValidateTagOwnership(ctx, userID, input.Body.TagIDs); err != nil {
		return nil, toAPIError(err)
	}

	return &ValidateTagsOutput{Body: ValidateTagsResponse{Valid: true}}, nil
}

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toHierarchyEntry(e *hierarchy.Entry) TagHierarchyEntry {
	return TagHierarchyEntry{
		TagID:              e.TagID,
		TagName:            e.TagName,
		Children:           orEmpty(e.Children),
		Parents:            orEmpty(e.Parents),
		Ancestors:          orEmpty(e.Ancestors),
		Descendants:        orEmpty(e.Descendants),
		DescendantsAndSelf: orEmpty(e.DescendantsAndSelf),
		CountQuestionsAll:  e.CountQuestionsAll,
		CountQuestionsTag:  e.CountQuestionsTag,
	}
}
