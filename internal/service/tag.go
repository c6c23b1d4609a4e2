package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/errors"
	"github.com/listenupapp/recall-server/internal/hierarchy"
	"github.com/listenupapp/recall-server/internal/id"
	"github.com/listenupapp/recall-server/internal/store"
	"github.com/listenupapp/recall-server/internal/util"
)

// TagService orchestrates per-user tag operations: the hierarchy closure,
// tag expansion and ownership checks.
// Tags are private: every operation is scoped to the requesting user.
type TagService struct {
	store  store.Store
	logger *slog.Logger
	clock  func() time.Time
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TagService{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// loadHierarchy builds the closure table from current storage state,
// without question counts.
func (s *TagService) loadHierarchy(ctx context.Context, userID string) (*hierarchy.Hierarchy, error) {
	tags, err := s.store.ListTagsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	edges, err := s.store.ListEdgesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tag edges: %w", err)
	}
	return hierarchy.Build(tags, edges), nil
}

// BuildTagHierarchy computes the closure table for userID's tags, with
// question counts. It is recomputed on every call.
func (s *TagService) BuildTagHierarchy(ctx context.Context, userID string) (*hierarchy.Hierarchy, error) {
	if userID == "" {
		return nil, errors.Validation("user id is required")
	}

	h, err := s.loadHierarchy(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, e := range h.Entries() {
		all, err := s.store.CountDistinctQuestionsByTagSet(ctx, userID, e.DescendantsAndSelf)
		if err != nil {
			return nil, fmt.Errorf("count questions under %s: %w", e.TagID, err)
		}
		direct, err := s.store.CountDistinctQuestionsByTagSet(ctx, userID, []string{e.TagID})
		if err != nil {
			return nil, fmt.Errorf("count questions on %s: %w", e.TagID, err)
		}
		h.SetCounts(e.TagID, all, direct)
	}

	s.logger.Debug("tag hierarchy built",
		"user_id", userID,
		"tag_count", h.Len(),
	)

	return h, nil
}

// ExpandTagIDs validates tagIDs for userID and returns each tag plus all of
// its descendants, sorted.
func (s *TagService) ExpandTagIDs(ctx context.Context, userID string, tagIDs []string) ([]string, error) {
	if err := s.ValidateTagOwnership(ctx, userID, tagIDs); err != nil {
		return nil, err
	}

	h, err := s.loadHierarchy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.Expand(tagIDs)
}

// ValidateTagOwnership checks that every id in tagIDs exists and belongs to
// userID. It fails with an *OwnershipError listing the offending ids.
func (s *TagService) ValidateTagOwnership(ctx context.Context, userID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}

	tags, err := s.store.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}

	found := make(map[string]*domain.Tag, len(tags))
	for _, t := range tags {
		found[t.ID] = t
	}

	notOwned := make(map[string]struct{})
	notExist := make(map[string]struct{})
	for _, tagID := range tagIDs {
		t, ok := found[tagID]
		switch {
		case !ok:
			notExist[tagID] = struct{}{}
		case !t.OwnedBy(userID):
			notOwned[tagID] = struct{}{}
		}
	}

	if len(notOwned) == 0 && len(notExist) == 0 {
		return nil
	}

	oerr := &OwnershipError{
		NotOwned: sortedKeys(notOwned),
		NotExist: sortedKeys(notExist),
	}
	s.logger.Info("tag ownership check failed",
		"user_id", userID,
		"not_owned", oerr.NotOwned,
		"not_exist", oerr.NotExist,
	)
	return oerr
}

// CreateTag creates a tag named name for userID. The name is normalized
// first and must not be empty afterwards.
func (s *TagService) CreateTag(ctx context.Context, userID, name string) (*domain.Tag, error) {
	if userID == "" {
		return nil, errors.Validation("user id is required")
	}

	// 1. Normalize the name.
	name = util.NormalizeTagName(name)
	if name == "" {
		return nil, errors.Validation("tag name is empty after normalization")
	}

	// 2. Build the record.
	tagID, err := id.Generate(id.PrefixTag)
	if err != nil {
		return nil, errors.Internal("generate tag id").WithCause(err)
	}
	t := &domain.Tag{Name: name, UserID: userID}
	t.ID = tagID
	t.InitTimestamps(s.clock())

	// 3. Persist.
	if err := s.store.CreateTag(ctx, t); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, errors.AlreadyExists(fmt.Sprintf("tag %q already exists", name)).WithCause(err)
		}
		return nil, fmt.Errorf("create tag: %w", err)
	}

	s.logger.Info("tag created",
		"tag_id", t.ID,
		"user_id", userID,
	)

	return t, nil
}

// LinkTags records parentID as a parent of childID. Both tags must belong to
// userID. Cycles are allowed; linking an existing pair is a no-op.
func (s *TagService) LinkTags(ctx context.Context, userID, parentID, childID string) error {
	if parentID == "" || childID == "" {
		return errors.Validation("parent and child tag ids are required")
	}
	if parentID == childID {
		return errors.Validationf("tag %s cannot be its own parent", parentID)
	}

	if err := s.ValidateTagOwnership(ctx, userID, []string{parentID, childID}); err != nil {
		return err
	}

	err := s.store.CreateTagLineage(ctx, domain.TagLineage{
		UserID:   userID,
		ParentID: parentID,
		ChildID:  childID,
	})
	if err != nil {
		return fmt.Errorf("create tag lineage: %w", err)
	}

	s.logger.Info("tags linked",
		"user_id", userID,
		"parent_id", parentID,
		"child_id", childID,
	)
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
