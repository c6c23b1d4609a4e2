package kv

import (
	"context"
	"sort"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/store"
)

// CreateTag stores a new tag.
// Returns store.ErrAlreadyExists when the id or the user's tag name is taken.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	if t.ID == "" || t.UserID == "" || t.Name == "" {
		return store.ErrInvalidInput.WithMessage("tag requires id, user_id and name")
	}
	return s.tags.Create(ctx, t.ID, t)
}

// ListTagsForUser returns all tags owned by userID ordered by id.
func (s *Store) ListTagsForUser(ctx context.Context, userID string) ([]*domain.Tag, error) {
	all, err := s.tags.ListByIndex(ctx, "user", userID)
	if err != nil {
		return nil, err
	}

	tags := all[:0]
	for _, t := range all {
		if t.UserID == userID {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags, nil
}

// GetTagsByIDs returns the existing tags among ids, whoever owns them.
func (s *Store) GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	tags, err := s.tags.GetMany(ctx, uniqueSorted(ids))
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateTagLineage records a parent -> child edge. Re-adding an existing
// edge is a no-op.
func (s *Store) CreateTagLineage(ctx context.Context, l domain.TagLineage) error {
	if l.UserID == "" || l.ParentID == "" || l.ChildID == "" {
		return store.ErrInvalidInput.WithMessage("lineage requires user_id, parent_id and child_id")
	}
	for _, tagID := range []string{l.ParentID, l.ChildID} {
		if _, err := s.tags.Get(ctx, tagID); err != nil {
			return store.ErrInvalidInput.WithMessage("unknown tag " + tagID).WithCause(err)
		}
	}
	return s.lineage.Put(ctx, l.UserID+sep+l.ParentID+sep+l.ChildID, &l)
}

// ListEdgesForUser returns every lineage edge scoped to userID.
func (s *Store) ListEdgesForUser(ctx context.Context, userID string) ([]domain.TagLineage, error) {
	all, err := s.lineage.ListByIndex(ctx, "user", userID)
	if err != nil {
		return nil, err
	}

	edges := make([]domain.TagLineage, 0, len(all))
	for _, l := range all {
		if l.UserID == userID {
			edges = append(edges, *l)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].ParentID != edges[j].ParentID {
			return edges[i].ParentID < edges[j].ParentID
		}
		return edges[i].ChildID < edges[j].ChildID
	})
	return edges, nil
}

// uniqueSorted returns the distinct values of ids in ascending order.
func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
