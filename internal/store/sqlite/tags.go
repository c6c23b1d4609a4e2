package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/listenupapp/recall-server/internal/domain"
	"github.com/listenupapp/recall-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, user_id, name, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag.
// Returns store.ErrAlreadyExists when the user already has a tag with that name.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	if t.ID == "" || t.UserID == "" || t.Name == "" {
		return store.ErrInvalidInput.WithMessage("tag requires id, user_id and name")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, user_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.Name,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	return mapConstraintError(err)
}

// ListTagsForUser returns all tags owned by userID ordered by id.
func (s *Store) ListTagsForUser(ctx context.Context, userID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

// GetTagsByIDs returns the existing tags among ids, whoever owns them.
func (s *Store) GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := queryBuilder().
		Select(tagColumns).
		From("tags").
		Where(sq.Eq{"id": ids}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tags query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get tags by ids: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

func collectTags(rows *sql.Rows) ([]*domain.Tag, error) {
	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO tag_lineage (user_id, parent_id, child_id)
		VALUES (?, ?, ?)`,
		l.UserID,
		l.ParentID,
		l.ChildID,
	)
	return mapConstraintError(err)
}

// ListEdgesForUser returns every lineage edge scoped to userID.
func (s *Store) ListEdgesForUser(ctx context.Context, userID string) ([]domain.TagLineage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, parent_id, child_id
		FROM tag_lineage
		WHERE user_id = ?
		ORDER BY parent_id ASC, child_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	var edges []domain.TagLineage
	for rows.Next() {
		var l domain.TagLineage
		if err := rows.Scan(&l.UserID, &l.ParentID, &l.ChildID); err != nil {
			return nil, err
		}
		edges = append(edges, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return edges, nil
}
