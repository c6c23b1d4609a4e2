package domain

// Tag is a user-owned label applied to questions.
// Tags are never shared: every tag belongs to exactly one user.
type Tag struct {
	Record
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

// OwnedBy reports whether the tag belongs to userID.
func (t *Tag) OwnedBy(userID string) bool {
	return t.UserID == userID
}

// TagLineage is a directed parent -> child edge between two of a user's tags.
// The edge set may contain cycles; that is valid data, not corruption.
type TagLineage struct {
	UserID   string `json:"user_id"`
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
}
