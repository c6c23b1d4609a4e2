package domain

// Question is a prompt owned by a single user.
type Question struct {
	Record
	UserID   string `json:"user_id"`
	Body     string `json:"body"`
	AnswerID string `json:"answer_id,omitempty"` // Optional link to an answer entity
}

// QuestionTag links a question to a tag. A disabled link is kept for
// history but is ignored by filtering and counting.
type QuestionTag struct {
	QuestionID string `json:"question_id"`
	TagID      string `json:"tag_id"`
	Enabled    bool   `json:"enabled"`
}
