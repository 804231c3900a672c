package repository

// QuestionFilter selects a page of questions, newest first.
type QuestionFilter struct {
	// Query matches title, description or any tag, case-insensitively.
	Query  string
	Limit  int
	Offset int
}
