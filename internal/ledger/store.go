package ledger

import (
	"context"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Tally is the up/down vote count of an answer, always derived from stored votes.
type Tally struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Score is up minus down.
func (t Tally) Score() int {
	return t.Up - t.Down
}

// Store is the persistence the ledger runs against. Lookups of absent rows
// return ErrNotFound; uniqueness violations return ErrConflict.
type Store interface {
	// Transaction runs fn against a store bound to a single transaction.
	// Any error returned by fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetUser(ctx context.Context, id int) (models.User, error)
	GetQuestion(ctx context.Context, id int) (models.Question, error)
	// LockQuestion reads the question and holds a write lock on it until the
	// surrounding transaction ends.
	LockQuestion(ctx context.Context, id int) (models.Question, error)
	DeleteQuestion(ctx context.Context, id int) error

	GetAnswer(ctx context.Context, id int) (models.Answer, error)
	LockAnswer(ctx context.Context, id int) (models.Answer, error)
	ListAnswers(ctx context.Context, questionID int) ([]models.Answer, error)
	CreateAnswer(ctx context.Context, answer *models.Answer) error
	SetAccepted(ctx context.Context, answerID int, accepted bool) error
	// ClearAccepted resets accepted on every answer of the question except keepID.
	ClearAccepted(ctx context.Context, questionID, keepID int) error

	CreateVote(ctx context.Context, vote *models.Vote) error
	FindVote(ctx context.Context, userID, answerID int) (models.Vote, bool, error)
	UpdateVote(ctx context.Context, vote *models.Vote) error
	ListVotes(ctx context.Context, answerID int) ([]models.Vote, error)
	CountVotes(ctx context.Context, answerID int) (Tally, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Notifier delivers notifications after the ledger write that produced them
// has committed.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

type NotifierFunc func(ctx context.Context, n models.Notification)

func (f NotifierFunc) Notify(ctx context.Context, n models.Notification) {
	f(ctx, n)
}
