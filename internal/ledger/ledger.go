// Package ledger owns the answers of a question, the votes cast on them and
// the single accepted answer per question.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type Ledger struct {
	store    Store
	opts     Options
	notifier Notifier
	logger   *slog.Logger
}

// New validates opts and returns a ledger writing through store. A nil
// notifier drops notifications after they are stored.
func New(store Store, opts Options, notifier Notifier, logger *slog.Logger) (*Ledger, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, models.Notification) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, opts: opts, notifier: notifier, logger: logger}, nil
}

func (l *Ledger) Options() Options {
	return l.opts
}

// RankedAnswer is an answer together with its current tally.
type RankedAnswer struct {
	models.Answer
	Tally Tally `json:"votes"`
}

// CastVote records a vote by voterID on answerID and returns the new tally.
func (l *Ledger) CastVote(ctx context.Context, voterID, answerID int, direction string) (Tally, error) {
	if voterID <= 0 {
		return Tally{}, ErrUnauthenticated
	}
	if direction != models.VoteUp && direction != models.VoteDown {
		return Tally{}, fmt.Errorf("vote direction %q: %w", direction, ErrInvalidInput)
	}

	var tally Tally
	err := l.store.Transaction(ctx, func(tx Store) error {
		if _, err := requireUser(ctx, tx, voterID); err != nil {
			return err
		}
		if l.opts.VotePolicy == VoteUpsert {
			if err := upsertVote(ctx, tx, voterID, answerID, direction); err != nil {
				return err
			}
		} else {
			if _, err := tx.GetAnswer(ctx, answerID); err != nil {
				return err
			}
			vote := models.Vote{UserID: voterID, AnswerID: answerID, VoteType: direction}
			if err := tx.CreateVote(ctx, &vote); err != nil {
				return err
			}
		}
		var err error
		tally, err = tx.CountVotes(ctx, answerID)
		return err
	})
	if err != nil {
		return Tally{}, err
	}

	l.logger.Debug("vote recorded", "answer_id", answerID, "user_id", voterID, "direction", direction)
	return tally, nil
}

func upsertVote(ctx context.Context, tx Store, voterID, answerID int, direction string) error {
	// The answer lock serialises concurrent upserts by the same voter.
	if _, err := tx.LockAnswer(ctx, answerID); err != nil {
		return err
	}
	existing, found, err := tx.FindVote(ctx, voterID, answerID)
	if err != nil {
		return err
	}
	if !found {
		vote := models.Vote{UserID: voterID, AnswerID: answerID, VoteType: direction}
		return tx.CreateVote(ctx, &vote)
	}
	if existing.VoteType == direction {
		return nil
	}
	existing.VoteType = direction
	return tx.UpdateVote(ctx, &existing)
}

// Tally recomputes the vote counts of an answer from its stored votes.
func (l *Ledger) Tally(ctx context.Context, answerID int) (Tally, error) {
	if _, err := l.store.GetAnswer(ctx, answerID); err != nil {
		return Tally{}, err
	}
	return l.store.CountVotes(ctx, answerID)
}

// Votes lists the raw vote rows behind an answer's tally.
func (l *Ledger) Votes(ctx context.Context, answerID int) ([]models.Vote, error) {
	if _, err := l.store.GetAnswer(ctx, answerID); err != nil {
		return nil, err
	}
	return l.store.ListVotes(ctx, answerID)
}

// AcceptAnswer marks answerID as the accepted answer of questionID. The
// question row stays locked for the whole read-modify-write so at most one
// answer per question is ever accepted.
func (l *Ledger) AcceptAnswer(ctx context.Context, actorID, questionID, answerID int) (models.Answer, error) {
	if actorID <= 0 {
		return models.Answer{}, ErrUnauthenticated
	}

	var (
		accepted models.Answer
		pending  []models.Notification
	)
	err := l.store.Transaction(ctx, func(tx Store) error {
		actor, err := requireUser(ctx, tx, actorID)
		if err != nil {
			return err
		}
		question, answer, err := l.lockPair(ctx, tx, questionID, answerID)
		if err != nil {
			return err
		}
		if err := l.authorize(actor, question); err != nil {
			return err
		}
		if answer.Accepted {
			accepted = answer
			return nil
		}

		if l.opts.AcceptPolicy == AcceptReject {
			answers, err := tx.ListAnswers(ctx, questionID)
			if err != nil {
				return err
			}
			for _, a := range answers {
				if a.Accepted && a.ID != answerID {
					return fmt.Errorf("question %d already has accepted answer %d: %w", questionID, a.ID, ErrConflict)
				}
			}
		} else if err := tx.ClearAccepted(ctx, questionID, answerID); err != nil {
			return err
		}

		if err := tx.SetAccepted(ctx, answerID, true); err != nil {
			return err
		}
		answer.Accepted = true
		accepted = answer

		if answer.UserID != actor.ID {
			n := models.Notification{
				UserID:  answer.UserID,
				Message: fmt.Sprintf("Your answer was accepted on '%s'", question.Title),
			}
			if err := tx.CreateNotification(ctx, &n); err != nil {
				return err
			}
			pending = append(pending, n)
		}
		return nil
	})
	if err != nil {
		return models.Answer{}, err
	}

	l.dispatch(ctx, pending)
	l.logger.Info("answer accepted", "question_id", questionID, "answer_id", answerID, "actor_id", actorID)
	return accepted, nil
}

// UnacceptAnswer returns an accepted answer to pending.
func (l *Ledger) UnacceptAnswer(ctx context.Context, actorID, questionID, answerID int) (models.Answer, error) {
	if actorID <= 0 {
		return models.Answer{}, ErrUnauthenticated
	}

	var result models.Answer
	err := l.store.Transaction(ctx, func(tx Store) error {
		actor, err := requireUser(ctx, tx, actorID)
		if err != nil {
			return err
		}
		question, answer, err := l.lockPair(ctx, tx, questionID, answerID)
		if err != nil {
			return err
		}
		if err := l.authorize(actor, question); err != nil {
			return err
		}
		if answer.Accepted {
			if err := tx.SetAccepted(ctx, answerID, false); err != nil {
				return err
			}
			answer.Accepted = false
		}
		result = answer
		return nil
	})
	if err != nil {
		return models.Answer{}, err
	}
	return result, nil
}

// PostAnswer creates a pending answer on questionID and notifies the
// question owner when someone else answered.
func (l *Ledger) PostAnswer(ctx context.Context, authorID, questionID int, content string) (models.Answer, error) {
	if authorID <= 0 {
		return models.Answer{}, ErrUnauthenticated
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Answer{}, fmt.Errorf("empty answer: %w", ErrInvalidInput)
	}

	var (
		answer  models.Answer
		pending []models.Notification
	)
	err := l.store.Transaction(ctx, func(tx Store) error {
		author, err := requireUser(ctx, tx, authorID)
		if err != nil {
			return err
		}
		question, err := tx.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}

		answer = models.Answer{Content: content, QuestionID: question.ID, UserID: author.ID}
		if err := tx.CreateAnswer(ctx, &answer); err != nil {
			return err
		}
		answer.User = author

		if question.UserID != author.ID {
			n := models.Notification{
				UserID:  question.UserID,
				Message: fmt.Sprintf("%s answered your question.", author.Username),
			}
			if err := tx.CreateNotification(ctx, &n); err != nil {
				return err
			}
			pending = append(pending, n)
		}
		return nil
	})
	if err != nil {
		return models.Answer{}, err
	}

	l.dispatch(ctx, pending)
	return answer, nil
}

// Answers returns the answers of a question ranked accepted first, then by
// score, then oldest first.
func (l *Ledger) Answers(ctx context.Context, questionID int) ([]RankedAnswer, error) {
	if _, err := l.store.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	answers, err := l.store.ListAnswers(ctx, questionID)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedAnswer, 0, len(answers))
	for _, a := range answers {
		tally, err := l.store.CountVotes(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, RankedAnswer{Answer: a, Tally: tally})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Accepted != b.Accepted {
			return a.Accepted
		}
		if a.Tally.Score() != b.Tally.Score() {
			return a.Tally.Score() > b.Tally.Score()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return ranked, nil
}

// DeleteQuestion removes a question with its answers and their votes. Admin only.
func (l *Ledger) DeleteQuestion(ctx context.Context, actorID, questionID int) error {
	if actorID <= 0 {
		return ErrUnauthenticated
	}
	err := l.store.Transaction(ctx, func(tx Store) error {
		actor, err := requireUser(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin {
			return ErrForbidden
		}
		if _, err := tx.LockQuestion(ctx, questionID); err != nil {
			return err
		}
		return tx.DeleteQuestion(ctx, questionID)
	})
	if err != nil {
		return err
	}
	l.logger.Info("question deleted", "question_id", questionID, "actor_id", actorID)
	return nil
}

func (l *Ledger) lockPair(ctx context.Context, tx Store, questionID, answerID int) (models.Question, models.Answer, error) {
	question, err := tx.LockQuestion(ctx, questionID)
	if err != nil {
		return models.Question{}, models.Answer{}, err
	}
	answer, err := tx.GetAnswer(ctx, answerID)
	if err != nil {
		return models.Question{}, models.Answer{}, err
	}
	if answer.QuestionID != question.ID {
		return models.Question{}, models.Answer{}, fmt.Errorf("answer %d does not belong to question %d: %w", answerID, questionID, ErrNotFound)
	}
	return question, answer, nil
}

func (l *Ledger) authorize(actor models.User, question models.Question) error {
	if l.opts.AcceptAuthority == AcceptByOwner && actor.ID != question.UserID && !actor.IsAdmin {
		return ErrForbidden
	}
	return nil
}

func (l *Ledger) dispatch(ctx context.Context, pending []models.Notification) {
	for _, n := range pending {
		l.notifier.Notify(ctx, n)
	}
}

func requireUser(ctx context.Context, st Store, id int) (models.User, error) {
	user, err := st.GetUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return models.User{}, ErrUnauthenticated
	}
	return user, err
}
