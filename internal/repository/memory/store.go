// Package memory is an in-process store with the same contract as the
// postgres repository. It backs tests and STORAGE=memory development runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/repository"
)

type data struct {
	users         map[int]models.User
	questions     map[int]models.Question
	answers       map[int]models.Answer
	votes         map[int]models.Vote
	notifications map[int]models.Notification
	seq           map[string]int
}

func newData() *data {
	return &data{
		users:         map[int]models.User{},
		questions:     map[int]models.Question{},
		answers:       map[int]models.Answer{},
		votes:         map[int]models.Vote{},
		notifications: map[int]models.Notification{},
		seq:           map[string]int{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.questions {
		v.Tags = append(v.Tags[:0:0], v.Tags...)
		c.questions[k] = v
	}
	for k, v := range d.answers {
		c.answers[k] = v
	}
	for k, v := range d.votes {
		c.votes[k] = v
	}
	for k, v := range d.notifications {
		c.notifications[k] = v
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	return c
}

func (d *data) next(table string) int {
	d.seq[table]++
	return d.seq[table]
}

type Store struct {
	mu   *sync.Mutex
	data *data
	inTx bool
	now  func() time.Time
}

func New() *Store {
	return &Store{
		mu:   &sync.Mutex{},
		data: newData(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// lock is a no-op inside Transaction, where the parent already holds mu.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Transaction holds the store lock for the duration of fn and restores the
// previous state if fn fails.
func (s *Store) Transaction(ctx context.Context, fn func(tx ledger.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()
	for _, u := range s.data.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("user %q: %w", user.Username, ledger.ErrConflict)
		}
	}
	user.ID = s.data.next("users")
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	s.data.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int) (models.User, error) {
	defer s.lock()()
	u, ok := s.data.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, ledger.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	defer s.lock()()
	for _, u := range s.data.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %q: %w", email, ledger.ErrNotFound)
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	defer s.lock()()
	users := make([]models.User, 0, len(s.data.users))
	for _, u := range s.data.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Questions

func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	defer s.lock()()
	if _, ok := s.data.users[q.UserID]; !ok {
		return fmt.Errorf("question owner %d: %w", q.UserID, ledger.ErrNotFound)
	}
	q.ID = s.data.next("questions")
	q.CreatedAt = s.now()
	stored := *q
	stored.User = models.User{}
	s.data.questions[q.ID] = stored
	q.User = s.data.users[q.UserID]
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id int) (models.Question, error) {
	defer s.lock()()
	return s.data.question(id)
}

func (s *Store) LockQuestion(ctx context.Context, id int) (models.Question, error) {
	return s.GetQuestion(ctx, id)
}

func (d *data) question(id int) (models.Question, error) {
	q, ok := d.questions[id]
	if !ok {
		return models.Question{}, fmt.Errorf("question %d: %w", id, ledger.ErrNotFound)
	}
	q.User = d.users[q.UserID]
	return q, nil
}

func (s *Store) ListQuestions(ctx context.Context, filter repository.QuestionFilter) ([]models.Question, int64, error) {
	defer s.lock()()
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	var matched []models.Question
	for id := range s.data.questions {
		q, _ := s.data.question(id)
		if query == "" || matches(q, query) {
			matched = append(matched, q)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if filter.Offset < 0 {
		return nil, 0, fmt.Errorf("offset %d: %w", filter.Offset, ledger.ErrInvalidInput)
	}
	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []models.Question{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func matches(q models.Question, query string) bool {
	if strings.Contains(strings.ToLower(q.Title), query) ||
		strings.Contains(strings.ToLower(q.Description), query) {
		return true
	}
	return strings.Contains(strings.ToLower(strings.Join(q.Tags, ",")), query)
}

func (s *Store) DeleteQuestion(ctx context.Context, id int) error {
	defer s.lock()()
	if _, ok := s.data.questions[id]; !ok {
		return fmt.Errorf("question %d: %w", id, ledger.ErrNotFound)
	}
	for aid, a := range s.data.answers {
		if a.QuestionID != id {
			continue
		}
		for vid, v := range s.data.votes {
			if v.AnswerID == aid {
				delete(s.data.votes, vid)
			}
		}
		delete(s.data.answers, aid)
	}
	delete(s.data.questions, id)
	return nil
}

// Answers

func (s *Store) GetAnswer(ctx context.Context, id int) (models.Answer, error) {
	defer s.lock()()
	a, ok := s.data.answers[id]
	if !ok {
		return models.Answer{}, fmt.Errorf("answer %d: %w", id, ledger.ErrNotFound)
	}
	a.User = s.data.users[a.UserID]
	return a, nil
}

func (s *Store) LockAnswer(ctx context.Context, id int) (models.Answer, error) {
	return s.GetAnswer(ctx, id)
}

func (s *Store) ListAnswers(ctx context.Context, questionID int) ([]models.Answer, error) {
	defer s.lock()()
	answers := []models.Answer{}
	for _, a := range s.data.answers {
		if a.QuestionID == questionID {
			a.User = s.data.users[a.UserID]
			answers = append(answers, a)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if !answers[i].CreatedAt.Equal(answers[j].CreatedAt) {
			return answers[i].CreatedAt.Before(answers[j].CreatedAt)
		}
		return answers[i].ID < answers[j].ID
	})
	return answers, nil
}

func (s *Store) CreateAnswer(ctx context.Context, answer *models.Answer) error {
	defer s.lock()()
	if _, ok := s.data.questions[answer.QuestionID]; !ok {
		return fmt.Errorf("question %d: %w", answer.QuestionID, ledger.ErrNotFound)
	}
	answer.ID = s.data.next("answers")
	answer.CreatedAt = s.now()
	stored := *answer
	stored.User = models.User{}
	s.data.answers[answer.ID] = stored
	return nil
}

func (s *Store) SetAccepted(ctx context.Context, answerID int, accepted bool) error {
	defer s.lock()()
	a, ok := s.data.answers[answerID]
	if !ok {
		return fmt.Errorf("answer %d: %w", answerID, ledger.ErrNotFound)
	}
	if accepted {
		for _, other := range s.data.answers {
			if other.QuestionID == a.QuestionID && other.ID != answerID && other.Accepted {
				return fmt.Errorf("question %d already has an accepted answer: %w", a.QuestionID, ledger.ErrConflict)
			}
		}
	}
	a.Accepted = accepted
	s.data.answers[answerID] = a
	return nil
}

func (s *Store) ClearAccepted(ctx context.Context, questionID, keepID int) error {
	defer s.lock()()
	for id, a := range s.data.answers {
		if a.QuestionID == questionID && id != keepID && a.Accepted {
			a.Accepted = false
			s.data.answers[id] = a
		}
	}
	return nil
}

// Votes

func (s *Store) CreateVote(ctx context.Context, vote *models.Vote) error {
	defer s.lock()()
	if _, ok := s.data.answers[vote.AnswerID]; !ok {
		return fmt.Errorf("answer %d: %w", vote.AnswerID, ledger.ErrNotFound)
	}
	vote.ID = s.data.next("votes")
	vote.CreatedAt = s.now()
	vote.UpdatedAt = vote.CreatedAt
	s.data.votes[vote.ID] = *vote
	return nil
}

func (s *Store) FindVote(ctx context.Context, userID, answerID int) (models.Vote, bool, error) {
	defer s.lock()()
	var (
		found models.Vote
		ok    bool
	)
	for _, v := range s.data.votes {
		if v.UserID == userID && v.AnswerID == answerID && (!ok || v.ID > found.ID) {
			found, ok = v, true
		}
	}
	return found, ok, nil
}

func (s *Store) UpdateVote(ctx context.Context, vote *models.Vote) error {
	defer s.lock()()
	if _, ok := s.data.votes[vote.ID]; !ok {
		return fmt.Errorf("vote %d: %w", vote.ID, ledger.ErrNotFound)
	}
	vote.UpdatedAt = s.now()
	s.data.votes[vote.ID] = *vote
	return nil
}

func (s *Store) ListVotes(ctx context.Context, answerID int) ([]models.Vote, error) {
	defer s.lock()()
	votes := []models.Vote{}
	for _, v := range s.data.votes {
		if v.AnswerID == answerID {
			votes = append(votes, v)
		}
	}
	sort.Slice(votes, func(i, j int) bool { return votes[i].ID < votes[j].ID })
	return votes, nil
}

func (s *Store) CountVotes(ctx context.Context, answerID int) (ledger.Tally, error) {
	defer s.lock()()
	var t ledger.Tally
	for _, v := range s.data.votes {
		if v.AnswerID != answerID {
			continue
		}
		switch v.VoteType {
		case models.VoteUp:
			t.Up++
		case models.VoteDown:
			t.Down++
		}
	}
	return t, nil
}

// Notifications

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	defer s.lock()()
	if _, ok := s.data.users[n.UserID]; !ok {
		return fmt.Errorf("notification recipient %d: %w", n.UserID, ledger.ErrNotFound)
	}
	n.ID = s.data.next("notifications")
	n.CreatedAt = s.now()
	s.data.notifications[n.ID] = *n
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID int, unreadOnly bool, limit int) ([]models.Notification, error) {
	defer s.lock()()
	list := []models.Notification{}
	for _, n := range s.data.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

func (s *Store) CountUnread(ctx context.Context, userID int) (int64, error) {
	defer s.lock()()
	var count int64
	for _, n := range s.data.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkNotificationsRead(ctx context.Context, userID int, ids []int) (int64, error) {
	defer s.lock()()
	wanted := map[int]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var updated int64
	for id, n := range s.data.notifications {
		if n.UserID != userID || n.IsRead || (len(ids) > 0 && !wanted[id]) {
			continue
		}
		n.IsRead = true
		s.data.notifications[id] = n
		updated++
	}
	return updated, nil
}
