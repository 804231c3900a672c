// Package repository is the gorm/postgres store behind the ledger and the
// forum handlers.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) Transaction(ctx context.Context, fn func(tx ledger.Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, logger: r.logger})
	})
}

// Users

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return r.translate("create user", err, "username", user.Username)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id int) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, r.translate("get user", err, "user_id", id)
	}
	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return models.User{}, r.translate("get user by email", err)
	}
	return user, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, r.translate("list users", err)
	}
	return users, nil
}

// Questions

func (r *Repository) CreateQuestion(ctx context.Context, q *models.Question) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(q).Error; err != nil {
		return r.translate("create question", err, "user_id", q.UserID)
	}
	// Reload with user information
	if err := db.Preload("User").First(q, q.ID).Error; err != nil {
		return r.translate("reload question", err, "question_id", q.ID)
	}
	return nil
}

func (r *Repository) GetQuestion(ctx context.Context, id int) (models.Question, error) {
	var q models.Question
	if err := r.db.WithContext(ctx).Preload("User").First(&q, id).Error; err != nil {
		return models.Question{}, r.translate("get question", err, "question_id", id)
	}
	return q, nil
}

func (r *Repository) LockQuestion(ctx context.Context, id int) (models.Question, error) {
	var q models.Question
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&q, id).Error
	if err != nil {
		return models.Question{}, r.translate("lock question", err, "question_id", id)
	}
	return q, nil
}

func (r *Repository) ListQuestions(ctx context.Context, filter QuestionFilter) ([]models.Question, int64, error) {
	if filter.Offset < 0 {
		return nil, 0, fmt.Errorf("offset %d: %w", filter.Offset, ledger.ErrInvalidInput)
	}
	search := func(db *gorm.DB) *gorm.DB {
		query := strings.TrimSpace(filter.Query)
		if query == "" {
			return db
		}
		like := "%" + query + "%"
		return db.Where(
			"title ILIKE ? OR description ILIKE ? OR array_to_string(tags, ',') ILIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Question{}).Scopes(search).Count(&total).Error; err != nil {
		return nil, 0, r.translate("count questions", err)
	}

	tx := r.db.WithContext(ctx).Scopes(search).Preload("User").Order("created_at desc, id desc")
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		tx = tx.Offset(filter.Offset)
	}
	questions := []models.Question{}
	if err := tx.Find(&questions).Error; err != nil {
		return nil, 0, r.translate("list questions", err)
	}
	return questions, total, nil
}

// DeleteQuestion removes the question, its answers and their votes. Callers
// run it inside Transaction.
func (r *Repository) DeleteQuestion(ctx context.Context, id int) error {
	db := r.db.WithContext(ctx)
	answerIDs := db.Model(&models.Answer{}).Select("id").Where("question_id = ?", id)

	if err := db.Where("answer_id IN (?)", answerIDs).Delete(&models.Vote{}).Error; err != nil {
		return r.translate("delete question votes", err, "question_id", id)
	}
	if err := db.Where("question_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
		return r.translate("delete question answers", err, "question_id", id)
	}
	res := db.Delete(&models.Question{}, id)
	if res.Error != nil {
		return r.translate("delete question", res.Error, "question_id", id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("question %d: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// Answers

func (r *Repository) GetAnswer(ctx context.Context, id int) (models.Answer, error) {
	var a models.Answer
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return models.Answer{}, r.translate("get answer", err, "answer_id", id)
	}
	return a, nil
}

func (r *Repository) LockAnswer(ctx context.Context, id int) (models.Answer, error) {
	var a models.Answer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, id).Error
	if err != nil {
		return models.Answer{}, r.translate("lock answer", err, "answer_id", id)
	}
	return a, nil
}

func (r *Repository) ListAnswers(ctx context.Context, questionID int) ([]models.Answer, error) {
	answers := []models.Answer{}
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Preload("User").
		Order("created_at asc, id asc").
		Find(&answers).Error
	if err != nil {
		return nil, r.translate("list answers", err, "question_id", questionID)
	}
	return answers, nil
}

func (r *Repository) CreateAnswer(ctx context.Context, answer *models.Answer) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(answer).Error; err != nil {
		return r.translate("create answer", err, "question_id", answer.QuestionID)
	}
	return nil
}

func (r *Repository) SetAccepted(ctx context.Context, answerID int, accepted bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("id = ?", answerID).
		Update("accepted", accepted)
	if res.Error != nil {
		return r.translate("set accepted", res.Error, "answer_id", answerID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("answer %d: %w", answerID, ledger.ErrNotFound)
	}
	return nil
}

func (r *Repository) ClearAccepted(ctx context.Context, questionID, keepID int) error {
	err := r.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("question_id = ? AND id <> ? AND accepted = ?", questionID, keepID, true).
		Update("accepted", false).Error
	if err != nil {
		return r.translate("clear accepted", err, "question_id", questionID)
	}
	return nil
}

// Votes

func (r *Repository) CreateVote(ctx context.Context, vote *models.Vote) error {
	if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
		return r.translate("create vote", err, "answer_id", vote.AnswerID, "user_id", vote.UserID)
	}
	return nil
}

func (r *Repository) FindVote(ctx context.Context, userID, answerID int) (models.Vote, bool, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND answer_id = ?", userID, answerID).
		Order("id desc").
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Vote{}, false, nil
	}
	if err != nil {
		return models.Vote{}, false, r.translate("find vote", err, "answer_id", answerID, "user_id", userID)
	}
	return vote, true, nil
}

func (r *Repository) UpdateVote(ctx context.Context, vote *models.Vote) error {
	if err := r.db.WithContext(ctx).Save(vote).Error; err != nil {
		return r.translate("update vote", err, "vote_id", vote.ID)
	}
	return nil
}

func (r *Repository) ListVotes(ctx context.Context, answerID int) ([]models.Vote, error) {
	votes := []models.Vote{}
	if err := r.db.WithContext(ctx).Where("answer_id = ?", answerID).Order("id").Find(&votes).Error; err != nil {
		return nil, r.translate("list votes", err, "answer_id", answerID)
	}
	return votes, nil
}

func (r *Repository) CountVotes(ctx context.Context, answerID int) (ledger.Tally, error) {
	var rows []struct {
		VoteType string
		N        int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("vote_type, count(*) AS n").
		Where("answer_id = ?", answerID).
		Group("vote_type").
		Scan(&rows).Error
	if err != nil {
		return ledger.Tally{}, r.translate("count votes", err, "answer_id", answerID)
	}

	var t ledger.Tally
	for _, row := range rows {
		switch row.VoteType {
		case models.VoteUp:
			t.Up = row.N
		case models.VoteDown:
			t.Down = row.N
		}
	}
	return t, nil
}

// Notifications

func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(n).Error; err != nil {
		return r.translate("create notification", err, "user_id", n.UserID)
	}
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, userID int, unreadOnly bool, limit int) ([]models.Notification, error) {
	tx := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("is_read = ?", false)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	list := []models.Notification{}
	if err := tx.Order("created_at desc, id desc").Find(&list).Error; err != nil {
		return nil, r.translate("list notifications", err, "user_id", userID)
	}
	return list, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, r.translate("count unread notifications", err, "user_id", userID)
	}
	return count, nil
}

func (r *Repository) MarkNotificationsRead(ctx context.Context, userID int, ids []int) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		tx = tx.Where("id IN ?", ids)
	}
	res := tx.Update("is_read", true)
	if res.Error != nil {
		return 0, r.translate("mark notifications read", res.Error, "user_id", userID)
	}
	return res.RowsAffected, nil
}

// translate maps gorm and postgres errors onto the ledger's error taxonomy
// and logs anything unexpected.
func (r *Repository) translate(op string, err error, args ...any) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ledger.ErrNotFound)
	case pgCode(err) == pgUniqueViolation:
		return fmt.Errorf("%s: %w", op, ledger.ErrConflict)
	case pgCode(err) == pgForeignKeyViolation:
		return fmt.Errorf("%s: %w", op, ledger.ErrNotFound)
	}
	r.logger.Error("repository "+op+" failed", append(args, "error", err)...)
	return fmt.Errorf("%s: %w", op, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
