package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/enrich"
	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/repository"
)

// Store is everything the handlers read and write outside the ledger.
type Store interface {
	auth.UserStore
	GetUser(ctx context.Context, id int) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, id int) (models.Question, error)
	ListQuestions(ctx context.Context, filter repository.QuestionFilter) ([]models.Question, int64, error)

	ListNotifications(ctx context.Context, userID int, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID int) (int64, error)
	MarkNotificationsRead(ctx context.Context, userID int, ids []int) (int64, error)
}

type Deps struct {
	Store         Store
	Ledger        *ledger.Ledger
	Tokens        *auth.Tokens
	Enricher      enrich.Enricher
	Logger        *slog.Logger
	SecureCookies bool
}

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Question     *QuestionHandler
	Answer       *AnswerHandler
	Notification *NotificationHandler
	Admin        *AdminHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Enricher == nil {
		d.Enricher = enrich.NewLexicon()
	}
	errs := &responder{logger: d.Logger}

	return &Handler{
		Auth:         &AuthHandler{store: d.Store, tokens: d.Tokens, secure: d.SecureCookies, errs: errs},
		Question:     &QuestionHandler{store: d.Store, ledger: d.Ledger, enricher: d.Enricher, errs: errs},
		Answer:       &AnswerHandler{ledger: d.Ledger, errs: errs},
		Notification: &NotificationHandler{store: d.Store, errs: errs},
		Admin:        &AdminHandler{store: d.Store, ledger: d.Ledger, errs: errs},
	}
}

type responder struct {
	logger *slog.Logger
}

// fail maps ledger errors to status codes. Unknown errors are logged and
// hidden behind a generic 500.
func (r *responder) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	case errors.Is(err, ledger.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to do that"})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, ledger.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		r.logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(), "request_id", c.GetString("request_id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}
