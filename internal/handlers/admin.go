package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/repository"
)

type AdminHandler struct {
	store  Store
	ledger *ledger.Ledger
	errs   *responder
}

// Dashboard lists every user and every question
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	users, err := h.store.ListUsers(ctx)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	questions, _, err := h.store.ListQuestions(ctx, repository.QuestionFilter{})
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "questions": questions})
}

// DeleteQuestion removes a question with its answers and votes
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	questionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, _ := middleware.UserID(c)
	if err := h.ledger.DeleteQuestion(c.Request.Context(), userID, questionID); err != nil {
		h.errs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}
