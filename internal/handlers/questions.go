package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/enrich"
	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/repository"
)

const (
	defaultPerPage = 10
	maxPerPage     = 50
)

type QuestionHandler struct {
	store    Store
	ledger   *ledger.Ledger
	enricher enrich.Enricher
	errs     *responder
}

// ListQuestions returns a page of questions, newest first, optionally
// filtered by ?q= against title, description and tags.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := queryInt(c, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	// Past this page the offset no longer fits in an int.
	if last := math.MaxInt/perPage + 1; page > last {
		page = last
	}

	questions, total, err := h.store.ListQuestions(c.Request.Context(), repository.QuestionFilter{
		Query:  c.Query("q"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		h.errs.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"questions":   questions,
		"page":        page,
		"per_page":    perPage,
		"total":       total,
		"total_pages": (total + int64(perPage) - 1) / int64(perPage),
		"query":       c.Query("q"),
	})
}

// GetQuestion returns a question with its ranked answers
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	questionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	question, err := h.store.GetQuestion(ctx, questionID)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	answers, err := h.ledger.Answers(ctx, questionID)
	if err != nil {
		h.errs.fail(c, err)
		return
	}

	isAdmin := false
	if userID, ok := middleware.UserID(c); ok {
		if viewer, err := h.store.GetUser(ctx, userID); err == nil {
			isAdmin = viewer.IsAdmin
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"question": question,
		"answers":  answers,
		"is_admin": isAdmin,
	})
}

// CreateQuestion creates a question tagged and labelled from its description
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input models.CreateQuestionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enriched := h.enricher.Enrich(input.Description)
	question := models.Question{
		Title:       input.Title,
		Description: input.Description,
		Tags:        enrich.MergeTags(input.Tags, enriched.Tags),
		Sentiment:   enriched.Sentiment,
		UserID:      userID,
	}
	if err := h.store.CreateQuestion(c.Request.Context(), &question); err != nil {
		h.errs.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
