package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type AnswerHandler struct {
	ledger *ledger.Ledger
	errs   *responder
}

// PostAnswer adds an answer to a question
func (h *AnswerHandler) PostAnswer(c *gin.Context) {
	questionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input models.CreateAnswerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.UserID(c)
	answer, err := h.ledger.PostAnswer(c.Request.Context(), userID, questionID, input.Content)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, answer)
}

// Vote records an up or down vote on an answer
func (h *AnswerHandler) Vote(c *gin.Context) {
	answerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vote type must be up or down"})
		return
	}

	userID, _ := middleware.UserID(c)
	tally, err := h.ledger.CastVote(c.Request.Context(), userID, answerID, input.Type)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vote recorded", "answer_id": answerID, "votes": tally})
}

// Tally returns the current vote counts of an answer
func (h *AnswerHandler) Tally(c *gin.Context) {
	answerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	tally, err := h.ledger.Tally(c.Request.Context(), answerID)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer_id": answerID, "votes": tally})
}

// Votes lists the individual votes on an answer
func (h *AnswerHandler) Votes(c *gin.Context) {
	answerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	votes, err := h.ledger.Votes(c.Request.Context(), answerID)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, votes)
}

// Accept marks an answer as the accepted answer of its question
func (h *AnswerHandler) Accept(c *gin.Context) {
	questionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	answerID, ok := pathID(c, "aid")
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	answer, err := h.ledger.AcceptAnswer(c.Request.Context(), userID, questionID, answerID)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answer accepted", "answer": answer})
}

// Unaccept returns an accepted answer to pending
func (h *AnswerHandler) Unaccept(c *gin.Context) {
	questionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	answerID, ok := pathID(c, "aid")
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	answer, err := h.ledger.UnacceptAnswer(c.Request.Context(), userID, questionID, answerID)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Acceptance removed", "answer": answer})
}
