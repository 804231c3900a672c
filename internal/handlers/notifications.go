package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const (
	inboxPreview = 5
	inboxMax     = 50
)

type NotificationHandler struct {
	store Store
	errs  *responder
}

// List returns the newest unread notifications and the unread count.
// ?all=true lists read ones too.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	ctx := c.Request.Context()

	unreadOnly, limit := true, inboxPreview
	if c.Query("all") == "true" {
		unreadOnly, limit = false, inboxMax
	}

	list, err := h.store.ListNotifications(ctx, userID, unreadOnly, limit)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	unread, err := h.store.CountUnread(ctx, userID)
	if err != nil {
		h.errs.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unread_count":  unread,
		"notifications": list,
	})
}

// MarkRead marks the listed notifications read, or all of them when no ids are given
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var input models.MarkReadRequest
	// An empty body means every notification.
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.store.MarkNotificationsRead(c.Request.Context(), userID, input.IDs)
	if err != nil {
		h.errs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
