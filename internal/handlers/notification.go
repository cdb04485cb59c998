package handlers

import (
	"net/http"

	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the latest notifications and marks them read in the same
// request.
func (h *NotificationHandler) List(c *gin.Context) {
	notifications, err := h.notifications.ListAndMarkRead(c.Request.Context(), currentUserID(c))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), currentUserID(c))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
