package handlers

import (
	"net/http"

	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/services"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messaging *services.MessagingService
}

func NewMessageHandler(messaging *services.MessagingService) *MessageHandler {
	return &MessageHandler{messaging: messaging}
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	peerID, ok := pathUserID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messaging.Send(c.Request.Context(), currentUserID(c), peerID, req.Content)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": message})
}

// History returns the full conversation with the peer and marks their messages
// as read.
func (h *MessageHandler) History(c *gin.Context) {
	peerID, ok := pathUserID(c)
	if !ok {
		return
	}

	userID := currentUserID(c)
	messages, err := h.messaging.History(c.Request.Context(), userID, peerID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"room":     services.RoomID(userID, peerID),
	})
}
