package handlers

import (
	"net/http"

	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/services"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	matches    *services.MatchService
	recommends *services.RecommendService
}

func NewMatchHandler(matches *services.MatchService, recommends *services.RecommendService) *MatchHandler {
	return &MatchHandler{matches: matches, recommends: recommends}
}

// ToggleLike likes the target, or withdraws an existing like. The response
// carries whether the action completed a mutual match.
func (h *MatchHandler) ToggleLike(c *gin.Context) {
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}

	result, err := h.matches.ToggleLike(c.Request.Context(), currentUserID(c), targetID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   result.Status,
		"is_match": result.IsMatch,
	})
}

func (h *MatchHandler) Matches(c *gin.Context) {
	users, err := h.matches.Matches(c.Request.Context(), currentUserID(c))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": users})
}

func (h *MatchHandler) Recommendations(c *gin.Context) {
	users, err := h.recommends.Recommend(c.Request.Context(), currentUserID(c))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": users})
}
