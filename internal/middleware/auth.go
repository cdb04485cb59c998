package middleware

import (
	"net/http"
	"strings"
	"time"

	"onlyz-dating-server/internal/config"
	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/repository"
	"onlyz-dating-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func AuthRequired(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// AttachUser loads the authenticated user and exposes the username to
// downstream handlers. Used on routes that need more than the token claims,
// like the websocket upgrade.
func AttachUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		c.Set("username", user.Username)
		c.Next()
	}
}

func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		var user models.User
		if err := db.Where("id = ? AND is_admin = ?", userID, true).First(&user).Error; err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// TouchLastSeen records activity for the authenticated user. Best-effort: a
// failed update is logged and never blocks the request.
func TouchLastSeen(db *gorm.DB, log *logrus.Logger) gin.HandlerFunc {
	users := repository.NewUserRepository(db)
	return func(c *gin.Context) {
		if userID, exists := c.Get("user_id"); exists {
			if err := users.TouchLastSeen(c.Request.Context(), userID.(uint), time.Now().UTC()); err != nil {
				log.WithError(err).Warn("failed to update last seen")
			}
		}
		c.Next()
	}
}
