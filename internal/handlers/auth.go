package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"onlyz-dating-server/internal/config"
	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/redis"
	"onlyz-dating-server/internal/repository"
	"onlyz-dating-server/internal/services"
	"onlyz-dating-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

type AuthHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	cfg    *config.Config
	mailer services.Mailer
	log    *logrus.Logger
}

func NewAuthHandler(db *gorm.DB, redis *redis.Client, cfg *config.Config, mailer services.Mailer, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{db: db, redis: redis, cfg: cfg, mailer: mailer, log: log}
}

type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=80"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	AcceptTerms bool   `json:"accept_terms" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users := repository.NewUserRepository(h.db)
	ctx := c.Request.Context()

	if _, err := users.ByEmail(ctx, req.Email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists with this email"})
		return
	}
	if _, err := users.ByUsername(ctx, req.Username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username is already taken"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		AcceptedTerms: req.AcceptTerms,
	}
	if err := users.Create(ctx, &user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, h.cfg.JWTSecret, h.cfg.JWTExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	h.storeSession(c, user.ID, user.Email, token)

	h.log.WithField("user_id", user.ID).Info("user registered")
	c.JSON(http.StatusCreated, gin.H{
		"message":      "User created successfully",
		"access_token": token,
		"user":         user,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users := repository.NewUserRepository(h.db)
	ctx := c.Request.Context()

	user, err := users.ByEmail(ctx, req.Email)
	if err != nil || !utils.VerifyPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, h.cfg.JWTSecret, h.cfg.JWTExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	h.storeSession(c, user.ID, user.Email, token)

	if err := users.TouchLastSeen(ctx, user.ID, time.Now().UTC()); err != nil {
		h.log.WithError(err).Warn("failed to update last seen")
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user":         user,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sessionKey := "session:" + strconv.FormatUint(uint64(userID.(uint)), 10)
	if err := h.redis.Del(c.Request.Context(), sessionKey); err != nil {
		h.log.WithError(err).Warn("failed to clear session")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// ForgotPassword issues a reset token and mails it. The response never reveals
// whether the address is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users := repository.NewUserRepository(h.db)
	ctx := c.Request.Context()
	response := gin.H{"message": "If that email is registered, a reset link has been sent"}

	user, err := users.ByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, response)
			return
		}
		apperr.Abort(c, err)
		return
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate reset token"})
		return
	}
	expiry := time.Now().UTC().Add(resetTokenTTL)
	user.ResetToken = &token
	user.ResetTokenExpiry = &expiry
	if err := users.Save(ctx, user); err != nil {
		apperr.Abort(c, err)
		return
	}

	body := fmt.Sprintf(
		"Hello %s,\n\nUse this token to reset your password: %s\n\nIt expires in one hour. If you did not request a reset, ignore this email.\n\nThe Onlyz team\n",
		user.Username, token,
	)
	if err := h.mailer.Send(user.Email, "Reset your Onlyz password", body); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Warn("reset mail delivery failed")
	}

	c.JSON(http.StatusOK, response)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users := repository.NewUserRepository(h.db)
	ctx := c.Request.Context()

	user, err := users.ByResetToken(ctx, req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
		return
	}
	if user.ResetTokenExpiry == nil || time.Now().UTC().After(*user.ResetTokenExpiry) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}
	user.PasswordHash = hash
	user.ResetToken = nil
	user.ResetTokenExpiry = nil
	if err := users.Save(ctx, user); err != nil {
		apperr.Abort(c, err)
		return
	}

	// Any live session predates the new password.
	sessionKey := "session:" + strconv.FormatUint(uint64(user.ID), 10)
	if err := h.redis.Del(ctx, sessionKey); err != nil {
		h.log.WithError(err).Warn("failed to clear session")
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h *AuthHandler) storeSession(c *gin.Context, userID uint, email, token string) {
	ctx := c.Request.Context()
	sessionKey := "session:" + strconv.FormatUint(uint64(userID), 10)
	err := h.redis.HSet(ctx, sessionKey,
		"user_id", userID,
		"email", email,
		"access_token", token,
		"expires_at", time.Now().Add(h.cfg.JWTExpiry).Unix(),
	)
	if err != nil {
		h.log.WithError(err).Warn("failed to store session")
		return
	}
	if err := h.redis.Expire(ctx, sessionKey, h.cfg.JWTExpiry); err != nil {
		h.log.WithError(err).Warn("failed to expire session")
	}
}
