package handlers

import (
	"net/http"
	"strconv"
	"time"

	"onlyz-dating-server/internal/config"
	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/repository"
	"onlyz-dating-server/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type UserHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	profiles *services.ProfileService
	storage  *services.StorageService
	log      *logrus.Logger
}

func NewUserHandler(db *gorm.DB, cfg *config.Config, profiles *services.ProfileService, storage *services.StorageService, log *logrus.Logger) *UserHandler {
	return &UserHandler{db: db, cfg: cfg, profiles: profiles, storage: storage, log: log}
}

type ProfileRequest struct {
	FirstName   string  `json:"first_name" binding:"required,max=50"`
	LastName    string  `json:"last_name" binding:"required,max=50"`
	DateOfBirth string  `json:"date_of_birth" binding:"required,adult"`
	Gender      string  `json:"gender" binding:"required,oneof=male female other"`
	LookingFor  string  `json:"looking_for" binding:"required,oneof=male female other all"`
	Bio         *string `json:"bio,omitempty"`
	City        *string `json:"city,omitempty"`
	Country     *string `json:"country,omitempty"`
	InterestIDs []uint  `json:"interest_ids,omitempty"`
}

type ReportRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

func (r *ProfileRequest) toInput() (*services.ProfileInput, error) {
	dob, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		return nil, apperr.Validationf("invalid date format, use YYYY-MM-DD")
	}
	return &services.ProfileInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: dob,
		Gender:      r.Gender,
		LookingFor:  r.LookingFor,
		Bio:         r.Bio,
		City:        r.City,
		Country:     r.Country,
		InterestIDs: r.InterestIDs,
	}, nil
}

func currentUserID(c *gin.Context) uint {
	return c.MustGet("user_id").(uint)
}

func pathUserID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return 0, false
	}
	return uint(id), true
}

// Interests lists the selectable interest catalogue.
func (h *UserHandler) Interests(c *gin.Context) {
	var interests []models.Interest
	if err := h.db.WithContext(c.Request.Context()).Order("name ASC").Find(&interests).Error; err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interests": interests})
}

func (h *UserHandler) GetMyProfile(c *gin.Context) {
	user, err := repository.NewUserRepository(h.db).ByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) CreateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	profile, err := h.profiles.Create(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": profile})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UploadPhoto stores the multipart image and records its reference on the
// profile.
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	if fileHeader.Size > h.cfg.MaxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	allowed := false
	for _, t := range h.cfg.AllowedImageTypes {
		if t == contentType {
			allowed = true
			break
		}
	}
	if !allowed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	userID := currentUserID(c)
	ctx := c.Request.Context()
	reference, err := h.storage.UploadProfilePicture(ctx, userID, file, fileHeader.Size, contentType, fileHeader.Filename)
	if err != nil {
		h.log.WithError(err).Error("photo upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store photo"})
		return
	}

	if err := h.profiles.SetPicture(ctx, userID, reference); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile_picture": reference})
}

func (h *UserHandler) ViewProfile(c *gin.Context) {
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}
	view, err := h.profiles.View(c.Request.Context(), currentUserID(c), targetID)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Browse(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	users, total, err := h.profiles.Browse(c.Request.Context(), currentUserID(c), page)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
	})
}

func (h *UserHandler) Search(c *gin.Context) {
	var filters services.SearchFilters

	if g := c.Query("gender"); g != "" {
		filters.Gender = &g
	}
	if v := c.Query("min_age"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.MinAge = &n
		}
	}
	if v := c.Query("max_age"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.MaxAge = &n
		}
	}
	if k := c.Query("keywords"); k != "" {
		filters.Keywords = &k
	}
	if v := c.Query("max_distance_km"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil {
			filters.MaxDistanceKm = &d
		}
	}

	users, err := h.profiles.Search(c.Request.Context(), currentUserID(c), filters)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) Block(c *gin.Context) {
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}
	userID := currentUserID(c)
	if userID == targetID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "you cannot block yourself"})
		return
	}

	if err := repository.NewRelationshipRepository(h.db).CreateBlock(c.Request.Context(), userID, targetID); err != nil {
		apperr.Abort(c, err)
		return
	}
	h.log.WithFields(logrus.Fields{"user_id": userID, "blocked_id": targetID}).Info("user blocked")
	c.JSON(http.StatusOK, gin.H{"message": "User blocked"})
}

func (h *UserHandler) Unblock(c *gin.Context) {
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}
	if err := repository.NewRelationshipRepository(h.db).DeleteBlock(c.Request.Context(), currentUserID(c), targetID); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unblocked"})
}

func (h *UserHandler) Report(c *gin.Context) {
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}
	userID := currentUserID(c)
	if userID == targetID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "you cannot report yourself"})
		return
	}

	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var target models.User
	if err := h.db.WithContext(c.Request.Context()).First(&target, targetID).Error; err != nil {
		apperr.Abort(c, err)
		return
	}

	if err := repository.NewRelationshipRepository(h.db).CreateReport(c.Request.Context(), userID, targetID, req.Reason); err != nil {
		apperr.Abort(c, err)
		return
	}
	h.log.WithFields(logrus.Fields{"user_id": userID, "reported_id": targetID}).Info("user reported")
	c.JSON(http.StatusOK, gin.H{"message": "Report submitted"})
}

// DeleteAccount removes the user and everything they own.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID := currentUserID(c)
	if err := repository.NewUserRepository(h.db).Delete(c.Request.Context(), userID); err != nil {
		apperr.Abort(c, err)
		return
	}
	h.log.WithField("user_id", userID).Info("account deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
