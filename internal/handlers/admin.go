package handlers

import (
	"net/http"
	"strconv"

	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const adminListLimit = 20

type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

type ReportStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending reviewed resolved dismissed"`
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := repository.NewUserRepository(h.db).Stats(c.Request.Context())
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) RecentUsers(c *gin.Context) {
	users, err := repository.NewUserRepository(h.db).Recent(c.Request.Context(), adminListLimit)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *AdminHandler) RecentReports(c *gin.Context) {
	reports, err := repository.NewRelationshipRepository(h.db).RecentReports(c.Request.Context(), adminListLimit)
	if err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h *AdminHandler) UpdateReportStatus(c *gin.Context) {
	reportID, err := strconv.ParseUint(c.Param("report_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return
	}

	var req ReportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := repository.NewRelationshipRepository(h.db).UpdateReportStatus(c.Request.Context(), uint(reportID), req.Status); err != nil {
		apperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report updated"})
}
