package repository

import (
	"context"
	"errors"

	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/models"

	"gorm.io/gorm"
)

// RelationshipRepository covers the directed pair edges: likes, blocks and
// reports. Uniqueness per pair is enforced by composite unique indexes; the
// existence checks here make duplicate submissions detectable before the
// constraint fires.
type RelationshipRepository struct {
	db *gorm.DB
}

func NewRelationshipRepository(db *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// --- likes ---

func (r *RelationshipRepository) LikeExists(ctx context.Context, likerID, likedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Count(&count).Error
	return count > 0, err
}

func (r *RelationshipRepository) CreateLike(ctx context.Context, likerID, likedID uint) error {
	return r.db.WithContext(ctx).Create(&models.Like{LikerID: likerID, LikedID: likedID}).Error
}

func (r *RelationshipRepository) DeleteLike(ctx context.Context, likerID, likedID uint) error {
	return r.db.WithContext(ctx).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Delete(&models.Like{}).Error
}

// LikedIDs returns the ids the user has liked.
func (r *RelationshipRepository) LikedIDs(ctx context.Context, likerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("liker_id = ?", likerID).
		Pluck("liked_id", &ids).Error
	return ids, err
}

// LikerIDs returns the ids of users who liked the given user.
func (r *RelationshipRepository) LikerIDs(ctx context.Context, likedID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("liked_id = ?", likedID).
		Pluck("liker_id", &ids).Error
	return ids, err
}

// --- blocks ---

func (r *RelationshipRepository) BlockExists(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// CreateBlock inserts the block edge, reporting ErrDuplicate when the pair
// is already blocked.
func (r *RelationshipRepository) CreateBlock(ctx context.Context, blockerID, blockedID uint) error {
	exists, err := r.BlockExists(ctx, blockerID, blockedID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.ErrDuplicate
	}
	return r.db.WithContext(ctx).Create(&models.Block{BlockerID: blockerID, BlockedID: blockedID}).Error
}

func (r *RelationshipRepository) DeleteBlock(ctx context.Context, blockerID, blockedID uint) error {
	return r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error
}

// BlockedIDs returns the ids the user has blocked.
func (r *RelationshipRepository) BlockedIDs(ctx context.Context, blockerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocker_id = ?", blockerID).
		Pluck("blocked_id", &ids).Error
	return ids, err
}

// BlockerIDs returns the ids of users who blocked the given user.
func (r *RelationshipRepository) BlockerIDs(ctx context.Context, blockedID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("blocked_id = ?", blockedID).
		Pluck("blocker_id", &ids).Error
	return ids, err
}

// --- reports ---

// CreateReport inserts a report with status "pending", reporting ErrDuplicate
// when the reporter already reported this user.
func (r *RelationshipRepository) CreateReport(ctx context.Context, reporterID, reportedID uint, reason string) error {
	var existing models.Report
	err := r.db.WithContext(ctx).
		Where("reporter_id = ? AND reported_id = ?", reporterID, reportedID).
		First(&existing).Error
	if err == nil {
		return apperr.ErrDuplicate
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(&models.Report{
		ReporterID: reporterID,
		ReportedID: reportedID,
		Reason:     reason,
		Status:     "pending",
	}).Error
}

func (r *RelationshipRepository) RecentReports(ctx context.Context, limit int) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Preload("Reporter").Preload("Reported").
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

func (r *RelationshipRepository) UpdateReportStatus(ctx context.Context, reportID uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", reportID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
