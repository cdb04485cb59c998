package repository

import (
	"context"
	"time"

	"onlyz-dating-server/internal/models"

	"gorm.io/gorm"
)

// UserRepository provides data access for users and their owned rows.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) ByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Profile.Interests").
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Profile").Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ByResetToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("reset_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ByIDs loads full user records with profiles for an id set. Empty input
// yields an empty slice without touching the database.
func (r *UserRepository) ByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Profile.Interests").
		Where("id IN ?", ids).
		Find(&users).Error
	return users, err
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// TouchLastSeen updates last_seen without rewriting the whole row.
func (r *UserRepository) TouchLastSeen(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_seen", at).Error
}

// Delete removes the user and cascades every owned relationship inside the
// caller's transaction boundary: profile (with interest links), likes and
// blocks in both directions, reports made and received, messages sent and
// received, and notifications owned by or referencing the user.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.Where("user_id = ?", id).First(&profile).Error; err == nil {
			if err := tx.Model(&profile).Association("Interests").Clear(); err != nil {
				return err
			}
			if err := tx.Delete(&profile).Error; err != nil {
				return err
			}
		}

		steps := []*gorm.DB{
			tx.Where("liker_id = ? OR liked_id = ?", id, id).Delete(&models.Like{}),
			tx.Where("blocker_id = ? OR blocked_id = ?", id, id).Delete(&models.Block{}),
			tx.Where("reporter_id = ? OR reported_id = ?", id, id).Delete(&models.Report{}),
			tx.Where("sender_id = ? OR receiver_id = ?", id, id).Delete(&models.Message{}),
			tx.Where("user_id = ? OR related_user_id = ?", id, id).Delete(&models.Notification{}),
		}
		for _, step := range steps {
			if step.Error != nil {
				return step.Error
			}
		}

		return tx.Delete(&models.User{}, id).Error
	})
}

type AdminStats struct {
	TotalUsers     int64 `json:"total_users"`
	TotalProfiles  int64 `json:"total_profiles"`
	TotalLikes     int64 `json:"total_likes"`
	TotalMessages  int64 `json:"total_messages"`
	PendingReports int64 `json:"pending_reports"`
}

// Stats aggregates the counters shown on the admin dashboard.
func (r *UserRepository) Stats(ctx context.Context) (*AdminStats, error) {
	var stats AdminStats
	db := r.db.WithContext(ctx)

	counts := []struct {
		model interface{}
		dest  *int64
		cond  []interface{}
	}{
		{&models.User{}, &stats.TotalUsers, nil},
		{&models.Profile{}, &stats.TotalProfiles, nil},
		{&models.Like{}, &stats.TotalLikes, nil},
		{&models.Message{}, &stats.TotalMessages, nil},
		{&models.Report{}, &stats.PendingReports, []interface{}{"status = ?", "pending"}},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.cond != nil {
			q = q.Where(c.cond[0], c.cond[1:]...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

func (r *UserRepository) Recent(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
