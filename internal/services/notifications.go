package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/redis"
	"onlyz-dating-server/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const notificationListLimit = 50

// NotificationService records in-app notifications and serves the inbox.
// A Redis counter caches the unread count; cache failures are best-effort and
// never fail the owning operation.
type NotificationService struct {
	db    *gorm.DB
	cache *redis.Client
	log   *logrus.Logger
}

func NewNotificationService(db *gorm.DB, cache *redis.Client, log *logrus.Logger) *NotificationService {
	return &NotificationService{db: db, cache: cache, log: log}
}

func unreadKey(userID uint) string {
	return fmt.Sprintf("notif:unread:%d", userID)
}

// Notify appends an unread notification row. When called with a transaction
// handle the write joins that transaction; the cache invalidation happens
// regardless and is only a hint.
func (s *NotificationService) Notify(ctx context.Context, tx *gorm.DB, userID uint, notifType, content string, relatedUserID *uint) error {
	if tx == nil {
		tx = s.db
	}
	n := &models.Notification{
		UserID:        userID,
		Type:          notifType,
		Content:       content,
		RelatedUserID: relatedUserID,
	}
	if err := repository.NewNotificationRepository(tx).Create(ctx, n); err != nil {
		return err
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// ListAndMarkRead returns up to 50 most recent notifications, newest first,
// then marks every unread notification read. Calling it twice returns a
// second result with nothing unread, mirroring inbox "seen" semantics.
func (s *NotificationService) ListAndMarkRead(ctx context.Context, userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewNotificationRepository(tx)
		var err error
		notifications, err = repo.RecentForUser(ctx, userID, notificationListLimit)
		if err != nil {
			return err
		}
		return repo.MarkAllRead(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateUnread(ctx, userID)
	return notifications, nil
}

// UnreadCount is cache-first with a DB fallback that repopulates the cache
// for an hour.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, unreadKey(userID)); err == nil && cached != "" {
			if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return n, nil
			}
		}
	}

	count, err := repository.NewNotificationRepository(s.db).UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, unreadKey(userID), strconv.FormatInt(count, 10), time.Hour); err != nil {
			s.log.WithError(err).Warn("failed to cache unread notification count")
		}
	}
	return count, nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadKey(userID)); err != nil {
		s.log.WithError(err).Warn("failed to invalidate unread notification count")
	}
}
