package services_test

import (
	"context"
	"fmt"
	"testing"

	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/redis"
	"onlyz-dating-server/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyAndConsume(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	cache := redis.NewFromAddr(mr.Addr())
	svc := services.NewNotificationService(db, cache, newTestLogger())

	user := createUser(t, db, "alice", nil)
	other := createUser(t, db, "bob", nil)

	require.NoError(t, svc.Notify(ctx, nil, user.ID, models.NotificationTypeMatch, "You have a new match with bob!", &other.ID))
	require.NoError(t, svc.Notify(ctx, nil, user.ID, models.NotificationTypeMessage, "New message from bob", &other.ID))

	count, err := svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	notifications, err := svc.ListAndMarkRead(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	// newest first
	assert.Equal(t, models.NotificationTypeMessage, notifications[0].Type)
	assert.Equal(t, models.NotificationTypeMatch, notifications[1].Type)

	// reading consumed the unread state
	count, err = svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestListCap(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := services.NewNotificationService(db, nil, newTestLogger())

	user := createUser(t, db, "alice", nil)
	for i := 0; i < 60; i++ {
		require.NoError(t, svc.Notify(ctx, nil, user.ID, models.NotificationTypeMessage, fmt.Sprintf("message %d", i), nil))
	}

	notifications, err := svc.ListAndMarkRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, notifications, 50)
	// the newest entry leads the page
	assert.Equal(t, "message 59", notifications[0].Content)
}

func TestUnreadCountUsesCache(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	cache := redis.NewFromAddr(mr.Addr())
	svc := services.NewNotificationService(db, cache, newTestLogger())

	user := createUser(t, db, "alice", nil)
	require.NoError(t, svc.Notify(ctx, nil, user.ID, models.NotificationTypeMessage, "hello", nil))

	// first read populates the cache from the database
	count, err := svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	key := fmt.Sprintf("notif:unread:%d", user.ID)
	cached, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "1", cached)

	// a new notification invalidates the cached counter
	require.NoError(t, svc.Notify(ctx, nil, user.ID, models.NotificationTypeMessage, "again", nil))
	assert.False(t, mr.Exists(key))

	count, err = svc.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
