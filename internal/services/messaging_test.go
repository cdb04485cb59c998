package services_test

import (
	"context"
	"testing"

	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/repository"
	"onlyz-dating-server/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type messagingFixture struct {
	db        *gorm.DB
	svc       *services.MessagingService
	match     *services.MatchService
	broadcast *fakeBroadcaster
	mailer    *fakeMailer
}

func newMessagingFixture(t *testing.T) *messagingFixture {
	t.Helper()
	db := setupTestDB(t)
	log := newTestLogger()
	mailer := &fakeMailer{}
	broadcast := &fakeBroadcaster{}
	visibility := services.NewVisibilityService(db)
	notifier := services.NewNotificationService(db, nil, log)
	match := services.NewMatchService(db, visibility, notifier, mailer, log)
	svc := services.NewMessagingService(db, match, notifier, mailer, broadcast, log)
	return &messagingFixture{db: db, svc: svc, match: match, broadcast: broadcast, mailer: mailer}
}

func (f *messagingFixture) matchPair(t *testing.T, ctx context.Context, a, b uint) {
	t.Helper()
	_, err := f.match.ToggleLike(ctx, a, b)
	require.NoError(t, err)
	_, err = f.match.ToggleLike(ctx, b, a)
	require.NoError(t, err)
}

func TestRoomIDOrderIndependent(t *testing.T) {
	assert.Equal(t, "chat_3_7", services.RoomID(7, 3))
	assert.Equal(t, "chat_3_7", services.RoomID(3, 7))
}

func TestSendRequiresMatch(t *testing.T) {
	ctx := context.Background()
	f := newMessagingFixture(t)

	alice := createUser(t, f.db, "alice", nil)
	bob := createUser(t, f.db, "bob", nil)

	// one-way like is not enough
	_, err := f.match.ToggleLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, alice.ID, bob.ID, "hey")
	assert.ErrorIs(t, err, apperr.ErrNotMatched)

	var count int64
	f.db.Model(&models.Message{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSendPersistsThenBroadcasts(t *testing.T) {
	ctx := context.Background()
	f := newMessagingFixture(t)

	alice := createUser(t, f.db, "alice", nil)
	bob := createUser(t, f.db, "bob", nil)
	f.matchPair(t, ctx, alice.ID, bob.ID)

	message, err := f.svc.Send(ctx, alice.ID, bob.ID, "hello bob")
	require.NoError(t, err)
	require.NotZero(t, message.ID)

	rooms, events := f.broadcast.published()
	require.Len(t, rooms, 1)
	assert.Equal(t, services.RoomID(alice.ID, bob.ID), rooms[0])

	event, ok := events[0].(services.ChatEvent)
	require.True(t, ok)
	assert.Equal(t, "receive_message", event.Type)
	assert.Equal(t, alice.ID, event.SenderID)
	assert.Equal(t, "alice", event.SenderUsername)
	assert.Equal(t, "hello bob", event.Content)

	// receiver got a message notification
	var notification models.Notification
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", bob.ID, models.NotificationTypeMessage).First(&notification).Error)
	require.NotNil(t, notification.RelatedUserID)
	assert.Equal(t, alice.ID, *notification.RelatedUserID)
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	f := newMessagingFixture(t)

	alice := createUser(t, f.db, "alice", nil)
	bob := createUser(t, f.db, "bob", nil)
	f.matchPair(t, ctx, alice.ID, bob.ID)

	_, err := f.svc.Send(ctx, alice.ID, bob.ID, "   ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Send(ctx, alice.ID, alice.ID, "hi me")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUnlikeRevokesMessaging(t *testing.T) {
	ctx := context.Background()
	f := newMessagingFixture(t)

	alice := createUser(t, f.db, "alice", nil)
	bob := createUser(t, f.db, "bob", nil)
	f.matchPair(t, ctx, alice.ID, bob.ID)

	_, err := f.svc.Send(ctx, alice.ID, bob.ID, "hello")
	require.NoError(t, err)

	// bob withdraws his like; the channel closes for both parties
	_, err = f.match.ToggleLike(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, alice.ID, bob.ID, "still there?")
	assert.ErrorIs(t, err, apperr.ErrNotMatched)
	_, err = f.svc.History(ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, apperr.ErrNotMatched)
}

func TestBlockRevokesMessaging(t *testing.T) {
	ctx := context.Background()
	f := newMessagingFixture(t)

	alice := createUser(t, f.db, "alice", nil)
	bob := createUser(t, f.db, "bob", nil)
	f.matchPair(t, ctx, alice.ID, bob.ID)

	require.NoError(t, repository.NewRelationshipRepository(f.db).CreateBlock(ctx, bob.ID, alice.ID))

	// like rows still exist, but the block closes the channel both ways
	_, err := f.svc.Send(ctx, alice.ID, bob.ID, "hello?")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Send(ctx, bob.ID, alice.ID, "nope")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestHistoryOrderAndReadReceipts(t *testing.T) {
	ctx := context.Background()
	f := newMessagingFixture(t)

	alice := createUser(t, f.db, "alice", nil)
	bob := createUser(t, f.db, "bob", nil)
	f.matchPair(t, ctx, alice.ID, bob.ID)

	_, err := f.svc.Send(ctx, alice.ID, bob.ID, "first")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, bob.ID, alice.ID, "second")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, alice.ID, bob.ID, "third")
	require.NoError(t, err)

	messages, err := f.svc.History(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, "third", messages[2].Content)

	// loading the history marked alice's messages to bob as read
	var unread int64
	f.db.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", bob.ID, false).
		Count(&unread)
	assert.Equal(t, int64(0), unread)

	// bob's message to alice stays unread until she opens the conversation
	f.db.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", alice.ID, false).
		Count(&unread)
	assert.Equal(t, int64(1), unread)
}
