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

func newMatchService(db *gorm.DB, mailer services.Mailer) *services.MatchService {
	log := newTestLogger()
	visibility := services.NewVisibilityService(db)
	notifier := services.NewNotificationService(db, nil, log)
	return services.NewMatchService(db, visibility, notifier, mailer, log)
}

func TestToggleLikeCreatesAndWithdraws(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newMatchService(db, &fakeMailer{})

	alice := createUser(t, db, "alice", nil)
	bob := createUser(t, db, "bob", nil)

	result, err := svc.ToggleLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, services.LikeStatusLiked, result.Status)
	assert.False(t, result.IsMatch)

	var count int64
	db.Model(&models.Like{}).Count(&count)
	assert.Equal(t, int64(1), count)

	// second toggle withdraws the like
	result, err = svc.ToggleLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, services.LikeStatusUnliked, result.Status)
	assert.False(t, result.IsMatch)

	db.Model(&models.Like{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestToggleLikeMutualMatch(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	mailer := &fakeMailer{}
	svc := newMatchService(db, mailer)

	alice := createUser(t, db, "alice", nil)
	bob := createUser(t, db, "bob", nil)

	_, err := svc.ToggleLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	result, err := svc.ToggleLike(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, result.IsMatch)

	matched, err := svc.IsMatch(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, matched)
	matched, err = svc.IsMatch(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, matched)

	// exactly one match notification per party
	var notifications []models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationTypeMatch).Find(&notifications).Error)
	assert.Len(t, notifications, 2)
	owners := map[uint]bool{}
	for _, n := range notifications {
		owners[n.UserID] = true
	}
	assert.True(t, owners[alice.ID])
	assert.True(t, owners[bob.ID])

	// both parties get the match mail
	assert.ElementsMatch(t, []string{alice.Email, bob.Email}, mailer.recipients())
}

func TestToggleLikeUnlikeDissolvesMatch(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newMatchService(db, &fakeMailer{})

	alice := createUser(t, db, "alice", nil)
	bob := createUser(t, db, "bob", nil)

	_, err := svc.ToggleLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	_, err = svc.ToggleLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	matched, err := svc.IsMatch(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestToggleLikeSelf(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newMatchService(db, &fakeMailer{})

	alice := createUser(t, db, "alice", nil)

	_, err := svc.ToggleLike(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestToggleLikeMissingTarget(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newMatchService(db, &fakeMailer{})

	alice := createUser(t, db, "alice", nil)

	_, err := svc.ToggleLike(ctx, alice.ID, alice.ID+100)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestToggleLikeBlocked(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newMatchService(db, &fakeMailer{})

	alice := createUser(t, db, "alice", nil)
	bob := createUser(t, db, "bob", nil)

	rels := repository.NewRelationshipRepository(db)
	require.NoError(t, rels.CreateBlock(ctx, bob.ID, alice.ID))

	// the block works against the blocked party too
	_, err := svc.ToggleLike(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestMatchesIntersection(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newMatchService(db, &fakeMailer{})

	alice := createUser(t, db, "alice", nil)
	bob := createUser(t, db, "bob", nil)
	carol := createUser(t, db, "carol", nil)
	dave := createUser(t, db, "dave", nil)

	// alice<->bob mutual, alice->carol one way, dave->alice one way
	_, err := svc.ToggleLike(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, dave.ID, alice.ID)
	require.NoError(t, err)

	matches, err := svc.Matches(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, bob.ID, matches[0].ID)
}
