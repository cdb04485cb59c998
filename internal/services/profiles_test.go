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

// fakeGeocoder resolves every lookup to a fixed location.
type fakeGeocoder struct {
	coords *services.Coordinates
	calls  int
}

func (g *fakeGeocoder) Geocode(ctx context.Context, city, country string) (*services.Coordinates, error) {
	g.calls++
	return g.coords, nil
}

func newProfileService(db *gorm.DB, geocoder services.Geocoder) *services.ProfileService {
	return services.NewProfileService(db, services.NewVisibilityService(db), geocoder, newTestLogger())
}

func TestCreateProfileGeocodes(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	geocoder := &fakeGeocoder{coords: &services.Coordinates{Latitude: 48.85, Longitude: 2.35}}
	svc := newProfileService(db, geocoder)

	user := createUser(t, db, "alice", nil)

	profile, err := svc.Create(ctx, user.ID, &services.ProfileInput{
		FirstName: "Alice", LastName: "Smith",
		DateOfBirth: dob(28), Gender: models.GenderFemale, LookingFor: models.GenderMale,
		City: strPtr("Paris"), Country: strPtr("France"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, geocoder.calls)
	require.NotNil(t, profile.Latitude)
	assert.InDelta(t, 48.85, *profile.Latitude, 0.001)

	// one profile per user
	_, err = svc.Create(ctx, user.ID, &services.ProfileInput{
		FirstName: "Alice", LastName: "Smith",
		DateOfBirth: dob(28), Gender: models.GenderFemale, LookingFor: models.GenderMale,
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
}

func TestCreateProfileValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)

	user := createUser(t, db, "alice", nil)

	_, err := svc.Create(ctx, user.ID, &services.ProfileInput{
		FirstName: "Alice", LastName: "Smith",
		DateOfBirth: dob(17), Gender: models.GenderFemale, LookingFor: models.GenderMale,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, user.ID, &services.ProfileInput{
		FirstName: "Alice", LastName: "Smith",
		DateOfBirth: dob(28), Gender: "unknown", LookingFor: models.GenderMale,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestViewProfile(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)
	rels := repository.NewRelationshipRepository(db)

	viewer := createUser(t, db, "viewer", &models.Profile{
		DateOfBirth: dob(30), Gender: models.GenderFemale, LookingFor: models.GenderMale,
		Latitude: f64Ptr(48.8566), Longitude: f64Ptr(2.3522),
	})
	target := createUser(t, db, "target", &models.Profile{
		DateOfBirth: dob(32), Gender: models.GenderMale, LookingFor: models.GenderFemale,
		Latitude: f64Ptr(48.9266), Longitude: f64Ptr(2.3622),
	})
	require.NoError(t, rels.CreateLike(ctx, viewer.ID, target.ID))

	view, err := svc.View(ctx, viewer.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, view.User.ID)
	assert.Equal(t, 32, view.Age)
	require.NotNil(t, view.DistanceKm)
	assert.Less(t, *view.DistanceKm, 10.0)
	assert.True(t, view.HasLiked)
	assert.False(t, view.IsMatched)
}

func TestViewProfileBlocked(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)
	rels := repository.NewRelationshipRepository(db)

	viewer := createUser(t, db, "viewer", nil)
	target := createUser(t, db, "target", &models.Profile{
		DateOfBirth: dob(32), Gender: models.GenderMale, LookingFor: models.GenderFemale,
	})
	require.NoError(t, rels.CreateBlock(ctx, target.ID, viewer.ID))

	_, err := svc.View(ctx, viewer.ID, target.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestViewProfileMissing(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)

	viewer := createUser(t, db, "viewer", nil)
	bare := createUser(t, db, "bare", nil)

	_, err := svc.View(ctx, viewer.ID, bare.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBrowseReciprocalPreferences(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)

	viewer := createUser(t, db, "viewer", &models.Profile{
		DateOfBirth: dob(30), Gender: models.GenderFemale, LookingFor: models.GenderMale,
	})
	visible := createUser(t, db, "visible", &models.Profile{
		DateOfBirth: dob(30), Gender: models.GenderMale, LookingFor: models.LookingForAll,
	})
	// not interested in women, never shown
	createUser(t, db, "uninterested", &models.Profile{
		DateOfBirth: dob(30), Gender: models.GenderMale, LookingFor: models.GenderMale,
	})

	users, total, err := svc.Browse(ctx, viewer.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, visible.ID, users[0].ID)
}

func TestBrowsePagination(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)

	viewer := createUser(t, db, "viewer", &models.Profile{
		DateOfBirth: dob(30), Gender: models.GenderFemale, LookingFor: models.LookingForAll,
	})
	for i := 0; i < 15; i++ {
		createUser(t, db, "candidate"+string(rune('a'+i)), &models.Profile{
			DateOfBirth: dob(30), Gender: models.GenderMale, LookingFor: models.LookingForAll,
		})
	}

	users, total, err := svc.Browse(ctx, viewer.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, users, 12)

	users, _, err = svc.Browse(ctx, viewer.ID, 2)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestBrowseRequiresProfile(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)

	viewer := createUser(t, db, "viewer", nil)

	_, _, err := svc.Browse(ctx, viewer.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)

	viewer := createUser(t, db, "viewer", &models.Profile{
		DateOfBirth: dob(30), Gender: models.GenderFemale, LookingFor: models.LookingForAll,
	})
	hiker := createUser(t, db, "hiker", &models.Profile{
		DateOfBirth: dob(30), Gender: models.GenderMale, LookingFor: models.LookingForAll,
		Bio: strPtr("I love Hiking and camping"),
	})
	createUser(t, db, "homebody", &models.Profile{
		DateOfBirth: dob(30), Gender: models.GenderMale, LookingFor: models.LookingForAll,
		Bio: strPtr("Movies and takeout"),
	})
	createUser(t, db, "older", &models.Profile{
		DateOfBirth: dob(55), Gender: models.GenderMale, LookingFor: models.LookingForAll,
		Bio: strPtr("hiking every weekend"),
	})

	minAge, maxAge := 25, 40
	keywords := "hiking"
	users, err := svc.Search(ctx, viewer.ID, services.SearchFilters{
		MinAge:   &minAge,
		MaxAge:   &maxAge,
		Keywords: &keywords,
	})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, hiker.ID, users[0].ID)
}

func TestUpdateProfileWithoutProfile(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)

	user := createUser(t, db, "alice", nil)

	_, err := svc.Update(ctx, user.ID, &services.ProfileInput{
		FirstName: "Alice", LastName: "Smith",
		DateOfBirth: dob(28), Gender: models.GenderFemale, LookingFor: models.GenderMale,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetPictureWithoutProfile(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newProfileService(db, nil)

	user := createUser(t, db, "alice", nil)

	err := svc.SetPicture(ctx, user.ID, "profiles/1_x.jpg")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
