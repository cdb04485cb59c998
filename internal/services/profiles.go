package services

import (
	"context"
	"errors"
	"time"

	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const browsePageSize = 12

// ProfileInput carries validated profile fields from the presentation layer.
type ProfileInput struct {
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	Gender      string
	LookingFor  string
	Bio         *string
	City        *string
	Country     *string
	InterestIDs []uint
}

// ProfileView is a profile as seen by another user.
type ProfileView struct {
	User       models.User `json:"user"`
	Age        int         `json:"age"`
	DistanceKm *float64    `json:"distance_km,omitempty"`
	HasLiked   bool        `json:"has_liked"`
	IsMatched  bool        `json:"is_matched"`
}

type SearchFilters struct {
	Gender        *string
	MinAge        *int
	MaxAge        *int
	Keywords      *string
	MaxDistanceKm *float64
}

// ProfileService manages profile lifecycle and the listing queries (browse,
// search) gated by the visibility filter. Geocoding is best-effort: a failed
// or empty lookup leaves the coordinates unset and never fails the operation.
type ProfileService struct {
	db         *gorm.DB
	visibility *VisibilityService
	geocoder   Geocoder
	log        *logrus.Logger
}

func NewProfileService(db *gorm.DB, visibility *VisibilityService, geocoder Geocoder, log *logrus.Logger) *ProfileService {
	return &ProfileService{db: db, visibility: visibility, geocoder: geocoder, log: log}
}

func validGender(g string) bool {
	return g == models.GenderMale || g == models.GenderFemale || g == models.GenderOther
}

func (s *ProfileService) validateInput(in *ProfileInput) error {
	if !validGender(in.Gender) {
		return apperr.Validationf("gender must be one of male, female, other")
	}
	if in.LookingFor != models.LookingForAll && !validGender(in.LookingFor) {
		return apperr.Validationf("looking_for must be a gender or all")
	}
	probe := models.Profile{DateOfBirth: in.DateOfBirth}
	if probe.Age(time.Now().UTC()) < 18 {
		return apperr.Validationf("you must be at least 18 years old")
	}
	return nil
}

// Create builds the user's profile. One profile per user.
func (s *ProfileService) Create(ctx context.Context, userID uint, in *ProfileInput) (*models.Profile, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	var existing models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error; err == nil {
		return nil, apperr.ErrDuplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile := &models.Profile{
		UserID:      userID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateOfBirth: in.DateOfBirth,
		Gender:      in.Gender,
		LookingFor:  in.LookingFor,
		Bio:         in.Bio,
		City:        in.City,
		Country:     in.Country,
	}
	s.fillCoordinates(ctx, profile)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		return s.replaceInterests(ctx, tx, profile, in.InterestIDs)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Update rewrites the profile fields and re-geocodes when a city/country is
// set.
func (s *ProfileService) Update(ctx context.Context, userID uint, in *ProfileInput) (*models.Profile, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	profile.FirstName = in.FirstName
	profile.LastName = in.LastName
	profile.DateOfBirth = in.DateOfBirth
	profile.Gender = in.Gender
	profile.LookingFor = in.LookingFor
	profile.Bio = in.Bio
	profile.City = in.City
	profile.Country = in.Country
	s.fillCoordinates(ctx, &profile)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&profile).Error; err != nil {
			return err
		}
		if in.InterestIDs == nil {
			return nil
		}
		return s.replaceInterests(ctx, tx, &profile, in.InterestIDs)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetPicture stores the uploaded picture reference on the profile.
func (s *ProfileService) SetPicture(ctx context.Context, userID uint, reference string) error {
	res := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("profile_picture", reference)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// View returns the target's profile as seen by the viewer. Blocked either way
// means the profile does not exist for the viewer.
func (s *ProfileService) View(ctx context.Context, viewerID, targetID uint) (*ProfileView, error) {
	users := repository.NewUserRepository(s.db)

	target, err := users.ByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if target.Profile == nil {
		return nil, apperr.ErrNotFound
	}

	if viewerID != targetID {
		excluded, err := s.visibility.Excluded(ctx, viewerID, targetID)
		if err != nil {
			return nil, err
		}
		if excluded {
			return nil, apperr.Forbiddenf("you cannot view this profile")
		}
	}

	view := &ProfileView{
		User: *target,
		Age:  target.Profile.Age(time.Now().UTC()),
	}

	viewer, err := users.ByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer.Profile != nil {
		view.DistanceKm = viewer.Profile.DistanceKm(target.Profile)
	}

	rels := repository.NewRelationshipRepository(s.db)
	if view.HasLiked, err = rels.LikeExists(ctx, viewerID, targetID); err != nil {
		return nil, err
	}
	if view.HasLiked {
		if view.IsMatched, err = rels.LikeExists(ctx, targetID, viewerID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// Browse lists visible users with profiles whose preferences are compatible
// with the viewer, paginated at 12 per page.
func (s *ProfileService) Browse(ctx context.Context, viewerID uint, page int) ([]models.User, int64, error) {
	viewer, err := repository.NewUserRepository(s.db).ByID(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}
	if viewer.Profile == nil {
		return nil, 0, apperr.Validationf("create your profile first")
	}
	if page < 1 {
		page = 1
	}

	excluded, err := s.visibility.ExclusionIDs(ctx, viewerID)
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("users.id NOT IN ?", excluded).
		Where("profiles.looking_for IN ?", []string{viewer.Profile.Gender, models.LookingForAll})
	if viewer.Profile.LookingFor != models.LookingForAll {
		query = query.Where("profiles.gender = ?", viewer.Profile.LookingFor)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err = query.
		Preload("Profile.Interests").
		Order("users.id ASC").
		Offset((page - 1) * browsePageSize).
		Limit(browsePageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Search filters visible users by gender, age range, bio keywords and an
// optional maximum distance. The distance cut is applied in memory after the
// store query, since it needs both sides' coordinates.
func (s *ProfileService) Search(ctx context.Context, viewerID uint, filters SearchFilters) ([]models.User, error) {
	viewer, err := repository.NewUserRepository(s.db).ByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer.Profile == nil {
		return nil, apperr.Validationf("create your profile first")
	}

	excluded, err := s.visibility.ExclusionIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("users.id NOT IN ?", excluded)

	now := time.Now().UTC()
	if filters.Gender != nil {
		query = query.Where("profiles.gender = ?", *filters.Gender)
	}
	if filters.MinAge != nil {
		query = query.Where("profiles.date_of_birth <= ?", now.AddDate(-*filters.MinAge, 0, 0))
	}
	if filters.MaxAge != nil {
		query = query.Where("profiles.date_of_birth >= ?", now.AddDate(-*filters.MaxAge-1, 0, 0))
	}
	if filters.Keywords != nil && *filters.Keywords != "" {
		query = query.Where("LOWER(profiles.bio) LIKE LOWER(?)", "%"+*filters.Keywords+"%")
	}

	var users []models.User
	if err := query.Preload("Profile.Interests").Order("users.id ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	if filters.MaxDistanceKm != nil && viewer.Profile.Latitude != nil && viewer.Profile.Longitude != nil {
		filtered := users[:0]
		for _, u := range users {
			d := viewer.Profile.DistanceKm(u.Profile)
			if d != nil && *d <= *filters.MaxDistanceKm {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	return users, nil
}

// replaceInterests swaps the profile's interest set for the given catalogue
// ids.
func (s *ProfileService) replaceInterests(ctx context.Context, tx *gorm.DB, profile *models.Profile, interestIDs []uint) error {
	if interestIDs == nil {
		return nil
	}
	var interests []models.Interest
	if len(interestIDs) > 0 {
		if err := tx.WithContext(ctx).Where("id IN ?", interestIDs).Find(&interests).Error; err != nil {
			return err
		}
	}
	return tx.WithContext(ctx).Model(profile).Association("Interests").Replace(interests)
}

// fillCoordinates geocodes city/country best-effort. Failures are logged and
// swallowed; the coordinates simply stay unset.
func (s *ProfileService) fillCoordinates(ctx context.Context, profile *models.Profile) {
	if s.geocoder == nil || profile.City == nil || profile.Country == nil || *profile.City == "" || *profile.Country == "" {
		return
	}
	coords, err := s.geocoder.Geocode(ctx, *profile.City, *profile.Country)
	if err != nil {
		s.log.WithError(err).Warn("geocoding failed, leaving coordinates unset")
		return
	}
	if coords != nil {
		profile.Latitude = &coords.Latitude
		profile.Longitude = &coords.Longitude
	}
}
