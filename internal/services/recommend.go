package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/repository"

	"gorm.io/gorm"
)

const maxRecommendations = 12

// RecommendService ranks candidate users for a viewer with a deterministic
// additive heuristic over distance, age proximity and shared interests.
// Stateless: every call recomputes from current store state.
type RecommendService struct {
	db         *gorm.DB
	visibility *VisibilityService
}

func NewRecommendService(db *gorm.DB, visibility *VisibilityService) *RecommendService {
	return &RecommendService{db: db, visibility: visibility}
}

// Recommend returns at most 12 users ordered by descending score. Excluded
// are the viewer, anyone in the blocking exclusion set, and anyone the viewer
// already liked. Candidates must have a profile and both preference
// directions must agree (the candidate's looking_for accepts the viewer's
// gender and vice versa, with "all" matching everything). Ties keep the
// candidate enumeration order.
func (s *RecommendService) Recommend(ctx context.Context, viewerID uint) ([]models.User, error) {
	viewer, err := repository.NewUserRepository(s.db).ByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.User{}, nil
		}
		return nil, err
	}
	if viewer.Profile == nil {
		return []models.User{}, nil
	}

	excluded, err := s.visibility.ExclusionIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	liked, err := repository.NewRelationshipRepository(s.db).LikedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	excluded = append(excluded, liked...)

	query := s.db.WithContext(ctx).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("users.id NOT IN ?", excluded).
		Where("profiles.looking_for IN ?", []string{viewer.Profile.Gender, models.LookingForAll}).
		Preload("Profile.Interests").
		Order("users.id ASC")
	if viewer.Profile.LookingFor != models.LookingForAll {
		query = query.Where("profiles.gender = ?", viewer.Profile.LookingFor)
	}

	var candidates []models.User
	if err := query.Find(&candidates).Error; err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	scores := make([]int, len(candidates))
	for i := range candidates {
		scores[i] = scoreCandidate(viewer.Profile, candidates[i].Profile, now)
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	if len(order) > maxRecommendations {
		order = order[:maxRecommendations]
	}
	result := make([]models.User, 0, len(order))
	for _, idx := range order {
		result = append(result, candidates[idx])
	}
	return result, nil
}

// scoreCandidate applies the additive heuristic:
//
//	distance  <10km +50, <50km +30, <100km +10 (both sides need coordinates)
//	age gap   <5y +30, <10y +15
//	interests +10 per shared interest
func scoreCandidate(viewer, candidate *models.Profile, now time.Time) int {
	if candidate == nil {
		return 0
	}
	score := 0

	if d := viewer.DistanceKm(candidate); d != nil {
		switch {
		case *d < 10:
			score += 50
		case *d < 50:
			score += 30
		case *d < 100:
			score += 10
		}
	}

	ageDiff := viewer.Age(now) - candidate.Age(now)
	if ageDiff < 0 {
		ageDiff = -ageDiff
	}
	switch {
	case ageDiff < 5:
		score += 30
	case ageDiff < 10:
		score += 15
	}

	viewerInterests := make(map[uint]struct{}, len(viewer.Interests))
	for _, interest := range viewer.Interests {
		viewerInterests[interest.ID] = struct{}{}
	}
	for _, interest := range candidate.Interests {
		if _, ok := viewerInterests[interest.ID]; ok {
			score += 10
		}
	}
	return score
}
