package services

import (
	"context"

	"onlyz-dating-server/internal/repository"

	"gorm.io/gorm"
)

// VisibilityService computes, for a viewer, the user ids that must never
// appear in any listing: the viewer itself, everyone the viewer blocked, and
// everyone who blocked the viewer. Pure read; recomputed on every call.
type VisibilityService struct {
	db *gorm.DB
}

func NewVisibilityService(db *gorm.DB) *VisibilityService {
	return &VisibilityService{db: db}
}

// ExclusionIDs returns the exclusion set as a deduplicated id slice, suitable
// for NOT IN queries. Always contains at least the viewer id.
func (s *VisibilityService) ExclusionIDs(ctx context.Context, viewerID uint) ([]uint, error) {
	rels := repository.NewRelationshipRepository(s.db)

	blocked, err := rels.BlockedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	blockers, err := rels.BlockerIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	seen := map[uint]struct{}{viewerID: {}}
	ids := []uint{viewerID}
	for _, id := range append(blocked, blockers...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// Excluded reports whether the two users are hidden from each other: either
// they are the same user or a block exists in either direction.
func (s *VisibilityService) Excluded(ctx context.Context, viewerID, otherID uint) (bool, error) {
	if viewerID == otherID {
		return true, nil
	}
	rels := repository.NewRelationshipRepository(s.db)

	if blocked, err := rels.BlockExists(ctx, viewerID, otherID); err != nil || blocked {
		return blocked, err
	}
	return rels.BlockExists(ctx, otherID, viewerID)
}
