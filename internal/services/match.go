package services

import (
	"context"
	"errors"
	"fmt"

	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	LikeStatusLiked   = "liked"
	LikeStatusUnliked = "unliked"
)

type LikeResult struct {
	Status  string `json:"status"` // liked | unliked
	IsMatch bool   `json:"is_match"`
}

// MatchService owns the mutual-like relationship state. Match is a derived
// condition, re-evaluated from the like edges on every query; nothing sticky
// is stored when two users match.
type MatchService struct {
	db         *gorm.DB
	visibility *VisibilityService
	notifier   *NotificationService
	mailer     Mailer
	log        *logrus.Logger
}

func NewMatchService(db *gorm.DB, visibility *VisibilityService, notifier *NotificationService, mailer Mailer, log *logrus.Logger) *MatchService {
	return &MatchService{db: db, visibility: visibility, notifier: notifier, mailer: mailer, log: log}
}

// ToggleLike creates the actor->target like, or removes it if it already
// exists. On the transition to a mutual match it records one "match"
// notification per party inside the same transaction. Unliking and re-liking
// later re-fires the match notifications; that is accepted behavior.
func (s *MatchService) ToggleLike(ctx context.Context, actorID, targetID uint) (*LikeResult, error) {
	if actorID == targetID {
		return nil, apperr.Validationf("you cannot like yourself")
	}

	users := repository.NewUserRepository(s.db)
	actor, err := users.ByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := users.ByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	excluded, err := s.visibility.Excluded(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if excluded {
		return nil, apperr.Forbiddenf("you cannot like this user")
	}

	result := &LikeResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rels := repository.NewRelationshipRepository(tx)

		exists, err := rels.LikeExists(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if exists {
			result.Status = LikeStatusUnliked
			return rels.DeleteLike(ctx, actorID, targetID)
		}

		if err := rels.CreateLike(ctx, actorID, targetID); err != nil {
			return err
		}
		result.Status = LikeStatusLiked

		mutual, err := rels.LikeExists(ctx, targetID, actorID)
		if err != nil {
			return err
		}
		if !mutual {
			return nil
		}
		result.IsMatch = true

		if err := s.notifier.Notify(ctx, tx, actorID, models.NotificationTypeMatch,
			fmt.Sprintf("You have a new match with %s!", target.Username), &targetID); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, tx, targetID, models.NotificationTypeMatch,
			fmt.Sprintf("You have a new match with %s!", actor.Username), &actorID)
	})
	if err != nil {
		return nil, err
	}

	if result.IsMatch {
		s.sendMatchMail(actor, target)
		s.sendMatchMail(target, actor)
		s.log.WithFields(logrus.Fields{"user_a": actorID, "user_b": targetID}).Info("new match")
	}
	return result, nil
}

// IsMatch reports whether likes exist in both directions. Symmetric.
func (s *MatchService) IsMatch(ctx context.Context, a, b uint) (bool, error) {
	rels := repository.NewRelationshipRepository(s.db)

	forward, err := rels.LikeExists(ctx, a, b)
	if err != nil || !forward {
		return false, err
	}
	return rels.LikeExists(ctx, b, a)
}

// Matches returns full user records for the intersection of "ids the user
// liked" and "ids who liked the user".
func (s *MatchService) Matches(ctx context.Context, userID uint) ([]models.User, error) {
	rels := repository.NewRelationshipRepository(s.db)

	liked, err := rels.LikedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	likers, err := rels.LikerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	likedSet := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		likedSet[id] = struct{}{}
	}
	var matched []uint
	for _, id := range likers {
		if _, ok := likedSet[id]; ok {
			matched = append(matched, id)
		}
	}

	return repository.NewUserRepository(s.db).ByIDs(ctx, matched)
}

// sendMatchMail is best-effort: delivery failure never affects the match.
func (s *MatchService) sendMatchMail(recipient, other *models.User) {
	body := fmt.Sprintf(
		"Congratulations %s!\n\nYou have a new match with %s!\n\nLog in now to start chatting.\n\nThe Onlyz team\n",
		recipient.Username, other.Username,
	)
	if err := s.mailer.Send(recipient.Email, "New match on Onlyz!", body); err != nil {
		s.log.WithError(err).WithField("user_id", recipient.ID).Warn("match mail delivery failed")
	}
}
