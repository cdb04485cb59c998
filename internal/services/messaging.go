package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperr "onlyz-dating-server/internal/errors"
	"onlyz-dating-server/internal/models"
	"onlyz-dating-server/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Broadcaster is the abstract publish side of the real-time surface. The
// websocket hub implements it; tests substitute an in-memory fake. Delivery
// is best-effort to currently-joined parties only.
type Broadcaster interface {
	Publish(room string, event interface{})
}

// ChatEvent is the payload pushed to a room when a message is persisted.
type ChatEvent struct {
	Type           string `json:"type"`
	SenderID       uint   `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	ReceiverID     uint   `json:"receiver_id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

// RoomID derives the deterministic room identifier for an unordered pair.
func RoomID(a, b uint) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("chat_%d_%d", a, b)
}

// MessagingService delivers chat between matched users. The match guard is
// re-evaluated live on every send and history load; an unlike by either party
// silently revokes messaging ability with no unmatch notification. A block in
// either direction closes the channel even while the like rows persist.
type MessagingService struct {
	db          *gorm.DB
	match       *MatchService
	notifier    *NotificationService
	mailer      Mailer
	broadcaster Broadcaster
	log         *logrus.Logger
}

func NewMessagingService(db *gorm.DB, match *MatchService, notifier *NotificationService, mailer Mailer, broadcaster Broadcaster, log *logrus.Logger) *MessagingService {
	return &MessagingService{db: db, match: match, notifier: notifier, mailer: mailer, broadcaster: broadcaster, log: log}
}

func (s *MessagingService) canChat(ctx context.Context, a, b uint) error {
	excluded, err := s.match.visibility.Excluded(ctx, a, b)
	if err != nil {
		return err
	}
	if excluded {
		return apperr.Forbiddenf("you cannot message this user")
	}

	matched, err := s.match.IsMatch(ctx, a, b)
	if err != nil {
		return err
	}
	if !matched {
		return apperr.ErrNotMatched
	}
	return nil
}

// Send persists the message and the receiver's "message" notification in one
// transaction, then broadcasts to the pair's room. The broadcast only happens
// after the commit, so a crash mid-broadcast never loses the durable row.
func (s *MessagingService) Send(ctx context.Context, senderID, receiverID uint, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validationf("message content is required")
	}
	if senderID == receiverID {
		return nil, apperr.Validationf("you cannot message yourself")
	}

	if err := s.canChat(ctx, senderID, receiverID); err != nil {
		return nil, err
	}

	users := repository.NewUserRepository(s.db)
	sender, err := users.ByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := users.ByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewMessageRepository(tx).Create(ctx, message); err != nil {
			return err
		}
		return s.notifier.Notify(ctx, tx, receiverID, models.NotificationTypeMessage,
			fmt.Sprintf("New message from %s", sender.Username), &senderID)
	})
	if err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.Publish(RoomID(senderID, receiverID), ChatEvent{
			Type:           "receive_message",
			SenderID:       senderID,
			SenderUsername: sender.Username,
			ReceiverID:     receiverID,
			Content:        content,
			CreatedAt:      message.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	s.sendMessageMail(sender, receiver)

	return message, nil
}

// History returns all messages between the pair ordered ascending by creation
// time and, as a side effect of the read, marks every peer->user message as
// read.
func (s *MessagingService) History(ctx context.Context, userID, peerID uint) ([]models.Message, error) {
	if err := s.canChat(ctx, userID, peerID); err != nil {
		return nil, err
	}

	var messages []models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewMessageRepository(tx)
		var err error
		messages, err = repo.BetweenAsc(ctx, userID, peerID)
		if err != nil {
			return err
		}
		return repo.MarkRead(ctx, peerID, userID)
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *MessagingService) sendMessageMail(sender, receiver *models.User) {
	body := fmt.Sprintf(
		"Hello %s,\n\nYou received a new message from %s!\n\nLog in to read it.\n\nThe Onlyz team\n",
		receiver.Username, sender.Username,
	)
	if err := s.mailer.Send(receiver.Email, "New message on Onlyz", body); err != nil {
		s.log.WithError(err).WithField("user_id", receiver.ID).Warn("message mail delivery failed")
	}
}
