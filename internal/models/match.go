package models

import "time"

// Like is a directed edge liker -> liked. A match is never stored: it is the
// derived condition that both directions exist.
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	LikerID   uint      `json:"liker_id" gorm:"not null;uniqueIndex:idx_liker_liked"`
	LikedID   uint      `json:"liked_id" gorm:"not null;uniqueIndex:idx_liker_liked"`
	CreatedAt time.Time `json:"created_at"`
	Liker     User      `json:"liker,omitempty" gorm:"foreignKey:LikerID"`
	Liked     User      `json:"liked,omitempty" gorm:"foreignKey:LikedID"`
}

type Message struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SenderID   uint      `json:"sender_id" gorm:"not null;index"`
	ReceiverID uint      `json:"receiver_id" gorm:"not null;index"`
	Content    string    `json:"content" gorm:"not null"`
	IsRead     bool      `json:"is_read" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
	Sender     User      `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	Receiver   User      `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID"`
}

const (
	NotificationTypeMatch   = "match"
	NotificationTypeMessage = "message"
)

type Notification struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        uint      `json:"user_id" gorm:"not null;index"`
	Type          string    `json:"type" gorm:"size:50;not null"` // match, message
	Content       string    `json:"content" gorm:"not null"`
	RelatedUserID *uint     `json:"related_user_id,omitempty"`
	IsRead        bool      `json:"is_read" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
	User          User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	RelatedUser   *User     `json:"related_user,omitempty" gorm:"foreignKey:RelatedUserID"`
}
