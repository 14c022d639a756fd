package domain

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Kind       ConversationKind `gorm:"column:type;type:text;not null" json:"type"`
	Name       *string          `gorm:"type:text" json:"name,omitempty"`
	ActivityID *uuid.UUID       `gorm:"type:uuid" json:"activity_id,omitempty"`
	CreatedBy  uuid.UUID        `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt  time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"default:CURRENT_TIMESTAMP;index:idx_conversations_updated,sort:desc" json:"updated_at"`

	// Relations
	Participants []Participant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

func (Conversation) TableName() string { return "conversations" }

type Participant struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"conversation_id"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;index:idx_participants_user" json:"user_id"`
	JoinedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"joined_at"`
	// Advances monotonically; never moves backward.
	LastReadAt time.Time `gorm:"default:'epoch'" json:"last_read_at"`
}

func (Participant) TableName() string { return "conversation_participants" }

// ConversationSummary is a conversation annotated with its most recent
// message, the shape the inbox list renders from.
type ConversationSummary struct {
	Conversation
	LastMessage   *string    `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	LastSenderID  *uuid.UUID `json:"last_sender_id,omitempty"`
	UnreadCount   int64      `json:"unread_count"`
}
