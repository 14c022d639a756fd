package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message rows are immutable once created; only the backend's own
// timestamp bookkeeping touches them afterwards.
type Message struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID       `gorm:"type:uuid;not null;index:idx_messages_conversation" json:"conversation_id"`
	SenderID       uuid.UUID       `gorm:"type:uuid;not null" json:"sender_id"`
	Content        string          `gorm:"type:text;not null" json:"content"`
	Kind           MessageKind     `gorm:"column:message_type;type:text;default:'text'" json:"message_type"`
	Metadata       json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_messages_created" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Sender *Profile `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (Message) TableName() string { return "messages" }
