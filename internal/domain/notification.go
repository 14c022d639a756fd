package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_user" json:"user_id"`
	Title     string           `gorm:"type:text;not null" json:"title"`
	Body      string           `gorm:"column:message;type:text;not null" json:"message"`
	Kind      NotificationKind `gorm:"column:type;type:text;default:'general'" json:"type"`
	Data      json.RawMessage  `gorm:"type:jsonb" json:"data,omitempty"`
	Read      bool             `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// PushToken registers a device for the OS push service. Delivery itself
// happens outside this client.
type PushToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_push_tokens_device" json:"user_id"`
	DeviceID  string    `gorm:"type:text;not null;uniqueIndex:idx_push_tokens_device" json:"device_id"`
	Token     string    `gorm:"type:text;not null" json:"token"`
	Platform  string    `gorm:"type:text;not null" json:"platform"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PushToken) TableName() string { return "push_tokens" }
