package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the display metadata joined into messages for rendering.
// The full profile (locations, vibes, verification) lives with the
// hosted backend; only the fields the chat surface needs are mapped.
type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName *string   `gorm:"type:text" json:"display_name,omitempty"`
	Username    *string   `gorm:"type:text" json:"username,omitempty"`
	AvatarURL   *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
