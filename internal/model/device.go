package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DevicePlatform defines the push platform of a registered device
type DevicePlatform string

const (
	PlatformIOS     DevicePlatform = "ios"
	PlatformAndroid DevicePlatform = "android"
	PlatformWeb     DevicePlatform = "web"
)

// IsValid reports whether the platform is one of the supported push platforms
func (p DevicePlatform) IsValid() bool {
	return p == PlatformIOS || p == PlatformAndroid || p == PlatformWeb
}

// UserDevice represents a push notification endpoint for one installation.
// Rows are upserted on registration and hard-deleted on unregister or when
// the push gateway reports the token as permanently invalid.
type UserDevice struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID      `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_user_device_token;not null"`
	DeviceToken string         `json:"device_token" gorm:"size:500;uniqueIndex:idx_user_device_token;not null"`
	Platform    DevicePlatform `json:"platform" gorm:"type:varchar(20);not null"`
	DeviceName  *string        `json:"device_name,omitempty" gorm:"size:200"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (UserDevice) TableName() string { return "user_devices" }

func (d *UserDevice) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
