package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository handles database operations for push devices
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert registers a device token, refreshing the row on conflict
func (r *DeviceRepository) Upsert(device *model.UserDevice) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "device_token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"updated_at":  time.Now(),
			"platform":    device.Platform,
			"device_name": device.DeviceName,
		}),
	}).Create(device).Error
}

// GetUserDevices gets all devices for a user
func (r *DeviceRepository) GetUserDevices(userID uuid.UUID) ([]model.UserDevice, error) {
	var devices []model.UserDevice
	err := r.db.Where("user_id = ?", userID).Find(&devices).Error
	return devices, err
}

// Delete removes a device registration. Deleting an absent token is not an
// error; unregister is idempotent.
func (r *DeviceRepository) Delete(userID uuid.UUID, token string) error {
	return r.db.
		Where("user_id = ? AND device_token = ?", userID, token).
		Delete(&model.UserDevice{}).Error
}

// DeleteByToken prunes a token the push gateway reported as permanently
// invalid, regardless of owner
func (r *DeviceRepository) DeleteByToken(token string) error {
	return r.db.
		Where("device_token = ?", token).
		Delete(&model.UserDevice{}).Error
}
