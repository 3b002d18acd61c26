package service

import (
	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/mateusbentes/proof/internal/repository"
	"github.com/mateusbentes/proof/pkg/apperr"
)

// DeviceService implements the push device registry
type DeviceService struct {
	deviceRepo *repository.DeviceRepository
}

func NewDeviceService(deviceRepo *repository.DeviceRepository) *DeviceService {
	return &DeviceService{deviceRepo: deviceRepo}
}

// Register upserts a device token for the user, refreshing the registration
// timestamp when the token is already known
func (s *DeviceService) Register(userID uuid.UUID, req model.RegisterDeviceRequest) (*model.UserDevice, error) {
	if !req.Platform.IsValid() {
		return nil, apperr.ErrInvalidPlatform
	}

	device := &model.UserDevice{
		UserID:      userID,
		DeviceToken: req.DeviceToken,
		Platform:    req.Platform,
		DeviceName:  req.DeviceName,
	}
	if err := s.deviceRepo.Upsert(device); err != nil {
		return nil, apperr.Internal("failed to register device", err)
	}
	return device, nil
}

// Unregister deletes a device registration; absence is not an error
func (s *DeviceService) Unregister(userID uuid.UUID, token string) error {
	if err := s.deviceRepo.Delete(userID, token); err != nil {
		return apperr.Internal("failed to unregister device", err)
	}
	return nil
}
