package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/mateusbentes/proof/internal/service"
)

// DeviceHandler handles the push device registry endpoints
type DeviceHandler struct {
	deviceService *service.DeviceService
}

func NewDeviceHandler(deviceService *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

// RegisterDevice godoc
// @Summary Register a push device token
// @Description Upsert keyed by (user, token); re-registering refreshes the registration timestamp.
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "Device registration"
// @Success 201 {object} model.UserDevice
// @Failure 400 {object} model.ErrorResponse
// @Router /devices [post]
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	userID := c.MustGet("user_id").(uuid.UUID)
	device, err := h.deviceService.Register(userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, device)
}

// UnregisterDevice godoc
// @Summary Unregister a push device token
// @Description Idempotent; unregistering an unknown token succeeds.
// @Tags Devices
// @Produce json
// @Security BearerAuth
// @Param token path string true "Device token"
// @Success 200 {object} model.SuccessResponse
// @Router /devices/{token} [delete]
func (h *DeviceHandler) UnregisterDevice(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	if err := h.deviceService.Unregister(userID, c.Param("token")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device unregistered"})
}
