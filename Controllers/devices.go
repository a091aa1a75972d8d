package Controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Osprey/Models"
	"Osprey/Validation"
	"Osprey/middleware"
)

// DeviceController registers device push tokens for the caller.
type DeviceController struct {
	DB *gorm.DB
}

func NewDeviceController(db *gorm.DB) *DeviceController {
	return &DeviceController{DB: db}
}

type RegisterDeviceRequest struct {
	Value string `json:"value" validate:"required,max=512"`
}

// RegisterDeviceToken stores a push token. Re-registering an existing token
// reassigns it to the current user, which covers device handovers.
func (dc *DeviceController) RegisterDeviceToken(c *fiber.Ctx) error {
	var req RegisterDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := Validation.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	token := Models.DeviceToken{
		UserID: middleware.CurrentUserID(c),
		Value:  req.Value,
	}
	err := dc.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "value"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at"}),
	}).Create(&token).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register device token"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Device token registered"})
}
