package Controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Osprey/Models"
	"Osprey/Notifications"
	"Osprey/middleware"
)

// NotificationController exposes the caller's own notification feed.
type NotificationController struct {
	DB      *gorm.DB
	Service *Notifications.Service
}

func NewNotificationController(db *gorm.DB, service *Notifications.Service) *NotificationController {
	return &NotificationController{DB: db, Service: service}
}

// GetNotifications lists the caller's notifications, newest first.
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	var notifications []Models.Notification
	err := nc.DB.Preload("Task").Preload("Project").
		Where("recipient_id = ?", middleware.CurrentUserID(c)).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve notifications"})
	}
	return c.JSON(notifications)
}

// MarkAsRead marks one of the caller's notifications as read. A
// notification belonging to someone else is indistinguishable from a
// missing one.
func (nc *NotificationController) MarkAsRead(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification ID"})
	}

	notification, err := nc.Service.MarkAsRead(uint(id), middleware.CurrentUserID(c))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notification"})
	}
	return c.JSON(notification)
}

// MarkAllAsRead marks every unread notification of the caller.
func (nc *NotificationController) MarkAllAsRead(c *fiber.Ctx) error {
	updated, err := nc.Service.MarkAllAsRead(middleware.CurrentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update notifications"})
	}
	return c.JSON(fiber.Map{
		"message": "All notifications marked as read",
		"updated": updated,
	})
}
