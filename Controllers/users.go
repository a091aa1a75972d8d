package Controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Osprey/Models"
	"Osprey/middleware"
)

// UsersController handles user listing and role administration.
type UsersController struct {
	DB *gorm.DB
}

func NewUsersController(db *gorm.DB) *UsersController {
	return &UsersController{DB: db}
}

// FetchUsers returns a paginated user list without password material.
func (uc *UsersController) FetchUsers(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := uc.DB.Model(&Models.User{}).Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve users"})
	}

	var users []Models.User
	err = uc.DB.
		Select("id", "first_name", "last_name", "email", "role", "last_login_at", "created_at", "updated_at").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve users"})
	}

	return c.JSON(fiber.Map{
		"users": users,
		"total": total,
	})
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ChangeUserRole updates another user's role. Admin-only route; an admin
// cannot change their own role.
func (uc *UsersController) ChangeUserRole(c *fiber.Ctx) error {
	targetID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !Models.ValidRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid role. Must be one of: admin, manager, user",
		})
	}

	if middleware.CurrentUserID(c) == uint(targetID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You cannot change your own role"})
	}

	var user Models.User
	err = uc.DB.First(&user, targetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update role"})
	}

	if err := uc.DB.Model(&user).Update("role", req.Role).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update role"})
	}
	user.Role = req.Role

	return c.JSON(user)
}
