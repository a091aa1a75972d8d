package Controllers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Osprey/Models"
	"Osprey/Notifications"
	"Osprey/Validation"
)

// ProjectController owns the project lifecycle.
type ProjectController struct {
	DB       *gorm.DB
	Notifier *Notifications.Service
}

func NewProjectController(db *gorm.DB, notifier *Notifications.Service) *ProjectController {
	return &ProjectController{DB: db, Notifier: notifier}
}

type CreateProjectRequest struct {
	Title             string    `json:"title" validate:"required,max=100"`
	Description       string    `json:"description" validate:"max=500"`
	StartDate         time.Time `json:"startDate" validate:"required"`
	EndDate           time.Time `json:"endDate" validate:"required"`
	AssignedManagerID uint      `json:"assignedManagerId" validate:"required"`
}

type UpdateProjectRequest struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	StartDate         *time.Time `json:"startDate"`
	EndDate           *time.Time `json:"endDate"`
	Status            *string    `json:"status"`
	AssignedManagerID *uint      `json:"assignedManagerId"`
}

// findManager resolves a user id that must hold the manager role right now.
// A later role change does not retroactively invalidate assignments.
func (pc *ProjectController) findManager(id uint) (*Models.User, error) {
	var manager Models.User
	err := pc.DB.Where("id = ? AND role = ?", id, Models.RoleManager).First(&manager).Error
	if err != nil {
		return nil, err
	}
	return &manager, nil
}

func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := Validation.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	manager, err := pc.findManager(req.AssignedManagerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid manager ID or user is not a manager",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create project"})
	}

	project := Models.Project{
		Title:             req.Title,
		Description:       req.Description,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Status:            Models.ProjectStatusPending,
		AssignedManagerID: &manager.ID,
	}
	if err := pc.DB.Create(&project).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create project"})
	}
	project.AssignedManager = manager

	return c.Status(fiber.StatusCreated).JSON(project)
}

func (pc *ProjectController) GetProjects(c *fiber.Ctx) error {
	var projects []Models.Project
	err := pc.DB.Preload("AssignedManager").Preload("Tasks").Find(&projects).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve projects"})
	}
	return c.JSON(projects)
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var project Models.Project
	err = pc.DB.Preload("AssignedManager").Preload("Tasks").First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve project"})
	}
	return c.JSON(project)
}

// UpdateProject applies a partial update. A transition into completed
// status triggers the project-completed notification after the row is
// saved; a changed manager is revalidated.
func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var project Models.Project
	err = pc.DB.First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update project"})
	}

	var req UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Status != nil && !Models.ValidProjectStatus(*req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project status"})
	}

	if req.AssignedManagerID != nil {
		manager, err := pc.findManager(*req.AssignedManagerID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid manager ID or user is not a manager",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update project"})
		}
		project.AssignedManagerID = &manager.ID
		project.AssignedManager = manager
	}

	completing := req.Status != nil &&
		*req.Status == Models.ProjectStatusCompleted &&
		project.Status != Models.ProjectStatusCompleted

	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.StartDate != nil {
		project.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = *req.EndDate
	}
	if req.Status != nil {
		project.Status = *req.Status
	}

	if err := pc.DB.Save(&project).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update project"})
	}

	// Notify only after the state change is durable.
	if completing {
		if err := pc.Notifier.ProjectCompleted(&project); err != nil {
			log.Printf("Project-completed notification failed for project %d: %v", project.ID, err)
		}
	}

	return c.JSON(project)
}

func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid project ID"})
	}

	var project Models.Project
	err = pc.DB.First(&project, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete project"})
	}

	if err := pc.DB.Unscoped().Delete(&project).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete project"})
	}
	return c.JSON(fiber.Map{"message": "Project deleted"})
}
