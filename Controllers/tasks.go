package Controllers

import (
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Osprey/Constants"
	"Osprey/Models"
	"Osprey/Notifications"
	"Osprey/Validation"
	"Osprey/middleware"
)

// TaskController owns the task lifecycle: creation with the 24-hour
// assignment-overlap rule, the creator/assignee mutation policy, and the
// completion trigger.
type TaskController struct {
	DB       *gorm.DB
	Notifier *Notifications.Service

	// overlapMu serializes the check-then-insert window when
	// OVERLAP_SERIALIZE is on. Without it two concurrent creates can both
	// pass the overlap check; see DESIGN.md.
	overlapMu sync.Mutex
}

func NewTaskController(db *gorm.DB, notifier *Notifications.Service) *TaskController {
	return &TaskController{DB: db, Notifier: notifier}
}

type CreateTaskRequest struct {
	Title           string    `json:"title" validate:"required,max=100"`
	Description     string    `json:"description" validate:"required,max=500"`
	DueDate         time.Time `json:"dueDate" validate:"required"`
	Status          string    `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	AssignedUserIDs []uint    `json:"assignedUserIds" validate:"required,min=1"`
	ProjectID       uint      `json:"projectId" validate:"required"`
}

type UpdateTaskRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	DueDate         *time.Time `json:"dueDate"`
	Status          *string    `json:"status"`
	AssignedUserIDs []uint     `json:"assignedUserIds"`
	ProjectID       *uint      `json:"projectId"`
}

func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := Validation.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// The route is manager-gated, but the workflow re-checks against the
	// store so a stale token cannot create tasks after a demotion.
	var creator Models.User
	err := tc.DB.Where("id = ? AND role = ?", middleware.CurrentUserID(c), Models.RoleManager).
		First(&creator).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only managers can create tasks"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create task"})
	}

	var project Models.Project
	err = tc.DB.First(&project, req.ProjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create task"})
	}

	// Unknown ids are silently dropped; only zero survivors is an error.
	var assignees []Models.User
	if err := tc.DB.Where("id IN ?", req.AssignedUserIDs).Find(&assignees).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create task"})
	}
	if len(assignees) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No valid assigned users provided"})
	}

	if Constants.OverlapSerialize {
		tc.overlapMu.Lock()
		defer tc.overlapMu.Unlock()
	}

	for i := range assignees {
		overlap, err := Models.HasOverlappingTask(tc.DB, assignees[i].ID, req.DueDate, 0)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create task"})
		}
		if overlap {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "User already has a task due within 24 hours of this task",
			})
		}
	}

	status := req.Status
	if status == "" {
		status = Models.TaskStatusPending
	}
	task := Models.Task{
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       req.DueDate,
		Status:        status,
		ProjectID:     &project.ID,
		CreatedByID:   &creator.ID,
		AssignedUsers: assignees,
	}

	// Task row and its assignment rows commit together.
	err = tc.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&task).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create task"})
	}

	for i := range assignees {
		if err := tc.Notifier.TaskAssigned(&task, &assignees[i]); err != nil {
			log.Printf("Task-assigned notification failed for task %d user %d: %v",
				task.ID, assignees[i].ID, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(task)
}

func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	var tasks []Models.Task
	err := tc.DB.Preload("Project").Preload("CreatedBy").Preload("AssignedUsers").
		Find(&tasks).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve tasks"})
	}
	return c.JSON(tasks)
}

func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var task Models.Task
	err = tc.DB.Preload("Project").Preload("CreatedBy").Preload("AssignedUsers").
		First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve task"})
	}
	return c.JSON(task)
}

// loadTaskForModify fetches the task and enforces the mutation policy.
func (tc *TaskController) loadTaskForModify(c *fiber.Ctx) (*Models.Task, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var task Models.Task
	err = tc.DB.Preload("Project").Preload("AssignedUsers").First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}
	if err != nil {
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve task"})
	}

	var actor Models.User
	if err := tc.DB.First(&actor, middleware.CurrentUserID(c)).Error; err != nil {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "User not found"})
	}
	if !Models.CanModifyTask(&actor, &task) {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have permission to modify this task",
		})
	}
	return &task, nil
}

func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	task, handled := tc.loadTaskForModify(c)
	if task == nil {
		return handled
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Status != nil && !Models.ValidTaskStatus(*req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task status"})
	}

	if req.ProjectID != nil {
		var project Models.Project
		err := tc.DB.First(&project, *req.ProjectID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update task"})
		}
		task.ProjectID = &project.ID
		task.Project = &project
	}

	dueDate := task.DueDate
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	if Constants.OverlapSerialize {
		tc.overlapMu.Lock()
		defer tc.overlapMu.Unlock()
	}

	var newAssignees []Models.User
	if req.AssignedUserIDs != nil {
		var assignees []Models.User
		if err := tc.DB.Where("id IN ?", req.AssignedUserIDs).Find(&assignees).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update task"})
		}
		if len(assignees) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No valid assigned users provided"})
		}

		for i := range assignees {
			if task.IsAssigned(assignees[i].ID) {
				continue
			}
			overlap, err := Models.HasOverlappingTask(tc.DB, assignees[i].ID, dueDate, task.ID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update task"})
			}
			if overlap {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "User already has a task due within 24 hours of this task",
				})
			}
			newAssignees = append(newAssignees, assignees[i])
		}

		if err := tc.DB.Model(task).Association("AssignedUsers").Replace(assignees); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update task"})
		}
		task.AssignedUsers = assignees
	}

	completing := req.Status != nil &&
		*req.Status == Models.TaskStatusCompleted &&
		task.Status != Models.TaskStatusCompleted

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	if req.Status != nil {
		task.Status = *req.Status
	}

	if err := tc.DB.Save(task).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update task"})
	}

	// Side effects run only after the row is saved. An orphaned task
	// (missing project or manager) is logged, never a request failure.
	for i := range newAssignees {
		if err := tc.Notifier.TaskAssigned(task, &newAssignees[i]); err != nil {
			log.Printf("Task-assigned notification failed for task %d user %d: %v",
				task.ID, newAssignees[i].ID, err)
		}
	}
	if completing {
		if err := tc.Notifier.TaskCompleted(task); err != nil {
			if errors.Is(err, Notifications.ErrOrphanedTask) {
				log.Printf("Task %d completed without a reachable project manager: %v", task.ID, err)
			} else {
				log.Printf("Task-completed notification failed for task %d: %v", task.ID, err)
			}
		}
	}

	return c.JSON(task)
}

// DeleteTask removes the task permanently: assignment rows first, then the
// row itself, no soft delete and no cascade notification.
func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	task, handled := tc.loadTaskForModify(c)
	if task == nil {
		return handled
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Association("AssignedUsers").Clear(); err != nil {
			return err
		}
		return tx.Unscoped().Delete(task).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete task"})
	}
	return c.JSON(fiber.Map{"message": "Task deleted"})
}
