package Models

import (
	"time"

	"gorm.io/gorm"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// OverlapWindow is the minimum spacing between due dates of two tasks
// assigned to the same user.
const OverlapWindow = 24 * time.Hour

func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type Task struct {
	gorm.Model
	Title       string    `json:"title" gorm:"size:100;not null"`
	Description string    `json:"description" gorm:"size:500"`
	DueDate     time.Time `json:"dueDate"`
	Status      string    `json:"status" gorm:"size:20;default:pending"`

	ProjectID *uint    `json:"projectId"`
	Project   *Project `json:"project,omitempty"`

	CreatedByID *uint `json:"createdById"`
	CreatedBy   *User `json:"createdBy,omitempty"`

	AssignedUsers []User `json:"assignedUsers,omitempty" gorm:"many2many:task_assignments;"`
}

// WithinOverlapWindow reports whether two due dates are less than 24 hours
// apart, in either direction.
func WithinOverlapWindow(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < OverlapWindow
}

// HasOverlappingTask checks whether the user already has a non-completed
// task due within 24 hours of due. excludeTaskID skips the task being
// updated; pass 0 when creating.
func HasOverlappingTask(db *gorm.DB, userID uint, due time.Time, excludeTaskID uint) (bool, error) {
	var tasks []Task
	q := db.Model(&Task{}).
		Joins("JOIN task_assignments ta ON ta.task_id = tasks.id").
		Where("ta.user_id = ? AND tasks.status <> ?", userID, TaskStatusCompleted)
	if excludeTaskID != 0 {
		q = q.Where("tasks.id <> ?", excludeTaskID)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return false, err
	}
	for i := range tasks {
		if WithinOverlapWindow(tasks[i].DueDate, due) {
			return true, nil
		}
	}
	return false, nil
}

// IsAssigned reports whether the user is one of the task's current assignees.
func (t *Task) IsAssigned(userID uint) bool {
	for i := range t.AssignedUsers {
		if t.AssignedUsers[i].ID == userID {
			return true
		}
	}
	return false
}

// CanModifyTask is the access policy for task update and delete: the actor
// must be the task's creator or one of its current assignees. Role grants
// no blanket access.
func CanModifyTask(actor *User, task *Task) bool {
	if actor == nil {
		return false
	}
	if task.CreatedByID != nil && *task.CreatedByID == actor.ID {
		return true
	}
	return task.IsAssigned(actor.ID)
}
