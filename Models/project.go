package Models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ProjectStatusPending    = "pending"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusCancelled  = "cancelled"
)

func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusPending, ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

type Project struct {
	gorm.Model
	Title       string    `json:"title" gorm:"size:100;not null"`
	Description string    `json:"description" gorm:"size:500"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Status      string    `json:"status" gorm:"size:20;default:pending"`

	AssignedManagerID *uint `json:"assignedManagerId"`
	AssignedManager   *User `json:"assignedManager,omitempty"`

	Tasks []Task `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
}
