package Models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationTaskAssigned     = "TASK_ASSIGNED"
	NotificationTaskCompleted    = "TASK_COMPLETED"
	NotificationProjectCompleted = "PROJECT_COMPLETED"
)

type Notification struct {
	gorm.Model
	Title   string `json:"title" gorm:"not null"`
	Message string `json:"message" gorm:"not null"`
	Type    string `json:"type" gorm:"size:32;not null"`
	IsRead  bool   `json:"isRead" gorm:"default:false"`

	RecipientID uint  `json:"recipientId" gorm:"index;not null"`
	Recipient   *User `json:"recipient,omitempty"`

	TaskID *uint `json:"taskId"`
	Task   *Task `json:"task,omitempty"`

	ProjectID *uint    `json:"projectId"`
	Project   *Project `json:"project,omitempty"`

	// Data carries related-entity details for the push channel so clients
	// need no follow-up fetch.
	Data datatypes.JSON `json:"data,omitempty"`
}
