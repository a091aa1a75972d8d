package Notifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"Osprey/Models"
)

// ErrOrphanedTask marks a completed task whose project or project manager
// cannot be resolved. The caller decides whether that fails the request;
// the task workflow logs it and keeps the state change.
var ErrOrphanedTask = errors.New("task has no project or the project has no manager")

// Mailer is the slice of the mail transport this service needs.
type Mailer interface {
	Send(Models.EmailMessage) error
}

// Pusher is an extra push transport (FCM). Optional.
type Pusher interface {
	Push(userID uint, n *Models.Notification)
}

// Service persists notification records and fans them out: live push,
// optional device push, email. The record is written synchronously so the
// caller's transition is durable; delivery runs in the background and is
// best-effort, a failed send never surfaces to the triggering request.
type Service struct {
	DB   *gorm.DB
	Mail Mailer
	Hub  *Hub
	Push Pusher

	// SyncDelivery makes dispatch run inline. Tests set it so side effects
	// are observable without sleeping.
	SyncDelivery bool
}

func NewService(db *gorm.DB, mail Mailer, hub *Hub) *Service {
	return &Service{DB: db, Mail: mail, Hub: hub}
}

// TaskAssigned notifies a single assignee about a task.
func (s *Service) TaskAssigned(task *Models.Task, user *Models.User) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"taskId":  task.ID,
		"title":   task.Title,
		"dueDate": task.DueDate.Format(time.RFC3339),
	})
	notification := &Models.Notification{
		Title:       "New Task Assigned",
		Message:     fmt.Sprintf("You have been assigned to task: %s", task.Title),
		Type:        Models.NotificationTaskAssigned,
		RecipientID: user.ID,
		TaskID:      &task.ID,
		Data:        datatypes.JSON(payload),
	}
	if err := s.DB.Create(notification).Error; err != nil {
		return err
	}

	body := fmt.Sprintf(
		"You have been assigned a new task.\n\nTitle: %s\nDescription: %s\nDue: %s\n",
		task.Title, task.Description, task.DueDate.Format("2006-01-02 15:04"))
	s.dispatch(notification, user.Email, "New Task Assigned", body)
	return nil
}

// TaskCompleted notifies the manager of the task's project. Returns
// ErrOrphanedTask when the project or its manager is missing.
func (s *Service) TaskCompleted(task *Models.Task) error {
	if task.ProjectID == nil {
		return ErrOrphanedTask
	}
	var project Models.Project
	err := s.DB.Preload("AssignedManager").First(&project, *task.ProjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrphanedTask
	}
	if err != nil {
		return err
	}
	if project.AssignedManager == nil {
		return ErrOrphanedTask
	}
	manager := project.AssignedManager

	payload, _ := json.Marshal(map[string]interface{}{
		"taskId":       task.ID,
		"projectId":    project.ID,
		"projectTitle": project.Title,
	})
	notification := &Models.Notification{
		Title:       "Task Completed",
		Message:     fmt.Sprintf("Task %q has been completed", task.Title),
		Type:        Models.NotificationTaskCompleted,
		RecipientID: manager.ID,
		TaskID:      &task.ID,
		ProjectID:   &project.ID,
		Data:        datatypes.JSON(payload),
	}
	if err := s.DB.Create(notification).Error; err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Task %q in project %q has been completed.\n",
		task.Title, project.Title)
	s.dispatch(notification, manager.Email, "Task Completed", body)
	return nil
}

// ProjectCompleted notifies the first admin on file. No admin is a no-op,
// kept from the source behavior, but logged so it is observable.
func (s *Service) ProjectCompleted(project *Models.Project) error {
	var admin Models.User
	err := s.DB.Where("role = ?", Models.RoleAdmin).Order("id").First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("No admin on file; skipping completed notification for project %d", project.ID)
		return nil
	}
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"projectId": project.ID,
		"title":     project.Title,
	})
	notification := &Models.Notification{
		Title:       "Project Completed",
		Message:     fmt.Sprintf("Project %q has been completed", project.Title),
		Type:        Models.NotificationProjectCompleted,
		RecipientID: admin.ID,
		ProjectID:   &project.ID,
		Data:        datatypes.JSON(payload),
	}
	if err := s.DB.Create(notification).Error; err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Project %q has been completed.\n\nDescription: %s\n",
		project.Title, project.Description)
	s.dispatch(notification, admin.Email, "Project Completed", body)
	return nil
}

// MarkAsRead flips the read flag, scoped to the recipient. The flag only
// ever moves false to true.
func (s *Service) MarkAsRead(notificationID, userID uint) (*Models.Notification, error) {
	var notification Models.Notification
	err := s.DB.Where("id = ? AND recipient_id = ?", notificationID, userID).
		First(&notification).Error
	if err != nil {
		return nil, err
	}
	if !notification.IsRead {
		notification.IsRead = true
		if err := s.DB.Model(&notification).Update("is_read", true).Error; err != nil {
			return nil, err
		}
	}
	return &notification, nil
}

// MarkAllAsRead marks every unread notification of the user. Idempotent;
// returns how many rows actually changed.
func (s *Service) MarkAllAsRead(userID uint) (int64, error) {
	result := s.DB.Model(&Models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (s *Service) dispatch(n *Models.Notification, recipientEmail, subject, body string) {
	deliver := func() {
		if s.Hub != nil {
			s.Hub.Push(n.RecipientID, n)
		}
		if s.Push != nil {
			s.Push.Push(n.RecipientID, n)
		}
		if s.Mail != nil {
			err := s.Mail.Send(Models.EmailMessage{
				To:      []string{recipientEmail},
				Subject: subject,
				Body:    body,
			})
			if err != nil {
				log.Printf("Failed to email notification %d to %s: %v", n.ID, recipientEmail, err)
			}
		}
	}
	if s.SyncDelivery {
		deliver()
		return
	}
	go deliver()
}
