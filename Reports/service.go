package Reports

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"Osprey/Models"
)

// Mailer is the slice of the mail transport report delivery needs.
type Mailer interface {
	Send(Models.EmailMessage) error
}

// Service aggregates task/project/user statistics and emails rendered
// report documents to stakeholders.
type Service struct {
	DB   *gorm.DB
	Mail Mailer
}

func NewService(db *gorm.DB, mail Mailer) *Service {
	return &Service{DB: db, Mail: mail}
}

type UserCompletionRate struct {
	UserID         uint    `json:"userId"`
	UserName       string  `json:"userName"`
	TotalTasks     int64   `json:"totalTasks"`
	CompletedTasks int64   `json:"completedTasks"`
	CompletionRate float64 `json:"completionRate"`
}

type ProjectPendingCount struct {
	ProjectID         uint   `json:"projectId"`
	ProjectTitle      string `json:"projectTitle"`
	PendingTasksCount int64  `json:"pendingTasksCount"`
}

type DailySummary struct {
	Date              string `json:"date"`
	TasksCreated      int64  `json:"tasksCreated"`
	TasksCompleted    int64  `json:"tasksCompleted"`
	ProjectsCreated   int64  `json:"projectsCreated"`
	ProjectsCompleted int64  `json:"projectsCompleted"`
	ActiveUsers       int64  `json:"activeUsers"`
}

type UserReportTask struct {
	Title   string    `json:"title"`
	Status  string    `json:"status"`
	Project string    `json:"project"`
	DueDate time.Time `json:"dueDate"`
}

type UserReport struct {
	UserName       string           `json:"userName"`
	Email          string           `json:"email"`
	TotalTasks     int64            `json:"totalTasks"`
	CompletedTasks int64            `json:"completedTasks"`
	PendingTasks   int64            `json:"pendingTasks"`
	CompletionRate float64          `json:"completionRate"`
	Tasks          []UserReportTask `json:"tasks"`
}

// FanoutResult reports partial success of a multi-recipient send.
type FanoutResult struct {
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
	Failed     []string `json:"failed"`
	Total      int      `json:"total"`
}

// TaskCompletionRates computes per-user completed/total ratios.
func (s *Service) TaskCompletionRates() ([]UserCompletionRate, error) {
	var users []Models.User
	if err := s.DB.Find(&users).Error; err != nil {
		return nil, err
	}

	rates := make([]UserCompletionRate, 0, len(users))
	for i := range users {
		user := &users[i]
		total, err := s.countUserTasks(user.ID, "")
		if err != nil {
			return nil, err
		}
		completed, err := s.countUserTasks(user.ID, Models.TaskStatusCompleted)
		if err != nil {
			return nil, err
		}
		rate := UserCompletionRate{
			UserID:         user.ID,
			UserName:       user.FullName(),
			TotalTasks:     total,
			CompletedTasks: completed,
		}
		if total > 0 {
			rate.CompletionRate = float64(completed) / float64(total) * 100
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

func (s *Service) countUserTasks(userID uint, status string) (int64, error) {
	var count int64
	q := s.DB.Model(&Models.Task{}).
		Joins("JOIN task_assignments ta ON ta.task_id = tasks.id").
		Where("ta.user_id = ?", userID)
	if status != "" {
		q = q.Where("tasks.status = ?", status)
	}
	err := q.Count(&count).Error
	return count, err
}

// PendingTasksPerProject counts pending tasks for every project.
func (s *Service) PendingTasksPerProject() ([]ProjectPendingCount, error) {
	var projects []Models.Project
	if err := s.DB.Find(&projects).Error; err != nil {
		return nil, err
	}

	counts := make([]ProjectPendingCount, 0, len(projects))
	for i := range projects {
		project := &projects[i]
		var pending int64
		err := s.DB.Model(&Models.Task{}).
			Where("project_id = ? AND status = ?", project.ID, Models.TaskStatusPending).
			Count(&pending).Error
		if err != nil {
			return nil, err
		}
		counts = append(counts, ProjectPendingCount{
			ProjectID:         project.ID,
			ProjectTitle:      project.Title,
			PendingTasksCount: pending,
		})
	}
	return counts, nil
}

// Summarize computes org-wide counts for the 24 hours leading up to now.
func (s *Service) Summarize(now time.Time) (*DailySummary, error) {
	since := now.AddDate(0, 0, -1)
	summary := &DailySummary{Date: since.Format("2006-01-02")}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&summary.TasksCreated, s.DB.Model(&Models.Task{}).
			Where("created_at BETWEEN ? AND ?", since, now)},
		{&summary.TasksCompleted, s.DB.Model(&Models.Task{}).
			Where("status = ? AND updated_at BETWEEN ? AND ?", Models.TaskStatusCompleted, since, now)},
		{&summary.ProjectsCreated, s.DB.Model(&Models.Project{}).
			Where("created_at BETWEEN ? AND ?", since, now)},
		{&summary.ProjectsCompleted, s.DB.Model(&Models.Project{}).
			Where("status = ? AND updated_at BETWEEN ? AND ?", Models.ProjectStatusCompleted, since, now)},
		{&summary.ActiveUsers, s.DB.Model(&Models.User{}).
			Where("last_login_at BETWEEN ? AND ?", since, now)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// BuildUserReport collects the user's task detail.
func (s *Service) BuildUserReport(userID uint) (*UserReport, error) {
	var user Models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}

	var tasks []Models.Task
	err := s.DB.Preload("Project").
		Joins("JOIN task_assignments ta ON ta.task_id = tasks.id").
		Where("ta.user_id = ?", userID).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	report := &UserReport{
		UserName:   user.FullName(),
		Email:      user.Email,
		TotalTasks: int64(len(tasks)),
	}
	for i := range tasks {
		task := &tasks[i]
		switch task.Status {
		case Models.TaskStatusCompleted:
			report.CompletedTasks++
		case Models.TaskStatusPending:
			report.PendingTasks++
		}
		projectTitle := ""
		if task.Project != nil {
			projectTitle = task.Project.Title
		}
		report.Tasks = append(report.Tasks, UserReportTask{
			Title:   task.Title,
			Status:  task.Status,
			Project: projectTitle,
			DueDate: task.DueDate,
		})
	}
	if report.TotalTasks > 0 {
		report.CompletionRate = float64(report.CompletedTasks) / float64(report.TotalTasks) * 100
	}
	return report, nil
}

// SendDailySummary renders the summary workbook and emails it to every
// admin and every manager who still has non-completed tasks assigned.
// Sends run concurrently; the call waits for the whole set and reports
// partial success instead of failing fast.
func (s *Service) SendDailySummary(now time.Time) (*FanoutResult, error) {
	recipients, err := s.summaryRecipients()
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		log.Println("No admin users found to send daily summary")
		return &FanoutResult{Message: "No recipients found"}, nil
	}

	summary, err := s.Summarize(now)
	if err != nil {
		return nil, err
	}
	rates, err := s.TaskCompletionRates()
	if err != nil {
		return nil, err
	}
	pending, err := s.PendingTasksPerProject()
	if err != nil {
		return nil, err
	}

	workbook, err := BuildDailySummaryWorkbook(summary, rates, pending)
	if err != nil {
		return nil, fmt.Errorf("failed to render daily summary workbook: %w", err)
	}

	result := &FanoutResult{Message: "Daily summary sent", Total: len(recipients)}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := range recipients {
		recipient := recipients[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Mail.Send(Models.EmailMessage{
				To:      []string{recipient.Email},
				Subject: "Daily Task Management Summary",
				Body: fmt.Sprintf(
					"Hello %s,\n\nAttached is the task management summary for %s.\n\nTasks created: %d\nTasks completed: %d\nProjects created: %d\nProjects completed: %d\nActive users: %d\n",
					recipient.FullName(), summary.Date,
					summary.TasksCreated, summary.TasksCompleted,
					summary.ProjectsCreated, summary.ProjectsCompleted,
					summary.ActiveUsers),
				Attachments: []Models.Attachment{{
					Filename: "daily-summary-" + summary.Date + ".xlsx",
					Data:     workbook,
					MimeType: XLSXMimeType,
				}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("Failed to send daily summary to %s: %v", recipient.Email, err)
				result.Failed = append(result.Failed, recipient.Email)
				return
			}
			result.Recipients = append(result.Recipients, recipient.Email)
		}()
	}
	wg.Wait()
	return result, nil
}

// summaryRecipients is all admins plus managers with at least one
// non-completed assigned task.
func (s *Service) summaryRecipients() ([]Models.User, error) {
	var admins []Models.User
	if err := s.DB.Where("role = ?", Models.RoleAdmin).Find(&admins).Error; err != nil {
		return nil, err
	}

	var managers []Models.User
	err := s.DB.Distinct("users.*").
		Joins("JOIN task_assignments ta ON ta.user_id = users.id").
		Joins("JOIN tasks ON tasks.id = ta.task_id AND tasks.status <> ?", Models.TaskStatusCompleted).
		Where("users.role = ?", Models.RoleManager).
		Find(&managers).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool, len(admins))
	recipients := make([]Models.User, 0, len(admins)+len(managers))
	for _, u := range admins {
		seen[u.ID] = true
		recipients = append(recipients, u)
	}
	for _, u := range managers {
		if !seen[u.ID] {
			recipients = append(recipients, u)
		}
	}
	return recipients, nil
}

// SendUserReport emails the user their own task detail workbook.
func (s *Service) SendUserReport(userID uint) (*FanoutResult, error) {
	report, err := s.BuildUserReport(userID)
	if err != nil {
		return nil, err
	}
	workbook, err := BuildUserReportWorkbook(report)
	if err != nil {
		return nil, fmt.Errorf("failed to render user report workbook: %w", err)
	}

	err = s.Mail.Send(Models.EmailMessage{
		To:      []string{report.Email},
		Subject: "Your Task Report",
		Body: fmt.Sprintf(
			"Hello %s,\n\nAttached is your task report.\n\nTotal tasks: %d\nCompleted: %d\nPending: %d\nCompletion rate: %.2f%%\n",
			report.UserName, report.TotalTasks, report.CompletedTasks,
			report.PendingTasks, report.CompletionRate),
		Attachments: []Models.Attachment{{
			Filename: "task-report.xlsx",
			Data:     workbook,
			MimeType: XLSXMimeType,
		}},
	})
	if err != nil {
		return nil, err
	}
	return &FanoutResult{
		Message:    "Report sent",
		Recipients: []string{report.Email},
		Total:      1,
	}, nil
}
