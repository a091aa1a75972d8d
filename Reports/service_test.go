package Reports

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Osprey/Models"
)

// failingMailer records sends and fails for blocked addresses.
type failingMailer struct {
	mu      sync.Mutex
	blocked map[string]bool
	sent    []Models.EmailMessage
}

func (m *failingMailer) Send(msg Models.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range msg.To {
		if m.blocked[to] {
			return errors.New("mailbox unavailable")
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *failingMailer) Sent() []Models.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Models.EmailMessage(nil), m.sent...)
}

func setupReportTest(t *testing.T) (*Service, *gorm.DB, *failingMailer) {
	t.Helper()
	db, err := Models.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Models.Migrate(db))

	mail := &failingMailer{blocked: map[string]bool{}}
	return NewService(db, mail), db, mail
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) *Models.User {
	t.Helper()
	user := &Models.User{FirstName: "Test", LastName: "User", Email: email, Role: role}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedTask(t *testing.T, db *gorm.DB, status string, projectID *uint, assignees ...*Models.User) *Models.Task {
	t.Helper()
	task := &Models.Task{
		Title:     "Task " + uuid.NewString()[:8],
		DueDate:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Status:    status,
		ProjectID: projectID,
	}
	for _, u := range assignees {
		task.AssignedUsers = append(task.AssignedUsers, *u)
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func TestTaskCompletionRates(t *testing.T) {
	service, db, _ := setupReportTest(t)
	busy := seedUser(t, db, "busy@example.com", Models.RoleUser)
	idle := seedUser(t, db, "idle@example.com", Models.RoleUser)

	seedTask(t, db, Models.TaskStatusCompleted, nil, busy)
	seedTask(t, db, Models.TaskStatusCompleted, nil, busy)
	seedTask(t, db, Models.TaskStatusPending, nil, busy)
	seedTask(t, db, Models.TaskStatusInProgress, nil, busy)

	rates, err := service.TaskCompletionRates()
	require.NoError(t, err)
	require.Len(t, rates, 2)

	byID := map[uint]UserCompletionRate{}
	for _, r := range rates {
		byID[r.UserID] = r
	}

	assert.EqualValues(t, 4, byID[busy.ID].TotalTasks)
	assert.EqualValues(t, 2, byID[busy.ID].CompletedTasks)
	assert.InDelta(t, 50.0, byID[busy.ID].CompletionRate, 0.01)

	assert.Zero(t, byID[idle.ID].TotalTasks)
	assert.Zero(t, byID[idle.ID].CompletionRate, "no tasks means zero, not NaN")
}

func TestPendingTasksPerProject(t *testing.T) {
	service, db, _ := setupReportTest(t)

	alpha := &Models.Project{Title: "Alpha"}
	beta := &Models.Project{Title: "Beta"}
	require.NoError(t, db.Create(alpha).Error)
	require.NoError(t, db.Create(beta).Error)

	seedTask(t, db, Models.TaskStatusPending, &alpha.ID)
	seedTask(t, db, Models.TaskStatusPending, &alpha.ID)
	seedTask(t, db, Models.TaskStatusCompleted, &alpha.ID)

	counts, err := service.PendingTasksPerProject()
	require.NoError(t, err)
	require.Len(t, counts, 2)

	byID := map[uint]ProjectPendingCount{}
	for _, c := range counts {
		byID[c.ProjectID] = c
	}
	assert.EqualValues(t, 2, byID[alpha.ID].PendingTasksCount)
	assert.Zero(t, byID[beta.ID].PendingTasksCount)
}

func TestSummarizeCountsYesterdayWindow(t *testing.T) {
	service, db, _ := setupReportTest(t)

	user := seedUser(t, db, "active@example.com", Models.RoleUser)
	recent := time.Now().Add(-2 * time.Hour)
	require.NoError(t, db.Model(user).Update("last_login_at", recent).Error)

	stale := seedUser(t, db, "stale@example.com", Models.RoleUser)
	old := time.Now().AddDate(0, 0, -3)
	require.NoError(t, db.Model(stale).Update("last_login_at", old).Error)

	seedTask(t, db, Models.TaskStatusPending, nil)
	seedTask(t, db, Models.TaskStatusCompleted, nil)
	require.NoError(t, db.Create(&Models.Project{Title: "Fresh"}).Error)

	// The window closes at now, so the rows above must already exist.
	summary, err := service.Summarize(time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.TasksCreated)
	assert.EqualValues(t, 1, summary.TasksCompleted)
	assert.EqualValues(t, 1, summary.ProjectsCreated)
	assert.EqualValues(t, 1, summary.ActiveUsers)
}

func TestSendDailySummaryRecipientsAndPartialFailure(t *testing.T) {
	service, db, mail := setupReportTest(t)

	admin := seedUser(t, db, "admin@example.com", Models.RoleAdmin)
	busyManager := seedUser(t, db, "busy-manager@example.com", Models.RoleManager)
	// Managers with only completed work are skipped.
	doneManager := seedUser(t, db, "done-manager@example.com", Models.RoleManager)
	seedUser(t, db, "worker@example.com", Models.RoleUser)

	seedTask(t, db, Models.TaskStatusInProgress, nil, busyManager)
	seedTask(t, db, Models.TaskStatusCompleted, nil, doneManager)

	mail.blocked[busyManager.Email] = true

	result, err := service.SendDailySummary(time.Now())
	require.NoError(t, err, "one failed recipient must not fail the run")
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, []string{admin.Email}, result.Recipients)
	assert.Equal(t, []string{busyManager.Email}, result.Failed)

	sent := mail.Sent()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, XLSXMimeType, sent[0].Attachments[0].MimeType)
	assert.NotEmpty(t, sent[0].Attachments[0].Data)
}

func TestSendDailySummaryWithoutRecipients(t *testing.T) {
	service, db, mail := setupReportTest(t)
	seedUser(t, db, "worker@example.com", Models.RoleUser)

	result, err := service.SendDailySummary(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "No recipients found", result.Message)
	assert.Empty(t, mail.Sent())
}

func TestSendUserReport(t *testing.T) {
	service, db, mail := setupReportTest(t)
	user := seedUser(t, db, "worker@example.com", Models.RoleUser)

	project := &Models.Project{Title: "Alpha"}
	require.NoError(t, db.Create(project).Error)
	seedTask(t, db, Models.TaskStatusCompleted, &project.ID, user)
	seedTask(t, db, Models.TaskStatusPending, &project.ID, user)

	result, err := service.SendUserReport(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{user.Email}, result.Recipients)

	sent := mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{user.Email}, sent[0].To)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "task-report.xlsx", sent[0].Attachments[0].Filename)
}

func TestBuildUserReport(t *testing.T) {
	service, db, _ := setupReportTest(t)
	user := seedUser(t, db, "worker@example.com", Models.RoleUser)

	project := &Models.Project{Title: "Alpha"}
	require.NoError(t, db.Create(project).Error)
	seedTask(t, db, Models.TaskStatusCompleted, &project.ID, user)
	seedTask(t, db, Models.TaskStatusPending, &project.ID, user)
	seedTask(t, db, Models.TaskStatusInProgress, &project.ID, user)

	report, err := service.BuildUserReport(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, report.TotalTasks)
	assert.EqualValues(t, 1, report.CompletedTasks)
	assert.EqualValues(t, 1, report.PendingTasks)
	assert.InDelta(t, 33.33, report.CompletionRate, 0.01)
	assert.Len(t, report.Tasks, 3)
	assert.Equal(t, "Alpha", report.Tasks[0].Project)
}
