package Controllers

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Osprey/Models"
)

func TestCreateProjectValidatesManagerRole(t *testing.T) {
	db := setupTestDB(t)
	app, _ := newTestApp(t, db)

	admin := createUser(t, db, "admin@example.com", Models.RoleAdmin)
	worker := createUser(t, db, "worker@example.com", Models.RoleUser)
	token := tokenFor(t, admin)

	payload := map[string]interface{}{
		"title":             "Build the thing",
		"startDate":         time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"endDate":           time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"assignedManagerId": worker.ID,
	}
	resp, err := app.Test(jsonRequest(t, "POST", "/api/projects/", payload, token), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "Invalid manager ID or user is not a manager", body["error"])

	manager := createUser(t, db, "manager@example.com", Models.RoleManager)
	payload["assignedManagerId"] = manager.ID
	resp, err = app.Test(jsonRequest(t, "POST", "/api/projects/", payload, token), -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var project Models.Project
	decodeBody(t, resp, &project)
	assert.Equal(t, Models.ProjectStatusPending, project.Status, "status always starts pending")
}

func TestCompletingProjectNotifiesFirstAdmin(t *testing.T) {
	db := setupTestDB(t)
	app, mail := newTestApp(t, db)

	firstAdmin := createUser(t, db, "first-admin@example.com", Models.RoleAdmin)
	createUser(t, db, "second-admin@example.com", Models.RoleAdmin)
	manager := createUser(t, db, "manager@example.com", Models.RoleManager)
	project := createProject(t, db, manager.ID)

	resp, err := app.Test(jsonRequest(t, "PATCH", fmt.Sprintf("/api/projects/%d", project.ID),
		map[string]interface{}{"status": "completed"}, tokenFor(t, manager)), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var notifications []Models.Notification
	require.NoError(t, db.Where("type = ?", Models.NotificationProjectCompleted).
		Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, firstAdmin.ID, notifications[0].RecipientID)

	sent := mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{firstAdmin.Email}, sent[0].To)

	// A second save in completed state stays quiet.
	resp, err = app.Test(jsonRequest(t, "PATCH", fmt.Sprintf("/api/projects/%d", project.ID),
		map[string]interface{}{"status": "completed"}, tokenFor(t, manager)), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Len(t, mail.Sent(), 1)
}

func TestCompletingProjectWithoutAdminIsANoOp(t *testing.T) {
	db := setupTestDB(t)
	app, mail := newTestApp(t, db)

	manager := createUser(t, db, "manager@example.com", Models.RoleManager)
	project := createProject(t, db, manager.ID)

	resp, err := app.Test(jsonRequest(t, "PATCH", fmt.Sprintf("/api/projects/%d", project.ID),
		map[string]interface{}{"status": "completed"}, tokenFor(t, manager)), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var stored Models.Project
	require.NoError(t, db.First(&stored, project.ID).Error)
	assert.Equal(t, Models.ProjectStatusCompleted, stored.Status)

	var count int64
	require.NoError(t, db.Model(&Models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, mail.Sent())
}

func TestUpdateProjectRejectsBadStatusAndManager(t *testing.T) {
	db := setupTestDB(t)
	app, _ := newTestApp(t, db)

	manager := createUser(t, db, "manager@example.com", Models.RoleManager)
	worker := createUser(t, db, "worker@example.com", Models.RoleUser)
	project := createProject(t, db, manager.ID)
	target := fmt.Sprintf("/api/projects/%d", project.ID)
	token := tokenFor(t, manager)

	resp, err := app.Test(jsonRequest(t, "PATCH", target,
		map[string]interface{}{"status": "done"}, token), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, "PATCH", target,
		map[string]interface{}{"assignedManagerId": worker.ID}, token), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
