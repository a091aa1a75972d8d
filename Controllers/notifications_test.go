package Controllers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Osprey/Models"
)

func seedNotification(t *testing.T, db *gorm.DB, recipientID uint) *Models.Notification {
	t.Helper()
	n := &Models.Notification{
		Title:       "New Task Assigned",
		Message:     "You have been assigned to task: X",
		Type:        Models.NotificationTaskAssigned,
		RecipientID: recipientID,
	}
	require.NoError(t, db.Create(n).Error)
	return n
}

func TestGetNotificationsIsRecipientScoped(t *testing.T) {
	db := setupTestDB(t)
	app, _ := newTestApp(t, db)

	alice := createUser(t, db, "alice@example.com", Models.RoleUser)
	bob := createUser(t, db, "bob@example.com", Models.RoleUser)
	seedNotification(t, db, alice.ID)
	seedNotification(t, db, alice.ID)
	seedNotification(t, db, bob.ID)

	resp, err := app.Test(jsonRequest(t, "GET", "/api/notifications/", nil, tokenFor(t, alice)), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var list []Models.Notification
	decodeBody(t, resp, &list)
	assert.Len(t, list, 2)
	for _, n := range list {
		assert.Equal(t, alice.ID, n.RecipientID)
	}
}

func TestMarkAsReadIsOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	app, _ := newTestApp(t, db)

	alice := createUser(t, db, "alice@example.com", Models.RoleUser)
	bob := createUser(t, db, "bob@example.com", Models.RoleUser)
	n := seedNotification(t, db, alice.ID)
	target := fmt.Sprintf("/api/notifications/%d/read", n.ID)

	// Someone else's notification looks like a missing one.
	resp, err := app.Test(jsonRequest(t, "PATCH", target, nil, tokenFor(t, bob)), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	var stored Models.Notification
	require.NoError(t, db.First(&stored, n.ID).Error)
	assert.False(t, stored.IsRead)

	resp, err = app.Test(jsonRequest(t, "PATCH", target, nil, tokenFor(t, alice)), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	require.NoError(t, db.First(&stored, n.ID).Error)
	assert.True(t, stored.IsRead)
}

func TestMarkAllAsReadIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	app, _ := newTestApp(t, db)

	alice := createUser(t, db, "alice@example.com", Models.RoleUser)
	seedNotification(t, db, alice.ID)
	seedNotification(t, db, alice.ID)
	token := tokenFor(t, alice)

	resp, err := app.Test(jsonRequest(t, "PATCH", "/api/notifications/read-all", nil, token), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Updated int64 `json:"updated"`
	}
	decodeBody(t, resp, &body)
	assert.EqualValues(t, 2, body.Updated)

	resp, err = app.Test(jsonRequest(t, "PATCH", "/api/notifications/read-all", nil, token), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.Zero(t, body.Updated, "second run changes nothing")
}
