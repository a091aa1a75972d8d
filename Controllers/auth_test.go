package Controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Osprey/Models"
	"Osprey/middleware"
)

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	app, _ := newTestApp(t, db)

	payload := map[string]interface{}{
		"firstName": "Alice",
		"lastName":  "Smith",
		"email":     "alice@example.com",
		"password":  "password123",
		"role":      "user",
	}

	resp, err := app.Test(jsonRequest(t, "POST", "/api/auth/register", payload, ""), -1)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, "POST", "/api/auth/register", payload, ""), -1)
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "user already exists", body["message"])

	var count int64
	require.NoError(t, db.Model(&Models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "the duplicate attempt must not write a row")
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	app, _ := newTestApp(t, db)

	for name, payload := range map[string]map[string]interface{}{
		"bad email": {
			"firstName": "A", "lastName": "B",
			"email": "not-an-email", "password": "password123", "role": "user",
		},
		"short password": {
			"firstName": "A", "lastName": "B",
			"email": "a@example.com", "password": "short", "role": "user",
		},
		"unknown role": {
			"firstName": "A", "lastName": "B",
			"email": "a@example.com", "password": "password123", "role": "root",
		},
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := app.Test(jsonRequest(t, "POST", "/api/auth/register", payload, ""), -1)
			require.NoError(t, err)
			assert.Equal(t, 400, resp.StatusCode)
		})
	}
}

func TestLoginDoesNotLeakWhichCredentialFailed(t *testing.T) {
	db := setupTestDB(t)
	app, _ := newTestApp(t, db)
	createUser(t, db, "bob@example.com", Models.RoleUser)

	wrongPassword, err := app.Test(jsonRequest(t, "POST", "/api/auth/login", map[string]string{
		"email":    "bob@example.com",
		"password": "wrong-password",
	}, ""), -1)
	require.NoError(t, err)

	unknownEmail, err := app.Test(jsonRequest(t, "POST", "/api/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	}, ""), -1)
	require.NoError(t, err)

	assert.Equal(t, 401, wrongPassword.StatusCode)
	assert.Equal(t, 401, unknownEmail.StatusCode)

	var a, b map[string]string
	decodeBody(t, wrongPassword, &a)
	decodeBody(t, unknownEmail, &b)
	assert.Equal(t, a, b, "both failures must be indistinguishable")
}

func TestLoginIssuesTokenAndTracksLastLogin(t *testing.T) {
	db := setupTestDB(t)
	app, _ := newTestApp(t, db)
	user := createUser(t, db, "carol@example.com", Models.RoleManager)

	resp, err := app.Test(jsonRequest(t, "POST", "/api/auth/login", map[string]string{
		"email":    "carol@example.com",
		"password": "password123",
	}, ""), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Token string      `json:"token"`
		User  Models.User `json:"user"`
	}
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Token)
	assert.Equal(t, user.Email, body.User.Email)

	claims, err := middleware.ParseToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, Models.RoleManager, claims.Role)

	var stored Models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.NotNil(t, stored.LastLoginAt)
}
