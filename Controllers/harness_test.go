package Controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"Osprey/Constants"
	"Osprey/Models"
	"Osprey/Notifications"
	"Osprey/middleware"
)

func init() {
	Constants.JWTSecret = "test-secret"
	Constants.JWTExpiry = time.Hour
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Models.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Models.Migrate(db))
	return db
}

// captureMailer records sent messages instead of dialing SMTP.
type captureMailer struct {
	mu   sync.Mutex
	sent []Models.EmailMessage
}

func (m *captureMailer) Send(msg Models.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) Sent() []Models.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Models.EmailMessage(nil), m.sent...)
}

func newTestNotifier(db *gorm.DB) (*Notifications.Service, *captureMailer) {
	mail := &captureMailer{}
	notifier := Notifications.NewService(db, mail, Notifications.NewHub())
	notifier.SyncDelivery = true
	return notifier, mail
}

func createUser(t *testing.T, db *gorm.DB, email, role string) *Models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &Models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  hashed,
		Role:      role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func tokenFor(t *testing.T, user *Models.User) string {
	t.Helper()
	token, err := middleware.GenerateToken(user)
	require.NoError(t, err)
	return token
}

func jsonRequest(t *testing.T, method, target string, body interface{}, token string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// newTestApp mounts the full API surface against the given database, the
// same layout the server uses.
func newTestApp(t *testing.T, db *gorm.DB) (*fiber.App, *captureMailer) {
	t.Helper()
	notifier, mail := newTestNotifier(db)

	authController := NewAuthController(db)
	usersController := NewUsersController(db)
	projectController := NewProjectController(db, notifier)
	taskController := NewTaskController(db, notifier)
	notificationController := NewNotificationController(db, notifier)
	deviceController := NewDeviceController(db)

	app := fiber.New()
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)

	users := api.Group("/users", middleware.Verify(Models.RoleAdmin))
	users.Get("/", usersController.FetchUsers)
	users.Patch("/:id/role", usersController.ChangeUserRole)

	projects := api.Group("/projects", middleware.Verify())
	projects.Get("/", projectController.GetProjects)
	projects.Post("/", projectController.CreateProject)
	projects.Get("/:id", projectController.GetProject)
	projects.Patch("/:id", projectController.UpdateProject)
	projects.Delete("/:id", projectController.DeleteProject)

	tasks := api.Group("/tasks", middleware.Verify())
	tasks.Get("/", taskController.GetTasks)
	tasks.Post("/", middleware.Verify(Models.RoleManager), taskController.CreateTask)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Patch("/:id", taskController.UpdateTask)
	tasks.Delete("/:id", taskController.DeleteTask)

	notifications := api.Group("/notifications", middleware.Verify())
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Patch("/read-all", notificationController.MarkAllAsRead)
	notifications.Patch("/:id/read", notificationController.MarkAsRead)

	api.Post("/devices/token", middleware.Verify(), deviceController.RegisterDeviceToken)

	return app, mail
}
