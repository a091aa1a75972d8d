package FiberConfig

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/template/html"
	"gorm.io/gorm"

	"Osprey/Constants"
	"Osprey/Controllers"
	"Osprey/CronJobs"
	"Osprey/Models"
	"Osprey/Notifications"
	"Osprey/Reports"
	"Osprey/email"
	"Osprey/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, notifier *Notifications.Service, reports *Reports.Service, hub *Notifications.Hub) {
	// Initialize handlers
	authController := Controllers.NewAuthController(db)
	usersController := Controllers.NewUsersController(db)
	projectController := Controllers.NewProjectController(db, notifier)
	taskController := Controllers.NewTaskController(db, notifier)
	notificationController := Controllers.NewNotificationController(db, notifier)
	deviceController := Controllers.NewDeviceController(db)
	reportsController := Controllers.NewReportsController(reports)

	// API group
	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)

	// User administration
	users := api.Group("/users", middleware.Verify(Models.RoleAdmin))
	users.Get("/", usersController.FetchUsers)
	users.Patch("/:id/role", usersController.ChangeUserRole)

	// Project routes
	projects := api.Group("/projects", middleware.Verify())
	projects.Get("/", projectController.GetProjects)
	projects.Post("/", projectController.CreateProject)
	projects.Get("/:id", projectController.GetProject)
	projects.Patch("/:id", projectController.UpdateProject)
	projects.Delete("/:id", projectController.DeleteProject)

	// Task routes - creation is manager-only, the rest is gated per task
	tasks := api.Group("/tasks", middleware.Verify())
	tasks.Get("/", taskController.GetTasks)
	tasks.Post("/", middleware.Verify(Models.RoleManager), taskController.CreateTask)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Patch("/:id", taskController.UpdateTask)
	tasks.Delete("/:id", taskController.DeleteTask)

	// Notification routes
	notifications := api.Group("/notifications", middleware.Verify())
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Patch("/read-all", notificationController.MarkAllAsRead)
	notifications.Patch("/:id/read", notificationController.MarkAsRead)

	// Device push token registration
	api.Post("/devices/token", middleware.Verify(), deviceController.RegisterDeviceToken)

	// Report routes
	reportRoutes := api.Group("/reports")
	reportRoutes.Get("/task-completion", middleware.Verify(Models.RoleAdmin, Models.RoleManager), reportsController.TaskCompletion)
	reportRoutes.Get("/pending-tasks", middleware.Verify(Models.RoleAdmin, Models.RoleManager), reportsController.PendingTasks)
	reportRoutes.Get("/daily-summary", middleware.Verify(Models.RoleAdmin), reportsController.DailySummary)
	reportRoutes.Post("/send-daily-summary", middleware.Verify(Models.RoleAdmin), reportsController.SendDailySummary)
	reportRoutes.Post("/send-user-report", middleware.Verify(Models.RoleUser, Models.RoleManager), reportsController.SendUserReport)

	// Live notification stream
	app.Use("/ws", Notifications.UpgradeGate)
	app.Get("/ws", Notifications.Gateway(notifier, hub))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func FiberConfig() {
	log.Println("Server Up...")
	engine := html.New("./Templates", ".html")
	// Html Template engine
	app := fiber.New(fiber.Config{
		Views: engine,
	})
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mailer := &email.Sender{Config: Constants.EmailConfig}
	hub := Notifications.NewHub()
	notifier := Notifications.NewService(Models.DB, mailer, hub)
	if Constants.FirebaseCredentials != "" {
		fcm, err := Notifications.InitFirebase(Constants.FirebaseCredentials, Models.DB)
		if err != nil {
			log.Printf("Firebase init failed, device push disabled: %v", err)
		} else {
			notifier.Push = fcm
		}
	}
	reports := Reports.NewService(Models.DB, mailer)

	if Constants.ReportCron != "" {
		scheduler := CronJobs.NewReportScheduler(Constants.ReportCron, reports)
		if err := scheduler.Start(); err != nil {
			log.Printf("Failed to start report scheduler: %v", err)
		}
	}

	SetupRoutes(app, Models.DB, notifier, reports, hub)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Render("index", fiber.Map{"Title": "Osprey"})
	})

	log.Fatal(app.Listen(":" + Constants.Port))
}
