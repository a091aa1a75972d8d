package Controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"Osprey/Reports"
	"Osprey/middleware"
)

// ReportsController exposes the aggregation queries and the email fan-out.
type ReportsController struct {
	Service *Reports.Service
}

func NewReportsController(service *Reports.Service) *ReportsController {
	return &ReportsController{Service: service}
}

func (rc *ReportsController) TaskCompletion(c *fiber.Ctx) error {
	rates, err := rc.Service.TaskCompletionRates()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute completion rates"})
	}
	return c.JSON(rates)
}

func (rc *ReportsController) PendingTasks(c *fiber.Ctx) error {
	counts, err := rc.Service.PendingTasksPerProject()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute pending counts"})
	}
	return c.JSON(counts)
}

func (rc *ReportsController) DailySummary(c *fiber.Ctx) error {
	summary, err := rc.Service.Summarize(time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute daily summary"})
	}
	return c.JSON(summary)
}

// SendDailySummary triggers the fan-out on demand, same path the scheduler
// runs. Partial failure is a 200 with the failed recipients listed.
func (rc *ReportsController) SendDailySummary(c *fiber.Ctx) error {
	result, err := rc.Service.SendDailySummary(time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send daily summary"})
	}
	return c.JSON(result)
}

// SendUserReport emails the caller their own task report.
func (rc *ReportsController) SendUserReport(c *fiber.Ctx) error {
	result, err := rc.Service.SendUserReport(middleware.CurrentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send report"})
	}
	return c.JSON(result)
}
