package middleware

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// LogData contains all the information that will be logged per request.
type LogData struct {
	Timestamp time.Time     `json:"timestamp"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    int           `json:"status"`
	Latency   time.Duration `json:"latency"`
	IP        string        `json:"ip"`
	RequestID string        `json:"request_id"`
	UserID    uint          `json:"user_id,omitempty"`
	Error     string        `json:"error,omitempty"`
}

var logSkipPaths = map[string]bool{
	"/health": true,
}

// RequestLogger tags every request with an id and writes a JSON line when
// it finishes.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if logSkipPaths[c.Path()] {
			return c.Next()
		}

		requestID := uuid.NewString()
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)

		start := time.Now()
		err := c.Next()

		data := LogData{
			Timestamp: start,
			Method:    c.Method(),
			Path:      c.Path(),
			Status:    c.Response().StatusCode(),
			Latency:   time.Since(start),
			IP:        c.IP(),
			RequestID: requestID,
			UserID:    CurrentUserID(c),
		}
		if err != nil {
			data.Error = err.Error()
		}

		line, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			log.Printf("%s %s %d", data.Method, data.Path, data.Status)
		} else {
			log.Println(string(line))
		}
		return err
	}
}
