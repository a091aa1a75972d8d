package CronJobs

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"Osprey/Reports"
)

// ReportScheduler runs the daily summary fan-out on a cron schedule.
type ReportScheduler struct {
	cronScheduler *cron.Cron
	schedule      string
	reports       *Reports.Service
	jobID         cron.EntryID
}

// NewReportScheduler creates a scheduler for the given cron expression.
func NewReportScheduler(schedule string, reports *Reports.Service) *ReportScheduler {
	return &ReportScheduler{
		cronScheduler: cron.New(),
		schedule:      schedule,
		reports:       reports,
	}
}

// Start registers and launches the scheduled job.
func (s *ReportScheduler) Start() error {
	var err error
	s.jobID, err = s.cronScheduler.AddFunc(s.schedule, func() {
		log.Println("Running scheduled daily summary report")
		s.runDailySummary()
	})
	if err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}

	s.cronScheduler.Start()
	log.Printf("Report scheduler started with schedule %q", s.schedule)
	return nil
}

// Stop terminates the scheduler.
func (s *ReportScheduler) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
		log.Println("Report scheduler stopped")
	}
}

func (s *ReportScheduler) runDailySummary() {
	result, err := s.reports.SendDailySummary(time.Now())
	if err != nil {
		log.Printf("Scheduled daily summary failed: %v", err)
		return
	}
	log.Printf("Scheduled daily summary sent to %d of %d recipients", len(result.Recipients), result.Total)
	for _, failed := range result.Failed {
		log.Printf("Scheduled daily summary delivery failed for %s", failed)
	}
}
