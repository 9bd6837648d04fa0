package background

import (
	"context"
	"log"
	"time"

	"checkbox/internal/analytics"
	"checkbox/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler runs the periodic maintenance jobs: global stats refresh and
// receipt PDF retention.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	analyticsSvc *analytics.Service
	storage      services.ReceiptStorage
	bucket       string
	retention    time.Duration
	jobs         map[string]gocron.Job
}

func NewJobScheduler(analyticsSvc *analytics.Service, storage services.ReceiptStorage, bucket string, retention time.Duration) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		analyticsSvc: analyticsSvc,
		storage:      storage,
		bucket:       bucket,
		retention:    retention,
		jobs:         make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js, nil
}

func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	statsJob, err := js.scheduler.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(js.refreshGlobalStats),
		gocron.WithName("global-stats-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create stats job: %v", err)
	} else {
		js.jobs["stats"] = statsJob
	}

	retentionJob, err := js.scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(js.sweepArchivedReceipts),
		gocron.WithName("receipt-pdf-retention"),
	)
	if err != nil {
		log.Printf("Failed to create retention job: %v", err)
	} else {
		js.jobs["retention"] = retentionJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

func (js *JobScheduler) refreshGlobalStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := js.analyticsSvc.RefreshGlobalStats(ctx); err != nil {
		log.Printf("Global stats refresh failed: %v", err)
	}
}

func (js *JobScheduler) sweepArchivedReceipts() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-js.retention)
	removed, err := js.storage.RemoveOlderThan(ctx, js.bucket, cutoff)
	if err != nil {
		log.Printf("Receipt PDF retention sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Receipt PDF retention sweep removed %d objects", removed)
	}
}
