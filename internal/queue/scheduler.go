package queue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Job is a periodic batch task. Cron is evaluated in TimeZone; an empty
// TimeZone means UTC.
type Job struct {
	TaskType string
	Cron     string
	TimeZone string
}

// CronSpec prefixes the cron expression with its time zone.
func CronSpec(cron, timeZone string) (string, error) {
	if timeZone == "" {
		return cron, nil
	}
	if _, err := time.LoadLocation(timeZone); err != nil {
		return "", fmt.Errorf("invalid time zone %q: %w", timeZone, err)
	}
	return fmt.Sprintf("CRON_TZ=%s %s", timeZone, cron), nil
}

// NewScheduler registers jobs on an asynq scheduler. Each run is enqueued on
// QueueScheduled with no retries; the next tick is the retry.
func NewScheduler(redisOpt asynq.RedisClientOpt, jobs []Job) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		LogLevel: asynq.WarnLevel,
	})

	for _, job := range jobs {
		spec, err := CronSpec(job.Cron, job.TimeZone)
		if err != nil {
			return nil, err
		}

		entryID, err := scheduler.Register(spec, asynq.NewTask(job.TaskType, nil),
			asynq.Queue(QueueScheduled),
			asynq.MaxRetry(0),
			asynq.Timeout(time.Hour),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", job.TaskType, err)
		}

		slog.Info("scheduled batch job", "task", job.TaskType, "spec", spec, "entry_id", entryID)
	}

	return scheduler, nil
}
