package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSamplesWarm re-renders and caches every template sample PDF.
	TaskSamplesWarm = "samples:warm"
	// SamplesWarmSchedule runs the warm-up at the top of every hour.
	SamplesWarmSchedule = "0 * * * *"
)

// SamplesWarmPayload describes why a warm-up was requested.
type SamplesWarmPayload struct {
	Reason string `json:"reason"`
}

// NewSamplesWarmTask constructs an Asynq task.
func NewSamplesWarmTask(payload SamplesWarmPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSamplesWarm, data), nil
}

// SamplesWarmCron schedules the hourly warm-up.
func SamplesWarmCron() (CronRegistration, error) {
	task, err := NewSamplesWarmTask(SamplesWarmPayload{Reason: "schedule"})
	if err != nil {
		return CronRegistration{}, err
	}
	return CronRegistration{
		Spec:    SamplesWarmSchedule,
		Task:    task,
		Options: []asynq.Option{asynq.Queue(QueueDefault), asynq.Unique(SamplesWarmUniqueFor)},
	}, nil
}
