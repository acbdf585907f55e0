package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/societyhub/societyhub/internal/jobs"
	"github.com/societyhub/societyhub/internal/notifications"
)

// TaskNotifyDeliver fans one announcement out to every active member.
const TaskNotifyDeliver = "notify:deliver"

type notifyDeliverPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NewNotifyDeliverTask constructs a fan-out delivery task.
func NewNotifyDeliverTask(title, body string) (*asynq.Task, error) {
	payload, err := json.Marshal(notifyDeliverPayload{Title: title, Body: body})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyDeliver, payload, asynq.Queue(QueueDefault)), nil
}

// NotifyDeliverJob delivers a broadcast announcement member by member.
type NotifyDeliverJob struct {
	service *notifications.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewNotifyDeliverJob constructs the job.
func NewNotifyDeliverJob(service *notifications.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotifyDeliverJob {
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return &NotifyDeliverJob{service: service, logger: logger, metrics: metrics}
}

// Handle processes TaskNotifyDeliver tasks.
func (j *NotifyDeliverJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload notifyDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track(TaskNotifyDeliver)
	delivered, err := j.service.Broadcast(ctx, payload.Title, payload.Body)
	if err = tracker.End(err); err != nil {
		return err
	}
	j.logger.Info("broadcast delivered", slog.String("title", payload.Title), slog.Int("recipients", delivered))
	return nil
}
