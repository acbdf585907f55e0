package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/societyhub/societyhub/internal/jobs"
	"github.com/societyhub/societyhub/internal/membership"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// TaskMembershipExpire triggers the daily expiry scan.
const TaskMembershipExpire = "membership:expire"

type membershipExpirePayload struct {
	DryRun bool `json:"dry_run"`
}

// NewMembershipExpireTask constructs the expiry scan task.
func NewMembershipExpireTask() (*asynq.Task, error) {
	body, err := json.Marshal(membershipExpirePayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMembershipExpire, body, asynq.Queue(QueueDefault)), nil
}

// MembershipExpiryJob transitions overdue active memberships to expired.
type MembershipExpiryJob struct {
	service *membership.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewMembershipExpiryJob constructs the job.
func NewMembershipExpiryJob(service *membership.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *MembershipExpiryJob {
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return &MembershipExpiryJob{service: service, logger: logger, metrics: metrics}
}

// Handle processes TaskMembershipExpire tasks.
func (j *MembershipExpiryJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload membershipExpirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track(TaskMembershipExpire)
	count, err := j.service.ExpireDue(ctx)
	if err = tracker.End(err); err != nil {
		return err
	}
	j.logger.Info("membership expiry scan finished", slog.Int("expired", count))
	return nil
}
