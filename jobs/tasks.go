package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/procureflow/procureflow/internal/jobs"
	"github.com/procureflow/procureflow/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for supplier emails.
	TaskTypeSendEmail = "mail:send"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (p SendEmailPayload) message() notify.Message {
	return notify.Message{Recipient: p.To, Subject: p.Subject, Body: p.Body}
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	if err := payload.message().Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// MailJob hands queued supplier emails to a delivery sink. With no sink
// configured the message is logged together with its mailto link.
type MailJob struct {
	Sink    notify.Sink
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewMailJob initialises the mail handler.
func NewMailJob(sink notify.Sink, logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	return &MailJob{Sink: sink, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("mail: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	msg := payload.message()
	if err := msg.Validate(); err != nil {
		j.logger().Warn("dropping invalid email", slog.Any("error", err))
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTypeSendEmail)
	return tracker.End(j.sink().Send(ctx, msg))
}

func (j *MailJob) sink() notify.Sink {
	if j.Sink != nil {
		return j.Sink
	}
	return notify.LogSink{Logger: j.logger()}
}

func (j *MailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeSendEmail))
	}
	return slog.Default().With(slog.String("job", TaskTypeSendEmail))
}

func (j *MailJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// Enqueuer is the part of the Asynq client used by MailQueue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// MailQueue is a notify.Sink that defers delivery to the worker.
type MailQueue struct {
	Client Enqueuer
}

// Send enqueues msg as a TaskTypeSendEmail task.
func (q MailQueue) Send(ctx context.Context, msg notify.Message) error {
	if q.Client == nil {
		return errors.New("mail queue: client not configured")
	}
	task, err := NewSendEmailTask(SendEmailPayload{To: msg.Recipient, Subject: msg.Subject, Body: msg.Body})
	if err != nil {
		return err
	}
	_, err = q.Client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
	return err
}
