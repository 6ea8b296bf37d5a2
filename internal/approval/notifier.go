package approval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/aegis-hr/aegis-identity/jobs"
)

// QueueNotifier enqueues resolution emails for the worker to deliver.
// Enqueue failures are logged, never surfaced; resolution must not fail
// because the mail queue is down.
type QueueNotifier struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewQueueNotifier constructs a QueueNotifier.
func NewQueueNotifier(client *asynq.Client, logger *slog.Logger) *QueueNotifier {
	return &QueueNotifier{client: client, logger: logger}
}

// NotifyResolution implements Notifier.
func (n *QueueNotifier) NotifyResolution(ctx context.Context, email string, approved bool, reason string) {
	subject := "Your account has been approved"
	body := "Your account is now active. You can sign in."
	if !approved {
		subject = "Your account request was rejected"
		body = "Your account request was rejected."
		if reason != "" {
			body = fmt.Sprintf("Your account request was rejected: %s", reason)
		}
	}
	task, err := jobs.NewSendEmailTask(jobs.SendEmailPayload{
		To:      email,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		n.logger.Error("build mail task", "err", err)
		return
	}
	if _, err := n.client.EnqueueContext(ctx, task); err != nil {
		n.logger.Error("enqueue mail task", "err", err)
	}
}

var _ Notifier = (*QueueNotifier)(nil)
