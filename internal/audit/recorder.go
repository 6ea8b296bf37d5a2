// Package audit records authorization and workflow decisions. Writes are
// fire-and-forget: the API process enqueues entries onto the task queue
// and the worker persists them, so a slow audit sink never blocks a
// request path.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/aegis-hr/aegis-identity/jobs"
)

// Entry is one audit record.
type Entry struct {
	ActorID  uuid.UUID
	TenantID uuid.UUID
	Action   string
	Entity   string
	EntityID string
	Decision string
	Reason   string
	Meta     map[string]any
}

// Recorder accepts audit entries. Implementations must never fail the
// caller; delivery problems are logged and dropped.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// QueueRecorder enqueues entries onto Asynq for the worker to persist.
type QueueRecorder struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewQueueRecorder constructs a QueueRecorder.
func NewQueueRecorder(client *asynq.Client, logger *slog.Logger) *QueueRecorder {
	return &QueueRecorder{client: client, logger: logger}
}

// Record enqueues the entry. Errors are logged, never returned.
func (r *QueueRecorder) Record(ctx context.Context, entry Entry) {
	payload := jobs.AuditRecordPayload{
		Action:     entry.Action,
		Entity:     entry.Entity,
		EntityID:   entry.EntityID,
		Decision:   entry.Decision,
		Reason:     entry.Reason,
		Meta:       entry.Meta,
		OccurredAt: time.Now().UTC(),
	}
	if entry.ActorID != uuid.Nil {
		payload.ActorID = entry.ActorID.String()
	}
	if entry.TenantID != uuid.Nil {
		payload.TenantID = entry.TenantID.String()
	}
	task, err := jobs.NewAuditRecordTask(payload)
	if err != nil {
		r.logger.Error("audit task encode", slog.Any("error", err))
		return
	}
	if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
		r.logger.Error("audit enqueue", slog.Any("error", err), slog.String("action", entry.Action))
	}
}

// NopRecorder discards entries; used in tests.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, Entry) {}

var (
	_ Recorder = (*QueueRecorder)(nil)
	_ Recorder = NopRecorder{}
)
