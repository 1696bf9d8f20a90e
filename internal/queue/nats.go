package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"doc-markup/internal/retry"
)

// Redelivery backoff bounds for failed export tasks.
const (
	redeliverBase = time.Second
	redeliverCap  = time.Minute
)

// Subject is the NATS subject export tasks of taskType are published on.
func Subject(taskType TaskType) string {
	return "markup." + string(taskType)
}

// workerGroup is the queue group shared by every exporter replica, so each
// task reaches exactly one of them.
func workerGroup(taskType TaskType) string {
	return "markup-" + string(taskType) + "ers"
}

// NewNATS returns a Queue that publishes tasks on core NATS subjects and
// redelivers failed ones itself.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return &natsQueue{log: log, nc: nc, now: time.Now}
}

type natsQueue struct {
	log *slog.Logger
	nc  *nats.Conn
	now func() time.Time
}

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.Type == "" {
		return errors.New("task type required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish(Subject(task.Type), body)
}

func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	sub, err := q.nc.QueueSubscribe(Subject(taskType), workerGroup(taskType), func(msg *nats.Msg) {
		q.deliver(ctx, msg.Data, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("export worker subscribed", "subject", sub.Subject, "group", sub.Queue)
	<-ctx.Done()
	return sub.Unsubscribe()
}

// deliver runs handler on one message, holding it until its NotBefore time.
func (q *natsQueue) deliver(ctx context.Context, data []byte, handler Handler) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		q.log.Error("undecodable export message discarded", "err", err, "bytes", len(data))
		return
	}

	if wait := task.NotBefore.Sub(q.now()); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	err := handler(ctx, task)
	if err == nil {
		return
	}
	next, ok := nextAttempt(task, q.now())
	log := q.log.With("task_id", task.ID, "task_type", task.Type,
		"attempt", next.Attempts, "max_attempts", next.MaxAttempts, "err", err)
	if !ok {
		log.Error("export task abandoned after max attempts")
		return
	}
	if perr := q.Enqueue(ctx, next); perr != nil {
		log.Error("export task redelivery failed", "publish_err", perr)
		return
	}
	log.Warn("export task redelivery scheduled", "not_before", next.NotBefore)
}

// nextAttempt counts a failed attempt against task and reports whether it
// may run again. A retried task is held back with capped exponential backoff.
func nextAttempt(task Task, now time.Time) (Task, bool) {
	task.Attempts++
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = DefaultMaxAttempts
	}
	if task.Attempts >= task.MaxAttempts {
		return task, false
	}
	task.NotBefore = now.Add(retry.CappedBackoff(task.Attempts, redeliverBase, redeliverCap))
	return task, true
}
