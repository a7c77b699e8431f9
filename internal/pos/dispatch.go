package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-zawadi/internal/queue"
)

// TaskKind names the submission task in both queue backends.
const TaskKind = "pos-submit"

// Job is the task payload.
type Job struct {
	OrderID string `json:"orderId"`
}

// ProcessFunc handles one submission. last reports whether a failure will
// be the final one for this order.
type ProcessFunc func(ctx context.Context, orderID string, last bool) error

func encodeJob(orderID string) ([]byte, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("pos: order id is required")
	}
	return json.Marshal(Job{OrderID: orderID})
}

func decodeJob(payload []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, fmt.Errorf("pos: decode job: %w", err)
	}
	if job.OrderID == "" {
		return Job{}, errors.New("pos: job without order id")
	}
	return job, nil
}

// QueueDispatcher schedules submissions on the Redis queue.
type QueueDispatcher struct {
	Queue       queue.Enqueuer
	MaxAttempts int
}

// Dispatch enqueues the order once; the order id is the idempotency key.
func (d QueueDispatcher) Dispatch(ctx context.Context, orderID string) error {
	payload, err := encodeJob(orderID)
	if err != nil {
		return err
	}
	return d.Queue.Enqueue(ctx, queue.Task{
		Kind:           TaskKind,
		Payload:        payload,
		IdempotencyKey: orderID,
		MaxAttempts:    d.MaxAttempts,
	})
}

// QueueHandler adapts fn to a queue.Worker handler.
func QueueHandler(fn ProcessFunc) func(context.Context, queue.Task) error {
	return func(ctx context.Context, t queue.Task) error {
		job, err := decodeJob(t.Payload)
		if err != nil {
			return err
		}
		return fn(ctx, job.OrderID, t.LastAttempt())
	}
}

// AsynqDispatcher schedules submissions through asynq.
type AsynqDispatcher struct {
	Client   *asynq.Client
	MaxRetry int
	Queue    string
}

// Dispatch enqueues the order with the order id as task id, so a repeated
// dispatch is a no-op.
func (d AsynqDispatcher) Dispatch(ctx context.Context, orderID string) error {
	if d.Client == nil {
		return errors.New("pos: asynq client not configured")
	}
	payload, err := encodeJob(orderID)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.TaskID(TaskKind + ":" + orderID)}
	if d.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(d.MaxRetry))
	}
	if d.Queue != "" {
		opts = append(opts, asynq.Queue(d.Queue))
	}
	_, err = d.Client.EnqueueContext(ctx, asynq.NewTask(TaskKind, payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// NewAsynqMux routes submission tasks to fn.
func NewAsynqMux(fn ProcessFunc) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskKind, func(ctx context.Context, t *asynq.Task) error {
		job, err := decodeJob(t.Payload())
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		return fn(ctx, job.OrderID, retried >= maxRetry)
	})
	return mux
}
