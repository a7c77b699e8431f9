package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-zawadi/internal/resilience"
)

const defaultMaxAttempts = 10

// Task represents a job to be processed asynchronously. Attempt is filled in
// by the worker and starts at 1.
type Task struct {
	Kind           string
	Payload        []byte
	IdempotencyKey string
	MaxAttempts    int
	Attempt        int
	Delay          time.Duration
}

// LastAttempt reports whether a failure of this run moves the task to the DLQ.
func (t Task) LastAttempt() bool {
	return t.MaxAttempts > 0 && t.Attempt >= t.MaxAttempts
}

// Enqueuer publishes tasks to Redis backed queues.
type Enqueuer struct {
	R           *redis.Client
	Prefix      string
	DedupTTL    time.Duration
	MaxAttempts int
}

// Enqueue inserts the task into the queue. If an idempotency key is supplied the
// task is only enqueued once within the configured deduplication window.
func (e Enqueuer) Enqueue(ctx context.Context, t Task) error {
	if e.R == nil {
		return errors.New("queue: redis client not configured")
	}
	kind := sanitizeKind(t.Kind)
	if kind == "" {
		return errors.New("queue: task kind is required")
	}
	msg := taskMessage{
		Kind:        kind,
		Key:         t.IdempotencyKey,
		Payload:     t.Payload,
		Attempt:     max(t.Attempt, 0),
		MaxAttempts: t.MaxAttempts,
		AvailableAt: time.Now().Add(t.Delay).UnixNano(),
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = e.MaxAttempts
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = defaultMaxAttempts
	}

	k := keys{prefix: e.Prefix, kind: kind}
	if msg.Key != "" {
		ttl := e.DedupTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ok, err := e.R.SetNX(ctx, k.dedup(msg.Key), "1", ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return e.R.ZAdd(ctx, k.ready(), redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err()
}

// Stats reports the ready and in-flight counts for kind.
func (e Enqueuer) Stats(ctx context.Context, kind string) (ready, processing int64, err error) {
	if e.R == nil {
		return 0, 0, errors.New("queue: redis client not configured")
	}
	k := keys{prefix: e.Prefix, kind: sanitizeKind(kind)}
	if ready, err = e.R.ZCard(ctx, k.ready()).Result(); err != nil {
		return 0, 0, err
	}
	if processing, err = e.R.ZCard(ctx, k.processing()).Result(); err != nil {
		return 0, 0, err
	}
	QueueDepth.WithLabelValues(k.kind).Set(float64(ready))
	return ready, processing, nil
}

// Worker consumes tasks for a specific kind. Tasks whose handler keeps
// failing are written to Store when set, otherwise to a Redis list.
type Worker struct {
	R                 *redis.Client
	Prefix            string
	Kind              string
	Concurrency       int
	VisibilityTimeout time.Duration
	// SoftDeadline bounds a single handler run. Zero uses the visibility timeout.
	SoftDeadline time.Duration
	Handler      func(context.Context, Task) error
	RetryBase    time.Duration
	RetryJitter  float64
	Store        Store
	Logger       *zerolog.Logger
}

// Run starts processing tasks until the context is cancelled. Active tasks are
// tracked in a processing set to enable redelivery when workers crash.
func (w Worker) Run(ctx context.Context) error {
	if w.R == nil {
		return errors.New("queue: worker redis client not configured")
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	kind := sanitizeKind(w.Kind)
	if kind == "" {
		return errors.New("queue: worker kind is required")
	}
	concurrency := max(w.Concurrency, 1)
	visibility := w.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	deadline := w.SoftDeadline
	if deadline <= 0 || deadline > visibility {
		deadline = visibility
	}
	retryBase := w.RetryBase
	if retryBase <= 0 {
		retryBase = 200 * time.Millisecond
	}
	k := keys{prefix: w.Prefix, kind: kind}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	requeueTicker := time.NewTicker(100 * time.Millisecond)
	defer requeueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-requeueTicker.C:
			if err := w.requeueExpired(ctx, k); err != nil && ctx.Err() == nil {
				return err
			}
		default:
		}

		res, err := w.R.ZPopMin(ctx, k.ready(), 1).Result()
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			if errors.Is(err, redis.Nil) {
				sleep(ctx, 50*time.Millisecond)
				continue
			}
			return err
		}
		if len(res) == 0 {
			sleep(ctx, 50*time.Millisecond)
			continue
		}
		member, ok := res[0].Member.(string)
		if !ok {
			continue
		}
		msg, err := decodeMessage(member)
		if err != nil {
			w.log().Warn().Err(err).Str("kind", kind).Msg("queue_drop_undecodable")
			continue
		}
		now := time.Now().UnixNano()
		if msg.AvailableAt > now {
			// not due yet, push back and wait
			w.R.ZAdd(ctx, k.ready(), redis.Z{Score: float64(msg.AvailableAt), Member: member})
			sleep(ctx, min(time.Duration(msg.AvailableAt-now), 100*time.Millisecond))
			continue
		}

		msg.Attempt++
		rawBytes, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		raw := string(rawBytes)
		leaseUntil := time.Now().Add(visibility).UnixNano()
		if err := w.R.ZAdd(ctx, k.processing(), redis.Z{Score: float64(leaseUntil), Member: raw}).Err(); err != nil {
			return err
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(raw string, m taskMessage) {
			defer func() { <-sem }()
			defer wg.Done()
			jobCtx, cancel := context.WithTimeout(ctx, deadline)
			defer cancel()
			task := Task{Kind: kind, Payload: m.Payload, IdempotencyKey: m.Key, MaxAttempts: m.MaxAttempts, Attempt: m.Attempt}
			if err := w.Handler(jobCtx, task); err != nil {
				// bookkeeping must survive a cancelled job context
				w.handleFailure(context.WithoutCancel(ctx), k, raw, m, retryBase, err)
				return
			}
			w.ack(context.WithoutCancel(ctx), k, raw, m)
		}(raw, msg)
	}
}

func (w Worker) handleFailure(ctx context.Context, k keys, raw string, msg taskMessage, base time.Duration, cause error) {
	if !w.release(ctx, k, raw) {
		// lease already expired and the task was redelivered
		return
	}
	if msg.MaxAttempts > 0 && msg.Attempt >= msg.MaxAttempts {
		QueueProcessedTotal.WithLabelValues(k.kind, "dead").Inc()
		w.log().Error().Err(cause).Str("kind", k.kind).Str("key", msg.Key).Int("attempt", msg.Attempt).Msg("queue_task_dead")
		w.deadLetter(ctx, k, msg, cause)
		if msg.Key != "" {
			_ = w.R.Del(ctx, k.dedup(msg.Key)).Err()
		}
		return
	}
	QueueProcessedTotal.WithLabelValues(k.kind, "retry").Inc()
	delay := resilience.Backoff(base, msg.Attempt, w.RetryJitter)
	w.log().Warn().Err(cause).Str("kind", k.kind).Int("attempt", msg.Attempt).Dur("retry_in", delay).Msg("queue_task_retry")
	msg.AvailableAt = time.Now().Add(delay).UnixNano()
	rawBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = w.R.ZAdd(ctx, k.ready(), redis.Z{Score: float64(msg.AvailableAt), Member: string(rawBytes)}).Err()
}

func (w Worker) deadLetter(ctx context.Context, k keys, msg taskMessage, cause error) {
	rawBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if w.Store != nil {
		reason := cause.Error()
		_, err := w.Store.InsertQueueDlq(ctx, DLQEntry{
			Kind:           msg.Kind,
			IdempotencyKey: msg.Key,
			Payload:        rawBytes,
			Attempts:       msg.Attempt,
			LastError:      &reason,
		})
		if err == nil {
			QueueDLQSize.WithLabelValues(k.kind).Inc()
			return
		}
		w.log().Error().Err(err).Str("kind", k.kind).Msg("queue_dlq_store_failed")
	}
	_ = w.R.LPush(ctx, k.dlq(), rawBytes).Err()
	QueueDLQSize.WithLabelValues(k.kind).Inc()
}

func (w Worker) ack(ctx context.Context, k keys, raw string, msg taskMessage) {
	w.release(ctx, k, raw)
	QueueProcessedTotal.WithLabelValues(k.kind, "ok").Inc()
	if msg.Key != "" {
		_ = w.R.Del(ctx, k.dedup(msg.Key)).Err()
	}
}

// release drops the lease and reports whether this worker still held it.
func (w Worker) release(ctx context.Context, k keys, raw string) bool {
	n, err := w.R.ZRem(ctx, k.processing(), raw).Result()
	return err == nil && n > 0
}

func (w Worker) requeueExpired(ctx context.Context, k keys) error {
	now := fmt.Sprintf("%d", time.Now().UnixNano())
	due, err := w.R.ZRangeByScore(ctx, k.processing(), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for _, raw := range due {
		msg, err := decodeMessage(raw)
		if err != nil {
			continue
		}
		if n, _ := w.R.ZRem(ctx, k.processing(), raw).Result(); n == 0 {
			continue
		}
		w.log().Warn().Str("kind", k.kind).Int("attempt", msg.Attempt).Msg("queue_lease_expired")
		msg.AvailableAt = time.Now().UnixNano()
		encoded, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		_ = w.R.ZAdd(ctx, k.ready(), redis.Z{Score: float64(msg.AvailableAt), Member: encoded}).Err()
	}
	return nil
}

func (w Worker) log() *zerolog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// keys derives the Redis keys of one task kind.
type keys struct {
	prefix string
	kind   string
}

func (k keys) base() string {
	if k.prefix == "" {
		return "queue"
	}
	return k.prefix
}

func (k keys) ready() string {
	return fmt.Sprintf("%s:queue:%s", k.base(), k.kind)
}

func (k keys) processing() string {
	return fmt.Sprintf("%s:%s:processing", k.base(), k.kind)
}

func (k keys) dlq() string {
	return fmt.Sprintf("%s:%s:dlq", k.base(), k.kind)
}

func (k keys) dedup(key string) string {
	return fmt.Sprintf("%s:dedup:%s:%s", k.base(), k.kind, key)
}

func sanitizeKind(kind string) string {
	for i := 0; i < len(kind); i++ {
		c := kind[i]
		if c >= 'a' && c <= 'z' {
			continue
		}
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '-' || c == '_' || c == '.' || c == ':' {
			continue
		}
		return ""
	}
	return kind
}

func decodeMessage(raw string) (taskMessage, error) {
	var msg taskMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return taskMessage{}, err
	}
	return msg, nil
}

type taskMessage struct {
	Kind        string `json:"kind"`
	Key         string `json:"key,omitempty"`
	Payload     []byte `json:"payload"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	AvailableAt int64  `json:"available_at"`
}
