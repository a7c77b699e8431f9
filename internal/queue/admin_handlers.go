package queue

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-zawadi/internal/common"
)

// AdminHandler exposes DLQ inspection and replay for operators.
type AdminHandler struct {
	Store    Store
	Queue    Enqueuer
	PageSize int
}

type dlqItem struct {
	ID             uuid.UUID   `json:"id"`
	Kind           string      `json:"kind"`
	IdempotencyKey string      `json:"idempotencyKey"`
	Attempts       int         `json:"attempts"`
	LastError      *string     `json:"lastError,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	Message        taskMessage `json:"message"`
}

type replayRequest struct {
	IDs   []string `json:"ids" validate:"omitempty,max=100,dive,uuid"`
	Kind  string   `json:"kind" validate:"required_without=IDs"`
	Limit int      `json:"limit" validate:"gte=0,lte=500"`
}

// ListDLQ handles GET /admin/queue/dlq?kind=&limit=&offset=.
func (h *AdminHandler) ListDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "queue store unavailable", nil)
		return
	}
	ctx := r.Context()
	kind := sanitizeKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	limit := queryInt(r, "limit", h.pageSize(), 1, 200)
	offset := queryInt(r, "offset", 0, 0, 1<<20)

	entries, err := h.Store.ListQueueDlq(ctx, kind, limit, offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list dlq", nil)
		return
	}
	total, err := h.Store.CountQueueDlq(ctx, kind)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to count dlq", nil)
		return
	}
	items := make([]dlqItem, 0, len(entries))
	for _, entry := range entries {
		msg, err := decodeMessage(string(entry.Payload))
		if err != nil {
			continue
		}
		items = append(items, dlqItem{
			ID:             entry.ID,
			Kind:           entry.Kind,
			IdempotencyKey: entry.IdempotencyKey,
			Attempts:       entry.Attempts,
			LastError:      entry.LastError,
			CreatedAt:      entry.CreatedAt,
			Message:        msg,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items, "total": total})
}

// ReplayDLQ re-enqueues DLQ entries either by id or in a batch by kind.
func (h *AdminHandler) ReplayDLQ(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil || h.Queue.R == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "queue dependencies unavailable", nil)
		return
	}
	var req replayRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		if common.WriteAppError(w, err) {
			return
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	ctx := r.Context()
	var entries []DLQEntry
	failed := map[string]string{}
	if len(req.IDs) > 0 {
		for _, raw := range req.IDs {
			entry, err := h.Store.GetQueueDlq(ctx, uuid.MustParse(raw))
			if err != nil {
				failed[raw] = err.Error()
				continue
			}
			entries = append(entries, entry)
		}
	} else {
		limit := req.Limit
		if limit == 0 {
			limit = h.pageSize()
		}
		list, err := h.Store.ListQueueDlq(ctx, sanitizeKind(req.Kind), limit, 0)
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list dlq", nil)
			return
		}
		entries = list
	}

	replayed := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := h.requeue(ctx, entry); err != nil {
			failed[entry.ID.String()] = err.Error()
			continue
		}
		replayed = append(replayed, entry.ID)
	}
	resp := map[string]any{"replayed": replayed}
	if len(failed) > 0 {
		resp["failed"] = failed
	}
	common.JSON(w, http.StatusOK, resp)
}

// Stats handles GET /admin/queue/stats?kind=.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Queue.R == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "queue dependencies unavailable", nil)
		return
	}
	kind := sanitizeKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "kind is required", nil)
		return
	}
	ctx := r.Context()
	ready, processing, err := h.Queue.Stats(ctx, kind)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to read queue", nil)
		return
	}
	var dlq int64
	if h.Store != nil {
		if dlq, err = h.Store.CountQueueDlq(ctx, kind); err == nil {
			QueueDLQSize.WithLabelValues(kind).Set(float64(dlq))
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"kind":       kind,
		"ready":      ready,
		"processing": processing,
		"dlq":        dlq,
	})
}

// requeue enqueues the stored message with a fresh attempt budget and
// removes the entry.
func (h *AdminHandler) requeue(ctx context.Context, entry DLQEntry) error {
	msg, err := decodeMessage(string(entry.Payload))
	if err != nil {
		return err
	}
	if msg.Kind == "" {
		return errors.New("queue: stored message has no kind")
	}
	task := Task{
		Kind:           msg.Kind,
		Payload:        msg.Payload,
		IdempotencyKey: msg.Key,
		MaxAttempts:    msg.MaxAttempts,
	}
	if err := h.Queue.Enqueue(ctx, task); err != nil {
		return err
	}
	return h.Store.DeleteQueueDlq(ctx, entry.ID)
}

func (h *AdminHandler) pageSize() int {
	if h.PageSize <= 0 {
		return 50
	}
	return h.PageSize
}

func queryInt(r *http.Request, key string, def, lo, hi int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || v < lo || v > hi {
		return def
	}
	return v
}
