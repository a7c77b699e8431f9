package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zawadi/internal/events"
)

type stubStore struct {
	topic     string
	aggregate string
	payload   []byte
}

func (s *stubStore) InsertEvent(_ context.Context, topic, aggregateID string, payload []byte) (events.Event, error) {
	s.topic, s.aggregate, s.payload = topic, aggregateID, payload
	return events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}, nil
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	event, err := bus.Emit(context.Background(), events.TopicOrderCreated, "order-1", map[string]any{"orderNumber": "ORD-123456"})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, store.topic)
	require.Equal(t, "order-1", store.aggregate)
	require.JSONEq(t, `{"orderNumber":"ORD-123456"}`, string(store.payload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "ORD-123456", decoded["orderNumber"])
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	ctx := context.Background()

	_, err := bus.Emit(ctx, " ", "order-1", nil)
	require.Error(t, err)
	_, err = bus.Emit(ctx, events.TopicOrderCreated, "", nil)
	require.Error(t, err)
	_, err = bus.Emit(ctx, events.TopicOrderCreated, "order-1", "{not json")
	require.Error(t, err)

	ev, err := bus.Emit(ctx, events.TopicOrderCreated, "order-1", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(ev.Payload))

	var nilBus *events.Bus
	_, err = nilBus.Emit(ctx, events.TopicOrderCreated, "order-1", nil)
	require.Error(t, err)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	boom := errors.New("boom")
	var buf bytes.Buffer
	bus := events.Bus{
		Store: &stubStore{},
		Notifiers: []events.Notifier{
			events.NotifierFunc(func(context.Context, events.Event) error { return boom }),
			events.LogNotifier{Logger: zerolog.New(&buf)},
		},
	}
	ev, err := bus.Emit(context.Background(), events.TopicOrderConfirmed, "order-9", map[string]string{"guid": "abc"})
	require.ErrorIs(t, err, boom)
	require.Equal(t, events.TopicOrderConfirmed, ev.Topic)
	require.Contains(t, buf.String(), `"topic":"order.confirmed"`)
	require.Contains(t, buf.String(), `"payload":{"guid":"abc"}`)
}
