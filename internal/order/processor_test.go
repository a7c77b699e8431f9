package order_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zawadi/internal/events"
	"github.com/noah-isme/backend-zawadi/internal/order"
	"github.com/noah-isme/backend-zawadi/internal/pos"
)

type stubSubmitter struct {
	res  pos.Result
	err  error
	sent []pos.Order
}

func (s *stubSubmitter) Submit(_ context.Context, o pos.Order) (pos.Result, error) {
	s.sent = append(s.sent, o)
	return s.res, s.err
}

func (s *stubSubmitter) Mode() string { return "stub" }

func checkedOut(t *testing.T) (*order.Service, *memStore, *eventStore, order.Order) {
	t.Helper()
	svc, store, _, _, evs := newService(t)
	o, err := svc.Checkout(context.Background(), validInput())
	require.NoError(t, err)
	return svc, store, evs, o
}

func TestProcessConfirmsOnGuid(t *testing.T) {
	svc, store, _, o := checkedOut(t)
	sub := &stubSubmitter{res: pos.Result{GUID: "pos-guid-1"}}
	p := &order.Processor{Svc: svc, POS: sub}

	require.NoError(t, p.Process(context.Background(), o.ID.String(), false))
	saved, err := store.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusConfirmed, saved.Status)
	require.Equal(t, "pos-guid-1", *saved.POSGuid)

	require.Len(t, sub.sent, 1)
	sent := sub.sent[0]
	require.Equal(t, o.Number, sent.Number)
	require.Equal(t, "Amina", sent.Customer.Name)
	require.Equal(t, int64(1847), sent.Total)
	require.Equal(t, []string{"Hot: Chicken (Double)", "Cold: Lettuce"}, sent.Items[0].Modifiers)

	// redelivery of a confirmed order does not submit twice
	require.NoError(t, p.Process(context.Background(), o.ID.String(), false))
	require.Len(t, sub.sent, 1)
}

func TestProcessLocalAcceptKeepsPending(t *testing.T) {
	svc, store, _, o := checkedOut(t)
	p := &order.Processor{Svc: svc, POS: pos.LocalSubmitter{}}

	require.NoError(t, p.Process(context.Background(), o.ID.String(), false))
	saved, err := store.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusPending, saved.Status)
	require.Nil(t, saved.POSGuid)
}

func TestProcessRetriesThenFails(t *testing.T) {
	svc, store, evs, o := checkedOut(t)
	sub := &stubSubmitter{err: errors.New("pos: submit: connection refused")}
	p := &order.Processor{Svc: svc, POS: sub}

	err := p.Process(context.Background(), o.ID.String(), false)
	require.Error(t, err)
	saved, _ := store.Get(context.Background(), o.ID)
	require.Equal(t, order.StatusPending, saved.Status)

	err = p.Process(context.Background(), o.ID.String(), true)
	require.Error(t, err)
	saved, _ = store.Get(context.Background(), o.ID)
	require.Equal(t, order.StatusFailed, saved.Status)
	require.Contains(t, evs.topics, events.TopicOrderSubmitFailed)
}

func TestProcessRejectionFailsWithoutRetry(t *testing.T) {
	svc, store, _, o := checkedOut(t)
	sub := &stubSubmitter{err: fmt.Errorf("%w: status 422", pos.ErrRejected)}
	p := &order.Processor{Svc: svc, POS: sub}

	require.NoError(t, p.Process(context.Background(), o.ID.String(), false))
	saved, _ := store.Get(context.Background(), o.ID)
	require.Equal(t, order.StatusFailed, saved.Status)
}

func TestProcessIgnoresMalformedIDs(t *testing.T) {
	svc, _, _, _ := checkedOut(t)
	p := &order.Processor{Svc: svc, POS: &stubSubmitter{}}
	require.NoError(t, p.Process(context.Background(), "nope", false))

	var nilProcessor *order.Processor
	require.Error(t, nilProcessor.Process(context.Background(), "x", false))
}
