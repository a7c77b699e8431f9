package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-zawadi/internal/cart"
	"github.com/noah-isme/backend-zawadi/internal/events"
	"github.com/noah-isme/backend-zawadi/internal/lock"
	"github.com/noah-isme/backend-zawadi/internal/obs"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

var (
	// ErrNotFound indicates the requested order could not be located.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when checking out a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutInProgress is returned while another checkout holds the cart.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

const numberAttempts = 5

// Carts is the cart dependency of checkout.
type Carts interface {
	Get(ctx context.Context, id string) (cart.Cart, error)
	Consume(ctx context.Context, id string, ordered []cart.LineItem) error
}

// Dispatcher schedules the POS submission of a saved order.
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID string) error
}

// Service implements checkout and the order status transitions.
type Service struct {
	Store      Store
	Carts      Carts
	Locker     *lock.Locker
	LockTTL    time.Duration
	TaxBps     int
	Events     *events.Bus
	Dispatcher Dispatcher
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Number formats an order number from the millisecond clock.
func Number(t time.Time) string {
	return fmt.Sprintf("ORD-%06d", t.UnixMilli()%1_000_000)
}

// Checkout turns the cart into a pending order, schedules POS submission and
// removes the ordered lines from the cart. A failure to dispatch keeps the
// order; it is logged.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (Order, error) {
	if s == nil || s.Store == nil || s.Carts == nil {
		return Order{}, errors.New("order service not configured")
	}
	cartID := strings.TrimSpace(in.CartID)
	if cartID == "" {
		return Order{}, fmt.Errorf("%w: cartId is required", ErrInvalidInput)
	}

	var created Order
	run := func(ctx context.Context) error {
		c, err := s.Carts.Get(ctx, cartID)
		if err != nil {
			return err
		}
		items := Flatten(c.Lines)
		if len(items) == 0 {
			return ErrEmptyCart
		}
		bps := s.TaxBps
		if bps <= 0 {
			bps = pricing.DefaultTaxBps
		}
		sum := Summary(items, bps)
		draft := Order{
			Customer: Customer{
				Name:  strings.TrimSpace(in.Customer.Name),
				Email: strings.TrimSpace(in.Customer.Email),
				Phone: strings.TrimSpace(in.Customer.Phone),
			},
			Items:               items,
			Subtotal:            sum.Subtotal,
			Tax:                 sum.Tax,
			Total:               sum.Total,
			Status:              StatusPending,
			PickupTime:          strings.TrimSpace(in.PickupTime),
			SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
		}
		created, err = s.insert(ctx, draft)
		if err != nil {
			return err
		}
		if err := s.Carts.Consume(ctx, cartID, c.Lines); err != nil {
			obs.Logger(ctx).Warn().Err(err).Str("cart_id", cartID).Msg("cart_clear_failed")
		}
		return nil
	}

	var err error
	if s.Locker == nil {
		err = run(ctx)
	} else {
		err = s.Locker.TryLock(ctx, "checkout:"+cartID, s.LockTTL, run)
		if errors.Is(err, lock.ErrHeld) {
			err = ErrCheckoutInProgress
		}
	}
	if err != nil {
		obs.ObserveOrder("rejected", 0)
		return Order{}, err
	}

	log := obs.Logger(ctx)
	log.Info().Str("order_id", created.ID.String()).Str("order_number", created.Number).
		Int64("total", created.Total).Int("items", len(created.Items)).Msg("order_created")
	obs.ObserveOrder("created", created.Total)
	s.emit(ctx, events.TopicOrderCreated, created.ID, created)
	if s.Dispatcher != nil {
		if err := s.Dispatcher.Dispatch(ctx, created.ID.String()); err != nil {
			log.Error().Err(err).Str("order_id", created.ID.String()).Msg("pos_dispatch_failed")
		}
	}
	return created, nil
}

func (s *Service) insert(ctx context.Context, draft Order) (Order, error) {
	var lastErr error
	for attempt := range numberAttempts {
		if attempt == 0 {
			draft.Number = Number(s.now())
		} else {
			draft.Number = fmt.Sprintf("ORD-%06d", rand.IntN(1_000_000))
		}
		o, err := s.Store.Insert(ctx, draft)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrDuplicateNumber) {
			return Order{}, fmt.Errorf("save order: %w", err)
		}
		lastErr = err
	}
	return Order{}, lastErr
}

// Get loads an order by id.
func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	if s == nil || s.Store == nil {
		return Order{}, errors.New("order service not configured")
	}
	oid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Order{}, ErrNotFound
	}
	return s.Store.Get(ctx, oid)
}

// MarkConfirmed records a POS acceptance.
func (s *Service) MarkConfirmed(ctx context.Context, id uuid.UUID, posGuid string) (Order, error) {
	guid := strings.TrimSpace(posGuid)
	if guid == "" {
		return Order{}, fmt.Errorf("%w: pos guid is required", ErrInvalidInput)
	}
	o, err := s.Store.UpdateStatus(ctx, id, StatusConfirmed, &guid)
	if err != nil {
		return Order{}, err
	}
	obs.Logger(ctx).Info().Str("order_id", id.String()).Str("pos_guid", guid).Msg("order_confirmed")
	s.emit(ctx, events.TopicOrderConfirmed, o.ID, o)
	return o, nil
}

// MarkFailed records that POS submission was abandoned.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, cause error) (Order, error) {
	o, err := s.Store.UpdateStatus(ctx, id, StatusFailed, nil)
	if err != nil {
		return Order{}, err
	}
	obs.Logger(ctx).Error().Err(cause).Str("order_id", id.String()).Msg("order_submit_failed")
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	s.emit(ctx, events.TopicOrderSubmitFailed, o.ID, map[string]any{
		"orderId":     o.ID,
		"orderNumber": o.Number,
		"reason":      reason,
	})
	return o, nil
}

func (s *Service) emit(ctx context.Context, topic string, id uuid.UUID, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, id.String(), payload); err != nil {
		obs.Logger(ctx).Warn().Err(err).Str("topic", topic).Str("aggregate_id", id.String()).Msg("domain_event_failed")
	}
}
