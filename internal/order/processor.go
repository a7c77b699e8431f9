package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-zawadi/internal/obs"
	"github.com/noah-isme/backend-zawadi/internal/pos"
)

// Processor submits saved orders to the POS from a background worker.
type Processor struct {
	Svc    *Service
	POS    pos.Submitter
	Logger *zerolog.Logger
}

// Process submits one order. Orders that already left pending are skipped,
// so redelivered tasks are harmless. A POS rejection or the final failed
// attempt marks the order failed.
func (p *Processor) Process(ctx context.Context, orderID string, last bool) error {
	if p == nil || p.Svc == nil || p.POS == nil {
		return errors.New("order processor not configured")
	}
	log := p.logger(ctx)
	id, err := uuid.Parse(orderID)
	if err != nil {
		log.Error().Str("order_id", orderID).Msg("pos_submit_bad_id")
		return nil
	}
	o, err := p.Svc.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != StatusPending {
		return nil
	}

	res, err := p.POS.Submit(ctx, Submission(o))
	switch {
	case errors.Is(err, pos.ErrRejected):
		_, markErr := p.Svc.MarkFailed(ctx, id, err)
		return markErr
	case err != nil:
		log.Warn().Err(err).Str("order_id", orderID).Bool("last", last).Msg("pos_submit_failed")
		if last {
			if _, markErr := p.Svc.MarkFailed(ctx, id, err); markErr != nil {
				return errors.Join(err, markErr)
			}
		}
		return err
	case res.GUID == "":
		// accepted without a POS, the order stays pending
		log.Info().Str("order_id", orderID).Str("mode", p.POS.Mode()).Msg("pos_submit_local")
		return nil
	}
	_, err = p.Svc.MarkConfirmed(ctx, id, res.GUID)
	return err
}

func (p *Processor) logger(ctx context.Context) *zerolog.Logger {
	l := obs.Logger(ctx)
	if l.GetLevel() == zerolog.Disabled && p.Logger != nil {
		return p.Logger
	}
	return l
}

// Submission maps an order to the POS payload.
func Submission(o Order) pos.Order {
	lines := make([]pos.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, pos.Line{
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Modifiers: append([]string(nil), it.Modifiers...),
		})
	}
	return pos.Order{
		Number:              o.Number,
		Customer:            pos.Customer{Name: o.Customer.Name, Email: o.Customer.Email, Phone: o.Customer.Phone},
		PickupTime:          o.PickupTime,
		SpecialInstructions: o.SpecialInstructions,
		Items:               lines,
		Subtotal:            o.Subtotal,
		Tax:                 o.Tax,
		Total:               o.Total,
	}
}
