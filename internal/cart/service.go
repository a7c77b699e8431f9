package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-zawadi/internal/cache"
	"github.com/noah-isme/backend-zawadi/internal/customize"
	"github.com/noah-isme/backend-zawadi/internal/lock"
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/obs"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

var (
	// ErrNotFound indicates the requested cart could not be located.
	ErrNotFound = errors.New("cart not found")
	// ErrLineNotFound is returned for an unknown line id.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrNeedsCustomization is returned when a customizable item is added
	// without going through a session.
	ErrNeedsCustomization = errors.New("item must be customized before adding")
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// Lookup is the catalog dependency of the cart.
type Lookup interface {
	Lookup(name string) (menu.Item, error)
}

// Service encapsulates cart domain operations. Carts live in Redis and expire
// after TTL of inactivity.
type Service struct {
	Catalog Lookup
	Store   *cache.JSON
	Locker  *lock.Locker
	LockTTL time.Duration
	TaxBps  int
	Now     func() time.Time
	NewID   func() string
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Create starts an empty cart.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	now := s.now()
	c := Cart{ID: s.newID(), Lines: []LineItem{}, CreatedAt: now, UpdatedAt: now}
	if err := s.Store.Set(ctx, c.ID, c); err != nil {
		return Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Get loads a cart.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.Store == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	var c Cart
	ok, err := s.Store.Get(ctx, strings.TrimSpace(id), &c)
	if err != nil {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		return Cart{}, ErrNotFound
	}
	if c.Lines == nil {
		c.Lines = []LineItem{}
	}
	return c, nil
}

// AddItem adds a non-customizable menu item by name, merging with an
// existing line of the same item.
func (s *Service) AddItem(ctx context.Context, cartID, name string) (Cart, error) {
	if s.Catalog == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	item, err := s.Catalog.Lookup(strings.TrimSpace(name))
	if err != nil {
		return Cart{}, err
	}
	if item.Customizable() {
		return Cart{}, ErrNeedsCustomization
	}
	return s.Update(ctx, cartID, func(c *Cart) error {
		var merged bool
		c.Lines, merged = AddLine(c.Lines, LineFromItem(s.newID(), item))
		if !merged {
			obs.ObserveCartLine("simple")
		}
		return nil
	})
}

// AddCustomized appends a finalized customization as its own line.
func (s *Service) AddCustomized(ctx context.Context, cartID string, ci CustomizedItem) (Cart, error) {
	return s.Update(ctx, cartID, func(c *Cart) error {
		c.Lines, _ = AddLine(c.Lines, FromCustomized(s.newID(), ci))
		obs.ObserveCartLine("customized")
		return nil
	})
}

// Sessions is the customization store the cart finalizes from.
type Sessions interface {
	Update(ctx context.Context, id string, fn func(*customize.Session) error) (*customize.Session, error)
}

// AddFromSession finalizes the stored session into the cart. The cart write
// happens inside the session update, so the session is saved as finalized
// only when its line is in the cart; on any failure it stays open.
func (s *Service) AddFromSession(ctx context.Context, cartID string, sessions Sessions, sessionID string) (Cart, error) {
	if sessions == nil {
		return Cart{}, errors.New("cart service not configured")
	}
	var out Cart
	_, err := sessions.Update(ctx, sessionID, func(sess *customize.Session) error {
		ci, err := Finalize(sess)
		if err != nil {
			return err
		}
		out, err = s.AddCustomized(ctx, cartID, ci)
		return err
	})
	if err != nil {
		return Cart{}, err
	}
	return out, nil
}

// SetQuantity changes a line quantity. A quantity of zero or less removes
// the line. Prices are not recomputed.
func (s *Service) SetQuantity(ctx context.Context, cartID, lineID string, qty int) (Cart, error) {
	return s.Update(ctx, cartID, func(c *Cart) error {
		i := c.find(lineID)
		if i < 0 {
			return ErrLineNotFound
		}
		if qty <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
		c.Lines[i].Quantity = qty
		return nil
	})
}

// RemoveLine deletes a line.
func (s *Service) RemoveLine(ctx context.Context, cartID, lineID string) (Cart, error) {
	return s.SetQuantity(ctx, cartID, lineID, 0)
}

// Clear empties the cart but keeps it alive.
func (s *Service) Clear(ctx context.Context, cartID string) error {
	_, err := s.Update(ctx, cartID, func(c *Cart) error {
		c.Lines = []LineItem{}
		return nil
	})
	return err
}

// Consume takes ordered lines out of the cart after checkout. Each line loses
// the quantity that was ordered, so lines added or topped up since the cart
// was read stay behind.
func (s *Service) Consume(ctx context.Context, cartID string, ordered []LineItem) error {
	taken := make(map[string]int, len(ordered))
	for _, line := range ordered {
		taken[line.ID] += line.Quantity
	}
	_, err := s.Update(ctx, cartID, func(c *Cart) error {
		kept := c.Lines[:0]
		for _, line := range c.Lines {
			line.Quantity -= taken[line.ID]
			if line.Quantity > 0 {
				kept = append(kept, line)
			}
		}
		c.Lines = kept
		return nil
	})
	return err
}

// Delete drops the cart.
func (s *Service) Delete(ctx context.Context, cartID string) error {
	if _, err := s.Get(ctx, cartID); err != nil {
		return err
	}
	return s.Store.Delete(ctx, cartID)
}

// Totals prices the cart with the configured tax rate.
func (s *Service) Totals(c Cart) pricing.Summary {
	bps := pricing.DefaultTaxBps
	if s != nil && s.TaxBps > 0 {
		bps = s.TaxBps
	}
	return c.Summary(bps)
}

// Update runs fn against the stored cart under the cart lock and saves the
// result when fn succeeds.
func (s *Service) Update(ctx context.Context, cartID string, fn func(*Cart) error) (Cart, error) {
	var out Cart
	run := func(ctx context.Context) error {
		c, err := s.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		if err := s.Store.Set(ctx, c.ID, c); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		out = c
		return nil
	}
	var err error
	if s.Locker == nil {
		err = run(ctx)
	} else {
		err = s.Locker.WithLock(ctx, "cart:"+cartID, s.LockTTL, run)
	}
	return out, err
}
