package customize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-zawadi/internal/cache"
	"github.com/noah-isme/backend-zawadi/internal/lock"
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/obs"
)

// ErrSessionNotFound is returned when no stored session matches the id.
var ErrSessionNotFound = errors.New("customize: session not found")

// Catalog is the part of *menu.Catalog the service depends on.
type Catalog interface {
	Options
	Lookup(name string) (menu.Item, error)
}

// record is the stored form of a Session.
type record struct {
	ID            string    `json:"id"`
	Item          string    `json:"item"`
	Selection     Selection `json:"selection"`
	State         State     `json:"state"`
	LockedProtein string    `json:"lockedProtein,omitempty"`
	LockedCold    bool      `json:"lockedCold,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Service keeps customization sessions in Redis so a session survives
// across requests. Updates to one session are serialized with a lock.
type Service struct {
	Catalog Catalog
	Store   *cache.JSON
	Locker  *lock.Locker
	LockTTL time.Duration
	NewID   func() string
}

// Open starts a session for the named item.
func (s *Service) Open(ctx context.Context, itemName string) (*Session, error) {
	if s == nil || s.Catalog == nil {
		return nil, errors.New("customize service not configured")
	}
	item, err := s.Catalog.Lookup(itemName)
	if err != nil {
		return nil, err
	}
	sess := Open(s.newID(), s.Catalog, item)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	obs.ObserveSession("opened")
	return sess, nil
}

// Get loads a session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("customize service not configured")
	}
	var rec record
	ok, err := s.Store.Get(ctx, id, &rec)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	item, err := s.Catalog.Lookup(rec.Item)
	if err != nil {
		return nil, fmt.Errorf("session item %q: %w", rec.Item, err)
	}
	return restore(rec, s.Catalog, item), nil
}

// Update loads the session, runs fn and stores the result when fn succeeds.
func (s *Service) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	var out *Session
	run := func(ctx context.Context) error {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		before := sess.State()
		if err := fn(sess); err != nil {
			return err
		}
		if err := s.save(ctx, sess); err != nil {
			return err
		}
		if after := sess.State(); after != before {
			obs.ObserveSession(after.String())
		}
		out = sess
		return nil
	}
	var err error
	if s.Locker == nil {
		err = run(ctx)
	} else {
		err = s.Locker.WithLock(ctx, "session:"+id, s.LockTTL, run)
	}
	return out, err
}

// Apply performs a single action against a stored session.
func (s *Service) Apply(ctx context.Context, id string, action Action) (*Session, error) {
	return s.Update(ctx, id, action.Apply)
}

// Discard abandons a stored session.
func (s *Service) Discard(ctx context.Context, id string) error {
	_, err := s.Update(ctx, id, func(sess *Session) error { return sess.Discard() })
	return err
}

func (s *Service) save(ctx context.Context, sess *Session) error {
	if s.Store == nil {
		return errors.New("customize service not configured")
	}
	rec := record{
		ID:            sess.ID,
		Item:          sess.item.Name,
		Selection:     sess.sel,
		State:         sess.state,
		LockedProtein: sess.lockedProtein,
		LockedCold:    sess.lockedCold,
		CreatedAt:     sess.CreatedAt,
	}
	if err := s.Store.Set(ctx, sess.ID, rec); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func restore(rec record, options Options, item menu.Item) *Session {
	return &Session{
		ID:            rec.ID,
		CreatedAt:     rec.CreatedAt,
		options:       options,
		item:          item,
		sel:           rec.Selection,
		state:         rec.State,
		lockedProtein: rec.LockedProtein,
		lockedCold:    rec.LockedCold,
	}
}

// Action is a single user interaction posted to a session.
type Action struct {
	Type     string `json:"action" validate:"required,oneof=toggle_hot add_hot remove_hot set_hot_quantity toggle_cold toggle_sauce set_meat set_fries set_drink set_flavor set_ice reset"`
	Name     string `json:"name"`
	Quantity *int   `json:"quantity" validate:"omitempty,gte=0,lte=10"`
	Value    *bool  `json:"value"`
}

// Apply dispatches the action to the matching Session operation.
func (a Action) Apply(s *Session) error {
	name := strings.TrimSpace(a.Name)
	switch a.Type {
	case "toggle_hot":
		return s.ToggleHot(name)
	case "add_hot":
		return s.AddHot(name)
	case "remove_hot":
		return s.RemoveHot(name)
	case "set_hot_quantity":
		if a.Quantity == nil {
			return ErrInvalidQuantity
		}
		return s.SetHotQuantity(name, *a.Quantity)
	case "toggle_cold":
		return s.ToggleCold(name)
	case "toggle_sauce":
		return s.ToggleSauce(name)
	case "set_meat":
		return s.SetMeat(name)
	case "set_fries":
		return s.SetAddFries(a.Value != nil && *a.Value)
	case "set_drink":
		return s.SetAddDrink(name)
	case "set_flavor":
		return s.SetFlavor(name)
	case "set_ice":
		return s.SetIceOption(menu.IceOption(name))
	case "reset":
		return s.Init()
	}
	return fmt.Errorf("%w: action %q", ErrUnknownOption, a.Type)
}
