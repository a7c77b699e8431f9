package customize

import (
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

// MaxHotPortions caps the occurrences of a single hot topping.
const MaxHotPortions = 10

// IncludedCold is the cold topping every quesadilla starts with.
const IncludedCold = "Guacamole"

var (
	ErrNotInitialized       = errors.New("customize: session not initialized")
	ErrSessionClosed        = errors.New("customize: session closed")
	ErrCapabilityNotAllowed = errors.New("customize: capability not allowed for item")
	ErrUnknownOption        = errors.New("customize: unknown option")
	ErrLocked               = errors.New("customize: included option is locked")
	ErrLimitReached         = errors.New("customize: selection limit reached")
	ErrInvalidQuantity      = errors.New("customize: invalid quantity")
)

// Options resolves the priced option lists of an item. *menu.Catalog
// satisfies it.
type Options interface {
	Options(item menu.Item, c menu.Capability) []menu.Topping
}

// State is the lifecycle position of a Session.
type State int

const (
	Uninitialized State = iota
	Initialized
	Finalized
	Discarded
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Finalized:
		return "finalized"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Session owns the Selection for one item while it is being customized.
// A Session is not safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	options Options
	item    menu.Item
	sel     Selection
	state   State

	// set when the item locks its inclusions
	lockedProtein string
	lockedCold    bool
}

// NewSession returns an uninitialized session for item.
func NewSession(id string, options Options, item menu.Item) *Session {
	return &Session{ID: id, CreatedAt: time.Now().UTC(), options: options, item: item}
}

// Open creates a session and applies the initialization rules.
func Open(id string, options Options, item menu.Item) *Session {
	s := NewSession(id, options, item)
	_ = s.Init()
	return s
}

// Init resets the selection and applies the item defaults: quesadillas get
// their base protein twice and guacamole, bowls get their default protein
// once, and the ice option starts as "With Ice". A protein that does not
// resolve is skipped.
func (s *Session) Init() error {
	if s.closed() {
		return ErrSessionClosed
	}
	s.sel = Selection{}
	s.lockedProtein = ""
	s.lockedCold = false

	switch v := s.item.Variant.(type) {
	case menu.Quesadilla:
		if v.BaseProtein != "" {
			want := strings.ToLower(v.BaseProtein)
			for _, opt := range s.resolve(menu.CapHot) {
				if strings.Contains(strings.ToLower(opt.Name), want) {
					s.sel.HotToppings = []string{opt.Name, opt.Name}
					if v.LockInclusions {
						s.lockedProtein = opt.Name
					}
					break
				}
			}
		}
		s.sel.ColdToppings = []string{IncludedCold}
		s.lockedCold = v.LockInclusions
	case menu.Bowl:
		if v.DefaultProtein != "" {
			for _, opt := range s.resolve(menu.CapHot) {
				if opt.Name == v.DefaultProtein {
					s.sel.HotToppings = []string{opt.Name}
					break
				}
			}
		}
	}
	s.sel.IceOption = menu.WithIce
	s.state = Initialized
	return nil
}

// State reports the lifecycle state.
func (s *Session) State() State { return s.state }

// Item returns the item being customized. Callers must treat it as read-only.
func (s *Session) Item() menu.Item { return s.item }

// Selection returns a snapshot of the current selection.
func (s *Session) Selection() Selection { return s.sel.Clone() }

// Total prices the current selection.
func (s *Session) Total() pricing.Money { return Price(s.options, s.item, s.sel) }

// Quote prices the current selection with a per-category breakdown.
func (s *Session) Quote() Quote { return QuoteFor(s.options, s.item, s.sel) }

// Locked reports whether name is a locked inclusion for the capability.
func (s *Session) Locked(c menu.Capability, name string) bool {
	switch c {
	case menu.CapHot:
		return s.lockedProtein != "" && name == s.lockedProtein
	case menu.CapCold:
		return s.lockedCold && name == IncludedCold
	}
	return false
}

// ToggleHot removes one occurrence of name when present, otherwise adds one.
func (s *Session) ToggleHot(name string) error {
	if err := s.mutable(menu.CapHot); err != nil {
		return err
	}
	if s.sel.HotCount(name) > 0 {
		return s.RemoveHot(name)
	}
	return s.AddHot(name)
}

// AddHot appends one more occurrence of name, up to MaxHotPortions.
func (s *Session) AddHot(name string) error {
	if err := s.mutable(menu.CapHot); err != nil {
		return err
	}
	if err := s.known(menu.CapHot, name); err != nil {
		return err
	}
	if s.sel.HotCount(name) >= MaxHotPortions {
		return ErrLimitReached
	}
	s.sel.HotToppings = append(s.sel.HotToppings, name)
	return nil
}

// RemoveHot drops one occurrence of name. Removing an absent topping is a no-op.
func (s *Session) RemoveHot(name string) error {
	if err := s.mutable(menu.CapHot); err != nil {
		return err
	}
	count := s.sel.HotCount(name)
	if count == 0 {
		return nil
	}
	if s.Locked(menu.CapHot, name) && count <= 2 {
		return ErrLocked
	}
	s.sel.HotToppings = removeOne(s.sel.HotToppings, name)
	return nil
}

// SetHotQuantity sets the number of occurrences of name.
func (s *Session) SetHotQuantity(name string, qty int) error {
	if err := s.mutable(menu.CapHot); err != nil {
		return err
	}
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if qty > MaxHotPortions {
		return ErrLimitReached
	}
	if qty > 0 {
		if err := s.known(menu.CapHot, name); err != nil {
			return err
		}
	}
	if s.Locked(menu.CapHot, name) && qty < 2 {
		return ErrLocked
	}
	s.sel.HotToppings = removeAll(s.sel.HotToppings, name)
	for i := 0; i < qty; i++ {
		s.sel.HotToppings = append(s.sel.HotToppings, name)
	}
	return nil
}

// ToggleCold flips cold topping membership.
func (s *Session) ToggleCold(name string) error {
	if err := s.mutable(menu.CapCold); err != nil {
		return err
	}
	if s.sel.HasCold(name) {
		if s.Locked(menu.CapCold, name) {
			return ErrLocked
		}
		s.sel.ColdToppings = removeAll(s.sel.ColdToppings, name)
		return nil
	}
	if err := s.known(menu.CapCold, name); err != nil {
		return err
	}
	s.sel.ColdToppings = append(s.sel.ColdToppings, name)
	return nil
}

// ToggleSauce flips sauce membership, honouring the item's sauce limit.
func (s *Session) ToggleSauce(name string) error {
	if err := s.mutable(menu.CapSauces); err != nil {
		return err
	}
	if s.sel.HasSauce(name) {
		s.sel.Sauces = removeAll(s.sel.Sauces, name)
		return nil
	}
	if err := s.known(menu.CapSauces, name); err != nil {
		return err
	}
	if s.item.MaxSauces > 0 && len(s.sel.Sauces) >= s.item.MaxSauces {
		return ErrLimitReached
	}
	s.sel.Sauces = append(s.sel.Sauces, name)
	return nil
}

// SetMeat replaces the single meat choice. An empty name clears it.
func (s *Session) SetMeat(name string) error {
	if err := s.mutable(menu.CapMeats); err != nil {
		return err
	}
	if name != "" {
		if err := s.known(menu.CapMeats, name); err != nil {
			return err
		}
	}
	s.sel.Meat = name
	return nil
}

// SetAddFries toggles the flat fries add-on.
func (s *Session) SetAddFries(add bool) error {
	if err := s.mutable(menu.CapFries); err != nil {
		return err
	}
	s.sel.AddFries = add
	return nil
}

// SetAddDrink picks the add-on drink. An empty name clears it.
func (s *Session) SetAddDrink(name string) error {
	if err := s.mutable(menu.CapDrink); err != nil {
		return err
	}
	if name != "" {
		if err := s.known(menu.CapDrink, name); err != nil {
			return err
		}
	}
	s.sel.AddDrink = name
	return nil
}

// SetFlavor picks the fountain drink flavor. An empty name clears it.
func (s *Session) SetFlavor(name string) error {
	if err := s.mutable(menu.CapFountainDrinks); err != nil {
		return err
	}
	if name != "" {
		if err := s.known(menu.CapFountainDrinks, name); err != nil {
			return err
		}
	}
	s.sel.Flavor = name
	return nil
}

// SetIceOption records the ice preference.
func (s *Session) SetIceOption(opt menu.IceOption) error {
	if err := s.mutable(menu.CapIce); err != nil {
		return err
	}
	if !opt.Valid() {
		return ErrUnknownOption
	}
	s.sel.IceOption = opt
	return nil
}

// Snapshot is what a session yields when it is finalized.
type Snapshot struct {
	Item      menu.Item
	Selection Selection
	Total     pricing.Money
}

// Freeze prices the selection, moves the session to Finalized and returns
// a deep copy that later mutation cannot reach.
func (s *Session) Freeze() (Snapshot, error) {
	switch s.state {
	case Uninitialized:
		return Snapshot{}, ErrNotInitialized
	case Finalized, Discarded:
		return Snapshot{}, ErrSessionClosed
	}
	snap := Snapshot{Item: s.item, Selection: s.sel.Clone(), Total: s.Total()}
	s.state = Finalized
	return snap, nil
}

// Discard abandons the session without output.
func (s *Session) Discard() error {
	if s.closed() {
		return ErrSessionClosed
	}
	s.state = Discarded
	return nil
}

func (s *Session) closed() bool {
	return s.state == Finalized || s.state == Discarded
}

func (s *Session) mutable(c menu.Capability) error {
	switch s.state {
	case Uninitialized:
		return ErrNotInitialized
	case Finalized, Discarded:
		return ErrSessionClosed
	}
	if !s.item.Allows(c) {
		return ErrCapabilityNotAllowed
	}
	return nil
}

func (s *Session) known(c menu.Capability, name string) error {
	for _, opt := range s.resolve(c) {
		if opt.Name == name {
			return nil
		}
	}
	return ErrUnknownOption
}

func (s *Session) resolve(c menu.Capability) []menu.Topping {
	if s.options == nil {
		return nil
	}
	return s.options.Options(s.item, c)
}
