package menu

import (
	"strings"

	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

// Capability is a customization axis an item may allow.
type Capability string

const (
	CapHot            Capability = "hot"
	CapCold           Capability = "cold"
	CapSauces         Capability = "sauces"
	CapMeats          Capability = "meats"
	CapDrink          Capability = "drink"
	CapFountainDrinks Capability = "fountainDrinks"
	CapFries          Capability = "fries"
	CapIce            Capability = "ice"
)

// Capabilities lists every known capability in display order.
var Capabilities = []Capability{CapHot, CapCold, CapSauces, CapMeats, CapDrink, CapFountainDrinks, CapFries, CapIce}

// Listed reports whether the capability is backed by an option list. Fries is
// a flat surcharge and ice is a fixed two-way choice.
func (c Capability) Listed() bool {
	switch c {
	case CapHot, CapCold, CapSauces, CapMeats, CapDrink, CapFountainDrinks:
		return true
	}
	return false
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	for _, known := range Capabilities {
		if c == known {
			return true
		}
	}
	return false
}

// Kind tags the item variant.
type Kind string

const (
	KindBowl          Kind = "bowl"
	KindQuesadilla    Kind = "quesadilla"
	KindDrink         Kind = "drink"
	KindFountainDrink Kind = "fountain-drink"
	KindLoadedFries   Kind = "loaded-fries"
	KindSimple        Kind = "simple"
)

// ParseKind maps the free-form catalog type to a Kind. Any type mentioning
// "bowl" is a bowl; unknown and empty types are simple items.
func ParseKind(raw string) Kind {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch t {
	case string(KindQuesadilla):
		return KindQuesadilla
	case string(KindDrink):
		return KindDrink
	case string(KindFountainDrink):
		return KindFountainDrink
	case string(KindLoadedFries):
		return KindLoadedFries
	}
	if strings.Contains(t, "bowl") {
		return KindBowl
	}
	return KindSimple
}

// Variant carries the fields that only make sense for one kind of item.
type Variant interface {
	Kind() Kind
}

// Bowl auto-selects DefaultProtein once when a session opens.
type Bowl struct {
	DefaultProtein string `json:"defaultProtein,omitempty"`
}

// Quesadilla starts with BaseProtein doubled and guacamole included. When
// LockInclusions is set those defaults cannot be removed.
type Quesadilla struct {
	BaseProtein    string `json:"baseProtein,omitempty"`
	LockInclusions bool   `json:"lockInclusions"`
}

type Drink struct{}

type FountainDrink struct{}

type LoadedFries struct{}

type Simple struct{}

func (Bowl) Kind() Kind          { return KindBowl }
func (Quesadilla) Kind() Kind    { return KindQuesadilla }
func (Drink) Kind() Kind         { return KindDrink }
func (FountainDrink) Kind() Kind { return KindFountainDrink }
func (LoadedFries) Kind() Kind   { return KindLoadedFries }
func (Simple) Kind() Kind        { return KindSimple }

// Topping is a priced option belonging to one capability.
type Topping struct {
	Name  string        `json:"name"`
	Price pricing.Money `json:"price"`
	Image string        `json:"image,omitempty"`
	Role  string        `json:"role,omitempty"`
}

// Item is a catalog entry. Items are values; copying one never shares the
// override tables with the catalog.
type Item struct {
	Name         string
	Description  string
	Category     string
	Image        string
	BasePrice    pricing.Money
	Variant      Variant
	Capabilities []Capability
	MaxSauces    int
	Overrides    map[Capability][]Topping
}

// Kind returns the item's variant tag.
func (it Item) Kind() Kind {
	if it.Variant == nil {
		return KindSimple
	}
	return it.Variant.Kind()
}

// Allows reports whether the capability is enabled for the item.
func (it Item) Allows(c Capability) bool {
	for _, allowed := range it.Capabilities {
		if allowed == c {
			return true
		}
	}
	return false
}

// Customizable reports whether the item has any capability at all.
func (it Item) Customizable() bool {
	return len(it.Capabilities) > 0
}

func (it Item) clone() Item {
	out := it
	out.Capabilities = append([]Capability(nil), it.Capabilities...)
	if it.Overrides != nil {
		out.Overrides = make(map[Capability][]Topping, len(it.Overrides))
		for c, list := range it.Overrides {
			out.Overrides[c] = append([]Topping(nil), list...)
		}
	}
	return out
}

// IceOption is the drink ice preference.
type IceOption string

const (
	WithIce IceOption = "With Ice"
	NoIce   IceOption = "No Ice"
)

// Valid reports whether o is one of the two ice choices.
func (o IceOption) Valid() bool {
	return o == WithIce || o == NoIce
}

// Tables holds the global option lists keyed by capability.
type Tables map[Capability][]Topping
