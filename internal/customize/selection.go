package customize

import (
	"slices"

	"github.com/noah-isme/backend-zawadi/internal/menu"
)

// Selection is the in-progress set of choices for one item. Hot toppings are
// a multiset where each occurrence is charged; cold toppings and sauces are
// sets kept in the order they were chosen.
type Selection struct {
	HotToppings  []string       `json:"hotToppings"`
	ColdToppings []string       `json:"coldToppings"`
	Sauces       []string       `json:"sauces"`
	Meat         string         `json:"meat,omitempty"`
	AddFries     bool           `json:"addFries"`
	AddDrink     string         `json:"addDrink,omitempty"`
	Flavor       string         `json:"flavor,omitempty"`
	IceOption    menu.IceOption `json:"iceOption"`
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := s
	out.HotToppings = slices.Clone(s.HotToppings)
	out.ColdToppings = slices.Clone(s.ColdToppings)
	out.Sauces = slices.Clone(s.Sauces)
	return out
}

// HotCount reports how many times name occurs in the hot multiset.
func (s Selection) HotCount(name string) int {
	n := 0
	for _, h := range s.HotToppings {
		if h == name {
			n++
		}
	}
	return n
}

// HasCold reports cold topping membership.
func (s Selection) HasCold(name string) bool {
	return slices.Contains(s.ColdToppings, name)
}

// HasSauce reports sauce membership.
func (s Selection) HasSauce(name string) bool {
	return slices.Contains(s.Sauces, name)
}

func removeOne(list []string, name string) []string {
	idx := slices.Index(list, name)
	if idx < 0 {
		return list
	}
	return slices.Delete(list, idx, idx+1)
}

func removeAll(list []string, name string) []string {
	return slices.DeleteFunc(list, func(v string) bool { return v == name })
}
