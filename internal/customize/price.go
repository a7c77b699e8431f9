package customize

import (
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

// Quote breaks an item total down by category. Unresolved lists selected
// names that no longer resolve and therefore contributed nothing.
type Quote struct {
	Base       pricing.Money `json:"base"`
	Hot        pricing.Money `json:"hot"`
	Cold       pricing.Money `json:"cold"`
	Meat       pricing.Money `json:"meat"`
	Fries      pricing.Money `json:"fries"`
	Drink      pricing.Money `json:"drink"`
	Total      pricing.Money `json:"total"`
	Display    string        `json:"display"`
	Unresolved []string      `json:"unresolved,omitempty"`
}

// Price returns the item total for sel. It is pure: the same inputs always
// give the same result, and names that do not resolve add nothing.
func Price(opts Options, item menu.Item, sel Selection) pricing.Money {
	return QuoteFor(opts, item, sel).Total
}

// QuoteFor computes the total in a fixed order: base price, every hot
// occurrence, cold toppings, meat, the flat fries surcharge, then the drink.
// Sauces are free. Capabilities the item does not allow contribute nothing.
func QuoteFor(opts Options, item menu.Item, sel Selection) Quote {
	q := Quote{Base: item.BasePrice}
	lookup := func(c menu.Capability) map[string]pricing.Money {
		if opts == nil {
			return nil
		}
		list := opts.Options(item, c)
		prices := make(map[string]pricing.Money, len(list))
		for _, t := range list {
			prices[t.Name] = t.Price
		}
		return prices
	}
	add := func(prices map[string]pricing.Money, name string) pricing.Money {
		p, ok := prices[name]
		if !ok {
			q.Unresolved = append(q.Unresolved, name)
			return 0
		}
		return p
	}

	if item.Allows(menu.CapHot) && len(sel.HotToppings) > 0 {
		hot := lookup(menu.CapHot)
		for _, name := range sel.HotToppings {
			q.Hot += add(hot, name)
		}
	}
	if item.Allows(menu.CapCold) && len(sel.ColdToppings) > 0 {
		cold := lookup(menu.CapCold)
		for _, name := range sel.ColdToppings {
			q.Cold += add(cold, name)
		}
	}
	if item.Allows(menu.CapMeats) && sel.Meat != "" {
		q.Meat = add(lookup(menu.CapMeats), sel.Meat)
	}
	if item.Allows(menu.CapFries) && sel.AddFries {
		q.Fries = pricing.FriesSurcharge
	}
	if item.Allows(menu.CapDrink) && sel.AddDrink != "" {
		q.Drink = add(lookup(menu.CapDrink), sel.AddDrink)
	}

	q.Total = q.Base + q.Hot + q.Cold + q.Meat + q.Fries + q.Drink
	q.Display = pricing.Format(q.Total)
	return q
}
