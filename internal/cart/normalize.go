package cart

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-zawadi/internal/customize"
	"github.com/noah-isme/backend-zawadi/internal/menu"
)

// Snapshot copies the display and ordering fields of item.
func Snapshot(item menu.Item) ItemSnapshot {
	return ItemSnapshot{
		Name:         item.Name,
		Description:  item.Description,
		Category:     item.Category,
		Image:        item.Image,
		Kind:         item.Kind(),
		BasePrice:    item.BasePrice,
		Capabilities: append([]menu.Capability(nil), item.Capabilities...),
	}
}

// Finalize freezes the session and returns its CustomizedItem. The session
// is Finalized afterwards, so this succeeds at most once per session.
func Finalize(s *customize.Session) (CustomizedItem, error) {
	snap, err := s.Freeze()
	if err != nil {
		return CustomizedItem{}, err
	}
	return CustomizedItem{
		Item:       Snapshot(snap.Item),
		Selection:  snap.Selection,
		TotalPrice: snap.Total,
	}, nil
}

// FromCustomized turns a finalized customization into a single cart line.
// Customized lines are never merged.
func FromCustomized(id string, ci CustomizedItem) LineItem {
	frozen := ci
	frozen.Selection = ci.Selection.Clone()
	frozen.Item.Capabilities = append([]menu.Capability(nil), ci.Item.Capabilities...)
	return LineItem{
		ID:          id,
		Name:        ci.Item.Name,
		Description: Describe(ci),
		Price:       ci.TotalPrice,
		Quantity:    1,
		Image:       ci.Item.Image,
		Customized:  &frozen,
	}
}

// LineFromItem builds a quantity one line for an item added as is.
func LineFromItem(id string, item menu.Item) LineItem {
	return LineItem{
		ID:          id,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.BasePrice,
		Quantity:    1,
		Image:       item.Image,
	}
}

// AddLine appends line, or increments the quantity of an existing plain
// line with the same name. The returned bool reports whether it merged.
func AddLine(lines []LineItem, line LineItem) ([]LineItem, bool) {
	if line.Customized == nil {
		for i := range lines {
			if lines[i].Customized == nil && lines[i].Name == line.Name {
				lines[i].Quantity += max(line.Quantity, 1)
				return lines, true
			}
		}
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	return append(lines, line), false
}

// Modifiers lists the customization as short labels for kitchen and POS
// output, e.g. "Hot: Grilled Chicken (Double)" or "Fries".
func Modifiers(ci CustomizedItem) []string {
	sel := ci.Selection
	var out []string
	if hot := groupHot(sel.HotToppings); len(hot) > 0 && ci.Item.Allows(menu.CapHot) {
		out = append(out, "Hot: "+strings.Join(hot, ", "))
	}
	if len(sel.ColdToppings) > 0 && ci.Item.Allows(menu.CapCold) {
		out = append(out, "Cold: "+strings.Join(sel.ColdToppings, ", "))
	}
	if len(sel.Sauces) > 0 && ci.Item.Allows(menu.CapSauces) {
		out = append(out, "Sauce: "+strings.Join(sel.Sauces, ", "))
	}
	if sel.Meat != "" && ci.Item.Allows(menu.CapMeats) {
		out = append(out, "Meat: "+sel.Meat)
	}
	if sel.AddFries && ci.Item.Allows(menu.CapFries) {
		out = append(out, "Fries")
	}
	if sel.AddDrink != "" && ci.Item.Allows(menu.CapDrink) {
		out = append(out, "Drink: "+sel.AddDrink)
	}
	if sel.Flavor != "" && ci.Item.Allows(menu.CapFountainDrinks) {
		out = append(out, "Flavor: "+sel.Flavor)
	}
	if ci.Item.Allows(menu.CapIce) && sel.IceOption.Valid() {
		out = append(out, string(sel.IceOption))
	}
	return out
}

// Describe joins Modifiers into the line description.
func Describe(ci CustomizedItem) string {
	return strings.Join(Modifiers(ci), " | ")
}

// groupHot collapses repeated hot toppings, keeping first-seen order.
func groupHot(names []string) []string {
	counts := map[string]int{}
	var order []string
	for _, n := range names {
		if counts[n] == 0 {
			order = append(order, n)
		}
		counts[n]++
	}
	out := make([]string, 0, len(order))
	for _, n := range order {
		switch c := counts[n]; {
		case c == 2:
			out = append(out, n+" (Double)")
		case c > 2:
			out = append(out, fmt.Sprintf("%s (x%d)", n, c))
		default:
			out = append(out, n)
		}
	}
	return out
}
