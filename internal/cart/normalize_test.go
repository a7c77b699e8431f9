package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zawadi/internal/cart"
	"github.com/noah-isme/backend-zawadi/internal/customize"
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

func testCatalog(t *testing.T) *menu.Catalog {
	t.Helper()
	tables := menu.Tables{
		menu.CapHot:    {{Name: "Chicken", Price: 0}, {Name: "Black Beans", Price: 0}},
		menu.CapCold:   {{Name: "Guacamole", Price: 175}, {Name: "Lettuce", Price: 0}},
		menu.CapSauces: {{Name: "Ranch"}},
		menu.CapMeats:  {{Name: "Brisket", Price: 300}},
		menu.CapDrink:  {{Name: "Mango Juice", Price: 395}},
	}
	items := []menu.Item{
		{Name: "Chicken Bowl", Category: "bowls", BasePrice: 1200, Image: "bowl.jpg", Variant: menu.Bowl{DefaultProtein: "Chicken"}, Capabilities: []menu.Capability{menu.CapHot, menu.CapCold, menu.CapSauces, menu.CapFries, menu.CapDrink}},
		{Name: "Chicken Quesadilla", Category: "favorites", BasePrice: 1100, Variant: menu.Quesadilla{BaseProtein: "Chicken"}, Capabilities: []menu.Capability{menu.CapHot, menu.CapCold}},
		{Name: "Loaded Fries", Category: "sides", BasePrice: 600, Variant: menu.LoadedFries{}, Capabilities: []menu.Capability{menu.CapMeats, menu.CapSauces}},
		{Name: "Juice", Category: "beverages", BasePrice: 300, Variant: menu.Drink{}, Capabilities: []menu.Capability{menu.CapIce}},
		{Name: "Sambusa", Category: "favorites", BasePrice: 255, Description: "Crispy"},
	}
	cat, err := menu.New(items, tables)
	require.NoError(t, err)
	return cat
}

func session(t *testing.T, cat *menu.Catalog, name string) *customize.Session {
	t.Helper()
	it, err := cat.Lookup(name)
	require.NoError(t, err)
	return customize.Open("s", cat, it)
}

func TestFinalizeFreezesSelectionAndTotal(t *testing.T) {
	cat := testCatalog(t)
	s := session(t, cat, "Chicken Bowl")
	require.NoError(t, s.ToggleCold("Guacamole"))

	ci, err := cart.Finalize(s)
	require.NoError(t, err)
	require.Equal(t, pricing.Money(1375), ci.TotalPrice)
	require.Equal(t, "Chicken Bowl", ci.Item.Name)
	require.Equal(t, menu.KindBowl, ci.Item.Kind)

	// the session is terminal and its later state cannot leak into ci
	require.ErrorIs(t, s.ToggleCold("Lettuce"), customize.ErrSessionClosed)
	_, err = cart.Finalize(s)
	require.ErrorIs(t, err, customize.ErrSessionClosed)
	require.Equal(t, []string{"Guacamole"}, ci.Selection.ColdToppings)
}

func TestFromCustomizedBuildsIndependentLine(t *testing.T) {
	cat := testCatalog(t)
	s := session(t, cat, "Chicken Quesadilla")
	require.NoError(t, s.ToggleCold("Lettuce"))
	ci, err := cart.Finalize(s)
	require.NoError(t, err)

	line := cart.FromCustomized("l1", ci)
	require.Equal(t, 1, line.Quantity)
	require.Equal(t, pricing.Money(1100+175), line.Price)
	require.Equal(t, "Hot: Chicken (Double) | Cold: Guacamole, Lettuce", line.Description)

	ci.Selection.ColdToppings[0] = "Changed"
	require.Equal(t, "Guacamole", line.Customized.Selection.ColdToppings[0])
}

func TestDescribeGatesOnCapabilities(t *testing.T) {
	ci := cart.CustomizedItem{
		Item: cart.ItemSnapshot{Name: "Bowl", Capabilities: []menu.Capability{menu.CapHot, menu.CapSauces, menu.CapFries, menu.CapDrink}},
		Selection: customize.Selection{
			HotToppings: []string{"Chicken", "Beans", "Chicken", "Beans", "Beans"},
			Sauces:      []string{"Ranch", "Mayo"},
			Meat:        "Brisket",
			AddFries:    true,
			AddDrink:    "Mango Juice",
			IceOption:   menu.NoIce,
		},
	}
	require.Equal(t, "Hot: Chicken (Double), Beans (x3) | Sauce: Ranch, Mayo | Fries | Drink: Mango Juice", cart.Describe(ci))

	drink := cart.CustomizedItem{
		Item:      cart.ItemSnapshot{Name: "Juice", Capabilities: []menu.Capability{menu.CapIce}},
		Selection: customize.Selection{IceOption: menu.NoIce},
	}
	require.Equal(t, []string{"No Ice"}, cart.Modifiers(drink))

	// without cold the included guacamole is neither priced nor listed
	quesadilla := cart.CustomizedItem{
		Item: cart.ItemSnapshot{Name: "Quesadilla", Kind: menu.KindQuesadilla, Capabilities: []menu.Capability{menu.CapHot}},
		Selection: customize.Selection{
			HotToppings:  []string{"Chicken", "Chicken"},
			ColdToppings: []string{"Guacamole"},
			Sauces:       []string{"Ranch"},
		},
	}
	require.Equal(t, "Hot: Chicken (Double)", cart.Describe(quesadilla))
}

func TestAddLineMergesPlainItemsByName(t *testing.T) {
	cat := testCatalog(t)
	sambusa, err := cat.Lookup("Sambusa")
	require.NoError(t, err)

	lines, merged := cart.AddLine(nil, cart.LineFromItem("a", sambusa))
	require.False(t, merged)
	lines, merged = cart.AddLine(lines, cart.LineFromItem("b", sambusa))
	require.True(t, merged)
	require.Len(t, lines, 1)
	require.Equal(t, 2, lines[0].Quantity)
	require.Equal(t, "a", lines[0].ID)
	require.Equal(t, pricing.Money(255), lines[0].Price)

	// customized lines never merge even when the names match
	s := session(t, cat, "Chicken Bowl")
	ci, err := cart.Finalize(s)
	require.NoError(t, err)
	lines, _ = cart.AddLine(lines, cart.FromCustomized("c", ci))
	lines, merged = cart.AddLine(lines, cart.FromCustomized("d", ci))
	require.False(t, merged)
	require.Len(t, lines, 3)
}
