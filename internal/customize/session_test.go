package customize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zawadi/internal/customize"
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

func fixtureCatalog(t *testing.T) *menu.Catalog {
	t.Helper()
	tables := menu.Tables{
		menu.CapHot: {
			{Name: "Chicken", Price: 0, Role: "protein"},
			{Name: "Beef", Price: 0, Role: "protein"},
			{Name: "Black Beans", Price: 0},
		},
		menu.CapCold: {
			{Name: "Lettuce", Price: 0},
			{Name: "Guacamole", Price: 175},
			{Name: "Pineapple", Price: 100},
		},
		menu.CapSauces:         {{Name: "Ranch"}, {Name: "Chipotle"}, {Name: "Mayo"}},
		menu.CapMeats:          {{Name: "Brisket", Price: 300}, {Name: "Chicken", Price: 250}},
		menu.CapDrink:          {{Name: "Mango Juice", Price: 395}},
		menu.CapFountainDrinks: {{Name: "Coke"}, {Name: "Sprite"}},
	}
	quesadillaCold := []menu.Topping{
		{Name: "Guacamole", Price: 0},
		{Name: "Jalapeños", Price: 50},
		{Name: "Sour Cream", Price: 150},
	}
	all := []menu.Capability{menu.CapHot, menu.CapCold, menu.CapSauces, menu.CapFries, menu.CapDrink}
	items := []menu.Item{
		{Name: "Chicken Bowl", Category: "bowls", BasePrice: 1200, Variant: menu.Bowl{DefaultProtein: "Chicken"}, Capabilities: all},
		{Name: "Beef Bowl", Category: "bowls", BasePrice: 1400, Variant: menu.Bowl{DefaultProtein: "Beef"}, Capabilities: all, MaxSauces: 2},
		{Name: "Mystery Bowl", Category: "bowls", BasePrice: 1000, Variant: menu.Bowl{DefaultProtein: "Tofu"}, Capabilities: all},
		{Name: "Chicken Quesadilla", Category: "favorites", BasePrice: 1100, Variant: menu.Quesadilla{BaseProtein: "chicken"}, Capabilities: all, Overrides: map[menu.Capability][]menu.Topping{menu.CapCold: quesadillaCold}},
		{Name: "Beef Quesadilla", Category: "favorites", BasePrice: 1300, Variant: menu.Quesadilla{BaseProtein: "Beef", LockInclusions: true}, Capabilities: all, Overrides: map[menu.Capability][]menu.Topping{menu.CapCold: quesadillaCold}},
		{Name: "Cheese Quesadilla", Category: "favorites", BasePrice: 1100, Variant: menu.Quesadilla{}, Capabilities: []menu.Capability{menu.CapSauces}},
		{Name: "Loaded Fries", Category: "sides", BasePrice: 600, Variant: menu.LoadedFries{}, Capabilities: []menu.Capability{menu.CapMeats, menu.CapSauces}},
		{Name: "Juice", Category: "beverages", BasePrice: 300, Variant: menu.Drink{}, Capabilities: []menu.Capability{menu.CapIce}},
		{Name: "Fountain", Category: "beverages", BasePrice: 225, Variant: menu.FountainDrink{}, Capabilities: []menu.Capability{menu.CapFountainDrinks, menu.CapIce}},
		{Name: "Sambusa", Category: "favorites", BasePrice: 255},
		{Name: "Steak Bowl", Category: "bowls", BasePrice: 1500, Variant: menu.Bowl{DefaultProtein: "Steak"}, Capabilities: all, Overrides: map[menu.Capability][]menu.Topping{menu.CapHot: {{Name: "Steak", Price: 350, Role: "protein"}, {Name: "Rice", Price: 0}}}},
	}
	cat, err := menu.New(items, tables)
	require.NoError(t, err)
	return cat
}

func open(t *testing.T, cat *menu.Catalog, name string) *customize.Session {
	t.Helper()
	it, err := cat.Lookup(name)
	require.NoError(t, err)
	return customize.Open("s1", cat, it)
}

func TestScenarioPlainBowl(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Bowl")
	require.Equal(t, []string{"Chicken"}, s.Selection().HotToppings)
	require.Equal(t, pricing.Money(1200), s.Total())
	require.Equal(t, "12.00", s.Quote().Display)
}

func TestScenarioLoadedFriesWithMeat(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Loaded Fries")
	require.NoError(t, s.SetMeat("Brisket"))
	require.Equal(t, pricing.Money(900), s.Total())

	// replacing the meat never stacks
	require.NoError(t, s.SetMeat("Chicken"))
	require.Equal(t, pricing.Money(850), s.Total())
	require.NoError(t, s.SetMeat(""))
	require.Equal(t, pricing.Money(600), s.Total())
}

func TestScenarioQuesadillaGuacAndExtra(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Quesadilla")
	require.Equal(t, []string{"Chicken", "Chicken"}, s.Selection().HotToppings)
	require.Equal(t, []string{"Guacamole"}, s.Selection().ColdToppings)

	require.NoError(t, s.ToggleCold("Sour Cream"))
	require.Equal(t, pricing.Money(1250), s.Total())
}

func TestScenarioDrinkIceNeverPriced(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Juice")
	require.Equal(t, menu.WithIce, s.Selection().IceOption)
	require.NoError(t, s.SetIceOption(menu.NoIce))
	require.Equal(t, menu.NoIce, s.Selection().IceOption)
	require.Equal(t, pricing.Money(300), s.Total())

	require.ErrorIs(t, s.SetIceOption("Extra Ice"), customize.ErrUnknownOption)
}

func TestInitBowlDefaultProteinOnce(t *testing.T) {
	cat := fixtureCatalog(t)
	s := open(t, cat, "Beef Bowl")
	require.Equal(t, []string{"Beef"}, s.Selection().HotToppings)
	require.Empty(t, s.Selection().ColdToppings)

	// unresolvable default protein is skipped
	s = open(t, cat, "Mystery Bowl")
	require.Empty(t, s.Selection().HotToppings)
	require.Equal(t, customize.Initialized, s.State())
}

func TestInitQuesadillaWithoutProtein(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Cheese Quesadilla")
	require.Empty(t, s.Selection().HotToppings)
	require.Equal(t, []string{"Guacamole"}, s.Selection().ColdToppings)
	// guacamole is carried but the item has no cold capability so it is free
	require.Equal(t, pricing.Money(1100), s.Total())
}

func TestHotToppingsAreAMultiset(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Bowl")
	require.NoError(t, s.AddHot("Chicken"))
	require.NoError(t, s.AddHot("Black Beans"))
	require.Equal(t, 2, s.Selection().HotCount("Chicken"))

	require.NoError(t, s.RemoveHot("Chicken"))
	require.Equal(t, 1, s.Selection().HotCount("Chicken"))

	require.NoError(t, s.SetHotQuantity("Black Beans", 3))
	require.Equal(t, 3, s.Selection().HotCount("Black Beans"))
	require.NoError(t, s.SetHotQuantity("Black Beans", 0))
	require.Zero(t, s.Selection().HotCount("Black Beans"))
	require.ErrorIs(t, s.SetHotQuantity("Black Beans", -1), customize.ErrInvalidQuantity)

	require.NoError(t, s.ToggleHot("Chicken"))
	require.Zero(t, s.Selection().HotCount("Chicken"))
	require.NoError(t, s.ToggleHot("Chicken"))
	require.Equal(t, 1, s.Selection().HotCount("Chicken"))
}

func TestPricedHotToppingCountsEveryOccurrence(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Steak Bowl")
	require.Equal(t, pricing.Money(1850), s.Total())

	require.NoError(t, s.AddHot("Steak"))
	q := s.Quote()
	require.Equal(t, pricing.Money(700), q.Hot)
	require.Equal(t, pricing.Money(2200), q.Total)
	require.Equal(t, "22.00", q.Display)

	require.NoError(t, s.SetHotQuantity("Steak", 3))
	require.Equal(t, pricing.Money(2550), s.Total())
	require.NoError(t, s.RemoveHot("Steak"))
	require.Equal(t, pricing.Money(2200), s.Total())
}

func TestHotPortionsAreCapped(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Bowl")
	require.NoError(t, s.SetHotQuantity("Black Beans", customize.MaxHotPortions))
	require.ErrorIs(t, s.AddHot("Black Beans"), customize.ErrLimitReached)
	require.Equal(t, customize.MaxHotPortions, s.Selection().HotCount("Black Beans"))
	require.ErrorIs(t, s.SetHotQuantity("Black Beans", customize.MaxHotPortions+1), customize.ErrLimitReached)

	// other toppings keep their own budget
	require.NoError(t, s.AddHot("Chicken"))
	require.NoError(t, s.RemoveHot("Black Beans"))
	require.NoError(t, s.AddHot("Black Beans"))
}

func TestColdAndSaucesAreSets(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Bowl")
	require.NoError(t, s.ToggleCold("Guacamole"))
	require.NoError(t, s.ToggleCold("Pineapple"))
	require.Equal(t, pricing.Money(1200+175+100), s.Total())
	require.NoError(t, s.ToggleCold("Guacamole"))
	require.Equal(t, []string{"Pineapple"}, s.Selection().ColdToppings)

	require.NoError(t, s.ToggleSauce("Ranch"))
	require.NoError(t, s.ToggleSauce("Chipotle"))
	require.NoError(t, s.ToggleSauce("Ranch"))
	require.Equal(t, []string{"Chipotle"}, s.Selection().Sauces)
	// sauces are free
	require.Equal(t, pricing.Money(1300), s.Total())
}

func TestSauceLimit(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Beef Bowl")
	require.NoError(t, s.ToggleSauce("Ranch"))
	require.NoError(t, s.ToggleSauce("Chipotle"))
	require.ErrorIs(t, s.ToggleSauce("Mayo"), customize.ErrLimitReached)
	require.Len(t, s.Selection().Sauces, 2)
	// removing is always allowed
	require.NoError(t, s.ToggleSauce("Ranch"))
	require.NoError(t, s.ToggleSauce("Mayo"))
}

func TestFriesAndDrinkAddOns(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Bowl")
	require.NoError(t, s.SetAddFries(true))
	require.NoError(t, s.SetAddDrink("Mango Juice"))
	q := s.Quote()
	require.Equal(t, pricing.FriesSurcharge, q.Fries)
	require.Equal(t, pricing.Money(395), q.Drink)
	require.Equal(t, pricing.Money(1200+600+395), q.Total)

	require.NoError(t, s.SetAddFries(false))
	require.NoError(t, s.SetAddDrink(""))
	require.Equal(t, pricing.Money(1200), s.Total())
}

func TestFountainFlavorIsUnpriced(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Fountain")
	require.NoError(t, s.SetFlavor("Sprite"))
	require.Equal(t, "Sprite", s.Selection().Flavor)
	require.Equal(t, pricing.Money(225), s.Total())
	require.ErrorIs(t, s.SetFlavor("Root Beer"), customize.ErrUnknownOption)
}

func TestCapabilityGating(t *testing.T) {
	cat := fixtureCatalog(t)
	s := open(t, cat, "Sambusa")
	before := s.Selection()
	require.ErrorIs(t, s.ToggleHot("Chicken"), customize.ErrCapabilityNotAllowed)
	require.ErrorIs(t, s.ToggleCold("Lettuce"), customize.ErrCapabilityNotAllowed)
	require.ErrorIs(t, s.ToggleSauce("Ranch"), customize.ErrCapabilityNotAllowed)
	require.ErrorIs(t, s.SetMeat("Brisket"), customize.ErrCapabilityNotAllowed)
	require.ErrorIs(t, s.SetAddFries(true), customize.ErrCapabilityNotAllowed)
	require.ErrorIs(t, s.SetAddDrink("Mango Juice"), customize.ErrCapabilityNotAllowed)
	require.ErrorIs(t, s.SetFlavor("Coke"), customize.ErrCapabilityNotAllowed)
	require.ErrorIs(t, s.SetIceOption(menu.NoIce), customize.ErrCapabilityNotAllowed)
	require.Equal(t, before, s.Selection())
	require.Equal(t, pricing.Money(255), s.Total())
}

func TestUnknownOptionRejected(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Quesadilla")
	// Pineapple exists globally but the quesadilla override replaces the table
	require.ErrorIs(t, s.ToggleCold("Pineapple"), customize.ErrUnknownOption)
	require.ErrorIs(t, s.AddHot("Tofu"), customize.ErrUnknownOption)
	require.Equal(t, []string{"Guacamole"}, s.Selection().ColdToppings)
}

func TestUnlockedInclusionsCanBeRemoved(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Quesadilla")
	require.NoError(t, s.ToggleCold("Guacamole"))
	require.Empty(t, s.Selection().ColdToppings)
	require.NoError(t, s.RemoveHot("Chicken"))
	require.NoError(t, s.RemoveHot("Chicken"))
	require.Empty(t, s.Selection().HotToppings)
}

func TestLockedInclusions(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Beef Quesadilla")
	require.True(t, s.Locked(menu.CapHot, "Beef"))
	require.True(t, s.Locked(menu.CapCold, "Guacamole"))

	require.ErrorIs(t, s.ToggleCold("Guacamole"), customize.ErrLocked)
	require.ErrorIs(t, s.RemoveHot("Beef"), customize.ErrLocked)
	require.ErrorIs(t, s.ToggleHot("Beef"), customize.ErrLocked)
	require.ErrorIs(t, s.SetHotQuantity("Beef", 1), customize.ErrLocked)

	// extra portions above the included two can come and go
	require.NoError(t, s.AddHot("Beef"))
	require.NoError(t, s.RemoveHot("Beef"))
	require.Equal(t, 2, s.Selection().HotCount("Beef"))
	require.Equal(t, []string{"Guacamole"}, s.Selection().ColdToppings)
}

func TestResetReappliesDefaults(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Quesadilla")
	require.NoError(t, s.ToggleCold("Guacamole"))
	require.NoError(t, s.ToggleSauce("Ranch"))
	require.NoError(t, s.Init())
	sel := s.Selection()
	require.Equal(t, []string{"Chicken", "Chicken"}, sel.HotToppings)
	require.Equal(t, []string{"Guacamole"}, sel.ColdToppings)
	require.Empty(t, sel.Sauces)
}

func TestFreezeProducesIndependentSnapshot(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Bowl")
	require.NoError(t, s.ToggleCold("Guacamole"))
	snap, err := s.Freeze()
	require.NoError(t, err)
	require.Equal(t, pricing.Money(1375), snap.Total)
	require.Equal(t, customize.Finalized, s.State())

	snap.Selection.ColdToppings[0] = "Changed"
	require.Equal(t, []string{"Guacamole"}, s.Selection().ColdToppings)

	require.ErrorIs(t, s.ToggleCold("Lettuce"), customize.ErrSessionClosed)
	_, err = s.Freeze()
	require.ErrorIs(t, err, customize.ErrSessionClosed)
	require.ErrorIs(t, s.Discard(), customize.ErrSessionClosed)
}

func TestUninitializedAndDiscardedSessions(t *testing.T) {
	cat := fixtureCatalog(t)
	it, err := cat.Lookup("Chicken Bowl")
	require.NoError(t, err)

	s := customize.NewSession("s2", cat, it)
	require.Equal(t, customize.Uninitialized, s.State())
	require.ErrorIs(t, s.AddHot("Chicken"), customize.ErrNotInitialized)
	_, err = s.Freeze()
	require.ErrorIs(t, err, customize.ErrNotInitialized)

	require.NoError(t, s.Init())
	require.NoError(t, s.Discard())
	require.Equal(t, customize.Discarded, s.State())
	require.ErrorIs(t, s.AddHot("Chicken"), customize.ErrSessionClosed)
	require.ErrorIs(t, s.Init(), customize.ErrSessionClosed)
}

func TestPriceIsPureAndTolerant(t *testing.T) {
	cat := fixtureCatalog(t)
	it, err := cat.Lookup("Chicken Bowl")
	require.NoError(t, err)
	sel := customize.Selection{
		HotToppings:  []string{"Chicken", "Ghost Pepper"},
		ColdToppings: []string{"Guacamole"},
		Meat:         "Brisket",
		AddFries:     true,
	}
	first := customize.QuoteFor(cat, it, sel)
	second := customize.QuoteFor(cat, it, sel)
	require.Equal(t, first, second)
	require.Equal(t, []string{"Ghost Pepper"}, first.Unresolved)
	// meats are not allowed on bowls so Brisket contributes nothing
	require.Zero(t, first.Meat)
	require.Equal(t, pricing.Money(1200+175+600), first.Total)
	require.Equal(t, first.Total, customize.Price(cat, it, sel))
}

func TestActionDispatch(t *testing.T) {
	s := open(t, fixtureCatalog(t), "Chicken Bowl")
	qty := 2
	yes := true
	for _, a := range []customize.Action{
		{Type: "set_hot_quantity", Name: "Black Beans", Quantity: &qty},
		{Type: "toggle_cold", Name: " Lettuce "},
		{Type: "set_fries", Value: &yes},
		{Type: "toggle_sauce", Name: "Ranch"},
	} {
		require.NoError(t, a.Apply(s), a.Type)
	}
	sel := s.Selection()
	require.Equal(t, 2, sel.HotCount("Black Beans"))
	require.Equal(t, []string{"Lettuce"}, sel.ColdToppings)
	require.True(t, sel.AddFries)

	require.ErrorIs(t, customize.Action{Type: "set_hot_quantity", Name: "Chicken"}.Apply(s), customize.ErrInvalidQuantity)
	require.ErrorIs(t, customize.Action{Type: "explode"}.Apply(s), customize.ErrUnknownOption)
}
