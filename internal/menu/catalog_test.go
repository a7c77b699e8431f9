package menu_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zawadi/internal/menu"
)

func testTables() menu.Tables {
	return menu.Tables{
		menu.CapHot:    {{Name: "Chicken", Price: 0}, {Name: "Black Beans", Price: 0}},
		menu.CapCold:   {{Name: "Guacamole", Price: 175}, {Name: "Lettuce", Price: 0}},
		menu.CapSauces: {{Name: "Ranch"}},
	}
}

func TestOptionsPrefersNonEmptyOverride(t *testing.T) {
	override := []menu.Topping{{Name: "Guacamole", Price: 0}, {Name: "Sour Cream", Price: 150}}
	items := []menu.Item{
		{Name: "Quesadilla", Category: "favorites", BasePrice: 1100, Variant: menu.Quesadilla{}, Capabilities: []menu.Capability{menu.CapCold, menu.CapHot}, Overrides: map[menu.Capability][]menu.Topping{menu.CapCold: override, menu.CapHot: {}}},
		{Name: "Bowl", Category: "bowls", BasePrice: 1200, Variant: menu.Bowl{}, Capabilities: []menu.Capability{menu.CapCold}},
	}
	cat, err := menu.New(items, testTables())
	require.NoError(t, err)

	q, err := cat.Lookup("Quesadilla")
	require.NoError(t, err)
	require.Equal(t, override, cat.Options(q, menu.CapCold))
	// empty override falls back to the global table
	require.Len(t, cat.Options(q, menu.CapHot), 2)

	b, err := cat.Lookup("Bowl")
	require.NoError(t, err)
	require.Equal(t, testTables()[menu.CapCold], cat.Options(b, menu.CapCold))
}

func TestOptionsEmptyForCapabilityNotAllowed(t *testing.T) {
	cat, err := menu.New([]menu.Item{{Name: "Sambusa", Category: "favorites", BasePrice: 255}}, testTables())
	require.NoError(t, err)
	it, err := cat.Lookup("Sambusa")
	require.NoError(t, err)
	for _, c := range menu.Capabilities {
		require.Empty(t, cat.Options(it, c), c)
	}
	_, ok := cat.Find(it, menu.CapHot, "Chicken")
	require.False(t, ok)
	require.Equal(t, menu.KindSimple, it.Kind())
	require.False(t, it.Customizable())
}

func TestOptionsReturnsCopy(t *testing.T) {
	cat, err := menu.New([]menu.Item{{Name: "Bowl", Category: "bowls", Capabilities: []menu.Capability{menu.CapHot}}}, testTables())
	require.NoError(t, err)
	it, _ := cat.Lookup("Bowl")
	opts := cat.Options(it, menu.CapHot)
	opts[0].Price = 999
	again := cat.Options(it, menu.CapHot)
	require.Equal(t, int64(0), again[0].Price)
}

func TestNewRejectsAuthoringDefects(t *testing.T) {
	cases := map[string][]menu.Item{
		"duplicate":    {{Name: "A", Category: "x"}, {Name: "A", Category: "x"}},
		"negative":     {{Name: "A", Category: "x", BasePrice: -1}},
		"unresolvable": {{Name: "A", Category: "x", Capabilities: []menu.Capability{menu.CapMeats}}},
		"unknown":      {{Name: "A", Category: "x", Capabilities: []menu.Capability{"extra"}}},
		"empty":        {{Name: " ", Category: "x"}},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := menu.New(items, testTables())
			require.Error(t, err)
			require.True(t, errors.Is(err, menu.ErrInvalidCatalog))
		})
	}
}

func TestFriesAndIceNeedNoTable(t *testing.T) {
	_, err := menu.New([]menu.Item{{Name: "Drink", Category: "bev", Variant: menu.Drink{}, Capabilities: []menu.Capability{menu.CapIce, menu.CapFries}}}, nil)
	require.NoError(t, err)
}

func TestLookupAndCategories(t *testing.T) {
	items := []menu.Item{
		{Name: "Veggie Bowl", Category: "build-a-bowl"},
		{Name: "Lentil Soup", Category: "sides"},
		{Name: "Steak Bowl", Category: "build-a-bowl"},
	}
	cat, err := menu.New(items, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"build-a-bowl", "sides"}, cat.Categories())
	require.Len(t, cat.ByCategory("BUILD-A-BOWL"), 2)
	require.Equal(t, 3, cat.Len())

	_, err = cat.Lookup("Pizza")
	require.ErrorIs(t, err, menu.ErrNotFound)

	summaries := cat.Summaries()
	require.Equal(t, []menu.Summary{{Category: "build-a-bowl", Items: 2}, {Category: "sides", Items: 1}}, summaries)
}

func TestParseKind(t *testing.T) {
	cases := map[string]menu.Kind{
		"bowl":           menu.KindBowl,
		"Signature Bowl": menu.KindBowl,
		"quesadilla":     menu.KindQuesadilla,
		"drink":          menu.KindDrink,
		"fountain-drink": menu.KindFountainDrink,
		"loaded-fries":   menu.KindLoadedFries,
		"sambusa":        menu.KindSimple,
		"simple-item":    menu.KindSimple,
		"":               menu.KindSimple,
	}
	for in, want := range cases {
		require.Equal(t, want, menu.ParseKind(in), in)
	}
}

func TestDecodeCatalogDocument(t *testing.T) {
	doc := `{
	  "tables": {
	    "hot": [{"name": "Grilled Chicken", "price": "0.00", "role": "protein"}],
	    "cold": [{"name": "Guacamole", "price": 1.75}],
	    "drinks": [{"name": "Mango Juice", "price": "3.95"}]
	  },
	  "items": [
	    {"name": "Chicken Quesadilla", "category": "favorites", "basePrice": "12.25", "type": "quesadilla",
	     "baseProtein": "chicken", "capabilities": ["hot", "cold", "drink"],
	     "customToppings": {"cold": [{"name": "Guacamole", "price": "0"}]}},
	    {"name": "Chicken Bowl", "category": "build-a-bowl", "basePrice": 13, "type": "bowl",
	     "defaultProtein": "Grilled Chicken", "capabilities": ["hot"], "maxSauces": 3}
	  ]
	}`
	cat, err := menu.Decode(strings.NewReader(doc), menu.Defaults{LockInclusions: true, MaxSauces: 2})
	require.NoError(t, err)

	q, err := cat.Lookup("Chicken Quesadilla")
	require.NoError(t, err)
	require.Equal(t, int64(1225), q.BasePrice)
	require.Equal(t, menu.Quesadilla{BaseProtein: "chicken", LockInclusions: true}, q.Variant)
	require.Equal(t, 2, q.MaxSauces)
	guac, ok := cat.Find(q, menu.CapCold, "Guacamole")
	require.True(t, ok)
	require.Equal(t, int64(0), guac.Price)
	drink, ok := cat.Find(q, menu.CapDrink, "Mango Juice")
	require.True(t, ok)
	require.Equal(t, int64(395), drink.Price)

	b, err := cat.Lookup("Chicken Bowl")
	require.NoError(t, err)
	require.Equal(t, int64(1300), b.BasePrice)
	require.Equal(t, menu.Bowl{DefaultProtein: "Grilled Chicken"}, b.Variant)
	require.Equal(t, 3, b.MaxSauces)
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"unknown capability": `{"items":[{"name":"A","category":"x","basePrice":"1.00","capabilities":["napkins"]}]}`,
		"missing name":       `{"items":[{"category":"x","basePrice":"1.00"}]}`,
		"bad price":          `{"items":[{"name":"A","category":"x","basePrice":"1.001"}]}`,
		"unknown table":      `{"tables":{"salads":[]},"items":[{"name":"A","category":"x","basePrice":"1"}]}`,
		"unknown field":      `{"items":[{"name":"A","category":"x","basePrice":"1","colour":"red"}]}`,
		"no items":           `{"items":[]}`,
		"no list":            `{"items":[{"name":"A","category":"x","basePrice":"1","capabilities":["hot"]}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := menu.Decode(strings.NewReader(doc), menu.Defaults{})
			require.ErrorIs(t, err, menu.ErrInvalidCatalog)
		})
	}
}

func TestShippedCatalogLoads(t *testing.T) {
	cat, err := menu.LoadFile("../../configs/menu.json", menu.Defaults{MaxSauces: 2})
	require.NoError(t, err)
	require.Greater(t, cat.Len(), 10)

	q, err := cat.Lookup("Grilled Quesadilla - Steak")
	require.NoError(t, err)
	require.Equal(t, menu.KindQuesadilla, q.Kind())
	require.True(t, q.Variant.(menu.Quesadilla).LockInclusions)
}
