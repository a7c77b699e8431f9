package menu

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when an item name is not in the catalog.
	ErrNotFound = errors.New("menu: item not found")
	// ErrInvalidCatalog wraps every authoring defect found while building a catalog.
	ErrInvalidCatalog = errors.New("menu: invalid catalog")
)

// Catalog is an immutable set of menu items plus the global option tables.
// It is safe for concurrent use.
type Catalog struct {
	items      []Item
	byName     map[string]int
	categories []string
	tables     Tables
}

// New validates items against tables and returns the catalog. Every allowed
// list-backed capability must resolve to a global table or an item override.
func New(items []Item, tables Tables) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]int, len(items)),
		tables: make(Tables, len(tables)),
	}
	var problems []string
	for k, list := range tables {
		if !k.Listed() {
			problems = append(problems, fmt.Sprintf("table %q is not a list capability", k))
			continue
		}
		problems = append(problems, checkToppings(string(k)+" table", list)...)
		c.tables[k] = append([]Topping(nil), list...)
	}

	seenCategory := map[string]bool{}
	for _, raw := range items {
		it := raw.clone()
		name := strings.TrimSpace(it.Name)
		if name == "" {
			problems = append(problems, "item with empty name")
			continue
		}
		if _, dup := c.byName[name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate item %q", name))
			continue
		}
		if it.BasePrice < 0 {
			problems = append(problems, fmt.Sprintf("item %q has negative base price", name))
		}
		if it.Variant == nil {
			it.Variant = Simple{}
		}
		for _, k := range it.Capabilities {
			if !k.Valid() {
				problems = append(problems, fmt.Sprintf("item %q allows unknown capability %q", name, k))
				continue
			}
			if k.Listed() && len(it.Overrides[k]) == 0 && len(c.tables[k]) == 0 {
				problems = append(problems, fmt.Sprintf("item %q allows %q but no option list resolves", name, k))
			}
		}
		for k, list := range it.Overrides {
			problems = append(problems, checkToppings(fmt.Sprintf("item %q %s override", name, k), list)...)
		}
		it.Name = name
		c.byName[name] = len(c.items)
		c.items = append(c.items, it)
		if !seenCategory[it.Category] {
			seenCategory[it.Category] = true
			c.categories = append(c.categories, it.Category)
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return c, nil
}

func checkToppings(where string, list []Topping) []string {
	var problems []string
	seen := map[string]bool{}
	for _, t := range list {
		switch {
		case strings.TrimSpace(t.Name) == "":
			problems = append(problems, where+": topping with empty name")
		case seen[t.Name]:
			problems = append(problems, fmt.Sprintf("%s: duplicate topping %q", where, t.Name))
		case t.Price < 0:
			problems = append(problems, fmt.Sprintf("%s: topping %q has negative price", where, t.Name))
		}
		seen[t.Name] = true
	}
	return problems
}

// Lookup returns the item with the exact name.
func (c *Catalog) Lookup(name string) (Item, error) {
	if c == nil {
		return Item{}, ErrNotFound
	}
	idx, ok := c.byName[strings.TrimSpace(name)]
	if !ok {
		return Item{}, ErrNotFound
	}
	return c.items[idx].clone(), nil
}

// Items returns every item in catalog order.
func (c *Catalog) Items() []Item {
	if c == nil {
		return nil
	}
	out := make([]Item, len(c.items))
	for i, it := range c.items {
		out[i] = it.clone()
	}
	return out
}

// ByCategory returns the items of one category in catalog order.
func (c *Catalog) ByCategory(category string) []Item {
	if c == nil {
		return nil
	}
	var out []Item
	for _, it := range c.items {
		if strings.EqualFold(it.Category, category) {
			out = append(out, it.clone())
		}
	}
	return out
}

// Categories lists categories in first-seen order.
func (c *Catalog) Categories() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.categories...)
}

// Len reports the number of items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Options resolves the priced option list for a capability of an item: the
// item override when present and non-empty, otherwise the global table.
// Capabilities the item does not allow resolve to nothing.
func (c *Catalog) Options(item Item, k Capability) []Topping {
	if c == nil || !k.Listed() || !item.Allows(k) {
		return nil
	}
	if override := item.Overrides[k]; len(override) > 0 {
		return append([]Topping(nil), override...)
	}
	return append([]Topping(nil), c.tables[k]...)
}

// Find resolves a single option by exact name.
func (c *Catalog) Find(item Item, k Capability, name string) (Topping, bool) {
	for _, t := range c.Options(item, k) {
		if t.Name == name {
			return t, true
		}
	}
	return Topping{}, false
}

// OptionSet returns the resolved lists for every listed capability the item
// allows, keyed by capability.
func (c *Catalog) OptionSet(item Item) map[Capability][]Topping {
	out := make(map[Capability][]Topping)
	for _, k := range item.Capabilities {
		if !k.Listed() {
			continue
		}
		out[k] = c.Options(item, k)
	}
	return out
}

// Summary counts items per category, sorted by category name.
type Summary struct {
	Category string
	Items    int
}

// Summaries reports item counts per category.
func (c *Catalog) Summaries() []Summary {
	counts := map[string]int{}
	for _, it := range c.items {
		counts[it.Category]++
	}
	out := make([]Summary, 0, len(counts))
	for cat, n := range counts {
		out = append(out, Summary{Category: cat, Items: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
