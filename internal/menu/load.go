package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

// Defaults fill in per-item policy the catalog file leaves unset.
type Defaults struct {
	LockInclusions bool
	MaxSauces      int
}

// Amount accepts a JSON string ("12.50") or number (12.5) and keeps it exact.
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

type toppingRecord struct {
	Name  string `json:"name" validate:"required"`
	Price Amount `json:"price"`
	Image string `json:"image"`
	Role  string `json:"role"`
}

type itemRecord struct {
	Name           string                     `json:"name" validate:"required"`
	Description    string                     `json:"description"`
	Category       string                     `json:"category" validate:"required"`
	BasePrice      Amount                     `json:"basePrice" validate:"required"`
	Image          string                     `json:"image"`
	Type           string                     `json:"type"`
	Capabilities   []string                   `json:"capabilities" validate:"dive,oneof=hot cold sauces meats drink fountainDrinks fries ice"`
	DefaultProtein string                     `json:"defaultProtein"`
	BaseProtein    string                     `json:"baseProtein"`
	LockInclusions *bool                      `json:"lockInclusions"`
	MaxSauces      *int                       `json:"maxSauces" validate:"omitempty,gte=0"`
	CustomToppings map[string][]toppingRecord `json:"customToppings" validate:"dive,dive"`
}

type document struct {
	Tables map[string][]toppingRecord `json:"tables" validate:"dive,dive"`
	Items  []itemRecord               `json:"items" validate:"required,min=1,dive"`
}

// tableKeys maps file table names to capabilities.
var tableKeys = map[string]Capability{
	"hot":            CapHot,
	"cold":           CapCold,
	"sauces":         CapSauces,
	"meats":          CapMeats,
	"drinks":         CapDrink,
	"drink":          CapDrink,
	"fountainDrinks": CapFountainDrinks,
}

// LoadFile reads and validates a catalog JSON file.
func LoadFile(path string, defaults Defaults) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f, defaults)
}

// Decode parses a catalog document from r.
func Decode(r io.Reader, defaults Defaults) (*Catalog, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCatalog, err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalog, describeValidation(err))
	}

	tables := make(Tables, len(doc.Tables))
	for key, list := range doc.Tables {
		k, ok := tableKeys[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown table %q", ErrInvalidCatalog, key)
		}
		toppings, err := toToppings(list)
		if err != nil {
			return nil, fmt.Errorf("%w: table %q: %v", ErrInvalidCatalog, key, err)
		}
		tables[k] = toppings
	}

	items := make([]Item, 0, len(doc.Items))
	for _, rec := range doc.Items {
		it, err := rec.toItem(defaults)
		if err != nil {
			return nil, fmt.Errorf("%w: item %q: %v", ErrInvalidCatalog, rec.Name, err)
		}
		items = append(items, it)
	}
	return New(items, tables)
}

func (rec itemRecord) toItem(defaults Defaults) (Item, error) {
	base, err := pricing.Parse(string(rec.BasePrice))
	if err != nil {
		return Item{}, err
	}
	it := Item{
		Name:        strings.TrimSpace(rec.Name),
		Description: rec.Description,
		Category:    rec.Category,
		Image:       rec.Image,
		BasePrice:   base,
		MaxSauces:   defaults.MaxSauces,
	}
	if rec.MaxSauces != nil {
		it.MaxSauces = *rec.MaxSauces
	}
	for _, c := range rec.Capabilities {
		it.Capabilities = append(it.Capabilities, Capability(c))
	}

	switch ParseKind(rec.Type) {
	case KindBowl:
		it.Variant = Bowl{DefaultProtein: strings.TrimSpace(rec.DefaultProtein)}
	case KindQuesadilla:
		lock := defaults.LockInclusions
		if rec.LockInclusions != nil {
			lock = *rec.LockInclusions
		}
		it.Variant = Quesadilla{BaseProtein: strings.TrimSpace(rec.BaseProtein), LockInclusions: lock}
	case KindDrink:
		it.Variant = Drink{}
	case KindFountainDrink:
		it.Variant = FountainDrink{}
	case KindLoadedFries:
		it.Variant = LoadedFries{}
	default:
		it.Variant = Simple{}
	}

	for key, list := range rec.CustomToppings {
		k, ok := tableKeys[key]
		if !ok {
			return Item{}, fmt.Errorf("unknown override table %q", key)
		}
		toppings, err := toToppings(list)
		if err != nil {
			return Item{}, fmt.Errorf("override %q: %v", key, err)
		}
		if it.Overrides == nil {
			it.Overrides = make(map[Capability][]Topping)
		}
		it.Overrides[k] = toppings
	}
	return it, nil
}

func toToppings(records []toppingRecord) ([]Topping, error) {
	out := make([]Topping, 0, len(records))
	for _, rec := range records {
		price := pricing.Money(0)
		if rec.Price != "" {
			p, err := pricing.Parse(string(rec.Price))
			if err != nil {
				return nil, fmt.Errorf("topping %q: %v", rec.Name, err)
			}
			price = p
		}
		out = append(out, Topping{Name: strings.TrimSpace(rec.Name), Price: price, Image: rec.Image, Role: rec.Role})
	}
	return out, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
