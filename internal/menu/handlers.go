package menu

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-zawadi/internal/common"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

// ItemView is the public representation of an Item.
type ItemView struct {
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	Image          string        `json:"image,omitempty"`
	Kind           Kind          `json:"kind"`
	BasePrice      pricing.Money `json:"basePrice"`
	DisplayPrice   string        `json:"displayPrice"`
	Capabilities   []Capability  `json:"capabilities"`
	DefaultProtein string        `json:"defaultProtein,omitempty"`
	BaseProtein    string        `json:"baseProtein,omitempty"`
	LockInclusions bool          `json:"lockInclusions,omitempty"`
	MaxSauces      int           `json:"maxSauces,omitempty"`
}

// CategoryView groups items for the menu listing.
type CategoryView struct {
	Category string     `json:"category"`
	Items    []ItemView `json:"items"`
}

// View converts an Item for JSON output.
func View(it Item) ItemView {
	caps := it.Capabilities
	if caps == nil {
		caps = []Capability{}
	}
	v := ItemView{
		Name:         it.Name,
		Description:  it.Description,
		Category:     it.Category,
		Image:        it.Image,
		Kind:         it.Kind(),
		BasePrice:    it.BasePrice,
		DisplayPrice: pricing.Format(it.BasePrice),
		Capabilities: caps,
		MaxSauces:    it.MaxSauces,
	}
	switch variant := it.Variant.(type) {
	case Bowl:
		v.DefaultProtein = variant.DefaultProtein
	case Quesadilla:
		v.BaseProtein = variant.BaseProtein
		v.LockInclusions = variant.LockInclusions
	}
	return v
}

// Handler exposes read-only menu endpoints.
type Handler struct {
	catalog *Catalog
}

// NewHandler constructs a Handler over an immutable catalog.
func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// List handles GET /api/v1/menu. An optional ?category= narrows the result.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "menu not loaded", nil)
		return
	}
	categories := h.catalog.Categories()
	if want := strings.TrimSpace(r.URL.Query().Get("category")); want != "" {
		categories = []string{want}
	}
	out := make([]CategoryView, 0, len(categories))
	for _, cat := range categories {
		items := h.catalog.ByCategory(cat)
		if len(items) == 0 {
			continue
		}
		views := make([]ItemView, 0, len(items))
		for _, it := range items {
			views = append(views, View(it))
		}
		out = append(out, CategoryView{Category: items[0].Category, Items: views})
	}
	common.Data(w, http.StatusOK, out)
}

// Detail handles GET /api/v1/menu/{name}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}
	common.Data(w, http.StatusOK, View(item))
}

// Options handles GET /api/v1/menu/{name}/options.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}
	payload := map[string]any{
		"item":    View(item),
		"options": h.catalog.OptionSet(item),
	}
	if item.Allows(CapFries) {
		payload["friesSurcharge"] = pricing.FriesSurcharge
	}
	if item.Allows(CapIce) {
		payload["iceOptions"] = []IceOption{WithIce, NoIce}
	}
	common.Data(w, http.StatusOK, payload)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (Item, bool) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "menu not loaded", nil)
		return Item{}, false
	}
	item, err := h.catalog.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "menu item not found", nil)
			return Item{}, false
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return Item{}, false
	}
	return item, true
}
