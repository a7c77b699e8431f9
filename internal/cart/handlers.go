package cart

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-zawadi/internal/common"
	"github.com/noah-isme/backend-zawadi/internal/customize"
	"github.com/noah-isme/backend-zawadi/internal/lock"
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/pricing"
)

// View is the JSON shape of a cart with its pricing preview.
type View struct {
	ID        string            `json:"id"`
	Items     []LineItem        `json:"items"`
	ItemCount int               `json:"itemCount"`
	Pricing   pricing.Summary   `json:"pricing"`
	Display   map[string]string `json:"display"`
}

// Handler wires cart services to HTTP.
type Handler struct {
	Svc      *Service
	Sessions *customize.Service
}

func (h *Handler) view(c Cart) View {
	sum := h.Svc.Totals(c)
	return View{
		ID:        c.ID,
		Items:     c.Lines,
		ItemCount: c.ItemCount(),
		Pricing:   sum,
		Display: map[string]string{
			"subtotal": pricing.Format(sum.Subtotal),
			"tax":      pricing.Format(sum.Tax),
			"total":    pricing.Format(sum.Total),
		},
	}
}

// Create starts a new cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, h.view(c))
}

// Get returns cart contents and pricing preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.view(c))
}

// AddItem adds a plain menu item by name.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Name string `json:"name" validate:"required"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), payload.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.view(c))
}

// AddCustomization finalizes a customization session into the cart.
func (h *Handler) AddCustomization(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	ctx := r.Context()
	cartID := chi.URLParam(r, "id")
	if _, err := h.Svc.Get(ctx, cartID); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Svc.AddFromSession(ctx, cartID, h.Sessions, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.view(c))
}

// UpdateItem sets a line quantity; zero removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload struct {
		Quantity *int `json:"quantity" validate:"required,gte=0,lte=99"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.Svc.SetQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"), *payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.view(c))
}

// RemoveItem deletes a cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, h.view(c))
}

// Delete drops the cart.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart item not found", nil)
	case errors.Is(err, menu.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "menu item not found", nil)
	case errors.Is(err, customize.ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customization session not found", nil)
	case errors.Is(err, ErrNeedsCustomization):
		common.JSONError(w, http.StatusUnprocessableEntity, "CUSTOMIZATION_REQUIRED", err.Error(), nil)
	case errors.Is(err, customize.ErrSessionClosed), errors.Is(err, customize.ErrNotInitialized):
		common.JSONError(w, http.StatusConflict, "SESSION_CLOSED", "customization session already closed", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, lock.ErrTimeout):
		common.JSONError(w, http.StatusServiceUnavailable, "BUSY", "cart is busy, retry", nil)
	default:
		if common.WriteAppError(w, err) {
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
