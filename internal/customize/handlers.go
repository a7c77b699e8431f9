package customize

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-zawadi/internal/common"
	"github.com/noah-isme/backend-zawadi/internal/lock"
	"github.com/noah-isme/backend-zawadi/internal/menu"
	"github.com/noah-isme/backend-zawadi/internal/obs"
)

// SessionView is the JSON shape of a session.
type SessionView struct {
	ID        string                            `json:"id"`
	State     string                            `json:"state"`
	Item      menu.ItemView                     `json:"item"`
	Selection Selection                         `json:"selection"`
	Quote     Quote                             `json:"quote"`
	Options   map[menu.Capability][]menu.Topping `json:"options"`
	Locked    []string                          `json:"locked,omitempty"`
}

// ViewOf renders a session with its current quote and resolved options.
func ViewOf(s *Session) SessionView {
	v := SessionView{
		ID:        s.ID,
		State:     s.State().String(),
		Item:      menu.View(s.item),
		Selection: s.Selection(),
		Quote:     s.Quote(),
		Options:   map[menu.Capability][]menu.Topping{},
	}
	for _, c := range s.item.Capabilities {
		if c.Listed() {
			v.Options[c] = s.resolve(c)
		}
	}
	if s.lockedProtein != "" {
		v.Locked = append(v.Locked, s.lockedProtein)
	}
	if s.lockedCold {
		v.Locked = append(v.Locked, IncludedCold)
	}
	return v
}

// Handler exposes customization sessions over HTTP.
type Handler struct {
	Svc *Service
}

// Open handles POST /api/v1/customizations.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customization service not configured", nil)
		return
	}
	var payload struct {
		Item string `json:"item" validate:"required"`
	}
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	sess, err := h.Svc.Open(r.Context(), payload.Item)
	if err != nil {
		h.writeError(w, err)
		return
	}
	obs.ObserveQuote("session")
	common.Data(w, http.StatusCreated, ViewOf(sess))
}

// Get handles GET /api/v1/customizations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customization service not configured", nil)
		return
	}
	sess, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, ViewOf(sess))
}

// Act handles POST /api/v1/customizations/{id}/actions. The response carries
// the recomputed quote.
func (h *Handler) Act(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customization service not configured", nil)
		return
	}
	var action Action
	if err := common.DecodeJSON(r, &action); err != nil {
		h.writeError(w, err)
		return
	}
	sess, err := h.Svc.Apply(r.Context(), chi.URLParam(r, "id"), action)
	if err != nil {
		h.writeError(w, err)
		return
	}
	obs.ObserveQuote("session")
	common.Data(w, http.StatusOK, ViewOf(sess))
}

// Discard handles DELETE /api/v1/customizations/{id}.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customization service not configured", nil)
		return
	}
	if err := h.Svc.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Quote handles POST /api/v1/menu/{name}/quote: prices a posted selection
// without a session.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customization service not configured", nil)
		return
	}
	item, err := h.Svc.Catalog.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	var sel Selection
	if err := common.DecodeJSON(r, &sel); err != nil {
		h.writeError(w, err)
		return
	}
	obs.ObserveQuote("stateless")
	common.Data(w, http.StatusOK, QuoteFor(h.Svc.Catalog, item, sel))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customization session not found", nil)
	case errors.Is(err, menu.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "menu item not found", nil)
	case errors.Is(err, ErrSessionClosed), errors.Is(err, ErrNotInitialized):
		common.JSONError(w, http.StatusConflict, "SESSION_CLOSED", err.Error(), nil)
	case errors.Is(err, ErrLocked):
		common.JSONError(w, http.StatusConflict, "LOCKED", "included option cannot be removed", nil)
	case errors.Is(err, ErrCapabilityNotAllowed):
		common.JSONError(w, http.StatusUnprocessableEntity, "CAPABILITY_NOT_ALLOWED", "item does not allow this customization", nil)
	case errors.Is(err, ErrUnknownOption):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_OPTION", err.Error(), nil)
	case errors.Is(err, ErrLimitReached):
		common.JSONError(w, http.StatusUnprocessableEntity, "LIMIT_REACHED", "selection limit reached", nil)
	case errors.Is(err, ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid quantity", nil)
	case errors.Is(err, lock.ErrTimeout):
		common.JSONError(w, http.StatusServiceUnavailable, "BUSY", "session is busy, retry", nil)
	default:
		if common.WriteAppError(w, err) {
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
