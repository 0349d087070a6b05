// internal/api/slots/handlers.go
package slots

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/turfconnect/turfconnect/internal/api/apiutil"
	"github.com/turfconnect/turfconnect/internal/api/authz"
	"github.com/turfconnect/turfconnect/internal/db"
	slotdom "github.com/turfconnect/turfconnect/internal/slots"
	turfdom "github.com/turfconnect/turfconnect/internal/turfs"
)

// Handlers serves the slot hold and block endpoints.
type Handlers struct {
	ledger   *slotdom.Ledger
	registry *turfdom.Registry
}

func NewHandlers(ledger *slotdom.Ledger, registry *turfdom.Registry) *Handlers {
	return &Handlers{ledger: ledger, registry: registry}
}

// POST /api/v1/slots/{id}/hold
func (h *Handlers) HandleAcquireHold(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	hold, err := h.ledger.AcquireHold(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		h.writeSlotError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, hold, "slot held")
}

// DELETE /api/v1/slots/{id}/hold
func (h *Handlers) HandleReleaseHold(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	if err := h.ledger.ReleaseHold(r.Context(), r.PathValue("id"), user.ID); err != nil {
		h.writeSlotError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, nil, "hold released")
}

// POST /api/v1/slots/{id}/block
func (h *Handlers) HandleBlock(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeSlotOwner(w, r) {
		return
	}
	if err := h.ledger.Block(r.Context(), r.PathValue("id")); err != nil {
		h.writeSlotError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, nil, "slot blocked")
}

// DELETE /api/v1/slots/{id}/block
func (h *Handlers) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeSlotOwner(w, r) {
		return
	}
	if err := h.ledger.Unblock(r.Context(), r.PathValue("id")); err != nil {
		h.writeSlotError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, nil, "slot unblocked")
}

// authorizeSlotOwner checks that the caller owns the slot's turf or is an
// admin, writing the error response itself when not.
func (h *Handlers) authorizeSlotOwner(w http.ResponseWriter, r *http.Request) bool {
	user, err := authz.RequireRole(r.Context(), db.RoleTurfOwner, db.RoleAdmin)
	if err != nil {
		writeAuthzError(w, err)
		return false
	}

	slot, err := h.ledger.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeSlotError(w, r, err)
		return false
	}
	turf, err := h.registry.Get(r.Context(), slot.TurfID)
	if err != nil {
		h.writeSlotError(w, r, err)
		return false
	}
	if turf.OwnerID != user.ID && user.Role != db.RoleAdmin {
		apiutil.WriteError(w, http.StatusForbidden, "not your turf")
		return false
	}
	return true
}

func (h *Handlers) writeSlotError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, slotdom.ErrNotFound), errors.Is(err, turfdom.ErrNotFound):
		apiutil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, slotdom.ErrUnavailable),
		errors.Is(err, slotdom.ErrNoHold),
		errors.Is(err, slotdom.ErrNotBlocked):
		apiutil.WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("slot handler failure")
		apiutil.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeAuthzError(w http.ResponseWriter, err error) {
	if errors.Is(err, authz.ErrUnauthenticated) {
		apiutil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	apiutil.WriteError(w, http.StatusForbidden, "insufficient role")
}
