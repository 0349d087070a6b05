// internal/api/bookings/handlers.go
package bookings

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/turfconnect/turfconnect/internal/api/apiutil"
	"github.com/turfconnect/turfconnect/internal/api/authz"
	bookdom "github.com/turfconnect/turfconnect/internal/bookings"
	"github.com/turfconnect/turfconnect/internal/slots"
)

// Handlers serves the booking endpoints.
type Handlers struct {
	coordinator *bookdom.Coordinator
}

func NewHandlers(coordinator *bookdom.Coordinator) *Handlers {
	return &Handlers{coordinator: coordinator}
}

// POST /api/v1/bookings
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	var in struct {
		SlotID        string `json:"slotId"`
		BookingType   string `json:"bookingType"`
		PaymentMethod string `json:"paymentMethod"`
		HoldToken     string `json:"holdToken"`
	}
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := h.coordinator.Create(r.Context(), bookdom.CreateInput{
		SlotID:        in.SlotID,
		BookerID:      user.ID,
		BookingType:   in.BookingType,
		PaymentMethod: in.PaymentMethod,
		HoldToken:     in.HoldToken,
	})
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusCreated, booking, "booking confirmed")
}

// GET /api/v1/bookings
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	page, limit, err := apiutil.PaginationFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, total, err := h.coordinator.List(r.Context(), bookdom.ListInput{
		BookerID: user.ID,
		Status:   r.URL.Query().Get("status"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	apiutil.WritePaginated(w, list, page, limit, total)
}

// GET /api/v1/bookings/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	booking, err := h.coordinator.Get(r.Context(), r.PathValue("id"), user.ID, user.Role)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, booking, "")
}

// PUT /api/v1/bookings/{id}/cancel
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	var in struct {
		Reason string `json:"reason"`
	}
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := h.coordinator.Cancel(r.Context(), r.PathValue("id"), user.ID, user.Role, in.Reason)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, booking, "booking cancelled")
}

func (h *Handlers) writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, bookdom.ErrValidation):
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, bookdom.ErrNotFound), errors.Is(err, slots.ErrNotFound):
		apiutil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, bookdom.ErrForbidden):
		apiutil.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, bookdom.ErrAlreadyCancelled),
		errors.Is(err, slots.ErrUnavailable),
		errors.Is(err, slots.ErrNoHold):
		apiutil.WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("booking handler failure")
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
