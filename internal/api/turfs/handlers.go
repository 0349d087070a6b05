// internal/api/turfs/handlers.go
package turfs

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/turfconnect/turfconnect/internal/api/apiutil"
	"github.com/turfconnect/turfconnect/internal/api/authz"
	"github.com/turfconnect/turfconnect/internal/db"
	"github.com/turfconnect/turfconnect/internal/slots"
	turfdom "github.com/turfconnect/turfconnect/internal/turfs"
)

// Handlers serves the turf directory and its slot publishing endpoints.
type Handlers struct {
	registry *turfdom.Registry
	ledger   *slots.Ledger
}

func NewHandlers(registry *turfdom.Registry, ledger *slots.Ledger) *Handlers {
	return &Handlers{registry: registry, ledger: ledger}
}

// POST /api/v1/turfs
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireRole(r.Context(), db.RoleTurfOwner, db.RoleAdmin)
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	var in turfdom.CreateInput
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.OwnerID = user.ID

	turf, err := h.registry.Create(r.Context(), in)
	if err != nil {
		h.writeTurfError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusCreated, turf, "turf created")
}

// GET /api/v1/turfs
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit, err := apiutil.PaginationFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var sportID int64
	if raw := r.URL.Query().Get("sportId"); raw != "" {
		sportID, err = apiutil.ParsePositiveInt64Field(raw, "sportId")
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	turfs, total, err := h.registry.List(r.Context(), turfdom.ListInput{
		City:    r.URL.Query().Get("city"),
		SportID: sportID,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		h.writeTurfError(w, r, err)
		return
	}
	apiutil.WritePaginated(w, turfs, page, limit, total)
}

// GET /api/v1/turfs/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	turf, err := h.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeTurfError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, turf, "")
}

// PUT /api/v1/turfs/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireRole(r.Context(), db.RoleTurfOwner, db.RoleAdmin)
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	var in turfdom.UpdateInput
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turf, err := h.registry.Update(r.Context(), r.PathValue("id"), user.ID, user.Role, in)
	if err != nil {
		h.writeTurfError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, turf, "turf updated")
}

// DELETE /api/v1/turfs/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireRole(r.Context(), db.RoleTurfOwner, db.RoleAdmin)
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	if err := h.registry.Delete(r.Context(), r.PathValue("id"), user.ID, user.Role); err != nil {
		h.writeTurfError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, nil, "turf deleted")
}

// GET /api/v1/turfs/{id}/slots
func (h *Handlers) HandleListSlots(w http.ResponseWriter, r *http.Request) {
	turfID := r.PathValue("id")
	if _, err := h.registry.Get(r.Context(), turfID); err != nil {
		h.writeTurfError(w, r, err)
		return
	}

	query := r.URL.Query()
	var sportID int64
	if raw := query.Get("sportId"); raw != "" {
		parsed, err := apiutil.ParsePositiveInt64Field(raw, "sportId")
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		sportID = parsed
	}
	availableOnly := query.Get("all") != "true"

	list, err := h.ledger.List(r.Context(), turfID, query.Get("date"), sportID, availableOnly)
	if err != nil {
		h.writeTurfError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, list, "")
}

// POST /api/v1/turfs/{id}/slots
func (h *Handlers) HandleCreateSlot(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireRole(r.Context(), db.RoleTurfOwner, db.RoleAdmin)
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	turfID := r.PathValue("id")
	turf, err := h.registry.Get(r.Context(), turfID)
	if err != nil {
		h.writeTurfError(w, r, err)
		return
	}
	if turf.OwnerID != user.ID && user.Role != db.RoleAdmin {
		apiutil.WriteError(w, http.StatusForbidden, "not your turf")
		return
	}

	var in struct {
		SportID      int64  `json:"sportId"`
		SlotDate     string `json:"slotDate"`
		StartTime    string `json:"startTime"`
		EndTime      string `json:"endTime"`
		BasePrice    int64  `json:"basePrice"`
		DynamicPrice *int64 `json:"dynamicPrice"`
	}
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	slot, err := h.ledger.Create(r.Context(), slots.CreateInput{
		TurfID:       turfID,
		SportID:      in.SportID,
		SlotDate:     in.SlotDate,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		BasePrice:    in.BasePrice,
		DynamicPrice: in.DynamicPrice,
	})
	if err != nil {
		if errors.Is(err, slots.ErrValidation) {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeTurfError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusCreated, slot, "slot published")
}

// GET /api/v1/sports
func (h *Handlers) HandleListSports(w http.ResponseWriter, r *http.Request) {
	sports, err := h.registry.ListSports(r.Context())
	if err != nil {
		h.writeTurfError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, sports, "")
}

func (h *Handlers) writeTurfError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, turfdom.ErrValidation):
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, turfdom.ErrNotFound):
		apiutil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, turfdom.ErrForbidden):
		apiutil.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, turfdom.ErrHasActiveBookings):
		apiutil.WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("turf handler failure")
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
