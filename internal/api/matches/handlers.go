// internal/api/matches/handlers.go
package matches

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/turfconnect/turfconnect/internal/api/apiutil"
	"github.com/turfconnect/turfconnect/internal/api/authz"
	"github.com/turfconnect/turfconnect/internal/db"
	matchdom "github.com/turfconnect/turfconnect/internal/matches"
)

// Handlers serves the pickup match endpoints.
type Handlers struct {
	roster *matchdom.Roster
}

func NewHandlers(roster *matchdom.Roster) *Handlers {
	return &Handlers{roster: roster}
}

// matchDetail is the GET /matches/{id} payload: the match plus its roster.
type matchDetail struct {
	db.Match
	Participants []db.MatchParticipant `json:"participants"`
}

// POST /api/v1/matches
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	var in struct {
		BookingID          string `json:"bookingId"`
		SportID            int64  `json:"sportId"`
		TotalSlots         int64  `json:"totalSlots"`
		PricePerPlayer     int64  `json:"pricePerPlayer"`
		SkillLevelRequired string `json:"skillLevelRequired"`
		MatchType          string `json:"matchType"`
		Description        string `json:"description"`
	}
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	match, err := h.roster.Create(r.Context(), matchdom.CreateInput{
		BookingID:          in.BookingID,
		HostID:             user.ID,
		SportID:            in.SportID,
		TotalSlots:         in.TotalSlots,
		PricePerPlayer:     in.PricePerPlayer,
		SkillLevelRequired: in.SkillLevelRequired,
		MatchType:          in.MatchType,
		Description:        in.Description,
	})
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusCreated, match, "match created")
}

// GET /api/v1/matches
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	page, limit, err := apiutil.PaginationFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	var sportID int64
	if raw := query.Get("sportId"); raw != "" {
		sportID, err = apiutil.ParsePositiveInt64Field(raw, "sportId")
		if err != nil {
			apiutil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	list, total, err := h.roster.List(r.Context(), matchdom.ListInput{
		Status:     query.Get("status"),
		SportID:    sportID,
		City:       query.Get("city"),
		SkillLevel: query.Get("skillLevel"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	apiutil.WritePaginated(w, list, page, limit, total)
}

// GET /api/v1/matches/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	match, participants, err := h.roster.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, matchDetail{Match: match, Participants: participants}, "")
}

// POST /api/v1/matches/{id}/join
func (h *Handlers) HandleJoin(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	match, err := h.roster.Join(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, match, "joined match")
}

// DELETE /api/v1/matches/{id}/leave
func (h *Handlers) HandleLeave(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	if err := h.roster.Leave(r.Context(), r.PathValue("id"), user.ID); err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, nil, "left match")
}

// PUT /api/v1/matches/{id}/cancel
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		writeAuthzError(w, err)
		return
	}

	if err := h.roster.Cancel(r.Context(), r.PathValue("id"), user.ID, user.Role); err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, nil, "match cancelled")
}

func (h *Handlers) writeMatchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, matchdom.ErrValidation):
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, matchdom.ErrNotFound), errors.Is(err, matchdom.ErrBookingGone):
		apiutil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, matchdom.ErrForbidden):
		apiutil.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, matchdom.ErrBookingInactive),
		errors.Is(err, matchdom.ErrNotOpen),
		errors.Is(err, matchdom.ErrFull),
		errors.Is(err, matchdom.ErrAlreadyJoined),
		errors.Is(err, matchdom.ErrHostCannotLeave),
		errors.Is(err, matchdom.ErrNotParticipant):
		apiutil.WriteError(w, http.StatusConflict, err.Error())
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("match handler failure")
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
