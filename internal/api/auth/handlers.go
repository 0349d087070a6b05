package auth

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/turfconnect/turfconnect/internal/api/apiutil"
	"github.com/turfconnect/turfconnect/internal/ratelimit"
)

// Handlers exposes the auth flows over HTTP.
type Handlers struct {
	service    *Service
	trustProxy bool
}

func NewHandlers(service *Service, trustProxy bool) *Handlers {
	return &Handlers{service: service, trustProxy: trustProxy}
}

func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in.ClientIP = ratelimit.GetClientIP(r, h.trustProxy)

	user, err := h.service.Register(r.Context(), in)
	if err != nil && !errors.Is(err, ErrRateLimited) {
		h.writeAuthError(w, err)
		return
	}
	message := "registered, verification code sent"
	if err != nil {
		// Account created but OTP delivery was throttled; the client can
		// request a fresh code.
		message = "registered, request a verification code to continue"
	}
	apiutil.WriteSuccess(w, http.StatusCreated, user, message)
}

func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.service.Login(r.Context(), in.Phone, in.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, pair, "logged in")
}

func (h *Handlers) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Phone string `json:"phone"`
	}
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SendOTP(r.Context(), in.Phone, ratelimit.GetClientIP(r, h.trustProxy)); err != nil {
		h.writeAuthError(w, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, nil, "verification code sent")
}

func (h *Handlers) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.service.VerifyOTP(r.Context(), in.Phone, in.Code, ratelimit.GetClientIP(r, h.trustProxy))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, pair, "phone verified")
}

func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.service.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, pair, "token refreshed")
}

func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := apiutil.DecodeJSON(r, &in); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Logout(r.Context(), in.RefreshToken); err != nil {
		h.writeAuthError(w, err)
		return
	}
	apiutil.WriteSuccess(w, http.StatusOK, nil, "logged out")
}

func (h *Handlers) writeAuthError(w http.ResponseWriter, err error) {
	var rateErr *RateLimitError
	switch {
	case errors.Is(err, ErrValidation):
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPhoneTaken):
		apiutil.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrRefreshInvalid):
		apiutil.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotVerified):
		apiutil.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUserNotFound):
		apiutil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrOTPInvalid):
		apiutil.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", formatRetryAfter(rateErr.RetryAfter))
		apiutil.WriteError(w, http.StatusTooManyRequests, "too many requests, slow down")
	default:
		log.Error().Err(err).Msg("auth handler failure")
		apiutil.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// formatRetryAfter renders a duration as whole seconds for the Retry-After
// header, rounding up so clients never retry early.
func formatRetryAfter(d time.Duration) string {
	seconds := int64(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}
