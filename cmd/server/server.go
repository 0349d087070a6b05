// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/turfconnect/turfconnect/internal/api"
	authapi "github.com/turfconnect/turfconnect/internal/api/auth"
	bookingsapi "github.com/turfconnect/turfconnect/internal/api/bookings"
	matchesapi "github.com/turfconnect/turfconnect/internal/api/matches"
	slotsapi "github.com/turfconnect/turfconnect/internal/api/slots"
	turfsapi "github.com/turfconnect/turfconnect/internal/api/turfs"
	"github.com/turfconnect/turfconnect/internal/config"
)

// handlers collects the per-area HTTP handlers the router wires up.
type handlers struct {
	auth     *authapi.Handlers
	turfs    *turfsapi.Handlers
	slots    *slotsapi.Handlers
	bookings *bookingsapi.Handlers
	matches  *matchesapi.Handlers
	issuer   *authapi.TokenIssuer
}

func newServer(cfg *config.Config, h *handlers) *http.Server {
	router := http.NewServeMux()
	registerRoutes(router, h)

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithAuth(h.issuer),
		api.WithRequestID,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, h *handlers) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth routes
	mux.HandleFunc("POST /api/v1/auth/register", h.auth.HandleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", h.auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/send-otp", h.auth.HandleSendOTP)
	mux.HandleFunc("POST /api/v1/auth/verify-otp", h.auth.HandleVerifyOTP)
	mux.HandleFunc("POST /api/v1/auth/refresh-token", h.auth.HandleRefresh)
	mux.HandleFunc("POST /api/v1/auth/logout", h.auth.HandleLogout)

	// Turf catalog
	mux.HandleFunc("POST /api/v1/turfs", h.turfs.HandleCreate)
	mux.HandleFunc("GET /api/v1/turfs", h.turfs.HandleList)
	mux.HandleFunc("GET /api/v1/turfs/{id}", h.turfs.HandleGet)
	mux.HandleFunc("PUT /api/v1/turfs/{id}", h.turfs.HandleUpdate)
	mux.HandleFunc("DELETE /api/v1/turfs/{id}", h.turfs.HandleDelete)
	mux.HandleFunc("GET /api/v1/turfs/{id}/slots", h.turfs.HandleListSlots)
	mux.HandleFunc("POST /api/v1/turfs/{id}/slots", h.turfs.HandleCreateSlot)
	mux.HandleFunc("GET /api/v1/sports", h.turfs.HandleListSports)

	// Slot holds and owner blocks
	mux.HandleFunc("POST /api/v1/slots/{id}/hold", h.slots.HandleAcquireHold)
	mux.HandleFunc("DELETE /api/v1/slots/{id}/hold", h.slots.HandleReleaseHold)
	mux.HandleFunc("POST /api/v1/slots/{id}/block", h.slots.HandleBlock)
	mux.HandleFunc("DELETE /api/v1/slots/{id}/block", h.slots.HandleUnblock)

	// Bookings
	mux.HandleFunc("POST /api/v1/bookings", h.bookings.HandleCreate)
	mux.HandleFunc("GET /api/v1/bookings", h.bookings.HandleList)
	mux.HandleFunc("GET /api/v1/bookings/{id}", h.bookings.HandleGet)
	mux.HandleFunc("PUT /api/v1/bookings/{id}/cancel", h.bookings.HandleCancel)

	// Pickup matches
	mux.HandleFunc("POST /api/v1/matches", h.matches.HandleCreate)
	mux.HandleFunc("GET /api/v1/matches", h.matches.HandleList)
	mux.HandleFunc("GET /api/v1/matches/{id}", h.matches.HandleGet)
	mux.HandleFunc("POST /api/v1/matches/{id}/join", h.matches.HandleJoin)
	mux.HandleFunc("DELETE /api/v1/matches/{id}/leave", h.matches.HandleLeave)
	mux.HandleFunc("PUT /api/v1/matches/{id}/cancel", h.matches.HandleCancel)
}
