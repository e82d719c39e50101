// Package api exposes the reservation engine over HTTP JSON. It is a thin
// boundary: it decodes requests, decides the acting role once, and maps
// domain errors to status codes. All rules live in the services.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
	"github.com/dramirezdlp99/sistema-reservas/internal/service"
)

// HTTPServer serves the reservation API.
type HTTPServer struct {
	reservations *service.ReservationService
	catalog      *service.CatalogService
	reports      *service.ReportService
	logger       zerolog.Logger
	server       *http.Server

	// autoConfirmDefault applies when a create request leaves auto_confirm
	// unset.
	autoConfirmDefault bool
}

// NewHTTPServer builds the API server on addr.
func NewHTTPServer(addr string, reservations *service.ReservationService, catalog *service.CatalogService, reports *service.ReportService, autoConfirmDefault bool, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		reservations:       reservations,
		catalog:            catalog,
		reports:            reports,
		autoConfirmDefault: autoConfirmDefault,
		logger:             logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/reservations", s.handleCreateReservation)
	mux.HandleFunc("GET /api/reservations", s.handleListReservations)
	mux.HandleFunc("GET /api/reservations/{id}", s.handleGetReservation)
	mux.HandleFunc("PATCH /api/reservations/{id}", s.handleEditReservation)
	mux.HandleFunc("POST /api/reservations/{id}/cancel", s.handleCancelReservation)
	mux.HandleFunc("POST /api/reservations/{id}/confirm", s.handleConfirmReservation)
	mux.HandleFunc("GET /api/requesters/{id}/upcoming", s.handleUpcoming)

	mux.HandleFunc("GET /api/spaces", s.handleListSpaces)
	mux.HandleFunc("POST /api/spaces", s.handleCreateSpace)
	mux.HandleFunc("GET /api/spaces/{id}", s.handleGetSpace)
	mux.HandleFunc("PUT /api/spaces/{id}", s.handleUpdateSpace)
	mux.HandleFunc("POST /api/spaces/{id}/deactivate", s.handleDeactivateSpace)
	mux.HandleFunc("POST /api/spaces/{id}/activate", s.handleActivateSpace)
	mux.HandleFunc("GET /api/spaces/{id}/calendar", s.handleSpaceCalendar)

	mux.HandleFunc("GET /api/space-types", s.handleListSpaceTypes)
	mux.HandleFunc("POST /api/space-types", s.handleCreateSpaceType)

	mux.HandleFunc("GET /api/reports/summary", s.handleReportSummary)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Handler returns the underlying handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ErrorResponse is the JSON error envelope. Schedule conflicts additionally
// carry the occupied interval so the caller can correct the request.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Conflict *ConflictResponse `json:"conflict,omitempty"`
}

// ConflictResponse describes the reservation already occupying a slot.
type ConflictResponse struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps a domain error to a status code and JSON body.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	var conflict *booking.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: conflict.Error(),
			Conflict: &ConflictResponse{
				Date:      conflict.Date,
				StartTime: conflict.StartTime,
				EndTime:   conflict.EndTime,
			},
		})
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, booking.ErrSpaceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrAlreadyTerminal):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrConcurrency):
		// Retryable: the engine already retried internally.
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, booking.ErrPastDate),
		errors.Is(err, booking.ErrInvertedInterval),
		errors.Is(err, booking.ErrInactiveSpace),
		errors.Is(err, booking.ErrBadFormat),
		errors.Is(err, booking.ErrEditNotAllowed),
		errors.Is(err, booking.ErrTooFarAhead),
		errors.Is(err, booking.ErrTooManyActive),
		errors.Is(err, service.ErrInvalidSpace),
		errors.Is(err, service.ErrInvalidSpaceType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// actorFrom builds the acting identity from explicit request fields. The
// role is decided here, once, and passed into the services as a value.
func actorFrom(id int64, role string) booking.Actor {
	r := booking.RoleUser
	if role == string(booking.RoleAdmin) {
		r = booking.RoleAdmin
	}
	return booking.Actor{ID: id, Role: r}
}
