package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dramirezdlp99/sistema-reservas/internal/booking"
	"github.com/dramirezdlp99/sistema-reservas/internal/metrics"
	"github.com/dramirezdlp99/sistema-reservas/internal/models"
	"github.com/dramirezdlp99/sistema-reservas/internal/service"
)

// CreateReservationRequest is the body for POST /api/reservations.
type CreateReservationRequest struct {
	SpaceID     int64  `json:"space_id"`
	RequesterID int64  `json:"requester_id"`
	Date        string `json:"date"`       // YYYY-MM-DD
	StartTime   string `json:"start_time"` // HH:MM
	EndTime     string `json:"end_time"`   // HH:MM
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
	AutoConfirm *bool  `json:"auto_confirm,omitempty"` // nil: server default
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_create")

	var req CreateReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SpaceID == 0 || req.RequesterID == 0 {
		writeError(w, http.StatusBadRequest, "space_id and requester_id are required")
		return
	}

	autoConfirm := s.autoConfirmDefault
	if req.AutoConfirm != nil {
		autoConfirm = *req.AutoConfirm
	}

	res, err := s.reservations.Create(r.Context(), booking.Draft{
		SpaceID:     req.SpaceID,
		RequesterID: req.RequesterID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Reason:      req.Reason,
		Description: req.Description,
		AutoConfirm: autoConfirm,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_list")

	q := r.URL.Query()
	filter := models.ReservationFilter{
		SpaceID:     queryInt64(q.Get("space_id")),
		RequesterID: queryInt64(q.Get("requester_id")),
		Date:        q.Get("date"),
		Status:      q.Get("status"),
		Limit:       int(queryInt64(q.Get("limit"))),
	}
	list, err := s.reservations.List(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_get")

	res, err := s.reservations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EditReservationRequest is the body for PATCH /api/reservations/{id}.
// Omitted fields keep their stored values.
type EditReservationRequest struct {
	ActorID     int64   `json:"actor_id"`
	ActorRole   string  `json:"actor_role"`
	Date        *string `json:"date,omitempty"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	Reason      *string `json:"reason,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (s *HTTPServer) handleEditReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_edit")

	var req EditReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ActorID == 0 {
		writeError(w, http.StatusBadRequest, "actor_id is required")
		return
	}

	res, err := s.reservations.Edit(r.Context(), r.PathValue("id"), actorFrom(req.ActorID, req.ActorRole), service.EditInput{
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ActorRequest identifies who triggers a state transition.
type ActorRequest struct {
	ActorID   int64  `json:"actor_id"`
	ActorRole string `json:"actor_role"`
}

func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_cancel")

	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.reservations.Cancel(r.Context(), r.PathValue("id"), actorFrom(req.ActorID, req.ActorRole))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ConfirmResponse reports the outcome of a confirmation request. An already
// processed reservation is not an error; AlreadyProcessed is set instead.
type ConfirmResponse struct {
	Reservation      *models.Reservation `json:"reservation"`
	AlreadyProcessed bool                `json:"already_processed"`
}

func (s *HTTPServer) handleConfirmReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_confirm")

	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, changed, err := s.reservations.Confirm(r.Context(), r.PathValue("id"), actorFrom(req.ActorID, req.ActorRole))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResponse{Reservation: res, AlreadyProcessed: !changed})
}

func (s *HTTPServer) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_upcoming")

	requesterID := queryInt64(r.PathValue("id"))
	if requesterID == 0 {
		writeError(w, http.StatusBadRequest, "invalid requester id")
		return
	}
	limit := int(queryInt64(r.URL.Query().Get("limit")))
	list, err := s.reservations.Upcoming(r.Context(), requesterID, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func queryInt64(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
