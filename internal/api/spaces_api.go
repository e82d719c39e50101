package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dramirezdlp99/sistema-reservas/internal/metrics"
	"github.com/dramirezdlp99/sistema-reservas/internal/models"
)

// SpaceRequest is the body for creating or updating a space.
type SpaceRequest struct {
	ActorID     int64  `json:"actor_id"`
	ActorRole   string `json:"actor_role"`
	Name        string `json:"name"`
	TypeID      int64  `json:"type_id"`
	Code        string `json:"code"`
	Capacity    int    `json:"capacity"`
	Location    string `json:"location"`
	Description string `json:"description,omitempty"`
	Equipment   string `json:"equipment,omitempty"`
}

func (s *HTTPServer) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_list")

	onlyActive := r.URL.Query().Get("all") == ""
	spaces, err := s.catalog.ListSpaces(r.Context(), onlyActive)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spaces)
}

func (s *HTTPServer) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_create")

	var req SpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	space := &models.Space{
		Name:        req.Name,
		TypeID:      req.TypeID,
		Code:        req.Code,
		Capacity:    req.Capacity,
		Location:    req.Location,
		Description: req.Description,
		Equipment:   req.Equipment,
		Active:      true,
	}
	if err := s.catalog.CreateSpace(r.Context(), actorFrom(req.ActorID, req.ActorRole), space); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, space)
}

func (s *HTTPServer) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_get")

	id := queryInt64(r.PathValue("id"))
	space, err := s.catalog.GetSpace(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, space)
}

func (s *HTTPServer) handleUpdateSpace(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_update")

	var req SpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := queryInt64(r.PathValue("id"))
	current, err := s.catalog.GetSpace(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	space := &models.Space{
		ID:          id,
		Name:        req.Name,
		TypeID:      req.TypeID,
		Code:        req.Code,
		Capacity:    req.Capacity,
		Location:    req.Location,
		Description: req.Description,
		Equipment:   req.Equipment,
		Active:      current.Active,
	}
	if err := s.catalog.UpdateSpace(r.Context(), actorFrom(req.ActorID, req.ActorRole), space); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, space)
}

func (s *HTTPServer) handleDeactivateSpace(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_deactivate")
	s.setSpaceActive(w, r, false)
}

func (s *HTTPServer) handleActivateSpace(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_activate")
	s.setSpaceActive(w, r, true)
}

func (s *HTTPServer) setSpaceActive(w http.ResponseWriter, r *http.Request, active bool) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := queryInt64(r.PathValue("id"))
	actor := actorFrom(req.ActorID, req.ActorRole)

	var err error
	if active {
		err = s.catalog.ActivateSpace(r.Context(), actor, id)
	} else {
		err = s.catalog.DeactivateSpace(r.Context(), actor, id)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSpaceCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_calendar")

	id := queryInt64(r.PathValue("id"))
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" {
		from = time.Now().Format(models.DateLayout)
	}
	if to == "" {
		to = time.Now().AddDate(0, 1, 0).Format(models.DateLayout)
	}
	if _, err := time.Parse(models.DateLayout, from); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
		return
	}
	if _, err := time.Parse(models.DateLayout, to); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
		return
	}

	list, err := s.reservations.Calendar(r.Context(), id, from, to)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// SpaceTypeRequest is the body for POST /api/space-types.
type SpaceTypeRequest struct {
	ActorID     int64  `json:"actor_id"`
	ActorRole   string `json:"actor_role"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MinCapacity int    `json:"min_capacity"`
	MaxCapacity int    `json:"max_capacity"`
}

func (s *HTTPServer) handleListSpaceTypes(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_type_list")

	types, err := s.catalog.ListSpaceTypes(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (s *HTTPServer) handleCreateSpaceType(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("space_type_create")

	var req SpaceTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	st := &models.SpaceType{
		Name:        req.Name,
		Description: req.Description,
		MinCapacity: req.MinCapacity,
		MaxCapacity: req.MaxCapacity,
	}
	if err := s.catalog.CreateSpaceType(r.Context(), actorFrom(req.ActorID, req.ActorRole), st); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}
