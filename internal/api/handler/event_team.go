package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/daap14/turnstile/internal/api/middleware"
	"github.com/daap14/turnstile/internal/api/response"
	"github.com/daap14/turnstile/internal/api/validation"
	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/event"
)

// EventTeamStore reads and replaces an event's team assignments.
type EventTeamStore interface {
	GetByID(ctx context.Context, id int64) (*event.Event, error)
	ListTeams(ctx context.Context, eventID int64) ([]event.AssignedTeam, error)
	ReplaceTeams(ctx context.Context, eventID, leaderID int64, teamIDs []int64) ([]int64, error)
}

// EventManagerGate decides who may manage an event.
type EventManagerGate interface {
	CanManageEvent(id *auth.Identity, ev *event.Event) bool
}

type assignedTeamResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	LeaderID int64  `json:"leaderId"`
}

// EventTeamHandler handles the event to team assignment endpoints.
type EventTeamHandler struct {
	events    EventTeamStore
	gate      EventManagerGate
	validator *validation.Validator
}

// NewEventTeamHandler creates a new EventTeamHandler.
func NewEventTeamHandler(events EventTeamStore, gate EventManagerGate, v *validation.Validator) *EventTeamHandler {
	return &EventTeamHandler{events: events, gate: gate, validator: v}
}

// List handles GET /events/{id}/teams.
func (h *EventTeamHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ev, ok := h.loadManaged(w, r, requestID)
	if !ok {
		return
	}

	h.writeTeams(w, r, ev.ID, requestID)
}

// Replace handles PUT /events/{id}/teams. Only teams led by the caller are
// assigned; other ids are ignored.
func (h *EventTeamHandler) Replace(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	ev, ok := h.loadManaged(w, r, requestID)
	if !ok {
		return
	}

	var req validation.AssignTeamsRequest
	if !decodeJSON(w, r, &req, false, requestID) {
		return
	}
	if fieldErrors := h.validator.Struct(req); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	assigned, err := h.events.ReplaceTeams(r.Context(), ev.ID, identity.UserID, req.TeamIDs)
	if err != nil {
		slog.Error("failed to replace event teams", "error", err, "eventId", ev.ID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update event teams", requestID)
		return
	}
	slog.Info("event teams replaced", "eventId", ev.ID, "userId", identity.UserID, "assigned", len(assigned), "requested", len(req.TeamIDs))

	h.writeTeams(w, r, ev.ID, requestID)
}

func (h *EventTeamHandler) loadManaged(w http.ResponseWriter, r *http.Request, requestID string) (*event.Event, bool) {
	eventID, ok := pathID(w, r, "id", requestID)
	if !ok {
		return nil, false
	}

	ev, err := h.events.GetByID(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Event not found", requestID)
			return nil, false
		}
		slog.Error("failed to load event", "error", err, "eventId", eventID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load event", requestID)
		return nil, false
	}

	if !h.gate.CanManageEvent(middleware.GetIdentity(r.Context()), ev) {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "Only the event creator or an admin can manage event teams", requestID)
		return nil, false
	}

	return ev, true
}

func (h *EventTeamHandler) writeTeams(w http.ResponseWriter, r *http.Request, eventID int64, requestID string) {
	teams, err := h.events.ListTeams(r.Context(), eventID)
	if err != nil {
		slog.Error("failed to list event teams", "error", err, "eventId", eventID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list event teams", requestID)
		return
	}

	items := make([]assignedTeamResponse, 0, len(teams))
	for _, t := range teams {
		items = append(items, assignedTeamResponse{ID: t.ID, Name: t.Name, LeaderID: t.LeaderID})
	}
	response.Success(w, http.StatusOK, items, requestID)
}
