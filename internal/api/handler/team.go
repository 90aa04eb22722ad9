package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/daap14/turnstile/internal/api/middleware"
	"github.com/daap14/turnstile/internal/api/response"
	"github.com/daap14/turnstile/internal/api/validation"
	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/team"
)

// TeamService runs the team lifecycle.
type TeamService interface {
	Create(ctx context.Context, caller *auth.Identity, name string) (*team.Team, error)
	Managed(ctx context.Context, caller *auth.Identity) ([]team.Team, error)
	Mine(ctx context.Context, caller *auth.Identity) ([]team.Team, error)
	Detail(ctx context.Context, caller *auth.Identity, teamID int64) (*team.Detail, error)
	Invite(ctx context.Context, caller *auth.Identity, teamID int64, email string) (*team.Membership, error)
	Invitations(ctx context.Context, caller *auth.Identity) ([]team.Invitation, error)
	Respond(ctx context.Context, caller *auth.Identity, membershipID int64, status team.Status) (*team.Membership, error)
}

type teamResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	LeaderID    int64  `json:"leaderId"`
	MemberCount int    `json:"memberCount"`
	CreatedAt   string `json:"createdAt"`
}

func toTeamResponse(t *team.Team) teamResponse {
	return teamResponse{
		ID:          t.ID,
		Name:        t.Name,
		LeaderID:    t.LeaderID,
		MemberCount: t.MemberCount,
		CreatedAt:   formatTime(t.CreatedAt),
	}
}

type membershipResponse struct {
	ID        int64   `json:"id"`
	TeamID    int64   `json:"teamId"`
	UserID    int64   `json:"userId"`
	Status    string  `json:"status"`
	InvitedAt string  `json:"invitedAt"`
	JoinedAt  *string `json:"joinedAt"`
}

func toMembershipResponse(m *team.Membership) membershipResponse {
	return membershipResponse{
		ID:        m.ID,
		TeamID:    m.TeamID,
		UserID:    m.UserID,
		Status:    string(m.Status),
		InvitedAt: formatTime(m.InvitedAt),
		JoinedAt:  formatTimePtr(m.JoinedAt),
	}
}

type memberResponse struct {
	membershipResponse
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type teamDetailResponse struct {
	teamResponse
	Members []memberResponse `json:"members"`
}

type invitationResponse struct {
	membershipResponse
	TeamName string `json:"teamName"`
}

// TeamHandler handles team and invitation endpoints.
type TeamHandler struct {
	teams     TeamService
	validator *validation.Validator
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(teams TeamService, v *validation.Validator) *TeamHandler {
	return &TeamHandler{teams: teams, validator: v}
}

// Create handles POST /teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var req validation.CreateTeamRequest
	if !decodeJSON(w, r, &req, false, requestID) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if fieldErrors := h.validator.Struct(req); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	t, err := h.teams.Create(r.Context(), identity, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, team.ErrForbidden):
			response.Err(w, http.StatusForbidden, "FORBIDDEN", "Only promoters, owners and admins can create teams", requestID)
		case errors.Is(err, team.ErrDuplicateTeamName):
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", fmt.Sprintf("A team named %q already exists", req.Name), requestID)
		default:
			slog.Error("failed to create team", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create team", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toTeamResponse(t), requestID)
}

// Managed handles GET /teams/managed.
func (h *TeamHandler) Managed(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.teams.Managed)
}

// Mine handles GET /teams/mine.
func (h *TeamHandler) Mine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.teams.Mine)
}

func (h *TeamHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, *auth.Identity) ([]team.Team, error)) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	teams, err := fetch(r.Context(), identity)
	if err != nil {
		slog.Error("failed to list teams", "error", err, "userId", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list teams", requestID)
		return
	}

	items := make([]teamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, toTeamResponse(&teams[i]))
	}
	response.Success(w, http.StatusOK, items, requestID)
}

// GetByID handles GET /teams/{id}.
func (h *TeamHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	teamID, ok := pathID(w, r, "id", requestID)
	if !ok {
		return
	}

	detail, err := h.teams.Detail(r.Context(), identity, teamID)
	if err != nil {
		switch {
		case errors.Is(err, team.ErrTeamNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
		case errors.Is(err, team.ErrForbidden):
			response.Err(w, http.StatusForbidden, "FORBIDDEN", "Not a member of this team", requestID)
		default:
			slog.Error("failed to get team", "error", err, "teamId", teamID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get team", requestID)
		}
		return
	}

	out := teamDetailResponse{
		teamResponse: toTeamResponse(&detail.Team),
		Members:      make([]memberResponse, 0, len(detail.Members)),
	}
	for i := range detail.Members {
		m := &detail.Members[i]
		out.Members = append(out.Members, memberResponse{
			membershipResponse: toMembershipResponse(&m.Membership),
			Username:           m.Username,
			FullName:           m.FullName,
			Email:              m.Email,
		})
		if m.Status == team.StatusAccepted {
			out.MemberCount++
		}
	}

	response.Success(w, http.StatusOK, out, requestID)
}

// Invite handles POST /teams/{id}/invitations.
func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	teamID, ok := pathID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req validation.InviteRequest
	if !decodeJSON(w, r, &req, false, requestID) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if fieldErrors := h.validator.Struct(req); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	m, err := h.teams.Invite(r.Context(), identity, teamID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, team.ErrTeamNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Team not found", requestID)
		case errors.Is(err, team.ErrInviteeNotFound):
			response.Err(w, http.StatusNotFound, "USER_NOT_FOUND", "No user with that email", requestID)
		case errors.Is(err, team.ErrForbidden):
			response.Err(w, http.StatusForbidden, "FORBIDDEN", "Only the team leader can invite members", requestID)
		case errors.Is(err, team.ErrAlreadyMember):
			response.Err(w, http.StatusConflict, "ALREADY_MEMBER", "User is already a member of this team", requestID)
		case errors.Is(err, team.ErrInvitationPending):
			response.Err(w, http.StatusConflict, "INVITATION_PENDING", "User already has a pending invitation", requestID)
		case errors.Is(err, team.ErrSelfInvite):
			response.Err(w, http.StatusBadRequest, "SELF_INVITE", "The team leader cannot invite themselves", requestID)
		case errors.Is(err, team.ErrStatusConflict):
			response.Err(w, http.StatusConflict, "STATUS_CONFLICT", "Invitation changed concurrently, retry", requestID)
		default:
			slog.Error("failed to invite team member", "error", err, "teamId", teamID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to send invitation", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toMembershipResponse(m), requestID)
}

// Invitations handles GET /invitations.
func (h *TeamHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	invitations, err := h.teams.Invitations(r.Context(), identity)
	if err != nil {
		slog.Error("failed to list invitations", "error", err, "userId", identity.UserID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list invitations", requestID)
		return
	}

	items := make([]invitationResponse, 0, len(invitations))
	for i := range invitations {
		inv := &invitations[i]
		items = append(items, invitationResponse{
			membershipResponse: toMembershipResponse(&inv.Membership),
			TeamName:           inv.TeamName,
		})
	}
	response.Success(w, http.StatusOK, items, requestID)
}

// Respond handles POST /invitations/{id}/respond.
func (h *TeamHandler) Respond(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	membershipID, ok := pathID(w, r, "id", requestID)
	if !ok {
		return
	}

	var req validation.RespondRequest
	if !decodeJSON(w, r, &req, false, requestID) {
		return
	}
	if fieldErrors := h.validator.Struct(req); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	m, err := h.teams.Respond(r.Context(), identity, membershipID, team.Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, team.ErrMembershipNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Invitation not found", requestID)
		case errors.Is(err, team.ErrInvalidStatus):
			response.Err(w, http.StatusBadRequest, "INVALID_STATUS", "Status must be accepted or rejected", requestID)
		case errors.Is(err, team.ErrNotPending):
			response.Err(w, http.StatusConflict, "NOT_PENDING", "Invitation is no longer pending", requestID)
		default:
			slog.Error("failed to respond to invitation", "error", err, "membershipId", membershipID)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to respond to invitation", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, toMembershipResponse(m), requestID)
}
