package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/clock"
)

var (
	ErrForbidden         = errors.New("not allowed to manage this team")
	ErrInviteeNotFound   = errors.New("no user with that email")
	ErrAlreadyMember     = errors.New("user is already a member of this team")
	ErrInvitationPending = errors.New("user already has a pending invitation")
	ErrSelfInvite        = errors.New("team leader cannot invite themselves")
	ErrInvalidStatus     = errors.New("invitation can only be accepted or rejected")
	ErrNotPending        = errors.New("invitation is no longer pending")
)

// UserDirectory resolves invitees by email.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
}

// Detail is a team together with its memberships.
type Detail struct {
	Team    Team
	Members []Member
}

// Service implements the team lifecycle: creation, invitations and responses.
type Service struct {
	repo  Repository
	users UserDirectory
	clock clock.Clock
}

// NewService creates a new team Service.
func NewService(repo Repository, users UserDirectory, clk clock.Clock) *Service {
	return &Service{repo: repo, users: users, clock: clk}
}

// Create makes a new team led by the caller.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, name string) (*Team, error) {
	if !caller.Role.CanLeadTeams() {
		return nil, ErrForbidden
	}

	t := &Team{Name: strings.TrimSpace(name), LeaderID: caller.UserID}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	slog.Info("team created", "teamId", t.ID, "leaderId", t.LeaderID)
	return t, nil
}

// Managed lists the teams the caller leads.
func (s *Service) Managed(ctx context.Context, caller *auth.Identity) ([]Team, error) {
	return s.repo.ListByLeader(ctx, caller.UserID)
}

// Mine lists the teams the caller has joined.
func (s *Service) Mine(ctx context.Context, caller *auth.Identity) ([]Team, error) {
	return s.repo.ListByMember(ctx, caller.UserID)
}

// Detail returns a team and its members. Visible to the leader, accepted
// members and admins.
func (s *Service) Detail(ctx context.Context, caller *auth.Identity, teamID int64) (*Detail, error) {
	t, err := s.repo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	if t.LeaderID != caller.UserID && !caller.IsAdmin() {
		m, err := s.repo.GetMembership(ctx, teamID, caller.UserID)
		if err != nil {
			if errors.Is(err, ErrMembershipNotFound) {
				return nil, ErrForbidden
			}
			return nil, err
		}
		if m.Status != StatusAccepted {
			return nil, ErrForbidden
		}
	}

	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}

	return &Detail{Team: *t, Members: members}, nil
}

// Invite adds the user with the given email to the team as pending. A previously
// rejected invitation is reissued.
func (s *Service) Invite(ctx context.Context, caller *auth.Identity, teamID int64, email string) (*Membership, error) {
	t, err := s.repo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if t.LeaderID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	invitee, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, ErrInviteeNotFound
		}
		return nil, fmt.Errorf("looking up invitee: %w", err)
	}
	if invitee.ID == t.LeaderID {
		return nil, ErrSelfInvite
	}

	now := s.clock.Now()

	existing, err := s.repo.GetMembership(ctx, teamID, invitee.ID)
	switch {
	case errors.Is(err, ErrMembershipNotFound):
		m := &Membership{TeamID: teamID, UserID: invitee.ID, Status: StatusPending, InvitedAt: now}
		if err := s.repo.CreateMembership(ctx, m); err != nil {
			if errors.Is(err, ErrMembershipExists) {
				return nil, ErrInvitationPending
			}
			return nil, err
		}
		slog.Info("team invitation sent", "teamId", teamID, "userId", invitee.ID)
		return m, nil
	case err != nil:
		return nil, err
	}

	switch existing.Status {
	case StatusAccepted:
		return nil, ErrAlreadyMember
	case StatusPending:
		return nil, ErrInvitationPending
	}

	m, err := s.repo.TransitionMembership(ctx, existing.ID, existing.Status, StatusPending, now)
	if err != nil {
		return nil, err
	}
	slog.Info("team invitation reissued", "teamId", teamID, "userId", invitee.ID)
	return m, nil
}

// Invitations lists the caller's pending invitations.
func (s *Service) Invitations(ctx context.Context, caller *auth.Identity) ([]Invitation, error) {
	return s.repo.ListInvitations(ctx, caller.UserID)
}

// Respond accepts or rejects one of the caller's pending invitations.
func (s *Service) Respond(ctx context.Context, caller *auth.Identity, membershipID int64, status Status) (*Membership, error) {
	if status != StatusAccepted && status != StatusRejected {
		return nil, ErrInvalidStatus
	}

	m, err := s.repo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.UserID != caller.UserID {
		return nil, ErrMembershipNotFound
	}
	if !m.Status.CanTransitionTo(status) {
		return nil, ErrNotPending
	}

	updated, err := s.repo.TransitionMembership(ctx, m.ID, m.Status, status, s.clock.Now())
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrNotPending
		}
		return nil, err
	}

	slog.Info("team invitation answered", "teamId", updated.TeamID, "userId", caller.UserID, "status", status)
	return updated, nil
}
