package team

import (
	"context"
	"errors"
	"time"
)

// ErrTeamNotFound is returned when a team record is not found.
var ErrTeamNotFound = errors.New("team not found")

// ErrDuplicateTeamName is returned when a team with the same name already exists.
var ErrDuplicateTeamName = errors.New("team name already exists")

// ErrMembershipNotFound is returned when a membership record is not found.
var ErrMembershipNotFound = errors.New("membership not found")

// ErrMembershipExists is returned when a (team, user) membership row already exists.
var ErrMembershipExists = errors.New("membership already exists")

// ErrStatusConflict is returned when a conditional status update finds the
// membership in a different state than expected.
var ErrStatusConflict = errors.New("membership status changed concurrently")

// Repository provides operations on the teams and team_members tables.
type Repository interface {
	Create(ctx context.Context, team *Team) error
	GetByID(ctx context.Context, id int64) (*Team, error)
	ListByLeader(ctx context.Context, leaderID int64) ([]Team, error)
	ListByMember(ctx context.Context, userID int64) ([]Team, error)
	ListMembers(ctx context.Context, teamID int64) ([]Member, error)

	GetMembership(ctx context.Context, teamID, userID int64) (*Membership, error)
	GetMembershipByID(ctx context.Context, id int64) (*Membership, error)
	CreateMembership(ctx context.Context, m *Membership) error
	// TransitionMembership moves a membership from one status to another only if it
	// is still in from. invited_at is reset on pending, joined_at set on accepted.
	TransitionMembership(ctx context.Context, id int64, from, to Status, at time.Time) (*Membership, error)
	ListInvitations(ctx context.Context, userID int64) ([]Invitation, error)

	// HasAcceptedMembership reports whether userID is an accepted member of a team
	// led by leaderID or of any team in teamIDs.
	HasAcceptedMembership(ctx context.Context, userID, leaderID int64, teamIDs []int64) (bool, error)
}
