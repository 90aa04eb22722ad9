package team

import "time"

// Status is the lifecycle state of a team membership.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// CanTransitionTo reports whether a membership may move from s to next.
// Invitations are answered once; only a rejected invitation can be reissued.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected
	case StatusRejected:
		return next == StatusPending
	case StatusAccepted:
		return false
	}
	return false
}

// Team represents a row in the teams table.
type Team struct {
	ID          int64
	Name        string
	LeaderID    int64
	CreatedAt   time.Time
	MemberCount int // accepted members; only populated by list queries
}

// Membership represents a row in the team_members table.
type Membership struct {
	ID        int64
	TeamID    int64
	UserID    int64
	Status    Status
	InvitedAt time.Time
	JoinedAt  *time.Time
}

// Member is a membership joined with the member's user details.
type Member struct {
	Membership
	Username string
	FullName string
	Email    string
}

// Invitation is a membership as seen by the invited user.
type Invitation struct {
	Membership
	TeamName string
}
