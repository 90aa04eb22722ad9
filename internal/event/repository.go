package event

import (
	"context"
	"errors"
)

// ErrEventNotFound is returned when an event record is not found.
var ErrEventNotFound = errors.New("event not found")

// Catalog exposes the event attributes the core reads, plus the event↔team
// assignment relation. It is the only place that relation is queried.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (*Event, error)
	// GetForUpdate locks the event row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Event, error)
	AuthorizedTeamIDs(ctx context.Context, eventID int64) ([]int64, error)
	ListTeams(ctx context.Context, eventID int64) ([]AssignedTeam, error)
	// ReplaceTeams swaps the assignment set for eventID. Only teams led by leaderID
	// are kept; the ids actually assigned are returned.
	ReplaceTeams(ctx context.Context, eventID, leaderID int64, teamIDs []int64) ([]int64, error)
}
