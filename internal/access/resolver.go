// Package access decides who may scan an event's tickets, view its analytics
// or manage it. Every decision reads membership fresh from the store.
package access

import (
	"context"
	"fmt"

	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/event"
)

// MembershipChecker answers team membership queries.
type MembershipChecker interface {
	HasAcceptedMembership(ctx context.Context, userID, leaderID int64, teamIDs []int64) (bool, error)
}

// Resolver evaluates authorization against the event catalog and team graph.
type Resolver struct {
	events  event.Catalog
	members MembershipChecker
}

// NewResolver creates a new Resolver.
func NewResolver(events event.Catalog, members MembershipChecker) *Resolver {
	return &Resolver{events: events, members: members}
}

// CanScan reports whether id may validate tickets for ev. Admins and the event
// creator always may; otherwise the caller needs an accepted membership in a
// team led by the creator or assigned to the event.
func (r *Resolver) CanScan(ctx context.Context, id *auth.Identity, ev *event.Event) (bool, error) {
	if id == nil || ev == nil {
		return false, nil
	}

	switch id.Role {
	case auth.RoleAdmin:
		return true, nil
	case auth.RoleUser, auth.RoleScanner, auth.RolePromoter, auth.RoleOwner:
	default:
		return false, nil
	}

	if id.UserID == ev.CreatorID {
		return true, nil
	}

	teamIDs, err := r.events.AuthorizedTeamIDs(ctx, ev.ID)
	if err != nil {
		return false, fmt.Errorf("loading event teams: %w", err)
	}

	ok, err := r.members.HasAcceptedMembership(ctx, id.UserID, ev.CreatorID, teamIDs)
	if err != nil {
		return false, fmt.Errorf("checking team membership: %w", err)
	}
	return ok, nil
}

// CanViewAnalytics reports whether id may read ev's statistics. Only the
// creator may; admins and team members may not.
func (r *Resolver) CanViewAnalytics(id *auth.Identity, ev *event.Event) bool {
	return id != nil && ev != nil && id.UserID == ev.CreatorID
}

// CanManageEvent reports whether id may change ev's team assignments or
// reactivate its tickets.
func (r *Resolver) CanManageEvent(id *auth.Identity, ev *event.Event) bool {
	if id == nil || ev == nil {
		return false
	}
	return id.IsAdmin() || id.UserID == ev.CreatorID
}
