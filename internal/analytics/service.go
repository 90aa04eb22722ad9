package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/clock"
	"github.com/daap14/turnstile/internal/event"
)

// ErrForbidden is returned when the caller is not the event creator.
var ErrForbidden = errors.New("only the event creator can view statistics")

// Ledger is the read side of the ticket ledger used for statistics.
type Ledger interface {
	CountByEvent(ctx context.Context, eventID int64) (int, error)
	CountScanned(ctx context.Context, eventID int64) (int, error)
	ScanTimes(ctx context.Context, eventID int64) ([]time.Time, error)
}

// Gate decides who may view an event's statistics.
type Gate interface {
	CanViewAnalytics(id *auth.Identity, ev *event.Event) bool
}

// Service computes event statistics for authorized callers.
type Service struct {
	events   event.Catalog
	ledger   Ledger
	gate     Gate
	clock    clock.Clock
	location *time.Location
}

// NewService creates a new analytics Service. Hours are bucketed in loc.
func NewService(events event.Catalog, ledger Ledger, gate Gate, clk clock.Clock, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{events: events, ledger: ledger, gate: gate, clock: clk, location: loc}
}

// EventStats returns the statistics of eventID.
func (s *Service) EventStats(ctx context.Context, eventID int64, id *auth.Identity) (*Stats, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !s.gate.CanViewAnalytics(id, ev) {
		return nil, ErrForbidden
	}

	issued, err := s.ledger.CountByEvent(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("counting issued tickets: %w", err)
	}
	scanned, err := s.ledger.CountScanned(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("counting scanned tickets: %w", err)
	}
	times, err := s.ledger.ScanTimes(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("loading scan times: %w", err)
	}

	stats := Compute(Input{
		Capacity:  ev.Capacity,
		UnitPrice: ev.UnitPrice(),
		Issued:    issued,
		Scanned:   scanned,
		ScanTimes: times,
		StartsAt:  ev.StartsAt,
		Now:       s.clock.Now(),
		Location:  s.location,
	})
	return &stats, nil
}
