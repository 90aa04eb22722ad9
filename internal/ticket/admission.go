package ticket

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/daap14/turnstile/internal/clock"
	"github.com/daap14/turnstile/internal/event"
)

// Admission issues tickets against an event's remaining capacity.
type Admission struct {
	tickets     Repository
	events      event.Catalog
	codes       *CodeGenerator
	clock       clock.Clock
	salesCutoff time.Duration
}

// NewAdmission creates a new Admission. Sales close salesCutoff before the event starts.
func NewAdmission(tickets Repository, events event.Catalog, codes *CodeGenerator, clk clock.Clock, salesCutoff time.Duration) *Admission {
	return &Admission{
		tickets:     tickets,
		events:      events,
		codes:       codes,
		clock:       clk,
		salesCutoff: salesCutoff,
	}
}

// issueAttempts bounds how often a purchase is replayed after another
// event's purchase committed one of its codes first.
const issueAttempts = 2

// Issue creates req.Quantity tickets for the event. The event row stays locked
// from the capacity count until the batch insert commits, so concurrent
// purchases for the same event are serialized.
func (a *Admission) Issue(ctx context.Context, req IssueRequest) (*Purchase, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var purchase *Purchase
	var err error
	for attempt := 1; attempt <= issueAttempts; attempt++ {
		purchase, err = a.issue(ctx, req)
		if !errors.Is(err, ErrCodeCollision) {
			break
		}
		slog.Warn("ticket code collided on insert", "eventId", req.EventID, "attempt", attempt)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("tickets issued",
		"eventId", req.EventID,
		"holderId", req.Holder.UserID,
		"quantity", req.Quantity,
	)

	return purchase, nil
}

func (a *Admission) issue(ctx context.Context, req IssueRequest) (*Purchase, error) {
	var purchase *Purchase
	err := a.tickets.WithTx(ctx, func(ctx context.Context) error {
		ev, err := a.events.GetForUpdate(ctx, req.EventID)
		if err != nil {
			return err
		}
		if err := a.checkSalesOpen(ev); err != nil {
			return err
		}

		issued, err := a.tickets.CountByEvent(ctx, ev.ID)
		if err != nil {
			return err
		}
		remaining := max(ev.Capacity-issued, 0)
		if req.Quantity > remaining {
			return &CapacityError{Remaining: remaining}
		}

		batch, err := a.build(ctx, ev.ID, req)
		if err != nil {
			return err
		}
		if err := a.tickets.InsertBatch(ctx, batch); err != nil {
			return err
		}

		purchase = &Purchase{
			Tickets:  make([]Ticket, 0, len(batch)),
			Quantity: req.Quantity,
			Total:    ev.UnitPrice() * float64(req.Quantity),
		}
		for _, t := range batch {
			purchase.Tickets = append(purchase.Tickets, *t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

func (a *Admission) checkSalesOpen(ev *event.Event) error {
	if ev.SalesPaused {
		return ErrSalesPaused
	}

	now := a.clock.Now()
	if !now.Before(ev.StartsAt) {
		return ErrEventFinished
	}
	if !now.Before(ev.StartsAt.Add(-a.salesCutoff)) {
		return ErrSalesClosed
	}
	return nil
}

// build prepares the ticket rows, drawing one code per unit. Codes picked
// earlier in the same batch count as taken.
func (a *Admission) build(ctx context.Context, eventID int64, req IssueRequest) ([]*Ticket, error) {
	picked := make(map[string]struct{}, req.Quantity)
	taken := func(ctx context.Context, code string) (bool, error) {
		if _, ok := picked[code]; ok {
			return true, nil
		}
		return a.tickets.CodeExists(ctx, code)
	}

	batch := make([]*Ticket, 0, req.Quantity)
	for i := range req.Quantity {
		code, err := a.codes.Generate(ctx, taken)
		if err != nil {
			return nil, err
		}
		picked[code] = struct{}{}

		name := attendeeName(req, i)
		batch = append(batch, &Ticket{
			Code:         code,
			HolderID:     req.Holder.UserID,
			EventID:      eventID,
			AttendeeName: &name,
			State:        StateValid,
		})
	}

	return batch, nil
}

func attendeeName(req IssueRequest, i int) string {
	if i < len(req.AttendeeNames) {
		if name := strings.TrimSpace(req.AttendeeNames[i]); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(req.Holder.FullName); name != "" {
		return name
	}
	return req.Holder.Username
}
