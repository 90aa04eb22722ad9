package ticket

import (
	"context"
	"errors"
	"log/slog"

	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/clock"
	"github.com/daap14/turnstile/internal/event"
)

// ScanOutcome is the result category of a scan.
type ScanOutcome string

const (
	ScanAccepted     ScanOutcome = "accepted"
	ScanNotFound     ScanOutcome = "not_found"
	ScanUnauthorized ScanOutcome = "unauthorized"
	ScanAlreadyUsed  ScanOutcome = "already_used"
	ScanError        ScanOutcome = "error"
)

var scanMessages = map[ScanOutcome]string{
	ScanAccepted:     "VALID ENTRY",
	ScanNotFound:     "TICKET NOT FOUND",
	ScanUnauthorized: "NOT AUTHORIZED FOR THIS EVENT",
	ScanAlreadyUsed:  "TICKET ALREADY USED",
	ScanError:        "SCAN FAILED, TRY AGAIN",
}

// ScanResult is returned for every scan, successful or not.
type ScanResult struct {
	Outcome      ScanOutcome
	Code         string
	TicketID     int64
	AttendeeName string
	EventName    string
	Message      string
}

// Accepted reports whether the ticket was admitted.
func (r ScanResult) Accepted() bool {
	return r.Outcome == ScanAccepted
}

// Status is "success" for an accepted ticket and "error" otherwise.
func (r ScanResult) Status() string {
	if r.Accepted() {
		return "success"
	}
	return "error"
}

// Color is the operator feedback color.
func (r ScanResult) Color() string {
	if r.Accepted() {
		return "green"
	}
	return "red"
}

func newScanResult(outcome ScanOutcome, code string) ScanResult {
	return ScanResult{Outcome: outcome, Code: code, Message: scanMessages[outcome]}
}

// Authorizer decides who may scan or manage an event's tickets.
type Authorizer interface {
	CanScan(ctx context.Context, id *auth.Identity, ev *event.Event) (bool, error)
	CanManageEvent(id *auth.Identity, ev *event.Event) bool
}

// Scanner runs the valid to used state machine.
type Scanner struct {
	tickets Repository
	events  event.Catalog
	authz   Authorizer
	clock   clock.Clock
}

// NewScanner creates a new Scanner.
func NewScanner(tickets Repository, events event.Catalog, authz Authorizer, clk clock.Clock) *Scanner {
	return &Scanner{tickets: tickets, events: events, authz: authz, clock: clk}
}

// Scan validates the ticket identified by raw on behalf of id. Failures are
// reported in the result, never as an error. Authorization is checked before
// the ticket state so an unauthorized caller cannot tell used tickets apart.
func (s *Scanner) Scan(ctx context.Context, raw string, id *auth.Identity) ScanResult {
	code := NormalizeCode(raw)
	if code == "" {
		return newScanResult(ScanNotFound, code)
	}

	t, err := s.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return newScanResult(ScanNotFound, code)
		}
		slog.Error("failed to look up ticket", "error", err, "code", code)
		return newScanResult(ScanError, code)
	}

	ev, err := s.events.GetByID(ctx, t.EventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return newScanResult(ScanNotFound, code)
		}
		slog.Error("failed to load ticket event", "error", err, "ticketId", t.ID)
		return newScanResult(ScanError, code)
	}

	ok, err := s.authz.CanScan(ctx, id, ev)
	if err != nil {
		slog.Error("failed to resolve scan permission", "error", err, "eventId", ev.ID, "userId", id.UserID)
		return newScanResult(ScanError, code)
	}
	if !ok {
		slog.Warn("unauthorized scan attempt", "eventId", ev.ID, "userId", id.UserID)
		return newScanResult(ScanUnauthorized, code)
	}

	used := newScanResult(ScanAlreadyUsed, code)
	used.TicketID = t.ID
	used.AttendeeName = t.Attendee()
	used.EventName = ev.Name

	if t.State == StateUsed {
		return used
	}

	updated, err := s.tickets.MarkUsed(ctx, t.ID, s.clock.Now())
	if err != nil {
		slog.Error("failed to mark ticket used", "error", err, "ticketId", t.ID)
		return newScanResult(ScanError, code)
	}
	if !updated {
		return used
	}

	slog.Info("ticket scanned", "ticketId", t.ID, "eventId", ev.ID, "userId", id.UserID)

	accepted := used
	accepted.Outcome = ScanAccepted
	accepted.Message = scanMessages[ScanAccepted]
	return accepted
}

// Reactivate returns a used ticket to valid. Only admins and the event creator may.
func (s *Scanner) Reactivate(ctx context.Context, ticketID int64, id *auth.Identity) (*Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	ev, err := s.events.GetByID(ctx, t.EventID)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanManageEvent(id, ev) {
		return nil, ErrForbidden
	}

	ok, err := s.tickets.Reactivate(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTicketNotUsed
	}

	slog.Info("ticket reactivated", "ticketId", t.ID, "eventId", ev.ID, "userId", id.UserID)

	t.State = StateValid
	t.ScannedAt = nil
	return t, nil
}

func (s *Scanner) lookup(ctx context.Context, code string) (*Ticket, error) {
	t, err := s.tickets.GetByCode(ctx, code)
	if err == nil || !errors.Is(err, ErrTicketNotFound) {
		return t, err
	}

	legacyID, ok := ParseLegacyCode(code)
	if !ok {
		return nil, ErrTicketNotFound
	}
	return s.tickets.GetByID(ctx, legacyID)
}
