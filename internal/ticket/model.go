package ticket

import (
	"time"

	"github.com/daap14/turnstile/internal/auth"
)

// State is the validation state of a ticket.
type State string

const (
	StateValid State = "valid"
	StateUsed  State = "used"
)

// Ticket represents a row in the tickets table.
type Ticket struct {
	ID           int64
	Code         string
	HolderID     int64
	EventID      int64
	AttendeeName *string
	State        State
	ScannedAt    *time.Time
	CreatedAt    time.Time
}

// Attendee returns the attendee label or an empty string.
func (t *Ticket) Attendee() string {
	if t.AttendeeName == nil {
		return ""
	}
	return *t.AttendeeName
}

// VisibleTo reports whether id may read the ticket: its holder, an admin or a scanner.
func (t *Ticket) VisibleTo(id *auth.Identity) bool {
	if id == nil {
		return false
	}
	return id.UserID == t.HolderID || id.Role == auth.RoleAdmin || id.Role == auth.RoleScanner
}

// HolderTicket is a ticket joined with a summary of its event.
type HolderTicket struct {
	Ticket
	EventName     string
	EventStartsAt time.Time
	EventPrice    *float64
}

// IssueRequest is the input of Admission.Issue.
type IssueRequest struct {
	EventID       int64
	Quantity      int
	AttendeeNames []string
	Holder        *auth.Identity
}

// Purchase is the result of a successful issuance.
type Purchase struct {
	Tickets  []Ticket
	Quantity int
	Total    float64
}
