package ticket_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/daap14/turnstile/internal/auth"
	"github.com/daap14/turnstile/internal/event"
	"github.com/daap14/turnstile/internal/ticket"
)

// --- In-memory ticket ledger ---

// memLedger mirrors the Postgres repository contract. WithTx serializes
// callers the way the event row lock does and discards inserts on error.
type memLedger struct {
	txMu sync.Mutex

	mu        sync.Mutex
	tickets   []*ticket.Ticket
	nextID    int64
	insertErr error
	getErr    error
	// collisions is how many upcoming inserts fail with ErrCodeCollision.
	collisions int
}

func newMemLedger() *memLedger {
	return &memLedger{nextID: 1}
}

func (l *memLedger) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	l.txMu.Lock()
	defer l.txMu.Unlock()

	l.mu.Lock()
	mark := len(l.tickets)
	l.mu.Unlock()

	if err := fn(ctx); err != nil {
		l.mu.Lock()
		l.tickets = l.tickets[:mark]
		l.mu.Unlock()
		return err
	}
	return nil
}

func (l *memLedger) CountByEvent(_ context.Context, eventID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.tickets {
		if t.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) CodeExists(_ context.Context, code string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.tickets {
		if strings.EqualFold(t.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) InsertBatch(_ context.Context, batch []*ticket.Ticket) error {
	if l.insertErr != nil {
		return l.insertErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.collisions > 0 {
		l.collisions--
		return ticket.ErrCodeCollision
	}
	for _, t := range batch {
		t.ID = l.nextID
		t.CreatedAt = time.Now().UTC()
		l.nextID++
		cp := *t
		l.tickets = append(l.tickets, &cp)
	}
	return nil
}

func (l *memLedger) GetByCode(_ context.Context, code string) (*ticket.Ticket, error) {
	if l.getErr != nil {
		return nil, l.getErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.tickets {
		if strings.EqualFold(t.Code, code) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ticket.ErrTicketNotFound
}

func (l *memLedger) GetByID(_ context.Context, id int64) (*ticket.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.tickets {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ticket.ErrTicketNotFound
}

func (l *memLedger) GetDetail(ctx context.Context, id int64) (*ticket.HolderTicket, error) {
	t, err := l.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ticket.HolderTicket{Ticket: *t}, nil
}

func (l *memLedger) ListByHolder(_ context.Context, holderID int64) ([]ticket.HolderTicket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []ticket.HolderTicket{}
	for _, t := range l.tickets {
		if t.HolderID == holderID {
			out = append(out, ticket.HolderTicket{Ticket: *t})
		}
	}
	return out, nil
}

func (l *memLedger) MarkUsed(_ context.Context, id int64, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.tickets {
		if t.ID == id && t.State == ticket.StateValid {
			t.State = ticket.StateUsed
			t.ScannedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) Reactivate(_ context.Context, id int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.tickets {
		if t.ID == id && t.State == ticket.StateUsed {
			t.State = ticket.StateValid
			t.ScannedAt = nil
			return true, nil
		}
	}
	return false, nil
}

func (l *memLedger) CountScanned(_ context.Context, eventID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.tickets {
		if t.EventID == eventID && t.State == ticket.StateUsed {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) ScanTimes(_ context.Context, eventID int64) ([]time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []time.Time
	for _, t := range l.tickets {
		if t.EventID == eventID && t.ScannedAt != nil {
			out = append(out, *t.ScannedAt)
		}
	}
	return out, nil
}

// seed inserts a ticket directly and returns it.
func (l *memLedger) seed(code string, eventID int64, state ticket.State, attendee string) *ticket.Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := &ticket.Ticket{
		ID:           l.nextID,
		Code:         code,
		HolderID:     99,
		EventID:      eventID,
		AttendeeName: &attendee,
		State:        state,
		CreatedAt:    time.Now().UTC(),
	}
	l.nextID++
	l.tickets = append(l.tickets, t)
	cp := *t
	return &cp
}

func (l *memLedger) state(id int64) ticket.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.tickets {
		if t.ID == id {
			return t.State
		}
	}
	return ""
}

// --- In-memory event catalog ---

type memCatalog struct {
	events map[int64]*event.Event
}

func newMemCatalog(events ...*event.Event) *memCatalog {
	c := &memCatalog{events: make(map[int64]*event.Event)}
	for _, ev := range events {
		c.events[ev.ID] = ev
	}
	return c
}

func (c *memCatalog) GetByID(_ context.Context, id int64) (*event.Event, error) {
	ev, ok := c.events[id]
	if !ok {
		return nil, event.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (c *memCatalog) GetForUpdate(ctx context.Context, id int64) (*event.Event, error) {
	return c.GetByID(ctx, id)
}

func (c *memCatalog) AuthorizedTeamIDs(_ context.Context, _ int64) ([]int64, error) {
	return []int64{}, nil
}

func (c *memCatalog) ListTeams(_ context.Context, _ int64) ([]event.AssignedTeam, error) {
	return []event.AssignedTeam{}, nil
}

func (c *memCatalog) ReplaceTeams(_ context.Context, _, _ int64, _ []int64) ([]int64, error) {
	return []int64{}, nil
}

// --- Team membership stub ---

// creatorTeams records users holding an accepted membership in a team led by
// the given creator.
type creatorTeams map[int64]map[int64]bool

func (m creatorTeams) HasAcceptedMembership(_ context.Context, userID, leaderID int64, _ []int64) (bool, error) {
	return m[leaderID][userID], nil
}

// --- Fixtures ---

const (
	creatorID  int64 = 10
	memberID   int64 = 20
	strangerID int64 = 30
	adminID    int64 = 40
	eventID    int64 = 1
)

func identity(id int64, role auth.Role) *auth.Identity {
	return &auth.Identity{UserID: id, Username: "user", FullName: "Pat Doe", Role: role}
}

func price(p float64) *float64 {
	return &p
}
