package ticket

import (
	"context"
	"time"
)

// Repository is the ticket ledger.
type Repository interface {
	// WithTx runs fn in a transaction shared by every repository that resolves
	// its connection from the context.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CountByEvent(ctx context.Context, eventID int64) (int, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	// InsertBatch inserts all tickets or none, filling in ids and timestamps.
	InsertBatch(ctx context.Context, tickets []*Ticket) error

	GetByCode(ctx context.Context, code string) (*Ticket, error)
	GetByID(ctx context.Context, id int64) (*Ticket, error)
	GetDetail(ctx context.Context, id int64) (*HolderTicket, error)
	ListByHolder(ctx context.Context, holderID int64) ([]HolderTicket, error)

	// MarkUsed moves a ticket from valid to used. It reports false when the
	// ticket was not valid at the time of the update.
	MarkUsed(ctx context.Context, id int64, at time.Time) (bool, error)
	// Reactivate moves a ticket from used back to valid. It reports false when
	// the ticket was not used.
	Reactivate(ctx context.Context, id int64) (bool, error)

	CountScanned(ctx context.Context, eventID int64) (int, error)
	ScanTimes(ctx context.Context, eventID int64) ([]time.Time, error)
}
