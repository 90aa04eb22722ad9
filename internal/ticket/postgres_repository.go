package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daap14/turnstile/internal/store"
)

const ticketColumns = `id, code, holder_id, event_id, attendee_name, state, scanned_at, created_at`

const holderTicketQuery = `
	SELECT t.id, t.code, t.holder_id, t.event_id, t.attendee_name, t.state, t.scanned_at, t.created_at,
	       e.name, e.starts_at, e.price::float8
	FROM tickets t
	JOIN events e ON e.id = t.event_id`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// WithTx runs fn inside a transaction carried by ctx.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return store.WithTx(ctx, r.pool, fn)
}

// CountByEvent returns the number of tickets issued for an event.
func (r *PostgresRepository) CountByEvent(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := store.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = $1`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting tickets: %w", err)
	}
	return n, nil
}

// CodeExists reports whether a ticket with the code exists, ignoring case.
func (r *PostgresRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := store.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE UPPER(code) = UPPER($1))`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking ticket code: %w", err)
	}
	return exists, nil
}

// InsertBatch inserts every ticket in one round trip. Callers run it inside
// WithTx so a failure leaves no rows behind.
func (r *PostgresRepository) InsertBatch(ctx context.Context, tickets []*Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	query := `
		INSERT INTO tickets (code, holder_id, event_id, attendee_name, state)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(query, t.Code, t.HolderID, t.EventID, t.AttendeeName, string(t.State))
	}

	results := store.Conn(ctx, r.pool).SendBatch(ctx, batch)
	for _, t := range tickets {
		if err := results.QueryRow().Scan(&t.ID, &t.CreatedAt); err != nil {
			_ = results.Close()
			if store.IsUniqueViolation(err) {
				return ErrCodeCollision
			}
			return fmt.Errorf("inserting ticket: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing ticket batch: %w", err)
	}

	return nil
}

// GetByCode retrieves a ticket by code, ignoring case.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE UPPER(code) = UPPER($1)`
	return scanTicket(store.Conn(ctx, r.pool).QueryRow(ctx, query, code))
}

// GetByID retrieves a ticket by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return scanTicket(store.Conn(ctx, r.pool).QueryRow(ctx, query, id))
}

// GetDetail retrieves a ticket with its event summary.
func (r *PostgresRepository) GetDetail(ctx context.Context, id int64) (*HolderTicket, error) {
	ht, err := scanHolderTicket(store.Conn(ctx, r.pool).QueryRow(ctx, holderTicketQuery+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("querying ticket detail: %w", err)
	}
	return ht, nil
}

// ListByHolder returns the holder's tickets, soonest event first.
func (r *PostgresRepository) ListByHolder(ctx context.Context, holderID int64) ([]HolderTicket, error) {
	query := holderTicketQuery + `
		WHERE t.holder_id = $1
		ORDER BY e.starts_at ASC, t.id ASC`

	rows, err := store.Conn(ctx, r.pool).Query(ctx, query, holderID)
	if err != nil {
		return nil, fmt.Errorf("listing holder tickets: %w", err)
	}
	defer rows.Close()

	tickets := []HolderTicket{}
	for rows.Next() {
		ht, err := scanHolderTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning holder ticket row: %w", err)
		}
		tickets = append(tickets, *ht)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating holder ticket rows: %w", err)
	}

	return tickets, nil
}

// MarkUsed performs the valid to used transition as one conditional update.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := store.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE tickets SET state = 'used', scanned_at = $2 WHERE id = $1 AND state = 'valid'`, id, at)
	if err != nil {
		return false, fmt.Errorf("marking ticket used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Reactivate performs the used to valid transition and clears the scan time.
func (r *PostgresRepository) Reactivate(ctx context.Context, id int64) (bool, error) {
	tag, err := store.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE tickets SET state = 'valid', scanned_at = NULL WHERE id = $1 AND state = 'used'`, id)
	if err != nil {
		return false, fmt.Errorf("reactivating ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountScanned returns the number of used tickets for an event.
func (r *PostgresRepository) CountScanned(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := store.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND state = 'used'`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting scanned tickets: %w", err)
	}
	return n, nil
}

// ScanTimes returns every recorded scan time for an event in ascending order.
func (r *PostgresRepository) ScanTimes(ctx context.Context, eventID int64) ([]time.Time, error) {
	rows, err := store.Conn(ctx, r.pool).Query(ctx,
		`SELECT scanned_at FROM tickets WHERE event_id = $1 AND scanned_at IS NOT NULL ORDER BY scanned_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing scan times: %w", err)
	}

	times, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, fmt.Errorf("collecting scan times: %w", err)
	}
	return times, nil
}

func scanHolderTicket(row pgx.Row) (*HolderTicket, error) {
	var ht HolderTicket
	var state string
	err := row.Scan(
		&ht.ID, &ht.Code, &ht.HolderID, &ht.EventID, &ht.AttendeeName, &state, &ht.ScannedAt, &ht.CreatedAt,
		&ht.EventName, &ht.EventStartsAt, &ht.EventPrice,
	)
	if err != nil {
		return nil, err
	}
	ht.State = State(state)
	return &ht, nil
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	var state string
	err := row.Scan(&t.ID, &t.Code, &t.HolderID, &t.EventID, &t.AttendeeName, &state, &t.ScannedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("querying ticket: %w", err)
	}
	t.State = State(state)
	return &t, nil
}
