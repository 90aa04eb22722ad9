package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daap14/turnstile/internal/store"
)

const eventColumns = `id, name, capacity, price::float8, starts_at, creator_id, sales_paused`

// PostgresRepository implements Catalog using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Catalog backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Catalog {
	return &PostgresRepository{pool: pool}
}

// GetByID retrieves a single event by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Event, error) {
	return r.scanOne(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

// GetForUpdate retrieves an event and takes a row lock on it. It fails with
// store.ErrNoTx outside store.WithTx, where the lock would be released at once.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id int64) (*Event, error) {
	if !store.InTx(ctx) {
		return nil, fmt.Errorf("locking event %d: %w", id, store.ErrNoTx)
	}
	return r.scanOne(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

// AuthorizedTeamIDs returns the ids of teams explicitly assigned to the event.
func (r *PostgresRepository) AuthorizedTeamIDs(ctx context.Context, eventID int64) ([]int64, error) {
	rows, err := store.Conn(ctx, r.pool).Query(ctx,
		`SELECT team_id FROM event_teams WHERE event_id = $1 ORDER BY team_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing event teams: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collecting event team ids: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// ListTeams returns the teams assigned to the event with their names.
func (r *PostgresRepository) ListTeams(ctx context.Context, eventID int64) ([]AssignedTeam, error) {
	query := `
		SELECT t.id, t.name, t.leader_id
		FROM event_teams et
		JOIN teams t ON t.id = et.team_id
		WHERE et.event_id = $1
		ORDER BY t.name ASC`

	rows, err := store.Conn(ctx, r.pool).Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing event teams: %w", err)
	}
	defer rows.Close()

	teams := []AssignedTeam{}
	for rows.Next() {
		var t AssignedTeam
		if err := rows.Scan(&t.ID, &t.Name, &t.LeaderID); err != nil {
			return nil, fmt.Errorf("scanning event team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event team rows: %w", err)
	}

	return teams, nil
}

// ReplaceTeams deletes the current assignments and inserts the requested teams
// led by leaderID, all in one transaction.
func (r *PostgresRepository) ReplaceTeams(ctx context.Context, eventID, leaderID int64, teamIDs []int64) ([]int64, error) {
	var assigned []int64

	err := store.WithTx(ctx, r.pool, func(ctx context.Context) error {
		conn := store.Conn(ctx, r.pool)

		if _, err := conn.Exec(ctx, `DELETE FROM event_teams WHERE event_id = $1`, eventID); err != nil {
			return fmt.Errorf("clearing event teams: %w", err)
		}

		rows, err := conn.Query(ctx, `
			INSERT INTO event_teams (event_id, team_id)
			SELECT $1, t.id
			FROM teams t
			WHERE t.id = ANY($2) AND t.leader_id = $3
			ON CONFLICT DO NOTHING
			RETURNING team_id`,
			eventID, teamIDs, leaderID,
		)
		if err != nil {
			return fmt.Errorf("inserting event teams: %w", err)
		}

		assigned, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			if store.IsForeignKeyViolation(err) {
				return ErrEventNotFound
			}
			return fmt.Errorf("collecting assigned teams: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if assigned == nil {
		assigned = []int64{}
	}
	return assigned, nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, id int64) (*Event, error) {
	var e Event
	err := store.Conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.Capacity, &e.Price, &e.StartsAt, &e.CreatorID, &e.SalesPaused,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return &e, nil
}
