package team

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daap14/turnstile/internal/store"
)

const membershipColumns = `id, team_id, user_id, status, invited_at, joined_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new team record.
func (r *PostgresRepository) Create(ctx context.Context, t *Team) error {
	query := `
		INSERT INTO teams (name, leader_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := store.Conn(ctx, r.pool).QueryRow(ctx, query, t.Name, t.LeaderID).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrDuplicateTeamName
		}
		return fmt.Errorf("inserting team: %w", err)
	}

	return nil
}

// GetByID retrieves a single team by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Team, error) {
	query := `
		SELECT id, name, leader_id, created_at
		FROM teams
		WHERE id = $1`

	var t Team
	err := store.Conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.LeaderID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return &t, nil
}

// ListByLeader retrieves teams led by leaderID with their accepted member count.
func (r *PostgresRepository) ListByLeader(ctx context.Context, leaderID int64) ([]Team, error) {
	query := `
		SELECT t.id, t.name, t.leader_id, t.created_at,
		       COUNT(m.id) FILTER (WHERE m.status = 'accepted')
		FROM teams t
		LEFT JOIN team_members m ON m.team_id = t.id
		WHERE t.leader_id = $1
		GROUP BY t.id
		ORDER BY t.created_at ASC`

	return r.listTeams(ctx, query, leaderID)
}

// ListByMember retrieves teams in which userID is an accepted member.
func (r *PostgresRepository) ListByMember(ctx context.Context, userID int64) ([]Team, error) {
	query := `
		SELECT t.id, t.name, t.leader_id, t.created_at,
		       (SELECT COUNT(*) FROM team_members c WHERE c.team_id = t.id AND c.status = 'accepted')
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1 AND m.status = 'accepted'
		ORDER BY t.created_at ASC`

	return r.listTeams(ctx, query, userID)
}

// ListMembers returns every membership of the team with user details.
func (r *PostgresRepository) ListMembers(ctx context.Context, teamID int64) ([]Member, error) {
	query := `
		SELECT m.id, m.team_id, m.user_id, m.status, m.invited_at, m.joined_at,
		       u.username, u.full_name, u.email
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.invited_at ASC`

	rows, err := store.Conn(ctx, r.pool).Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing team members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		var status string
		err := rows.Scan(
			&m.ID, &m.TeamID, &m.UserID, &status, &m.InvitedAt, &m.JoinedAt,
			&m.Username, &m.FullName, &m.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning team member row: %w", err)
		}
		m.Status = Status(status)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team member rows: %w", err)
	}

	return members, nil
}

// GetMembership retrieves the membership of userID in teamID.
func (r *PostgresRepository) GetMembership(ctx context.Context, teamID, userID int64) (*Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_members WHERE team_id = $1 AND user_id = $2`
	return r.scanMembership(store.Conn(ctx, r.pool).QueryRow(ctx, query, teamID, userID))
}

// GetMembershipByID retrieves a membership by its id.
func (r *PostgresRepository) GetMembershipByID(ctx context.Context, id int64) (*Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_members WHERE id = $1`
	return r.scanMembership(store.Conn(ctx, r.pool).QueryRow(ctx, query, id))
}

// CreateMembership inserts a new membership row.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO team_members (team_id, user_id, status, invited_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := store.Conn(ctx, r.pool).QueryRow(ctx, query, m.TeamID, m.UserID, string(m.Status), m.InvitedAt).Scan(&m.ID)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrMembershipExists
		}
		if store.IsForeignKeyViolation(err) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("inserting membership: %w", err)
	}

	return nil
}

// TransitionMembership performs a conditional status update.
func (r *PostgresRepository) TransitionMembership(ctx context.Context, id int64, from, to Status, at time.Time) (*Membership, error) {
	query := `
		UPDATE team_members
		SET status     = $3::text,
		    invited_at = CASE WHEN $3::text = 'pending' THEN $4::timestamptz ELSE invited_at END,
		    joined_at  = CASE WHEN $3::text = 'accepted' THEN $4::timestamptz ELSE joined_at END
		WHERE id = $1 AND status = $2
		RETURNING ` + membershipColumns

	m, err := r.scanMembership(store.Conn(ctx, r.pool).QueryRow(ctx, query, id, string(from), string(to), at))
	if errors.Is(err, ErrMembershipNotFound) {
		return nil, ErrStatusConflict
	}
	return m, err
}

// ListInvitations returns pending invitations addressed to userID.
func (r *PostgresRepository) ListInvitations(ctx context.Context, userID int64) ([]Invitation, error) {
	query := `
		SELECT m.id, m.team_id, m.user_id, m.status, m.invited_at, m.joined_at, t.name
		FROM team_members m
		JOIN teams t ON t.id = m.team_id
		WHERE m.user_id = $1 AND m.status = 'pending'
		ORDER BY m.invited_at DESC`

	rows, err := store.Conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()

	invitations := []Invitation{}
	for rows.Next() {
		var inv Invitation
		var status string
		err := rows.Scan(&inv.ID, &inv.TeamID, &inv.UserID, &status, &inv.InvitedAt, &inv.JoinedAt, &inv.TeamName)
		if err != nil {
			return nil, fmt.Errorf("scanning invitation row: %w", err)
		}
		inv.Status = Status(status)
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invitation rows: %w", err)
	}

	return invitations, nil
}

// HasAcceptedMembership checks accepted membership in a leader's teams or in the given teams.
func (r *PostgresRepository) HasAcceptedMembership(ctx context.Context, userID, leaderID int64, teamIDs []int64) (bool, error) {
	if teamIDs == nil {
		teamIDs = []int64{}
	}

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM team_members m
			JOIN teams t ON t.id = m.team_id
			WHERE m.user_id = $1
			  AND m.status = 'accepted'
			  AND (t.leader_id = $2 OR t.id = ANY($3))
		)`

	var ok bool
	if err := store.Conn(ctx, r.pool).QueryRow(ctx, query, userID, leaderID, teamIDs).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) listTeams(ctx context.Context, query string, arg int64) ([]Team, error) {
	rows, err := store.Conn(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	teams := []Team{}
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.LeaderID, &t.CreatedAt, &t.MemberCount); err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team rows: %w", err)
	}

	return teams, nil
}

func (r *PostgresRepository) scanMembership(row pgx.Row) (*Membership, error) {
	var m Membership
	var status string
	err := row.Scan(&m.ID, &m.TeamID, &m.UserID, &status, &m.InvitedAt, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("querying membership: %w", err)
	}
	m.Status = Status(status)
	return &m, nil
}
