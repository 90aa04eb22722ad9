package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daap14/turnstile/internal/store"
)

const userColumns = `id, username, full_name, email, role, is_active, is_banned,
		       api_key_prefix, api_key_hash, created_at`

// PostgresRepository implements UserRepository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new UserRepository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) UserRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	if u.Role == "" {
		u.Role = RoleUser
	}

	query := `
		INSERT INTO users (username, full_name, email, role, api_key_prefix, api_key_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, is_banned, created_at`

	err := store.Conn(ctx, r.pool).QueryRow(ctx, query,
		u.Username,
		u.FullName,
		u.Email,
		string(u.Role),
		u.APIKeyPrefix,
		u.APIKeyHash,
	).Scan(&u.ID, &u.IsActive, &u.IsBanned, &u.CreatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a single user by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// GetByEmail retrieves a single user by email, case-insensitively.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(ctx, query, email)
}

// FindByPrefix returns users whose API key starts with the given prefix.
func (r *PostgresRepository) FindByPrefix(ctx context.Context, prefix string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE api_key_prefix = $1`

	rows, err := store.Conn(ctx, r.pool).Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("finding users by prefix: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

// CountByRole returns the number of users holding role.
func (r *PostgresRepository) CountByRole(ctx context.Context, role Role) (int, error) {
	var count int
	err := store.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (*User, error) {
	u, err := scanUser(store.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(
		&u.ID, &u.Username, &u.FullName, &u.Email, &role,
		&u.IsActive, &u.IsBanned,
		&u.APIKeyPrefix, &u.APIKeyHash, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role, err = ParseRole(role)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
