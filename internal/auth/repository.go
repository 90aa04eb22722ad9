package auth

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUser is returned when the username or email is already taken.
var ErrDuplicateUser = errors.New("user already exists")

// UserRepository provides operations on the users table.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	FindByPrefix(ctx context.Context, prefix string) ([]User, error)
	CountByRole(ctx context.Context, role Role) (int, error)
}
