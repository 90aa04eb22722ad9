package auth

import (
	"fmt"
	"time"
)

// Role is the closed set of platform roles a user can hold.
type Role string

const (
	RoleUser     Role = "user"
	RoleScanner  Role = "scanner"
	RolePromoter Role = "promoter"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleScanner, RolePromoter, RoleOwner, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleScanner, RolePromoter, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// CanLeadTeams reports whether the role may create teams.
func (r Role) CanLeadTeams() bool {
	switch r {
	case RolePromoter, RoleOwner, RoleAdmin:
		return true
	case RoleUser, RoleScanner:
		return false
	}
	return false
}

// ParseRole converts a stored role string into a Role. The legacy spelling
// "promotor" is accepted for rows written by older clients.
func ParseRole(s string) (Role, error) {
	if s == "promotor" {
		return RolePromoter, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User represents a row in the users table.
type User struct {
	ID           int64
	Username     string
	FullName     string
	Email        string
	Role         Role
	IsActive     bool
	IsBanned     bool
	APIKeyPrefix *string
	APIKeyHash   *string
	CreatedAt    time.Time
}

// Identity is stored in the request context after authentication.
type Identity struct {
	UserID   int64
	Username string
	FullName string
	Email    string
	Role     Role
}

// IsAdmin reports whether the identity holds the global admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
