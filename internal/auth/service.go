package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a token or API key does not resolve to a user.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInactiveUser is returned when the authenticated user has been deactivated.
var ErrInactiveUser = errors.New("user is inactive")

// ErrBannedUser is returned when the authenticated user has been banned.
var ErrBannedUser = errors.New("user is banned")

const (
	apiKeyPrefix    = "tsk_"
	apiKeyPrefixLen = 8
)

// Service resolves request credentials to identities. It keeps no session state:
// every call verifies the credential and reloads the user row.
type Service struct {
	users      UserRepository
	tokens     *TokenVerifier
	bcryptCost int
}

// NewService creates a new auth Service.
func NewService(users UserRepository, tokens *TokenVerifier, bcryptCost int) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// AuthenticateToken resolves a bearer access token to an Identity.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*Identity, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading token user: %w", err)
	}

	return buildIdentity(u)
}

// AuthenticateAPIKey resolves a scanner-device API key to an Identity. It extracts
// the prefix, looks up candidates, and bcrypt-compares each one.
func (s *Service) AuthenticateAPIKey(ctx context.Context, rawKey string) (*Identity, error) {
	if len(rawKey) < apiKeyPrefixLen || !strings.HasPrefix(rawKey, apiKeyPrefix) {
		return nil, ErrInvalidCredentials
	}

	candidates, err := s.users.FindByPrefix(ctx, rawKey[:apiKeyPrefixLen])
	if err != nil {
		return nil, fmt.Errorf("finding users by prefix: %w", err)
	}

	for i := range candidates {
		u := &candidates[i]
		if u.APIKeyHash == nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(*u.APIKeyHash), []byte(rawKey)) == nil {
			return buildIdentity(u)
		}
	}

	return nil, ErrInvalidCredentials
}

// GenerateKey creates a new API key. Returns the raw key, its prefix (first 8 chars),
// and the bcrypt hash. The raw key is: 32 random bytes -> base64url -> prepend "tsk_".
func (s *Service) GenerateKey() (rawKey, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	rawKey = apiKeyPrefix + base64.RawURLEncoding.EncodeToString(b)
	prefix = rawKey[:apiKeyPrefixLen]

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(rawKey), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing key: %w", err)
	}

	return rawKey, prefix, string(hashBytes), nil
}

// BootstrapAdmin creates an admin user with an API key if no admin exists yet.
// Returns the raw API key (only displayed once). If an admin already exists,
// returns empty string.
func (s *Service) BootstrapAdmin(ctx context.Context, email string) (string, error) {
	count, err := s.users.CountByRole(ctx, RoleAdmin)
	if err != nil {
		return "", fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		return "", nil
	}

	rawKey, prefix, hash, err := s.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("generating admin key: %w", err)
	}

	admin := &User{
		Username:     "admin",
		FullName:     "Administrator",
		Email:        email,
		Role:         RoleAdmin,
		APIKeyPrefix: &prefix,
		APIKeyHash:   &hash,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating admin: %w", err)
	}

	slog.Info("admin API key created", "key", rawKey, "userId", admin.ID)

	return rawKey, nil
}

func buildIdentity(u *User) (*Identity, error) {
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	if u.IsBanned {
		return nil, ErrBannedUser
	}

	return &Identity{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
	}, nil
}
