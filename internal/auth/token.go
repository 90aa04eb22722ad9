package auth

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
)

// tokenTypeRefresh marks refresh tokens, which are only valid at the issuer's
// refresh endpoint and never as request credentials.
const tokenTypeRefresh = "refresh"

// Claims is the payload of an access token. Subject carries the decimal user id.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type,omitempty"`
}

// TokenVerifier checks HMAC-signed access tokens. Tokens are minted by the
// account service; this side only verifies them.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for tokens signed with secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses the token, checks signature and expiry, and returns the user id.
func (v *TokenVerifier) Verify(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if !token.Valid {
		return 0, ErrInvalidCredentials
	}
	if claims.Type == tokenTypeRefresh {
		return 0, fmt.Errorf("%w: refresh token used as access token", ErrInvalidCredentials)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: malformed subject", ErrInvalidCredentials)
	}

	return userID, nil
}
