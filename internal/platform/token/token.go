// Package token verifies the auth tokens issued by the accounts system.
// Token issuance lives there; this service only validates and extracts the
// {userId, role, permissions} principal.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "basera/pkg/domain"
)

// Principal is the authenticated identity extracted from a token.
type Principal struct {
	UserID      id.UserID
	Role        id.Role
	Permissions id.Permissions
}

// Verifier validates HMAC-signed bearer tokens.
type Verifier struct {
	signingKey []byte
}

// NewVerifier constructs a Verifier with the shared signing key.
func NewVerifier(signingKey string) *Verifier {
	return &Verifier{signingKey: []byte(signingKey)}
}

type claims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses and validates a token string, returning the principal.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID, err := id.ParseUserID(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	role, err := id.ParseRole(c.Role)
	if err != nil {
		return nil, fmt.Errorf("invalid role claim: %w", err)
	}

	perms := make(id.Permissions, 0, len(c.Permissions))
	for _, p := range c.Permissions {
		perms = append(perms, id.Permission(p))
	}

	return &Principal{UserID: userID, Role: role, Permissions: perms}, nil
}

// Sign issues a token for the given principal. Used by development wiring
// and tests; production tokens come from the accounts system.
func Sign(signingKey string, p Principal, ttl time.Duration) (string, error) {
	perms := make([]string, 0, len(p.Permissions))
	for _, perm := range p.Permissions {
		perms = append(perms, string(perm))
	}
	now := time.Now()
	c := claims{
		Role:        p.Role.String(),
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(signingKey))
}
