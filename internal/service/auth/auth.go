// Package auth validates bearer credentials and resolves identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumenchat/lumen/backend/internal/model/chat"
)

var (
	ErrTokenMissing    = errors.New("token is missing")
	ErrTokenMalformed  = errors.New("token is malformed")
	ErrTokenExpired    = errors.New("token is expired")
	ErrTokenSignature  = errors.New("token signature is invalid")
	ErrUnknownIdentity = errors.New("token subject is not a known user")
)

// UserLookup resolves a username to a stored account.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (chat.User, error)
}

// Verifier checks HS256 bearer tokens and resolves their subject to an
// identity.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	users  UserLookup
}

// NewVerifier builds a verifier over the shared signing secret.
func NewVerifier(secret string, ttl time.Duration, users UserLookup) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl, users: users}
}

// ValidateToken checks the signature and expiry of a credential, then
// resolves its subject. The returned identity is immutable for the lifetime
// of a connection.
func (v *Verifier) ValidateToken(ctx context.Context, token string) (chat.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return chat.Identity{}, ErrTokenMissing
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})

	switch {
	case err == nil && parsed.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return chat.Identity{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return chat.Identity{}, ErrTokenSignature
	default:
		return chat.Identity{}, ErrTokenMalformed
	}

	if claims.Subject == "" {
		return chat.Identity{}, ErrTokenMalformed
	}

	user, err := v.users.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		return chat.Identity{}, ErrUnknownIdentity
	}

	return user.Identity(), nil
}

// IssueToken mints a credential whose subject is the username.
func (v *Verifier) IssueToken(username string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
