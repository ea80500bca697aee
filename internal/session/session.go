// Package session mints and verifies the dashboard session token.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Claims is the token payload. Email is the owner key of stored claims.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an issuer. An empty secret is rejected.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("session secret required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for p and returns it with its lifetime.
func (i *Issuer) Issue(p models.Principal) (string, time.Duration, error) {
	if p.UserID == "" {
		return "", 0, errors.New("principal without user id")
	}
	now := i.now()
	claims := Claims{
		Email: p.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign session: %w", err)
	}
	return signed, i.ttl, nil
}

// Verify parses a token and returns the principal it was issued for.
func (i *Issuer) Verify(token string) (models.Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return models.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Email == "" {
		return models.Principal{}, fmt.Errorf("%w: missing email", ErrInvalidToken)
	}
	return models.Principal{UserID: claims.Email, Subject: claims.Subject}, nil
}
