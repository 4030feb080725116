// Package auth gates the parent administration surface.
//
// A Verifier checks the parent PIN. A successful check yields a short-lived
// signed capability token that the HTTP layer requires on admin routes.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultTokenTTL is how long an admin token stays valid.
	DefaultTokenTTL = 15 * time.Minute

	issuer   = "linvo"
	audience = "linvo-admin"
)

var (
	// ErrInvalidPIN indicates a PIN that does not match.
	ErrInvalidPIN = errors.New("auth: invalid pin")
	// ErrInvalidToken indicates a missing, malformed or expired admin token.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrNotConfigured indicates no PIN verification strategy is configured.
	ErrNotConfigured = errors.New("auth: admin pin not configured")
)

// Verifier checks a parent PIN.
type Verifier interface {
	Verify(pin string) error
}

// BcryptVerifier compares the PIN against a bcrypt hash.
type BcryptVerifier struct {
	hash []byte
}

// NewBcryptVerifier returns a verifier for the given bcrypt hash.
func NewBcryptVerifier(hash string) (*BcryptVerifier, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: invalid bcrypt hash: %w", err)
	}
	return &BcryptVerifier{hash: []byte(hash)}, nil
}

func (v *BcryptVerifier) Verify(pin string) error {
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(pin)); err != nil {
		return ErrInvalidPIN
	}
	return nil
}

// PlainVerifier compares against a PIN held in configuration. Meant for
// development setups; prefer BcryptVerifier.
type PlainVerifier struct {
	pin []byte
}

func NewPlainVerifier(pin string) *PlainVerifier {
	return &PlainVerifier{pin: []byte(pin)}
}

func (v *PlainVerifier) Verify(pin string) error {
	if subtle.ConstantTimeCompare(v.pin, []byte(pin)) != 1 {
		return ErrInvalidPIN
	}
	return nil
}

// HashPIN returns a bcrypt hash for pin, for use as configuration.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// TokenIssuer issues and checks HS256 admin tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. ttl <= 0 uses DefaultTokenTTL.
func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("auth: token secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token and its expiry.
func (i *TokenIssuer) Issue() (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expires, nil
}

// Validate checks signature, issuer, audience and expiry.
func (i *TokenIssuer) Validate(token string) error {
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

// Gate exchanges a valid PIN for an admin token.
type Gate struct {
	verifier Verifier
	issuer   *TokenIssuer
}

// NewGate creates a gate. A nil verifier rejects every unlock attempt.
func NewGate(verifier Verifier, issuer *TokenIssuer) *Gate {
	return &Gate{verifier: verifier, issuer: issuer}
}

// Unlock verifies pin and issues a token.
func (g *Gate) Unlock(pin string) (string, time.Time, error) {
	if g.verifier == nil {
		return "", time.Time{}, ErrNotConfigured
	}
	if err := g.verifier.Verify(pin); err != nil {
		return "", time.Time{}, err
	}
	return g.issuer.Issue()
}

// Authorize validates an admin token.
func (g *Gate) Authorize(token string) error {
	return g.issuer.Validate(token)
}
