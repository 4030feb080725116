package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestBcryptVerifier(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)

	v, err := NewBcryptVerifier(string(hash))
	require.NoError(t, err)
	assert.NoError(t, v.Verify("1234"))
	assert.ErrorIs(t, v.Verify("4321"), ErrInvalidPIN)
	assert.ErrorIs(t, v.Verify(""), ErrInvalidPIN)

	_, err = NewBcryptVerifier("not-a-hash")
	assert.Error(t, err)
}

func TestHashPIN(t *testing.T) {
	hash, err := HashPIN("2468")
	require.NoError(t, err)

	v, err := NewBcryptVerifier(hash)
	require.NoError(t, err)
	assert.NoError(t, v.Verify("2468"))
}

func TestPlainVerifier(t *testing.T) {
	v := NewPlainVerifier("1234")
	assert.NoError(t, v.Verify("1234"))
	assert.ErrorIs(t, v.Verify("12345"), ErrInvalidPIN)
	assert.ErrorIs(t, v.Verify(""), ErrInvalidPIN)
}

func TestNewTokenIssuer_ShortSecret(t *testing.T) {
	_, err := NewTokenIssuer([]byte("short"), 0)
	require.Error(t, err)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Minute)
	require.NoError(t, err)

	token, expires, err := issuer.Issue()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 5*time.Second)
	assert.NoError(t, issuer.Validate(token))
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Minute)
	require.NoError(t, err)
	token, _, err := issuer.Issue()
	require.NoError(t, err)

	other, err := NewTokenIssuer([]byte("fedcba9876543210fedcba9876543210"), time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		check func() error
	}{
		{"empty", func() error { return issuer.Validate("") }},
		{"garbage", func() error { return issuer.Validate("a.b.c") }},
		{"other secret", func() error { return other.Validate(token) }},
		{"tampered", func() error { return issuer.Validate(token + "x") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.check(), ErrInvalidToken)
		})
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Minute)
	require.NoError(t, err)
	now := time.Now()
	issuer.now = func() time.Time { return now }

	token, _, err := issuer.Issue()
	require.NoError(t, err)
	require.NoError(t, issuer.Validate(token))

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, issuer.Validate(token), ErrInvalidToken)
}

func TestGate(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, 0)
	require.NoError(t, err)
	gate := NewGate(NewPlainVerifier("1234"), issuer)

	_, _, err = gate.Unlock("0000")
	require.ErrorIs(t, err, ErrInvalidPIN)

	token, _, err := gate.Unlock("1234")
	require.NoError(t, err)
	assert.NoError(t, gate.Authorize(token))

	locked := NewGate(nil, issuer)
	_, _, err = locked.Unlock("1234")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
