package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestNewIssuer(t *testing.T) {
	_, err := NewIssuer("", time.Minute)
	assert.Error(t, err)

	iss, err := NewIssuer("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, iss.TTL())
}

func TestIssueAndParse(t *testing.T) {
	iss, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)

	token, err := iss.Issue("Ana@Example.com")
	require.NoError(t, err)

	sub, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", sub)
}

func TestParseRejects(t *testing.T) {
	iss, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)
	other, err := NewIssuer("other-secret", time.Minute)
	require.NoError(t, err)

	wrongKey, err := other.Issue("ana@example.com")
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	expiredIssuer := &Issuer{secret: []byte("secret"), ttl: time.Minute, now: func() time.Time { return past }}
	expired, err := expiredIssuer.Issue("ana@example.com")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "ana@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "ana@example.com",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong key", wrongKey},
		{"expired", expired},
		{"none algorithm", noneAlg},
		{"missing subject", noSubject},
		{"missing expiry", noExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := iss.Parse(tt.token)
			assert.ErrorIs(t, err, core.ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret!"))
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	require.NoError(t, err)
	b, err := GenerateSecret(0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	raw, err := base64.URLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}
