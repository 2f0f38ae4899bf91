package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	keys := map[string]string{"k1": "secret-one", "k2": "secret-two"}
	iss, err := NewIssuer(keys, "k2", time.Hour)
	require.NoError(t, err)

	tok, exp, err := iss.Issue("admin", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	v := New(keys, time.Minute)
	sub, err := v.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)

	c, err := v.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Role)
}

func TestValidateRejects(t *testing.T) {
	keys := map[string]string{"k1": "secret-one"}
	v := New(keys, 0)

	_, err := v.Validate("")
	assert.ErrorIs(t, err, ErrNoToken)

	other, _ := NewIssuer(map[string]string{"k1": "wrong"}, "", time.Hour)
	tok, _, _ := other.Issue("admin", "admin")
	_, err = v.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalid)

	unknown, _ := NewIssuer(map[string]string{"k9": "secret-one"}, "", time.Hour)
	tok, _, _ = unknown.Issue("admin", "admin")
	_, err = New(map[string]string{"k1": "a", "k2": "b"}, 0).Validate(tok)
	assert.ErrorIs(t, err, ErrUnknownKid)

	_, err = New(nil, 0).Validate(tok)
	assert.ErrorIs(t, err, ErrNoKeys)
}

func TestExpiryHonorsSkew(t *testing.T) {
	keys := map[string]string{"k1": "secret-one"}
	iss, err := NewIssuer(keys, "k1", time.Minute)
	require.NoError(t, err)
	iss.now = func() time.Time { return time.Now().Add(-90 * time.Second) }
	tok, _, err := iss.Issue("admin", "admin")
	require.NoError(t, err)

	_, err = New(keys, 0).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = New(keys, 2*time.Minute).Validate(tok)
	assert.NoError(t, err)
}

func TestTokenWithoutKidSingleKey(t *testing.T) {
	tok, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret-one"))
	require.NoError(t, err)

	sub, err := New(map[string]string{"default": "secret-one"}, 0).Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)
}

func TestTokenWithoutExpiryRejected(t *testing.T) {
	tok, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.RegisteredClaims{Subject: "admin"}).
		SignedString([]byte("secret-one"))
	require.NoError(t, err)

	_, err = New(map[string]string{"default": "secret-one"}, 0).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewIssuerErrors(t *testing.T) {
	_, err := NewIssuer(nil, "", time.Hour)
	assert.ErrorIs(t, err, ErrNoKeys)
	_, err = NewIssuer(map[string]string{"a": "x"}, "b", time.Hour)
	assert.ErrorIs(t, err, ErrUnknownKid)
}
