package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	master, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewSigner(master, "visitor-cookie")
	require.NoError(t, err)

	token, err := s.Sign("3f1c2a")
	require.NoError(t, err)
	value, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "3f1c2a", value)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	for _, bad := range []string{"", "3f1c2a", "a.b.c", tampered, token + "x"} {
		_, err := s.Verify(bad)
		assert.ErrorIs(t, err, ErrBadSignature, bad)
	}
}

func TestSignerRejectsOtherKeysAndMethods(t *testing.T) {
	master, err := GenerateKey()
	require.NoError(t, err)
	cookies, err := NewSigner(master, "visitor-cookie")
	require.NoError(t, err)
	other, err := NewSigner(master, "other")
	require.NoError(t, err)

	token, err := other.Sign("3f1c2a")
	require.NoError(t, err)
	_, err = cookies.Verify(token)
	assert.ErrorIs(t, err, ErrBadSignature, "key derived for another purpose")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:  SignerIssuer,
		Subject: "3f1c2a",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = cookies.Verify(none)
	assert.ErrorIs(t, err, ErrBadSignature, "unsigned token")

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  "someone-else",
		Subject: "3f1c2a",
	}).SignedString(cookies.key)
	require.NoError(t, err)
	_, err = cookies.Verify(foreign)
	assert.ErrorIs(t, err, ErrBadSignature, "wrong issuer")
}

func TestSignerStampsIssuedAt(t *testing.T) {
	master, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewSigner(master, "visitor-cookie")
	require.NoError(t, err)
	at := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	token, err := s.Sign("3f1c2a")
	require.NoError(t, err)
	var claims jwt.RegisteredClaims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.Equal(t, at, claims.IssuedAt.Time.UTC())
	assert.Equal(t, "3f1c2a", claims.Subject)
}

func TestDerivedKeysDifferByPurpose(t *testing.T) {
	master, err := GenerateKey()
	require.NoError(t, err)
	a, err := DeriveKey(master, "a")
	require.NoError(t, err)
	b, err := DeriveKey(master, "b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	again, err := DeriveKey(master, "a")
	require.NoError(t, err)
	assert.Equal(t, a, again)

	_, err = DeriveKey([]byte("short"), "a")
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookie.key")
	require.NoError(t, WriteKeyFile(path))
	assert.Error(t, WriteKeyFile(path), "refuses to overwrite")

	key, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestParseKeyHex(t *testing.T) {
	_, err := ParseKeyHex("zz")
	assert.Error(t, err)
	_, err = ParseKeyHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}
