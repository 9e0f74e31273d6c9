package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignerIssuer is the issuer claim of every token a Signer produces.
const SignerIssuer = "forgaile"

// ErrBadSignature is returned for tampered, malformed or foreign tokens.
var ErrBadSignature = errors.New("bad signature")

// Signer issues HS256 tokens carrying short values such as visitor ids.
type Signer struct {
	key []byte
	now func() time.Time
}

// NewSigner derives the signing key for purpose from master.
func NewSigner(master []byte, purpose string) (*Signer, error) {
	key, err := DeriveKey(master, purpose)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key, now: time.Now}, nil
}

// Sign returns a token whose subject is value.
func (s *Signer) Sign(value string) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:   SignerIssuer,
		Subject:  value,
		IssuedAt: jwt.NewNumericDate(s.now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify returns the subject of a token produced by Sign with the same key.
func (s *Signer) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(SignerIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if claims.Subject == "" {
		return "", ErrBadSignature
	}
	return claims.Subject, nil
}
