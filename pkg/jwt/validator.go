package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken    = errors.New("no token")
	ErrInvalid    = errors.New("invalid token")
	ErrUnknownKid = errors.New("unknown kid")
	ErrNoKeys     = errors.New("no signing keys configured")
)

// Claims carries the admin session. Role is always "admin" today.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwtv5.RegisteredClaims
}

type Validator struct {
	keys map[string]string
	skew time.Duration
}

func New(keys map[string]string, skew time.Duration) *Validator {
	return &Validator{keys: keys, skew: skew}
}

// Validate checks signature and time claims and returns the subject.
func (v *Validator) Validate(token string) (string, error) {
	c, err := v.Parse(token)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

func (v *Validator) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if len(v.keys) == 0 {
		return nil, ErrNoKeys
	}

	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithLeeway(v.skew),
		jwtv5.WithIssuedAt(),
		jwtv5.WithExpirationRequired(),
	)
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(token, claims, func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		sec, err := secret(v.keys, kid)
		if err != nil {
			return nil, err
		}
		return []byte(sec), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !tok.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}

// secret resolves a kid. A token without kid is accepted when exactly one key
// is configured.
func secret(keys map[string]string, kid string) (string, error) {
	if kid == "" && len(keys) == 1 {
		for _, s := range keys {
			return s, nil
		}
	}
	s, ok := keys[kid]
	if !ok {
		return "", ErrUnknownKid
	}
	return s, nil
}
