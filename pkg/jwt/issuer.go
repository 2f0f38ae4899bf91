package jwt

import (
	"sort"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer signs HS256 session tokens with one of the configured keys.
type Issuer struct {
	kid    string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer signs with the key named kid, or with the first key in name order
// when kid is empty.
func NewIssuer(keys map[string]string, kid string, ttl time.Duration) (*Issuer, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	if kid == "" {
		names := make([]string, 0, len(keys))
		for k := range keys {
			names = append(names, k)
		}
		sort.Strings(names)
		kid = names[0]
	}
	sec, ok := keys[kid]
	if !ok {
		return nil, ErrUnknownKid
	}
	return &Issuer{kid: kid, secret: []byte(sec), ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) Issue(subject, role string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	c := Claims{
		Role: role,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, c)
	tok.Header["kid"] = i.kid
	s, err := tok.SignedString(i.secret)
	return s, exp, err
}
