package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when a token cannot be decoded.
	ErrMalformedToken = errors.New("malformed access token")
	// ErrNoExpiry is returned by helpers that need an exp claim the token lacks.
	ErrNoExpiry = errors.New("access token has no expiry")
)

// Claims is the unverified view of an access token.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	// Extra holds non-registered claims, such as a role or user id, as decoded JSON values.
	Extra map[string]any
}

// HasExpiry reports whether the token carries an exp claim.
func (c Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// Expired reports whether the token is expired at now. Tokens without exp never expire.
func (c Claims) Expired(now time.Time) bool {
	return c.HasExpiry() && !now.Before(c.ExpiresAt)
}

// ExpiresWithin reports whether the token expires within window of now.
// Already-expired tokens report true.
func (c Claims) ExpiresWithin(now time.Time, window time.Duration) bool {
	if !c.HasExpiry() {
		return false
	}
	return !now.Add(window).Before(c.ExpiresAt)
}

// Remaining returns the time left before expiry.
func (c Claims) Remaining(now time.Time) (time.Duration, error) {
	if !c.HasExpiry() {
		return 0, ErrNoExpiry
	}
	return c.ExpiresAt.Sub(now), nil
}

var registered = map[string]struct{}{
	"sub": {}, "iss": {}, "aud": {}, "exp": {}, "iat": {}, "nbf": {}, "jti": {},
}

// Inspect decodes token without verifying its signature.
func Inspect(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	raw := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, raw); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var out Claims
	var err error
	if out.Subject, err = raw.GetSubject(); err != nil {
		return Claims{}, fmt.Errorf("%w: sub: %v", ErrMalformedToken, err)
	}
	if out.Issuer, err = raw.GetIssuer(); err != nil {
		return Claims{}, fmt.Errorf("%w: iss: %v", ErrMalformedToken, err)
	}
	aud, err := raw.GetAudience()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: aud: %v", ErrMalformedToken, err)
	}
	out.Audience = []string(aud)

	exp, err := raw.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: exp: %v", ErrMalformedToken, err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}
	iat, err := raw.GetIssuedAt()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: iat: %v", ErrMalformedToken, err)
	}
	if iat != nil {
		out.IssuedAt = iat.Time
	}

	for key, v := range raw {
		if _, ok := registered[key]; ok {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[key] = v
	}
	return out, nil
}
