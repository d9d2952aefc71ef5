package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	errNilToken       = errors.New("auth: token is nil")
	errNoAlgorithm    = errors.New("auth: token missing algorithm")
	errNoSubject      = errors.New("auth: token missing subject")
	errLifetimeTooBig = errors.New("auth: token lifetime exceeds limit")
)

// TokenValidator holds the claim requirements for admin tokens.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
	// MaxLifetime caps exp minus iat. Zero disables the check.
	MaxLifetime time.Duration
}

// Subject validates tok as of now and returns its subject. Tokens need an expiry and a
// subject; issuer and audience are only enforced when configured.
func (v TokenValidator) Subject(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) (string, error) {
	switch {
	case tok == nil:
		return "", errNilToken
	case algorithm == "":
		return "", errNoAlgorithm
	case v.Algorithm != "" && algorithm != v.Algorithm:
		return "", fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	if err := jwt.Validate(tok, v.options(now)...); err != nil {
		return "", err
	}
	if v.MaxLifetime > 0 && !tok.IssuedAt().IsZero() && tok.Expiration().Sub(tok.IssuedAt()) > v.MaxLifetime {
		return "", errLifetimeTooBig
	}
	if tok.Subject() == "" {
		return "", errNoSubject
	}
	return tok.Subject(), nil
}

func (v TokenValidator) options(now time.Time) []jwt.ValidateOption {
	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithAcceptableSkew(v.ClockSkew),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	return opts
}
