package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func buildToken(t *testing.T, issuer string, issued, notBefore, expires time.Time) jwt.Token {
	t.Helper()
	return buildTokenFor(t, "ops", issuer, issued, notBefore, expires)
}

func buildTokenFor(t *testing.T, subject, issuer string, issued, notBefore, expires time.Time) jwt.Token {
	t.Helper()
	builder := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{"aud"}).
		Subject(subject).
		IssuedAt(issued).
		NotBefore(notBefore)
	if !expires.IsZero() {
		builder = builder.Expiration(expires)
	}
	token, err := builder.Build()
	require.NoError(t, err)
	return token
}

func TestTokenValidatorSubject(t *testing.T) {
	now := time.Now()
	token := buildToken(t, "issuer", now, now, now.Add(time.Minute))
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", ClockSkew: time.Second, Algorithm: jwa.HS256}
	subject, err := validator.Subject(token, jwa.HS256, now)
	require.NoError(t, err)
	require.Equal(t, "ops", subject)
}

func TestTokenValidatorRejections(t *testing.T) {
	now := time.Now()
	validator := TokenValidator{Issuer: "issuer", Audience: "aud", ClockSkew: time.Second, Algorithm: jwa.HS256, MaxLifetime: time.Hour}

	cases := map[string]struct {
		token jwt.Token
		alg   jwa.SignatureAlgorithm
	}{
		"issuer mismatch": {buildToken(t, "other", now, now, now.Add(time.Minute)), jwa.HS256},
		"expired":         {buildToken(t, "issuer", now.Add(-2*time.Hour), now.Add(-2*time.Hour), now.Add(-time.Minute)), jwa.HS256},
		"not before":      {buildToken(t, "issuer", now, now.Add(5*time.Minute), now.Add(10*time.Minute)), jwa.HS256},
		"no expiry":       {buildToken(t, "issuer", now, now, time.Time{}), jwa.HS256},
		"algorithm":       {buildToken(t, "issuer", now, now, now.Add(time.Minute)), jwa.RS256},
		"no algorithm":    {buildToken(t, "issuer", now, now, now.Add(time.Minute)), ""},
		"no subject":      {buildTokenFor(t, "", "issuer", now, now, now.Add(time.Minute)), jwa.HS256},
		"too long":        {buildToken(t, "issuer", now, now, now.Add(48*time.Hour)), jwa.HS256},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := validator.Subject(tc.token, tc.alg, now)
			require.Error(t, err)
		})
	}
	_, err := validator.Subject(nil, jwa.HS256, now)
	require.Error(t, err)
}
