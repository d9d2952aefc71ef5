package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-discount/internal/common"
)

// Verifier checks HS256 admin bearer tokens against a shared secret.
type Verifier struct {
	secret    []byte
	validator TokenValidator
	now       func() time.Time
}

// NewVerifier constructs a Verifier. An empty secret rejects every token.
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		validator: TokenValidator{
			Issuer:      issuer,
			Audience:    audience,
			ClockSkew:   30 * time.Second,
			Algorithm:   jwa.HS256,
			MaxLifetime: 12 * time.Hour,
		},
		now: time.Now,
	}
}

// ParseAccessToken verifies the token signature and claims and returns its subject.
func (v *Verifier) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	if len(v.secret) == 0 {
		return "", common.NewAppError("UNAUTHORIZED", "admin access disabled", http.StatusUnauthorized, errors.New("auth: no admin secret configured"))
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != v.validator.Algorithm {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.secret), jwt.WithValidate(false))
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	subject, err := v.validator.Subject(parsed, algorithm, v.now())
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return subject, nil
}

// Sign issues a token for subject valid for ttl. Used by tooling and tests.
func (v *Verifier) Sign(subject string, ttl time.Duration) (string, error) {
	now := v.now()
	builder := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(now).
		NotBefore(now.Add(-v.validator.ClockSkew)).
		Expiration(now.Add(ttl))
	if v.validator.Issuer != "" {
		builder = builder.Issuer(v.validator.Issuer)
	}
	if v.validator.Audience != "" {
		builder = builder.Audience([]string{v.validator.Audience})
	}
	token, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(v.validator.Algorithm, v.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" || alg == jwa.NoSignature {
			return "", errors.New("auth: token missing algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
