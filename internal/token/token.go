package token

import (
	"errors"
	"time"

	"ecommerce-platform/internal/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TTL is the fixed internal-token lifetime. Tokens are minted per proxied
// request, so a short window bounds the damage of a leaked token.
const TTL = 5 * time.Minute

// ErrInvalidToken is the single failure surfaced to callers. Expired,
// malformed, wrong-issuer and wrong-audience tokens are indistinguishable at
// the API surface; the specific reason belongs in server-side logs only.
var ErrInvalidToken = errors.New("token: invalid internal token")

// Manager mints and validates the short-lived tokens that carry end-user
// identity from the gateway to the microservice fleet.
type Manager struct {
	secret []byte
}

func NewManager(secret string) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("INTERNAL_JWT_SECRET is required")
	}
	return &Manager{secret: []byte(secret)}, nil
}

// Issue mints a fresh token for id. Two tokens minted at the same instant
// share every claim except the random jti.
func (m *Manager) Issue(now time.Time, id identity.Identity) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
			ID:        uuid.NewString(),
		},
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

// Verify checks signature, expiry, issuer, audience and required custom
// claims. Every failure collapses to ErrInvalidToken.
func (m *Manager) Verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	// Claim validation is deferred to the explicit validator below so the
	// caller's clock is authoritative; the parser only checks structure and
	// signature.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	validator := jwt.NewValidator(
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
	)
	if err := validator.Validate(claims.RegisteredClaims); err != nil {
		return Claims{}, ErrInvalidToken
	}

	if claims.UserID == "" || claims.Email == "" || claims.Role == "" {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// Identity projects verified claims into the request-scoped identity shape.
func (c Claims) Identity() identity.Identity {
	return identity.Identity{UserID: c.UserID, Email: c.Email, Role: c.Role}
}
