package token

import (
	"errors"
	"testing"
	"time"

	"ecommerce-platform/internal/identity"

	"github.com/golang-jwt/jwt/v5"
)

var testIdentity = identity.Identity{UserID: "user-1", Email: "user@example.com", Role: "admin"}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	m, err := NewManager("internal-secret")
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, testIdentity)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "user@example.com" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 5*time.Minute {
		t.Fatalf("expected 300s lifetime, got %s", got)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m, _ := NewManager("internal-secret")
	now := time.Unix(1700000000, 0).UTC()
	tok, _ := m.Issue(now, testIdentity)

	if _, err := m.Verify(tok, now.Add(6*time.Minute)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a, _ := NewManager("secret-a")
	b, _ := NewManager("secret-b")

	now := time.Unix(1700000000, 0).UTC()
	tok, _ := a.Issue(now, testIdentity)

	if _, err := b.Verify(tok, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongIssuerOrAudience(t *testing.T) {
	m, _ := NewManager("internal-secret")
	now := time.Unix(1700000000, 0).UTC()

	mint := func(iss, aud string) string {
		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    iss,
				Audience:  jwt.ClaimStrings{aud},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
				ID:        "jti",
			},
			UserID: "u", Email: "e@example.com", Role: "customer",
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("internal-secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	if _, err := m.Verify(mint("some-other-gateway", Audience), now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected wrong issuer rejection, got %v", err)
	}
	if _, err := m.Verify(mint(Issuer, "some-other-fleet"), now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected wrong audience rejection, got %v", err)
	}
	if _, err := m.Verify(mint(Issuer, Audience), now); err != nil {
		t.Fatalf("control token should verify: %v", err)
	}
}

func TestVerifyRejectsMissingRequiredClaims(t *testing.T) {
	m, _ := NewManager("internal-secret")
	now := time.Unix(1700000000, 0).UTC()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
		UserID: "u", Role: "customer", // Email missing
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("internal-secret"))

	if _, err := m.Verify(tok, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected missing-claim rejection, got %v", err)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	m, _ := NewManager("internal-secret")
	if _, err := m.Verify("not.a.token", time.Now()); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssueSameInstantDiffersOnlyInJTI(t *testing.T) {
	m, _ := NewManager("internal-secret")
	now := time.Unix(1700000000, 0).UTC()

	t1, _ := m.Issue(now, testIdentity)
	t2, _ := m.Issue(now, testIdentity)

	c1, err := m.Verify(t1, now)
	if err != nil {
		t.Fatalf("verify t1: %v", err)
	}
	c2, err := m.Verify(t2, now)
	if err != nil {
		t.Fatalf("verify t2: %v", err)
	}

	if c1.ID == c2.ID {
		t.Fatalf("expected distinct jti")
	}
	if c1.UserID != c2.UserID || c1.Email != c2.Email || c1.Role != c2.Role {
		t.Fatalf("identity claims should be identical")
	}
	if c1.Issuer != c2.Issuer || c1.Audience[0] != c2.Audience[0] {
		t.Fatalf("issuer/audience should be identical")
	}
}
