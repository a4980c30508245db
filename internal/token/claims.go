package token

import "github.com/golang-jwt/jwt/v5"

// Fixed trust-boundary constants. Every internal token must carry exactly
// these; a token signed with the right secret but the wrong issuer or
// audience is rejected.
const (
	Issuer   = "ecommerce-api-gateway"
	Audience = "ecommerce-microservices"
)

// Claims are the only supported internal-token claims shape.
// All three custom fields are required; verification rejects tokens with any
// of them missing rather than defaulting.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
