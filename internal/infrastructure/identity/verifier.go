package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// accessClaims is the shape of the identity provider's access token.
type accessClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role"`
}

// Verifier validates provider-issued access tokens locally using the shared
// HS256 secret, avoiding a network call on every request.
type Verifier struct {
	secret   []byte
	audience string
}

// NewVerifier creates a token verifier. audience may be empty to skip the
// audience check.
func NewVerifier(secret, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), audience: audience}
}

// Verify parses and validates the token and derives the request Principal.
func (v *Verifier) Verify(tokenString string) (*domain.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, "token verification failed", err)
	}
	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, apperr.Authentication("invalid token claims")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Authentication("invalid subject claim")
	}
	var createdAt time.Time
	if claims.IssuedAt != nil {
		createdAt = claims.IssuedAt.Time
	}
	return &domain.Principal{
		ID:            domain.NewUserID(userID),
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		RoleHint:      claims.Role,
		CreatedAt:     createdAt,
	}, nil
}

var _ ports.TokenVerifier = (*Verifier)(nil)
