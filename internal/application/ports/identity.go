package ports

import (
	"context"

	"github.com/petar554/fakturo/internal/domain"
)

// Session is the token pair issued by the identity provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IdentityUser is the provider's view of an account.
type IdentityUser struct {
	ID            domain.UserID
	Email         string
	EmailVerified bool
	FullName      string
	CreatedAt     string
}

// IdentityProvider wraps the external identity service. Credentials are
// stored and checked by the provider, never by this system.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, fullName string) (*IdentityUser, *Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*IdentityUser, *Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// SendPasswordReset must not reveal whether the email exists.
	SendPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}

// TokenVerifier turns a bearer token into a Principal. Verification is
// local (shared-secret JWT); no network round trip per request.
type TokenVerifier interface {
	Verify(token string) (*domain.Principal, error)
}
