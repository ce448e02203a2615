// Package identity wraps the external identity service. Account credentials
// live in the provider; the backend only brokers auth flows and verifies
// the tokens the provider issues.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petar554/fakturo/internal/application/ports"
	"github.com/petar554/fakturo/internal/domain"
	"github.com/petar554/fakturo/internal/domain/apperr"
)

// Client talks to a GoTrue-compatible identity HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates an identity client. The default HTTP timeout is 10s.
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

type userPayload struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt string         `json:"email_confirmed_at"`
	CreatedAt        string         `json:"created_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

type sessionPayload struct {
	ports.Session
	User *userPayload `json:"user"`
}

type errorPayload struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

func (p *errorPayload) message() string {
	if p.Message != "" {
		return p.Message
	}
	return p.ErrorDescription
}

// SignUp creates a new account with the provider.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*ports.IdentityUser, *ports.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]any{"full_name": fullName},
	}
	var out sessionPayload
	if err := c.post(ctx, "/signup", "", body, &out); err != nil {
		return nil, nil, err
	}
	user, err := toIdentityUser(out.User)
	if err != nil {
		return nil, nil, err
	}
	return user, &out.Session, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*ports.IdentityUser, *ports.Session, error) {
	body := map[string]any{"email": email, "password": password}
	var out sessionPayload
	if err := c.post(ctx, "/token?grant_type=password", "", body, &out); err != nil {
		return nil, nil, err
	}
	user, err := toIdentityUser(out.User)
	if err != nil {
		return nil, nil, err
	}
	return user, &out.Session, nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*ports.Session, error) {
	body := map[string]any{"refresh_token": refreshToken}
	var out sessionPayload
	if err := c.post(ctx, "/token?grant_type=refresh_token", "", body, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.post(ctx, "/logout", accessToken, map[string]any{}, nil)
}

// SendPasswordReset asks the provider to email a recovery link. Provider
// responses never reveal whether the account exists.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.post(ctx, "/recover", "", map[string]any{"email": email}, nil)
}

// UpdatePassword sets a new password for the authenticated account.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	return c.put(ctx, "/user", accessToken, map[string]any{"password": newPassword}, nil)
}

func (c *Client) post(ctx context.Context, path, bearer string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, bearer, body, out)
}

func (c *Client) put(ctx context.Context, path, bearer string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, bearer, body, out)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "identity provider unreachable", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ep errorPayload
		_ = json.Unmarshal(raw, &ep)
		msg := ep.message()
		if msg == "" {
			msg = fmt.Sprintf("identity provider returned status %d", resp.StatusCode)
		}
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("identity provider error")
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return apperr.Validation(msg)
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.Authentication(msg)
		case http.StatusConflict:
			return apperr.Conflict(msg)
		default:
			return apperr.Internal(msg)
		}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func toIdentityUser(p *userPayload) (*ports.IdentityUser, error) {
	if p == nil {
		return nil, apperr.Internal("identity provider returned no user")
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, apperr.Internal("identity provider returned malformed user id")
	}
	fullName, _ := p.UserMetadata["full_name"].(string)
	return &ports.IdentityUser{
		ID:            domain.NewUserID(id),
		Email:         p.Email,
		EmailVerified: p.EmailConfirmedAt != "",
		FullName:      fullName,
		CreatedAt:     p.CreatedAt,
	}, nil
}

var _ ports.IdentityProvider = (*Client)(nil)
