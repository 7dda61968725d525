package supabase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

var ErrInvalidSession = errors.New("invalid session")

// AuthClient checks access tokens against Supabase Auth. It is used when no
// JWT secret is configured for local verification.
type AuthClient struct {
	client *supabase.Client
}

func NewAuthClient(supabaseURL, anonKey string) (*AuthClient, error) {
	client, err := supabase.NewClient(supabaseURL, anonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &AuthClient{client: client}, nil
}

// VerifyToken returns the user id the token belongs to.
func (a *AuthClient) VerifyToken(_ context.Context, token string) (string, error) {
	user, err := a.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if user == nil || user.ID == uuid.Nil {
		return "", ErrInvalidSession
	}
	return user.ID.String(), nil
}
