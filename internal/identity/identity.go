package identity

import (
	"context"
	"errors"
)

// Identity represents a principal managed by the external authentication provider.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

// UpdateParams captures the identity fields this application is allowed to change.
// Nil fields are left untouched.
type UpdateParams struct {
	DisplayName *string
	PhotoURL    *string
}

var (
	// ErrEmailExists indicates the provider rejected a creation because the email is taken.
	ErrEmailExists = errors.New("email already registered")
	// ErrCreationRejected indicates the provider refused the credentials
	// (malformed email, weak password). Policy is provider-defined.
	ErrCreationRejected = errors.New("identity creation rejected")
	// ErrNotFound indicates the provider has no record for the requested uid.
	ErrNotFound = errors.New("identity not found")
	// ErrInvalidToken indicates the presented session token failed verification.
	ErrInvalidToken = errors.New("invalid session token")
)

// Service is the capability surface of the identity provider. Credential policy
// (email format, password strength) is enforced provider-side, never locally.
type Service interface {
	Create(ctx context.Context, email, password string) (*Identity, error)
	Update(ctx context.Context, uid string, params UpdateParams) error
	Delete(ctx context.Context, uid string) error
	Get(ctx context.Context, uid string) (*Identity, error)
	VerifyToken(ctx context.Context, idToken string) (string, error)
}
