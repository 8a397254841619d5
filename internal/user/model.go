package user

import (
	"context"
	"io"
	"time"
)

// Role is the authorization flag carried on every profile document.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// normalizeRole collapses absent or unknown role values to RoleUser. All
// document decoding funnels through this so screens never see a third value.
func normalizeRole(r Role) Role {
	if r == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Profile represents the persisted profile document stored in Firestore,
// keyed by the owning identity's uid.
type Profile struct {
	UID       string     `json:"id" firestore:"-"`
	FirstName string     `json:"first_name" firestore:"first_name"`
	LastName  string     `json:"last_name" firestore:"last_name"`
	Email     string     `json:"email" firestore:"email"`
	BirthDate *time.Time `json:"birth_date" firestore:"birth_date"`
	PhotoURL  string     `json:"photo_url" firestore:"photo_url"`
	Role      Role       `json:"role" firestore:"role"`
	AuthID    string     `json:"auth_id" firestore:"auth_id"`
}

// DisplayName is the identity-provider display name derived from the profile.
func (p *Profile) DisplayName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// BirthDatePatch differentiates between omitted and explicit null updates.
type BirthDatePatch struct {
	IsSet bool
	Value *time.Time
}

// UpdateInput describes a partial roster edit. Nil fields are left untouched
// in the persisted document; the whole struct commits as a single update call.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	BirthDate *BirthDatePatch
	Role      *Role
}

// IsZero reports whether the update carries no field at all.
func (u UpdateInput) IsZero() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.BirthDate == nil && u.Role == nil
}

// SignUpInput carries everything account provisioning needs. Email format and
// password strength are validated by the identity provider, not here.
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	BirthDate *time.Time
}

// SaveProfileInput is a self-service profile save. Photo is optional; when nil
// the stored photo locator is left unchanged.
type SaveProfileInput struct {
	FirstName        string
	LastName         string
	BirthDate        *time.Time
	Photo            io.Reader
	PhotoContentType string
}

// ProfileResponse is the self-service read model.
type ProfileResponse struct {
	Profile
	IsBirthday bool `json:"is_birthday"`
}

// Session describes the current identity plus the role extracted from its
// profile document, as consumed by admin-gated screens.
type Session struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	Role        Role   `json:"role"`
}

// Repository defines profile document access. Documents live in a single
// collection keyed by identity uid; at most one document per uid.
type Repository interface {
	Get(ctx context.Context, uid string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
	Set(ctx context.Context, profile *Profile) error
	Update(ctx context.Context, uid string, updates UpdateInput) error
	Delete(ctx context.Context, uid string) error
	List(ctx context.Context) ([]Profile, error)
}

// PhotoStore uploads a profile photo and returns an externally resolvable URL.
type PhotoStore interface {
	UploadProfilePhoto(ctx context.Context, uid string, photo io.Reader, contentType string) (string, error)
}

// Service defines the user-facing flows.
type Service interface {
	SignUp(ctx context.Context, input SignUpInput) (*Profile, error)
	CurrentSession(ctx context.Context, uid string) (*Session, error)
	GetProfile(ctx context.Context, uid string) (*ProfileResponse, error)
	SaveProfile(ctx context.Context, uid string, input SaveProfileInput) (*ProfileResponse, error)
	ListUsers(ctx context.Context, actorUID string) ([]Profile, error)
	AdminCreateUser(ctx context.Context, actorUID string, input SignUpInput) (*Profile, error)
	AdminUpdateUser(ctx context.Context, actorUID, targetUID string, updates UpdateInput) (*Profile, error)
	AdminDeleteUser(ctx context.Context, actorUID, targetUID string) error
}
