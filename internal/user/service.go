package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oscarfosteru/patitovendedor/internal/identity"
)

type service struct {
	repo   Repository
	ids    identity.Service
	photos PhotoStore
	logger *slog.Logger
}

// NewService wires the profile repository, identity provider and photo store
// into the user-facing flows.
func NewService(repo Repository, ids identity.Service, photos PhotoStore, logger *slog.Logger) Service {
	return &service{repo: repo, ids: ids, photos: photos, logger: logger}
}

// SignUp provisions an identity and a matching profile document. The two
// writes hit independent stores: when the profile write fails the identity
// still exists, and no compensating delete is attempted.
func (s *service) SignUp(ctx context.Context, input SignUpInput) (*Profile, error) {
	id, err := s.ids.Create(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		UID:       id.UID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     id.Email,
		BirthDate: input.BirthDate,
		Role:      RoleUser,
		AuthID:    id.UID,
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("identity %s provisioned without profile: %w", id.UID, err)
	}
	return profile, nil
}

// CurrentSession reports the signed-in identity plus the role flag read from
// its profile document. A failed role lookup is not an error: the session
// falls back to the non-admin default.
func (s *service) CurrentSession(ctx context.Context, uid string) (*Session, error) {
	if uid == "" {
		return nil, ErrMissingUserID
	}

	id, err := s.ids.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	role := RoleUser
	if profile, err := s.repo.Get(ctx, uid); err == nil {
		role = profile.Role
	} else if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("role lookup failed, defaulting to user", "userId", uid, "error", err)
	}

	return &Session{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		Role:        role,
	}, nil
}

// GetProfile loads the caller's profile document and identity record
// concurrently. A missing document yields an empty profile so the edit form
// can start blank.
func (s *service) GetProfile(ctx context.Context, uid string) (*ProfileResponse, error) {
	if uid == "" {
		return nil, ErrMissingUserID
	}

	var (
		profile *Profile
		id      *identity.Identity
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.repo.Get(ctx, uid)
		if errors.Is(err, ErrNotFound) {
			p = emptyProfile(uid)
			err = nil
		}
		if err != nil {
			return err
		}
		profile = p
		return nil
	})

	g.Go(func() error {
		i, err := s.ids.Get(ctx, uid)
		if err != nil {
			return err
		}
		id = i
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if profile.Email == "" {
		profile.Email = id.Email
	}
	if profile.PhotoURL == "" {
		profile.PhotoURL = id.PhotoURL
	}

	return buildProfileResponse(profile, time.Now()), nil
}

// SaveProfile uploads the replacement photo when one was provided, pushes the
// display name and photo to the identity provider, then replaces the profile
// document whole. The role field always carries over from the stored document.
func (s *service) SaveProfile(ctx context.Context, uid string, input SaveProfileInput) (*ProfileResponse, error) {
	if uid == "" {
		return nil, ErrMissingUserID
	}

	existing, err := s.repo.Get(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		existing = emptyProfile(uid)
	} else if err != nil {
		return nil, err
	}

	photoURL := existing.PhotoURL
	if input.Photo != nil {
		photoURL, err = s.photos.UploadProfilePhoto(ctx, uid, input.Photo, input.PhotoContentType)
		if err != nil {
			return nil, fmt.Errorf("upload profile photo: %w", err)
		}
	}

	updated := &Profile{
		UID:       uid,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     existing.Email,
		BirthDate: input.BirthDate,
		PhotoURL:  photoURL,
		Role:      existing.Role,
		AuthID:    existing.AuthID,
	}

	params := identity.UpdateParams{DisplayName: ptr(updated.DisplayName())}
	if photoURL != "" {
		params.PhotoURL = &photoURL
	}
	if err := s.ids.Update(ctx, uid, params); err != nil {
		return nil, err
	}

	if err := s.repo.Set(ctx, updated); err != nil {
		return nil, err
	}

	return buildProfileResponse(updated, time.Now()), nil
}

// ListUsers returns the full roster in one bulk read. Admin only.
func (s *service) ListUsers(ctx context.Context, actorUID string) ([]Profile, error) {
	if err := s.requireAdmin(ctx, actorUID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// AdminCreateUser provisions a roster entry the same two-step way SignUp
// does, with the same inconsistency window. New entries always start as a
// plain user; promoting to admin is a separate edit.
func (s *service) AdminCreateUser(ctx context.Context, actorUID string, input SignUpInput) (*Profile, error) {
	if err := s.requireAdmin(ctx, actorUID); err != nil {
		return nil, err
	}
	return s.SignUp(ctx, input)
}

// AdminUpdateUser commits every edited field in one partial update, leaving
// sibling fields untouched.
func (s *service) AdminUpdateUser(ctx context.Context, actorUID, targetUID string, updates UpdateInput) (*Profile, error) {
	if err := s.requireAdmin(ctx, actorUID); err != nil {
		return nil, err
	}
	if targetUID == "" {
		return nil, ErrMissingUserID
	}

	if err := s.repo.Update(ctx, targetUID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, targetUID)
}

// AdminDeleteUser removes a roster entry. It refuses entries with no linked
// identity and refuses the acting admin's own entry so an admin cannot lock
// themselves out. The identity delete is best-effort; the profile document is
// removed regardless of its outcome.
func (s *service) AdminDeleteUser(ctx context.Context, actorUID, targetUID string) error {
	if err := s.requireAdmin(ctx, actorUID); err != nil {
		return err
	}

	target, err := s.repo.Get(ctx, targetUID)
	if err != nil {
		return err
	}
	if target.AuthID == "" {
		return ErrNoSubject
	}
	if target.AuthID == actorUID {
		return ErrSelfDelete
	}

	if err := s.ids.Delete(ctx, target.AuthID); err != nil {
		s.logger.Error("identity delete failed, removing profile anyway", "targetId", target.AuthID, "error", err)
	}

	return s.repo.Delete(ctx, targetUID)
}

// requireAdmin gates the roster flows on the acting user's own profile role.
// Lookup failures deny access rather than guessing.
func (s *service) requireAdmin(ctx context.Context, actorUID string) error {
	if actorUID == "" {
		return ErrMissingUserID
	}

	profile, err := s.repo.Get(ctx, actorUID)
	if err != nil {
		return ErrForbidden
	}
	if profile.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func buildProfileResponse(profile *Profile, now time.Time) *ProfileResponse {
	return &ProfileResponse{
		Profile:    *profile,
		IsBirthday: isBirthday(profile.BirthDate, now),
	}
}

// isBirthday matches day-of-month and month in UTC; the year is ignored.
func isBirthday(birthDate *time.Time, now time.Time) bool {
	if birthDate == nil {
		return false
	}
	b := birthDate.UTC()
	n := now.UTC()
	return b.Day() == n.Day() && b.Month() == n.Month()
}

func emptyProfile(uid string) *Profile {
	return &Profile{UID: uid, Role: RoleUser, AuthID: uid}
}

func ptr[T any](v T) *T {
	return &v
}
