package user

import "errors"

var (
	// ErrNotFound indicates no profile document exists for the requested key.
	ErrNotFound = errors.New("profile not found")
	// ErrConflict indicates a profile document already exists for the key.
	ErrConflict = errors.New("profile already exists")
	// ErrMissingUserID indicates a required user id was absent.
	ErrMissingUserID = errors.New("user id is required")
	// ErrForbidden indicates the acting user lacks the admin role.
	ErrForbidden = errors.New("admin role required")
	// ErrSelfDelete indicates an admin tried to delete their own account.
	ErrSelfDelete = errors.New("cannot delete the signed-in account")
	// ErrNoSubject indicates a roster entry has no recorded identity uid to act on.
	ErrNoSubject = errors.New("roster entry has no linked identity")
)
