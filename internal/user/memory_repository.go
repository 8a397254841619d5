package user

import (
	"context"
	"sync"
	"time"
)

// memoryRepository implements Repository using in-memory storage
type memoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() Repository {
	return &memoryRepository{
		profiles: make(map[string]Profile),
	}
}

func (r *memoryRepository) Get(_ context.Context, uid string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, exists := r.profiles[uid]
	if !exists {
		return nil, ErrNotFound
	}

	profile.Role = normalizeRole(profile.Role)
	return &profile, nil
}

func (r *memoryRepository) Create(_ context.Context, profile *Profile) error {
	if profile.UID == "" {
		return ErrMissingUserID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[profile.UID]; exists {
		return ErrConflict
	}

	r.profiles[profile.UID] = normalized(*profile)
	return nil
}

func (r *memoryRepository) Set(_ context.Context, profile *Profile) error {
	if profile.UID == "" {
		return ErrMissingUserID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[profile.UID] = normalized(*profile)
	return nil
}

func (r *memoryRepository) Update(_ context.Context, uid string, updates UpdateInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, exists := r.profiles[uid]
	if !exists {
		return ErrNotFound
	}

	if updates.FirstName != nil {
		profile.FirstName = *updates.FirstName
	}
	if updates.LastName != nil {
		profile.LastName = *updates.LastName
	}
	if updates.Email != nil {
		profile.Email = *updates.Email
	}
	if updates.BirthDate != nil && updates.BirthDate.IsSet {
		profile.BirthDate = updates.BirthDate.Value
	}
	if updates.Role != nil {
		profile.Role = normalizeRole(*updates.Role)
	}

	r.profiles[uid] = normalized(profile)
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.profiles, uid)
	return nil
}

func (r *memoryRepository) List(_ context.Context) ([]Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]Profile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		profiles = append(profiles, normalized(profile))
	}
	return profiles, nil
}

// normalized applies the same defaulting rules the Firestore decoder does.
func normalized(profile Profile) Profile {
	profile.Role = normalizeRole(profile.Role)
	if profile.BirthDate != nil {
		d := time.Date(profile.BirthDate.Year(), profile.BirthDate.Month(), profile.BirthDate.Day(), 0, 0, 0, 0, time.UTC)
		profile.BirthDate = &d
	}
	return profile
}
