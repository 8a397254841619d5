package user

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCollection = "users"

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a Firestore-backed profile repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) docRef(uid string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(uid)
}

func (r *firestoreRepository) Get(ctx context.Context, uid string) (*Profile, error) {
	doc, err := r.docRef(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", uid, err)
	}
	return decodeProfile(doc)
}

func (r *firestoreRepository) Create(ctx context.Context, profile *Profile) error {
	if profile.UID == "" {
		return ErrMissingUserID
	}
	_, err := r.docRef(profile.UID).Create(ctx, encodeProfile(profile))
	if status.Code(err) == codes.AlreadyExists {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create profile %s: %w", profile.UID, err)
	}
	return nil
}

func (r *firestoreRepository) Set(ctx context.Context, profile *Profile) error {
	if profile.UID == "" {
		return ErrMissingUserID
	}
	if _, err := r.docRef(profile.UID).Set(ctx, encodeProfile(profile)); err != nil {
		return fmt.Errorf("set profile %s: %w", profile.UID, err)
	}
	return nil
}

func (r *firestoreRepository) Update(ctx context.Context, uid string, updates UpdateInput) error {
	fields := updateFields(updates)
	if len(fields) == 0 {
		return nil
	}

	_, err := r.docRef(uid).Update(ctx, fields)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update profile %s: %w", uid, err)
	}
	return nil
}

func (r *firestoreRepository) Delete(ctx context.Context, uid string) error {
	if _, err := r.docRef(uid).Delete(ctx); err != nil {
		return fmt.Errorf("delete profile %s: %w", uid, err)
	}
	return nil
}

func (r *firestoreRepository) List(ctx context.Context) ([]Profile, error) {
	iter := r.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var profiles []Profile
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}

		profile, err := decodeProfile(doc)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, nil
}

// decodeProfile is the single place raw documents become Profile values, so
// field defaulting (absent role, missing auth back-reference) lives here and
// nowhere else.
func decodeProfile(doc *firestore.DocumentSnapshot) (*Profile, error) {
	var profile Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile %s: %w", doc.Ref.ID, err)
	}
	profile.UID = doc.Ref.ID
	profile.Role = normalizeRole(profile.Role)
	if profile.BirthDate != nil {
		d := profile.BirthDate.UTC()
		profile.BirthDate = &d
	}
	return &profile, nil
}

func encodeProfile(profile *Profile) map[string]any {
	return map[string]any{
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"email":      profile.Email,
		"birth_date": birthDateValue(profile.BirthDate),
		"photo_url":  profile.PhotoURL,
		"role":       normalizeRole(profile.Role),
		"auth_id":    profile.AuthID,
	}
}

func updateFields(updates UpdateInput) []firestore.Update {
	var fields []firestore.Update
	if updates.FirstName != nil {
		fields = append(fields, firestore.Update{Path: "first_name", Value: *updates.FirstName})
	}
	if updates.LastName != nil {
		fields = append(fields, firestore.Update{Path: "last_name", Value: *updates.LastName})
	}
	if updates.Email != nil {
		fields = append(fields, firestore.Update{Path: "email", Value: *updates.Email})
	}
	if updates.BirthDate != nil && updates.BirthDate.IsSet {
		fields = append(fields, firestore.Update{Path: "birth_date", Value: birthDateValue(updates.BirthDate.Value)})
	}
	if updates.Role != nil {
		fields = append(fields, firestore.Update{Path: "role", Value: normalizeRole(*updates.Role)})
	}
	return fields
}

// birthDateValue pins birth dates to UTC midnight so the stored timestamp
// round-trips to the same calendar date regardless of server timezone.
func birthDateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d
}
