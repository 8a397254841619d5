package identity

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
)

type firebaseService struct {
	client *fbauth.Client
}

// NewFirebaseService wraps a Firebase Auth admin client as an identity Service.
func NewFirebaseService(client *fbauth.Client) Service {
	return &firebaseService{client: client}
}

func (s *firebaseService) Create(ctx context.Context, email, password string) (*Identity, error) {
	params := (&fbauth.UserToCreate{}).
		Email(email).
		Password(password)

	record, err := s.client.CreateUser(ctx, params)
	if fbauth.IsEmailAlreadyExists(err) {
		return nil, ErrEmailExists
	}
	if errorutils.IsInvalidArgument(err) {
		return nil, fmt.Errorf("%w: %v", ErrCreationRejected, err)
	}
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return fromUserRecord(record), nil
}

func (s *firebaseService) Update(ctx context.Context, uid string, params UpdateParams) error {
	update := &fbauth.UserToUpdate{}
	if params.DisplayName != nil {
		update = update.DisplayName(*params.DisplayName)
	}
	if params.PhotoURL != nil {
		update = update.PhotoURL(*params.PhotoURL)
	}

	_, err := s.client.UpdateUser(ctx, uid, update)
	if fbauth.IsUserNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update identity %s: %w", uid, err)
	}
	return nil
}

func (s *firebaseService) Delete(ctx context.Context, uid string) error {
	err := s.client.DeleteUser(ctx, uid)
	if fbauth.IsUserNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete identity %s: %w", uid, err)
	}
	return nil
}

func (s *firebaseService) Get(ctx context.Context, uid string) (*Identity, error) {
	record, err := s.client.GetUser(ctx, uid)
	if fbauth.IsUserNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity %s: %w", uid, err)
	}
	return fromUserRecord(record), nil
}

func (s *firebaseService) VerifyToken(ctx context.Context, idToken string) (string, error) {
	token, err := s.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return token.UID, nil
}

func fromUserRecord(record *fbauth.UserRecord) *Identity {
	return &Identity{
		UID:         record.UID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		PhotoURL:    record.PhotoURL,
	}
}
