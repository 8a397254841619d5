package auth

import (
	"context"
	"errors"

	"github.com/oscarfosteru/patitovendedor/internal/identity"
)

// firebaseVerifier delegates token verification to the Firebase Auth admin client.
type firebaseVerifier struct {
	ids identity.Service
}

func newFirebaseVerifier(ids identity.Service) (Verifier, error) {
	if ids == nil {
		return nil, errors.New("firebase verifier requires an identity service")
	}
	return &firebaseVerifier{ids: ids}, nil
}

func (v *firebaseVerifier) Verify(ctx context.Context, token string) (AuthenticatedUser, error) {
	uid, err := v.ids.VerifyToken(ctx, token)
	if err != nil {
		return AuthenticatedUser{}, err
	}
	return AuthenticatedUser{UserID: uid, Token: token}, nil
}
