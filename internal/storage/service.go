package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Service handles Cloud Storage operations for profile photos.
type Service struct {
	client     *storage.Client
	bucketName string
}

// NewService creates a new storage service
func NewService(client *storage.Client, bucketName string) *Service {
	return &Service{client: client, bucketName: bucketName}
}

// UploadProfilePhoto writes the photo under a fixed per-user key so a
// re-upload replaces the previous object, then returns a download URL.
// There is no versioning: the old photo is gone once the write lands.
func (s *Service) UploadProfilePhoto(ctx context.Context, uid string, photo io.Reader, contentType string) (string, error) {
	objectPath := fmt.Sprintf("profileImages/%s", uid)
	return s.uploadObject(ctx, objectPath, photo, contentType)
}

// uploadObject uploads data to Cloud Storage and returns a download URL.
func (s *Service) uploadObject(ctx context.Context, objectPath string, data io.Reader, contentType string) (string, error) {
	bucket := s.client.Bucket(s.bucketName)
	obj := bucket.Object(objectPath)

	// Firebase clients resolve download URLs through a token stored in object
	// metadata; minting a fresh one here invalidates previously issued links.
	token := uuid.New().String()

	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "public, max-age=3600" // 1 hour cache
	writer.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := io.Copy(writer, data); err != nil {
		return "", fmt.Errorf("failed to write to storage: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	return s.downloadURL(objectPath, token), nil
}

// downloadURL builds the externally resolvable locator for an object, in the
// same shape the Firebase SDK's getDownloadURL hands out.
func (s *Service) downloadURL(objectPath, token string) string {
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		s.bucketName,
		url.PathEscape(objectPath),
		token,
	)
}

// Close closes the storage client
func (s *Service) Close() error {
	return s.client.Close()
}
