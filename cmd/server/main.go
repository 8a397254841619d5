package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"

	"github.com/oscarfosteru/patitovendedor/internal/auth"
	"github.com/oscarfosteru/patitovendedor/internal/config"
	"github.com/oscarfosteru/patitovendedor/internal/httpapi"
	"github.com/oscarfosteru/patitovendedor/internal/identity"
	"github.com/oscarfosteru/patitovendedor/internal/logging"
	"github.com/oscarfosteru/patitovendedor/internal/server"
	"github.com/oscarfosteru/patitovendedor/internal/storage"
	"github.com/oscarfosteru/patitovendedor/internal/user"
)

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger("patitovendedor")

	// Firebase app for the identity provider
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.GCPProjectID})
	if err != nil {
		panic(fmt.Errorf("firebase app: %w", err))
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		panic(fmt.Errorf("firebase auth client: %w", err))
	}

	// Firestore client for profile documents
	fsClient, err := firestore.NewClient(ctx, cfg.GCPProjectID)
	if err != nil {
		panic(fmt.Errorf("firestore client: %w", err))
	}
	defer fsClient.Close()

	// Cloud Storage client for profile photos
	gcsClient, err := gcs.NewClient(ctx)
	if err != nil {
		panic(fmt.Errorf("storage client: %w", err))
	}

	ids := identity.NewFirebaseService(authClient)
	repo := user.NewFirestoreRepository(fsClient)
	photos := storage.NewService(gcsClient, cfg.BucketName)
	defer photos.Close()

	userService := user.NewService(repo, ids, photos, logger)

	verifier, err := auth.NewVerifier(auth.Config{
		Mode:     auth.Mode(cfg.Auth.Mode),
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	}, ids)
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := server.NewRouter("patitovendedor", func(r chi.Router) {
		httpapi.RegisterPublicRoutes(r, userService, logger)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier))

			httpapi.RegisterRoutes(r, userService, logger)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := server.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}
