package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oscarfosteru/patitovendedor/internal/identity"
	"github.com/oscarfosteru/patitovendedor/internal/user"
)

const (
	serviceTimeout    = 8 * time.Second
	dateLayout        = "2006-01-02"
	maxJSONBodyBytes  = 64 * 1024 // 64KB of JSON is more than enough for these payloads
	maxPhotoFormBytes = 8 << 20   // profile photos are capped at 8MB
)

// RegisterPublicRoutes registers the routes reachable without a session.
func RegisterPublicRoutes(r chi.Router, service user.Service, logger *slog.Logger) {
	r.Post("/v1/signup", signUp(service, logger))
}

// RegisterRoutes registers the session-gated profile and admin routes.
func RegisterRoutes(r chi.Router, service user.Service, logger *slog.Logger) {
	r.Route("/v1/session", func(r chi.Router) {
		r.Use(middleware.Recoverer)

		r.Get("/", getSession(service, logger))
	})

	r.Route("/v1/profile", func(r chi.Router) {
		r.Use(middleware.Recoverer)

		r.Get("/", getProfile(service, logger))
		r.Put("/", saveProfile(service, logger))
	})

	r.Route("/v1/admin/users", func(r chi.Router) {
		r.Use(middleware.Recoverer)

		r.Get("/", listUsers(service, logger))
		r.Post("/", adminCreateUser(service, logger))
		r.Patch("/{id}", adminUpdateUser(service, logger))
		r.Delete("/{id}", adminDeleteUser(service, logger))
	})
}

func signUp(service user.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		defer r.Body.Close()

		input, err := decodeSignUpPayload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := contextWithTimeout(r)
		defer cancel()

		profile, err := service.SignUp(ctx, input)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrEmailExists):
				writeError(w, http.StatusConflict, "email already registered")
			case errors.Is(err, identity.ErrCreationRejected):
				// Provider-side policy failure; pass its message through.
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				logRequestError(r, logger, "failed to sign up", err, "")
				writeError(w, http.StatusInternalServerError, "failed to create account")
			}
			return
		}
		writeJSON(w, http.StatusCreated, profile)
	}
}

func getSession(service user.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing user ID")
			return
		}

		ctx, cancel := contextWithTimeout(r)
		defer cancel()

		session, err := service.CurrentSession(ctx, uid)
		if err != nil {
			respondServiceError(w, r, logger, "failed to load session", err, uid)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func getProfile(service user.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing user ID")
			return
		}

		ctx, cancel := contextWithTimeout(r)
		defer cancel()

		profile, err := service.GetProfile(ctx, uid)
		if err != nil {
			respondServiceError(w, r, logger, "failed to load profile", err, uid)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func saveProfile(service user.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing user ID")
			return
		}

		input, cleanup, err := decodeSaveProfilePayload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		defer cleanup()

		ctx, cancel := contextWithTimeout(r)
		defer cancel()

		profile, err := service.SaveProfile(ctx, uid, input)
		if err != nil {
			respondServiceError(w, r, logger, "failed to save profile", err, uid)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func listUsers(service user.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing user ID")
			return
		}

		ctx, cancel := contextWithTimeout(r)
		defer cancel()

		users, err := service.ListUsers(ctx, uid)
		if err != nil {
			respondServiceError(w, r, logger, "failed to list users", err, uid)
			return
		}
		if users == nil {
			users = []user.Profile{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	}
}

func adminCreateUser(service user.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing user ID")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		defer r.Body.Close()

		input, err := decodeSignUpPayload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := contextWithTimeout(r)
		defer cancel()

		profile, err := service.AdminCreateUser(ctx, uid, input)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrEmailExists):
				writeError(w, http.StatusConflict, "email already registered")
			case errors.Is(err, identity.ErrCreationRejected):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				respondServiceError(w, r, logger, "failed to add user", err, uid)
			}
			return
		}
		writeJSON(w, http.StatusCreated, profile)
	}
}

func adminUpdateUser(service user.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing user ID")
			return
		}
		targetUID := chi.URLParam(r, "id")

		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
		defer r.Body.Close()

		updates, err := decodeUpdatePayload(r)
		if err != nil {
			var maxErr *http.MaxBytesError
			switch {
			case errors.Is(err, errInvalidPayload):
				writeError(w, http.StatusBadRequest, errInvalidPayload.Error())
			case errors.As(err, &maxErr):
				writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			default:
				writeError(w, http.StatusInternalServerError, "failed to decode user update")
			}
			return
		}

		ctx, cancel := contextWithTimeout(r)
		defer cancel()

		profile, err := service.AdminUpdateUser(ctx, uid, targetUID, updates)
		if err != nil {
			respondServiceError(w, r, logger, "failed to update user", err, uid)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func adminDeleteUser(service user.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := currentUID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing user ID")
			return
		}
		targetUID := chi.URLParam(r, "id")

		ctx, cancel := contextWithTimeout(r)
		defer cancel()

		if err := service.AdminDeleteUser(ctx, uid, targetUID); err != nil {
			respondServiceError(w, r, logger, "failed to delete user", err, uid)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

var errInvalidPayload = errors.New("invalid request body")

func decodeSignUpPayload(r *http.Request) (user.SignUpInput, error) {
	var body struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		BirthDate string `json:"birth_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return user.SignUpInput{}, errInvalidPayload
	}
	if body.Email == "" || body.Password == "" {
		return user.SignUpInput{}, errors.New("email and password are required")
	}

	input := user.SignUpInput{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	}

	if body.BirthDate != "" {
		t, err := time.Parse(dateLayout, body.BirthDate)
		if err != nil {
			return user.SignUpInput{}, errors.New("birth_date must be formatted as " + dateLayout)
		}
		input.BirthDate = &t
	}

	return input, nil
}

// decodeSaveProfilePayload reads the multipart profile form. The returned
// cleanup closes the photo file (a no-op closer when no photo was attached).
func decodeSaveProfilePayload(r *http.Request) (user.SaveProfileInput, func(), error) {
	noop := func() {}

	if err := r.ParseMultipartForm(maxPhotoFormBytes); err != nil {
		return user.SaveProfileInput{}, noop, errInvalidPayload
	}

	input := user.SaveProfileInput{
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
	}

	if raw := r.FormValue("birth_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return user.SaveProfileInput{}, noop, errors.New("birth_date must be formatted as " + dateLayout)
		}
		input.BirthDate = &t
	}

	file, header, err := r.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return input, noop, nil
	case err != nil:
		return user.SaveProfileInput{}, noop, errInvalidPayload
	}

	input.Photo = file
	input.PhotoContentType = header.Header.Get("Content-Type")
	return input, func() { _ = file.Close() }, nil
}

func decodeUpdatePayload(r *http.Request) (user.UpdateInput, error) {
	var (
		input user.UpdateInput
		// birth_date is a plain RawMessage on purpose: a *RawMessage comes
		// back nil for an explicit null, which would make "clear the date"
		// indistinguishable from "field omitted". The non-pointer form stays
		// nil when omitted and holds the literal bytes "null" when cleared.
		body struct {
			FirstName *string         `json:"first_name"`
			LastName  *string         `json:"last_name"`
			Email     *string         `json:"email"`
			BirthDate json.RawMessage `json:"birth_date"`
			Role      *string         `json:"role"`
		}
	)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return input, err
		}
		return input, errInvalidPayload
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return input, errInvalidPayload
	}

	input.FirstName = body.FirstName
	input.LastName = body.LastName
	input.Email = body.Email

	if body.BirthDate != nil {
		patch := &user.BirthDatePatch{IsSet: true}
		if string(body.BirthDate) != "null" {
			var raw string
			if err := json.Unmarshal(body.BirthDate, &raw); err != nil {
				return input, errInvalidPayload
			}
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				return input, errInvalidPayload
			}
			patch.Value = &t
		}
		input.BirthDate = patch
	}

	if body.Role != nil {
		role := user.Role(*body.Role)
		if role != user.RoleUser && role != user.RoleAdmin {
			return input, errInvalidPayload
		}
		input.Role = &role
	}

	if input.IsZero() {
		return input, errInvalidPayload
	}

	return input, nil
}

func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string, err error, uid string) {
	switch {
	case errors.Is(err, user.ErrForbidden):
		writeError(w, http.StatusForbidden, "you do not have permission to view this page")
	case errors.Is(err, user.ErrNotFound), errors.Is(err, identity.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, user.ErrSelfDelete):
		writeError(w, http.StatusConflict, user.ErrSelfDelete.Error())
	case errors.Is(err, user.ErrNoSubject):
		writeError(w, http.StatusConflict, user.ErrNoSubject.Error())
	case errors.Is(err, user.ErrConflict):
		writeError(w, http.StatusConflict, user.ErrConflict.Error())
	case errors.Is(err, user.ErrMissingUserID):
		writeError(w, http.StatusBadRequest, user.ErrMissingUserID.Error())
	default:
		logRequestError(r, logger, message, err, uid)
		writeError(w, http.StatusInternalServerError, message)
	}
}
