package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/oscarfosteru/patitovendedor/internal/auth"
	"github.com/oscarfosteru/patitovendedor/internal/identity"
	"github.com/oscarfosteru/patitovendedor/internal/user"
)

type fakeService struct {
	signUpFn          func(context.Context, user.SignUpInput) (*user.Profile, error)
	currentSessionFn  func(context.Context, string) (*user.Session, error)
	getProfileFn      func(context.Context, string) (*user.ProfileResponse, error)
	saveProfileFn     func(context.Context, string, user.SaveProfileInput) (*user.ProfileResponse, error)
	listUsersFn       func(context.Context, string) ([]user.Profile, error)
	adminCreateUserFn func(context.Context, string, user.SignUpInput) (*user.Profile, error)
	adminUpdateUserFn func(context.Context, string, string, user.UpdateInput) (*user.Profile, error)
	adminDeleteUserFn func(context.Context, string, string) error
}

func (f *fakeService) SignUp(ctx context.Context, input user.SignUpInput) (*user.Profile, error) {
	if f.signUpFn != nil {
		return f.signUpFn(ctx, input)
	}
	return nil, errors.New("signUpFn not provided")
}

func (f *fakeService) CurrentSession(ctx context.Context, uid string) (*user.Session, error) {
	if f.currentSessionFn != nil {
		return f.currentSessionFn(ctx, uid)
	}
	return nil, errors.New("currentSessionFn not provided")
}

func (f *fakeService) GetProfile(ctx context.Context, uid string) (*user.ProfileResponse, error) {
	if f.getProfileFn != nil {
		return f.getProfileFn(ctx, uid)
	}
	return nil, errors.New("getProfileFn not provided")
}

func (f *fakeService) SaveProfile(ctx context.Context, uid string, input user.SaveProfileInput) (*user.ProfileResponse, error) {
	if f.saveProfileFn != nil {
		return f.saveProfileFn(ctx, uid, input)
	}
	return nil, errors.New("saveProfileFn not provided")
}

func (f *fakeService) ListUsers(ctx context.Context, actorUID string) ([]user.Profile, error) {
	if f.listUsersFn != nil {
		return f.listUsersFn(ctx, actorUID)
	}
	return nil, errors.New("listUsersFn not provided")
}

func (f *fakeService) AdminCreateUser(ctx context.Context, actorUID string, input user.SignUpInput) (*user.Profile, error) {
	if f.adminCreateUserFn != nil {
		return f.adminCreateUserFn(ctx, actorUID, input)
	}
	return nil, errors.New("adminCreateUserFn not provided")
}

func (f *fakeService) AdminUpdateUser(ctx context.Context, actorUID, targetUID string, updates user.UpdateInput) (*user.Profile, error) {
	if f.adminUpdateUserFn != nil {
		return f.adminUpdateUserFn(ctx, actorUID, targetUID, updates)
	}
	return nil, errors.New("adminUpdateUserFn not provided")
}

func (f *fakeService) AdminDeleteUser(ctx context.Context, actorUID, targetUID string) error {
	if f.adminDeleteUserFn != nil {
		return f.adminDeleteUserFn(ctx, actorUID, targetUID)
	}
	return errors.New("adminDeleteUserFn not provided")
}

func newTestRouter(t *testing.T, service user.Service) *chi.Mux {
	t.Helper()

	verifier, err := auth.NewVerifier(auth.Config{Mode: auth.ModeNoop}, nil)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	RegisterPublicRoutes(r, service, logger)
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))
		RegisterRoutes(r, service, logger)
	})
	return r
}

func asAdmin(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer admin-1")
	return req
}

func TestSignUp_Created(t *testing.T) {
	service := &fakeService{
		signUpFn: func(_ context.Context, input user.SignUpInput) (*user.Profile, error) {
			if input.Email != "dua@example.com" || input.FirstName != "Dua" {
				t.Fatalf("unexpected input: %+v", input)
			}
			if input.BirthDate == nil || input.BirthDate.Format(dateLayout) != "2000-01-01" {
				t.Fatalf("birth date not parsed: %v", input.BirthDate)
			}
			return &user.Profile{UID: "uid-1", Email: input.Email, Role: user.RoleUser}, nil
		},
	}
	router := newTestRouter(t, service)

	body := `{"email":"dua@example.com","password":"hunter22","first_name":"Dua","last_name":"Pato","birth_date":"2000-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/signup", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	service := &fakeService{
		signUpFn: func(context.Context, user.SignUpInput) (*user.Profile, error) {
			return nil, identity.ErrEmailExists
		},
	}
	router := newTestRouter(t, service)

	req := httptest.NewRequest(http.MethodPost, "/v1/signup", strings.NewReader(`{"email":"dup@example.com","password":"pw"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestSignUp_BadPayload(t *testing.T) {
	router := newTestRouter(t, &fakeService{})

	cases := []struct {
		name string
		body string
	}{
		{name: "broken json", body: `{`},
		{name: "missing credentials", body: `{"first_name":"Dua"}`},
		{name: "bad birth date", body: `{"email":"a@b.c","password":"pw","birth_date":"01/01/2000"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/signup", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestProfile_RequiresSession(t *testing.T) {
	router := newTestRouter(t, &fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSaveProfile_MultipartWithoutPhoto(t *testing.T) {
	service := &fakeService{
		saveProfileFn: func(_ context.Context, uid string, input user.SaveProfileInput) (*user.ProfileResponse, error) {
			if input.Photo != nil {
				t.Fatal("expected no photo reader")
			}
			if input.FirstName != "Dua" || input.LastName != "Pato" {
				t.Fatalf("unexpected names: %q %q", input.FirstName, input.LastName)
			}
			return &user.ProfileResponse{Profile: user.Profile{UID: uid}}, nil
		},
	}
	router := newTestRouter(t, service)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("first_name", "Dua")
	_ = form.WriteField("last_name", "Pato")
	_ = form.WriteField("birth_date", "2000-01-01")
	_ = form.Close()

	req := asAdmin(httptest.NewRequest(http.MethodPut, "/v1/profile", &buf))
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSaveProfile_MultipartWithPhoto(t *testing.T) {
	service := &fakeService{
		saveProfileFn: func(_ context.Context, uid string, input user.SaveProfileInput) (*user.ProfileResponse, error) {
			if input.Photo == nil {
				t.Fatal("expected a photo reader")
			}
			if input.PhotoContentType != "image/png" {
				t.Fatalf("unexpected content type %q", input.PhotoContentType)
			}
			return &user.ProfileResponse{Profile: user.Profile{UID: uid}}, nil
		},
	}
	router := newTestRouter(t, service)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("first_name", "Dua")
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
	header.Set("Content-Type", "image/png")
	part, err := form.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	_, _ = part.Write([]byte("png-bytes"))
	_ = form.Close()

	req := asAdmin(httptest.NewRequest(http.MethodPut, "/v1/profile", &buf))
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminUpdateUser_TriStateBirthDate(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		check func(t *testing.T, got user.UpdateInput)
	}{
		{
			name: "explicit null clears the date",
			body: `{"birth_date":null}`,
			check: func(t *testing.T, got user.UpdateInput) {
				if got.BirthDate == nil || !got.BirthDate.IsSet || got.BirthDate.Value != nil {
					t.Fatalf("expected explicit birth date clear, got %+v", got.BirthDate)
				}
			},
		},
		{
			name: "date string sets the date",
			body: `{"birth_date":"1999-12-31"}`,
			check: func(t *testing.T, got user.UpdateInput) {
				if got.BirthDate == nil || !got.BirthDate.IsSet || got.BirthDate.Value == nil {
					t.Fatalf("expected birth date set, got %+v", got.BirthDate)
				}
				if got.BirthDate.Value.Format(dateLayout) != "1999-12-31" {
					t.Fatalf("birth date parsed to %v", got.BirthDate.Value)
				}
			},
		},
		{
			name: "omitted field leaves the date untouched",
			body: `{"first_name":"Dua"}`,
			check: func(t *testing.T, got user.UpdateInput) {
				if got.BirthDate != nil {
					t.Fatalf("expected no birth date patch, got %+v", got.BirthDate)
				}
				if got.FirstName == nil || *got.FirstName != "Dua" {
					t.Fatalf("expected first name update, got %+v", got.FirstName)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got user.UpdateInput
			service := &fakeService{
				adminUpdateUserFn: func(_ context.Context, _, targetUID string, updates user.UpdateInput) (*user.Profile, error) {
					if targetUID != "uid-2" {
						t.Fatalf("unexpected target %q", targetUID)
					}
					got = updates
					return &user.Profile{UID: targetUID}, nil
				},
			}
			router := newTestRouter(t, service)

			req := asAdmin(httptest.NewRequest(http.MethodPatch, "/v1/admin/users/uid-2", strings.NewReader(tc.body)))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			tc.check(t, got)
		})
	}
}

func TestAdminUpdateUser_BadPayload(t *testing.T) {
	router := newTestRouter(t, &fakeService{})

	cases := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: `{"nickname":"ducky"}`},
		{name: "invalid role", body: `{"role":"superuser"}`},
		{name: "no fields", body: `{}`},
		{name: "trailing data", body: `{"first_name":"a"}{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := asAdmin(httptest.NewRequest(http.MethodPatch, "/v1/admin/users/uid-2", strings.NewReader(tc.body)))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestAdminRoutes_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "forbidden", err: user.ErrForbidden, want: http.StatusForbidden},
		{name: "not found", err: user.ErrNotFound, want: http.StatusNotFound},
		{name: "self delete", err: user.ErrSelfDelete, want: http.StatusConflict},
		{name: "no subject", err: user.ErrNoSubject, want: http.StatusConflict},
		{name: "provider failure", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := &fakeService{
				adminDeleteUserFn: func(context.Context, string, string) error {
					return tc.err
				},
			}
			router := newTestRouter(t, service)

			req := asAdmin(httptest.NewRequest(http.MethodDelete, "/v1/admin/users/uid-2", nil))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestListUsers_EmptyRosterIsAnArray(t *testing.T) {
	service := &fakeService{
		listUsersFn: func(context.Context, string) ([]user.Profile, error) {
			return nil, nil
		},
	}
	router := newTestRouter(t, service)

	req := asAdmin(httptest.NewRequest(http.MethodGet, "/v1/admin/users", nil))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Users []user.Profile `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Users == nil {
		t.Fatal("expected users to decode as an empty array")
	}
}

func TestGetSession(t *testing.T) {
	service := &fakeService{
		currentSessionFn: func(_ context.Context, uid string) (*user.Session, error) {
			return &user.Session{UID: uid, Role: user.RoleAdmin}, nil
		},
	}
	router := newTestRouter(t, service)

	req := asAdmin(httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var session user.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.UID != "admin-1" || session.Role != user.RoleAdmin {
		t.Fatalf("unexpected session payload: %+v", session)
	}
}
