package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/middleware"
	"github.com/kairoshq/kairos/internal/service"
)

// fakeUserService backs the auth handler with an in-memory account.
type fakeUserService struct {
	service.UserService

	user     *domain.User
	password string
}

func (f *fakeUserService) Register(ctx context.Context, params service.RegisterParams) (*domain.User, error) {
	if params.Email == "" || params.Password == "" {
		return nil, domain.NewValidationError("test", "email", "Email is required")
	}
	if f.user != nil && f.user.Email == params.Email {
		return nil, domain.Conflict("test", "An account with this email already exists")
	}
	f.user = &domain.User{
		ID:        uuid.New(),
		Email:     params.Email,
		Name:      params.Name,
		CreatedAt: time.Now(),
	}
	f.password = params.Password
	return f.user, nil
}

func (f *fakeUserService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	if f.user == nil || email != f.user.Email || password != f.password {
		return nil, domain.Unauthorized("test", "Invalid email or password")
	}
	return &service.LoginResult{User: f.user, Token: "issued-token"}, nil
}

func newAuthHandlerMux(users service.UserService) *http.ServeMux {
	h := NewAuthHandler(users, middleware.NewAuthRateLimiter(testLogger()), testLogger())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, func(next http.Handler) http.Handler { return next })
	return mux
}

func TestRegisterAndLogin(t *testing.T) {
	users := &fakeUserService{}
	mux := newAuthHandlerMux(users)

	body := `{"email": "dev@example.com", "name": "Dev", "password": "correct horse battery"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created userResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if created.Email != "dev@example.com" {
		t.Errorf("expected registered email, got %q", created.Email)
	}

	login := `{"email": "dev@example.com", "password": "correct horse battery"}`
	req = httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(login))
	req.RemoteAddr = "192.0.2.1:1234"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected bearer token in login response")
	}
	if resp.User.ID != created.ID {
		t.Errorf("expected same user, got %s vs %s", resp.User.ID, created.ID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	users := &fakeUserService{}
	mux := newAuthHandlerMux(users)

	body := `{"email": "nobody@example.com", "password": "wrong"}`
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	req.RemoteAddr = "192.0.2.2:1234"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	users := &fakeUserService{}
	mux := newAuthHandlerMux(users)

	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(`{"name": "Dev"}`))
	req.RemoteAddr = "192.0.2.3:1234"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := body.Error.Fields["email"]; !ok {
		t.Errorf("expected field error for email, got %v", body.Error.Fields)
	}
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "dev@example.com", Name: "Dev"}
	h := NewAuthHandler(&fakeUserService{user: user}, middleware.NewAuthRateLimiter(testLogger()), testLogger())

	mux := http.NewServeMux()
	h.RegisterRoutes(mux, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
		})
	})

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp userResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != user.ID.String() {
		t.Errorf("expected user id %s, got %s", user.ID, resp.ID)
	}
}
