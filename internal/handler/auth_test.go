package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/enum"
	"github.com/docupos/api/internal/handler"
)

type mockAuthStore struct {
	getUserByEmailFn func(ctx context.Context, email string) (database.User, error)
	getUserByIDFn    func(ctx context.Context, id uuid.UUID) (database.User, error)
}

func (m *mockAuthStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	return m.getUserByEmailFn(ctx, email)
}

func (m *mockAuthStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	return m.getUserByIDFn(ctx, id)
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func testUser(t *testing.T, password string) database.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return database.User{
		ID:             uuid.New(),
		FullName:       "Dewi Staff",
		Email:          "dewi@example.com",
		HashedPassword: string(hash),
		Role:           enum.UserRoleStaff,
		IsActive:       true,
	}
}

func TestLogin_HappyPath(t *testing.T) {
	user := testUser(t, "correct-horse")
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			if email != user.Email {
				t.Errorf("email: got %q", email)
			}
			return user, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doRequest(t, router, "POST", "/auth/login", map[string]interface{}{
		"email":    user.Email,
		"password": "correct-horse",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["access_token"] == "" || resp["access_token"] == nil {
		t.Error("missing access_token")
	}
	if resp["refresh_token"] == "" || resp["refresh_token"] == nil {
		t.Error("missing refresh_token")
	}
	u, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("user: got %v", resp["user"])
	}
	if u["role"] != "STAFF" {
		t.Errorf("role: got %v", u["role"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := testUser(t, "correct-horse")
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			return user, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doRequest(t, router, "POST", "/auth/login", map[string]interface{}{
		"email":    user.Email,
		"password": "wrong",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	user := testUser(t, "correct-horse")
	user.IsActive = false
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			return user, nil
		},
	}

	router := setupAuthRouter(store)
	rr := doRequest(t, router, "POST", "/auth/login", map[string]interface{}{
		"email":    user.Email,
		"password": "correct-horse",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
