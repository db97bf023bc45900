package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/classtime-project/classtime-client/internal/accounts"
)

func testUser() accounts.User {
	return accounts.User{
		ID:        uuid.MustParse("3f6c0cbe-58a5-4e3f-bd04-1a2b3c4d5e6f"),
		Role:      accounts.RoleStudent,
		FirstName: "Anna",
		Phone:     "+66812345678",
		Gender:    accounts.GenderFemale,
		Email:     "anna@example.com",
		SchoolNum: "12345",
	}
}

func TestLoginDecodesUserEnvelope(t *testing.T) {
	user := testUser()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" {
			t.Errorf("path = %s, want /api/v1/auth/login", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		var req accounts.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode login body: %v", err)
		}
		if req.Email != user.Email {
			t.Errorf("email = %q, want %q", req.Email, user.Email)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"user": user})
	})

	got, err := c.Login(context.Background(), user.Email, "secret-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got == nil || got.ID != user.ID || got.Email != user.Email {
		t.Errorf("Login() user = %+v, want %+v", got, user)
	}
}

func TestSessionCookieRetainedAcrossRequests(t *testing.T) {
	var sawCookie bool

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "session-jwt", Path: "/"})
			_ = json.NewEncoder(w).Encode(map[string]any{"user": testUser()})
		case "/api/v1/users/me":
			if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value == "session-jwt" {
				sawCookie = true
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"user": testUser()})
		}
	})

	if _, err := c.Login(context.Background(), "anna@example.com", "secret-password"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("Me() error = %v", err)
	}

	if !sawCookie {
		t.Error("session cookie from login was not sent on the next request")
	}
}

func TestRegistrationMailEscapesEmail(t *testing.T) {
	var gotPath string

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	})

	if err := c.RegistrationMail(context.Background(), "anna+test@example.com"); err != nil {
		t.Fatalf("RegistrationMail() error = %v", err)
	}

	want := "/api/v1/auth/registration-mail/anna+test@example.com"
	if gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
}

func TestLogoutReturnsAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	})

	err := c.Logout(context.Background())
	if !IsUnauthorized(err) {
		t.Errorf("Logout() error = %v, want 401 API error", err)
	}
}

func TestUpdateProfileSendsPartialBody(t *testing.T) {
	var gotBody map[string]any

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/users" {
			t.Errorf("got %s %s, want PUT /api/v1/users", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"user": testUser()})
	})

	first := "Annabel"
	_, err := c.UpdateProfile(context.Background(), &accounts.UpdateProfileRequest{FirstName: &first})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if gotBody["first_name"] != "Annabel" {
		t.Errorf("first_name = %v, want Annabel", gotBody["first_name"])
	}
	if _, present := gotBody["phone"]; present {
		t.Errorf("phone should be omitted from a partial update, got %v", gotBody["phone"])
	}
}
