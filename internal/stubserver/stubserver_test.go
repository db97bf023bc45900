package stubserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/classtime-project/classtime-client/internal/accounts"
	"github.com/classtime-project/classtime-client/internal/client"
)

func newTestServer(t *testing.T) (*Server, *client.Client) {
	t.Helper()

	s := New("test-secret", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	handler, err := s.Handler()
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	api, err := client.NewClient(ts.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return s, api
}

func seedUser(t *testing.T, s *Server, password string) accounts.User {
	t.Helper()

	user, err := s.Seed(accounts.User{
		Role:      accounts.RoleStudent,
		FirstName: "Anna",
		Phone:     "+66812345678",
		Gender:    accounts.GenderFemale,
		Email:     "anna@example.com",
		SchoolNum: "12345",
	}, password)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return user
}

func TestRegistrationFlow(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()

	if err := api.RegistrationMail(ctx, "new@example.com"); err != nil {
		t.Fatalf("RegistrationMail() error = %v", err)
	}

	token, err := s.RegistrationToken("new@example.com")
	if err != nil {
		t.Fatalf("RegistrationToken() error = %v", err)
	}

	user, err := api.Register(ctx, token, &accounts.RegisterRequest{
		Role:      accounts.RoleTeacher,
		FirstName: "Somsak",
		Phone:     "+66898765432",
		Gender:    accounts.GenderMale,
		Email:     "new@example.com",
		Password:  "longenoughpwd",
		SchoolNum: "4211",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "new@example.com" || user.Role != accounts.RoleTeacher {
		t.Errorf("registered user = %+v", user)
	}

	// registration starts a session
	me, err := api.Me(ctx)
	if err != nil {
		t.Fatalf("Me() after register error = %v", err)
	}
	if me.ID != user.ID {
		t.Errorf("Me() = %v, want %v", me.ID, user.ID)
	}
}

func TestRegisterRejectsBadTokens(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()

	req := &accounts.RegisterRequest{
		Role:      accounts.RoleStudent,
		FirstName: "Anna",
		Phone:     "+66812345678",
		Gender:    accounts.GenderFemale,
		Email:     "anna@example.com",
		Password:  "longenoughpwd",
		SchoolNum: "12345",
	}

	tests := []struct {
		name    string
		token   func() string
		wantMsg string
	}{
		{
			name:    "garbage token",
			token:   func() string { return "not-a-jwt" },
			wantMsg: "failed parsing action token",
		},
		{
			name: "wrong purpose token",
			token: func() string {
				tok, err := s.ResetToken("anna@example.com")
				if err != nil {
					t.Fatalf("ResetToken() error = %v", err)
				}
				return tok
			},
			wantMsg: "failed parsing action token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := api.Register(ctx, tt.token(), req)
			cerr, ok := client.As(err)
			if !ok {
				t.Fatalf("Register() error = %v, want API error", err)
			}
			if cerr.Status != http.StatusBadRequest || cerr.Message != tt.wantMsg {
				t.Errorf("error = %v, want 400 %q", cerr, tt.wantMsg)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()

	seedUser(t, s, "longenoughpwd")

	token, err := s.RegistrationToken("anna@example.com")
	if err != nil {
		t.Fatalf("RegistrationToken() error = %v", err)
	}

	_, err = api.Register(ctx, token, &accounts.RegisterRequest{
		Role:      accounts.RoleStudent,
		FirstName: "Anna",
		Phone:     "+66812345678",
		Gender:    accounts.GenderFemale,
		Email:     "anna@example.com",
		Password:  "longenoughpwd",
		SchoolNum: "12345",
	})

	cerr, ok := client.As(err)
	if !ok {
		t.Fatalf("Register() error = %v, want API error", err)
	}
	if cerr.Message != "email already exists" {
		t.Errorf("message = %q, want %q", cerr.Message, "email already exists")
	}
}

func TestLoginLogout(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()

	seedUser(t, s, "longenoughpwd")

	t.Run("wrong password", func(t *testing.T) {
		_, err := api.Login(ctx, "anna@example.com", "wrong-password")
		if !client.IsUnauthorized(err) {
			t.Errorf("Login() error = %v, want 401", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := api.Login(ctx, "nobody@example.com", "longenoughpwd")
		if !client.IsUnauthorized(err) {
			t.Errorf("Login() error = %v, want 401", err)
		}
	})

	t.Run("valid credentials then logout", func(t *testing.T) {
		user, err := api.Login(ctx, "anna@example.com", "longenoughpwd")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if user.Email != "anna@example.com" {
			t.Errorf("user = %+v", user)
		}

		if _, err := api.Me(ctx); err != nil {
			t.Fatalf("Me() error = %v", err)
		}

		if err := api.Logout(ctx); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}

		// session cookie was cleared
		if _, err := api.Me(ctx); !client.IsUnauthorized(err) {
			t.Errorf("Me() after logout error = %v, want 401", err)
		}
	})
}

func TestPasswordResetFlow(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()

	seedUser(t, s, "oldpassword1")

	if err := api.ResetPasswordMail(ctx, "anna@example.com"); err != nil {
		t.Fatalf("ResetPasswordMail() error = %v", err)
	}

	t.Run("unknown address", func(t *testing.T) {
		err := api.ResetPasswordMail(ctx, "nobody@example.com")
		cerr, ok := client.As(err)
		if !ok || cerr.Status != http.StatusNotFound {
			t.Errorf("ResetPasswordMail() error = %v, want 404", err)
		}
	})

	token, err := s.ResetToken("anna@example.com")
	if err != nil {
		t.Fatalf("ResetToken() error = %v", err)
	}

	if err := api.ResetPassword(ctx, &accounts.ResetPasswordRequest{
		ResetPwdToken: token,
		NewPassword:   "newpassword1",
	}); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	if _, err := api.Login(ctx, "anna@example.com", "oldpassword1"); !client.IsUnauthorized(err) {
		t.Errorf("old password still accepted, error = %v", err)
	}
	if _, err := api.Login(ctx, "anna@example.com", "newpassword1"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()

	seedUser(t, s, "longenoughpwd")
	if _, err := api.Login(ctx, "anna@example.com", "longenoughpwd"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	first := "Annabel"
	phone := "+66811111111"
	user, err := api.UpdateProfile(ctx, &accounts.UpdateProfileRequest{
		FirstName: &first,
		Phone:     &phone,
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if user.FirstName != "Annabel" || user.Phone != "+66811111111" {
		t.Errorf("user = %+v", user)
	}
	// untouched fields survive a partial update
	if user.Gender != accounts.GenderFemale || user.SchoolNum != "12345" {
		t.Errorf("partial update clobbered fields: %+v", user)
	}
}

func TestLoginRateLimit(t *testing.T) {
	s, api := newTestServer(t)
	ctx := context.Background()

	seedUser(t, s, "longenoughpwd")

	var limited bool
	for i := 0; i < 2*loginRateBurst; i++ {
		// unknown email keeps each attempt cheap
		_, err := api.Login(ctx, "nobody@example.com", "x")
		if cerr, ok := client.As(err); ok && cerr.Status == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Errorf("no 429 after %d rapid login attempts", 2*loginRateBurst)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := New("test-secret", []string{"http://localhost:3000"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	handler, err := s.Handler()
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
	}
}

func TestMeRequiresSession(t *testing.T) {
	_, api := newTestServer(t)

	_, err := api.Me(context.Background())
	if !client.IsUnauthorized(err) {
		t.Errorf("Me() without session error = %v, want 401", err)
	}
}
