package stubserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/classtime-project/classtime-client/internal/accounts"
	"github.com/classtime-project/classtime-client/internal/schemas"
)

type contextKey struct {
	name string
}

var userIDKey = contextKey{"user_id"}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, userID uuid.UUID) error {
	token, err := s.sessionToken(userID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// requireSession authenticates the session cookie and stores the user id in
// the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		userID, err := s.parseSessionToken(cookie.Value)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func contextUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}

// handleRegistrationMail stands in for the email flow: the stub logs the
// registration token instead of mailing a link. An already-registered address
// gets the same empty 200 so the endpoint leaks nothing.
func (s *Server) handleRegistrationMail(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		respondError(w, http.StatusBadRequest, "invalid email")
		return
	}

	if _, exists := s.lookupByEmail(email); exists {
		s.logger.Info("registration requested for existing account", slog.String("email", email))
		w.WriteHeader(http.StatusOK)
		return
	}

	token, err := s.actionToken(email, purposeRegistration)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed generating access token")
		return
	}

	s.logger.Info("registration token issued",
		slog.String("email", email),
		slog.String("token", token),
	)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	tokenString, err := url.PathUnescape(chi.URLParam(r, "registrationToken"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errActionTokenParse.Error())
		return
	}

	var req accounts.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	email, err := s.parseActionToken(tokenString, purposeRegistration)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// the token, not the form, decides the address being registered
	req.Email = email

	if err := schemas.ValidateRegister(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed hashing password")
		return
	}

	user := accounts.User{
		ID:         uuid.New(),
		Role:       req.Role,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Gender:     req.Gender,
		Email:      email,
		SchoolNum:  req.SchoolNum,
	}

	s.mu.Lock()
	if _, exists := s.byEmail[email]; exists {
		s.mu.Unlock()
		respondError(w, http.StatusBadRequest, "email already exists")
		return
	}
	s.users[user.ID] = &record{user: user, passwordHash: hash}
	s.byEmail[email] = user.ID
	s.mu.Unlock()

	if err := s.setSessionCookie(w, user.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed generating access token")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req accounts.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rec, ok := s.lookupByEmail(req.Email)
	if !ok || !checkPassword(rec.passwordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := s.setSessionCookie(w, rec.user.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed generating access token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": rec.user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleResetPasswordMail(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || email == "" {
		respondError(w, http.StatusBadRequest, "invalid email")
		return
	}

	if _, exists := s.lookupByEmail(email); !exists {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	token, err := s.actionToken(email, purposePasswordReset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed generating access token")
		return
	}

	s.logger.Info("password reset token issued",
		slog.String("email", email),
		slog.String("token", token),
	)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req accounts.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := schemas.ValidateResetPassword(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	email, err := s.parseActionToken(req.ResetPwdToken, purposePasswordReset)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed hashing password")
		return
	}

	s.mu.Lock()
	id, exists := s.byEmail[email]
	if !exists {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	s.users[id].passwordHash = hash
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := contextUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	rec, exists := s.lookupByID(userID)
	if !exists {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"user": rec.user})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := contextUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	var req accounts.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := schemas.ValidateUpdateProfile(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	rec, exists := s.users[userID]
	if !exists {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	if req.FirstName != nil {
		rec.user.FirstName = *req.FirstName
	}
	if req.MiddleName != nil {
		rec.user.MiddleName = *req.MiddleName
	}
	if req.LastName != nil {
		rec.user.LastName = *req.LastName
	}
	if req.Phone != nil {
		rec.user.Phone = *req.Phone
	}
	if req.Gender != nil {
		rec.user.Gender = *req.Gender
	}
	user := rec.user
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}
