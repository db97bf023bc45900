// Package stubserver implements the classtime account API in memory. It
// exists so the client can be developed and tested without the real backend:
// the endpoints, error bodies and cookie behavior follow the production
// server.
package stubserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jub0bs/cors"
	"golang.org/x/time/rate"

	"github.com/classtime-project/classtime-client/internal/accounts"
	"github.com/classtime-project/classtime-client/internal/logger"
)

const (
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "accessToken"

	sessionTTL     = time.Hour
	actionTokenTTL = time.Hour

	loginRatePerSecond = 5
	loginRateBurst     = 10

	corsMaxAgeInSeconds = 86400

	shutdownTimeout = 10 * time.Second
)

type record struct {
	user         accounts.User
	passwordHash []byte
}

// Server holds the in-memory account state.
type Server struct {
	secret  []byte
	logger  *slog.Logger
	origins []string

	mu       sync.Mutex
	users    map[uuid.UUID]*record
	byEmail  map[string]uuid.UUID
	limiters map[string]*rate.Limiter
}

// New creates a stub account server. The secret signs session and action
// tokens; origins is the CORS allow-list for browser clients (defaults to
// the local dev origin).
func New(secret string, origins []string, log *slog.Logger) *Server {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		secret:   []byte(secret),
		logger:   log,
		origins:  origins,
		users:    make(map[uuid.UUID]*record),
		byEmail:  make(map[string]uuid.UUID),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handler builds the router with the full endpoint surface.
func (s *Server) Handler() (http.Handler, error) {
	corsMiddleware, err := cors.NewMiddleware(cors.Config{
		Origins:      s.origins,
		Credentialed: true,
		Methods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		RequestHeaders:  []string{"Content-Type"},
		MaxAgeInSeconds: corsMaxAgeInSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create CORS middleware: %w", err)
	}

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(logger.RequestLogging(s.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(corsMiddleware.Wrap)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/auth/registration-mail/{email}", s.handleRegistrationMail)
		r.Post("/auth/register/{registrationToken}", s.handleRegister)
		r.With(s.loginRateLimit).Post("/auth/login", s.handleLogin)
		r.Get("/auth/reset-password-mail/{email}", s.handleResetPasswordMail)
		r.Put("/auth/reset-password", s.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/users/me", s.handleMe)
			r.Put("/users", s.handleUpdateProfile)
		})
	})

	return router, nil
}

// Start runs the stub server until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("stub account API listening", slog.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down stub account API")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
	}

	return nil
}

// Seed adds an account directly, for tests and local development.
func (s *Server) Seed(user accounts.User, password string) (accounts.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return accounts.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, exists := s.byEmail[user.Email]; exists {
		return accounts.User{}, fmt.Errorf("email already exists: %s", user.Email)
	}

	s.users[user.ID] = &record{user: user, passwordHash: hash}
	s.byEmail[user.Email] = user.ID
	return user, nil
}

func (s *Server) lookupByEmail(email string) (*record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, false
	}
	return s.users[id], true
}

func (s *Server) lookupByID(id uuid.UUID) (*record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	return rec, ok
}

// loginRateLimit limits login attempts per client IP
func (s *Server) loginRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		s.mu.Lock()
		limiter, ok := s.limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(loginRatePerSecond), loginRateBurst)
			s.limiters[ip] = limiter
		}
		s.mu.Unlock()

		if !limiter.Allow() {
			respondError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
