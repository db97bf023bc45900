package stubserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	purposeRegistration  = "registration"
	purposePasswordReset = "password_reset"
)

// errors returned to clients verbatim, matching the production server
var (
	errActionTokenParse   = errors.New("failed parsing action token")
	errActionTokenExpired = errors.New("action token already expired")
)

type actionClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// actionToken issues a single-purpose token embedded in registration and
// password-reset links.
func (s *Server) actionToken(email, purpose string) (string, error) {
	claims := actionClaims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(actionTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed signing action token: %w", err)
	}
	return signed, nil
}

// parseActionToken validates a token and returns the email it was issued
// for. Expired tokens are distinguished from malformed ones so the client
// can tell the user to request a new link.
func (s *Server) parseActionToken(tokenString, purpose string) (string, error) {
	claims := &actionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errActionTokenExpired
		}
		return "", errActionTokenParse
	}

	if !token.Valid || claims.Purpose != purpose || claims.Email == "" {
		return "", errActionTokenParse
	}

	return claims.Email, nil
}

// sessionToken issues the JWT stored in the session cookie.
func (s *Server) sessionToken(userID uuid.UUID) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed signing session token: %w", err)
	}
	return signed, nil
}

func (s *Server) parseSessionToken(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid session token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session subject: %w", err)
	}
	return userID, nil
}

// RegistrationToken issues a registration token for the address, as the mail
// link would. Exposed for tests and the CLI dev flow (the stub sends no mail).
func (s *Server) RegistrationToken(email string) (string, error) {
	return s.actionToken(email, purposeRegistration)
}

// ResetToken issues a password-reset token for the address.
func (s *Server) ResetToken(email string) (string, error) {
	return s.actionToken(email, purposePasswordReset)
}

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed hashing password: %w", err)
	}
	return hash, nil
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
