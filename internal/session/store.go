// Package session tracks the authenticated user as a small observable state
// machine. The four identity-lifecycle operations (login, register, logout,
// refresh) are the only way the state changes; consumers read snapshots and
// never see raw transport errors.
package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/classtime-project/classtime-client/internal/accounts"
	"github.com/classtime-project/classtime-client/internal/client"
)

// Status is the finite-state classification of the current authentication
// state. It is the sole authority for what a consumer should render.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusAuthenticated
	StatusUnauthenticated
	StatusError
)

var statusNames = []string{"idle", "loading", "authenticated", "unauthenticated", "error"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Snapshot is a point-in-time copy of the store state.
// User is non-nil only when Status is StatusAuthenticated; ErrMsg is set only
// for StatusError and StatusUnauthenticated.
type Snapshot struct {
	User   *accounts.User
	Status Status
	ErrMsg string
}

// Store owns the session state. It is created once by the application root
// and passed to consumers explicitly.
//
// The mutex guards individual transitions, not whole operations: concurrent
// operations are not serialized and the final state belongs to whichever
// settles last.
type Store struct {
	api *client.Client

	mu     sync.Mutex
	user   *accounts.User
	status Status
	errMsg string
}

func NewStore(api *client.Client) *Store {
	return &Store{
		api:    api,
		status: StatusIdle,
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status: s.status,
		ErrMsg: s.errMsg,
	}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	return snap
}

// Login authenticates with email and password.
//
// A 401 transitions to unauthenticated with a fixed message rather than the
// server string, so a failed attempt reveals nothing about which accounts
// exist. Other API and transport failures transition to error. An unexpected
// non-client error is recorded and also returned to the caller.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.begin()

	user, err := s.api.Login(ctx, email, password)
	if err == nil {
		s.setAuthenticated(user)
		return nil
	}

	cerr, ok := client.As(err)
	if !ok {
		s.set(StatusError, nil, err.Error())
		return err
	}

	if cerr.IsStatus(http.StatusUnauthorized) {
		s.set(StatusUnauthenticated, nil, "Invalid email or password")
		return nil
	}

	s.set(StatusError, nil, friendlyMessage(cerr))
	return nil
}

// Register completes an account registration with the token from the
// registration link. Success starts a session, like login.
func (s *Store) Register(ctx context.Context, registrationToken string, req *accounts.RegisterRequest) error {
	s.begin()

	user, err := s.api.Register(ctx, registrationToken, req)
	if err == nil {
		s.setAuthenticated(user)
		return nil
	}

	cerr, ok := client.As(err)
	if !ok {
		s.set(StatusError, nil, err.Error())
		return err
	}

	if cerr.IsStatus(http.StatusUnauthorized) {
		s.set(StatusUnauthenticated, nil, "Invalid email or password")
		return nil
	}

	s.set(StatusError, nil, friendlyMessage(cerr))
	return nil
}

// Logout ends the session. The user is cleared whether or not the server
// call succeeds.
func (s *Store) Logout(ctx context.Context) error {
	s.begin()

	err := s.api.Logout(ctx)
	if err == nil {
		s.set(StatusUnauthenticated, nil, "")
		return nil
	}

	cerr, ok := client.As(err)
	if !ok {
		s.set(StatusError, nil, err.Error())
		return err
	}

	s.set(StatusError, nil, friendlyMessage(cerr))
	return nil
}

// RefreshUser asks the server whether a session is already active (the
// auto-login performed at application start). A 401 is the expected
// "not logged in" answer and sets no error message.
func (s *Store) RefreshUser(ctx context.Context) error {
	s.begin()

	user, err := s.api.Me(ctx)
	if err == nil {
		s.setAuthenticated(user)
		return nil
	}

	cerr, ok := client.As(err)
	if !ok {
		s.set(StatusError, nil, err.Error())
		return err
	}

	if cerr.IsStatus(http.StatusUnauthorized) {
		s.set(StatusUnauthenticated, nil, "")
		return nil
	}

	s.set(StatusError, nil, friendlyMessage(cerr))
	return nil
}

// begin marks an operation in flight: previous error and user are cleared so
// consumers render a spinner, not stale state.
func (s *Store) begin() {
	s.set(StatusLoading, nil, "")
}

func (s *Store) setAuthenticated(user *accounts.User) {
	if user == nil {
		// server broke the response contract; treat like an error outcome
		s.set(StatusError, nil, "Something went wrong")
		return
	}
	s.set(StatusAuthenticated, user, "")
}

func (s *Store) set(status Status, user *accounts.User, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.user = user
	s.errMsg = errMsg
}

// knownServerMessages maps server error strings to text safe to show inline.
var knownServerMessages = map[string]string{
	"email already exists":               "User already registered",
	"failed parsing action token":        "Invalid registration URL",
	"failed getting action token claims": "Invalid registration URL",
	"action token already expired":       "Registration link expired",
}

// friendlyMessage translates a client error into a user-presentable message.
func friendlyMessage(cerr *client.Error) string {
	switch cerr.Kind {
	case client.KindTimeout:
		return "Request timed out. Please try again."
	case client.KindConnection:
		return "Unable to connect. Please check your internet connection and try again."
	case client.KindAPI:
		if msg, ok := knownServerMessages[cerr.Message]; ok {
			return msg
		}
		return "Something went wrong"
	default:
		return "Something went wrong"
	}
}
