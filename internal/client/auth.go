package client

import (
	"context"
	"net/url"

	"github.com/classtime-project/classtime-client/internal/accounts"
)

const authBasePath = "/api/v1/auth"

// userEnvelope matches the {"user": ...} success shape used by the account
// endpoints.
type userEnvelope struct {
	User *accounts.User `json:"user"`
}

// RegistrationMail asks the server to send a registration link to the
// address. The server responds identically whether or not the address is
// already registered.
func (c *Client) RegistrationMail(ctx context.Context, email string) error {
	_, err := c.get(ctx, authBasePath+"/registration-mail/"+url.PathEscape(email), nil)
	return err
}

// Register completes an account registration using the single-use token from
// the registration link. On success the server also starts a session.
func (c *Client) Register(ctx context.Context, registrationToken string, req *accounts.RegisterRequest) (*accounts.User, error) {
	res, err := c.post(ctx, authBasePath+"/register/"+url.PathEscape(registrationToken), req)
	if err != nil {
		return nil, err
	}

	var envelope userEnvelope
	if err := res.Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.User, nil
}

// Login authenticates with email and password. The session cookie from the
// response is retained by the client's jar.
func (c *Client) Login(ctx context.Context, email, password string) (*accounts.User, error) {
	res, err := c.post(ctx, authBasePath+"/login", &accounts.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var envelope userEnvelope
	if err := res.Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.User, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, authBasePath+"/logout", nil)
	return err
}

// ResetPasswordMail asks the server to send a password-reset link.
func (c *Client) ResetPasswordMail(ctx context.Context, email string) error {
	_, err := c.get(ctx, authBasePath+"/reset-password-mail/"+url.PathEscape(email), nil)
	return err
}

// ResetPassword sets a new password using the token from the reset link.
func (c *Client) ResetPassword(ctx context.Context, req *accounts.ResetPasswordRequest) error {
	_, err := c.put(ctx, authBasePath+"/reset-password", req)
	return err
}
