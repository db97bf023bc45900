package client

import (
	"context"

	"github.com/classtime-project/classtime-client/internal/accounts"
)

const usersBasePath = "/api/v1/users"

// Me returns the account associated with the current session cookie.
// A 401 means no session is active.
func (c *Client) Me(ctx context.Context) (*accounts.User, error) {
	res, err := c.get(ctx, usersBasePath+"/me", nil)
	if err != nil {
		return nil, err
	}

	var envelope userEnvelope
	if err := res.Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.User, nil
}

// UpdateProfile applies a partial profile edit to the current account.
func (c *Client) UpdateProfile(ctx context.Context, req *accounts.UpdateProfileRequest) (*accounts.User, error) {
	res, err := c.put(ctx, usersBasePath, req)
	if err != nil {
		return nil, err
	}

	var envelope userEnvelope
	if err := res.Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.User, nil
}
