package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// AssignRole grants a role to a community member. Idempotent on the platform
// side: granting an already-held role succeeds.
func (c *Client) AssignRole(ctx context.Context, communityID, memberID, roleID string) error {
	path := fmt.Sprintf("/v1/communities/%s/members/%s/roles/%s", communityID, memberID, roleID)
	return c.do(ctx, http.MethodPut, path, nil, nil, nil)
}

// RemoveRole revokes a role from a community member.
func (c *Client) RemoveRole(ctx context.Context, communityID, memberID, roleID string) error {
	path := fmt.Sprintf("/v1/communities/%s/members/%s/roles/%s", communityID, memberID, roleID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Kick removes a member from a community. The reason is recorded in the
// platform's own moderation log.
func (c *Client) Kick(ctx context.Context, communityID, memberID, reason string) error {
	path := fmt.Sprintf("/v1/communities/%s/members/%s", communityID, memberID)
	params := url.Values{}
	if reason != "" {
		params.Set("reason", reason)
	}
	return c.do(ctx, http.MethodDelete, path, params, nil, nil)
}
