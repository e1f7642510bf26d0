package platform

import (
	"context"
	"fmt"
	"net/http"
)

// Message is an outbound notification. Content is plain text; Components are
// optional interactive affordances rendered under it.
type Message struct {
	Content    string      `json:"content"`
	Components []Component `json:"components,omitempty"`
}

// Component is a single interactive element, currently always a button. The
// CustomID round-trips back to us verbatim in the interaction event when a
// member clicks it.
type Component struct {
	Type     string `json:"type"`
	Label    string `json:"label"`
	CustomID string `json:"custom_id"`
	Style    string `json:"style,omitempty"`
}

const ComponentButton = "button"

// SendDirect delivers a private message to a member. Fails if the member has
// direct messages disabled or shares no reachable surface with the bot.
func (c *Client) SendDirect(ctx context.Context, memberID string, msg *Message) error {
	path := fmt.Sprintf("/v1/members/%s/messages", memberID)
	return c.do(ctx, http.MethodPost, path, nil, msg, nil)
}

// SendChannel posts a message to a community channel. Used as the visible
// fallback when direct delivery fails.
func (c *Client) SendChannel(ctx context.Context, communityID, channelID string, msg *Message) error {
	path := fmt.Sprintf("/v1/communities/%s/channels/%s/messages", communityID, channelID)
	return c.do(ctx, http.MethodPost, path, nil, msg, nil)
}

// Mention formats an in-message member mention.
func Mention(memberID string) string {
	return "<@" + memberID + ">"
}
