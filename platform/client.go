// Package platform provides a minimal typed client for the Darklock platform
// REST API and the wire types of its event gateway.
//
// Only the handful of endpoints the admission service needs are covered:
// role grants and removals, member kicks, and message delivery (direct or to
// a community channel). Calls are JSON-in/JSON-out over a retrying HTTP
// client, throttled client-side so a burst of admissions doesn't trip the
// platform's rate limits.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/darklock-net/gatehouse/util"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"
)

type Client struct {
	// Client is an HTTP client to use. If not set, defaults to util.RobustHTTPClient().
	Client    *http.Client
	Host      string
	BotToken  string
	UserAgent *string
	// Limiter throttles outbound calls when set.
	Limiter *rate.Limiter
}

// NewClient returns a client with the default HTTP stack and a 10 req/s
// client-side throttle.
func NewClient(host, botToken string) *Client {
	return &Client{
		Client:   util.RobustHTTPClient(),
		Host:     host,
		BotToken: botToken,
		Limiter:  rate.NewLimiter(rate.Limit(10), 20),
	}
}

func (c *Client) getClient() *http.Client {
	if c.Client == nil {
		return util.RobustHTTPClient()
	}
	return c.Client
}

// APIError is a structured error response from the platform API.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("platform API error %d", e.StatusCode)
	}
	return fmt.Sprintf("platform API error %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// NotFound indicates the target community, member, or channel is gone. Most
// callers treat this as non-fatal (the member may have left mid-flow).
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, bodyobj, out interface{}) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if bodyobj != nil {
		b, err := json.Marshal(bodyobj)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	uri := c.Host + path
	if len(params) > 0 {
		uri = uri + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return err
	}
	if bodyobj != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != nil {
		req.Header.Set("User-Agent", *c.UserAgent)
	} else {
		req.Header.Set("User-Agent", "gatehouse/"+versioninfo.Short())
	}
	if c.BotToken != "" {
		req.Header.Set("Authorization", "Bot "+c.BotToken)
	}

	resp, err := c.getClient().Do(req)
	if err != nil {
		return fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		ae := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(ae); err != nil {
			ae.Message = fmt.Sprintf("failed to decode error body: %s", err)
		}
		return ae
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding platform response: %w", err)
		}
	}
	return nil
}
