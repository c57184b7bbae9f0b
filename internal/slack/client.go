package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// Member is one workspace user as returned by the member listing.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client is the surface of the Slack Web API the bot consumes. One client
// is scoped to one workspace's bot token.
type Client interface {
	ListTeamMembers(ctx context.Context) ([]Member, error)
	OpenDirectChannel(ctx context.Context, userID string) (string, error)
	PostMessage(ctx context.Context, channelID, text string) error
}

// HTTPClient represents the functionality we need from an *http.Client, or
// similar.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// APIClient talks to the Slack Web API with a fixed bot token.
type APIClient struct {
	token   string
	baseURL string
	httpc   HTTPClient
}

// NewClient returns a Web API client for the given bot token. A nil
// httpClient falls back to a client with a request timeout.
func NewClient(token string, httpClient HTTPClient) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{token: token, baseURL: DefaultBaseURL, httpc: httpClient}
}

// SetBaseURL overrides the API root, for tests.
func (c *APIClient) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// apiEnvelope is the common response wrapper every Web API method returns.
type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// call posts a form-encoded request to the named API method and decodes the
// response into out when it is non-nil.
func (c *APIClient) call(ctx context.Context, method string, vals url.Values, out any) error {
	vals.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(vals.Encode()))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calling %s: unexpected status %d", method, resp.StatusCode)
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("calling %s: slack error: %s", method, env.Error)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", method, err)
		}
	}
	return nil
}

// ListTeamMembers returns all members of the workspace the token belongs to.
func (c *APIClient) ListTeamMembers(ctx context.Context) ([]Member, error) {
	var out struct {
		Members []Member `json:"members"`
	}
	if err := c.call(ctx, "users.list", url.Values{}, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// OpenDirectChannel opens (or reuses) a direct-message channel with userID
// and returns its channel id.
func (c *APIClient) OpenDirectChannel(ctx context.Context, userID string) (string, error) {
	var out struct {
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	if err := c.call(ctx, "conversations.open", url.Values{"users": {userID}}, &out); err != nil {
		return "", err
	}
	return out.Channel.ID, nil
}

// PostMessage posts text to a channel as the bot.
func (c *APIClient) PostMessage(ctx context.Context, channelID, text string) error {
	return c.call(ctx, "chat.postMessage", url.Values{"channel": {channelID}, "text": {text}}, nil)
}
