package nafath

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const maxResponseBodySize = 1 << 20

// Client talks to the identity provider: it builds the authorization URL, exchanges
// authorization codes for access tokens and fetches the verified identity.
// Calls are never retried; an authorization code can only be exchanged once.
type Client struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewClient builds a client from cfg. It does not validate cfg; callers check
// Config.IsConfigured before starting a flow.
func NewClient(cfg Config) *Client {
	ep := cfg.ResolveEndpoints()
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:  ep.AuthURL,
				TokenURL: ep.TokenURL,
				// client_id and client_secret travel in the form body
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: ep.UserInfoURL,
		httpClient:  &http.Client{Timeout: cfg.timeout()},
	}
}

// AuthCodeURL returns the provider authorization URL carrying client_id, redirect_uri,
// response_type=code, scope and state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a bearer access token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	token, err := c.oauth.Exchange(ctx, code)
	observe("token", start, err)
	if err != nil {
		return nil, newProviderError(c.oauth.Endpoint.TokenURL, err)
	}

	if token.Type() != "Bearer" {
		return nil, newProviderError(c.oauth.Endpoint.TokenURL, fmt.Errorf("unsupported token type %q", token.TokenType))
	}
	return token, nil
}

// UserInfo fetches the identity payload using the access token as a bearer credential.
func (c *Client) UserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	if token == nil || token.AccessToken == "" {
		return nil, newProviderError(c.userInfoURL, fmt.Errorf("missing access token"))
	}

	client := &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.AccessToken, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, newProviderError(c.userInfoURL, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	info, err := c.doUserInfo(client, req)
	observe("userinfo", start, err)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) doUserInfo(client *http.Client, req *http.Request) (*UserInfo, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, newProviderError(c.userInfoURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, newProviderError(c.userInfoURL, fmt.Errorf("read user info: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			Endpoint:   c.userInfoURL,
			StatusCode: resp.StatusCode,
			Body:       truncate(body),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, newProviderError(c.userInfoURL, fmt.Errorf("decode user info: %w", err))
	}
	if err := info.Validate(); err != nil {
		return nil, newProviderError(c.userInfoURL, err)
	}
	return &info, nil
}
