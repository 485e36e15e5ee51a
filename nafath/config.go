package nafath

import (
	"strings"
	"time"
)

const (
	defaultAuthorizePath = "/oauth/authorize"
	defaultTokenPath     = "/oauth/token"
	defaultUserInfoPath  = "/oauth/userinfo"

	// DefaultHTTPTimeout bounds each call to the identity provider.
	DefaultHTTPTimeout = 10 * time.Second
)

// Endpoints are the three provider URLs used by the authorization-code flow.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// Config holds the identity provider integration settings.
// BaseURL, ClientID and ClientSecret are the required secrets; everything else has a default.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string        // Space separated scope string, e.g. "openid profile"
	Endpoints    Endpoints     // Optional overrides, typically filled in by Discover
	HTTPTimeout  time.Duration // Zero means DefaultHTTPTimeout
}

// IsConfigured reports whether all required secrets are present.
func (c Config) IsConfigured() bool {
	return strings.TrimSpace(c.BaseURL) != "" &&
		strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != ""
}

// ResolveEndpoints fills any endpoint left empty with its default path under BaseURL.
func (c Config) ResolveEndpoints() Endpoints {
	base := strings.TrimRight(c.BaseURL, "/")
	ep := c.Endpoints
	if ep.AuthURL == "" {
		ep.AuthURL = base + defaultAuthorizePath
	}
	if ep.TokenURL == "" {
		ep.TokenURL = base + defaultTokenPath
	}
	if ep.UserInfoURL == "" {
		ep.UserInfoURL = base + defaultUserInfoPath
	}
	return ep
}

func (c Config) timeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.HTTPTimeout
}
