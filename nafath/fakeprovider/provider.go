// Package fakeprovider runs an in-process identity provider for tests. It implements
// the token, user-info and discovery endpoints the nafath client talks to.
package fakeprovider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-nafath-server/nafath"
)

const (
	ClientID     = "fake-client"
	ClientSecret = "fake-secret"
	AccessToken  = "fake-access-token"
)

// Provider is a fake identity provider backed by httptest.Server.
type Provider struct {
	server *httptest.Server

	mu             sync.Mutex
	userInfo       nafath.UserInfo
	tokenStatus    int
	tokenBody      string
	userInfoStatus int
	userInfoBody   string
	tokenDelay     time.Duration
	usedCodes      map[string]bool
	tokenRequests  []url.Values
	authHeaders    []string
}

// DefaultUserInfo is returned by the user-info endpoint unless SetUserInfo is called.
func DefaultUserInfo() nafath.UserInfo {
	return nafath.UserInfo{
		NationalID:  "1012345678",
		ArabicName:  "محمد عبدالله السالم",
		EnglishName: "Mohammed Abdullah Alsalem",
		BirthDate:   "2000-06-15",
		Nationality: "SA",
		Gender:      "male",
	}
}

// New starts a fake provider that is shut down when the test finishes.
func New(t testing.TB) *Provider {
	t.Helper()

	p := &Provider{
		userInfo:  DefaultUserInfo(),
		usedCodes: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", p.handleToken)
	mux.HandleFunc("GET /oauth/userinfo", p.handleUserInfo)
	mux.HandleFunc("GET /.well-known/openid-configuration", p.handleDiscovery)

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

// URL returns the provider base URL.
func (p *Provider) URL() string {
	return p.server.URL
}

// Config returns a nafath.Config pointing at this provider.
func (p *Provider) Config(redirectURI string) nafath.Config {
	return nafath.Config{
		BaseURL:      p.server.URL,
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		RedirectURI:  redirectURI,
		Scope:        "openid profile",
		HTTPTimeout:  2 * time.Second,
	}
}

// SetUserInfo replaces the identity returned by the user-info endpoint.
func (p *Provider) SetUserInfo(info nafath.UserInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfo = info
}

// FailToken makes the token endpoint answer with status and body.
func (p *Provider) FailToken(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenStatus = status
	p.tokenBody = body
}

// FailUserInfo makes the user-info endpoint answer with status and body.
func (p *Provider) FailUserInfo(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoStatus = status
	p.userInfoBody = body
}

// DelayToken holds token responses for d, or until the client gives up.
func (p *Provider) DelayToken(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenDelay = d
}

// TokenRequests returns the form bodies received by the token endpoint.
func (p *Provider) TokenRequests() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]url.Values(nil), p.tokenRequests...)
}

// AuthorizationHeaders returns the Authorization headers received by the user-info endpoint.
func (p *Provider) AuthorizationHeaders() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.authHeaders...)
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
		return
	}

	p.mu.Lock()
	p.tokenRequests = append(p.tokenRequests, r.PostForm)
	status, body, delay := p.tokenStatus, p.tokenBody, p.tokenDelay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unsupported_grant_type"})
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid_client"})
		return
	}

	code := r.PostForm.Get("code")
	p.mu.Lock()
	reused := p.usedCodes[code]
	p.usedCodes[code] = true
	p.mu.Unlock()
	if code == "" || reused {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_grant", ErrorDescription: "authorization code is invalid or already used"})
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   3600,
		Scope:       "openid profile",
	})
}

func (p *Provider) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")

	p.mu.Lock()
	p.authHeaders = append(p.authHeaders, authHeader)
	status, body, info := p.userInfoStatus, p.userInfoBody, p.userInfo
	p.mu.Unlock()

	if authHeader != "Bearer "+AccessToken {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid_token"})
		return
	}

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (p *Provider) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	base := p.server.URL
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                base,
		"authorization_endpoint":                base + "/oauth/authorize",
		"token_endpoint":                        base + "/oauth/token",
		"userinfo_endpoint":                     base + "/oauth/userinfo",
		"jwks_uri":                              base + "/.well-known/jwks.json",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
