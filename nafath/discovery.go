package nafath

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Discover resolves the provider endpoints from the issuer's OpenID discovery document.
func Discover(ctx context.Context, issuer string, timeout time.Duration) (Endpoints, error) {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx = oidc.ClientContext(ctx, &http.Client{Timeout: timeout})

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Endpoints{}, fmt.Errorf("[nafath Discover] failed to load discovery document: %w", err)
	}

	var claims struct {
		UserInfoURL string `json:"userinfo_endpoint"`
	}
	if err := provider.Claims(&claims); err != nil {
		return Endpoints{}, fmt.Errorf("[nafath Discover] failed to decode discovery claims: %w", err)
	}
	if claims.UserInfoURL == "" {
		return Endpoints{}, fmt.Errorf("[nafath Discover] discovery document has no userinfo_endpoint")
	}

	endpoint := provider.Endpoint()
	return Endpoints{
		AuthURL:     endpoint.AuthURL,
		TokenURL:    endpoint.TokenURL,
		UserInfoURL: claims.UserInfoURL,
	}, nil
}
