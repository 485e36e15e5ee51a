package config

import "time"

const (
	nafathBaseURLVar       = "NAFATH_BASE_URL"
	nafathClientIDVar      = "NAFATH_CLIENT_ID"
	nafathClientSecretVar  = "NAFATH_CLIENT_SECRET"
	nafathRedirectURIVar   = "NAFATH_REDIRECT_URI"
	nafathScopeVar         = "NAFATH_SCOPE"
	nafathDiscoveryVar     = "NAFATH_DISCOVERY"
	nafathHTTPTimeoutVar   = "NAFATH_HTTP_TIMEOUT"
	nafathSessionTTLVar    = "NAFATH_SESSION_TTL"
	nafathSweepIntervalVar = "NAFATH_SWEEP_INTERVAL"

	// CallbackPath is where the identity provider redirects the browser after consent.
	CallbackPath = "/api/nafath/callback"
)

type NafathConfig interface {
	GetNafathBaseURL() string
	GetNafathClientID() string
	GetNafathClientSecret() string
	GetNafathRedirectURI() string
	GetNafathScope() string
	GetNafathDiscovery() bool
	GetNafathHTTPTimeout() time.Duration
	GetNafathSessionTTL() time.Duration
	GetNafathSweepInterval() time.Duration
}

type Nafath struct{}

var _ NafathConfig = Nafath{}

// Secrets have no defaults: when any of them is missing verification reports itself
// as not configured and applicants fall back to manual entry.
func (Nafath) GetNafathBaseURL() string {
	return GetEnv(nafathBaseURLVar, "")
}

func (Nafath) GetNafathClientID() string {
	return GetEnv(nafathClientIDVar, "")
}

func (Nafath) GetNafathClientSecret() string {
	return GetEnv(nafathClientSecretVar, "")
}

func (Nafath) GetNafathRedirectURI() string {
	return GetEnv(nafathRedirectURIVar, EnvVars{}.GetAPIBaseURL()+CallbackPath)
}

func (Nafath) GetNafathScope() string {
	return GetEnv(nafathScopeVar, "openid profile")
}

func (Nafath) GetNafathDiscovery() bool {
	return GetEnvBool(nafathDiscoveryVar, false)
}

func (Nafath) GetNafathHTTPTimeout() time.Duration {
	return GetEnvDuration(nafathHTTPTimeoutVar, 10*time.Second)
}

func (Nafath) GetNafathSessionTTL() time.Duration {
	return GetEnvDuration(nafathSessionTTLVar, 30*time.Minute)
}

func (Nafath) GetNafathSweepInterval() time.Duration {
	return GetEnvDuration(nafathSweepIntervalVar, 5*time.Minute)
}
