package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	logLevelVar      = "LOG_LEVEL"
	appBaseURLVar    = "APP_BASE_URL"
	apiBaseURLVar    = "API_BASE_URL"
	appReturnPathVar = "APP_RETURN_PATH"
	environmentVar   = "ENV"
	defaultAppName   = "Nafath Verification"
	defaultLogLevel  = "info"
	defaultPort      = "8080"
	defaultAppBase   = "http://localhost:3000"
	defaultAPIBase   = "http://localhost:8080"
	defaultReturn    = "/apply"
	defaultEnvString = "DEV"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, defaultPort)
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, defaultAppName)
}

func (EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(environmentVar, defaultEnvString))
}

func (EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelVar, defaultLogLevel))
}

// GetAppBaseURL returns the URL of the browser application (e.g., "https://jobs.example.edu.sa").
// The callback handler redirects the browser back here once verification completes.
func (EnvVars) GetAppBaseURL() string {
	return strings.TrimRight(GetEnv(appBaseURLVar, defaultAppBase), "/")
}

// GetAppReturnURL is the application page that receives the verification outcome.
func (e EnvVars) GetAppReturnURL() string {
	path := GetEnv(appReturnPathVar, defaultReturn)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.GetAppBaseURL() + path
}

// GetAPIBaseURL returns the public URL of this API, used to build the default OAuth redirect URI.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, defaultAPIBase), "/")
}

func GetEnv(envVar, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(envVar))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a Go duration ("30m", "10s"). Invalid values fall back to the default.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	b, err := strconv.ParseBool(GetEnv(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return b
}
