package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-nafath-server/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNafathConfig_Defaults(t *testing.T) {
	t.Setenv("NAFATH_BASE_URL", "")
	t.Setenv("NAFATH_CLIENT_ID", "")
	t.Setenv("NAFATH_CLIENT_SECRET", "")
	t.Setenv("NAFATH_REDIRECT_URI", "")
	t.Setenv("API_BASE_URL", "https://api.example.edu.sa/")
	t.Setenv("NAFATH_HTTP_TIMEOUT", "not-a-duration")

	c := config.New()

	require.Empty(t, c.GetNafathBaseURL())
	require.Empty(t, c.GetNafathClientID())
	require.Empty(t, c.GetNafathClientSecret())
	require.Equal(t, "https://api.example.edu.sa/api/nafath/callback", c.GetNafathRedirectURI())
	require.Equal(t, "openid profile", c.GetNafathScope())
	require.Equal(t, 10*time.Second, c.GetNafathHTTPTimeout())
	require.Equal(t, 30*time.Minute, c.GetNafathSessionTTL())
	require.False(t, c.GetNafathDiscovery())
}

func TestNafathConfig_FromEnvironment(t *testing.T) {
	t.Setenv("NAFATH_BASE_URL", "https://nafath.example.sa")
	t.Setenv("NAFATH_CLIENT_ID", "client")
	t.Setenv("NAFATH_CLIENT_SECRET", "secret")
	t.Setenv("NAFATH_REDIRECT_URI", "https://api.example.edu.sa/cb")
	t.Setenv("NAFATH_DISCOVERY", "true")
	t.Setenv("NAFATH_SWEEP_INTERVAL", "1m")

	c := config.New()

	require.Equal(t, "https://nafath.example.sa", c.GetNafathBaseURL())
	require.Equal(t, "client", c.GetNafathClientID())
	require.Equal(t, "secret", c.GetNafathClientSecret())
	require.Equal(t, "https://api.example.edu.sa/cb", c.GetNafathRedirectURI())
	require.True(t, c.GetNafathDiscovery())
	require.Equal(t, time.Minute, c.GetNafathSweepInterval())
}

func TestEnvConfig(t *testing.T) {
	t.Run("port gets a colon prefix", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		require.Equal(t, ":9000", config.New().GetPort())
	})

	t.Run("env is upper cased", func(t *testing.T) {
		t.Setenv("ENV", "prod")
		require.Equal(t, "PROD", config.New().GetEnv())
	})

	t.Run("return url joins base and path", func(t *testing.T) {
		t.Setenv("APP_BASE_URL", "https://jobs.example.edu.sa/")
		t.Setenv("APP_RETURN_PATH", "")
		require.Equal(t, "https://jobs.example.edu.sa/apply", config.New().GetAppReturnURL())

		t.Setenv("APP_RETURN_PATH", "register/step-2")
		require.Equal(t, "https://jobs.example.edu.sa/register/step-2", config.New().GetAppReturnURL())
	})
}

func TestCorsConfig_AllowedOrigins(t *testing.T) {
	t.Setenv("APP_BASE_URL", "https://jobs.example.edu.sa")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://admin.example.edu.sa/ ,,https://other.example.edu.sa")

	origins := config.New().GetAllowedOrigins()

	require.True(t, origins.IsAllowedOrigin("https://jobs.example.edu.sa"))
	require.True(t, origins.IsAllowedOrigin("https://admin.example.edu.sa"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example.com"))
	require.Equal(t, []string{
		"https://admin.example.edu.sa",
		"https://jobs.example.edu.sa",
		"https://other.example.edu.sa",
	}, origins.List())
}

func TestStoreConfig(t *testing.T) {
	t.Run("sqlite default path", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "")
		t.Setenv("DATABASE_URL", "")
		c := config.New()
		require.Equal(t, config.StoreDriverSQLite, c.GetStoreDriver())
		require.Equal(t, "./data/nafath.db", c.GetDatabaseURL())
	})

	t.Run("postgres has no default dsn", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "Postgres")
		t.Setenv("DATABASE_URL", "")
		c := config.New()
		require.Equal(t, config.StoreDriverPostgres, c.GetStoreDriver())
		require.Empty(t, c.GetDatabaseURL())
	})
}
