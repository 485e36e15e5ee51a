package config

import "github.com/joho/godotenv"

type Config interface {
	EnvConfig
	CorsConfig
	NafathConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAppBaseURL() string
	GetAppReturnURL() string
	GetAPIBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
}

type mainConfig struct {
	EnvVars
	Cors
	Nafath
	Store
}

// New loads a .env file when one is present and returns the environment backed config.
// Values are read on every getter call so a missing secret is never cached.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
