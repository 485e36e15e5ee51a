package config

import "strings"

const (
	storeDriverVar = "STORE_DRIVER"
	databaseURLVar = "DATABASE_URL"
)

// Supported session store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetDatabaseURL() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreDriver() string {
	return strings.ToLower(GetEnv(storeDriverVar, StoreDriverSQLite))
}

// GetDatabaseURL returns the DSN for the configured driver. SQLite defaults to a local file.
func (s Store) GetDatabaseURL() string {
	if s.GetStoreDriver() == StoreDriverSQLite {
		return GetEnv(databaseURLVar, "./data/nafath.db")
	}
	return GetEnv(databaseURLVar, "")
}
