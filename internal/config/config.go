package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	BackendConfig
	StorageConfig
	GuardConfig
	MockBackendConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Backend
	Storage
	Guard
	MockBackend
	Cors
}

func New() Config {
	return mainConfig{}
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// named) without overriding variables already set in the environment. A
// missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
