package config

import (
	"os"
	"path/filepath"
)

type StorageConfig interface {
	GetTokenFile() string
	GetTokenKeyFile() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetTokenFile() string {
	return GetEnv("TOKEN_FILE", filepath.Join(defaultStorageDir(), "tokens.json"))
}

func (Storage) GetTokenKeyFile() string {
	return GetEnv("TOKEN_KEY_FILE", filepath.Join(defaultStorageDir(), "tokens.key"))
}

func defaultStorageDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storefront"
	}
	return filepath.Join(dir, "storefront")
}
