package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Credentials holds the optional bearer token for the analysis backend.
// Stored separately from the main config so the config file can be shared.
type Credentials struct {
	Token string `toml:"token"`
}

func credentialsPath() (string, error) {
	dir, err := EnsureDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.toml"), nil
}

// LoadCredentials reads the credentials file. A missing file is not an error;
// it yields empty credentials.
func LoadCredentials() (*Credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}

	creds := &Credentials{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return creds, nil
	}

	if _, err := toml.DecodeFile(path, creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// SaveCredentials writes the credentials file with owner-only permissions.
func SaveCredentials(creds *Credentials) error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(creds)
}
