// Package auth stores the remote store token and the local database key in
// the system credential store, with environment-variable overrides.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	defaultSecretService = "ghesta"
	tokenSecretUser      = "remote_token"
	dbKeySecretUser      = "db_key"
)

var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
)

// LoadToken loads the remote store access token.
//
// Order of precedence:
// 1) GHESTA_TOKEN environment variable.
// 2) System credential store item referenced by service/account.
func LoadToken() (string, error) {
	if token := strings.TrimSpace(os.Getenv("GHESTA_TOKEN")); token != "" {
		return token, nil
	}

	token, err := loadSecret(tokenSecretUser)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errors.New("remote token is empty")
	}
	return token, nil
}

// SaveToken stores the remote store token in the system credential store.
func SaveToken(token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return errors.New("remote token cannot be empty")
	}
	return saveSecret(tokenSecretUser, trimmed)
}

// LoadDBKey loads the local database encryption key.
func LoadDBKey() (string, error) {
	return loadSecret(dbKeySecretUser)
}

// SaveDBKey stores the local database encryption key.
func SaveDBKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return errors.New("db key cannot be empty")
	}
	return saveSecret(dbKeySecretUser, trimmed)
}

// DeleteDBKey removes the local database encryption key, forcing the next
// open to generate a fresh key and reset local files.
func DeleteDBKey() error {
	service := envOrDefault("GHESTA_KEYCHAIN_SERVICE", defaultSecretService)
	if err := keyringDelete(service, dbKeySecretUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring item service=%q account=%q: %w", service, dbKeySecretUser, err)
	}
	return nil
}

func loadSecret(account string) (string, error) {
	service := envOrDefault("GHESTA_KEYCHAIN_SERVICE", defaultSecretService)

	secret, err := keyringGet(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf(
			"failed to read keyring item service=%q account=%q: %w",
			service,
			account,
			err,
		)
	}
	return strings.TrimSpace(secret), nil
}

func saveSecret(account, value string) error {
	service := envOrDefault("GHESTA_KEYCHAIN_SERVICE", defaultSecretService)

	if err := keyringSet(service, account, value); err != nil {
		return fmt.Errorf(
			"failed to store keyring item service=%q account=%q: %w",
			service,
			account,
			err,
		)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
