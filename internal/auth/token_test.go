package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadTokenUsesEnvVarFirst(t *testing.T) {
	t.Setenv("GHESTA_TOKEN", "  env-token  ")

	origGet := keyringGet
	defer func() { keyringGet = origGet }()

	keyringCalled := false
	keyringGet = func(service, user string) (string, error) {
		keyringCalled = true
		return "keyring-token", nil
	}

	got, err := LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() unexpected error: %v", err)
	}
	if got != "env-token" {
		t.Fatalf("LoadToken() = %q, want %q", got, "env-token")
	}
	if keyringCalled {
		t.Fatal("LoadToken() called keyringGet even though GHESTA_TOKEN was set")
	}
}

func TestLoadTokenFallsBackToKeyring(t *testing.T) {
	t.Setenv("GHESTA_TOKEN", "")
	t.Setenv("GHESTA_KEYCHAIN_SERVICE", "svc")

	origGet := keyringGet
	defer func() { keyringGet = origGet }()

	var gotService, gotUser string
	keyringGet = func(service, user string) (string, error) {
		gotService = service
		gotUser = user
		return "  keyring-token  ", nil
	}

	got, err := LoadToken()
	if err != nil {
		t.Fatalf("LoadToken() unexpected error: %v", err)
	}
	if got != "keyring-token" {
		t.Fatalf("LoadToken() = %q, want %q", got, "keyring-token")
	}
	if gotService != "svc" || gotUser != tokenSecretUser {
		t.Fatalf("keyringGet called with (%q, %q), want (%q, %q)", gotService, gotUser, "svc", tokenSecretUser)
	}
}

func TestLoadTokenReturnsErrorWhenKeyringFails(t *testing.T) {
	t.Setenv("GHESTA_TOKEN", "")

	origGet := keyringGet
	defer func() { keyringGet = origGet }()

	keyringGet = func(service, user string) (string, error) {
		return "", errors.New("boom")
	}

	_, err := LoadToken()
	if err == nil {
		t.Fatal("LoadToken() error = nil, want non-nil")
	}
	if !strings.Contains(err.Error(), "failed to read keyring item") {
		t.Fatalf("LoadToken() error = %q, expected keyring read context", err.Error())
	}
}

func TestSaveTokenRejectsEmptyValue(t *testing.T) {
	origSet := keyringSet
	defer func() { keyringSet = origSet }()

	called := false
	keyringSet = func(service, user, value string) error {
		called = true
		return nil
	}

	if err := SaveToken("   "); err == nil {
		t.Fatal("SaveToken() error = nil, want non-nil")
	}
	if called {
		t.Fatal("SaveToken() stored an empty token")
	}
}

func TestSaveTokenTrimsBeforeStoring(t *testing.T) {
	origSet := keyringSet
	defer func() { keyringSet = origSet }()

	var stored string
	keyringSet = func(service, user, value string) error {
		stored = value
		return nil
	}

	if err := SaveToken("  tok-123  "); err != nil {
		t.Fatalf("SaveToken() unexpected error: %v", err)
	}
	if stored != "tok-123" {
		t.Fatalf("stored token = %q, want %q", stored, "tok-123")
	}
}

func TestDBKeyRoundTripSeams(t *testing.T) {
	origGet, origSet := keyringGet, keyringSet
	defer func() { keyringGet, keyringSet = origGet, origSet }()

	store := map[string]string{}
	keyringSet = func(service, user, value string) error {
		store[service+"/"+user] = value
		return nil
	}
	keyringGet = func(service, user string) (string, error) {
		return store[service+"/"+user], nil
	}

	if err := SaveDBKey("secret-key"); err != nil {
		t.Fatalf("SaveDBKey() unexpected error: %v", err)
	}
	got, err := LoadDBKey()
	if err != nil {
		t.Fatalf("LoadDBKey() unexpected error: %v", err)
	}
	if got != "secret-key" {
		t.Fatalf("LoadDBKey() = %q, want %q", got, "secret-key")
	}
}
