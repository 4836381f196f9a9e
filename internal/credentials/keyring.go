// Package credentials stores backend API keys in the system keyring and
// tracks which secrets exist in the app database, so the UI can list
// them without ever reading their values.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"toolview/internal/backend"
)

const (
	serviceName = "toolview"

	// AnthropicAPIKeyName is the secret and environment variable name for
	// the claude backend.
	AnthropicAPIKeyName = "ANTHROPIC_API_KEY"
	// OpenAIAPIKeyName is the secret and environment variable name for
	// the codex backend.
	OpenAIAPIKeyName = "OPENAI_API_KEY"
)

// knownAPIKeyNames are the secrets the backends understand natively.
var knownAPIKeyNames = []string{AnthropicAPIKeyName, OpenAIAPIKeyName}

// ErrNotFound indicates that a requested secret was not found in the keyring.
var ErrNotFound = errors.New("secret not found")

// GetSecret retrieves the named secret from the system keyring.
func GetSecret(name string) (string, error) {
	secret, err := keyring.Get(serviceName, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read secret %q: %w", name, err)
	}
	return secret, nil
}

func SetSecret(name, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("secret %q cannot be empty", name)
	}
	if err := keyring.Set(serviceName, name, trimmed); err != nil {
		return fmt.Errorf("store secret %q: %w", name, err)
	}
	return nil
}

func DeleteSecret(name string) error {
	if err := keyring.Delete(serviceName, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete secret %q: %w", name, err)
	}
	return nil
}

// HasSecret reports whether the named secret exists in the keyring.
func HasSecret(name string) (bool, error) {
	_, err := GetSecret(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// APIKeyNameFor maps a backend kind to its API key secret name.
func APIKeyNameFor(kind backend.Kind) (string, error) {
	switch kind {
	case backend.KindClaude:
		return AnthropicAPIKeyName, nil
	case backend.KindCodex:
		return OpenAIAPIKeyName, nil
	default:
		return "", fmt.Errorf("no API key known for backend %q", kind)
	}
}

// Convenience helpers for the per-backend API keys.
func GetAPIKey(kind backend.Kind) (string, error) {
	name, err := APIKeyNameFor(kind)
	if err != nil {
		return "", err
	}
	return GetSecret(name)
}

func SetAPIKey(kind backend.Kind, key string) error {
	name, err := APIKeyNameFor(kind)
	if err != nil {
		return err
	}
	return SetSecret(name, key)
}

func DeleteAPIKey(kind backend.Kind) error {
	name, err := APIKeyNameFor(kind)
	if err != nil {
		return err
	}
	return DeleteSecret(name)
}

// HasAPIKey reports whether the kind's API key is stored, registering it
// in the database on sight so keys stored by older builds still list.
func HasAPIKey(kind backend.Kind) (bool, error) {
	name, err := APIKeyNameFor(kind)
	if err != nil {
		return false, err
	}
	exists, err := HasSecret(name)
	if err != nil || !exists {
		return exists, err
	}
	if regErr := RegisterSecret(name); regErr != nil {
		return exists, regErr
	}
	return true, nil
}

// EnvFor returns the KEY=value pair to inject into a backend subprocess,
// or nil when the variable is already exported, the key is not stored,
// or the kind has no known key. An exported variable always wins over
// the keyring.
func EnvFor(kind backend.Kind) []string {
	name, err := APIKeyNameFor(kind)
	if err != nil {
		return nil
	}
	if os.Getenv(name) != "" {
		return nil
	}
	value, err := GetSecret(name)
	if err != nil {
		return nil
	}
	return []string{name + "=" + value}
}
