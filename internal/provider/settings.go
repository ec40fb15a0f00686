package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sydlexius/driftwave/internal/encryption"
)

// SettingsService manages provider API keys using the settings key-value
// table. Keys are encrypted at rest.
type SettingsService struct {
	db        *sql.DB
	encryptor *encryption.Encryptor
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(db *sql.DB, encryptor *encryption.Encryptor) *SettingsService {
	return &SettingsService{db: db, encryptor: encryptor}
}

// apiKeySettingKey returns the settings table key for a provider's API key.
func apiKeySettingKey(name Name) string {
	return fmt.Sprintf("provider.%s.api_key", name)
}

// GetAPIKey retrieves and decrypts the API key for a provider.
// Returns empty string if no key is configured.
func (s *SettingsService) GetAPIKey(ctx context.Context, name Name) (string, error) {
	key := apiKeySettingKey(name)
	var encrypted string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading API key for %s: %w", name, err)
	}
	plaintext, err := s.encryptor.Decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("decrypting API key for %s: %w", name, err)
	}
	return plaintext, nil
}

// SetAPIKey encrypts and stores the API key for a provider.
func (s *SettingsService) SetAPIKey(ctx context.Context, name Name, apiKey string) error {
	encrypted, err := s.encryptor.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("encrypting API key for %s: %w", name, err)
	}
	key := apiKeySettingKey(name)
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = datetime('now')",
		key, encrypted, encrypted,
	)
	if err != nil {
		return fmt.Errorf("storing API key for %s: %w", name, err)
	}
	return nil
}

// DeleteAPIKey removes the API key for a provider.
func (s *SettingsService) DeleteAPIKey(ctx context.Context, name Name) error {
	key := apiKeySettingKey(name)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting API key for %s: %w", name, err)
	}
	return nil
}
