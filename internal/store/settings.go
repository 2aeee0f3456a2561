package store

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// SettingDeviceID is the settings key holding the kiosk device id.
const SettingDeviceID = "device_id"

// SettingsRepository stores key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// DeviceID returns the kiosk device id, generating and storing one on first use.
func (r *SettingsRepository) DeviceID() (string, error) {
	id, err := r.Get(SettingDeviceID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	id = uuid.New().String()
	// INSERT OR IGNORE keeps the first id if two callers race.
	if _, err := r.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, SettingDeviceID, id); err != nil {
		return "", err
	}
	return r.Get(SettingDeviceID)
}
