package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bbellwfu/moip-manager/internal/infrastructure/config"
)

// ErrNotFound is returned when a settings key has no persisted value.
var ErrNotFound = errors.New("settings: key not found")

// Persisted setting keys for controller connection parameters.
const (
	keyHost       = "moip_host"
	keyTelnetPort = "moip_telnet_port"
	keyAPIPort    = "moip_api_port"
	keyUsername   = "moip_username"
	keyPassword   = "moip_password"
	keyVerifySSL  = "moip_verify_ssl"
)

// ControllerSettings are the effective connection parameters after the
// precedence chain has been applied: persisted value, else config value,
// else built-in default.
type ControllerSettings struct {
	Host       string        `json:"host"`
	TelnetPort int           `json:"telnet_port"`
	APIPort    int           `json:"api_port"`
	Username   string        `json:"username"`
	Password   string        `json:"-"`
	VerifySSL  bool          `json:"verify_ssl"`
	Timeout    time.Duration `json:"-"`

	// PasswordSet lets the API report whether a password exists without
	// ever echoing it.
	PasswordSet bool `json:"password_set"`
}

// Update carries a settings change from the management API. Empty string
// fields and zero ports are "no change"; an empty password in particular
// keeps the stored one. VerifySSL is a pointer so false is expressible.
type Update struct {
	Host       string `json:"host"`
	TelnetPort int    `json:"telnet_port"`
	APIPort    int    `json:"api_port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	VerifySSL  *bool  `json:"verify_ssl"`
}

// Store persists and resolves controller settings against the app_settings
// key/value table.
type Store struct {
	db       *sql.DB
	defaults config.ControllerConfig
}

// NewStore creates a settings store. The defaults come from the loaded
// configuration and sit below persisted values in the precedence chain.
func NewStore(db *sql.DB, defaults config.ControllerConfig) *Store {
	return &Store{db: db, defaults: defaults}
}

// Get returns one persisted setting value.
// Returns ErrNotFound if the key has never been set.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying setting %q: %w", key, err)
	}
	return value, nil
}

// Set persists one setting value, replacing any previous one.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing setting %q: %w", key, err)
	}
	return nil
}

// All returns every persisted setting as a key/value map.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM app_settings")
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning setting row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating setting rows: %w", err)
	}
	return values, nil
}

// Resolve returns the effective controller settings: persisted values over
// config values over built-in defaults.
func (s *Store) Resolve(ctx context.Context) (ControllerSettings, error) {
	resolved := ControllerSettings{
		Host:       s.defaults.Host,
		TelnetPort: s.defaults.TelnetPort,
		APIPort:    s.defaults.APIPort,
		Username:   s.defaults.Username,
		Password:   s.defaults.Password,
		VerifySSL:  s.defaults.VerifySSL,
		Timeout:    time.Duration(s.defaults.Timeout) * time.Second,
	}
	if resolved.TelnetPort == 0 {
		resolved.TelnetPort = 23
	}
	if resolved.APIPort == 0 {
		resolved.APIPort = 443
	}
	if resolved.Timeout == 0 {
		resolved.Timeout = 10 * time.Second
	}

	stored, err := s.All(ctx)
	if err != nil {
		return ControllerSettings{}, err
	}

	if v, ok := stored[keyHost]; ok && v != "" {
		resolved.Host = v
	}
	if v, ok := stored[keyTelnetPort]; ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			resolved.TelnetPort = port
		}
	}
	if v, ok := stored[keyAPIPort]; ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			resolved.APIPort = port
		}
	}
	if v, ok := stored[keyUsername]; ok && v != "" {
		resolved.Username = v
	}
	if v, ok := stored[keyPassword]; ok && v != "" {
		resolved.Password = v
	}
	if v, ok := stored[keyVerifySSL]; ok {
		resolved.VerifySSL = v == "true"
	}

	resolved.PasswordSet = resolved.Password != ""
	return resolved, nil
}

// Apply persists the non-empty fields of an update. An empty password
// keeps the stored one, so the UI can round-trip the masked settings form
// without wiping credentials.
func (s *Store) Apply(ctx context.Context, update Update) error {
	set := func(key, value string) error {
		if value == "" {
			return nil
		}
		return s.Set(ctx, key, value)
	}

	if err := set(keyHost, update.Host); err != nil {
		return err
	}
	if update.TelnetPort > 0 {
		if err := s.Set(ctx, keyTelnetPort, strconv.Itoa(update.TelnetPort)); err != nil {
			return err
		}
	}
	if update.APIPort > 0 {
		if err := s.Set(ctx, keyAPIPort, strconv.Itoa(update.APIPort)); err != nil {
			return err
		}
	}
	if err := set(keyUsername, update.Username); err != nil {
		return err
	}
	if err := set(keyPassword, update.Password); err != nil {
		return err
	}
	if update.VerifySSL != nil {
		if err := s.Set(ctx, keyVerifySSL, strconv.FormatBool(*update.VerifySSL)); err != nil {
			return err
		}
	}
	return nil
}
