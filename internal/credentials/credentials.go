package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the well-known credentials file name.
const DefaultFileName = "netatmo_credentials"

var ErrNotFound = errors.New("netatmo credentials not found")

// Credentials holds the Netatmo OAuth application secrets. The field names
// match the JSON keys of the netatmo_credentials file.
type Credentials struct {
	ClientID     string `json:"CLIENT_ID"`
	ClientSecret string `json:"CLIENT_SECRET"`
	RefreshToken string `json:"REFRESH_TOKEN"`
}

func Load(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, ErrNotFound
		}
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	return Decode(data)
}

func Decode(data []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func (c Credentials) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("credentials missing CLIENT_ID")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("credentials missing CLIENT_SECRET")
	}
	if c.RefreshToken == "" {
		return fmt.Errorf("credentials missing REFRESH_TOKEN")
	}
	if err := ValidateRefreshToken(c.RefreshToken); err != nil {
		return err
	}
	return nil
}

// ValidateRefreshToken checks the segment|segment shape Netatmo uses for
// refresh tokens.
func ValidateRefreshToken(token string) error {
	parts := strings.Split(token, "|")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("REFRESH_TOKEN must have the form segment|segment")
	}
	return nil
}

// Write persists credentials with owner-only permissions.
func Write(path string, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir credentials dir: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Redacted returns a copy safe for display.
func (c Credentials) Redacted() Credentials {
	return Credentials{
		ClientID:     c.ClientID,
		ClientSecret: redact(c.ClientSecret),
		RefreshToken: redactToken(c.RefreshToken),
	}
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}

func redactToken(token string) string {
	parts := strings.SplitN(token, "|", 2)
	if len(parts) != 2 {
		return redact(token)
	}
	return parts[0] + "|********"
}
