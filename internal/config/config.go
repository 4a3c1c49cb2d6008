package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

const (
	DefaultPath                        = "/etc/homewatch/config.yaml"
	DefaultHTTPAddr                    = "0.0.0.0:8080"
	DefaultDataDir                     = "/var/lib/homewatch"
	DefaultPollIntervalSeconds         = 60
	DefaultEventBatchSize              = 10
	DefaultMatchThreshold              = 0.75
	DefaultOAuthRefreshIntervalSeconds = 600
	DefaultSnapshotMaxAgeHours         = 24 * 14
)

// Config is the homewatch daemon configuration.
type Config struct {
	HTTPAddr        string   `yaml:"http_addr"`
	DataDir         string   `yaml:"data_dir"`
	CredentialsFile string   `yaml:"credentials_file"`
	HomeID          string   `yaml:"home_id"`
	Cameras         []string `yaml:"cameras"`

	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	EventBatchSize      int `yaml:"event_batch_size"`

	OAuth    OAuthConfig    `yaml:"oauth"`
	Detector DetectorConfig `yaml:"detector"`
	Roster   RosterConfig   `yaml:"roster"`
	Snapshot SnapshotConfig `yaml:"snapshots"`

	MQTT *MQTTConfig `yaml:"mqtt"`
	Blob *BlobConfig `yaml:"blob"`
}

type OAuthConfig struct {
	RefreshIntervalSeconds int `yaml:"refresh_interval_seconds"`
}

type DetectorConfig struct {
	URL        string  `yaml:"url"`
	Confidence float64 `yaml:"confidence"`
}

type RosterConfig struct {
	File           string  `yaml:"file"`
	MatchThreshold float64 `yaml:"match_threshold"`
}

type SnapshotConfig struct {
	MaxAgeHours int   `yaml:"max_age_hours"`
	MaxTotalMB  int64 `yaml:"max_total_mb"`
	Archive     bool  `yaml:"archive"`
}

type MQTTConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	TLS          bool   `yaml:"tls"`
	Username     string `yaml:"username"`
	PasswordFile string `yaml:"password_file"`
	TopicPrefix  string `yaml:"topic_prefix"`
}

type BlobConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	AccessKeyFile string `yaml:"access_key_file"`
	SecretKeyFile string `yaml:"secret_key_file"`
	Region        string `yaml:"region"`
}

// Load parses the YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = DefaultCredentialsPath()
	}
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if cfg.EventBatchSize == 0 {
		cfg.EventBatchSize = DefaultEventBatchSize
	}
	if cfg.OAuth.RefreshIntervalSeconds == 0 {
		cfg.OAuth.RefreshIntervalSeconds = DefaultOAuthRefreshIntervalSeconds
	}
	if cfg.Detector.Confidence == 0 {
		cfg.Detector.Confidence = 0.25
	}
	if cfg.Roster.MatchThreshold == 0 {
		cfg.Roster.MatchThreshold = DefaultMatchThreshold
	}
	if cfg.Snapshot.MaxAgeHours == 0 {
		cfg.Snapshot.MaxAgeHours = DefaultSnapshotMaxAgeHours
	}
	if cfg.Blob != nil && cfg.Blob.Prefix == "" {
		cfg.Blob.Prefix = "homewatch/oauth"
	}
}

// Validate enforces required invariants beyond YAML typing.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if cfg.CredentialsFile == "" {
		return fmt.Errorf("credentials_file is required")
	}
	if cfg.PollIntervalSeconds < 0 {
		return fmt.Errorf("poll_interval_seconds must be positive")
	}
	if cfg.Detector.URL == "" {
		return fmt.Errorf("detector.url is required")
	}
	if cfg.Detector.Confidence < 0 || cfg.Detector.Confidence > 1 {
		return fmt.Errorf("detector.confidence must be in (0,1]")
	}
	if cfg.Roster.File == "" {
		return fmt.Errorf("roster.file is required")
	}
	if cfg.Roster.MatchThreshold < 0 || cfg.Roster.MatchThreshold > 1 {
		return fmt.Errorf("roster.match_threshold must be in [0,1]")
	}
	if cfg.MQTT != nil && cfg.MQTT.Host == "" {
		return fmt.Errorf("mqtt.host is required when mqtt is configured")
	}
	if cfg.Blob != nil {
		if cfg.Blob.Endpoint == "" {
			return fmt.Errorf("blob.endpoint is required")
		}
		if cfg.Blob.Bucket == "" {
			return fmt.Errorf("blob.bucket is required")
		}
		if cfg.Blob.AccessKeyFile == "" {
			return fmt.Errorf("blob.access_key_file is required")
		}
		if cfg.Blob.SecretKeyFile == "" {
			return fmt.Errorf("blob.secret_key_file is required")
		}
	}
	if cfg.Snapshot.Archive && cfg.Blob == nil {
		return fmt.Errorf("snapshots.archive requires blob configuration")
	}
	return nil
}

// DefaultCredentialsPath resolves ~/.config/homewatch/netatmo_credentials.
func DefaultCredentialsPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(DefaultDataDir, "netatmo_credentials")
	}
	return filepath.Join(home, ".config", "homewatch", "netatmo_credentials")
}

// StatePath is where the OAuth manager persists rotated refresh tokens.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "oauth", "netatmo.json")
}

// SnapshotDir is the snapshot store root.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "snapshots")
}

// SeenPath persists processed event ids across restarts.
func (c *Config) SeenPath() string {
	return filepath.Join(c.DataDir, "seen.json")
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) OAuthRefreshInterval() time.Duration {
	return time.Duration(c.OAuth.RefreshIntervalSeconds) * time.Second
}

func (c *Config) SnapshotMaxAge() time.Duration {
	return time.Duration(c.Snapshot.MaxAgeHours) * time.Hour
}

func (c *Config) SnapshotMaxBytes() int64 {
	return c.Snapshot.MaxTotalMB * 1024 * 1024
}
