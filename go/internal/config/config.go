package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	AuthorityStatic = "static"
	AuthorityKV     = "kv"
)

type Config struct {
	Match    MatchConfig    `yaml:"match"`
	Peer     PeerConfig     `yaml:"peer"`
	Relay    RelayConfig    `yaml:"relay"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Sport    SportConfig    `yaml:"sport"`
	Database DatabaseConfig `yaml:"database"`
}

type MatchConfig struct {
	ID          string `yaml:"id"`
	TotalTime   int    `yaml:"total_time_sec"`
	CameraID    string `yaml:"camera_id"`
	FinishAudio string `yaml:"finish_audio"`
	EditorMode  bool   `yaml:"editor_mode"`
}

type PeerConfig struct {
	ID string `yaml:"id"`
	// Authority is "static" (use IsAuthority) or "kv" (first peer to claim the match wins)
	Authority   string `yaml:"authority"`
	IsAuthority bool   `yaml:"is_authority"`
}

type RelayConfig struct {
	Enabled         bool   `yaml:"enabled"`
	URL             string `yaml:"url"`
	StreamName      string `yaml:"stream_name"`
	SubjectPrefix   string `yaml:"subject_prefix"`
	AuthorityBucket string `yaml:"authority_bucket"`
	AuthorityTTLSec int    `yaml:"authority_ttl_sec"`
}

type GatewayConfig struct {
	Port string `yaml:"port"`
}

type SportConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// DatabaseConfig holds Postgres settings for the match journal
type DatabaseConfig struct {
	Enabled  bool   `yaml:"journal_enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// AuthorityTTL is how long an unreleased authority claim survives; zero keeps it forever
func (c RelayConfig) AuthorityTTL() time.Duration {
	return time.Duration(c.AuthorityTTLSec) * time.Second
}

func (c SportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func Default() Config {
	return Config{
		Match: MatchConfig{
			TotalTime:   120,
			CameraID:    "StartCamera",
			FinishAudio: "game_finish",
		},
		Peer: PeerConfig{
			Authority:   AuthorityStatic,
			IsAuthority: true,
		},
		Relay: RelayConfig{
			URL:             "nats://localhost:4222",
			StreamName:      "MATCH_EVENTS",
			SubjectPrefix:   "match.events",
			AuthorityBucket: "MATCH_AUTHORITY",
			AuthorityTTLSec: 7200,
		},
		Gateway: GatewayConfig{Port: "8082"},
		Sport: SportConfig{
			Enabled:    true,
			URL:        "http://localhost:7070",
			TimeoutSec: 5,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "spinrace",
			SSLMode:  "disable",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Match.ID = getEnv("MATCH_ID", c.Match.ID)
	c.Match.TotalTime = getEnvAsInt("MATCH_TOTAL_TIME", c.Match.TotalTime)
	c.Match.CameraID = getEnv("MATCH_CAMERA_ID", c.Match.CameraID)
	c.Match.FinishAudio = getEnv("MATCH_FINISH_AUDIO", c.Match.FinishAudio)
	c.Match.EditorMode = getEnvAsBool("EDITOR_MODE", c.Match.EditorMode)

	c.Peer.ID = getEnv("PEER_ID", c.Peer.ID)
	c.Peer.Authority = getEnv("PEER_AUTHORITY", c.Peer.Authority)
	c.Peer.IsAuthority = getEnvAsBool("PEER_IS_AUTHORITY", c.Peer.IsAuthority)

	c.Relay.Enabled = getEnvAsBool("RELAY_ENABLED", c.Relay.Enabled)
	c.Relay.URL = getEnv("NATS_URL", c.Relay.URL)
	c.Relay.StreamName = getEnv("RELAY_STREAM", c.Relay.StreamName)
	c.Relay.SubjectPrefix = getEnv("RELAY_SUBJECT_PREFIX", c.Relay.SubjectPrefix)
	c.Relay.AuthorityBucket = getEnv("RELAY_AUTHORITY_BUCKET", c.Relay.AuthorityBucket)
	c.Relay.AuthorityTTLSec = getEnvAsInt("RELAY_AUTHORITY_TTL_SEC", c.Relay.AuthorityTTLSec)

	c.Gateway.Port = getEnv("GATEWAY_PORT", c.Gateway.Port)

	c.Sport.Enabled = getEnvAsBool("SPORT_BRIDGE_ENABLED", c.Sport.Enabled)
	c.Sport.URL = getEnv("SPORT_BRIDGE_URL", c.Sport.URL)
	c.Sport.TimeoutSec = getEnvAsInt("SPORT_BRIDGE_TIMEOUT_SEC", c.Sport.TimeoutSec)

	c.Database.Enabled = getEnvAsBool("JOURNAL_ENABLED", c.Database.Enabled)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
}

// Validate checks the settings the match cannot run without
func (c *Config) Validate() error {
	var errs []error
	if c.Match.ID != "" {
		if _, err := uuid.Parse(c.Match.ID); err != nil {
			errs = append(errs, fmt.Errorf("match.id: %w", err))
		}
	}
	if c.Match.TotalTime <= 0 {
		errs = append(errs, fmt.Errorf("match.total_time_sec must be positive, got %d", c.Match.TotalTime))
	}
	switch c.Peer.Authority {
	case AuthorityStatic:
	case AuthorityKV:
		if !c.Relay.Enabled {
			errs = append(errs, errors.New("peer.authority kv requires relay.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("peer.authority must be %q or %q, got %q", AuthorityStatic, AuthorityKV, c.Peer.Authority))
	}
	if c.Relay.AuthorityTTLSec < 0 {
		errs = append(errs, fmt.Errorf("relay.authority_ttl_sec must not be negative, got %d", c.Relay.AuthorityTTLSec))
	}
	if c.Gateway.Port == "" {
		errs = append(errs, errors.New("gateway.port is required"))
	}
	return errors.Join(errs...)
}

// MatchUUID returns the configured match id, or a fresh one for a standalone match
func (c *Config) MatchUUID() uuid.UUID {
	if id, err := uuid.Parse(c.Match.ID); err == nil {
		return id
	}
	return uuid.New()
}

// PeerID returns the configured peer id, falling back to the hostname
func (c *Config) PeerID() string {
	if c.Peer.ID != "" {
		return c.Peer.ID
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "peer-" + uuid.NewString()[:8]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
