package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	Telegram struct {
		Token         string `json:"token"`
		OperatorID    int64  `json:"operator_id"`
		MaxConcurrent int    `json:"max_concurrent"`
	} `json:"telegram"`
	Razorpay struct {
		BaseURL            string `json:"base_url"`
		KeyID              string `json:"key_id"`
		KeySecret          string `json:"key_secret"`
		WebhookSecret      string `json:"webhook_secret"`
		LinkTimeoutSeconds int    `json:"link_timeout_seconds"`
		CodeTimeoutSeconds int    `json:"code_timeout_seconds"`
	} `json:"razorpay"`
	HTTP struct {
		Addr      string `json:"addr"`
		PublicURL string `json:"public_url"`
	} `json:"http"`
	Database struct {
		Driver string `json:"driver"`
		DSN    string `json:"dsn"`
	} `json:"database"`
	Redis struct {
		Addr              string `json:"addr"`
		Password          string `json:"password"`
		DB                int    `json:"db"`
		SessionTTLMinutes int    `json:"session_ttl_minutes"`
	} `json:"redis"`
	Kafka struct {
		Brokers []string `json:"brokers"`
		Topic   string   `json:"topic"`
		TLS     bool     `json:"tls"`
	} `json:"kafka"`
	Fulfillment struct {
		MaxConcurrent int  `json:"max_concurrent"`
		LaneSize      int  `json:"lane_size"`
		Dedupe        bool `json:"dedupe"`
	} `json:"fulfillment"`
	Scheduler struct {
		Digest        string `json:"digest"`
		Prune         string `json:"prune"`
		RetentionDays int    `json:"retention_days"`
	} `json:"scheduler"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".vendbot"),
		LogLevel: "info",
	}
	cfg.Telegram.MaxConcurrent = 4
	cfg.Razorpay.BaseURL = "https://api.razorpay.com"
	cfg.Razorpay.LinkTimeoutSeconds = 15
	cfg.Razorpay.CodeTimeoutSeconds = 15
	cfg.HTTP.Addr = ":8000"
	cfg.Database.Driver = "sqlite"
	cfg.Kafka.Topic = "vendbot.sales"
	cfg.Fulfillment.MaxConcurrent = 2
	cfg.Fulfillment.LaneSize = 100
	cfg.Fulfillment.Dedupe = true
	cfg.Scheduler.Digest = "0 21 * * *"
	cfg.Scheduler.Prune = "@daily"
	cfg.Scheduler.RetentionDays = 90
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := Default()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("OWNER_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("parse OWNER_ID: %w", err)
		}
		cfg.Telegram.OperatorID = id
	}
	if v := os.Getenv("RAZORPAY_KEY_ID"); v != "" {
		cfg.Razorpay.KeyID = v
	}
	if v := os.Getenv("RAZORPAY_KEY_SECRET"); v != "" {
		cfg.Razorpay.KeySecret = v
	}
	if v := os.Getenv("RAZORPAY_WEBHOOK_SECRET"); v != "" {
		cfg.Razorpay.WebhookSecret = v
	}
	if v := os.Getenv("WEBHOOK_PUBLIC_URL"); v != "" {
		cfg.HTTP.PublicURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			cfg.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	return nil
}

// Validate reports every missing required key at once.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "telegram.token")
	}
	if c.Telegram.OperatorID == 0 {
		missing = append(missing, "telegram.operator_id")
	}
	if c.Razorpay.KeyID == "" {
		missing = append(missing, "razorpay.key_id")
	}
	if c.Razorpay.KeySecret == "" {
		missing = append(missing, "razorpay.key_secret")
	}
	if c.Razorpay.WebhookSecret == "" {
		missing = append(missing, "razorpay.webhook_secret")
	}
	if c.HTTP.PublicURL == "" {
		missing = append(missing, "http.public_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	return nil
}

// DatabaseDSN returns the configured DSN, defaulting to a SQLite file in
// the data directory.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return filepath.Join(c.DataDir, "vendbot.db")
}

// PIDPath is where a running server records its process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.DataDir, "vendbot.pid")
}

func (c *Config) LinkTimeout() time.Duration {
	return time.Duration(c.Razorpay.LinkTimeoutSeconds) * time.Second
}

func (c *Config) CodeTimeout() time.Duration {
	return time.Duration(c.Razorpay.CodeTimeoutSeconds) * time.Second
}

// SessionTTL is zero unless configured, meaning sessions never expire.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Redis.SessionTTLMinutes) * time.Minute
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg to its JSON object form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns cfg as dot-separated keys, optionally masking secrets.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue loads the config at path and returns the value of a
// dot-separated key.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	flat, err := ListValues(cfg, false)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue sets a dot-separated key in the config file at path. The raw
// value is stored as JSON when it parses as JSON, otherwise as a string.
// Keys outside the Config struct are kept.
func SetValue(path, key, raw string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if key == "" {
		return errors.New("empty config key")
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}

	flat := Flatten(m)
	flat[key] = value
	out, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, append(out, '\n'))
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
