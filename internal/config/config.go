// Package config loads the hierarchical settings tree. The tree is read once
// per process from a YAML file; consumers read scalar settings by dotted key
// path or decode whole subtrees into typed structs.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the read-only settings tree.
type Config struct {
	tree map[string]any
}

// Load reads and parses the settings file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	tree := make(map[string]any)
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &Config{tree: tree}, nil
}

// Default returns an empty tree; every accessor falls back to its default.
func Default() *Config {
	return &Config{tree: map[string]any{}}
}

// Get returns the raw value at a dotted key path ("cache.redis.address"),
// or nil when any path component is absent.
func (c *Config) Get(path string) any {
	var cur any = c.tree
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

// String returns the setting as a string, or def when absent.
func (c *Config) String(path, def string) string {
	if s, ok := c.Get(path).(string); ok {
		return s
	}
	return def
}

// Int returns the setting as an int, or def when absent.
func (c *Config) Int(path string, def int) int {
	switch n := c.Get(path).(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return def
}

// Bool returns the setting as a bool, or def when absent.
func (c *Config) Bool(path string, def bool) bool {
	if b, ok := c.Get(path).(bool); ok {
		return b
	}
	return def
}

// Decode maps the subtree at path onto a typed struct. Duration fields accept
// strings like "5m".
func (c *Config) Decode(path string, out any) error {
	sub := c.Get(path)
	if sub == nil {
		sub = map[string]any{}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(sub); err != nil {
		return fmt.Errorf("failed to decode config %q: %w", path, err)
	}
	return nil
}

// Server holds the HTTP listener settings.
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Session holds cookie and lifetime settings for the session layer.
type Session struct {
	CookieName  string        `mapstructure:"cookie_name"`
	TokenCookie string        `mapstructure:"token_cookie"`
	TTL         time.Duration `mapstructure:"ttl"`
	Domain      string        `mapstructure:"domain"`
	Secure      bool          `mapstructure:"secure"`
	LoginURL    string        `mapstructure:"login_url"`
}

// Security holds response hardening settings.
type Security struct {
	FrameOptions string `mapstructure:"frame_options"`
	Development  bool   `mapstructure:"development"`
}

// CacheSettings selects and tunes the cache backend.
type CacheSettings struct {
	Backend      string        `mapstructure:"backend"`
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Prefix       string        `mapstructure:"prefix"`
	TTL          time.Duration `mapstructure:"ttl"`
	LockAttempts int           `mapstructure:"lock_attempts"`
	LockBackoff  time.Duration `mapstructure:"lock_backoff"`
}

// Database describes one named connection pool.
type Database struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"sslmode"`
}

// DSN renders the pool's connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Pass, d.Name, d.SSLMode)
}

// ServerSettings decodes the "server" subtree with sane fallbacks.
func (c *Config) ServerSettings() (Server, error) {
	s := Server{
		Host:         "",
		Port:         "8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	err := c.Decode("server", &s)
	return s, err
}

// SessionSettings decodes the "session" subtree with sane fallbacks.
func (c *Config) SessionSettings() (Session, error) {
	s := Session{
		CookieName:  "treb_sid",
		TokenCookie: "treb_tok",
		TTL:         24 * time.Hour,
	}
	err := c.Decode("session", &s)
	return s, err
}

// SecuritySettings decodes the "security" subtree.
func (c *Config) SecuritySettings() (Security, error) {
	s := Security{}
	err := c.Decode("security", &s)
	return s, err
}

// CacheConfig decodes the "cache" subtree with sane fallbacks.
func (c *Config) CacheConfig() (CacheSettings, error) {
	s := CacheSettings{
		Backend:      "memory",
		Prefix:       "treb:",
		TTL:          time.Hour,
		LockAttempts: 3,
		LockBackoff:  100 * time.Millisecond,
	}
	err := c.Decode("cache", &s)
	return s, err
}

// Databases decodes the "databases" subtree, keyed by pool name.
func (c *Config) Databases() (map[string]Database, error) {
	out := map[string]Database{}
	err := c.Decode("databases", &out)
	return out, err
}
