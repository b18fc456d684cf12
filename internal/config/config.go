// Package config loads resbot configuration from a YAML file, a .env file
// and the environment, and validates the result against an embedded CUE
// schema.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given explicitly.
const DefaultPath = "resbot.yaml"

// Environment variables that override the file.
const (
	EnvToken = "DISCORD_TOKEN"
	EnvData  = "RESBOT_DATA"
)

// Config is the full resbot configuration.
type Config struct {
	Discord     DiscordConfig `yaml:"discord" json:"discord"`
	Store       StoreConfig   `yaml:"store" json:"store"`
	Audit       AuditConfig   `yaml:"audit" json:"audit"`
	Metrics     MetricsConfig `yaml:"metrics" json:"metrics"`
	Embed       EmbedConfig   `yaml:"embed" json:"embed"`
	LatestLimit int           `yaml:"latest_limit" json:"latest_limit"`
}

// DiscordConfig holds gateway settings.
type DiscordConfig struct {
	Token string `yaml:"token" json:"token"`
	// GuildID scopes command registration to one guild. Empty registers
	// commands globally, which can take up to an hour to propagate.
	GuildID string `yaml:"guild_id" json:"guild_id"`
}

// StoreConfig locates the resolutions file.
type StoreConfig struct {
	Path  string `yaml:"path" json:"path"`
	Watch bool   `yaml:"watch" json:"watch"`
}

// AuditConfig enables the SQLite audit journal when Path is set.
type AuditConfig struct {
	Path string `yaml:"path" json:"path"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// EmbedConfig controls embed appearance.
type EmbedConfig struct {
	Color int `yaml:"color" json:"color"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Path: "resolutions.json",
		},
		Embed: EmbedConfig{
			Color: 0x2b2d31,
		},
		LatestLimit: 10,
	}
}

// Load reads configuration from path.
//
// A missing file at DefaultPath is not an error and yields Default(). A
// missing file at any other explicitly given path is. A .env file in the
// working directory is loaded first without overriding variables that are
// already set. $VAR references in string values are expanded, then
// DISCORD_TOKEN and RESBOT_DATA override the file.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.expandEnv()
	cfg.applyEnv()

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var envVarRe = regexp.MustCompile(`\$\{?([A-Z_][A-Z0-9_]*)\}?`)

func expandEnv(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.Trim(strings.TrimPrefix(match, "$"), "{}")
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func (c *Config) expandEnv() {
	c.Discord.Token = expandEnv(c.Discord.Token)
	c.Discord.GuildID = expandEnv(c.Discord.GuildID)
	c.Store.Path = expandEnv(c.Store.Path)
	c.Audit.Path = expandEnv(c.Audit.Path)
	c.Metrics.Addr = expandEnv(c.Metrics.Addr)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvToken); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv(EnvData); v != "" {
		c.Store.Path = v
	}
}

// RequireToken reports an error when no Discord token is configured.
func (c Config) RequireToken() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return fmt.Errorf("no Discord token: set %s or discord.token", EnvToken)
	}
	return nil
}
