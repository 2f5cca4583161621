// Package config centralizes all application configuration into typed structs.
//
// Go Learning Note - Configuration Layers:
// Defaults live in NewDefaultConfig as a struct literal. Load then reads an
// optional .env file with "github.com/joho/godotenv" (which only populates
// variables that are not already set in the process environment) and
// overlays whatever environment variables are present. Command-line flags
// in cmd/server are applied last, so the precedence is:
//
//	flags > process environment > .env file > defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

// Config is the top-level configuration container.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
	Log    LogConfig
}

// ServerConfig holds HTTP server settings for the API collaborator.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StoreConfig locates the flat files and controls the backup policy.
type StoreConfig struct {
	DataDir          string
	BackupDir        string
	MaxBackups       int           // per entity type; oldest pruned first
	AutosaveInterval time.Duration // 0 disables periodic saves
	Delimiter        string        // one character separating fields
}

// DelimiterRune returns the field separator. Validate guarantees it is a
// single character.
func (c StoreConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// AuthConfig controls the password digest.
type AuthConfig struct {
	BcryptCost int
}

// LogConfig selects the logrus level and formatter ("text" or "json").
type LogConfig struct {
	Level  string
	Format string
}

// NewDefaultConfig returns a Config populated with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			DataDir:          "data",
			BackupDir:        filepath.Join("data", "backups"),
			MaxBackups:       5,
			AutosaveInterval: 5 * time.Minute,
			Delimiter:        ";",
		},
		Auth: AuthConfig{
			BcryptCost: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, the optional env file and the process
// environment. A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := NewDefaultConfig()
	cfg.Server.Port = GetEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = GetEnvAsDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = GetEnvAsDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	cfg.Store.DataDir = GetEnv("STORE_DATA_DIR", cfg.Store.DataDir)
	cfg.Store.BackupDir = GetEnv("STORE_BACKUP_DIR", filepath.Join(cfg.Store.DataDir, "backups"))
	cfg.Store.MaxBackups = GetEnvAsInt("STORE_MAX_BACKUPS", cfg.Store.MaxBackups)
	cfg.Store.AutosaveInterval = GetEnvAsDuration("STORE_AUTOSAVE_INTERVAL", cfg.Store.AutosaveInterval)
	cfg.Store.Delimiter = GetEnv("STORE_DELIMITER", cfg.Store.Delimiter)

	cfg.Auth.BcryptCost = GetEnvAsInt("AUTH_BCRYPT_COST", cfg.Auth.BcryptCost)

	cfg.Log.Level = GetEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = GetEnv("LOG_FORMAT", cfg.Log.Format)

	return cfg, cfg.Validate()
}

// Validate rejects settings the store or server cannot run with.
func (c *Config) Validate() error {
	if c.Store.DataDir == "" {
		return errors.New("store data dir must not be empty")
	}
	if c.Store.MaxBackups < 1 {
		return fmt.Errorf("store max backups must be at least 1, got %d", c.Store.MaxBackups)
	}
	// Quotes and line breaks belong to the escaping rules and commas to the
	// id lists inside trip records.
	if utf8.RuneCountInString(c.Store.Delimiter) != 1 || strings.ContainsAny(c.Store.Delimiter, "\"\r\n,") {
		return fmt.Errorf("store delimiter must be one character other than a quote, comma or line break, got %q", c.Store.Delimiter)
	}
	if c.Store.AutosaveInterval < 0 {
		return fmt.Errorf("autosave interval must not be negative, got %s", c.Store.AutosaveInterval)
	}
	return nil
}

// GetEnv returns the value of key, or defaultValue when it is unset or empty.
func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
