// Package config loads server settings from the environment, overridable by flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/crypto"
	"github.com/harrylevesque/forgaile/internal/notify"
	"github.com/harrylevesque/forgaile/internal/utils"
)

// CookieKeyFile is the key file name looked up in the data directory.
const CookieKeyFile = "cookie.key"

// Config holds server configuration.
type Config struct {
	Addr         string        `env:"FORGAILE_ADDR" envDefault:":8080"`
	DataDir      string        `env:"FORGAILE_DATA_DIR"`
	ScriptPath   string        `env:"FORGAILE_SCRIPT"`
	AckDriver    string        `env:"FORGAILE_ACK_DRIVER" envDefault:"sqlite"`
	AckPath      string        `env:"FORGAILE_ACK_PATH"`
	LogLevel     string        `env:"FORGAILE_LOG_LEVEL" envDefault:"info"`
	LogFile      string        `env:"FORGAILE_LOG_FILE"`
	TLSCert      string        `env:"FORGAILE_TLS_CERT"`
	TLSKey       string        `env:"FORGAILE_TLS_KEY"`
	SessionTTL   time.Duration `env:"FORGAILE_SESSION_TTL" envDefault:"30m"`
	CookieKey    string        `env:"FORGAILE_COOKIE_KEY"`
	OTelEndpoint string        `env:"FORGAILE_OTEL_ENDPOINT"`

	TelegramToken   string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID  string        `env:"TELEGRAM_CHAT_ID"`
	TelegramAPIBase string        `env:"TELEGRAM_API_BASE"`
	NotifyAttempts  int           `env:"FORGAILE_NOTIFY_ATTEMPTS" envDefault:"3"`
	NotifyDelay     time.Duration `env:"FORGAILE_NOTIFY_DELAY" envDefault:"2s"`
}

// ParseConfig reads the environment, then lets flags in args override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address (FORGAILE_ADDR)")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the key file and acknowledgement store (FORGAILE_DATA_DIR)")
	fs.StringVar(&cfg.ScriptPath, "script", cfg.ScriptPath, "YAML sequence script; empty uses the built-in one (FORGAILE_SCRIPT)")
	fs.StringVar(&cfg.AckDriver, "ack-driver", cfg.AckDriver, "acknowledgement store: sqlite, file or memory (FORGAILE_ACK_DRIVER)")
	fs.StringVar(&cfg.AckPath, "ack-path", cfg.AckPath, "acknowledgement store path (FORGAILE_ACK_PATH)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (FORGAILE_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write logs to this file (FORGAILE_LOG_FILE)")
	fs.StringVar(&cfg.TLSCert, "tls-cert", cfg.TLSCert, "TLS certificate (FORGAILE_TLS_CERT)")
	fs.StringVar(&cfg.TLSKey, "tls-key", cfg.TLSKey, "TLS private key (FORGAILE_TLS_KEY)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "idle session lifetime (FORGAILE_SESSION_TTL)")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace endpoint; empty disables tracing (FORGAILE_OTEL_ENDPOINT)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.DataDir == "" {
		cfg.DataDir = utils.GetDataDir()
	}
	if cfg.AckPath == "" {
		switch cfg.AckDriver {
		case "sqlite":
			cfg.AckPath = filepath.Join(cfg.DataDir, "acks.db")
		case "file", "json":
			cfg.AckPath = filepath.Join(cfg.DataDir, "acks.json")
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("tls cert and key must be set together")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if c.NotifyDelay < 0 {
		return fmt.Errorf("notify delay must not be negative, got %s", c.NotifyDelay)
	}
	if c.NotifyAttempts < 1 {
		return fmt.Errorf("notify attempts must be at least 1, got %d", c.NotifyAttempts)
	}
	return nil
}

func (c Config) TLS() bool { return c.TLSCert != "" }

// Telegram returns the notifier settings. A zero NotifyDelay means no wait between attempts.
func (c Config) Telegram() notify.TelegramConfig {
	delay := c.NotifyDelay
	if delay == 0 {
		delay = -1
	}
	return notify.TelegramConfig{
		Token:    c.TelegramToken,
		ChatID:   c.TelegramChatID,
		APIBase:  c.TelegramAPIBase,
		Attempts: c.NotifyAttempts,
		Delay:    delay,
	}
}

// LoadCookieKey returns the master key for visitor cookies: FORGAILE_COOKIE_KEY, then
// <data dir>/cookie.key, then a random key that only lives as long as the process.
func (c Config) LoadCookieKey(log *zap.Logger) ([]byte, error) {
	if c.CookieKey != "" {
		key, err := crypto.ParseKeyHex(c.CookieKey)
		if err != nil {
			return nil, fmt.Errorf("FORGAILE_COOKIE_KEY: %w", err)
		}
		return key, nil
	}

	path := filepath.Join(c.DataDir, CookieKeyFile)
	key, err := crypto.LoadKeyFile(path)
	switch {
	case err == nil:
		return key, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if log != nil {
		log.Warn("no cookie key configured, using an ephemeral key; visitors lose their session scope on restart",
			zap.String("path", path))
	}
	return crypto.GenerateKey()
}
