// Package config loads tft settings from ~/.tft/config.yaml, the TFT_
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Sync backends.
const (
	BackendNone   = "none"
	BackendHTTP   = "http"
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

const (
	// DefaultDirName is the data directory below the user's home.
	DefaultDirName = ".tft"
	// FileName is the config file inside the data directory.
	FileName = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. TFT_SYNC_TOKEN.
	EnvPrefix = "TFT"
)

// Config is the resolved configuration.
type Config struct {
	UserID    string
	DataDir   string
	Log       LogConfig
	Timer     TimerConfig
	Store     StoreConfig
	Sync      SyncConfig
	Auth      AuthConfig
	Converter ConverterConfig
	Server    ServerConfig
}

type LogConfig struct {
	Level string
	// File is relative to DataDir unless absolute. Empty logs to stderr.
	File string
}

type TimerConfig struct {
	DefaultMinutes int
}

type StoreConfig struct {
	SaveDebounce time.Duration
}

type SyncConfig struct {
	Backend      string
	URL          string
	Dir          string
	DB           string
	Token        string
	PollInterval time.Duration
}

type AuthConfig struct {
	ClientID      string
	DeviceAuthURL string
	TokenURL      string
	Scopes        []string
}

type ConverterConfig struct {
	Enabled   bool
	Model     string
	APIKeyEnv string
}

type ServerConfig struct {
	Addr string
	DB   string
	// Tokens maps bearer tokens to user ids.
	Tokens map[string]string
}

// LogPath resolves Log.File against DataDir.
func (c Config) LogPath() string {
	return c.resolve(c.Log.File)
}

// SyncDBPath resolves Sync.DB against DataDir.
func (c Config) SyncDBPath() string {
	return c.resolve(c.Sync.DB)
}

// ServerDBPath resolves Server.DB against DataDir.
func (c Config) ServerDBPath() string {
	return c.resolve(c.Server.DB)
}

func (c Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// DefaultDataDir returns ~/.tft.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("user_id", "local")
	v.SetDefault("data_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "tft.log")
	v.SetDefault("timer.default_minutes", 15)
	v.SetDefault("store.save_debounce", "500ms")
	v.SetDefault("sync.backend", BackendNone)
	v.SetDefault("sync.url", "")
	v.SetDefault("sync.dir", "")
	v.SetDefault("sync.db", "remote.db")
	v.SetDefault("sync.token", "")
	v.SetDefault("sync.poll_interval", "5s")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.device_auth_url", "")
	v.SetDefault("auth.token_url", "")
	v.SetDefault("auth.scopes", []string{})
	v.SetDefault("converter.enabled", false)
	v.SetDefault("converter.model", "")
	v.SetDefault("converter.api_key_env", "ANTHROPIC_API_KEY")
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("server.db", "server.db")
	v.SetDefault("server.tokens", map[string]string{})
}

// NewViper returns a viper instance with defaults and TFT_ environment
// overrides configured.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and resolves the result. When file is
// empty the file is looked up as <data_dir>/config.yaml; on first run an
// annotated template is written there so users can discover options.
func Load(v *viper.Viper, file string) (Config, error) {
	dataDir := v.GetString("data_dir")
	if dataDir == "" {
		d, err := DefaultDataDir()
		if err != nil {
			return Config{}, err
		}
		dataDir = d
	}

	if file == "" {
		file = filepath.Join(dataDir, FileName)
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			if writeErr := WriteDefault(file); writeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", file, writeErr)
			}
		}
	}

	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("reading config file %s: %w\nTip: delete the file to regenerate defaults", file, err)
		}
	}

	// A data_dir from the file wins over the implicit default.
	if d := v.GetString("data_dir"); d != "" {
		dataDir = d
	}
	return resolve(v, dataDir)
}

func resolve(v *viper.Viper, dataDir string) (Config, error) {
	cfg := Config{
		UserID:  v.GetString("user_id"),
		DataDir: expandHome(dataDir),
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
		Timer: TimerConfig{DefaultMinutes: v.GetInt("timer.default_minutes")},
		Store: StoreConfig{SaveDebounce: v.GetDuration("store.save_debounce")},
		Sync: SyncConfig{
			Backend:      strings.ToLower(v.GetString("sync.backend")),
			URL:          v.GetString("sync.url"),
			Dir:          expandHome(v.GetString("sync.dir")),
			DB:           v.GetString("sync.db"),
			Token:        v.GetString("sync.token"),
			PollInterval: v.GetDuration("sync.poll_interval"),
		},
		Auth: AuthConfig{
			ClientID:      v.GetString("auth.client_id"),
			DeviceAuthURL: v.GetString("auth.device_auth_url"),
			TokenURL:      v.GetString("auth.token_url"),
			Scopes:        v.GetStringSlice("auth.scopes"),
		},
		Converter: ConverterConfig{
			Enabled:   v.GetBool("converter.enabled"),
			Model:     v.GetString("converter.model"),
			APIKeyEnv: v.GetString("converter.api_key_env"),
		},
		Server: ServerConfig{
			Addr:   v.GetString("server.addr"),
			DB:     v.GetString("server.db"),
			Tokens: v.GetStringMapString("server.tokens"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate checks values that cannot fall back to a default.
func (c Config) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id must not be empty")
	}
	switch c.Sync.Backend {
	case BackendNone:
	case BackendHTTP:
		if c.Sync.URL == "" {
			return errors.New("sync.url is required for the http backend")
		}
	case BackendDir:
		if c.Sync.Dir == "" {
			return errors.New("sync.dir is required for the dir backend")
		}
	case BackendSQLite:
		if c.Sync.DB == "" {
			return errors.New("sync.db is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown sync.backend %q", c.Sync.Backend)
	}
	if c.Store.SaveDebounce < 0 {
		return fmt.Errorf("store.save_debounce must not be negative: %s", c.Store.SaveDebounce)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Template is the annotated config written on first run.
const Template = `# tft configuration - ~/.tft/config.yaml
#
# All settings are optional. Every key can also be set through the
# environment, e.g. TFT_SYNC_TOKEN or TFT_LOG_LEVEL.

# Identifies your documents on the sync remote.
user_id: local

log:
  # debug, info, warn or error
  level: info
  # Relative paths are resolved against the data directory.
  # Leave empty to log to stderr.
  file: tft.log

timer:
  # Countdown length used by "tft timer" when --minutes is not given (1-180).
  default_minutes: 15

store:
  # Changes are written after this quiet period. 0 writes immediately.
  save_debounce: 500ms

sync:
  # none, http, dir or sqlite
  backend: none
  # http: base URL of a "tft serve" instance
  url: ""
  # dir: shared folder (e.g. a synced drive)
  dir: ""
  # sqlite: database file, relative to the data directory
  db: remote.db
  # http: static bearer token. Leave empty to use "tft login".
  token: ""
  # http: how often live sync polls for changes
  poll_interval: 5s

# OAuth2 device code login for the http backend.
auth:
  client_id: ""
  device_auth_url: ""
  token_url: ""
  scopes: []

converter:
  # Let an LLM structure free text before falling back to #tags.
  enabled: false
  model: ""
  # Environment variable holding the API key.
  api_key_env: ANTHROPIC_API_KEY

# Settings for "tft serve".
server:
  addr: 127.0.0.1:8787
  db: server.db
  # bearer token -> user id. Empty disables authentication.
  tokens: {}
`

// WriteDefault creates the config directory and writes Template.
func WriteDefault(path string) error {
	var probe map[string]any
	if err := yaml.Unmarshal([]byte(Template), &probe); err != nil {
		return fmt.Errorf("invalid config template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
