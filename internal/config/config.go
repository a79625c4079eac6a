// Package config loads service settings from a YAML file overlaid with
// LEMON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/lemon/pkg/domain"
	"github.com/aretw0/lemon/pkg/gate"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "LEMON_"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// DefaultInvite is the placeholder secret invite (https://discord.gg/example).
const DefaultInvite = "aHR0cHM6Ly9kaXNjb3JkLmdnL2V4YW1wbGU="

// Config is the full service configuration.
type Config struct {
	Addr          string        `yaml:"addr"            env:"ADDR"`
	LogLevel      string        `yaml:"log_level"       env:"LOG_LEVEL"`
	LogJSON       bool          `yaml:"log_json"        env:"LOG_JSON"`
	Title         string        `yaml:"title"           env:"TITLE"`
	MusicSrc      string        `yaml:"music_src"       env:"MUSIC_SRC"`
	Invite        string        `yaml:"invite"          env:"INVITE"`
	CORSOrigin    string        `yaml:"cors_origin"     env:"CORS_ORIGIN"`
	AssetsDir     string        `yaml:"assets_dir"      env:"ASSETS_DIR"`
	CookieSecret  string        `yaml:"cookie_secret"   env:"COOKIE_SECRET"`
	SecureCookie  bool          `yaml:"secure_cookie"   env:"SECURE_COOKIE"`
	EncryptionKey string        `yaml:"encryption_key"  env:"ENCRYPTION_KEY"`
	MaxValueBytes int           `yaml:"max_value_bytes" env:"MAX_VALUE_BYTES"`
	Storage       StorageConfig `yaml:"storage"         envPrefix:"STORAGE_"`
	Gate          GateConfig    `yaml:"gate"            envPrefix:"GATE_"`
	Pages         []PageConfig  `yaml:"pages"`
}

// StorageConfig selects and configures the session storage backend.
type StorageConfig struct {
	Backend    string        `yaml:"backend"     env:"BACKEND"`
	SQLitePath string        `yaml:"sqlite_path" env:"SQLITE_PATH"`
	FileDir    string        `yaml:"file_dir"    env:"FILE_DIR"`
	LockTTL    time.Duration `yaml:"lock_ttl"    env:"LOCK_TTL"`
	IdleTTL    time.Duration `yaml:"idle_ttl"    env:"IDLE_TTL"`
	Redis      RedisConfig   `yaml:"redis"       envPrefix:"REDIS_"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr"     env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db"       env:"DB"`
	Prefix   string        `yaml:"prefix"   env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl"      env:"TTL"`
	Lock     bool          `yaml:"lock"     env:"LOCK"`
}

// GateConfig tunes the lock notice.
type GateConfig struct {
	Hub     string        `yaml:"hub"     env:"HUB"`
	Delay   time.Duration `yaml:"delay"   env:"DELAY"`
	Message string        `yaml:"message" env:"MESSAGE"`
}

// PageConfig is one surprise page. Body is Markdown.
type PageConfig struct {
	Key     string `yaml:"key"`
	Title   string `yaml:"title"`
	Body    string `yaml:"body"`
	Gallery bool   `yaml:"gallery"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:          ":8080",
		LogLevel:      "info",
		Title:         "Lemon",
		MusicSrc:      "/assets/music.mp3",
		Invite:        DefaultInvite,
		MaxValueBytes: 5 << 20,
		Storage: StorageConfig{
			Backend:    BackendMemory,
			SQLitePath: "lemon.db",
			FileDir:    ".lemon/sessions",
			LockTTL:    10 * time.Second,
			IdleTTL:    24 * time.Hour,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "lemon:session:",
				TTL:    24 * time.Hour,
			},
		},
		Gate: GateConfig{
			Hub:     gate.DefaultHub,
			Delay:   gate.DefaultDelay,
			Message: gate.DefaultMessage,
		},
		Pages: DefaultPages(),
	}
}

// DefaultPages returns placeholder content for domain.DefaultPageOrder.
func DefaultPages() []PageConfig {
	titles := map[string]string{
		domain.PageIntro:    "Hello there",
		domain.PageMemory:   "A memory",
		domain.PagePhotos:   "Photos",
		domain.PageLetters:  "Letters",
		domain.PageUs:       "Us",
		domain.PageBirthday: "Happy birthday",
		domain.PageAnother:  "One more thing",
	}
	pages := make([]PageConfig, 0, len(domain.DefaultPageOrder))
	for _, key := range domain.DefaultPageOrder {
		pages = append(pages, PageConfig{
			Key:     key,
			Title:   titles[key],
			Body:    fmt.Sprintf("# %s\n\nEdit the `pages` section of your config to fill this surprise in.", titles[key]),
			Gallery: key == domain.PagePhotos,
		})
	}
	return pages
}

// Load reads path (optional) over the defaults and applies environment
// overrides. A missing file at path is an error; an empty path skips it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	// Pages come from the file only.
	pages := cfg.Pages
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Pages = pages
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if err := validateHub(c.Gate.Hub); err != nil {
		return err
	}
	if c.Gate.Delay < 0 {
		return errors.New("gate delay must not be negative")
	}
	_, err := c.Order()
	return err
}

// Routes owned by the site; the hub cannot take their place.
var (
	reservedPaths    = []string{"/", "/health", "/metrics", "/openapi.yaml", "/invite"}
	reservedPrefixes = []string{"/pages", "/api", "/assets"}
)

func validateHub(hub string) error {
	if !strings.HasPrefix(hub, "/") {
		return fmt.Errorf("gate hub %q must be a path", hub)
	}
	if path.Clean(hub) != hub || strings.ContainsAny(hub, "{}*?#") {
		return fmt.Errorf("gate hub %q must be a plain, clean path", hub)
	}
	if slices.Contains(reservedPaths, hub) {
		return fmt.Errorf("gate hub %q clashes with a site route", hub)
	}
	for _, prefix := range reservedPrefixes {
		if hub == prefix || strings.HasPrefix(hub, prefix+"/") {
			return fmt.Errorf("gate hub %q clashes with the %s routes", hub, prefix)
		}
	}
	return nil
}

// Order derives the page order from Pages.
func (c Config) Order() (domain.PageOrder, error) {
	if len(c.Pages) == 0 {
		return domain.DefaultPageOrder, nil
	}
	keys := make([]string, len(c.Pages))
	for i, p := range c.Pages {
		keys[i] = p.Key
	}
	return domain.NewPageOrder(keys...)
}
