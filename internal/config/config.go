// Package config loads the planner configuration.
//
// Settings are layered, later sources overriding earlier ones:
//   - built-in defaults
//   - a YAML file given by --config or PLANNER_CONFIG
//   - environment variables, optionally seeded from a .env file
//   - command-line flags
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`

	// Mode is either "polling" or "webhook".
	Mode string `yaml:"mode"`

	// WebhookURL is the public URL Telegram posts updates to. Required in
	// webhook mode.
	WebhookURL string `yaml:"webhook_url"`

	// WebhookSecret is sent back by Telegram in the
	// X-Telegram-Bot-Api-Secret-Token header of every webhook request.
	// Required in webhook mode.
	WebhookSecret string `yaml:"webhook_secret"`

	Debug bool `yaml:"debug"`

	// SessionIdleTimeout is how long a user session lives without updates.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver     string `yaml:"driver"`
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`
	PoolSize   int    `yaml:"pool_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Mode:               ModePolling,
			SessionIdleTimeout: 10 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Driver:     DriverSQLite,
			SQLitePath: "planner.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
	}
}

type flagValues struct {
	configPath  string
	envFile     string
	token       string
	mode        string
	webhookURL  string
	secret      string
	debug       bool
	idleTimeout time.Duration
	httpAddr    string
	driver      string
	dbURL       string
	sqlitePath  string
	poolSize    int
	logLevel    string
	logFormat   string
}

// Load builds the configuration from args (without the program name) and
// the process environment. It returns pflag.ErrHelp when --help is given.
func Load(args []string) (*Config, error) {
	var f flagValues
	flags := pflag.NewFlagSet("planner", pflag.ContinueOnError)
	flags.StringVar(&f.configPath, "config", "", "path to a YAML configuration file")
	flags.StringVar(&f.envFile, "env-file", ".env", "path to a .env file, ignored when missing")
	flags.StringVar(&f.token, "telegram-token", "", "Telegram bot token")
	flags.StringVar(&f.mode, "mode", "", "update source: polling or webhook")
	flags.StringVar(&f.webhookURL, "webhook-url", "", "public webhook URL (webhook mode)")
	flags.StringVar(&f.secret, "webhook-secret", "", "secret Telegram echoes on webhook requests (webhook mode)")
	flags.BoolVar(&f.debug, "debug", false, "log Bot API traffic")
	flags.DurationVar(&f.idleTimeout, "session-idle-timeout", 0, "idle time after which a user session ends")
	flags.StringVar(&f.httpAddr, "http-addr", "", "HTTP listen address")
	flags.StringVar(&f.driver, "db-driver", "", "database driver: postgres or sqlite")
	flags.StringVar(&f.dbURL, "db-url", "", "postgres connection URL")
	flags.StringVar(&f.sqlitePath, "sqlite-path", "", "sqlite database file")
	flags.IntVar(&f.poolSize, "db-pool-size", 0, "database connection pool size")
	flags.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&f.logFormat, "log-format", "", "log format: text or json")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	configPath := f.configPath
	if configPath == "" {
		configPath = os.Getenv("PLANNER_CONFIG")
	}
	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", f.envFile, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyFlags(flags, &f)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Telegram.Token, "PLANNER_TELEGRAM_TOKEN")
	setString(&c.Telegram.Mode, "PLANNER_MODE")
	setString(&c.Telegram.WebhookURL, "PLANNER_WEBHOOK_URL")
	setString(&c.Telegram.WebhookSecret, "PLANNER_WEBHOOK_SECRET")
	setString(&c.HTTP.Addr, "PLANNER_HTTP_ADDR")
	setString(&c.Database.Driver, "PLANNER_DB_DRIVER")
	setString(&c.Database.URL, "PLANNER_DB_URL")
	setString(&c.Database.SQLitePath, "PLANNER_SQLITE_PATH")
	setString(&c.Log.Level, "PLANNER_LOG_LEVEL")
	setString(&c.Log.Format, "PLANNER_LOG_FORMAT")

	if v, ok := os.LookupEnv("PLANNER_DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PLANNER_DEBUG: %w", err)
		}
		c.Telegram.Debug = debug
	}
	if v, ok := os.LookupEnv("PLANNER_SESSION_IDLE_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PLANNER_SESSION_IDLE_TIMEOUT: %w", err)
		}
		c.Telegram.SessionIdleTimeout = timeout
	}
	if v, ok := os.LookupEnv("PLANNER_DB_POOL_SIZE"); ok {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PLANNER_DB_POOL_SIZE: %w", err)
		}
		c.Database.PoolSize = size
	}

	if c.Database.URL == "" && os.Getenv("POSTGRES_HOST") != "" {
		c.Database.URL = postgresURLFromEnv()
	}
	return nil
}

// postgresURLFromEnv assembles a connection URL from the POSTGRES_*
// variables used by the postgres container image.
func postgresURLFromEnv() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("POSTGRES_USER"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     os.Getenv("POSTGRES_HOST"),
		Path:     "/" + os.Getenv("POSTGRES_DB"),
		RawQuery: "sslmode=disable",
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		u.Host += ":" + port
	}
	return u.String()
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (c *Config) applyFlags(flags *pflag.FlagSet, f *flagValues) {
	if flags.Changed("telegram-token") {
		c.Telegram.Token = f.token
	}
	if flags.Changed("mode") {
		c.Telegram.Mode = f.mode
	}
	if flags.Changed("webhook-url") {
		c.Telegram.WebhookURL = f.webhookURL
	}
	if flags.Changed("webhook-secret") {
		c.Telegram.WebhookSecret = f.secret
	}
	if flags.Changed("debug") {
		c.Telegram.Debug = f.debug
	}
	if flags.Changed("session-idle-timeout") {
		c.Telegram.SessionIdleTimeout = f.idleTimeout
	}
	if flags.Changed("http-addr") {
		c.HTTP.Addr = f.httpAddr
	}
	if flags.Changed("db-driver") {
		c.Database.Driver = f.driver
	}
	if flags.Changed("db-url") {
		c.Database.URL = f.dbURL
	}
	if flags.Changed("sqlite-path") {
		c.Database.SQLitePath = f.sqlitePath
	}
	if flags.Changed("db-pool-size") {
		c.Database.PoolSize = f.poolSize
	}
	if flags.Changed("log-level") {
		c.Log.Level = f.logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = f.logFormat
	}
}

// webhookSecretPattern is the character set Telegram accepts for
// secret_token.
var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

// Validate reports the first missing or malformed setting.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required (--telegram-token or PLANNER_TELEGRAM_TOKEN)")
	}

	switch c.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Telegram.WebhookURL == "" {
			return errors.New("webhook url is required in webhook mode (--webhook-url or PLANNER_WEBHOOK_URL)")
		}
		if c.Telegram.WebhookSecret == "" {
			return errors.New("webhook secret is required in webhook mode (--webhook-secret or PLANNER_WEBHOOK_SECRET)")
		}
		if !webhookSecretPattern.MatchString(c.Telegram.WebhookSecret) {
			return errors.New("webhook secret must be 1 to 256 characters of A-Z, a-z, 0-9, _ and -")
		}
	default:
		return fmt.Errorf("invalid mode %q: expected %s or %s", c.Telegram.Mode, ModePolling, ModeWebhook)
	}

	if c.Telegram.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session idle timeout must be positive, got %s", c.Telegram.SessionIdleTimeout)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database url is required for postgres (--db-url or PLANNER_DB_URL)")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("sqlite path is required for sqlite (--sqlite-path or PLANNER_SQLITE_PATH)")
		}
	default:
		return fmt.Errorf("invalid database driver %q: expected %s or %s", c.Database.Driver, DriverPostgres, DriverSQLite)
	}

	if c.Database.PoolSize < 0 {
		return fmt.Errorf("database pool size must not be negative, got %d", c.Database.PoolSize)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q: expected %s or %s", c.Log.Format, FormatText, FormatJSON)
	}

	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return level, nil
}
