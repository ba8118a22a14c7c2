package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig describes how external services reach this process.
// PublicURL is the base URL both Telegram and 1Shot deliver callbacks to.
type WebhookConfig struct {
	PublicURL   string `yaml:"public_url" envconfig:"TUNNEL_BASE_URL"`
	SecretToken string `yaml:"secret_token" envconfig:"TELEGRAM_WEBHOOK_SECRET"`
}

// HTTPConfig specifies the listener of the inbound HTTP server.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port   int    `yaml:"port" envconfig:"HTTP_PORT"`
	// WebhookRPS bounds accepted /1shot deliveries per second; 0 disables limiting.
	WebhookRPS   float64 `yaml:"webhook_rps" envconfig:"HTTP_WEBHOOK_RPS"`
	WebhookBurst int     `yaml:"webhook_burst" envconfig:"HTTP_WEBHOOK_BURST"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// DatabaseConfig holds the optional storage backend settings.
// An empty Driver keeps every store in memory.
type DatabaseConfig struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// OneShotConfig configures access to the 1Shot transaction API.
type OneShotConfig struct {
	APIKey    string `yaml:"api_key" envconfig:"ONESHOT_API_KEY"`
	APISecret string `yaml:"api_secret" envconfig:"ONESHOT_API_SECRET"`
	// APISecretParam names an SSM parameter holding the secret; it wins over APISecret.
	APISecretParam string `yaml:"api_secret_param" envconfig:"ONESHOT_API_SECRET_PARAM"`
	BusinessID     string `yaml:"business_id" envconfig:"ONESHOT_BUSINESS_ID"`
	BaseURL        string `yaml:"base_url" envconfig:"ONESHOT_BASE_URL"`

	ChainID          string  `yaml:"chain_id" envconfig:"ONESHOT_CHAIN_ID"`
	DeployerContract string  `yaml:"deployer_contract" envconfig:"ONESHOT_DEPLOYER_CONTRACT"`
	MethodName       string  `yaml:"method_name" envconfig:"ONESHOT_METHOD_NAME"`
	SuccessEvent     string  `yaml:"success_event" envconfig:"ONESHOT_SUCCESS_EVENT"`
	MinWalletBalance float64 `yaml:"min_wallet_balance" envconfig:"ONESHOT_MIN_WALLET_BALANCE"`
	ExplorerURL      string  `yaml:"explorer_url" envconfig:"ONESHOT_EXPLORER_URL"`
}

// QueueConfig sizes the inbound update queue.
type QueueConfig struct {
	Size int `yaml:"size" envconfig:"QUEUE_SIZE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// DriverPostgres stores chats and executions in PostgreSQL.
	DriverPostgres = "postgres"
	// DriverSQLite stores chats and executions in a local SQLite file.
	DriverSQLite = "sqlite"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateChatMember identifies my_chat_member updates for rate limit exclusions.
	UpdateChatMember = "chat_member"
)

const (
	defaultOneShotBaseURL = "https://api.1shotapi.com/v0"
	defaultChainID        = "11155111"
	defaultDeployer       = "0xA1BfEd6c6F1C3A516590edDAc7A8e359C2189A61"
	defaultMethodName     = "1Shot Demo Sepolia Token Deployer"
	defaultSuccessEvent   = "TransactionExecutionSuccess"
	defaultMinBalance     = 0.0001
	defaultExplorerURL    = "https://sepolia.etherscan.io"
	defaultHTTPPort       = 8000
	defaultQueueSize      = 128
)

// RateLimitConfig holds settings for per-user Telegram rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard messages
// - "chat_member": bot membership changes
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	OneShot   OneShotConfig   `yaml:"oneshot"`
	Queue     QueueConfig     `yaml:"queue"`
}

// Load reads configuration from a YAML file and environment variables.
// A missing file is tolerated so the bot can run from the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	cfg.Webhook.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.Webhook.PublicURL), "/")
	if cfg.Webhook.PublicURL == "" {
		return fmt.Errorf("webhook.public_url is required to receive 1Shot callbacks")
	}
	if u, err := url.Parse(cfg.Webhook.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("webhook.public_url %q is not an absolute URL", cfg.Webhook.PublicURL)
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeWebhook
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook, RunModeLongpoll:
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
	}
	cfg.Telegram.RunMode = rm

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = defaultHTTPPort
	}
	if cfg.HTTP.Port < 0 {
		return fmt.Errorf("http.port must be > 0")
	}
	if cfg.HTTP.WebhookRPS < 0 {
		return fmt.Errorf("http.webhook_rps must be >= 0")
	}
	if cfg.HTTP.WebhookRPS > 0 && cfg.HTTP.WebhookBurst <= 0 {
		cfg.HTTP.WebhookBurst = 1
	}

	if err := normalizeOneShot(&cfg.OneShot); err != nil {
		return err
	}
	if err := normalizeDatabase(&cfg.Database); err != nil {
		return err
	}

	if cfg.Queue.Size <= 0 {
		cfg.Queue.Size = defaultQueueSize
	}

	allowed := map[string]struct{}{
		UpdateCallback:   {},
		UpdateMessage:    {},
		UpdateChatMember: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, chat_member", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}
	return nil
}

func normalizeOneShot(c *OneShotConfig) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("oneshot.api_key is required")
	}
	if strings.TrimSpace(c.APISecret) == "" && strings.TrimSpace(c.APISecretParam) == "" {
		return fmt.Errorf("oneshot.api_secret or oneshot.api_secret_param is required")
	}
	if strings.TrimSpace(c.BusinessID) == "" {
		return fmt.Errorf("oneshot.business_id is required")
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultOneShotBaseURL
	}
	if c.ChainID == "" {
		c.ChainID = defaultChainID
	}
	if c.DeployerContract == "" {
		c.DeployerContract = defaultDeployer
	}
	if c.MethodName == "" {
		c.MethodName = defaultMethodName
	}
	if c.SuccessEvent == "" {
		c.SuccessEvent = defaultSuccessEvent
	}
	if c.MinWalletBalance < 0 {
		return fmt.Errorf("oneshot.min_wallet_balance must be >= 0")
	}
	if c.MinWalletBalance == 0 {
		c.MinWalletBalance = defaultMinBalance
	}
	c.ExplorerURL = strings.TrimRight(strings.TrimSpace(c.ExplorerURL), "/")
	if c.ExplorerURL == "" {
		c.ExplorerURL = defaultExplorerURL
	}
	return nil
}

func normalizeDatabase(c *DatabaseConfig) error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "":
		return nil
	case "postgresql", DriverPostgres:
		c.Driver = DriverPostgres
		if c.Host == "" || c.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
	case "sqlite3", DriverSQLite:
		c.Driver = DriverSQLite
		if c.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite", c.Driver)
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 5
	}
	return nil
}

// TelegramWebhookURL is the endpoint Telegram delivers updates to in webhook mode.
func (c *Config) TelegramWebhookURL() string {
	return c.Webhook.PublicURL + "/telegram"
}

// OneShotCallbackURL is the endpoint 1Shot delivers execution events to.
func (c *Config) OneShotCallbackURL() string {
	return c.Webhook.PublicURL + "/1shot"
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Listen, c.HTTP.Port)
}
