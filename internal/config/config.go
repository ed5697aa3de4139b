package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/infrastructure/scheduler"
)

const (
	defaultTimezone = "Asia/Shanghai"

	configPathEnv     = "GROWTH_AGENT_CONFIG"
	dataRootEnv       = "DATA_ROOT"
	logLevelEnv       = "LOG_LEVEL"
	rapidAPIKeyEnv    = "X_RAPIDAPI_KEY"
	openRouterKeyEnv  = "OPENROUTER_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	githubTokenEnv    = "GITHUB_TOKEN"
	repoPathEnv       = "REPO_PATH"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	journalDSNEnv     = "JOURNAL_DSN"
	timezoneEnv       = "SCHEDULER_TIMEZONE"
)

// LLM providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderService    = "service"
)

// Config holds high-level settings required across the application. It is
// built once at startup and passed by value afterwards.
type Config struct {
	DataRoot      string             `yaml:"data_root"`
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Ingest        IngestConfig       `yaml:"ingest"`
	Curation      CurationConfig     `yaml:"curation"`
	Blog          BlogConfig         `yaml:"blog"`
	LLM           LLMConfig          `yaml:"llm"`
	X             XConfig            `yaml:"x"`
	RSS           RSSConfig          `yaml:"rss"`
	GitHub        GitHubConfig       `yaml:"github"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Notifications NotificationConfig `yaml:"notifications"`
	Journal       JournalConfig      `yaml:"journal"`
	Lock          LockConfig         `yaml:"lock"`
	Retry         RetryConfig        `yaml:"retry"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Status        StatusConfig       `yaml:"status"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines when the content workflow should run.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	CronExpression string         `yaml:"cron"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IngestConfig bounds the ingest stage.
type IngestConfig struct {
	MaxItemsPerSource int `yaml:"max_items_per_source"`
	Concurrency       int `yaml:"concurrency"`
}

// CurationConfig bounds the curate stage.
type CurationConfig struct {
	MinScore       int `yaml:"min_score"`
	TopK           int `yaml:"top_k"`
	MaxCurateItems int `yaml:"max_curate_items"`
	Concurrency    int `yaml:"concurrency"`
}

// BlogConfig controls document generation.
type BlogConfig struct {
	Enabled bool     `yaml:"enabled"`
	Context string   `yaml:"context"`
	Title   string   `yaml:"default_title"`
	Tags    []string `yaml:"default_tags"`
	Author  string   `yaml:"default_author"`
}

// LLMConfig selects and configures the judge and drafter backend.
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	PromptsDir        string        `yaml:"prompts_dir"`
	OllamaHost        string        `yaml:"ollama_host"`
	ServiceURL        string        `yaml:"service_url"`
	ServiceAPIKey     string        `yaml:"service_api_key"`
}

// XConfig describes the RapidAPI timeline endpoint.
type XConfig struct {
	APIKey  string `yaml:"api_key"`
	APIHost string `yaml:"api_host"`
}

// RSSConfig tunes feed fetching.
type RSSConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GitHubConfig points the issue mirror at a repository.
type GitHubConfig struct {
	Token      string `yaml:"token"`
	Repository string `yaml:"repository"`
	APIBase    string `yaml:"api_base"`
	State      string `yaml:"state"`
	Limit      int    `yaml:"limit"`
}

// MetricsConfig lists the accounts whose engagement is tracked.
type MetricsConfig struct {
	Accounts      []AccountConfig `yaml:"accounts"`
	PostsPerCheck int             `yaml:"posts_per_check"`
}

// AccountConfig is one tracked account.
type AccountConfig struct {
	Username string `yaml:"username"`
	UserID   string `yaml:"user_id"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// JournalConfig selects the run journal backend. An empty DSN puts a
// sqlite database under the data root.
type JournalConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LockConfig controls the run-level lock file.
type LockConfig struct {
	StaleAfter time.Duration `yaml:"stale_after"`
}

// RetryConfig is the backoff applied to collaborator calls.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
}

// ArchiveConfig controls archive retention.
type ArchiveConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// StatusConfig configures the HTTP status surface of the daemon.
type StatusConfig struct {
	Addr string `yaml:"addr"`
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $GROWTH_AGENT_CONFIG), then .env, then environment overrides. The result
// is validated; any problem is reported as domain.ErrConfiguration.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: load .env: %v", domain.ErrConfiguration, err)
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", domain.ErrConfiguration, path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dataRootEnv); v != "" {
		c.DataRoot = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(rapidAPIKeyEnv); v != "" {
		c.X.APIKey = v
	}
	if v := os.Getenv(openRouterKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(githubTokenEnv); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv(repoPathEnv); v != "" {
		c.GitHub.Repository = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(journalDSNEnv); v != "" {
		c.Journal.DSN = v
	}
	if v := os.Getenv(timezoneEnv); v != "" {
		c.Scheduler.Timezone = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %q", domain.ErrConfiguration, tz)
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
	return nil
}

// Validate checks ranges and cross-field requirements.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DataRoot) == "" {
		errs = append(errs, errors.New("data_root is required"))
	}
	if c.Curation.MinScore < domain.MinScore || c.Curation.MinScore > domain.MaxScore {
		errs = append(errs, fmt.Errorf("curation.min_score %d outside 0..100", c.Curation.MinScore))
	}
	if c.Curation.TopK <= 0 {
		errs = append(errs, errors.New("curation.top_k must be positive"))
	}
	if c.Curation.MaxCurateItems < 0 {
		errs = append(errs, errors.New("curation.max_curate_items must not be negative"))
	}
	if c.Ingest.MaxItemsPerSource <= 0 {
		errs = append(errs, errors.New("ingest.max_items_per_source must be positive"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature %.2f outside 0..2", c.LLM.Temperature))
	}
	switch c.LLM.Provider {
	case ProviderOpenRouter:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			errs = append(errs, fmt.Errorf("llm.api_key (or %s) is required for the openrouter provider", openRouterKeyEnv))
		}
	case ProviderOllama:
	case ProviderService:
		if c.LLM.ServiceURL == "" {
			errs = append(errs, errors.New("llm.service_url is required for the service provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of openrouter, ollama, service", c.LLM.Provider))
	}
	switch c.Journal.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("journal.driver %q is not one of sqlite, postgres", c.Journal.Driver))
	}
	if c.Journal.Driver == "postgres" && c.Journal.DSN == "" {
		errs = append(errs, errors.New("journal.dsn is required for postgres"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry.max_attempts must be positive"))
	}
	if len(c.Metrics.Accounts) > 0 && strings.TrimSpace(c.X.APIKey) == "" {
		errs = append(errs, fmt.Errorf("x.api_key (or %s) is required to track metrics.accounts", rapidAPIKeyEnv))
	}
	for i, acc := range c.Metrics.Accounts {
		if acc.Username == "" || acc.UserID == "" {
			errs = append(errs, fmt.Errorf("metrics.accounts[%d] needs username and user_id", i))
		}
	}
	if c.Scheduler.Enabled {
		if err := scheduler.Validate(c.Scheduler.CronExpression); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.LLM.ServiceAPIKey = mask(c.LLM.ServiceAPIKey)
	c.X.APIKey = mask(c.X.APIKey)
	c.GitHub.Token = mask(c.GitHub.Token)
	c.Notifications.Telegram.BotToken = mask(c.Notifications.Telegram.BotToken)
	c.Journal.DSN = mask(c.Journal.DSN)
	return c
}

// LogValue keeps secrets out of structured logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("data_root", c.DataRoot),
		slog.String("llm_provider", c.LLM.Provider),
		slog.String("llm_model", c.LLM.Model),
		slog.String("timezone", c.Scheduler.Timezone),
		slog.String("cron", c.Scheduler.CronExpression),
		slog.String("journal", c.Journal.Driver),
	)
}

func defaultConfig() Config {
	return Config{
		DataRoot: "data",
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			CronExpression: "0 8 * * *",
			Timezone:       defaultTimezone,
		},
		Ingest: IngestConfig{MaxItemsPerSource: 20, Concurrency: 4},
		Curation: CurationConfig{
			MinScore:       60,
			TopK:           10,
			MaxCurateItems: 50,
			Concurrency:    4,
		},
		Blog: BlogConfig{
			Enabled: true,
			Context: "AI and technology insights for business growth",
			Title:   "AI Insights Daily",
			Tags:    []string{"AI", "Technology"},
			Author:  "Growth Agent",
		},
		LLM: LLMConfig{
			Provider:          ProviderOpenRouter,
			Endpoint:          "https://openrouter.ai/api/v1/chat/completions",
			Model:             "anthropic/claude-3.5-sonnet",
			Temperature:       0.3,
			MaxTokens:         2000,
			Timeout:           60 * time.Second,
			RequestsPerMinute: 30,
			PromptsDir:        "prompts",
		},
		X:   XConfig{APIHost: "twitter-api45.p.rapidapi.com"},
		RSS: RSSConfig{UserAgent: "GrowthAgent/1.0", Timeout: 20 * time.Second},
		GitHub: GitHubConfig{
			APIBase: "https://api.github.com",
			State:   "all",
			Limit:   100,
		},
		Metrics: MetricsConfig{PostsPerCheck: 20},
		Journal: JournalConfig{Driver: "sqlite"},
		Lock:    LockConfig{StaleAfter: 2 * time.Hour},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     30 * time.Second,
			CallTimeout:  60 * time.Second,
		},
		Archive: ArchiveConfig{RetentionDays: 0},
		Status:  StatusConfig{Addr: ":9090"},
	}
}
