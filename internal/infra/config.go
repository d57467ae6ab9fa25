package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"autotrade_go/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	ModePerAsset    = "per_asset"
	ModeCentralized = "centralized"

	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
)

// Config holds every setting of the trader.
// Secrets are overridden from the environment after the file is parsed.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Upbit struct {
		RestURL    string `yaml:"rest_url"`
		WSURL      string `yaml:"ws_url"`
		AccessKey  string `yaml:"access_key"`
		SecretKey  string `yaml:"secret_key"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"upbit"`

	LLM struct {
		Provider   string `yaml:"provider"`
		Model      string `yaml:"model"`
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		MaxTokens  int    `yaml:"max_tokens"`
		PromptFile string `yaml:"prompt_file"`
		// Centralized mode renders a different template, so it has its own override.
		PortfolioPromptFile string `yaml:"portfolio_prompt_file"`
	} `yaml:"llm"`

	News struct {
		Feeds      []string      `yaml:"feeds"`
		Cooldown   time.Duration `yaml:"cooldown"`
		MaxResults int           `yaml:"max_results"`
		TimeoutSec int           `yaml:"timeout_sec"`
	} `yaml:"news"`

	ExchangeRate struct {
		URL string `yaml:"url"`
	} `yaml:"exchange_rate"`

	Slack struct {
		Token   string `yaml:"token"`
		Channel string `yaml:"channel"`
		APIURL  string `yaml:"api_url"`
	} `yaml:"slack"`

	Trading struct {
		Assets             []domain.AssetConfig `yaml:"assets"`
		Interval           time.Duration        `yaml:"interval"`
		TradeIntervalHours float64              `yaml:"trade_interval_hours"`
		Mode               string               `yaml:"mode"`
		MinNotional        decimal.Decimal      `yaml:"min_notional"`
		SafetyMargin       decimal.Decimal      `yaml:"safety_margin"`
		SettleDelay        time.Duration        `yaml:"settle_delay"`
		Workers            int                  `yaml:"workers"`
		HistoryLimit       int                  `yaml:"history_limit"`
		Paper              bool                 `yaml:"paper"`
		PaperCash          decimal.Decimal      `yaml:"paper_cash"`
		FeeRate            decimal.Decimal      `yaml:"fee_rate"`
	} `yaml:"trading"`

	Storage struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultNewsFeeds are the RSS sources used when none are configured.
var DefaultNewsFeeds = []string{
	"https://www.coindesk.com/arc/outboundfeeds/rss/",
	"https://cointelegraph.com/rss",
	"https://feeds.bloomberg.com/markets/news.rss",
	"https://www.cnbc.com/id/10001147/device/rss/rss.html",
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML, applies defaults and env overrides, then validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	// 보안 우선 - .env 및 환경 변수 오버라이드 지원
	_ = godotenv.Load()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "autotrade"
	}
	if c.Upbit.RestURL == "" {
		c.Upbit.RestURL = "https://api.upbit.com"
	}
	if c.Upbit.WSURL == "" {
		c.Upbit.WSURL = "wss://api.upbit.com/websocket/v1"
	}
	if c.Upbit.TimeoutSec <= 0 {
		c.Upbit.TimeoutSec = 10
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4.1"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 16384
	}
	if len(c.News.Feeds) == 0 {
		c.News.Feeds = DefaultNewsFeeds
	}
	if c.News.Cooldown <= 0 {
		c.News.Cooldown = time.Hour
	}
	if c.News.MaxResults <= 0 {
		c.News.MaxResults = 4
	}
	if c.News.TimeoutSec <= 0 {
		c.News.TimeoutSec = 10
	}
	if c.ExchangeRate.URL == "" {
		c.ExchangeRate.URL = "https://quotation-api-cdn.dunamu.com/v1/forex/recent?codes=FRX.KRWUSD"
	}
	if c.Slack.APIURL == "" {
		c.Slack.APIURL = "https://slack.com/api"
	}
	if len(c.Trading.Assets) == 0 {
		c.Trading.Assets = domain.DefaultAssets()
	}
	if c.Trading.Mode == "" {
		c.Trading.Mode = ModePerAsset
	}
	if c.Trading.MinNotional.IsZero() {
		c.Trading.MinNotional = decimal.NewFromInt(5000)
	}
	if c.Trading.SafetyMargin.IsZero() {
		c.Trading.SafetyMargin = decimal.RequireFromString("0.9995")
	}
	if c.Trading.SettleDelay <= 0 {
		c.Trading.SettleDelay = time.Second
	}
	if c.Trading.HistoryLimit <= 0 {
		c.Trading.HistoryLimit = 4
	}
	if c.Trading.PaperCash.IsZero() {
		c.Trading.PaperCash = decimal.NewFromInt(1_000_000)
	}
	if c.Trading.FeeRate.IsZero() {
		c.Trading.FeeRate = decimal.RequireFromString("0.0005")
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	assets := c.EnabledAssets()
	if len(assets) == 0 {
		return &domain.ConfigError{Field: "trading.assets", Err: errors.New("at least one enabled asset is required")}
	}
	seen := make(map[string]bool, len(c.Trading.Assets))
	for _, a := range c.Trading.Assets {
		a = a.Normalize()
		if a.Symbol == "" {
			return &domain.ConfigError{Field: "trading.assets", Err: errors.New("asset symbol is empty")}
		}
		if seen[a.Symbol] {
			return &domain.ConfigError{Field: "trading.assets", Err: fmt.Errorf("duplicate symbol %s", a.Symbol)}
		}
		seen[a.Symbol] = true
	}

	if c.CycleInterval() <= 0 {
		return &domain.ConfigError{Field: "trading.interval", Err: errors.New("interval must be positive")}
	}
	if c.Trading.Mode != ModePerAsset && c.Trading.Mode != ModeCentralized {
		return &domain.ConfigError{Field: "trading.mode", Err: fmt.Errorf("unknown mode %q", c.Trading.Mode)}
	}
	if !c.Trading.MinNotional.IsPositive() {
		return &domain.ConfigError{Field: "trading.min_notional", Err: errors.New("must be positive")}
	}
	if !c.Trading.SafetyMargin.IsPositive() || c.Trading.SafetyMargin.GreaterThan(decimal.NewFromInt(1)) {
		return &domain.ConfigError{Field: "trading.safety_margin", Err: errors.New("must be in (0, 1]")}
	}
	if c.Trading.FeeRate.IsNegative() || c.Trading.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return &domain.ConfigError{Field: "trading.fee_rate", Err: errors.New("must be in [0, 1)")}
	}
	if c.Trading.Workers < 0 {
		return &domain.ConfigError{Field: "trading.workers", Err: errors.New("must not be negative")}
	}

	if c.LLM.Provider != ProviderOpenAI && c.LLM.Provider != ProviderDeepSeek {
		return &domain.ConfigError{Field: "llm.provider", Err: fmt.Errorf("unknown provider %q", c.LLM.Provider)}
	}
	if !hasPrefix(c.Upbit.WSURL, "ws://") && !hasPrefix(c.Upbit.WSURL, "wss://") {
		return &domain.ConfigError{Field: "upbit.ws_url", Err: fmt.Errorf("invalid websocket url %q", c.Upbit.WSURL)}
	}

	return nil
}

// PromptFileFor returns the prompt override of a decision mode, or "".
func (c *Config) PromptFileFor(mode string) string {
	if mode == ModeCentralized {
		return c.LLM.PortfolioPromptFile
	}
	return c.LLM.PromptFile
}

// CycleInterval returns the scheduler period. An explicit interval wins over
// the legacy trade_interval_hours, which defaults to 4 hours.
func (c *Config) CycleInterval() time.Duration {
	if c.Trading.Interval != 0 {
		return c.Trading.Interval
	}
	if c.Trading.TradeIntervalHours != 0 {
		return time.Duration(c.Trading.TradeIntervalHours * float64(time.Hour))
	}
	return 4 * time.Hour
}

// EnabledAssets returns the normalized assets that take part in cycles.
func (c *Config) EnabledAssets() []domain.AssetConfig {
	out := make([]domain.AssetConfig, 0, len(c.Trading.Assets))
	for _, a := range c.Trading.Assets {
		if a.IsEnabled() {
			out = append(out, a.Normalize())
		}
	}
	return out
}

// WorkerCount bounds per-phase fan-out. Zero means one worker per asset.
func (c *Config) WorkerCount() int {
	n := len(c.EnabledAssets())
	if c.Trading.Workers > 0 && c.Trading.Workers < n {
		return c.Trading.Workers
	}
	if n == 0 {
		return 1
	}
	return n
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("UPBIT_ACCESS_KEY"); key != "" {
		cfg.Upbit.AccessKey = key
	}
	if secret := os.Getenv("UPBIT_SECRET_KEY"); secret != "" {
		cfg.Upbit.SecretKey = secret
	}
	switch cfg.LLM.Provider {
	case ProviderDeepSeek:
		if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
			cfg.LLM.APIKey = key
		}
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.LLM.APIKey = key
		}
	}
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		cfg.Slack.Token = token
	}
	if channel := os.Getenv("SLACK_CHANNEL_ID"); channel != "" {
		cfg.Slack.Channel = channel
	}
	if level := os.Getenv("AUTOTRADE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if dir := os.Getenv("AUTOTRADE_DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
}
