package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ppf/cryptowatcher/internal/logging"
)

const (
	// MaxPageSize caps how many asset panels fit on one dashboard page.
	MaxPageSize = 4

	// MaxTrackedAssets caps the watch list; anything past it is ignored.
	MaxTrackedAssets = 20
)

// Config materialises application configuration.
type Config struct {
	App     AppConfig      `mapstructure:"app"`
	Logging logging.Config `mapstructure:"logging"`
	Watch   WatchConfig    `mapstructure:"watch"`
	Market  MarketConfig   `mapstructure:"market"`
	Export  ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// WatchConfig selects the tracked markets and the dashboard cadence.
type WatchConfig struct {
	Coins       []string      `mapstructure:"coins"`
	QuoteAsset  string        `mapstructure:"quote_asset"`
	Interval    time.Duration `mapstructure:"interval"`
	PageSize    int           `mapstructure:"page_size"`
	HistorySize int           `mapstructure:"history_size"`
}

// MarketConfig captures Binance connectivity.
type MarketConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	KlineInterval  string        `mapstructure:"kline_interval"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Pair is one tracked market with its display label.
type Pair struct {
	Symbol string // request symbol, e.g. BTCUSDT
	Label  string // display form, e.g. BTC/USDT
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRYPTOWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cryptowatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	v.SetDefault("watch.coins", []string{"BTC", "ETH"})
	v.SetDefault("watch.quote_asset", "USDT")
	v.SetDefault("watch.interval", "60s")
	v.SetDefault("watch.page_size", 4)
	v.SetDefault("watch.history_size", 60)

	v.SetDefault("market.base_url", "https://api.binance.com")
	v.SetDefault("market.request_timeout", "10s")
	v.SetDefault("market.user_agent", "cryptowatcher/1.0")
	v.SetDefault("market.kline_interval", "15m")

	v.SetDefault("export.max_data_points", 500)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Watch.PageSize <= 0 || c.Watch.PageSize > MaxPageSize {
		return fmt.Errorf("watch.page_size must be between 1 and %d", MaxPageSize)
	}
	if c.Watch.HistorySize <= 0 || c.Watch.HistorySize > 1000 {
		return fmt.Errorf("watch.history_size must be between 1 and 1000")
	}
	if pairs, _ := c.Watch.Pairs(); len(pairs) == 0 {
		return fmt.Errorf("watch.coins contains no valid symbols")
	}
	if c.Export.MaxDataPoints <= 0 || c.Export.MaxDataPoints > 1000 {
		return fmt.Errorf("export.max_data_points must be between 1 and 1000")
	}
	return nil
}

// Pairs normalises the configured coins into exchange pairs, in the
// order given. Entries that are empty, non-alphanumeric, or past the
// MaxTrackedAssets cap are returned in ignored instead.
func (w *WatchConfig) Pairs() (pairs []Pair, ignored []string) {
	quote := strings.ToUpper(strings.TrimSpace(w.QuoteAsset))
	if quote == "" {
		quote = "USDT"
	}

	for _, coin := range w.Coins {
		base := normalizeCoin(coin)
		if base == "" || len(pairs) == MaxTrackedAssets {
			ignored = append(ignored, coin)
			continue
		}
		pairs = append(pairs, Pair{
			Symbol: base + quote,
			Label:  base + "/" + quote,
		})
	}
	return pairs, ignored
}

// normalizeCoin uppercases a coin code, accepting ASCII letters and
// digits only.
func normalizeCoin(coin string) string {
	coin = strings.TrimSpace(coin)
	if coin == "" {
		return ""
	}
	for _, r := range coin {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return ""
		}
	}
	return strings.ToUpper(coin)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// ResolvePair maps an explicit coin argument onto a pair, falling back
// to the first configured pair when coin is empty.
func (c *Config) ResolvePair(coin string) (Pair, error) {
	if strings.TrimSpace(coin) == "" {
		pairs, _ := c.Watch.Pairs()
		if len(pairs) == 0 {
			return Pair{}, fmt.Errorf("watch.coins contains no valid symbols")
		}
		return pairs[0], nil
	}

	scratch := WatchConfig{Coins: []string{coin}, QuoteAsset: c.Watch.QuoteAsset}
	pairs, _ := scratch.Pairs()
	if len(pairs) == 0 {
		return Pair{}, fmt.Errorf("invalid coin %q", coin)
	}
	return pairs[0], nil
}
