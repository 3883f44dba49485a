package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"CryptoForecast/internal/feature"
	"CryptoForecast/internal/forecast"
	"CryptoForecast/internal/logger"
	"CryptoForecast/internal/model"
	"CryptoForecast/internal/predictor"
)

// Pipeline holds the options that shape one forecasting run.
type Pipeline struct {
	Symbol                     string  `yaml:"symbol" default:"BNB" validate:"required"`
	Market                     string  `yaml:"market" default:"USD" validate:"required"`
	ForecastMonths             int     `yaml:"forecast_months" default:"24" validate:"gt=0"`
	TestSizeMonths             int     `yaml:"test_size_months" default:"3" validate:"gt=0"`
	ModelType                  string  `yaml:"model_type" default:"LinearRegression"`
	RandomSeed                 uint64  `yaml:"random_seed" default:"42"`
	MAWindows                  []int   `yaml:"ma_windows" default:"[3,6]" validate:"min=1,dive,gt=0"`
	RSIWindow                  int     `yaml:"rsi_window" default:"6" validate:"gt=0"`
	BBWindow                   int     `yaml:"bb_window" default:"10" validate:"gt=0"`
	VisualizationHistoryMonths int     `yaml:"visualization_history_months" default:"60" validate:"gt=0"`
	DriftMean                  float64 `yaml:"drift_mean" default:"0.01"`
	DriftSD                    float64 `yaml:"drift_sd" default:"0.05" validate:"gte=0"`
	DriftSeed                  uint64  `yaml:"drift_seed" default:"42"`
	ForestTrees                int     `yaml:"forest_trees" default:"200" validate:"gt=0"`
	ForestMaxDepth             int     `yaml:"forest_max_depth" validate:"gte=0"`
	ForestMinSamplesLeaf       int     `yaml:"forest_min_samples_leaf" default:"1" validate:"gt=0"`
	ForestMaxFeatures          int     `yaml:"forest_max_features" validate:"gte=0"`
	RefitFull                  bool    `yaml:"refit_full"`
}

// FeatureParams returns the indicator windows.
func (p Pipeline) FeatureParams() feature.Params {
	return feature.Params{MAWindows: p.MAWindows, RSIWindow: p.RSIWindow, BBWindow: p.BBWindow}
}

// Simulator returns the drift simulator for the forecast horizon.
func (p Pipeline) Simulator() forecast.Simulator {
	return forecast.Simulator{
		Months:    p.ForecastMonths,
		DriftMean: p.DriftMean,
		DriftSD:   p.DriftSD,
		Seed:      p.DriftSeed,
	}
}

// ModelOptions returns the backend options; RandomSeed seeds model fitting.
func (p Pipeline) ModelOptions() predictor.Options {
	return predictor.Options{
		Seed:           p.RandomSeed,
		Trees:          p.ForestTrees,
		MaxDepth:       p.ForestMaxDepth,
		MinSamplesLeaf: p.ForestMinSamplesLeaf,
		MaxFeatures:    p.ForestMaxFeatures,
	}
}

// DataSource selects where monthly prices come from.
type DataSource struct {
	Provider string        `yaml:"provider" default:"alphavantage" validate:"oneof=alphavantage yahoo csv mock"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key" validate:"required_if=Provider alphavantage"`
	CSVPath  string        `yaml:"csv_path" validate:"required_if=Provider csv"`
	Timeout  time.Duration `yaml:"timeout" default:"15s"`
	Proxy    string        `yaml:"proxy"`
}

// Cache configures the Redis cache in front of the fetcher. Empty Addr disables it.
type Cache struct {
	Addr string        `yaml:"redis_addr"`
	DB   int           `yaml:"db"`
	TTL  time.Duration `yaml:"ttl" default:"6h"`
}

// Config holds all application configuration.
type Config struct {
	Pipeline   Pipeline   `yaml:"pipeline"`
	DataSource DataSource `yaml:"data_source"`
	Cache      Cache      `yaml:"cache"`
	Output     struct {
		Dir string `yaml:"dir" default:"data/output"`
	} `yaml:"output"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/crypto_forecast.db"`
	} `yaml:"database"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token" validate:"required_if=Enabled true"`
		ChatID   string `yaml:"chat_id" validate:"required_if=Enabled true"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron string `yaml:"cron" default:"0 0 9 1 * *"`
	} `yaml:"schedule"`
	Metrics struct {
		Addr string `yaml:"addr" default:":9108"`
	} `yaml:"metrics"`
	Log logger.Config `yaml:"log"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads config from a YAML file, then applies environment variable
// overrides and finally each override func, before validating. A missing file
// yields the defaults. Defaults are applied before the file is parsed, so
// explicit zero values in the file are kept.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.Pipeline.Symbol = v
	}
	if v := os.Getenv("MARKET"); v != "" {
		cfg.Pipeline.Market = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.DataSource.Proxy = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks every field against its constraints. The first violation
// is reported as a ConfigError naming the offending option.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return model.ConfigErrorf("config", optionName(fe.Namespace()), "failed %q check (param %q, value %v)",
			fe.Tag(), fe.Param(), fe.Value())
	}
	return model.ConfigErrorf("config", "config", "%v", err)
}

// optionName turns "Config.Pipeline.RSIWindow" into "Pipeline.RSIWindow".
func optionName(ns string) string {
	_, rest, ok := strings.Cut(ns, ".")
	if !ok {
		return ns
	}
	return rest
}
