// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Oracle sources.
const (
	OracleSourceHermes = "hermes"
	OracleSourceEVM    = "evm"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Binance   BinanceConfig   `mapstructure:"binance"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// BinanceConfig holds the exchange feed settings.
type BinanceConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"` // wss://stream.binance.com:9443 or wss://stream.binance.us:9443 for US
	HTTPURL        string        `mapstructure:"http_url"`
	Symbol         string        `mapstructure:"symbol"`
	StaleTimeout   time.Duration `mapstructure:"stale_timeout"`
	EnableFallback bool          `mapstructure:"enable_fallback"`
}

// OracleConfig holds the Pyth feed settings.
type OracleConfig struct {
	Source            string        `mapstructure:"source"` // hermes | evm
	FeedID            string        `mapstructure:"feed_id"`
	HermesWSURL       string        `mapstructure:"hermes_ws_url"`
	HermesHTTPURL     string        `mapstructure:"hermes_http_url"`
	EVMRPCURL         string        `mapstructure:"evm_rpc_url"`
	EVMContract       string        `mapstructure:"evm_contract"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	StaleTimeout      time.Duration `mapstructure:"stale_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// EVMContractAddress returns the Pyth contract as common.Address.
func (c *OracleConfig) EVMContractAddress() common.Address {
	return common.HexToAddress(c.EVMContract)
}

// ArbitrageConfig holds detector settings.
type ArbitrageConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	TUIMode      bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// RedisConfig holds the optional signal fan-out settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
	Stream   string `mapstructure:"stream"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceExporter  string `mapstructure:"trace_exporter"` // zipkin | otlp-grpc | otlp-http | console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Binance
	v.BindEnv("binance.websocket_url", "ARB_BINANCE_WS_URL", "BINANCE_WS_URL")
	v.BindEnv("binance.http_url", "ARB_BINANCE_HTTP_URL", "BINANCE_HTTP_URL")
	v.BindEnv("binance.symbol", "ARB_BINANCE_SYMBOL", "BINANCE_SYMBOL")

	// Oracle
	v.BindEnv("oracle.source", "ARB_ORACLE_SOURCE")
	v.BindEnv("oracle.feed_id", "ARB_PYTH_FEED_ID", "PYTH_PRICE_ID")
	v.BindEnv("oracle.hermes_ws_url", "ARB_HERMES_WS_URL", "HERMES_WS_URL")
	v.BindEnv("oracle.hermes_http_url", "ARB_HERMES_HTTP_URL", "HERMES_HTTP_URL")
	v.BindEnv("oracle.evm_rpc_url", "ARB_EVM_RPC_URL", "EVM_RPC_URL")
	v.BindEnv("oracle.evm_contract", "ARB_PYTH_CONTRACT", "PYTH_CONTRACT")

	// Redis
	v.BindEnv("redis.enabled", "ARB_REDIS_ENABLED")
	v.BindEnv("redis.addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "ARB_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "oracle-arbitrage-bot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Binance defaults
	v.SetDefault("binance.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("binance.http_url", "https://api.binance.com")
	v.SetDefault("binance.symbol", "SOLUSDT")
	v.SetDefault("binance.stale_timeout", "5s")
	v.SetDefault("binance.enable_fallback", true)

	// Oracle defaults (SOL/USD on Pyth)
	v.SetDefault("oracle.source", OracleSourceHermes)
	v.SetDefault("oracle.feed_id", "0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d")
	v.SetDefault("oracle.hermes_ws_url", "wss://hermes.pyth.network/ws")
	v.SetDefault("oracle.hermes_http_url", "https://hermes.pyth.network")
	v.SetDefault("oracle.evm_contract", "0x4305FB66699C3B2702D4d05CF36551390A4c69C6")
	v.SetDefault("oracle.poll_interval", "1s")
	v.SetDefault("oracle.stale_timeout", "10s")
	v.SetDefault("oracle.requests_per_minute", 120)

	// Arbitrage defaults
	v.SetDefault("arbitrage.poll_interval", "100ms")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "arbitrage:opportunities")
	v.SetDefault("redis.stream", "arbitrage:opportunities:log")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "oracle-arbitrage-bot")
	v.SetDefault("telemetry.trace_exporter", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.port", 8081)
}

func (c *Config) normalize() {
	c.Binance.Symbol = strings.ToUpper(strings.TrimSpace(c.Binance.Symbol))
	c.Oracle.FeedID = strings.ToLower(strings.TrimSpace(c.Oracle.FeedID))
	if c.Oracle.FeedID != "" && !strings.HasPrefix(c.Oracle.FeedID, "0x") {
		c.Oracle.FeedID = "0x" + c.Oracle.FeedID
	}
	c.Oracle.Source = strings.ToLower(c.Oracle.Source)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Binance.Symbol == "" {
		return fmt.Errorf("binance.symbol is required")
	}
	if c.Binance.WebSocketURL == "" {
		return fmt.Errorf("binance.websocket_url is required")
	}
	if len(c.Oracle.FeedID) != 66 {
		return fmt.Errorf("invalid oracle.feed_id %q: want 32-byte hex", c.Oracle.FeedID)
	}

	switch c.Oracle.Source {
	case OracleSourceHermes:
		if c.Oracle.HermesWSURL == "" && c.Oracle.HermesHTTPURL == "" {
			return fmt.Errorf("oracle.hermes_ws_url or oracle.hermes_http_url is required")
		}
	case OracleSourceEVM:
		if c.Oracle.EVMRPCURL == "" {
			return fmt.Errorf("oracle.evm_rpc_url is required for the evm source")
		}
		if !common.IsHexAddress(c.Oracle.EVMContract) {
			return fmt.Errorf("invalid oracle.evm_contract: %s", c.Oracle.EVMContract)
		}
	default:
		return fmt.Errorf("unknown oracle.source %q", c.Oracle.Source)
	}

	if c.Arbitrage.PollInterval <= 0 {
		return fmt.Errorf("arbitrage.poll_interval must be positive")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
