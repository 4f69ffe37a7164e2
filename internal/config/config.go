// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/exchange"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/backoff"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
)

/*
   --------------------------------------------------------------------------
   СТРУКТУРЫ
   --------------------------------------------------------------------------
*/

// Config — все настройки сервиса.
type Config struct {
	ServiceName    string               `mapstructure:"service_name"`
	ServiceVersion string               `mapstructure:"service_version"`
	Exchanges      ExchangesConfig      `mapstructure:"exchanges"`
	Subscriptions  []SubscriptionConfig `mapstructure:"subscriptions"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Telemetry      Telemetry            `mapstructure:"telemetry"`
	Logging        Logging              `mapstructure:"logging"`
	HTTP           HTTPConfig           `mapstructure:"http"`
}

// ExchangesConfig хранит подключения поддерживаемых бирж.
type ExchangesConfig struct {
	Binance exchange.Config `mapstructure:"binance"`
	Bybit   exchange.Config `mapstructure:"bybit"`
}

// SubscriptionConfig — одна подписка в декларативном виде.
type SubscriptionConfig struct {
	Exchange string `mapstructure:"exchange"` // "binance" | "bybit"
	Base     string `mapstructure:"base"`     // базовая валюта, напр. "btc"
	Quote    string `mapstructure:"quote"`    // котируемая валюта, напр. "usdt"
	Market   string `mapstructure:"market"`   // "spot" | "future_perpetual"
	Stream   string `mapstructure:"stream"`   // "trades"
}

// ToModel переводит декларативную подписку в доменную.
func (s SubscriptionConfig) ToModel() (model.Subscription, error) {
	var kind model.InstrumentKind
	switch strings.ToLower(s.Market) {
	case "spot", "":
		kind = model.Spot
	case "future_perpetual":
		kind = model.FuturePerpetual
	default:
		return model.Subscription{}, fmt.Errorf("unknown market %q", s.Market)
	}

	switch strings.ToLower(s.Stream) {
	case "trades", "":
	default:
		return model.Subscription{}, fmt.Errorf("unsupported stream %q", s.Stream)
	}

	return model.NewSubscription(s.Base, s.Quote, kind, model.Trades), nil
}

// KafkaConfig хранит настройки Kafka-sink-а.
// Пустой список brokers означает, что публикация выключена.
type KafkaConfig struct {
	Brokers        []string       `mapstructure:"brokers"`
	Topic          string         `mapstructure:"topic"`
	Timeout        time.Duration  `mapstructure:"timeout"`
	Acks           string         `mapstructure:"acks"`
	Compression    string         `mapstructure:"compression"`
	FlushFrequency time.Duration  `mapstructure:"flush_frequency"`
	FlushMessages  int            `mapstructure:"flush_messages"`
	Backoff        backoff.Config `mapstructure:"backoff"`
}

// Enabled сообщает, настроена ли публикация в Kafka.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// Telemetry хранит настройки OpenTelemetry.
type Telemetry struct {
	OTLPEndpoint string  `mapstructure:"otel_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SamplerRatio float64 `mapstructure:"sampler_ratio"`
}

// Logging хранит настройки логгера.
type Logging struct {
	Level   string `mapstructure:"level"`
	DevMode bool   `mapstructure:"dev_mode"`
}

// HTTPConfig хранит конфигурацию HTTP-/metrics-сервера.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MetricsPath     string        `mapstructure:"metrics_path"`
	HealthzPath     string        `mapstructure:"healthz_path"`
	ReadyzPath      string        `mapstructure:"readyz_path"`
}

/*
   --------------------------------------------------------------------------
   LOADER
   --------------------------------------------------------------------------
*/

// Load загружает и валидирует конфиг. Если path пустой — читаются только ENV и defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// ---------- 1) Defaults ----------
	v.SetDefault("service_name", "exchange-connector")
	v.SetDefault("service_version", "v1.0.0")

	// Exchanges
	v.SetDefault("exchanges.binance.url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("exchanges.binance.ws.read_timeout", "30s")
	v.SetDefault("exchanges.bybit.url", "wss://stream.bybit.com/v5/public/spot")
	v.SetDefault("exchanges.bybit.ws.read_timeout", "30s")

	// Kafka (brokers пустые → sink выключен)
	v.SetDefault("kafka.acks", "all")
	v.SetDefault("kafka.timeout", "15s")
	v.SetDefault("kafka.compression", "none")
	v.SetDefault("kafka.topic", "marketdata.events")
	v.SetDefault("kafka.flush_frequency", "0s")
	v.SetDefault("kafka.flush_messages", 0)

	// Telemetry
	v.SetDefault("telemetry.otel_endpoint", "otel-collector:4317")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sampler_ratio", 1.0)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dev_mode", false)

	// HTTP server
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("http.metrics_path", "/metrics")
	v.SetDefault("http.healthz_path", "/healthz")
	v.SetDefault("http.readyz_path", "/readyz")

	// ---------- 2) ENV ----------
	v.SetEnvPrefix("CONNECTOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// ---------- 3) Optional file ----------
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", v.ConfigFileUsed(), err)
		}
	}

	// ---------- 4) Decode ----------
	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToBoolHook,
	)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "mapstructure",
		Result:     &cfg,
		DecodeHook: decodeHook,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// ---------- 5) Validation ----------
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// stringToBoolHook разбирает true/false, иначе отдает исходные данные.
func stringToBoolHook(f, t reflect.Kind, data interface{}) (interface{}, error) {
	if f == reflect.String && t == reflect.Bool {
		return strconv.ParseBool(data.(string))
	}
	return data, nil
}

/*
   --------------------------------------------------------------------------
   VALIDATION
   --------------------------------------------------------------------------
*/

func (c *Config) Validate() error {
	// Service
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version is required")
	}

	// Subscriptions
	if len(c.Subscriptions) == 0 {
		return fmt.Errorf("subscriptions must contain at least one entry")
	}
	for i, sub := range c.Subscriptions {
		switch strings.ToLower(sub.Exchange) {
		case "binance":
			if c.Exchanges.Binance.URL == "" {
				return fmt.Errorf("exchanges.binance.url is required")
			}
		case "bybit":
			if c.Exchanges.Bybit.URL == "" {
				return fmt.Errorf("exchanges.bybit.url is required")
			}
		default:
			return fmt.Errorf("subscriptions[%d].exchange must be one of [binance, bybit]", i)
		}
		if sub.Base == "" || sub.Quote == "" {
			return fmt.Errorf("subscriptions[%d]: base and quote are required", i)
		}
		if _, err := sub.ToModel(); err != nil {
			return fmt.Errorf("subscriptions[%d]: %w", i, err)
		}
	}

	// Kafka (опционально)
	if c.Kafka.Enabled() {
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required")
		}
		switch strings.ToLower(c.Kafka.Acks) {
		case "all", "leader", "none":
		default:
			return fmt.Errorf("kafka.acks must be one of [all, leader, none]")
		}
		switch strings.ToLower(c.Kafka.Compression) {
		case "none", "gzip", "snappy", "lz4", "zstd":
		default:
			return fmt.Errorf("kafka.compression must be one of [none, gzip, snappy, lz4, zstd]")
		}
	}

	// Telemetry
	if c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry.otel_endpoint is required")
	}
	if c.Telemetry.SamplerRatio < 0 || c.Telemetry.SamplerRatio > 1 {
		return fmt.Errorf("telemetry.sampler_ratio must be in [0, 1]")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error]")
	}

	// HTTP
	if err := validateHTTP(&c.HTTP); err != nil {
		return err
	}

	return nil
}

func validateHTTP(h *HTTPConfig) error {
	if h.Port <= 0 || h.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535")
	}
	durations := map[string]time.Duration{
		"http.read_timeout":     h.ReadTimeout,
		"http.write_timeout":    h.WriteTimeout,
		"http.idle_timeout":     h.IdleTimeout,
		"http.shutdown_timeout": h.ShutdownTimeout,
	}
	for k, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0", k)
		}
	}
	paths := map[string]string{
		"http.metrics_path": h.MetricsPath,
		"http.healthz_path": h.HealthzPath,
		"http.readyz_path":  h.ReadyzPath,
	}
	for k, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must start with '/'", k)
		}
	}
	return nil
}

/*
   --------------------------------------------------------------------------
   DEBUG PRINT
   --------------------------------------------------------------------------
*/

// Print выводит текущий конфиг в JSON (удобно в DevMode).
func (c *Config) Print() {
	b, _ := json.MarshalIndent(c, "", "  ")
	fmt.Println("Loaded configuration:\n", string(b))
}
