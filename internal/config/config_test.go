// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
subscriptions:
  - exchange: binance
    base: btc
    quote: usdt
    market: spot
    stream: trades
  - exchange: bybit
    base: eth
    quote: usdt
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ServiceName != "exchange-connector" {
		t.Errorf("service_name = %q", cfg.ServiceName)
	}
	if cfg.Exchanges.Binance.URL == "" || cfg.Exchanges.Bybit.URL == "" {
		t.Error("exchange URL defaults must be applied")
	}
	if len(cfg.Subscriptions) != 2 {
		t.Fatalf("subscriptions = %d", len(cfg.Subscriptions))
	}
	if cfg.Kafka.Enabled() {
		t.Error("kafka must be disabled without brokers")
	}

	sub, err := cfg.Subscriptions[0].ToModel()
	if err != nil {
		t.Fatalf("to model: %v", err)
	}
	if sub.Instrument.Base != "btc" || sub.Instrument.Kind != model.Spot || sub.Kind != model.Trades {
		t.Errorf("subscription = %+v", sub)
	}

	// market/stream по умолчанию: spot + trades
	second, err := cfg.Subscriptions[1].ToModel()
	if err != nil {
		t.Fatalf("to model: %v", err)
	}
	if second.Instrument.Kind != model.Spot {
		t.Errorf("default market = %q", second.Instrument.Kind)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no subscriptions", `logging: {level: info}`},
		{"unknown exchange", `
subscriptions:
  - exchange: kraken
    base: btc
    quote: usd
`},
		{"unknown market", `
subscriptions:
  - exchange: binance
    base: btc
    quote: usdt
    market: options
`},
		{"unsupported stream", `
subscriptions:
  - exchange: binance
    base: btc
    quote: usdt
    stream: order_books
`},
		{"missing base", `
subscriptions:
  - exchange: binance
    quote: usdt
`},
		{"bad kafka acks", `
subscriptions:
  - exchange: binance
    base: btc
    quote: usdt
kafka:
  brokers: [localhost:9092]
  acks: maybe
`},
		{"bad log level", `
subscriptions:
  - exchange: binance
    base: btc
    quote: usdt
logging:
  level: verbose
`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, c.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_KafkaEnabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML+`
kafka:
  brokers: [localhost:9092]
  topic: marketdata.events
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Kafka.Enabled() {
		t.Error("kafka must be enabled with brokers")
	}
}
