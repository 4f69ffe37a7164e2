// pkg/model/model_test.go
package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewSymbol_Lowercase(t *testing.T) {
	cases := []struct {
		in   string
		want Symbol
	}{
		{"BTC", "btc"},
		{"usdt", "usdt"},
		{"EtH", "eth"},
	}
	for _, c := range cases {
		if got := NewSymbol(c.in); got != c.want {
			t.Errorf("NewSymbol(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestNewMarketID(t *testing.T) {
	cases := []struct {
		exchange Exchange
		inst     Instrument
		want     MarketID
	}{
		{"binance", NewInstrument("BTC", "USDT", Spot), "binance_btc_usdt_spot"},
		{"bybit", NewInstrument("eth", "usd", FuturePerpetual), "bybit_eth_usd_future_perpetual"},
	}
	for _, c := range cases {
		if got := NewMarketID(c.exchange, c.inst); got != c.want {
			t.Errorf("NewMarketID(%s, %v) = %q; want %q", c.exchange, c.inst, got, c.want)
		}
	}
}

// Счётчик должен отдавать pre-increment значение, начиная с нуля.
func TestSubscriptionMeta_NextSequence(t *testing.T) {
	meta := &SubscriptionMeta{Subscription: NewSubscription("btc", "usdt", Spot, Trades)}
	for want := uint64(0); want < 5; want++ {
		if got := meta.NextSequence(); got != want {
			t.Fatalf("NextSequence() = %d; want %d", got, want)
		}
	}
	if meta.Sequence != 5 {
		t.Errorf("Sequence after 5 calls = %d; want 5", meta.Sequence)
	}
}

func TestMarketEvent_JSONRoundTrip(t *testing.T) {
	ev := MarketEvent{
		Market: Market{
			Exchange:   "binance",
			Instrument: NewInstrument("btc", "usdt", Spot),
		},
		Sequence:   7,
		ReceivedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Data: Trade{
			ID:       "42",
			Price:    decimal.RequireFromString("65000.10"),
			Amount:   decimal.RequireFromString("0.25"),
			Side:     Buy,
			Occurred: time.Date(2024, 5, 1, 11, 59, 59, 0, time.UTC),
		},
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back MarketEvent
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back.Sequence != ev.Sequence {
		t.Errorf("Sequence = %d; want %d", back.Sequence, ev.Sequence)
	}
	trade, ok := back.Data.(Trade)
	if !ok {
		t.Fatalf("Data type = %T; want Trade", back.Data)
	}
	if !trade.Price.Equal(decimal.RequireFromString("65000.10")) {
		t.Errorf("Price = %s; want 65000.10", trade.Price)
	}
	if trade.Side != Buy {
		t.Errorf("Side = %q; want %q", trade.Side, Buy)
	}
}

func TestMarketEvent_MarshalWithoutPayload(t *testing.T) {
	ev := MarketEvent{Sequence: 1}
	if _, err := json.Marshal(ev); err == nil {
		t.Errorf("expected error for event without payload")
	}
}
