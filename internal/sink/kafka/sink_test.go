// internal/sink/kafka/sink_test.go
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
)

type capturedMessage struct {
	topic string
	key   string
	value []byte
}

type fakeProducer struct {
	published []capturedMessage
	fail      int // число первых Publish, завершающихся ошибкой
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if p.fail > 0 {
		p.fail--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, capturedMessage{topic: topic, key: string(key), value: value})
	return nil
}

func (p *fakeProducer) Ping(context.Context) error { return nil }
func (p *fakeProducer) Close() error               { return nil }

func marketEvent(seq uint64) model.MarketEvent {
	return model.MarketEvent{
		Market: model.Market{
			Exchange:   "binance",
			Instrument: model.NewInstrument("btc", "usdt", model.Spot),
		},
		Sequence:   seq,
		ReceivedAt: time.Now().UTC(),
		Data: model.Trade{
			ID:       "1",
			Price:    decimal.NewFromInt(42000),
			Amount:   decimal.NewFromInt(1),
			Side:     model.Buy,
			Occurred: time.Now().UTC(),
		},
	}
}

func TestSink_PublishesEvents(t *testing.T) {
	producer := &fakeProducer{}
	sink := NewSink(producer, "marketdata.events", logger.Nop())

	events := make(chan model.MarketEvent, 2)
	events <- marketEvent(0)
	events <- marketEvent(1)
	close(events)

	if err := sink.Run(context.Background(), events); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(producer.published) != 2 {
		t.Fatalf("published %d messages; want 2", len(producer.published))
	}
	msg := producer.published[0]
	if msg.topic != "marketdata.events" {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.key != "binance_btc_usdt_spot" {
		t.Errorf("key = %q", msg.key)
	}

	var decoded model.MarketEvent
	if err := json.Unmarshal(msg.value, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Data.(model.Trade).Price.String() != "42000" {
		t.Errorf("payload = %+v", decoded)
	}
}

// Ошибка публикации не останавливает поток.
func TestSink_PublishErrorContinues(t *testing.T) {
	producer := &fakeProducer{fail: 1}
	sink := NewSink(producer, "t", logger.Nop())

	events := make(chan model.MarketEvent, 2)
	events <- marketEvent(0)
	events <- marketEvent(1)
	close(events)

	if err := sink.Run(context.Background(), events); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(producer.published) != 1 {
		t.Errorf("published = %d; want 1 (first dropped)", len(producer.published))
	}
}

func TestSink_ContextCancel(t *testing.T) {
	sink := NewSink(&fakeProducer{}, "t", logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sink.Run(ctx, make(chan model.MarketEvent))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v; want context.Canceled", err)
	}
}
