// pkg/model/event.go

package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MarketEvent — единое, не зависящее от биржи событие рынка.
//
// Sequence монотонно растёт в рамках одного SubscriptionID (начиная с нуля),
// ReceivedAt — локальное время приёма кадра, а время биржи сохраняется
// внутри payload-а: оба нужны потребителям для расчёта задержки.
type MarketEvent struct {
	Market     Market    `json:"market"`
	Sequence   uint64    `json:"sequence"`
	ReceivedAt time.Time `json:"received_at"`
	Data       MarketData
}

// MarketData — вариант полезной нагрузки события.
type MarketData interface {
	Kind() StreamKind
}

// Trade — нормализованная публичная сделка.
type Trade struct {
	ID       string          `json:"id"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
	Side     Side            `json:"side"`
	Occurred time.Time       `json:"occurred"` // время события по данным биржи
}

func (Trade) Kind() StreamKind { return Trades }

// marketEventJSON — промежуточное представление для сериализации:
// вариант полезной нагрузки помечается полем "kind".
type marketEventJSON struct {
	Market     Market          `json:"market"`
	Sequence   uint64          `json:"sequence"`
	ReceivedAt time.Time       `json:"received_at"`
	Kind       StreamKind      `json:"kind"`
	Trade      *Trade          `json:"trade,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// MarshalJSON сериализует событие с тегом варианта.
func (e MarketEvent) MarshalJSON() ([]byte, error) {
	out := marketEventJSON{
		Market:     e.Market,
		Sequence:   e.Sequence,
		ReceivedAt: e.ReceivedAt,
	}
	switch data := e.Data.(type) {
	case Trade:
		out.Kind = Trades
		out.Trade = &data
	case *Trade:
		out.Kind = Trades
		out.Trade = data
	case nil:
		return nil, fmt.Errorf("model: MarketEvent without payload")
	default:
		return nil, fmt.Errorf("model: unsupported payload %T", e.Data)
	}
	return json.Marshal(out)
}

// UnmarshalJSON восстанавливает событие по тегу варианта.
func (e *MarketEvent) UnmarshalJSON(data []byte) error {
	var in marketEventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.Market = in.Market
	e.Sequence = in.Sequence
	e.ReceivedAt = in.ReceivedAt
	switch in.Kind {
	case Trades:
		if in.Trade == nil {
			return fmt.Errorf("model: kind %q without trade payload", in.Kind)
		}
		e.Data = *in.Trade
	default:
		return fmt.Errorf("model: unsupported kind %q", in.Kind)
	}
	return nil
}
