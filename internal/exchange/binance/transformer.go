// internal/exchange/binance/transformer.go
package binance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/socket"
)

// Name — каноническое имя биржи.
const Name model.Exchange = "binance"

// channelID строит имя канала Binance для подписки: "btcusdt@trade"
// для спота, "btcusdt@aggTrade" для бессрочных фьючерсов. Это же имя
// служит SubscriptionID при обратном сопоставлении входящих сообщений.
func channelID(sub model.Subscription) model.SubscriptionID {
	suffix := "@trade"
	if sub.Instrument.Kind == model.FuturePerpetual {
		suffix = "@aggTrade"
	}
	return model.SubscriptionID(string(sub.Instrument.Base) + string(sub.Instrument.Quote) + suffix)
}

// transformer нормализует сообщения Binance в MarketEvent.
// Вызывается из одной горутины Stream-а, блокировки не нужны.
type transformer struct {
	subs map[model.SubscriptionID]*model.SubscriptionMeta
}

func newTransformer(subs []model.Subscription) *transformer {
	m := make(map[model.SubscriptionID]*model.SubscriptionMeta, len(subs))
	for _, sub := range subs {
		m[channelID(sub)] = &model.SubscriptionMeta{Subscription: sub}
	}
	return &transformer{subs: m}
}

// Transform реализует socket.Transformer.
func (t *transformer) Transform(msg message) ([]model.MarketEvent, error) {
	if msg.isSubResponse() {
		if err := msg.Validate(); err != nil {
			return nil, &socket.SubscribeError{Reason: err.Error()}
		}
		return nil, nil
	}

	var suffix string
	switch msg.Event {
	case "trade":
		suffix = "@trade"
	case "aggTrade":
		suffix = "@aggTrade"
	default:
		return nil, &socket.UnidentifiableError{ID: model.SubscriptionID(msg.Event)}
	}

	id := model.SubscriptionID(strings.ToLower(msg.Symbol) + suffix)
	meta, ok := t.subs[id]
	if !ok {
		return nil, &socket.UnidentifiableError{ID: id}
	}

	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return nil, fmt.Errorf("binance: parse price %q: %w", msg.Price, err)
	}
	amount, err := decimal.NewFromString(msg.Quantity)
	if err != nil {
		return nil, fmt.Errorf("binance: parse quantity %q: %w", msg.Quantity, err)
	}

	// m == true → покупатель был мейкером, агрессор продавал.
	side := model.Buy
	if msg.BuyerIsMaker {
		side = model.Sell
	}
	tradeID := msg.TradeID
	if msg.Event == "aggTrade" {
		tradeID = msg.AggTradeID
	}

	return []model.MarketEvent{{
		Market:     model.Market{Exchange: Name, Instrument: meta.Subscription.Instrument},
		Sequence:   meta.NextSequence(),
		ReceivedAt: time.Now().UTC(),
		Data: model.Trade{
			ID:       strconv.FormatInt(tradeID, 10),
			Price:    price,
			Amount:   amount,
			Side:     side,
			Occurred: time.UnixMilli(msg.TradeTime).UTC(),
		},
	}}, nil
}
