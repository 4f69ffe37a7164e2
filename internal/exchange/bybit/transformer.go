// internal/exchange/bybit/transformer.go
package bybit

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/socket"
)

// Name — каноническое имя биржи.
const Name model.Exchange = "bybit"

// topicID строит тему Bybit: "publicTrade.BTCUSDT". Тема же служит
// SubscriptionID: входящие пакеты несут её в поле "topic".
func topicID(sub model.Subscription) model.SubscriptionID {
	symbol := strings.ToUpper(string(sub.Instrument.Base) + string(sub.Instrument.Quote))
	return model.SubscriptionID("publicTrade." + symbol)
}

// transformer нормализует пакеты Bybit в MarketEvent: один кадр может
// нести несколько сделок, каждая получает своё значение Sequence.
type transformer struct {
	subs map[model.SubscriptionID]*model.SubscriptionMeta
}

func newTransformer(subs []model.Subscription) *transformer {
	m := make(map[model.SubscriptionID]*model.SubscriptionMeta, len(subs))
	for _, sub := range subs {
		m[topicID(sub)] = &model.SubscriptionMeta{Subscription: sub}
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

	id := model.SubscriptionID(msg.Topic)
	meta, ok := t.subs[id]
	if !ok {
		return nil, &socket.UnidentifiableError{ID: id}
	}

	// Сначала разбираем весь пакет: счётчик Sequence трогаем только
	// после того, как каждая сделка пакета успешно декодирована. Иначе
	// ошибка в середине пакета сдвинула бы счётчик за невыданные события.
	trades := make([]model.Trade, 0, len(msg.Data))
	for _, trade := range msg.Data {
		price, err := decimal.NewFromString(trade.Price)
		if err != nil {
			return nil, fmt.Errorf("bybit: parse price %q: %w", trade.Price, err)
		}
		amount, err := decimal.NewFromString(trade.Volume)
		if err != nil {
			return nil, fmt.Errorf("bybit: parse volume %q: %w", trade.Volume, err)
		}
		side := model.Buy
		if trade.Side == "Sell" {
			side = model.Sell
		}
		trades = append(trades, model.Trade{
			ID:       trade.ID,
			Price:    price,
			Amount:   amount,
			Side:     side,
			Occurred: time.UnixMilli(trade.Time).UTC(),
		})
	}

	received := time.Now().UTC()
	events := make([]model.MarketEvent, 0, len(trades))
	for _, trade := range trades {
		events = append(events, model.MarketEvent{
			Market:     model.Market{Exchange: Name, Instrument: meta.Subscription.Instrument},
			Sequence:   meta.NextSequence(),
			ReceivedAt: received,
			Data:       trade,
		})
	}
	return events, nil
}
