// pkg/model/model.go

// Package model содержит нормализованные доменные типы коннектора:
// биржи, инструменты, подписки и единое событие рынка MarketEvent.
package model

import (
	"fmt"
	"strings"
)

// Exchange — имя биржи, например "binance" или "bybit".
type Exchange string

func (e Exchange) String() string { return string(e) }

// Symbol — идентификатор валюты ("btc", "usdt", ...). Всегда в нижнем регистре.
type Symbol string

// NewSymbol нормализует вход к нижнему регистру.
func NewSymbol(s string) Symbol {
	return Symbol(strings.ToLower(s))
}

func (s Symbol) String() string { return string(s) }

// InstrumentKind определяет тип инструмента для пары base/quote.
type InstrumentKind string

const (
	Spot            InstrumentKind = "spot"
	FuturePerpetual InstrumentKind = "future_perpetual"
)

// Instrument однозначно описывает торгуемую пару и тип инструмента.
// Например: {btc, usdt, spot}.
type Instrument struct {
	Base  Symbol         `json:"base"`
	Quote Symbol         `json:"quote"`
	Kind  InstrumentKind `json:"instrument_type"`
}

// NewInstrument создаёт Instrument, нормализуя символы.
func NewInstrument(base, quote string, kind InstrumentKind) Instrument {
	return Instrument{Base: NewSymbol(base), Quote: NewSymbol(quote), Kind: kind}
}

func (i Instrument) String() string {
	return fmt.Sprintf("(%s_%s, %s)", i.Base, i.Quote, i.Kind)
}

// Market — уникальная комбинация биржи и инструмента.
type Market struct {
	Exchange   Exchange   `json:"exchange"`
	Instrument Instrument `json:"instrument"`
}

// MarketID — строковый ключ рынка вида "binance_btc_usdt_spot".
type MarketID string

// NewMarketID строит MarketID по бирже и инструменту.
func NewMarketID(exchange Exchange, instrument Instrument) MarketID {
	return MarketID(strings.ToLower(fmt.Sprintf(
		"%s_%s_%s_%s", exchange, instrument.Base, instrument.Quote, instrument.Kind,
	)))
}

// SubscriptionID — непрозрачный строковый ключ логического канала биржи,
// например "btcusdt@trade". По нему входящие сообщения привязываются
// к исходной подписке. Формат задаёт каждая биржа сама.
type SubscriptionID string

func (id SubscriptionID) String() string { return string(id) }

// StreamKind — вид потока данных, на который оформляется подписка.
type StreamKind string

const (
	Trades     StreamKind = "trades"
	OrderBooks StreamKind = "order_books"
)

// Subscription — неизменяемое описание подписки: инструмент + вид потока.
// Создаётся вызывающей стороной до подключения и больше не меняется.
type Subscription struct {
	Instrument Instrument `json:"instrument"`
	Kind       StreamKind `json:"kind"`
}

// NewSubscription создаёт Subscription.
func NewSubscription(base, quote string, instKind InstrumentKind, kind StreamKind) Subscription {
	return Subscription{Instrument: NewInstrument(base, quote, instKind), Kind: kind}
}

// SubscriptionMeta — изменяемое состояние одной подписки внутри трансформера:
// исходная Subscription плюс монотонный счётчик Sequence. Счётчик
// увеличивается ровно на единицу на каждое успешно преобразованное
// входящее сообщение и никогда не сбрасывается, пока живёт поток.
type SubscriptionMeta struct {
	Subscription Subscription
	Sequence     uint64
}

// NextSequence возвращает текущее значение счётчика и инкрементирует его.
// Первое событие подписки получает Sequence == 0.
func (m *SubscriptionMeta) NextSequence() uint64 {
	seq := m.Sequence
	m.Sequence++
	return seq
}

// Side — сторона сделки.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)
