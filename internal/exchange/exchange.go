// internal/exchange/exchange.go

// Package exchange определяет контракт биржевого адаптера: адаптер
// умеет открыть поток нормализованных событий для набора подписок.
// Конкретные биржи живут в подпакетах (binance, bybit).
package exchange

import (
	"context"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/socket"
)

// Stream — нетипизированная снаружи ручка потока: generic-параметр
// сообщения скрыт внутри адаптера, потребитель видит только MarketEvent.
type Stream interface {
	Next(ctx context.Context) (model.MarketEvent, error)
	Close() error
}

// Connector открывает поток к одной бирже.
//
// Connect подключает транспорт, регистрирует подписки в трансформере,
// отправляет подписочные кадры и возвращает готовый Stream. Политику
// переподключения реализует вызывающая сторона.
type Connector interface {
	Name() model.Exchange
	Connect(ctx context.Context, subs []model.Subscription) (Stream, error)
}

// Config — настройки подключения одной биржи.
type Config struct {
	URL string          `mapstructure:"url"`
	WS  socket.WSConfig `mapstructure:"ws"`
}
