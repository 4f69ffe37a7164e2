// internal/exchange/binance/binance.go

// Package binance — адаптер Binance: открывает websocket-поток,
// подписывается на каналы сделок и нормализует события.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/internal/exchange"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/model"
	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/socket"
)

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     uint64   `json:"id"`
}

// Connector реализует exchange.Connector для Binance.
type Connector struct {
	cfg         exchange.Config
	log         *logger.Logger
	subscribeID uint64 // уникальный id на каждый SUBSCRIBE
}

// New создаёт Connector. Логгер именуется "binance" для фильтра в логах.
func New(cfg exchange.Config, log *logger.Logger) (*Connector, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("binance: URL is required")
	}
	return &Connector{cfg: cfg, log: log.Named("binance")}, nil
}

// Name реализует exchange.Connector.
func (c *Connector) Name() model.Exchange { return Name }

// Connect реализует exchange.Connector: подключает транспорт,
// регистрирует подписки и отправляет SUBSCRIBE-кадр. Подтверждение
// придёт внутрь потока и будет проверено трансформером.
func (c *Connector) Connect(ctx context.Context, subs []model.Subscription) (exchange.Stream, error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("binance: at least one subscription is required")
	}

	transport, err := socket.DialWebSocket(ctx, c.cfg.URL, c.cfg.WS, c.log)
	if err != nil {
		return nil, fmt.Errorf("binance: connect: %w", err)
	}

	stream := socket.NewStream[message](
		transport,
		socket.NewJSONParser[message](c.log),
		newTransformer(subs),
	)

	channels := make([]string, 0, len(subs))
	for _, sub := range subs {
		channels = append(channels, string(channelID(sub)))
	}
	req, err := json.Marshal(subscribeRequest{
		Method: "SUBSCRIBE",
		Params: channels,
		ID:     atomic.AddUint64(&c.subscribeID, 1),
	})
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("binance: marshal subscribe: %w", err)
	}
	if err := stream.Send(ctx, socket.TextFrame(req)); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("binance: subscribe: %w", err)
	}

	c.log.Info("binance: subscribed", zap.Strings("channels", channels))
	return stream, nil
}
